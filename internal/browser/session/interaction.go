// internal/browser/session/interaction.go
// This file implements the interaction facade: the operations workflows call to find,
// inspect and act on page elements. Each one is a bounded poll run under the dialog
// guard, so a confirm() that pops up mid-call is cleared and the call replayed once.
//
// Absence is reported per operation. Locate fails with a NotFoundError naming the
// locator and timeout, LocateAll degrades to an empty slice, and the WaitFor* family
// answers false. Only driver faults surface as other errors.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/wait"
)

const scrollIntoViewScript = "arguments[0].scrollIntoView(true);"

var (
	errNotDisplayed = errors.New("element not displayed")
	errNotEnabled   = errors.New("element not enabled")
	errStillShown   = errors.New("element still displayed")
)

// Locate waits for an element matching loc to be present in the document.
func (s *Session) Locate(ctx context.Context, loc driver.Locator, opts ...CallOption) (driver.Element, error) {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()
	s.logger.Debug("Locating element.", zap.Stringer("locator", loc), zap.Duration("timeout", spec.Timeout))

	el, err := Guard(ctx, s, "locate", func(ctx context.Context) (driver.Element, error) {
		return wait.Until(ctx, spec, s.present(loc))
	})
	err = s.finish("locate", loc, start, notFound(loc, spec, err))
	return el, err
}

// LocateAll waits for at least one element matching loc and returns every match.
// If none appear within the timeout the result is empty, not an error.
func (s *Session) LocateAll(ctx context.Context, loc driver.Locator, opts ...CallOption) ([]driver.Element, error) {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()

	els, err := Guard(ctx, s, "locate_all", func(ctx context.Context) ([]driver.Element, error) {
		return wait.Until(ctx, spec, func(ctx context.Context) ([]driver.Element, bool, error) {
			els, err := s.drv.FindAll(ctx, loc)
			if err != nil {
				return nil, false, err
			}
			return els, len(els) > 0, nil
		})
	})
	if errors.Is(err, wait.ErrTimedOut) {
		s.logger.Debug("No elements matched.", zap.Stringer("locator", loc), zap.Duration("timeout", spec.Timeout))
		s.rec.ObserveOperation("locate_all", OutcomeValue.String(), time.Since(start))
		return []driver.Element{}, nil
	}
	if err = s.finish("locate_all", loc, start, err); err != nil {
		return nil, err
	}
	return els, nil
}

// Click waits until the element is present, displayed and enabled, then clicks it.
// It does not wait for whatever the click sets in motion.
func (s *Session) Click(ctx context.Context, loc driver.Locator, opts ...CallOption) error {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()

	err := guardDo(ctx, s, "click", func(ctx context.Context) error {
		el, err := wait.Until(ctx, spec, s.clickable(loc))
		if err != nil {
			return err
		}
		return el.Click(ctx)
	})
	if errors.Is(err, wait.ErrTimedOut) {
		err = fmt.Errorf("element %s not clickable within %s: %w", loc, spec.Timeout, err)
	}
	return s.finish("click", loc, start, err)
}

// Type waits for the element, clears it and sends text. Clearing first keeps the
// single replay after a dialog from duplicating keystrokes.
func (s *Session) Type(ctx context.Context, loc driver.Locator, text string, opts ...CallOption) error {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()

	err := guardDo(ctx, s, "type", func(ctx context.Context) error {
		el, err := wait.Until(ctx, spec, s.present(loc))
		if err != nil {
			return err
		}
		if err := el.Clear(ctx); err != nil {
			return err
		}
		return el.SendKeys(ctx, text)
	})
	return s.finish("type", loc, start, notFound(loc, spec, err))
}

// Text locates the element and returns its rendered text.
func (s *Session) Text(ctx context.Context, loc driver.Locator, opts ...CallOption) (string, error) {
	el, err := s.Locate(ctx, loc, opts...)
	if err != nil {
		return "", err
	}
	text, err := Guard(ctx, s, "text", el.Text)
	if err != nil {
		return "", fmt.Errorf("text of %s: %w", loc, err)
	}
	return text, nil
}

// IsVisible reports whether the element exists and is displayed. An element that
// never appears is simply not visible.
func (s *Session) IsVisible(ctx context.Context, loc driver.Locator, opts ...CallOption) (bool, error) {
	el, err := s.Locate(ctx, loc, opts...)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	shown, err := Guard(ctx, s, "is_visible", el.IsDisplayed)
	if err != nil {
		return false, fmt.Errorf("visibility of %s: %w", loc, err)
	}
	return shown, nil
}

// WaitForVisible waits for the element to be present and displayed. Timing out is
// reported as false, not as an error.
func (s *Session) WaitForVisible(ctx context.Context, loc driver.Locator, opts ...CallOption) (bool, error) {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()
	_, err := Guard(ctx, s, "wait_visible", func(ctx context.Context) (driver.Element, error) {
		return wait.Until(ctx, spec, s.visible(loc))
	})
	return s.finishBool("wait_visible", loc, start, spec, err)
}

// WaitForNotVisible waits for the element to be removed or hidden.
func (s *Session) WaitForNotVisible(ctx context.Context, loc driver.Locator, opts ...CallOption) (bool, error) {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()
	err := guardDo(ctx, s, "wait_not_visible", func(ctx context.Context) error {
		return wait.True(ctx, spec, s.hidden(loc))
	})
	return s.finishBool("wait_not_visible", loc, start, spec, err)
}

// WaitForURLContains waits for the current URL to contain fragment. A dialog that
// blocks reading the URL is cleared and that attempt counts as not yet satisfied.
func (s *Session) WaitForURLContains(ctx context.Context, fragment string, opts ...CallOption) (bool, error) {
	spec := s.spec(s.cfg.Wait.Timeout, opts)
	start := time.Now()
	err := wait.True(ctx, spec, func(ctx context.Context) (bool, error) {
		current, err := s.drv.CurrentURL(ctx)
		if errors.Is(err, driver.ErrUnexpectedAlert) {
			s.rec.IncInterruption("wait_url")
			s.RecoverAlert(ctx)
			return false, wait.NotYet(err)
		}
		if err != nil {
			return false, err
		}
		return strings.Contains(current, fragment), nil
	})
	if errors.Is(err, wait.ErrTimedOut) {
		s.logger.Debug("URL did not match.", zap.String("fragment", fragment), zap.Duration("timeout", spec.Timeout))
		s.rec.ObserveOperation("wait_url", OutcomeTimedOut.String(), time.Since(start))
		return false, nil
	}
	s.rec.ObserveOperation("wait_url", OutcomeOf(err).String(), time.Since(start))
	if err != nil {
		return false, fmt.Errorf("wait for url containing %q: %w", fragment, err)
	}
	return true, nil
}

// ScrollIntoView locates the element and scrolls it to the top of the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, loc driver.Locator, opts ...CallOption) error {
	el, err := s.Locate(ctx, loc, opts...)
	if err != nil {
		return err
	}
	err = guardDo(ctx, s, "scroll", func(ctx context.Context) error {
		_, err := s.drv.ExecuteScript(ctx, scrollIntoViewScript, el)
		return err
	})
	if err != nil {
		return fmt.Errorf("scroll %s into view: %w", loc, err)
	}
	return nil
}

// Hover locates the element and moves the pointer over it.
func (s *Session) Hover(ctx context.Context, loc driver.Locator, opts ...CallOption) error {
	el, err := s.Locate(ctx, loc, opts...)
	if err != nil {
		return err
	}
	if err := guardDo(ctx, s, "hover", func(ctx context.Context) error { return s.drv.MoveTo(ctx, el) }); err != nil {
		return fmt.Errorf("hover %s: %w", loc, err)
	}
	return nil
}

// Open navigates to target. A relative target is resolved against the configured base URL.
func (s *Session) Open(ctx context.Context, target string) error {
	dest, err := s.resolve(target)
	if err != nil {
		return err
	}
	s.logger.Info("Opening page.", zap.String("url", dest))
	if err := guardDo(ctx, s, "open", func(ctx context.Context) error { return s.drv.Navigate(ctx, dest) }); err != nil {
		return fmt.Errorf("open %s: %w", dest, err)
	}
	return nil
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	return Guard(ctx, s, "title", s.drv.Title)
}

// CurrentURL returns the URL of the focused window.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	return Guard(ctx, s, "current_url", s.drv.CurrentURL)
}

func (s *Session) Refresh(ctx context.Context) error {
	return guardDo(ctx, s, "refresh", s.drv.Refresh)
}

func (s *Session) Back(ctx context.Context) error {
	return guardDo(ctx, s, "back", s.drv.Back)
}

func (s *Session) Forward(ctx context.Context) error {
	return guardDo(ctx, s, "forward", s.drv.Forward)
}

func (s *Session) resolve(target string) (string, error) {
	if s.cfg.BaseURL == "" {
		return target, nil
	}
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", target, err)
	}
	if ref.IsAbs() {
		return target, nil
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", s.cfg.BaseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// -- Conditions --

func (s *Session) present(loc driver.Locator) wait.Condition[driver.Element] {
	return func(ctx context.Context) (driver.Element, bool, error) {
		el, err := s.drv.FindOne(ctx, loc)
		if errors.Is(err, driver.ErrNoSuchElement) {
			return nil, false, wait.NotYet(err)
		}
		if err != nil {
			return nil, false, err
		}
		return el, true, nil
	}
}

// visible treats a stale handle as "not yet": the node was re-rendered between the
// lookup and the inspection.
func (s *Session) visible(loc driver.Locator) wait.Condition[driver.Element] {
	return func(ctx context.Context) (driver.Element, bool, error) {
		el, ok, err := s.present(loc)(ctx)
		if !ok {
			return nil, false, err
		}
		shown, err := el.IsDisplayed(ctx)
		switch {
		case errors.Is(err, driver.ErrStaleElement):
			return nil, false, wait.NotYet(err)
		case err != nil:
			return nil, false, err
		case !shown:
			return nil, false, wait.NotYet(errNotDisplayed)
		}
		return el, true, nil
	}
}

func (s *Session) clickable(loc driver.Locator) wait.Condition[driver.Element] {
	return func(ctx context.Context) (driver.Element, bool, error) {
		el, ok, err := s.visible(loc)(ctx)
		if !ok {
			return nil, false, err
		}
		enabled, err := el.IsEnabled(ctx)
		switch {
		case errors.Is(err, driver.ErrStaleElement):
			return nil, false, wait.NotYet(err)
		case err != nil:
			return nil, false, err
		case !enabled:
			return nil, false, wait.NotYet(errNotEnabled)
		}
		return el, true, nil
	}
}

func (s *Session) hidden(loc driver.Locator) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		el, err := s.drv.FindOne(ctx, loc)
		if errors.Is(err, driver.ErrNoSuchElement) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		shown, err := el.IsDisplayed(ctx)
		if errors.Is(err, driver.ErrStaleElement) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if shown {
			return false, wait.NotYet(errStillShown)
		}
		return true, nil
	}
}

// -- Outcome bookkeeping --

// finish records the outcome of a locator-bound operation and attaches the operation
// and locator to driver faults.
func (s *Session) finish(op string, loc driver.Locator, start time.Time, err error) error {
	outcome := OutcomeOf(err)
	s.rec.ObserveOperation(op, outcome.String(), time.Since(start))
	switch outcome {
	case OutcomeValue:
		return nil
	case OutcomeFailed:
		s.logger.Warn("Operation failed.", zap.String("op", op), zap.Stringer("locator", loc), zap.Error(err))
		return fmt.Errorf("%s %s: %w", op, loc, err)
	default:
		s.logger.Debug("Operation gave up.", zap.String("op", op), zap.Stringer("locator", loc), zap.Error(err))
		return err
	}
}

func (s *Session) finishBool(op string, loc driver.Locator, start time.Time, spec wait.Spec, err error) (bool, error) {
	if errors.Is(err, wait.ErrTimedOut) {
		s.logger.Debug("Wait timed out.", zap.String("op", op), zap.Stringer("locator", loc), zap.Duration("timeout", spec.Timeout))
		s.rec.ObserveOperation(op, OutcomeTimedOut.String(), time.Since(start))
		return false, nil
	}
	if err := s.finish(op, loc, start, err); err != nil {
		return false, err
	}
	return true, nil
}
