// internal/driver/cdp/driver.go
// Package cdp implements driver.Driver on top of chromedp. Every call answers from
// the page as it is now; chromedp's own waiting actions are avoided so that polling
// stays in the session layer.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

const defaultCommandTimeout = 30 * time.Second

var errClosed = errors.New("cdp: driver closed")

// callKind decides what a dialog opening in the middle of a call means. For an
// effect the call already happened and caused the dialog; a query has no answer.
type callKind int

const (
	queryCall callKind = iota
	effectCall
)

// tab is one attached page target.
type tab struct {
	id      target.ID
	ctx     context.Context
	cancel  context.CancelFunc
	dialogs *dialogState
}

// Driver is a browser session driven over the DevTools protocol.
type Driver struct {
	logger      *zap.Logger
	cmdTimeout  time.Duration
	loadTimeout time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	tabs    map[target.ID]*tab
	order   []string
	cur     *tab
	primary *tab
	closed  bool
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) current() (*tab, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}
	return d.cur, nil
}

// listen feeds the tab's dialog events into its dialog state.
func (d *Driver) listen(t *tab) {
	chromedp.ListenTarget(t.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			d.logger.Debug("Dialog opened.", zap.String("type", string(e.Type)), zap.String("message", e.Message))
			t.dialogs.onOpening(e)
		case *page.EventJavascriptDialogClosed:
			t.dialogs.onClosed()
		}
	})
}

func (d *Driver) run(ctx context.Context, kind callKind, actions ...chromedp.Action) error {
	t, err := d.current()
	if err != nil {
		return err
	}
	return d.runOn(ctx, t, kind, d.cmdTimeout, actions...)
}

// runOn executes actions against one tab. An open dialog blocks most protocol
// commands, so a call never starts while one is showing and stops waiting as soon
// as one appears.
func (d *Driver) runOn(ctx context.Context, t *tab, kind callKind, timeout time.Duration, actions ...chromedp.Action) error {
	open, opened := t.dialogs.current()
	if open != nil {
		return driver.ErrUnexpectedAlert
	}

	cctx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	tctx, tcancel := context.WithTimeout(cctx, timeout)
	defer tcancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tctx, actions...) }()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("cdp command exceeded %s: %w", timeout, err)
		}
		return classify(err)
	case <-opened:
		return interruptedBy(kind)
	}
}

// interruptedBy reports the result of a call cut short by a dialog. Effects such as
// a click that raised the dialog already happened; queries have no answer.
func interruptedBy(kind callKind) error {
	if kind == effectCall {
		return nil
	}
	return driver.ErrUnexpectedAlert
}

// startOn performs the first Run on a fresh chromedp context. That call allocates the
// target and binds it to runCtx, so it must not carry the caller's deadline.
func startOn(ctx, runCtx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) FindOne(ctx context.Context, loc driver.Locator) (driver.Element, error) {
	els, err := d.FindAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrNoSuchElement, loc)
	}
	return els[0], nil
}

func (d *Driver) FindAll(ctx context.Context, loc driver.Locator) ([]driver.Element, error) {
	sel, by, err := selectorFor(loc)
	if err != nil {
		return nil, err
	}
	t, err := d.current()
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := d.runOn(ctx, t, queryCall, d.cmdTimeout, chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	els := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, &Element{d: d, tab: t, node: n})
	}
	return els, nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, queryCall, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, queryCall, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	t, err := d.current()
	if err != nil {
		return err
	}
	return d.runOn(ctx, t, effectCall, d.loadTimeout, chromedp.Navigate(url))
}

func (d *Driver) Refresh(ctx context.Context) error {
	t, err := d.current()
	if err != nil {
		return err
	}
	return d.runOn(ctx, t, effectCall, d.loadTimeout, chromedp.Reload())
}

func (d *Driver) Back(ctx context.Context) error {
	return d.history(ctx, chromedp.NavigateBack())
}

func (d *Driver) Forward(ctx context.Context) error {
	return d.history(ctx, chromedp.NavigateForward())
}

// history moves through session history. At either end the move is a no-op.
func (d *Driver) history(ctx context.Context, move chromedp.Action) error {
	t, err := d.current()
	if err != nil {
		return err
	}
	err = d.runOn(ctx, t, effectCall, d.loadTimeout, move)
	if err != nil && strings.Contains(err.Error(), "invalid navigation entry") {
		return nil
	}
	return err
}

// WindowHandles lists page targets in the order they were first seen, so the newest
// window is always last regardless of how the browser orders its target list.
func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, errClosed
	}

	cctx, cancel := CombineContext(d.browserCtx, ctx)
	defer cancel()
	infos, err := chromedp.Targets(cctx)
	if err != nil {
		return nil, classify(err)
	}
	reported := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.Type == "page" {
			reported = append(reported, string(info.TargetID))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = mergeOrder(d.order, reported)
	return slices.Clone(d.order), nil
}

// mergeOrder keeps known handles that are still reported, in their known order, and
// appends newly reported ones.
func mergeOrder(known, reported []string) []string {
	merged := make([]string, 0, len(reported))
	for _, h := range known {
		if slices.Contains(reported, h) {
			merged = append(merged, h)
		}
	}
	for _, h := range reported {
		if !slices.Contains(merged, h) {
			merged = append(merged, h)
		}
	}
	return merged
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	t, err := d.current()
	if err != nil {
		return "", err
	}
	return string(t.id), nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	handles, err := d.WindowHandles(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(handles, handle) {
		return fmt.Errorf("%w: %s", driver.ErrNoSuchWindow, handle)
	}
	t, err := d.tabFor(ctx, target.ID(handle))
	if err != nil {
		return err
	}

	cctx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()
	if err := chromedp.Run(cctx, target.ActivateTarget(t.id)); err != nil {
		return classify(err)
	}

	d.mu.Lock()
	d.cur = t
	d.mu.Unlock()
	d.logger.Debug("Switched window.", zap.String("handle", handle))
	return nil
}

// tabFor returns the attached tab for id, attaching to the target on first use.
func (d *Driver) tabFor(ctx context.Context, id target.ID) (*tab, error) {
	d.mu.Lock()
	t, ok := d.tabs[id]
	d.mu.Unlock()
	if ok {
		return t, nil
	}

	tctx, cancel := chromedp.NewContext(d.browserCtx, chromedp.WithTargetID(id))
	t = &tab{id: id, ctx: tctx, cancel: cancel, dialogs: newDialogState()}
	d.listen(t)
	if err := startOn(ctx, tctx, maskAutomation()); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach to window %s: %w", id, classify(err))
	}

	d.mu.Lock()
	d.tabs[id] = t
	d.mu.Unlock()
	return t, nil
}

// Close shuts the browser down. It is safe to call more than once.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	others := make([]*tab, 0, len(d.tabs))
	for _, t := range d.tabs {
		if t != d.primary {
			others = append(others, t)
		}
	}
	d.mu.Unlock()

	for _, t := range others {
		t.cancel()
	}
	err := chromedp.Cancel(d.browserCtx)
	d.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	d.logger.Info("Browser closed.")
	return nil
}
