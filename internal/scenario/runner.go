// internal/scenario/runner.go
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/browser/session"
)

// ErrExpectation marks a step whose check ran to completion and did not hold.
var ErrExpectation = errors.New("expectation not met")

// StepError reports the first failing step. Index is 1-based.
type StepError struct {
	Index   int
	Step    Step
	Timeout time.Duration
	Err     error
}

func (e *StepError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "step %d (%s", e.Index, e.Step.Action)
	if e.Step.loc.Value != "" {
		fmt.Fprintf(&b, " %s", e.Step.loc)
	}
	fmt.Fprintf(&b, ", timeout %s): %v", e.Timeout, e.Err)
	return b.String()
}

func (e *StepError) Unwrap() error { return e.Err }

// StepResult is the record of one executed step.
type StepResult struct {
	Index   int
	Action  Action
	Elapsed time.Duration
	Err     error
}

// Report lists the steps that ran, in order.
type Report struct {
	Scenario string
	Total    int
	Results  []StepResult
}

// Passed reports whether every step ran and succeeded.
func (r *Report) Passed() bool {
	if len(r.Results) != r.Total {
		return false
	}
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

type stepHandler func(ctx context.Context, st Step, opts []session.CallOption) error

// Runner plays scenarios through one session.
type Runner struct {
	s        *session.Session
	logger   *zap.Logger
	handlers map[Action]stepHandler
}

// NewRunner creates a runner bound to s.
func NewRunner(s *session.Session, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		s:        s,
		logger:   logger.Named("scenario"),
		handlers: make(map[Action]stepHandler),
	}
	r.registerHandlers()
	return r
}

func (r *Runner) registerHandlers() {
	r.handlers[ActionOpen] = r.handleOpen
	r.handlers[ActionClick] = r.handleClick
	r.handlers[ActionType] = r.handleType
	r.handlers[ActionWaitVisible] = r.handleWaitVisible
	r.handlers[ActionWaitNotVisible] = r.handleWaitNotVisible
	r.handlers[ActionWaitURL] = r.handleWaitURL
	r.handlers[ActionExpectText] = r.handleExpectText
	r.handlers[ActionExpectVisible] = r.handleExpectVisible
	r.handlers[ActionExpectCount] = r.handleExpectCount
	r.handlers[ActionExpectTitle] = r.handleExpectTitle
	r.handlers[ActionAcceptAlert] = r.handleAcceptAlert
	r.handlers[ActionRecoverAlert] = r.handleRecoverAlert
	r.handlers[ActionSwitchNewest] = r.handleSwitchNewest
	r.handlers[ActionClickNewWindow] = r.handleClickNewWindow
	r.handlers[ActionScroll] = r.handleScroll
	r.handlers[ActionHover] = r.handleHover
	r.handlers[ActionBack] = func(ctx context.Context, _ Step, _ []session.CallOption) error { return r.s.Back(ctx) }
	r.handlers[ActionForward] = func(ctx context.Context, _ Step, _ []session.CallOption) error { return r.s.Forward(ctx) }
	r.handlers[ActionRefresh] = func(ctx context.Context, _ Step, _ []session.CallOption) error { return r.s.Refresh(ctx) }
}

// Run executes the steps in order and stops at the first failure, which is returned
// as a *StepError. The report covers every step that ran.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	report := &Report{Scenario: sc.Name, Total: len(sc.Steps)}
	log := r.logger.With(zap.String("scenario", sc.Name))
	log.Info("Running scenario.", zap.Int("steps", len(sc.Steps)))

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		index := i + 1
		override := st.Timeout
		if override == 0 {
			override = sc.Timeout
		}
		var opts []session.CallOption
		if override > 0 {
			opts = append(opts, session.WithTimeout(override))
		}

		start := time.Now()
		err := r.handlers[st.Action](ctx, st, opts)
		elapsed := time.Since(start)
		report.Results = append(report.Results, StepResult{Index: index, Action: st.Action, Elapsed: elapsed, Err: err})

		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			serr := &StepError{Index: index, Step: st, Timeout: r.timeoutFor(st, override), Err: err}
			log.Warn("Step failed.", zap.Int("step", index), zap.String("action", string(st.Action)), zap.Error(serr))
			return report, serr
		}
		log.Debug("Step done.", zap.Int("step", index), zap.String("action", string(st.Action)), zap.Duration("elapsed", elapsed))
	}
	log.Info("Scenario passed.")
	return report, nil
}

// timeoutFor is the budget the step actually ran with.
func (r *Runner) timeoutFor(st Step, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	cfg := r.s.Config()
	switch st.Action {
	case ActionAcceptAlert:
		return cfg.AlertWait
	case ActionRecoverAlert:
		return cfg.AlertTimeout
	case ActionSwitchNewest, ActionClickNewWindow:
		return cfg.NewWindowTimeout
	}
	return cfg.Wait.Timeout
}

// -- Step handlers --

func (r *Runner) handleOpen(ctx context.Context, st Step, _ []session.CallOption) error {
	return r.s.Open(ctx, st.URL)
}

func (r *Runner) handleClick(ctx context.Context, st Step, opts []session.CallOption) error {
	return r.s.Click(ctx, st.loc, opts...)
}

func (r *Runner) handleType(ctx context.Context, st Step, opts []session.CallOption) error {
	return r.s.Type(ctx, st.loc, st.Text, opts...)
}

func (r *Runner) handleWaitVisible(ctx context.Context, st Step, opts []session.CallOption) error {
	ok, err := r.s.WaitForVisible(ctx, st.loc, opts...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: element never became visible", ErrExpectation)
	}
	return nil
}

func (r *Runner) handleWaitNotVisible(ctx context.Context, st Step, opts []session.CallOption) error {
	ok, err := r.s.WaitForNotVisible(ctx, st.loc, opts...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: element still visible", ErrExpectation)
	}
	return nil
}

func (r *Runner) handleWaitURL(ctx context.Context, st Step, opts []session.CallOption) error {
	ok, err := r.s.WaitForURLContains(ctx, st.Text, opts...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: url never contained %q", ErrExpectation, st.Text)
	}
	return nil
}

func (r *Runner) handleExpectText(ctx context.Context, st Step, opts []session.CallOption) error {
	text, err := r.s.Text(ctx, st.loc, opts...)
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(text); got != st.Text {
		return fmt.Errorf("%w: text is %q, want %q", ErrExpectation, got, st.Text)
	}
	return nil
}

func (r *Runner) handleExpectVisible(ctx context.Context, st Step, opts []session.CallOption) error {
	shown, err := r.s.IsVisible(ctx, st.loc, opts...)
	if err != nil {
		return err
	}
	if !shown {
		return fmt.Errorf("%w: element not visible", ErrExpectation)
	}
	return nil
}

func (r *Runner) handleExpectCount(ctx context.Context, st Step, opts []session.CallOption) error {
	els, err := r.s.LocateAll(ctx, st.loc, opts...)
	if err != nil {
		return err
	}
	if len(els) != *st.Count {
		return fmt.Errorf("%w: found %d elements, want %d", ErrExpectation, len(els), *st.Count)
	}
	return nil
}

func (r *Runner) handleExpectTitle(ctx context.Context, st Step, _ []session.CallOption) error {
	title, err := r.s.Title(ctx)
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(title); got != st.Text {
		return fmt.Errorf("%w: title is %q, want %q", ErrExpectation, got, st.Text)
	}
	return nil
}

func (r *Runner) handleAcceptAlert(ctx context.Context, _ Step, opts []session.CallOption) error {
	// WaitForAlert accepts the dialog and waits for it to close.
	if !r.s.WaitForAlert(ctx, opts...) {
		return fmt.Errorf("%w: no alert appeared", ErrExpectation)
	}
	return nil
}

// recover_alert is best effort and never fails the scenario.
func (r *Runner) handleRecoverAlert(ctx context.Context, _ Step, _ []session.CallOption) error {
	r.s.RecoverAlert(ctx)
	return nil
}

func (r *Runner) handleSwitchNewest(ctx context.Context, _ Step, opts []session.CallOption) error {
	if !r.s.SwitchToNewest(ctx, opts...) {
		return fmt.Errorf("%w: no window to switch to", ErrExpectation)
	}
	return nil
}

func (r *Runner) handleClickNewWindow(ctx context.Context, st Step, opts []session.CallOption) error {
	switched, err := r.s.SwitchToNewWindowAfter(ctx, func(ctx context.Context) error {
		return r.s.Click(ctx, st.loc, opts...)
	}, opts...)
	if err != nil {
		return err
	}
	if !switched {
		return fmt.Errorf("%w: no new window opened", ErrExpectation)
	}
	return nil
}

func (r *Runner) handleScroll(ctx context.Context, st Step, opts []session.CallOption) error {
	return r.s.ScrollIntoView(ctx, st.loc, opts...)
}

func (r *Runner) handleHover(ctx context.Context, st Step, opts []session.CallOption) error {
	return r.s.Hover(ctx, st.loc, opts...)
}
