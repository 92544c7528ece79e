// internal/browser/session/alerts.go
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/wait"
)

// Recovery results reported to the Recorder.
const (
	recoveryHandled = "handled"
	recoveryFailed  = "failed"
)

// RecoverAlert clears a native dialog if one is open. It accepts the dialog, falls
// back to dismissing it, then waits (bounded by the alert timeout) for the browser to
// report it gone. It never fails: the result says whether a dialog was handled.
// With no dialog open it only queries presence and records nothing.
func (s *Session) RecoverAlert(ctx context.Context) bool {
	present, err := s.drv.DialogPresent(ctx)
	if err != nil {
		s.logger.Debug("Could not query dialog state during recovery.", zap.Error(err))
		return false
	}
	if !present {
		return false
	}
	if !s.handleDialog(ctx) {
		s.rec.IncRecovery(recoveryFailed)
		return false
	}
	if !s.WaitUntilNoAlert(ctx, s.cfg.AlertTimeout) {
		s.logger.Warn("Dialog still reported after handling.", zap.Duration("timeout", s.cfg.AlertTimeout))
	}
	s.rec.IncRecovery(recoveryHandled)
	return true
}

// handleDialog accepts the open dialog, or dismisses it when accept is refused.
func (s *Session) handleDialog(ctx context.Context) bool {
	text, _ := s.drv.DialogText(ctx)

	acceptErr := s.drv.DialogAccept(ctx)
	if acceptErr == nil {
		s.logger.Info("Accepted native dialog.", zap.String("text", text))
		return true
	}
	if errors.Is(acceptErr, driver.ErrNoAlert) {
		s.logger.Debug("Dialog closed before it could be accepted.")
		return false
	}

	dismissErr := s.drv.DialogDismiss(ctx)
	if dismissErr == nil {
		s.logger.Info("Dismissed native dialog after accept failed.",
			zap.String("text", text), zap.NamedError("accept_error", acceptErr))
		return true
	}
	s.logger.Warn("Dialog recovery failed.",
		zap.String("text", text),
		zap.NamedError("accept_error", acceptErr),
		zap.NamedError("dismiss_error", dismissErr))
	return false
}

// WaitUntilNoAlert polls until no dialog is reported, for at most timeout.
func (s *Session) WaitUntilNoAlert(ctx context.Context, timeout time.Duration) bool {
	spec := wait.Spec{Timeout: timeout, Interval: s.cfg.Wait.Interval}
	err := wait.True(ctx, spec, func(ctx context.Context) (bool, error) {
		present, err := s.drv.DialogPresent(ctx)
		return !present, err
	})
	if err != nil && !errors.Is(err, wait.ErrTimedOut) {
		s.logger.Debug("Stopped waiting for dialog to close.", zap.Error(err))
	}
	return err == nil
}

// WaitForAlert waits for a dialog to appear, for example after an action that may ask
// for confirmation, and accepts it. No dialog within the timeout is the common case
// and returns false.
func (s *Session) WaitForAlert(ctx context.Context, opts ...CallOption) bool {
	spec := s.spec(s.cfg.AlertWait, opts)
	start := time.Now()
	err := wait.True(ctx, spec, func(ctx context.Context) (bool, error) {
		return s.drv.DialogPresent(ctx)
	})
	if err != nil {
		if !errors.Is(err, wait.ErrTimedOut) {
			s.logger.Debug("Stopped waiting for a dialog.", zap.Error(err))
		}
		s.rec.ObserveOperation("wait_for_alert", OutcomeTimedOut.String(), time.Since(start))
		return false
	}
	handled := s.handleDialog(ctx)
	if handled {
		s.WaitUntilNoAlert(ctx, s.cfg.AlertTimeout)
	}
	s.rec.ObserveOperation("wait_for_alert", OutcomeValue.String(), time.Since(start))
	return handled
}

// AlertText returns the message of the open dialog, or driver.ErrNoAlert.
func (s *Session) AlertText(ctx context.Context) (string, error) {
	return s.drv.DialogText(ctx)
}
