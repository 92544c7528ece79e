// internal/browser/session/guard.go
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

type guardState int

const (
	guardIdle guardState = iota
	guardAttempting
	guardInterrupted
	guardRecovering
	guardRetrying
	guardSucceeded
	guardFailed
)

func (g guardState) String() string {
	switch g {
	case guardIdle:
		return "idle"
	case guardAttempting:
		return "attempting"
	case guardInterrupted:
		return "interrupted"
	case guardRecovering:
		return "recovering"
	case guardRetrying:
		return "retrying"
	case guardSucceeded:
		return "succeeded"
	case guardFailed:
		return "failed"
	}
	return fmt.Sprintf("guardState(%d)", int(g))
}

// guardRun tracks one guarded invocation through its states.
type guardRun struct {
	op     string
	state  guardState
	logger *zap.Logger
}

func (r *guardRun) to(next guardState) {
	r.logger.Debug("Guard transition.",
		zap.String("op", r.op),
		zap.Stringer("from", r.state),
		zap.Stringer("to", next))
	r.state = next
}

// Guard runs fn and, if a native dialog pre-empted it, clears the dialog and runs fn
// exactly once more. The second outcome is final. A dialog that interrupts the retry
// as well is reported as a driver fault wrapping driver.ErrUnexpectedAlert. Errors
// other than an interruption are returned unchanged and never retried.
func Guard[T any](ctx context.Context, s *Session, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	run := &guardRun{op: op, state: guardIdle, logger: s.logger}

	run.to(guardAttempting)
	v, err := fn(ctx)
	if err == nil {
		run.to(guardSucceeded)
		return v, nil
	}
	if !errors.Is(err, driver.ErrUnexpectedAlert) {
		run.to(guardFailed)
		return v, err
	}

	run.to(guardInterrupted)
	s.rec.IncInterruption(op)
	s.logger.Info("Operation interrupted by a native dialog, recovering.", zap.String("op", op))

	run.to(guardRecovering)
	s.RecoverAlert(ctx)

	run.to(guardRetrying)
	v, err = fn(ctx)
	if err == nil {
		run.to(guardSucceeded)
		return v, nil
	}
	run.to(guardFailed)
	if errors.Is(err, driver.ErrUnexpectedAlert) {
		return v, fmt.Errorf("interrupted again after dialog recovery: %w", err)
	}
	return v, err
}

// guardDo is Guard for operations without a result.
func guardDo(ctx context.Context, s *Session, op string, fn func(ctx context.Context) error) error {
	_, err := Guard(ctx, s, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
