// internal/browser/session/errors.go
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/wait"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("element not found")

// NotFoundError reports that a required element never appeared.
type NotFoundError struct {
	Locator driver.Locator
	Timeout time.Duration
	// Reason is the last "not yet" explanation seen by the poll, if any.
	Reason error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("element %s not found within %s", e.Locator, e.Timeout)
	if e.Reason != nil && !errors.Is(e.Reason, driver.ErrNoSuchElement) {
		msg += ": " + e.Reason.Error()
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.Reason }

// Outcome classifies the result of a facade operation.
type Outcome int

const (
	OutcomeValue Outcome = iota
	OutcomeNotFound
	OutcomeTimedOut
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValue:
		return "value"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

// OutcomeOf maps an error returned by this package onto an Outcome. Anything that is
// neither a missing element nor an expired wait is a driver fault.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeValue
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, wait.ErrTimedOut):
		return OutcomeTimedOut
	default:
		return OutcomeFailed
	}
}

// notFound converts a presence-poll timeout into a NotFoundError; any other error is
// returned as is.
func notFound(loc driver.Locator, spec wait.Spec, err error) error {
	var te *wait.TimeoutError
	if !errors.As(err, &te) {
		return err
	}
	return &NotFoundError{Locator: loc, Timeout: spec.Timeout, Reason: wait.Reason(te.LastErr)}
}
