// internal/wait/wait.go
// Package wait implements bounded polling. A condition is evaluated immediately and then
// once per interval until it is satisfied, it fails with a real error, or the deadline
// passes. There is no unbounded wait anywhere in this package.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Defaults applied when a Spec leaves a field unset.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultInterval = 250 * time.Millisecond
)

var (
	// ErrNotYet is the "condition not yet true" signal. Conditions may return it (or an
	// error wrapping it) instead of ok=false to attach a reason to the next retry.
	ErrNotYet = errors.New("condition not yet satisfied")
	// ErrTimedOut matches every *TimeoutError.
	ErrTimedOut = errors.New("timed out")
)

// Spec bounds a single poll.
type Spec struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Normalize fills unset fields with the package defaults and caps the interval at the
// timeout so at least two evaluations happen.
func (s Spec) Normalize() Spec {
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.Interval > s.Timeout {
		s.Interval = s.Timeout
	}
	return s
}

// WithTimeout returns a copy of s with the timeout replaced.
func (s Spec) WithTimeout(d time.Duration) Spec {
	s.Timeout = d
	return s
}

// WithInterval returns a copy of s with the poll interval replaced.
func (s Spec) WithInterval(d time.Duration) Spec {
	s.Interval = d
	return s
}

// TimeoutError reports a poll whose deadline elapsed. LastErr is the most recent
// not-yet reason, when the condition supplied one.
type TimeoutError struct {
	Timeout  time.Duration
	Attempts int
	LastErr  error
}

func (e *TimeoutError) Error() string {
	if e.LastErr != nil && e.LastErr != ErrNotYet {
		return fmt.Sprintf("timed out after %v (%d attempts): %v", e.Timeout, e.Attempts, e.LastErr)
	}
	return fmt.Sprintf("timed out after %v (%d attempts)", e.Timeout, e.Attempts)
}

// Is makes errors.Is(err, ErrTimedOut) true for every TimeoutError.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimedOut }

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// Condition reports whether the awaited state holds. ok=false with a nil error, or an
// error wrapping ErrNotYet, means "try again". Any other error stops the poll.
type Condition[T any] func(ctx context.Context) (value T, ok bool, err error)

// Until polls cond according to spec and returns the first satisfying value.
// On deadline it returns a *TimeoutError; a non-retryable condition error is returned
// unchanged; context cancellation returns the context error.
func Until[T any](ctx context.Context, spec Spec, cond Condition[T]) (T, error) {
	var zero T
	spec = spec.Normalize()

	start := time.Now()
	deadline := start.Add(spec.Timeout)
	attempts := 0
	var lastErr error

	for {
		attempts++
		v, ok, err := cond(ctx)
		switch {
		case err != nil && !errors.Is(err, ErrNotYet):
			return zero, err
		case err == nil && ok:
			return v, nil
		case err != nil:
			lastErr = err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, &TimeoutError{Timeout: spec.Timeout, Attempts: attempts, LastErr: lastErr}
		}

		// The final sleep is shortened so the last evaluation lands on the deadline.
		sleep := spec.Interval
		if sleep > remaining {
			sleep = remaining
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// True polls a boolean predicate. It is Until without a value.
func True(ctx context.Context, spec Spec, pred func(ctx context.Context) (bool, error)) error {
	_, err := Until(ctx, spec, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := pred(ctx)
		return struct{}{}, ok, err
	})
	return err
}

type notYetError struct{ reason error }

func (e *notYetError) Error() string        { return ErrNotYet.Error() + ": " + e.reason.Error() }
func (e *notYetError) Is(target error) bool { return target == ErrNotYet }
func (e *notYetError) Unwrap() error        { return e.reason }

// NotYet wraps a reason so it is treated as a retryable condition result. The result
// matches ErrNotYet and unwraps to reason.
func NotYet(reason error) error {
	if reason == nil {
		return ErrNotYet
	}
	return &notYetError{reason: reason}
}

// Reason strips the not-yet marker from err, returning the underlying cause or nil.
func Reason(err error) error {
	var ny *notYetError
	if errors.As(err, &ny) {
		return ny.reason
	}
	if errors.Is(err, ErrNotYet) {
		return nil
	}
	return err
}
