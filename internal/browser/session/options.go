// internal/browser/session/options.go
package session

import (
	"time"

	"github.com/xkilldash9x/pagesync/internal/wait"
)

// CallOption overrides the timing of a single facade call.
type CallOption func(*wait.Spec)

// WithTimeout bounds the call by d instead of the session default.
func WithTimeout(d time.Duration) CallOption {
	return func(s *wait.Spec) { s.Timeout = d }
}

// WithInterval polls every d instead of the session default.
func WithInterval(d time.Duration) CallOption {
	return func(s *wait.Spec) { s.Interval = d }
}

// spec resolves the options on top of base. The base timeout applies unless a
// call overrides it; the session poll interval always applies unless overridden.
func (s *Session) spec(base time.Duration, opts []CallOption) wait.Spec {
	sp := wait.Spec{Timeout: base, Interval: s.cfg.Wait.Interval}
	for _, opt := range opts {
		opt(&sp)
	}
	return sp.Normalize()
}
