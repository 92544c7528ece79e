// internal/driver/cdp/context_utils.go
package cdp

import (
	"context"
	"time"
)

// CombineContext derives a context from primary, keeping its values (the chromedp
// target), that is also canceled when secondary is done. secondary carries the
// caller's deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext keeps the values of its parent but none of its cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context that carries ctx's values but outlives it. The browser
// process is started under a detached context so that the deadline of the call that
// launched it does not kill it.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
