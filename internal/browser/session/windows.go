// internal/browser/session/windows.go
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/wait"
)

// Window switch results reported to the Recorder.
const (
	switchDone   = "switched"
	switchNone   = "no_new_window"
	switchFailed = "failed"
)

// WindowHandles snapshots the open windows in driver order.
func (s *Session) WindowHandles(ctx context.Context) ([]string, error) {
	return Guard(ctx, s, "window_handles", s.drv.WindowHandles)
}

// SwitchToNewest focuses the most recently created window, which is the last handle the
// driver reports. It is best effort: on any failure focus stays where it was and the
// result is false.
func (s *Session) SwitchToNewest(ctx context.Context, opts ...CallOption) bool {
	spec := s.spec(s.cfg.NewWindowTimeout, opts)
	handles, err := Guard(ctx, s, "switch_to_newest", func(ctx context.Context) ([]string, error) {
		return wait.Until(ctx, spec, func(ctx context.Context) ([]string, bool, error) {
			hs, err := s.drv.WindowHandles(ctx)
			return hs, err == nil && len(hs) > 0, err
		})
	})
	if err != nil {
		s.logger.Warn("No window to switch to.", zap.Duration("timeout", spec.Timeout), zap.Error(err))
		s.rec.IncWindowSwitch(switchFailed)
		return false
	}
	return s.focus(ctx, handles[len(handles)-1])
}

// SwitchToNewRelativeTo waits for a window that is not in prior and focuses it. When
// several appeared, the last one reported wins. It returns false, without switching,
// if nothing new shows up within the timeout.
func (s *Session) SwitchToNewRelativeTo(ctx context.Context, prior []string, opts ...CallOption) bool {
	spec := s.spec(s.cfg.NewWindowTimeout, opts)
	known := make(map[string]struct{}, len(prior))
	for _, h := range prior {
		known[h] = struct{}{}
	}

	fresh, err := Guard(ctx, s, "switch_to_new_window", func(ctx context.Context) ([]string, error) {
		return wait.Until(ctx, spec, func(ctx context.Context) ([]string, bool, error) {
			hs, err := s.drv.WindowHandles(ctx)
			if err != nil {
				return nil, false, err
			}
			diff := newHandles(hs, known)
			return diff, len(diff) > 0, nil
		})
	})
	if err != nil {
		if OutcomeOf(err) == OutcomeTimedOut {
			s.logger.Debug("No new window appeared.", zap.Strings("prior", prior), zap.Duration("timeout", spec.Timeout))
			s.rec.IncWindowSwitch(switchNone)
		} else {
			s.logger.Warn("Failed while waiting for a new window.", zap.Error(err))
			s.rec.IncWindowSwitch(switchFailed)
		}
		return false
	}
	return s.focus(ctx, fresh[len(fresh)-1])
}

// SwitchToNewWindowAfter snapshots the open windows, runs action and then switches to
// whichever window the action opened. The bool reports whether a switch happened.
func (s *Session) SwitchToNewWindowAfter(ctx context.Context, action func(ctx context.Context) error, opts ...CallOption) (bool, error) {
	prior, err := s.WindowHandles(ctx)
	if err != nil {
		return false, err
	}
	if err := action(ctx); err != nil {
		return false, err
	}
	return s.SwitchToNewRelativeTo(ctx, prior, opts...), nil
}

func (s *Session) focus(ctx context.Context, handle string) bool {
	start := time.Now()
	err := guardDo(ctx, s, "switch_to_window", func(ctx context.Context) error {
		return s.drv.SwitchToWindow(ctx, handle)
	})
	if err != nil {
		s.logger.Warn("Could not switch window, keeping current focus.", zap.String("handle", handle), zap.Error(err))
		s.rec.IncWindowSwitch(switchFailed)
		return false
	}
	s.logger.Debug("Switched window.", zap.String("handle", handle), zap.Duration("elapsed", time.Since(start)))
	s.rec.IncWindowSwitch(switchDone)
	return true
}

// newHandles returns the handles absent from known, in driver order.
func newHandles(current []string, known map[string]struct{}) []string {
	var out []string
	for _, h := range current {
		if _, ok := known[h]; !ok {
			out = append(out, h)
		}
	}
	return out
}
