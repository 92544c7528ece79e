// internal/browser/session/session.go
// Package session is the synchronization and recovery layer between a workflow and a
// raw browser driver. Every public operation is a bounded poll, guarded against
// native dialogs that pre-empt driver calls, and returns a well-defined outcome.
package session

import (
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/wait"
)

// Config holds the timing defaults applied when a call does not override them.
type Config struct {
	Wait             wait.Spec
	AlertTimeout     time.Duration
	AlertWait        time.Duration
	NewWindowTimeout time.Duration
	// BaseURL resolves relative targets passed to Open.
	BaseURL string
}

// DefaultConfig mirrors the defaults in the config package.
func DefaultConfig() Config {
	return Config{
		Wait:             wait.Spec{Timeout: wait.DefaultTimeout, Interval: wait.DefaultInterval},
		AlertTimeout:     2 * time.Second,
		AlertWait:        5 * time.Second,
		NewWindowTimeout: 5 * time.Second,
	}
}

// ConfigFrom derives session timing from the application configuration.
func ConfigFrom(cfg config.Interface) Config {
	w := cfg.Wait()
	return Config{
		Wait:             wait.Spec{Timeout: w.Timeout, Interval: w.PollInterval},
		AlertTimeout:     w.AlertTimeout,
		AlertWait:        w.AlertWait,
		NewWindowTimeout: w.NewWindowTimeout,
		BaseURL:          cfg.Browser().BaseURL,
	}
}

// Recorder receives operation telemetry. The observability package provides the
// prometheus implementation.
type Recorder interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
	IncInterruption(op string)
	IncRecovery(result string)
	IncWindowSwitch(result string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) IncInterruption(string)                         {}
func (nopRecorder) IncRecovery(string)                             {}
func (nopRecorder) IncWindowSwitch(string)                         {}

// Session binds one driver to the synchronization policies. Like the driver
// underneath it, a Session belongs to a single goroutine.
type Session struct {
	drv    driver.Driver
	logger *zap.Logger
	cfg    Config
	rec    Recorder
	id     string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The session names it "session".
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithConfig replaces the timing defaults.
func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithRecorder attaches a telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.rec = r }
}

// WithID labels every log line with the given session id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New wraps drv. Unset timing fields fall back to DefaultConfig.
func New(drv driver.Driver, opts ...Option) *Session {
	s := &Session{
		drv:    drv,
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		rec:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	def := DefaultConfig()
	s.cfg.Wait = s.cfg.Wait.Normalize()
	if s.cfg.AlertTimeout <= 0 {
		s.cfg.AlertTimeout = def.AlertTimeout
	}
	if s.cfg.AlertWait <= 0 {
		s.cfg.AlertWait = def.AlertWait
	}
	if s.cfg.NewWindowTimeout <= 0 {
		s.cfg.NewWindowTimeout = def.NewWindowTimeout
	}
	if s.rec == nil {
		s.rec = nopRecorder{}
	}
	s.logger = s.logger.Named("session")
	if s.id != "" {
		s.logger = s.logger.With(zap.String("session_id", s.id))
	}
	return s
}

// Driver exposes the underlying driver for calls the facade does not cover.
func (s *Session) Driver() driver.Driver { return s.drv }

// ID returns the session id, if one was assigned.
func (s *Session) ID() string { return s.id }

// Config returns the effective timing defaults.
func (s *Session) Config() Config { return s.cfg }
