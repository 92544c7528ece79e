// internal/browser/session/session_test.go
package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/driver/fakedriver"
	"github.com/xkilldash9x/pagesync/internal/wait"
)

func TestNew_FillsDefaults(t *testing.T) {
	s := New(fakedriver.New(), WithConfig(Config{}), WithRecorder(nil))

	cfg := s.Config()
	assert.Equal(t, wait.DefaultTimeout, cfg.Wait.Timeout)
	assert.Equal(t, wait.DefaultInterval, cfg.Wait.Interval)
	assert.Equal(t, 2*time.Second, cfg.AlertTimeout)
	assert.Equal(t, 5*time.Second, cfg.AlertWait)
	assert.Equal(t, 5*time.Second, cfg.NewWindowTimeout)
	assert.NotNil(t, s.rec, "a nil recorder is replaced by a no-op")
}

func TestNew_Options(t *testing.T) {
	drv := fakedriver.New()
	s := New(drv, WithID("run-42"))
	assert.Equal(t, "run-42", s.ID())
	assert.Same(t, drv, s.Driver())
}

func TestConfigFrom(t *testing.T) {
	app := config.NewDefaultConfig()
	app.WaitCfg.Timeout = 7 * time.Second
	app.WaitCfg.PollInterval = 300 * time.Millisecond
	app.BrowserCfg.BaseURL = "https://shop.example.test"

	cfg := ConfigFrom(app)
	assert.Equal(t, wait.Spec{Timeout: 7 * time.Second, Interval: 300 * time.Millisecond}, cfg.Wait)
	assert.Equal(t, 2*time.Second, cfg.AlertTimeout)
	assert.Equal(t, 5*time.Second, cfg.AlertWait)
	assert.Equal(t, 5*time.Second, cfg.NewWindowTimeout)
	assert.Equal(t, "https://shop.example.test", cfg.BaseURL)
}

func TestCallOptions(t *testing.T) {
	s := newTestSession(t, fakedriver.New())

	sp := s.spec(s.cfg.Wait.Timeout, nil)
	assert.Equal(t, time.Second, sp.Timeout)
	assert.Equal(t, testInterval, sp.Interval)

	sp = s.spec(s.cfg.Wait.Timeout, []CallOption{WithTimeout(3 * time.Second), WithInterval(time.Millisecond)})
	assert.Equal(t, 3*time.Second, sp.Timeout)
	assert.Equal(t, time.Millisecond, sp.Interval)

	sp = s.spec(s.cfg.NewWindowTimeout, nil)
	assert.Equal(t, 200*time.Millisecond, sp.Timeout, "each operation family has its own base timeout")
}
