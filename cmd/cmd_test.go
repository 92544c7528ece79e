// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/driver/fakedriver"
	"github.com/xkilldash9x/pagesync/internal/scenario"
)

// fakeLauncher hands out a prepared fake driver and remembers the browser config
// it was asked to launch.
type fakeLauncher struct {
	drv *fakedriver.Driver
	got config.BrowserConfig
	err error
}

func (l *fakeLauncher) launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (driver.Driver, error) {
	l.got = cfg
	if l.err != nil {
		return nil, l.err
	}
	return l.drv, nil
}

// executeCommand runs a fresh command tree from an empty working directory so a
// stray ./config.yaml cannot leak in.
func executeCommand(t *testing.T, launch launcher, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	rootCmd := newRootCommand(launch)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const loginScenario = `
name: login
steps:
  - action: open
    url: /login
  - action: type
    locator: id=user
    text: alice
  - action: click
    locator: "css=button[type=submit]"
  - action: wait_url
    text: app.test/login
`

func loginDriver() (*fakedriver.Driver, *fakedriver.Element) {
	drv := fakedriver.New()
	user := fakedriver.NewElement("")
	drv.Add(driver.ID("user"), user)
	drv.Add(driver.CSS("button[type=submit]"), fakedriver.NewElement("Sign in"))
	return drv, user
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := executeCommand(t, (&fakeLauncher{}).launch, "--version")
	require.NoError(t, err)
	assert.Equal(t, Version+"\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, err := executeCommand(t, (&fakeLauncher{}).launch, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "pagesync "+Version)
}

func TestRootCmd_NoArgs(t *testing.T) {
	out, err := executeCommand(t, (&fakeLauncher{}).launch)
	require.NoError(t, err)
	assert.Contains(t, out, "pagesync plays browser scenarios with dialog-aware waits.")
}

func TestRunCmd_RequiredArgs(t *testing.T) {
	_, err := executeCommand(t, (&fakeLauncher{}).launch, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s), received 0")
}

func TestRunCmd_Scenario(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := writeFile(t, dir, "login.yaml", loginScenario)
	metricsPath := filepath.Join(dir, "pagesync.prom")
	drv, user := loginDriver()
	l := &fakeLauncher{drv: drv}

	out, err := executeCommand(t, l.launch,
		"--base-url", "https://app.test", "run", scenarioPath, "--metrics-file", metricsPath)
	require.NoError(t, err)

	assert.Contains(t, out, "login: passed (4 steps)")
	assert.Equal(t, "alice", user.Value())
	assert.Equal(t, "https://app.test", l.got.BaseURL)
	assert.True(t, drv.Closed())

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "pagesync_operation_duration_seconds")
}

func TestRunCmd_StepFailure(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := writeFile(t, dir, "broken.yaml", `
name: broken
steps:
  - action: click
    locator: id=nowhere
    timeout: 50ms
`)
	l := &fakeLauncher{drv: fakedriver.New()}

	out, err := executeCommand(t, l.launch, "run", scenarioPath)
	require.Error(t, err)

	var serr *scenario.StepError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Index)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "broken: failed: step 1 (click id=nowhere, timeout 50ms)")
	assert.True(t, l.drv.Closed())
}

func TestRunCmd_LaunchFailure(t *testing.T) {
	scenarioPath := writeFile(t, t.TempDir(), "s.yaml", "steps:\n  - action: refresh\n")
	l := &fakeLauncher{err: assert.AnError}

	_, err := executeCommand(t, l.launch, "run", scenarioPath)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to launch browser")
}

func TestConfigFileAndFlagOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "pagesync.yaml", `
browser:
  name: chromium
  headless: true
  base_url: https://from-file.test
wait:
  timeout: 4s
`)
	scenarioPath := writeFile(t, dir, "s.yaml", "steps:\n  - action: refresh\n")
	l := &fakeLauncher{drv: fakedriver.New()}

	_, err := executeCommand(t, l.launch,
		"--config", configPath, "--browser", "edge", "--headless=false", "run", scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "edge", l.got.Name)
	assert.False(t, l.got.Headless)
	assert.Equal(t, "https://from-file.test", l.got.BaseURL)
}

func TestConfigErrors(t *testing.T) {
	t.Run("MissingExplicitFile", func(t *testing.T) {
		_, err := executeCommand(t, (&fakeLauncher{}).launch, "--config", "/nonexistent/pagesync.yaml", "version")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize configuration")
	})

	t.Run("InvalidValues", func(t *testing.T) {
		configPath := writeFile(t, t.TempDir(), "bad.yaml", "wait:\n  timeout: 100ms\n  poll_interval: 1s\n")
		_, err := executeCommand(t, (&fakeLauncher{}).launch, "--config", configPath, "version")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load or validate config")
	})

	t.Run("InvalidFlag", func(t *testing.T) {
		_, err := executeCommand(t, (&fakeLauncher{}).launch, "--browser", "netscape", "version")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid flag value")
	})
}

func TestConfigFromContext(t *testing.T) {
	_, err := configFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := configFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestCommandTree(t *testing.T) {
	rootCmd := NewRootCommand()
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"run", "version"})

	var run *cobra.Command
	for _, c := range rootCmd.Commands() {
		if c.Name() == "run" {
			run = c
		}
	}
	require.NotNil(t, run)
	assert.NotNil(t, run.Flags().Lookup("metrics-file"))
}
