// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/driver"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Wait() config.WaitConfig {
	args := m.Called()
	return args.Get(0).(config.WaitConfig)
}

func (m *MockConfig) Metrics() config.MetricsConfig {
	args := m.Called()
	return args.Get(0).(config.MetricsConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool) {
	m.Called(b)
}

func (m *MockConfig) SetBrowserName(name string) {
	m.Called(name)
}

func (m *MockConfig) SetBrowserBaseURL(u string) {
	m.Called(u)
}

func (m *MockConfig) SetWaitTimeout(d time.Duration) {
	m.Called(d)
}

// -- Driver Mock --

// MockDriver mocks the driver.Driver interface. Use it when a test needs to script an
// exact sequence of driver answers; the fakedriver package covers stateful pages.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) FindOne(ctx context.Context, loc driver.Locator) (driver.Element, error) {
	args := m.Called(ctx, loc)
	el, _ := args.Get(0).(driver.Element)
	return el, args.Error(1)
}

func (m *MockDriver) FindAll(ctx context.Context, loc driver.Locator) ([]driver.Element, error) {
	args := m.Called(ctx, loc)
	els, _ := args.Get(0).([]driver.Element)
	return els, args.Error(1)
}

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockDriver) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) Back(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) Forward(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) WindowHandles(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	handles, _ := args.Get(0).([]string)
	return handles, args.Error(1)
}

func (m *MockDriver) CurrentWindow(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) SwitchToWindow(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockDriver) DialogPresent(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockDriver) DialogAccept(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) DialogDismiss(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDriver) DialogText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) ExecuteScript(ctx context.Context, script string, scriptArgs ...any) (any, error) {
	args := m.Called(ctx, script, scriptArgs)
	return args.Get(0), args.Error(1)
}

func (m *MockDriver) MoveTo(ctx context.Context, el driver.Element) error {
	args := m.Called(ctx, el)
	return args.Error(0)
}

func (m *MockDriver) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// -- Element Mock --

// MockElement mocks the driver.Element interface.
type MockElement struct {
	mock.Mock
}

func (m *MockElement) Click(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockElement) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockElement) SendKeys(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *MockElement) Text(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElement) IsDisplayed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElement) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// -- Recorder Mock --

// MockRecorder mocks the session telemetry sink.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveOperation(op, outcome string, elapsed time.Duration) {
	m.Called(op, outcome, elapsed)
}

func (m *MockRecorder) IncInterruption(op string) {
	m.Called(op)
}

func (m *MockRecorder) IncRecovery(result string) {
	m.Called(result)
}

func (m *MockRecorder) IncWindowSwitch(result string) {
	m.Called(result)
}
