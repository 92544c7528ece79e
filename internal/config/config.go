// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Wait() WaitConfig
	Metrics() MetricsConfig

	// Browser Setters
	SetBrowserHeadless(bool)
	SetBrowserName(string)
	SetBrowserBaseURL(string)

	// Wait Setters
	SetWaitTimeout(time.Duration)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	WaitCfg    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	MetricsCfg MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Wait() WaitConfig       { return c.WaitCfg }
func (c *Config) Metrics() MetricsConfig { return c.MetricsCfg }

// -- Setters (CLI flag overrides) --

func (c *Config) SetBrowserHeadless(b bool)      { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserName(name string)     { c.BrowserCfg.Name = name }
func (c *Config) SetBrowserBaseURL(u string)     { c.BrowserCfg.BaseURL = u }
func (c *Config) SetWaitTimeout(d time.Duration) { c.WaitCfg.Timeout = d }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// Supported browser names.
const (
	BrowserChrome   = "chrome"
	BrowserChromium = "chromium"
	BrowserEdge     = "edge"
)

// BrowserConfig describes the browser session handed to the synchronization layer.
type BrowserConfig struct {
	Name            string        `mapstructure:"name" yaml:"name"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	Width           int           `mapstructure:"width" yaml:"width"`
	Height          int           `mapstructure:"height" yaml:"height"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
}

// WaitConfig holds the process-wide polling defaults. Individual calls may override
// the timeout and interval.
type WaitConfig struct {
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	AlertTimeout     time.Duration `mapstructure:"alert_timeout" yaml:"alert_timeout"`
	AlertWait        time.Duration `mapstructure:"alert_wait" yaml:"alert_wait"`
	NewWindowTimeout time.Duration `mapstructure:"new_window_timeout" yaml:"new_window_timeout"`
}

// MetricsConfig controls the prometheus collectors.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagesync")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.name", BrowserChrome)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.width", 1920)
	v.SetDefault("browser.height", 1080)
	v.SetDefault("browser.base_url", "")
	v.SetDefault("browser.page_load_timeout", "30s")

	// -- Wait --
	v.SetDefault("wait.timeout", "10s")
	v.SetDefault("wait.poll_interval", "250ms")
	v.SetDefault("wait.alert_timeout", "2s")
	v.SetDefault("wait.alert_wait", "5s")
	v.SetDefault("wait.new_window_timeout", "5s")

	// -- Metrics --
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.file", "")
}

// EnvPrefix namespaces environment overrides, e.g. PAGESYNC_WAIT_TIMEOUT=20s.
const EnvPrefix = "PAGESYNC"

// ConfigureEnv makes every known key overridable from the environment.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) expandPaths() error {
	paths := map[string]*string{
		"logger.log_file":   &c.LoggerCfg.LogFile,
		"browser.exec_path": &c.BrowserCfg.ExecPath,
		"metrics.file":      &c.MetricsCfg.File,
	}
	for key, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("could not expand %s %q: %w", key, *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.WaitCfg.Validate(); err != nil {
		return fmt.Errorf("wait configuration invalid: %w", err)
	}
	if c.MetricsCfg.File != "" && !c.MetricsCfg.Enabled {
		return fmt.Errorf("metrics.file is set but metrics.enabled is false")
	}
	return nil
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	switch strings.ToLower(b.Name) {
	case BrowserChrome, BrowserChromium, BrowserEdge:
	case "":
		return fmt.Errorf("name is required")
	default:
		return fmt.Errorf("unsupported browser %q (supported: chrome, chromium, edge)", b.Name)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if b.PageLoadTimeout <= 0 {
		return fmt.Errorf("page_load_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the polling settings.
func (w *WaitConfig) Validate() error {
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"timeout", w.Timeout},
		{"poll_interval", w.PollInterval},
		{"alert_timeout", w.AlertTimeout},
		{"alert_wait", w.AlertWait},
		{"new_window_timeout", w.NewWindowTimeout},
	}
	for _, f := range durations {
		if f.d <= 0 {
			return fmt.Errorf("%s must be a positive duration", f.name)
		}
	}
	if w.PollInterval >= w.Timeout {
		return fmt.Errorf("poll_interval (%s) must be shorter than timeout (%s)", w.PollInterval, w.Timeout)
	}
	return nil
}
