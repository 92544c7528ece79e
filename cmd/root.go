// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/observability"
)

type contextKey int

const configKey contextKey = iota

// rootOptions holds the persistent flags. Flags override the config file and the
// environment only when set explicitly.
type rootOptions struct {
	cfgFile  string
	browser  string
	baseURL  string
	headless bool
	timeout  time.Duration
}

// NewRootCommand builds the command tree. Each call returns an independent tree, so
// tests can execute commands without sharing flag state.
func NewRootCommand() *cobra.Command {
	return newRootCommand(launchCDP)
}

func newRootCommand(launch launcher) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "pagesync",
		Short:         "pagesync plays browser scenarios with dialog-aware waits.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, opts.cfgFile); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return fmt.Errorf("failed to load or validate config: %w", err)
			}
			if err := applyFlagOverrides(cmd, opts, cfg); err != nil {
				observability.InitializeLogger(fallbackLoggerConfig())
				return err
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Info("Starting pagesync", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	flags.StringVar(&opts.browser, "browser", "", "browser to drive: chrome, chromium or edge")
	flags.StringVar(&opts.baseURL, "base-url", "", "base URL that relative open targets resolve against")
	flags.BoolVar(&opts.headless, "headless", true, "run the browser without a window")
	flags.DurationVar(&opts.timeout, "timeout", 0, "default wait timeout")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd(launch))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree under ctx, which main ties to SIGINT and SIGTERM.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger := observability.GetLogger()
		if errors.Is(err, context.Canceled) {
			logger.Warn("Command aborted.")
		} else {
			logger.Error("Command execution failed", zap.Error(err))
		}
		observability.Sync()
		return err
	}
	observability.Sync()
	return nil
}

// initializeConfig points viper at the config file and the environment. A missing
// default config file is fine; a missing explicit one is not.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	config.ConfigureEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, opts *rootOptions, cfg config.Interface) error {
	flags := cmd.Flags()
	if flags.Changed("browser") {
		cfg.SetBrowserName(opts.browser)
	}
	if flags.Changed("base-url") {
		cfg.SetBrowserBaseURL(opts.baseURL)
	}
	if flags.Changed("headless") {
		cfg.SetBrowserHeadless(opts.headless)
	}
	if flags.Changed("timeout") {
		cfg.SetWaitTimeout(opts.timeout)
	}
	if c, ok := cfg.(*config.Config); ok {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid flag value: %w", err)
		}
	}
	return nil
}

func fallbackLoggerConfig() config.LoggerConfig {
	return config.LoggerConfig{Level: "info", Format: "console", ServiceName: "pagesync"}
}

// configFromContext returns the config stored by the root command.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
