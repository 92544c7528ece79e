// -- cmd/run.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/browser/session"
	"github.com/xkilldash9x/pagesync/internal/config"
	"github.com/xkilldash9x/pagesync/internal/driver"
	"github.com/xkilldash9x/pagesync/internal/driver/cdp"
	"github.com/xkilldash9x/pagesync/internal/observability"
	"github.com/xkilldash9x/pagesync/internal/scenario"
)

const shutdownTimeout = 15 * time.Second

// launcher starts the browser a scenario runs against.
type launcher func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (driver.Driver, error)

func launchCDP(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (driver.Driver, error) {
	return cdp.Launch(ctx, cfg, logger)
}

func newRunCmd(launch launcher) *cobra.Command {
	var metricsFile string
	runCmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Runs a scenario file against a fresh browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if metricsFile == "" {
				metricsFile = cfg.Metrics().File
			}
			return runScenario(ctx, cfg, args[0], metricsFile, launch, cmd.OutOrStdout())
		},
	}
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format after the run")
	return runCmd
}

func runScenario(ctx context.Context, cfg config.Interface, path, metricsFile string, launch launcher, out io.Writer) error {
	logger := observability.GetLogger()

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithConfig(session.ConfigFrom(cfg)),
		session.WithID(runID),
	}
	var metrics *observability.Metrics
	if cfg.Metrics().Enabled || metricsFile != "" {
		metrics = observability.NewMetrics(logger)
		sessionOpts = append(sessionOpts, session.WithRecorder(metrics))
	}

	drv, err := launch(ctx, cfg.Browser(), logger)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := drv.Close(closeCtx); err != nil {
			logger.Warn("Failed to close browser cleanly.", zap.Error(err))
		}
	}()

	s := session.New(drv, sessionOpts...)
	report, runErr := scenario.NewRunner(s, logger).Run(ctx, sc)
	printReport(out, sc, report, runErr)

	if metrics != nil && metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			logger.Warn("Failed to write metrics file.", zap.String("path", metricsFile), zap.Error(err))
		} else {
			logger.Info("Metrics written.", zap.String("path", metricsFile))
		}
	}
	return runErr
}

// printReport writes one line per executed step followed by a summary.
func printReport(out io.Writer, sc *scenario.Scenario, report *scenario.Report, runErr error) {
	if report == nil {
		return
	}
	name := sc.Name
	if name == "" {
		name = "scenario"
	}
	for _, res := range report.Results {
		status := "ok"
		if res.Err != nil {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%3d  %-4s  %-18s %s\n", res.Index, status, res.Action, res.Elapsed.Round(time.Millisecond))
	}
	switch {
	case report.Passed():
		fmt.Fprintf(out, "%s: passed (%d steps)\n", name, report.Total)
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintf(out, "%s: aborted after %d of %d steps\n", name, len(report.Results), report.Total)
	default:
		fmt.Fprintf(out, "%s: failed: %v\n", name, runErr)
	}
}
