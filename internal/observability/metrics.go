// File: internal/observability/metrics.go
package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const namespace = "pagesync"

// Metrics records synchronization telemetry: how long facade operations take and how
// they end, how often dialogs interrupt calls, and how recoveries and window switches
// turn out. It satisfies the session package's Recorder.
type Metrics struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	operationDuration *prometheus.HistogramVec
	interruptions     *prometheus.CounterVec
	recoveries        *prometheus.CounterVec
	windowSwitches    *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry so several sessions in one
// process (and parallel tests) never collide.
func NewMetrics(logger *zap.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		logger:   logger.Named("metrics"),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of facade operations, including polling, by outcome.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op", "outcome"}),
		interruptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Driver calls pre-empted by a native dialog.",
		}, []string{"op"}),
		recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_recoveries_total",
			Help:      "Alert recovery attempts by result.",
		}, []string{"result"}),
		windowSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_switches_total",
			Help:      "Window focus switches by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	m.operationDuration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) IncInterruption(op string) {
	m.interruptions.WithLabelValues(op).Inc()
}

func (m *Metrics) IncRecovery(result string) {
	m.recoveries.WithLabelValues(result).Inc()
}

func (m *Metrics) IncWindowSwitch(result string) {
	m.windowSwitches.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile dumps every collector in the text exposition format, suitable for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	m.logger.Info("Wrote metrics.", zap.String("path", path))
	return nil
}
