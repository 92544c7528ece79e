// internal/observability/metrics_test.go
package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagesync/internal/browser/session"
)

var _ session.Recorder = (*Metrics)(nil)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(zap.NewNop())

	m.IncInterruption("click")
	m.IncInterruption("click")
	m.IncInterruption("locate")
	m.IncRecovery("handled")
	m.IncWindowSwitch("switched")
	m.IncWindowSwitch("no_new_window")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.interruptions.WithLabelValues("click")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.interruptions.WithLabelValues("locate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recoveries.WithLabelValues("handled")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.windowSwitches))

	expected := `
# HELP pagesync_alert_recoveries_total Alert recovery attempts by result.
# TYPE pagesync_alert_recoveries_total counter
pagesync_alert_recoveries_total{result="handled"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "pagesync_alert_recoveries_total"))
}

func TestMetrics_OperationHistogram(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.ObserveOperation("locate", "value", 120*time.Millisecond)
	m.ObserveOperation("locate", "not_found", 10*time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics(zap.NewNop())
	b := NewMetrics(zap.NewNop())
	a.IncRecovery("failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.recoveries.WithLabelValues("failed")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.recoveries))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics(zap.NewNop())
	m.IncInterruption("type")

	path := filepath.Join(t.TempDir(), "pagesync.prom")
	require.NoError(t, m.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `pagesync_interruptions_total{op="type"} 1`)

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.ErrorContains(t, err, "writing metrics to")
}
