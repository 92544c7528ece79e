// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/pagesync/internal/config"
)

// syncBuffer is a goroutine-safe zapcore.WriteSyncer over a bytes.Buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)

func TestNewLogger(t *testing.T) {
	t.Run("ConsoleWithColors", func(t *testing.T) {
		out := &syncBuffer{}
		logger, err := NewLogger(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "pagesync",
			Colors:      config.ColorConfig{Info: "green"},
		}, out)
		require.NoError(t, err)

		logger.Named("session").Info("Located element.")
		logger.Debug("Debug line.")

		s := out.String()
		assert.Contains(t, s, ansi["green"]+"INFO"+ansiReset)
		assert.Contains(t, s, "pagesync.session.")
		assert.Contains(t, s, "Located element.")
		assert.Contains(t, s, "DEBUG", "levels without a color are printed plain")
	})

	t.Run("JSON", func(t *testing.T) {
		out := &syncBuffer{}
		logger, err := NewLogger(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, out)
		require.NoError(t, err)

		logger.Warn("Dialog recovery failed.", zap.String("text", "stuck"))
		logger.Debug("filtered out")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &entry), "exactly one JSON line expected")
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "Dialog recovery failed.", entry["msg"])
		assert.Equal(t, "stuck", entry["text"])
	})

	t.Run("RotatingFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pagesync.log")
		logger, err := NewLogger(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, &syncBuffer{})
		require.NoError(t, err)

		logger.Error("This should go to the file.")
		require.NoError(t, logger.Sync())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"This should go to the file."`)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := NewLogger(config.LoggerConfig{Level: "loud"}, &syncBuffer{})
		assert.ErrorContains(t, err, `invalid log level "loud"`)
	})
}

func TestInitialize(t *testing.T) {
	t.Run("OnlyFirstCallWins", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &syncBuffer{}

		Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "First"}, out)
		first := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", Format: "console", ServiceName: "Second"}, out)
		second := GetLogger()

		assert.Same(t, first, second)
		second.Info("test")
		assert.Contains(t, out.String(), "First")
		assert.NotContains(t, out.String(), "Second")
	})

	t.Run("InvalidLevelFallsBackToInfo", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		out := &syncBuffer{}

		Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, out)
		logger := GetLogger()
		logger.Debug("hidden")
		logger.Info("shown")

		assert.Contains(t, out.String(), "Falling back to info level.")
		assert.Contains(t, out.String(), "shown")
		assert.NotContains(t, out.String(), "hidden")
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("FallbackBeforeInitialization", func(t *testing.T) {
		ResetForTest()
		assert.NotNil(t, GetLogger())
	})

	t.Run("ReturnsGlobalAfterInitialization", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		Initialize(config.LoggerConfig{Level: "info"}, &syncBuffer{})
		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}
