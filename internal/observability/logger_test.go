// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rowanlabs/gridpager/internal/config"
)

// syncBuffer adapts a bytes.Buffer into the console WriteSyncer so tests read
// output without touching process stdout.
type syncBuffer struct{ bytes.Buffer }

func (b *syncBuffer) Sync() error { return nil }

func initTestLogger(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	var buf syncBuffer
	Initialize(cfg, zapcore.Lock(&buf))
	return &buf
}

func TestInitializeConsoleFormat(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "debug", Format: "console"})

	GetLogger().Info("pagination tick complete")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "pagination tick complete")
	assert.Contains(t, out, "gridpager.")
	assert.Contains(t, out, "\x1b[", "console format colorizes the level")
}

func TestInitializeJSONFormat(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "info", Format: "json"})

	GetLogger().Warn("snapshot skipped", zap.String("reason", "unchanged"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "json format emits one object per line")
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "gridpager", entry["logger"])
	assert.Equal(t, "snapshot skipped", entry["msg"])
	assert.Equal(t, "unchanged", entry["reason"])
}

func TestInitializeLevelFiltering(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "warn", Format: "json"})

	GetLogger().Debug("merged block back")
	GetLogger().Info("reflow converged")
	GetLogger().Error("reflow failed")

	out := buf.String()
	assert.NotContains(t, out, "merged block back")
	assert.NotContains(t, out, "reflow converged")
	assert.Contains(t, out, "reflow failed")
}

func TestInitializeBadLevelFallsBackToInfo(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "loud", Format: "json"})

	GetLogger().Debug("should be filtered")
	GetLogger().Info("should pass")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should pass")
}

func TestInitializeFileCore(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "gridpager.log")
	initTestLogger(t, config.LoggerConfig{
		Level:   "debug",
		Format:  "console",
		LogFile: logFile,
		MaxSize: 1,
	})

	GetLogger().Error("continuation row unresolved")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "continuation row unresolved")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry), "file core always writes JSON")
}

func TestInitializeRunsOnce(t *testing.T) {
	buf := initTestLogger(t, config.LoggerConfig{Level: "info", Format: "json"})
	first := GetLogger()

	Initialize(config.LoggerConfig{Level: "debug", Format: "console"}, zapcore.Lock(&syncBuffer{}))
	second := GetLogger()

	assert.Same(t, first, second)
	second.Debug("second config must not apply")
	assert.NotContains(t, buf.String(), "second config must not apply")
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Nil(t, globalLogger.Load(), "fallback must not become the global logger")
}
