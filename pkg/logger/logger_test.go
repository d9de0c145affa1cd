package logger

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

	"steprecorder/internal/config"
)

func TestNew_JSONLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))

	l.Info("dropped")
	l.Warn("kept", zap.String("component", "test"))
	require.NoError(t, l.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "steprecorder", entry["logger"])
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "chatty", Format: "console"}, zapcore.AddSync(&buf))

	l.Debug("hidden")
	l.Info("shown")
	require.NoError(t, l.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recorder.log")
	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "info", Format: "console", File: path}, zapcore.AddSync(&buf))

	l.Info("to both")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
}

func TestInitAndGet(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	assert.Contains(t, Get().Name(), "fallback")

	l := Init(config.LogConfig{Level: "info", Format: "json"})
	assert.Same(t, l, Get())
	assert.Same(t, l, Init(config.LogConfig{Level: "debug"}))
}
