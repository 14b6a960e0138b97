package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureLogger(t *testing.T, level, format string) (*Logger, *bytes.Buffer) {
	t.Helper()

	output := &bytes.Buffer{}
	logger, err := New(&Config{
		Level:      level,
		Format:     format,
		TimeFormat: time.RFC3339,
		writer:     output,
	})
	require.NoError(t, err)
	require.NotNil(t, logger)

	return logger, output
}

func TestNewJSONFormat(t *testing.T) {
	logger, output := newCaptureLogger(t, "debug", "json")

	logger.Debug("claim attempt", slog.String("agency_id", "agency-1"))

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &logEntry))

	assert.Equal(t, "DEBUG", logEntry["level"])
	assert.Equal(t, "claim attempt", logEntry["msg"])
	assert.Equal(t, "agency-1", logEntry["agency_id"])
	assert.Contains(t, logEntry, "time")
}

func TestNewLevelFiltering(t *testing.T) {
	logger, output := newCaptureLogger(t, "warn", "json")

	logger.Info("suppressed")
	logger.Warn("kept", slog.String("severity", "high"))

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 1)

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &logEntry))

	assert.Equal(t, "WARN", logEntry["level"])
	assert.Equal(t, "kept", logEntry["msg"])
}

func TestNewConsoleFormat(t *testing.T) {
	logger, output := newCaptureLogger(t, "info", "console")

	logger.Info("console test")

	// tint abbreviates the level to "INF"
	assert.Contains(t, output.String(), "INF")
	assert.Contains(t, output.String(), "console test")
}

func TestNewWithSource(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{
		Level:        "info",
		Format:       "json",
		EnableSource: true,
		writer:       output,
	})
	require.NoError(t, err)

	logger.Info("message with source")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &logEntry))

	assert.Contains(t, logEntry, "source")
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{level: "debug", expected: slog.LevelDebug},
		{level: "info", expected: slog.LevelInfo},
		{level: "warn", expected: slog.LevelWarn},
		{level: "warning", expected: slog.LevelWarn},
		{level: "error", expected: slog.LevelError},
		{level: "invalid", expected: slog.LevelInfo},
		{level: "", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestLoggerWithGroup(t *testing.T) {
	logger, output := newCaptureLogger(t, "info", "json")

	logger.WithGroup("queue").Info("job claimed", slog.String("job_id", "job-1"))

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &logEntry))

	group, ok := logEntry["queue"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "job-1", group["job_id"])
}

func TestLoggerWithAttrs(t *testing.T) {
	logger, output := newCaptureLogger(t, "info", "json")

	logger.WithAttrs(
		slog.String("request_id", "12345"),
		slog.String("agency_id", "agency-1"),
	).Info("upload accepted")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(output.Bytes(), &logEntry))

	assert.Equal(t, "12345", logEntry["request_id"])
	assert.Equal(t, "agency-1", logEntry["agency_id"])
	assert.Equal(t, "upload accepted", logEntry["msg"])
}
