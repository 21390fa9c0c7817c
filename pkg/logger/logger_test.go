package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelDebug)
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(buf, opts)
	} else {
		handler = slog.NewJSONHandler(buf, opts)
	}
	return &slogLogger{
		logger: slog.New(handler).With("service", "test"),
		level:  levelVar,
	}, buf
}

func TestLoggerLevels(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	out := buf.String()
	assert.Contains(t, out, "debug message")
	assert.Contains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestSetLevelFiltersOutput(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	log.SetLevel("error")
	log.Info("should be filtered")
	log.Error("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestWithFields(t *testing.T) {
	log, buf := newBufferLogger(t, "json")

	log.With("workflow_id", "wf-123").Info("generating")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "wf-123", entry["workflow_id"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "generating", entry["msg"])
}

func TestWithContext(t *testing.T) {
	t.Run("enriches with request and generation ids", func(t *testing.T) {
		log, buf := newBufferLogger(t, "json")

		ctx := ContextWithRequestID(context.Background(), "req-1")
		ctx = ContextWithGenerationID(ctx, "gen-9")
		log.WithContext(ctx).Info("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "gen-9", entry["generation_id"])
	})

	t.Run("returns same logger for empty context", func(t *testing.T) {
		log, _ := newBufferLogger(t, "json")
		assert.Equal(t, log, log.WithContext(context.Background()))
	})
}

func TestRequestIDFromContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))

	ctx := ContextWithRequestID(context.Background(), "req-7")
	assert.Equal(t, "req-7", RequestIDFromContext(ctx))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestTextFormat(t *testing.T) {
	log, buf := newBufferLogger(t, "text")

	log.Info("plain text entry")

	out := buf.String()
	assert.Contains(t, out, "plain text entry")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CHAINREACT_LOG_LEVEL", "debug")
	t.Setenv("CHAINREACT_LOG_FORMAT", "text")

	cfg := FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Equal(t, time.RFC3339, cfg.TimeFormat)
}

func TestNewWithConfig(t *testing.T) {
	log := NewWithConfig("api", &Config{Level: "debug", Format: "json", Output: "stdout", TimeFormat: time.RFC3339})
	require.NotNil(t, log)
	log.Debug("constructed")
}
