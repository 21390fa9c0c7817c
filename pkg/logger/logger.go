package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger represents a structured logger instance
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)

	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
	SetLevel(level string)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// Config holds logger configuration
type Config struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format" yaml:"format"` // "json" or "text"
	Output     string `json:"output" yaml:"output"` // "stdout", "stderr", or file path
	AddSource  bool   `json:"add_source" yaml:"add_source"`
	TimeFormat string `json:"time_format" yaml:"time_format"`
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	}
}

// FromEnv builds a configuration from CHAINREACT_LOG_* environment variables,
// falling back to defaults for anything unset.
func FromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("CHAINREACT_LOG_LEVEL"); v != "" {
		cfg.Level = v
	}
	if v := os.Getenv("CHAINREACT_LOG_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("CHAINREACT_LOG_OUTPUT"); v != "" {
		cfg.Output = v
	}
	return cfg
}

type ctxKey string

const (
	ctxKeyRequestID    ctxKey = "request_id"
	ctxKeyGenerationID ctxKey = "generation_id"
)

// ContextWithRequestID stores a request id for later log enrichment
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithGenerationID stores a generation id for later log enrichment
func ContextWithGenerationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyGenerationID, id)
}

// RequestIDFromContext returns the request id stored in ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// slogLogger implements the Logger interface using slog
type slogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// New creates a new logger instance with the provided service name
func New(service string) Logger {
	return NewWithConfig(service, FromEnv())
}

// NewWithConfig creates a new logger with custom configuration
func NewWithConfig(service string, config *Config) Logger {
	var output io.Writer
	switch config.Output {
	case "stdout", "":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			// Fallback to stdout if file can't be opened
			output = os.Stdout
		} else {
			output = file
		}
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(parseLevel(config.Level))

	opts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(config.TimeFormat))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return &slogLogger{
		logger: slog.New(handler).With("service", service),
		level:  levelVar,
	}
}

// parseLevel converts string level to slog.Level
func parseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a debug message
func (l *slogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

// Info logs an info message
func (l *slogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Warn logs a warning message
func (l *slogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *slogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Fatal logs a fatal message and exits the program
func (l *slogLogger) Fatal(msg string, args ...any) {
	l.logger.Error(msg, args...)
	os.Exit(1)
}

// With returns a new logger with additional fields
func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{
		logger: l.logger.With(args...),
		level:  l.level,
	}
}

// WithContext returns a logger enriched with ids carried by the context
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	attrs := make([]any, 0, 4)
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok && id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if id, ok := ctx.Value(ctxKeyGenerationID).(string); ok && id != "" {
		attrs = append(attrs, "generation_id", id)
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// SetLevel changes the logging level
func (l *slogLogger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// DebugContext logs a debug message with context
func (l *slogLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

// InfoContext logs an info message with context
func (l *slogLogger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

// WarnContext logs a warning message with context
func (l *slogLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context
func (l *slogLogger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance
var globalLogger Logger = New("chainreact")

// SetGlobal sets the global logger instance
func SetGlobal(logger Logger) {
	globalLogger = logger
}

// Global logging functions
func Debug(msg string, args ...any) {
	globalLogger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	globalLogger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	globalLogger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	globalLogger.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	globalLogger.Fatal(msg, args...)
}

func With(args ...any) Logger {
	return globalLogger.With(args...)
}
