// Package navsync provides default logging implementations.
package navsync

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// LogLevel defines the various log levels.
// These correspond to slog's levels.
type LogLevel int

// Log level constants, mirroring slog levels for internal mapping.
const (
	LogLevelDebug LogLevel = LogLevel(slog.LevelDebug) // Debug messages
	LogLevelInfo  LogLevel = LogLevel(slog.LevelInfo)  // Informational messages
	LogLevelWarn  LogLevel = LogLevel(slog.LevelWarn)  // Warning messages
	LogLevelError LogLevel = LogLevel(slog.LevelError) // Error messages
)

// Logger defines the interface for logging operations.
// The args should be alternating key-value pairs, similar to slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	SetLevel(level LogLevel)
}

// LoggerOptions selects the handler built by NewLogger.
type LoggerOptions struct {
	// Format is "json" (default) or "text". Text output is colorized by tint.
	Format string
	Level  LogLevel
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// defaultSlogLogger is an implementation of the Logger interface using the slog package.
type defaultSlogLogger struct {
	slogger  *slog.Logger
	levelVar *slog.LevelVar
}

// NewDefaultLogger returns a JSON logger writing to os.Stderr at info level.
// The level can be changed dynamically via SetLevel.
func NewDefaultLogger() Logger {
	return NewLogger(LoggerOptions{Format: "json", Level: LogLevelInfo})
}

// NewLogger builds a Logger from opts.
func NewLogger(opts LoggerOptions) Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.Level(opts.Level))

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "text", "tint", "pretty":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      levelVar,
			TimeFormat: time.RFC3339,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar})
	}

	return &defaultSlogLogger{
		slogger:  slog.New(handler),
		levelVar: levelVar,
	}
}

// ParseLogLevel maps debug, info, warn and error to a LogLevel. Unknown
// values fall back to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Debug logs a debug-level message.
func (l *defaultSlogLogger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

// Info logs an info-level message.
func (l *defaultSlogLogger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

// Warn logs a warning-level message.
func (l *defaultSlogLogger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

// Error logs an error-level message.
func (l *defaultSlogLogger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// SetLevel changes the logging level dynamically.
func (l *defaultSlogLogger) SetLevel(level LogLevel) {
	if l.levelVar != nil {
		l.levelVar.Set(slog.Level(level))
	}
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) SetLevel(LogLevel)    {}
