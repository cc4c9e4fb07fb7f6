// Package log provides structured logging for baseline-warden.
//
// Log output goes to stderr so that reports written to stdout stay
// machine-readable.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu sync.RWMutex

	// Logger is the global logger instance.
	Logger *slog.Logger
)

func init() {
	Logger = newLogger(os.Stderr, slog.LevelInfo)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetLevel sets the logging level.
func SetLevel(level slog.Level) {
	SetOutput(os.Stderr, level)
}

// SetOutput redirects the global logger. Tests use it to capture output.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	Logger = newLogger(w, level)
	mu.Unlock()
}

// ParseLevel maps a config value (debug, info, warn, error) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger
}

// Info logs an info message
func Info(msg string, args ...any) {
	current().Info(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	current().Error(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	current().Warn(msg, args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	current().Debug(msg, args...)
}

// With returns a logger with additional attributes
func With(args ...any) *slog.Logger {
	return current().With(args...)
}
