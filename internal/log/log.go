// Package log is a small leveled logger over log/slog.
// Output goes to stderr so it never mixes with command output on stdout.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// EnvDebug enables debug logging when set to a truthy value.
const EnvDebug = "GRIP_DEBUG"

var (
	level  = new(slog.LevelVar)
	logger atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelWarn)
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvDebug))); v == "1" || v == "true" {
		level.Set(slog.LevelDebug)
	}
	SetOutput(os.Stderr)
}

// SetOutput redirects log output. Tests use it to capture records.
func SetOutput(w io.Writer) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	logger.Store(slog.New(h))
}

// SetLevel sets the global log level.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// SetVerbose switches between debug and the default warn level.
func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelWarn)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	return logger.Load()
}

// Debug logs at debug level with optional key-value pairs.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level with optional key-value pairs.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warn level with optional key-value pairs.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level with optional key-value pairs.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}
