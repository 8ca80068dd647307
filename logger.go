package demoapp

import (
	"context"
	"log/slog"
)

// Logger defines the interface for container logging.
// It uses structured logging with key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// *slog.Logger satisfies it directly.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// LevelCritical sits above slog.LevelError and marks conditions that end the process.
const LevelCritical = slog.Level(12)

// LogCritical logs at LevelCritical when the logger is slog based and
// falls back to Error otherwise.
func LogCritical(logger Logger, msg string, args ...any) {
	if l, ok := logger.(*slog.Logger); ok {
		l.Log(context.Background(), LevelCritical, msg, args...)
		return
	}
	logger.Error(msg, append(args, "severity", "critical")...)
}

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
