package logging

import (
	"io"
	"log/slog"
	"os"
)

// Verbose reports whether verbose (debug-level) logging is enabled.
var Verbose bool

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// Setup configures the package logger. Any verbosity above zero enables
// debug-level output. When jsonFormat is true, logs are emitted as JSON
// records instead of text.
func Setup(verbosity int, jsonFormat bool, w io.Writer) {
	Verbose = verbosity > 0

	level := slog.LevelInfo
	if Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger = slog.New(handler)
}

// Debug logs a debug-level message with key-value pairs.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info-level message with key-value pairs.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warning-level message with key-value pairs.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs an error-level message with key-value pairs.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}
