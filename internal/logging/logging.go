// Package logging provides structured logging setup using log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level represents the logging verbosity level.
type Level int

const (
	// LevelInfo is the default logging level for normal operation.
	LevelInfo Level = iota
	// LevelDebug enables verbose debug output.
	LevelDebug
)

// FromString maps a config log level onto a Level. Unknown and empty
// values fall back to LevelInfo.
func FromString(s string) Level {
	if s == "debug" {
		return LevelDebug
	}
	return LevelInfo
}

// Setup initializes the global slog logger with a human-readable text
// handler. Call this once at application startup.
func Setup(level Level) {
	install(slog.NewTextHandler(os.Stderr, handlerOptions(level)))
}

// SetupJSON initializes the global slog logger with a JSON handler
// writing to w. The daemon uses this so its logs stay machine-parseable
// under service managers.
func SetupJSON(level Level, w io.Writer) {
	install(slog.NewJSONHandler(w, handlerOptions(level)))
}

// SetupFromEnv initializes the logger based on environment variables.
// Set NETGAUGE_DEBUG=1 to enable debug logging.
func SetupFromEnv() {
	level := LevelInfo
	if os.Getenv("NETGAUGE_DEBUG") == "1" {
		level = LevelDebug
	}
	Setup(level)
}

func handlerOptions(level Level) *slog.HandlerOptions {
	slogLevel := slog.LevelInfo
	if level == LevelDebug {
		slogLevel = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: slogLevel}
}

func install(handler slog.Handler) {
	slog.SetDefault(slog.New(handler))
}
