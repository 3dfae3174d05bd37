// Package observability provides the process-wide structured logger and the
// Prometheus request metrics the HTTP layer records.
package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns the JSON slog logger the service runs with. Level is
// controlled by LOG_LEVEL (debug, info, warn, error); default info.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
