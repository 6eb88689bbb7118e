// Package obs holds the process-wide logger, request ids and Prometheus
// metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *slog.Logger
)

// Logger returns the shared structured logger used across the service.  It
// writes JSON to stdout; LOG_LEVEL selects debug, info (default), warn or
// error.
func Logger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = NewLogger(os.Stdout, os.Getenv("LOG_LEVEL"))
		slog.SetDefault(logger)
	})
	return logger
}

// NewLogger builds a JSON logger writing to w at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
