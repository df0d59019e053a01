package testhelpers

import (
	"io"
	"log/slog"

	"github.com/abishek0504/iron-path-app-sub003/internal/logging"
)

// NewLogger creates a debug level logger writing to logSink such as the one returned by NewWriter.
func NewLogger(logSink io.Writer) *slog.Logger {
	return logging.New(logSink, slog.LevelDebug)
}
