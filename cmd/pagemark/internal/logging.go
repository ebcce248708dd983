package internal

import (
	"log/slog"
	"os"
)

// SetupLogging installs the process-wide logger. Library packages pick it
// up through slog.Default.
func SetupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
