// ABOUTME: Logger construction for the CLI
// ABOUTME: Writes structured text logs to a file, and to stdout when the TUI is off
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/motionsync/motionsync-go/internal/settings"
)

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger opens the log file and returns a logger writing to it. With the
// TUI on, logs go only to the file; otherwise they also go to stdout.
func newLogger(cfg settings.Logging, useTUI bool, stdout io.Writer) (*slog.Logger, func(), error) {
	var w io.Writer = stdout
	closeFn := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeFn = func() { _ = f.Close() }
		if useTUI {
			w = f
		} else {
			w = io.MultiWriter(stdout, f)
		}
	} else if useTUI {
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
