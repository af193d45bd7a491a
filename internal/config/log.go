package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogOptions selects where console diagnostics go.
type LogOptions struct {
	// Stderr mirrors records to stderr. Plain CLI commands use it with
	// --verbose; the TUI never does because it owns the terminal.
	Stderr bool
	// Debug lowers the level from info to debug.
	Debug bool
}

// SetupLogging opens ~/.dropdeck/console.log and installs a text slog
// handler as the default logger. The returned closer flushes the file.
func SetupLogging(opts LogOptions) (*slog.Logger, io.Closer, error) {
	if err := EnsureGlobalDir(); err != nil {
		return nil, nil, fmt.Errorf("failed to create console directory: %w", err)
	}
	path, err := GlobalLogFile()
	if err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var w io.Writer = f
	if opts.Stderr {
		w = io.MultiWriter(f, os.Stderr)
	}
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, f, nil
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
