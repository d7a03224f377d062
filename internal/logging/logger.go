// Package logging builds the supervisor's structured logger and routes
// child output lines through it.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options select the handler the supervisor logs through.
type Options struct {
	// Format is "json" or "text". Anything else falls back to json so
	// output stays machine readable under a typo.
	Format string

	// Level names the minimum level: debug, info, warn, or error.
	// Unknown names mean info.
	Level string

	// Verbose forces debug level and source locations regardless of
	// Level.
	Verbose bool

	// Output defaults to stderr, keeping the child's stdout passthrough
	// clean. Set to io.Discard when a TUI owns the terminal.
	Output io.Writer
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := parseLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.EqualFold(opts.Format, "text") {
		return slog.New(slog.NewTextHandler(out, hopts))
	}
	return slog.New(slog.NewJSONHandler(out, hopts))
}

// parseLevel converts a level name to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault installs logger as the process-wide slog default so library
// code that logs through slog.Default lands in the same stream.
func SetDefault(logger *slog.Logger) {
	slog.SetDefault(logger)
}
