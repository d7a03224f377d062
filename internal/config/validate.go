package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Command is required (unless --print-cmd without one)
	if cfg.Command == "" && !cfg.PrintCmd {
		errs = append(errs, ValidationError{
			Field:   "command",
			Message: "command to supervise is required",
		})
	}

	// Environment entries must be KEY=VALUE
	for _, entry := range cfg.Env {
		if err := validateEnvEntry(entry); err != nil {
			errs = append(errs, ValidationError{
				Field:   "env",
				Message: err.Error(),
			})
		}
	}

	// Timeouts must not be negative
	if cfg.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must not be negative",
		})
	}
	if cfg.OutputWait < 0 {
		errs = append(errs, ValidationError{
			Field:   "output_wait",
			Message: "must not be negative",
		})
	}

	// Max restarts only makes sense with restart enabled
	if cfg.MaxRestarts < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_restarts",
			Message: "must not be negative",
		})
	}

	// Backoff settings
	if cfg.BackoffInitial <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backoff_initial",
			Message: "must be positive",
		})
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		errs = append(errs, ValidationError{
			Field:   "backoff_max",
			Message: "must be >= backoff_initial",
		})
	}
	if cfg.BackoffMultiply < 1.0 {
		errs = append(errs, ValidationError{
			Field:   "backoff_multiply",
			Message: "must be >= 1.0",
		})
	}

	// Kill sweep pass bound
	if cfg.KillPasses < 1 {
		errs = append(errs, ValidationError{
			Field:   "kill_passes",
			Message: "must be at least 1",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// The TUI and verbose child-output logging both want the terminal
	if cfg.TUIEnabled && cfg.Verbose {
		errs = append(errs, ValidationError{
			Field:   "tui",
			Message: "cannot combine -tui with -v (verbose logs corrupt the dashboard)",
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateEnvEntry checks that an environment entry is KEY=VALUE shaped.
func validateEnvEntry(entry string) error {
	key, _, found := strings.Cut(entry, "=")
	if !found {
		return fmt.Errorf("entry %q must be KEY=VALUE", entry)
	}
	if key == "" {
		return fmt.Errorf("entry %q has an empty key", entry)
	}
	return nil
}

// ApplyCheckMode modifies config for --check mode.
func ApplyCheckMode(cfg *Config) {
	cfg.Timeout = 10 * time.Second
	cfg.Restart = false
	cfg.Verbose = true
}
