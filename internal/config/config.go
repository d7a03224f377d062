// Package config provides configuration management for go-proc-supervisor.
package config

import "time"

// Config holds all configuration options for the orchestrator.
type Config struct {
	// Process
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Dir     string   `json:"dir"`
	Env     []string `json:"env"`

	// Lifecycle
	Timeout    time.Duration `json:"timeout"`     // run timeout, 0 = none
	OutputWait time.Duration `json:"output_wait"` // final drain bound after exit

	// Restart policy
	Restart         bool          `json:"restart"`
	MaxRestarts     int           `json:"max_restarts"` // 0 = unlimited
	BackoffInitial  time.Duration `json:"backoff_initial"`
	BackoffMax      time.Duration `json:"backoff_max"`
	BackoffMultiply float64       `json:"backoff_multiply"`

	// Termination engine
	KillPasses int `json:"kill_passes"`

	// Observability
	MetricsAddr string `json:"metrics_addr"`
	Verbose     bool   `json:"verbose"`
	LogFormat   string `json:"log_format"` // json, text
	TUIEnabled  bool   `json:"tui"`

	// Diagnostic modes
	PrintCmd      bool `json:"print_cmd"`
	Check         bool `json:"check"`
	SkipPreflight bool `json:"skip_preflight"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Lifecycle
		Timeout:    0, // No watchdog
		OutputWait: 5 * time.Second,

		// Restart policy
		Restart:         false,
		MaxRestarts:     0, // Unlimited
		BackoffInitial:  250 * time.Millisecond,
		BackoffMax:      5 * time.Second,
		BackoffMultiply: 1.7,

		// Termination engine
		KillPasses: 3,

		// Observability
		MetricsAddr: "0.0.0.0:17091",
		Verbose:     false,
		LogFormat:   "json",
		TUIEnabled:  false,
	}
}
