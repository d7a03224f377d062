// Package main provides the go-proc-supervisor CLI entry point.
//
// go-proc-supervisor launches a command inside a process-tree boundary,
// drains its output, enforces an optional run timeout, and restarts it
// according to the configured policy.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/randomizedcoder/go-proc-supervisor/internal/config"
	"github.com/randomizedcoder/go-proc-supervisor/internal/logging"
	"github.com/randomizedcoder/go-proc-supervisor/internal/orchestrator"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/go-proc-supervisor
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// Handle version flag early (before flag parsing)
	if len(os.Args) > 1 {
		arg := os.Args[1]
		if arg == "-version" || arg == "--version" || arg == "version" {
			fmt.Printf("go-proc-supervisor %s\n", version)
			return 0
		}
	}

	// Parse command-line flags
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// Initialize logger
	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	logOpts := logging.Options{
		Format:  cfg.LogFormat,
		Verbose: cfg.Verbose,
	}
	if cfg.TUIEnabled {
		logOpts.Output = io.Discard
	}
	logger := logging.New(logOpts)
	logging.SetDefault(logger)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Apply --check mode modifications
	if cfg.Check {
		config.ApplyCheckMode(cfg)
		logger.Info("check_mode_enabled", "timeout", cfg.Timeout.String())
	}

	// Handle --print-cmd mode
	if cfg.PrintCmd {
		printCommand(cfg)
		return 0
	}

	// Log startup
	logger.Info("starting",
		"version", version,
		"command", cfg.Command,
		"restart", cfg.Restart,
		"timeout", cfg.Timeout.String(),
		"metrics_addr", cfg.MetricsAddr,
	)

	// Print startup banner
	if !cfg.TUIEnabled {
		printBanner(cfg)
	}

	// Create and run orchestrator
	orch := orchestrator.New(cfg, logger, version)
	if err := orch.Run(context.Background()); err != nil {
		logger.Error("orchestrator_failed", "error", err)
		return 1
	}

	return 0
}

// printBanner prints the startup banner.
func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       go-proc-supervisor                          ║")
	fmt.Println("║      Process Supervision with Tree-Scoped Termination             ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Command:     %s\n", commandLine(cfg))
	if cfg.Dir != "" {
		fmt.Printf("  Directory:   %s\n", cfg.Dir)
	}
	if cfg.Timeout > 0 {
		fmt.Printf("  Run timeout: %s\n", cfg.Timeout)
	}
	if cfg.Restart {
		if cfg.MaxRestarts > 0 {
			fmt.Printf("  Restart:     enabled (max %d)\n", cfg.MaxRestarts)
		} else {
			fmt.Println("  Restart:     enabled (unlimited)")
		}
	}
	fmt.Printf("  Metrics:     http://%s/metrics\n", cfg.MetricsAddr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()
}

// printCommand prints the command line that would be supervised.
func printCommand(cfg *config.Config) {
	fmt.Println("# Command that would be supervised:")
	fmt.Println()
	fmt.Println(commandLine(cfg))
}

// commandLine renders the configured command with its arguments,
// quoting arguments that contain whitespace.
func commandLine(cfg *config.Config) string {
	parts := make([]string, 0, len(cfg.Args)+1)
	parts = append(parts, cfg.Command)
	for _, a := range cfg.Args {
		if strings.ContainsAny(a, " \t") {
			parts = append(parts, fmt.Sprintf("%q", a))
		} else {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}
