package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// envList is a custom flag type for repeatable -env flags.
type envList []string

func (e *envList) String() string {
	return strings.Join(*e, ", ")
}

func (e *envList) Set(value string) error {
	*e = append(*e, value)
	return nil
}

// ParseFlags parses command-line flags and returns a Config.
// Returns an error if required arguments are missing or invalid.
func ParseFlags() (*Config, error) {
	cfg := DefaultConfig()
	var env envList

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `go-proc-supervisor - process supervision with tree termination and timeout watchdog

Usage:
  go-proc-supervisor [flags] <command> [args...]

Lifecycle Flags:
`)
		// Print flags by category
		printFlagCategory([]string{"timeout", "output-wait", "cwd", "env"})

		fmt.Fprintf(os.Stderr, "\nRestart Policy:\n")
		printFlagCategory([]string{"restart", "max-restarts", "backoff-initial", "backoff-max", "backoff-multiply"})

		fmt.Fprintf(os.Stderr, "\nTermination:\n")
		printFlagCategory([]string{"kill-passes"})

		fmt.Fprintf(os.Stderr, "\nObservability:\n")
		printFlagCategory([]string{"metrics", "v", "log-format", "tui"})

		fmt.Fprintf(os.Stderr, "\nSafety & Diagnostics:\n")
		printFlagCategory([]string{"print-cmd", "check", "skip-preflight"})

		fmt.Fprintf(os.Stderr, `
Flag Convention:
  Single-dash flags (-timeout, -restart) are normal options.
  Double-dash flags (--check, --print-cmd) are diagnostic modes.

Examples:
  # Run a command with a 30 second wall-clock limit
  go-proc-supervisor -timeout 30s -- sh -c "make test"

  # Keep a flaky worker running with exponential restart backoff
  go-proc-supervisor -restart -max-restarts 10 ./worker --queue jobs

  # Live dashboard with Prometheus metrics
  go-proc-supervisor -tui -metrics 0.0.0.0:17091 ./ingest -v

`)
	}

	// Lifecycle flags
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Kill the process tree after this wall-clock duration (0 = no limit)")
	flag.DurationVar(&cfg.OutputWait, "output-wait", cfg.OutputWait, "Bound on final output drain after exit")
	flag.StringVar(&cfg.Dir, "cwd", cfg.Dir, "Working directory for the child process")
	flag.Var(&env, "env", "Add KEY=VALUE to the child environment (can repeat)")

	// Restart policy
	flag.BoolVar(&cfg.Restart, "restart", cfg.Restart, "Restart the process when it exits")
	flag.IntVar(&cfg.MaxRestarts, "max-restarts", cfg.MaxRestarts, "Give up after this many restarts (0 = unlimited)")
	flag.DurationVar(&cfg.BackoffInitial, "backoff-initial", cfg.BackoffInitial, "Initial restart backoff delay")
	flag.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Maximum restart backoff delay")
	flag.Float64Var(&cfg.BackoffMultiply, "backoff-multiply", cfg.BackoffMultiply, "Backoff growth multiplier")

	// Termination engine
	flag.IntVar(&cfg.KillPasses, "kill-passes", cfg.KillPasses, "Kill sweep passes before reporting survivors")

	// Observability
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	flag.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")

	// Safety & Diagnostics (double-dash convention)
	flag.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the resolved command and exit")
	flag.BoolVar(&cfg.Check, "check", cfg.Check, "Validate config and run the command for 10 seconds")
	flag.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	// Parse
	flag.Parse()

	// Merge environment entries over the parent environment
	cfg.Env = childEnv(env)

	// Positional arguments: command and its args
	args := flag.Args()
	if len(args) >= 1 {
		cfg.Command = args[0]
		cfg.Args = args[1:]
	}

	return cfg, nil
}

// childEnv builds the child environment from -env entries. The entries
// extend the parent environment rather than replace it, appended last so
// they win on duplicate keys. No entries means nil, which preserves the
// launcher's inherit semantics.
func childEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(names []string) {
	flag.VisitAll(func(f *flag.Flag) {
		for _, name := range names {
			if f.Name == name {
				fmt.Fprintf(os.Stderr, "  -%s %s\n    \t%s", f.Name, flagType(f), f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" && f.DefValue != "[]" {
					fmt.Fprintf(os.Stderr, " (default %s)", f.DefValue)
				}
				fmt.Fprintln(os.Stderr)
				return
			}
		}
	})
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	// Infer type from default value format
	switch f.DefValue {
	case "true", "false":
		return ""
	}

	// Check if it looks like a duration
	if strings.HasSuffix(f.DefValue, "s") || strings.HasSuffix(f.DefValue, "m") || strings.HasSuffix(f.DefValue, "h") {
		return "duration"
	}

	// Check if numeric
	if _, err := fmt.Sscanf(f.DefValue, "%d", new(int)); err == nil {
		return "int"
	}

	return "string"
}
