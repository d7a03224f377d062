package config

import (
	"flag"
	"strings"
	"testing"
	"time"
)

// Test envList type
func TestEnvList_String(t *testing.T) {
	testCases := []struct {
		input    envList
		expected string
	}{
		{envList{}, ""},
		{envList{"FOO=bar"}, "FOO=bar"},
		{envList{"FOO=bar", "BAZ=qux"}, "FOO=bar, BAZ=qux"},
	}

	for _, tc := range testCases {
		result := tc.input.String()
		if result != tc.expected {
			t.Errorf("String() = %q, want %q", result, tc.expected)
		}
	}
}

func TestEnvList_Set(t *testing.T) {
	var e envList

	// Set first value
	err := e.Set("FOO=bar")
	if err != nil {
		t.Errorf("Set returned error: %v", err)
	}
	if len(e) != 1 || e[0] != "FOO=bar" {
		t.Errorf("After first Set: %v", e)
	}

	// Set second value (should append)
	err = e.Set("BAZ=qux")
	if err != nil {
		t.Errorf("Set returned error: %v", err)
	}
	if len(e) != 2 || e[1] != "BAZ=qux" {
		t.Errorf("After second Set: %v", e)
	}

	// Empty string should still be appended (validated later)
	err = e.Set("")
	if err != nil {
		t.Errorf("Set with empty string returned error: %v", err)
	}
	if len(e) != 3 {
		t.Errorf("Empty string should still be appended: %v", e)
	}
}

func TestChildEnv_NoEntriesInherits(t *testing.T) {
	// Nil keeps the launcher's inherit-parent-environment semantics.
	if got := childEnv(nil); got != nil {
		t.Errorf("childEnv(nil) = %v, want nil", got)
	}
	if got := childEnv(envList{}); got != nil {
		t.Errorf("childEnv(empty) = %v, want nil", got)
	}
}

func TestChildEnv_ExtendsParentEnvironment(t *testing.T) {
	t.Setenv("CHILD_ENV_MARKER", "from-parent")

	got := childEnv(envList{"FOO=1", "BAR=2"})

	// The parent environment must be present, not replaced.
	var sawMarker bool
	for _, entry := range got {
		if entry == "CHILD_ENV_MARKER=from-parent" {
			sawMarker = true
		}
	}
	if !sawMarker {
		t.Errorf("parent environment missing from childEnv result (%d entries)", len(got))
	}

	// Extra entries go last so they win on duplicate keys.
	n := len(got)
	if n < 2 || got[n-2] != "FOO=1" || got[n-1] != "BAR=2" {
		t.Errorf("extra entries not appended last: tail = %v", got[max(0, n-2):])
	}
}

func TestFlagType(t *testing.T) {
	testCases := []struct {
		name     string
		defValue string
		expected string
	}{
		{"bool true", "true", ""},
		{"bool false", "false", ""},
		{"int", "42", "int"},
		{"string", "hello", "string"},
		{"duration seconds", "5s", "duration"},
		{"duration minutes", "5m", "duration"},
		{"duration hours", "1h", "duration"},
		{"float", "3.14", "int"}, // Sscanf parses "3" then stops at decimal
		{"empty", "", "string"},
		{"zero", "0", "int"},
		{"negative int", "-1", "int"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Create a mock flag
			f := &flag.Flag{
				Name:     "test",
				DefValue: tc.defValue,
			}
			result := flagType(f)
			if result != tc.expected {
				t.Errorf("flagType(%q) = %q, want %q", tc.defValue, result, tc.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Verify critical defaults
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (no watchdog)", cfg.Timeout)
	}
	if cfg.OutputWait != 5*time.Second {
		t.Errorf("OutputWait = %v, want 5s", cfg.OutputWait)
	}
	if cfg.Restart {
		t.Error("Restart should be disabled by default")
	}
	if cfg.MaxRestarts != 0 {
		t.Errorf("MaxRestarts = %d, want 0 (unlimited)", cfg.MaxRestarts)
	}
	if cfg.KillPasses != 3 {
		t.Errorf("KillPasses = %d, want 3", cfg.KillPasses)
	}
	if cfg.MetricsAddr != "0.0.0.0:17091" {
		t.Errorf("MetricsAddr = %q, want %q", cfg.MetricsAddr, "0.0.0.0:17091")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
	if cfg.BackoffMultiply < 1.0 {
		t.Errorf("BackoffMultiply = %f, should be >= 1.0", cfg.BackoffMultiply)
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "sleep"
	cfg.Args = []string{"10"}

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Valid config should not error: %v", err)
	}
}

func TestValidate_MissingCommand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = ""

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected error for missing command")
	}
	if !strings.Contains(err.Error(), "command") {
		t.Errorf("Error should mention command: %v", err)
	}
}

func TestValidate_PrintCmdAllowsNoCommand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = ""
	cfg.PrintCmd = true

	err := Validate(cfg)
	if err != nil {
		t.Errorf("PrintCmd mode should allow empty command: %v", err)
	}
}

func TestValidate_InvalidEnvEntries(t *testing.T) {
	testCases := []struct {
		name  string
		entry string
	}{
		{"no_equals", "JUSTAKEY"},
		{"empty", ""},
		{"empty_key", "=value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Command = "sleep"
			cfg.Env = []string{tc.entry}

			err := Validate(cfg)
			if err == nil {
				t.Errorf("Expected error for env entry %q", tc.entry)
			}
			if !strings.Contains(err.Error(), "env") {
				t.Errorf("Error should mention env: %v", err)
			}
		})
	}
}

func TestValidate_ValidEnvEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "sleep"
	cfg.Env = []string{"FOO=bar", "EMPTY=", "MULTI=a=b=c"}

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Valid env entries should not error: %v", err)
	}
}

func TestValidate_NegativeTimeouts(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Command = "sleep"
		cfg.Timeout = -1 * time.Second

		if err := Validate(cfg); err == nil {
			t.Error("Expected error for negative timeout")
		}
	})

	t.Run("output_wait", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Command = "sleep"
		cfg.OutputWait = -1 * time.Second

		if err := Validate(cfg); err == nil {
			t.Error("Expected error for negative output_wait")
		}
	})
}

func TestValidate_ZeroTimeoutAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "sleep"
	cfg.Timeout = 0

	if err := Validate(cfg); err != nil {
		t.Errorf("Zero timeout (no watchdog) should be valid: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "sleep"
	cfg.LogFormat = "yaml"

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected error for invalid log_format")
	}
}

func TestValidate_InvalidKillPasses(t *testing.T) {
	testCases := []int{0, -1, -100}

	for _, passes := range testCases {
		cfg := DefaultConfig()
		cfg.Command = "sleep"
		cfg.KillPasses = passes

		err := Validate(cfg)
		if err == nil {
			t.Errorf("Expected error for kill_passes=%d", passes)
		}
	}
}

func TestValidate_TUIConflictsWithVerbose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = "sleep"
	cfg.TUIEnabled = true
	cfg.Verbose = true

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected error combining -tui with -v")
	}
	if !strings.Contains(err.Error(), "tui") {
		t.Errorf("Error should mention tui: %v", err)
	}
}

func TestValidate_InvalidBackoff(t *testing.T) {
	t.Run("zero_initial", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Command = "sleep"
		cfg.BackoffInitial = 0

		err := Validate(cfg)
		if err == nil {
			t.Error("Expected error for zero backoff_initial")
		}
	})

	t.Run("max_less_than_initial", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Command = "sleep"
		cfg.BackoffInitial = 5 * time.Second
		cfg.BackoffMax = 1 * time.Second

		err := Validate(cfg)
		if err == nil {
			t.Error("Expected error when backoff_max < backoff_initial")
		}
	})

	t.Run("multiply_less_than_one", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Command = "sleep"
		cfg.BackoffMultiply = 0.5

		err := Validate(cfg)
		if err == nil {
			t.Error("Expected error when backoff_multiply < 1.0")
		}
	})
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Command = ""
	cfg.KillPasses = 0
	cfg.LogFormat = "yaml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected multiple errors")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "command") {
		t.Error("Error should mention command")
	}
	if !strings.Contains(errStr, "kill_passes") {
		t.Error("Error should mention kill_passes")
	}
	if !strings.Contains(errStr, "log_format") {
		t.Error("Error should mention log_format")
	}
}

func TestApplyCheckMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Restart = true
	cfg.Verbose = false

	ApplyCheckMode(cfg)

	if cfg.Timeout != 10*time.Second {
		t.Errorf("Check mode should set timeout=10s, got %v", cfg.Timeout)
	}
	if cfg.Restart {
		t.Error("Check mode should disable restarts")
	}
	if !cfg.Verbose {
		t.Error("Check mode should enable verbose")
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test_field",
		Message: "test message",
	}

	errStr := err.Error()
	if errStr != "test_field: test message" {
		t.Errorf("Error string = %q, want %q", errStr, "test_field: test message")
	}
}
