package preflight

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck_String(t *testing.T) {
	t.Run("passed_with_required", func(t *testing.T) {
		c := Check{
			Name:     "test_check",
			Required: 100,
			Actual:   200,
			Passed:   true,
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("Passed check should have ✓")
		}
		if !strings.Contains(s, "200") {
			t.Error("Should contain actual value")
		}
		if !strings.Contains(s, "100") {
			t.Error("Should contain required value")
		}
	})

	t.Run("failed_check", func(t *testing.T) {
		c := Check{
			Name:     "test_check",
			Required: 100,
			Actual:   50,
			Passed:   false,
		}
		s := c.String()
		if !strings.Contains(s, "✗") {
			t.Error("Failed check should have ✗")
		}
	})

	t.Run("warning_check", func(t *testing.T) {
		c := Check{
			Name:    "test_check",
			Passed:  true,
			Warning: true,
			Message: "warning message",
		}
		s := c.String()
		if !strings.Contains(s, "⚠") {
			t.Error("Warning check should have ⚠")
		}
		if !strings.Contains(s, "warning message") {
			t.Error("Should contain message")
		}
	})

	t.Run("passed_with_message_only", func(t *testing.T) {
		c := Check{
			Name:    "test_check",
			Passed:  true,
			Message: "all good",
		}
		s := c.String()
		if !strings.Contains(s, "✓") {
			t.Error("Passed check should have ✓")
		}
		if !strings.Contains(s, "all good") {
			t.Error("Should contain message")
		}
	})
}

func TestRunAll_WithValidCommand(t *testing.T) {
	result := RunAll("sh", "")

	if result == nil {
		t.Fatal("RunAll returned nil")
	}
	if len(result.Checks) < 3 {
		t.Errorf("Expected at least 3 checks, got %d", len(result.Checks))
	}

	foundExec := false
	for _, check := range result.Checks {
		if check.Name == "executable" {
			foundExec = true
			if !check.Passed {
				t.Errorf("executable check should pass for sh: %s", check.Message)
			}
		}
	}
	if !foundExec {
		t.Error("Expected executable check in results")
	}
}

func TestRunAll_WithMissingCommand(t *testing.T) {
	result := RunAll("definitely-not-a-real-command-xyz", "")

	if result == nil {
		t.Fatal("RunAll returned nil")
	}
	if result.Passed {
		t.Error("RunAll should fail for a missing command")
	}

	for _, check := range result.Checks {
		if check.Name == "executable" && check.Passed {
			t.Error("executable check should fail for a missing command")
		}
	}
}

func TestCheckExecutable_Directory(t *testing.T) {
	dir := t.TempDir()

	// A directory path with a separator bypasses PATH lookup
	c := checkExecutable(dir + string(filepath.Separator) + ".")
	if c.Passed {
		t.Error("executable check should fail for a directory")
	}
}

func TestCheckWorkDir(t *testing.T) {
	t.Run("empty_is_inherited", func(t *testing.T) {
		c := checkWorkDir("")
		if !c.Passed {
			t.Errorf("empty dir should pass: %s", c.Message)
		}
	})

	t.Run("existing_directory", func(t *testing.T) {
		c := checkWorkDir(t.TempDir())
		if !c.Passed {
			t.Errorf("existing dir should pass: %s", c.Message)
		}
	})

	t.Run("missing_directory", func(t *testing.T) {
		c := checkWorkDir(filepath.Join(t.TempDir(), "does-not-exist"))
		if c.Passed {
			t.Error("missing dir should fail")
		}
		if !strings.Contains(c.Message, "does not exist") {
			t.Errorf("message = %q, want mention of does not exist", c.Message)
		}
	})
}

func TestCheckFileDescriptors(t *testing.T) {
	c := checkFileDescriptors()
	if c.Name != "file_descriptors" {
		t.Errorf("Name = %q, want file_descriptors", c.Name)
	}
}

func TestCheckProcessLimit(t *testing.T) {
	c := checkProcessLimit()
	if c.Name != "process_limit" {
		t.Errorf("Name = %q, want process_limit", c.Name)
	}
	// Never fatal, this check only warns
	if !c.Passed {
		t.Error("process limit check should never fail hard")
	}
}

func TestSuggestFix(t *testing.T) {
	for _, name := range []string{"executable", "working_directory", "file_descriptors", "process_limit", "unknown"} {
		if suggestFix(name) == "" {
			t.Errorf("suggestFix(%q) should not be empty", name)
		}
	}
}
