// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(command, workDir string) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	// Executable check
	execCheck := checkExecutable(command)
	result.Checks = append(result.Checks, execCheck)
	if !execCheck.Passed {
		result.Passed = false
	}

	// Working directory check
	dirCheck := checkWorkDir(workDir)
	result.Checks = append(result.Checks, dirCheck)
	if !dirCheck.Passed {
		result.Passed = false
	}

	// File descriptor check
	fdCheck := checkFileDescriptors()
	result.Checks = append(result.Checks, fdCheck)
	if !fdCheck.Passed {
		result.Passed = false
	}

	// Process limit check (warning only, descendants are the child's business)
	procCheck := checkProcessLimit()
	result.Checks = append(result.Checks, procCheck)

	return result
}

// checkExecutable verifies the command resolves to an executable file.
func checkExecutable(command string) Check {
	path, err := exec.LookPath(command)
	if err != nil {
		msg := fmt.Sprintf("not found in PATH: %s", command)
		if strings.ContainsRune(command, os.PathSeparator) {
			msg = fmt.Sprintf("not executable: %s (%v)", command, err)
		}
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: msg,
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: fmt.Sprintf("cannot stat %s: %v", path, err),
		}
	}
	if info.IsDir() {
		return Check{
			Name:    "executable",
			Passed:  false,
			Message: fmt.Sprintf("%s is a directory", path),
		}
	}

	return Check{
		Name:    "executable",
		Passed:  true,
		Message: fmt.Sprintf("resolved to %s", path),
	}
}

// checkWorkDir verifies the working directory exists if one was given.
func checkWorkDir(dir string) Check {
	if dir == "" {
		return Check{
			Name:    "working_directory",
			Passed:  true,
			Message: "inherited from supervisor",
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		msg := fmt.Sprintf("cannot stat %s: %v", dir, err)
		if os.IsNotExist(err) {
			msg = fmt.Sprintf("does not exist: %s", dir)
		}
		return Check{
			Name:    "working_directory",
			Passed:  false,
			Message: msg,
		}
	}
	if !info.IsDir() {
		return Check{
			Name:    "working_directory",
			Passed:  false,
			Message: fmt.Sprintf("not a directory: %s", dir),
		}
	}

	return Check{
		Name:    "working_directory",
		Passed:  true,
		Message: dir,
	}
}

// PrintResults prints the preflight check results to stdout.
func PrintResults(result *Result) {
	fmt.Println("Preflight checks:")
	for _, check := range result.Checks {
		fmt.Println(check.String())
		if !check.Passed {
			fmt.Printf("    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Println()
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "executable":
		return "check the command spelling or install the program"
	case "working_directory":
		return "create the directory or pass an existing one with --cwd"
	case "file_descriptors":
		return "ulimit -n 8192 (or edit /etc/security/limits.conf)"
	case "process_limit":
		return "ulimit -u 4096 (or edit /etc/security/limits.conf)"
	default:
		return "see documentation"
	}
}
