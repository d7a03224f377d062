package supervisor

import (
	"errors"
	"os/exec"
)

// ExitStatus is the final status of a supervised process.
type ExitStatus struct {
	// Code is the process exit code. For signal deaths on Unix this is
	// 128 + signal number.
	Code int

	// Killed is true when the process was terminated by the supervisor
	// rather than exiting on its own.
	Killed bool
}

// extractExitCode extracts an exit code from a cmd.Wait error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitCodeFromState(exitErr)
	}

	// Unknown error, assume exit code 1
	return 1
}
