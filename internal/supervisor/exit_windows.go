//go:build windows

package supervisor

import (
	"os/exec"
)

// exitCodeFromState maps a wait status to an exit code.
func exitCodeFromState(exitErr *exec.ExitError) int {
	return exitErr.ExitCode()
}
