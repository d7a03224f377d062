//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// exitCodeFromState maps a wait status to an exit code, folding signal
// deaths into the conventional 128 + signal number.
func exitCodeFromState(exitErr *exec.ExitError) int {
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if status.Signaled() {
			return 128 + int(status.Signal())
		}
		return status.ExitStatus()
	}
	return exitErr.ExitCode()
}
