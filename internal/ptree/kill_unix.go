//go:build !windows

package ptree

import (
	"syscall"
)

// killPID sends SIGKILL to a single process. An ESRCH error means the
// process is already gone, which callers treat as "nothing signalled".
func killPID(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// processExists reports whether pid still occupies a process table entry.
// Signal zero performs the existence check without delivering anything;
// ESRCH means the process is gone and reaped. A zombie still counts as
// present until its parent collects it.
func processExists(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
