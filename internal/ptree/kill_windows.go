//go:build windows

package ptree

import (
	"os"

	"golang.org/x/sys/windows"
)

// killPID terminates a single process. A process that is already gone
// surfaces as a FindProcess/Kill error, which callers treat as "nothing
// signalled".
func killPID(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	defer p.Release()
	return p.Kill()
}

// processExists reports whether pid names a live process. A handle that
// cannot be opened, or one whose exit code is already recorded, counts as
// gone.
func processExists(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == uint32(windows.STILL_ACTIVE)
}
