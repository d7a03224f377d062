//go:build !windows

package ptree

import (
	"errors"
	"fmt"
	"os/exec"
	"syscall"
)

// unixBoundary addresses the child's process group. Setpgid gives the child
// a group of its own, so kill(-pgid) reaches every descendant that has not
// explicitly moved to another group.
type unixBoundary struct {
	pgid int
}

func startInBoundary(cmd *exec.Cmd) (sysBoundary, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	// The child's pgid equals its pid because Setpgid ran with Pgid 0.
	return &unixBoundary{pgid: cmd.Process.Pid}, nil
}

func (b *unixBoundary) kill() error {
	err := syscall.Kill(-b.pgid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", b.pgid, err)
	}
	return nil
}

func (b *unixBoundary) close() error {
	// Process groups have no handle to release.
	return nil
}
