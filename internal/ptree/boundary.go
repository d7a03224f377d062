package ptree

import (
	"os/exec"
)

// Boundary is the tree-termination boundary for one supervised process: an
// OS-level grouping construct that lets every descendant of the root be
// signalled together. On Unix it is the child's process group; on Windows it
// is a job object with kill-on-close.
//
// A Boundary is created once at launch, owned exclusively by the handle that
// launched the process, and released by Close once the handle is done.
type Boundary struct {
	pid int
	sys sysBoundary
}

// StartInBoundary configures cmd so the child becomes the root of a fresh
// termination boundary, starts it, and returns the boundary. The command must
// not have been started already.
func StartInBoundary(cmd *exec.Cmd) (*Boundary, error) {
	sys, err := startInBoundary(cmd)
	if err != nil {
		return nil, err
	}
	return &Boundary{pid: cmd.Process.Pid, sys: sys}, nil
}

// Pid returns the PID of the boundary's root process.
func (b *Boundary) Pid() int {
	return b.pid
}

// Kill forcefully terminates every process inside the boundary in one
// OS-level operation. Members that left the boundary (e.g. via setsid) are
// not covered; the Killer's snapshot sweep catches those.
// Safe to call on an already-dead tree.
func (b *Boundary) Kill() error {
	return b.sys.kill()
}

// Close releases the boundary's OS resources. On Windows closing the job
// object also terminates any remaining members (kill-on-close); on Unix it
// is a no-op beyond bookkeeping. Safe to call multiple times.
func (b *Boundary) Close() error {
	return b.sys.close()
}

// sysBoundary is the platform half of Boundary.
type sysBoundary interface {
	kill() error
	close() error
}
