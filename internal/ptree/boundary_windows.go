//go:build windows

package ptree

import (
	"fmt"
	"os/exec"

	"github.com/kolesnikovae/go-winjob"
)

// windowsBoundary wraps a job object. Children inherit job membership, so
// terminating the job reaches the whole tree; kill-on-close guarantees
// cleanup even if Close is the only call that ever happens.
type windowsBoundary struct {
	job *winjob.JobObject
}

func startInBoundary(cmd *exec.Cmd) (sysBoundary, error) {
	job, err := winjob.Start(cmd, winjob.WithKillOnJobClose())
	if err != nil {
		return nil, fmt.Errorf("start in job object: %w", err)
	}
	return &windowsBoundary{job: job}, nil
}

func (b *windowsBoundary) kill() error {
	if err := b.job.TerminateWithExitCode(1); err != nil {
		return fmt.Errorf("terminate job object: %w", err)
	}
	return nil
}

func (b *windowsBoundary) close() error {
	return b.job.Close()
}
