package supervisor

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrWaitTimeout is returned by Handle.Wait when the wait deadline elapses
// before the process exits. It carries no side effects: the process keeps
// running and the timed-out flag is untouched. Only the run-level watchdog
// kills on expiry.
var ErrWaitTimeout = errors.New("wait deadline elapsed before process exit")

// LaunchReason classifies why a launch failed.
type LaunchReason int

const (
	// ReasonOther covers launch failures with no more specific cause.
	ReasonOther LaunchReason = iota

	// ReasonNotFound indicates the command did not resolve to an
	// executable, or the working directory does not exist.
	ReasonNotFound

	// ReasonPermissionDenied indicates the command resolved but is not
	// executable by this user.
	ReasonPermissionDenied
)

// String returns a human-readable name for the reason.
func (r LaunchReason) String() string {
	switch r {
	case ReasonNotFound:
		return "not_found"
	case ReasonPermissionDenied:
		return "permission_denied"
	default:
		return "other"
	}
}

// LaunchError reports a failure to start a supervised process. Launch
// failures are surfaced synchronously and never retried.
type LaunchError struct {
	Reason  LaunchReason
	Command string
	Err     error
}

// Error implements error.
func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s (%s): %v", e.Command, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// newLaunchError wraps err with a classified reason.
func newLaunchError(command string, err error) *LaunchError {
	reason := ReasonOther
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		reason = ReasonNotFound
	case errors.Is(err, fs.ErrPermission):
		reason = ReasonPermissionDenied
	}
	return &LaunchError{Reason: reason, Command: command, Err: err}
}
