package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/randomizedcoder/go-proc-supervisor/internal/drain"
	"github.com/randomizedcoder/go-proc-supervisor/internal/ptree"
)

// reapTimeout bounds how long a kill waits for the exit status to be
// collected after the sweep completes.
const reapTimeout = 5 * time.Second

// Handle is the live control surface for one launched process. All
// methods are safe for concurrent use.
type Handle struct {
	spec     Spec
	cmd      *exec.Cmd
	logger   *slog.Logger
	boundary *ptree.Boundary
	killer   *ptree.Killer
	drain    *drain.Drain
	wd       *watchdog

	// Parent-owned read ends of the output pipes, closed on Close.
	stdoutR *os.File
	stderrR *os.File

	// mu guards state, timedOut, killing, and exit so observers always
	// see a consistent lifecycle transition.
	mu       sync.Mutex
	state    State
	timedOut bool
	killing  bool
	exit     *ExitStatus

	// waitDone closes exactly once, after the exit status is recorded.
	waitDone  chan struct{}
	startTime time.Time
	endTime   time.Time
}

// Pid returns the root process ID. Valid for the life of the handle,
// including after exit.
func (h *Handle) Pid() int {
	return h.boundary.Pid()
}

// StartTime returns when the child was launched.
func (h *Handle) StartTime() time.Time {
	return h.startTime
}

// Alive reports whether the root process has not yet been reaped.
func (h *Handle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateRunning
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// TimedOut reports whether a watchdog expiry has terminated this process.
// Once set it stays set.
func (h *Handle) TimedOut() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timedOut
}

// ExitStatus returns the recorded exit status, or nil while the process
// is still running.
func (h *Handle) ExitStatus() *ExitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exit
}

// ExitCode returns the exit code, or -1 while the process is running.
func (h *Handle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exit == nil {
		return -1
	}
	return h.exit.Code
}

// Uptime returns how long the process has been running, or the final
// lifetime once it has exited.
func (h *Handle) Uptime() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateRunning {
		return time.Since(h.startTime)
	}
	return h.endTime.Sub(h.startTime)
}

// Output returns the capture buffer holding everything drained from the
// child's stdout and stderr so far.
func (h *Handle) Output() *drain.Buffer {
	return h.drain.Buffer()
}

// Run arms the wall-clock watchdog and returns immediately. A timeout
// of zero or less arms nothing. When the watchdog fires it kills the
// whole tree and marks the handle timed out. Blocking on the exit is
// Wait's job.
func (h *Handle) Run(timeout time.Duration) {
	if timeout > 0 {
		h.wd.arm(timeout)
	}
}

// Wait blocks until the process exits or the timeout elapses. A timeout
// of zero or less blocks indefinitely. An elapsed timeout only stops the
// blocking: the process keeps running, nothing is killed, and no timeout
// flag is set. Wait returns ErrWaitTimeout in that case.
func (h *Handle) Wait(timeout time.Duration) (ExitStatus, error) {
	if timeout <= 0 {
		<-h.waitDone
		return *h.exitLocked(), nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.waitDone:
		return *h.exitLocked(), nil
	case <-timer.C:
		// The process may have exited just as the timer fired.
		select {
		case <-h.waitDone:
			return *h.exitLocked(), nil
		default:
			return ExitStatus{}, ErrWaitTimeout
		}
	}
}

// Kill terminates the whole process tree immediately. It never sets the
// timed-out flag. Killing an already-exited process is a no-op.
func (h *Handle) Kill() error {
	return h.terminate(false)
}

// ProcessOutput blocks until both output streams are fully drained or
// the timeout elapses, and reports whether the drain completed. A
// timeout of zero or less blocks until completion. Safe to call any
// number of times; once drained it returns true immediately.
func (h *Handle) ProcessOutput(timeout time.Duration) bool {
	return h.drain.Wait(timeout)
}

// Close releases handle resources. It does not terminate the process;
// call Kill first if the child should not outlive the handle.
func (h *Handle) Close() error {
	h.wd.disarm()
	if h.stdoutR != nil {
		h.stdoutR.Close()
	}
	if h.stderrR != nil {
		h.stderrR.Close()
	}
	return h.boundary.Close()
}

// terminate is the single kill path shared by Kill and the watchdog.
// The timedOut flag is set under the same lock that flips the killing
// flag so observers never see a timed-out handle that is still "alive"
// with no kill in flight.
func (h *Handle) terminate(timedOut bool) error {
	h.mu.Lock()
	if h.state != StateRunning || h.killing {
		// Already exited, or a kill is already sweeping. A watchdog
		// expiry that loses this race records nothing: only the call
		// that initiates the kill decides the timed-out flag.
		h.mu.Unlock()
		return nil
	}
	h.killing = true
	if timedOut {
		h.timedOut = true
	}
	h.mu.Unlock()

	h.wd.disarm()

	h.logger.Info("terminating_tree",
		"pid", h.Pid(),
		"timed_out", timedOut,
	)

	killErr := h.killer.Kill(h.Pid(), h.boundary)

	// The reaper collects the status; bound the wait so a wedged child
	// cannot hang the caller forever.
	select {
	case <-h.waitDone:
	case <-time.After(reapTimeout):
		if killErr == nil {
			killErr = fmt.Errorf("kill: %w", ptree.ErrTerminationIncomplete)
		}
	}
	return killErr
}

// recordExit runs on the reaper goroutine once cmd.Wait returns. It is
// the only writer of the terminal state and the only closer of waitDone.
func (h *Handle) recordExit(waitErr error) {
	h.mu.Lock()
	code := extractExitCode(waitErr)
	h.exit = &ExitStatus{Code: code, Killed: h.killing}
	if h.killing {
		h.state = StateKilled
	} else {
		h.state = StateExited
	}
	state := h.state
	h.endTime = time.Now()
	h.mu.Unlock()

	h.wd.disarm()
	close(h.waitDone)

	h.logger.Info("process_exited",
		"pid", h.Pid(),
		"exit_code", code,
		"state", state.String(),
		"uptime", time.Since(h.startTime).String(),
	)
}

// exitLocked returns the exit status after waitDone has closed.
func (h *Handle) exitLocked() *ExitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exit
}
