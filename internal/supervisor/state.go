// Package supervisor manages the lifecycle of a supervised process tree:
// launch inside a termination boundary, continuous output draining, an
// optional run-timeout watchdog, and on-demand tree kill.
package supervisor

// State represents the lifecycle state of a supervised process.
type State int

const (
	// StateRunning indicates the process is alive.
	StateRunning State = iota

	// StateExited indicates the process ended on its own.
	StateExited

	// StateKilled indicates the process tree was terminated, either by
	// the caller or by the watchdog.
	StateKilled
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the process is no longer alive.
func (s State) IsTerminal() bool {
	return s == StateExited || s == StateKilled
}
