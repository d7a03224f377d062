package supervisor

import (
	"sync"
	"time"
)

// WatchdogState is the lifecycle state of a run-timeout watchdog.
type WatchdogState int

const (
	// WatchdogIdle means no timeout was requested; the watchdog never
	// fires and the handle's timed-out flag stays false forever.
	WatchdogIdle WatchdogState = iota

	// WatchdogArmed means the deadline timer is running.
	WatchdogArmed

	// WatchdogFired means the deadline was reached and the kill was
	// triggered. Terminal.
	WatchdogFired

	// WatchdogDisarmed means the process ended (or was killed by the
	// caller) before the deadline; the timer is cancelled. Terminal.
	WatchdogDisarmed
)

// String returns a human-readable name for the state.
func (s WatchdogState) String() string {
	switch s {
	case WatchdogIdle:
		return "idle"
	case WatchdogArmed:
		return "armed"
	case WatchdogFired:
		return "fired"
	case WatchdogDisarmed:
		return "disarmed"
	default:
		return "unknown"
	}
}

// watchdog is a single-shot run deadline. Exactly one of {fired, disarmed}
// occurs per armed watchdog. The fire callback runs on the timer goroutine
// and is responsible for the kill-and-flag transition on the handle.
type watchdog struct {
	mu     sync.Mutex
	state  WatchdogState
	timer  *time.Timer
	onFire func()
}

func newWatchdog(onFire func()) *watchdog {
	return &watchdog{state: WatchdogIdle, onFire: onFire}
}

// arm starts the deadline timer. Only an idle watchdog can be armed; arming
// twice, or arming after the watchdog resolved, is a no-op.
func (w *watchdog) arm(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WatchdogIdle {
		return
	}
	w.state = WatchdogArmed
	w.timer = time.AfterFunc(d, w.fire)
}

// fire transitions Armed -> Fired and invokes the kill callback. A watchdog
// disarmed concurrently with its timer firing does nothing.
func (w *watchdog) fire() {
	w.mu.Lock()
	if w.state != WatchdogArmed {
		w.mu.Unlock()
		return
	}
	w.state = WatchdogFired
	w.mu.Unlock()

	w.onFire()
}

// disarm cancels an armed watchdog (process exited first, or the caller
// killed it). No-op in any other state.
func (w *watchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != WatchdogArmed {
		return
	}
	w.timer.Stop()
	w.state = WatchdogDisarmed
}

// State returns the current watchdog state.
func (w *watchdog) State() WatchdogState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
