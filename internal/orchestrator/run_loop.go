package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-proc-supervisor/internal/drain"
	"github.com/randomizedcoder/go-proc-supervisor/internal/supervisor"
)

// RunLoop drives the supervised process across restarts. Each iteration
// launches one generation, blocks on its exit, and applies the restart
// policy with exponential backoff.
type RunLoop struct {
	cfg    RunLoopConfig
	logger *slog.Logger

	// Current generation handle
	mu         sync.RWMutex
	handle     *supervisor.Handle
	generation int

	// Counters
	launches atomic.Int64
	restarts atomic.Int64
}

// RunCallbacks contains optional callbacks for run loop events.
type RunCallbacks struct {
	// OnLaunch is called after each successful launch.
	OnLaunch func(generation, pid int)

	// OnLaunchFailure is called when a launch fails.
	OnLaunchFailure func(err error)

	// OnExit is called after each generation exits, before any restart.
	// sweep approximates the tree-kill duration when the watchdog fired,
	// and is zero otherwise.
	OnExit func(generation int, status supervisor.ExitStatus, uptime time.Duration, timedOut bool, sweep time.Duration)

	// OnRestart is called when a restart has been scheduled.
	OnRestart func(attempt int, delay time.Duration)
}

// RunLoopConfig holds configuration for the RunLoop.
type RunLoopConfig struct {
	Spec   supervisor.Spec
	Logger *slog.Logger

	// RunTimeout arms the per-generation watchdog. Zero means none.
	RunTimeout time.Duration

	// OutputWait bounds the post-exit output drain.
	OutputWait time.Duration

	// Restart enables relaunching after exit.
	Restart bool

	// MaxRestarts caps restarts when Restart is set (0 = unlimited).
	MaxRestarts int

	// KillPasses overrides the termination engine's pass bound.
	KillPasses int

	BackoffConfig supervisor.BackoffConfig

	// LineHandlers observe every drained output line.
	LineHandlers []drain.LineHandler

	Callbacks RunCallbacks
}

// NewRunLoop creates a RunLoop.
func NewRunLoop(cfg RunLoopConfig) *RunLoop {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RunLoop{
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes the supervision loop. It blocks until the child exits
// without a restart due, the restart budget is exhausted, or ctx is
// cancelled. Cancellation kills the current tree before returning.
func (l *RunLoop) Run(ctx context.Context) error {
	backoff := supervisor.NewBackoff(time.Now().UnixNano(), l.cfg.BackoffConfig)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		opts := []supervisor.Option{
			supervisor.WithLogger(l.logger),
		}
		if l.cfg.KillPasses > 0 {
			opts = append(opts, supervisor.WithKillPasses(l.cfg.KillPasses))
		}
		for _, h := range l.cfg.LineHandlers {
			opts = append(opts, supervisor.WithLineHandler(h))
		}

		h, err := supervisor.Launch(l.cfg.Spec, opts...)
		if err != nil {
			if l.cfg.Callbacks.OnLaunchFailure != nil {
				l.cfg.Callbacks.OnLaunchFailure(err)
			}
			// Launch failures (not found, permission) do not improve on
			// retry, so the loop ends here regardless of restart policy.
			return err
		}

		l.mu.Lock()
		l.handle = h
		gen := l.generation
		l.mu.Unlock()
		l.launches.Add(1)

		if l.cfg.Callbacks.OnLaunch != nil {
			l.cfg.Callbacks.OnLaunch(gen, h.Pid())
		}

		// Cancellation kills the current tree.
		stopWatch := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				if killErr := h.Kill(); killErr != nil {
					l.logger.Warn("cancel_kill_failed", "error", killErr)
				}
			case <-stopWatch:
			}
		}()

		h.Run(l.cfg.RunTimeout)
		status, _ := h.Wait(0)
		close(stopWatch)

		timedOut := h.TimedOut()
		uptime := h.Uptime()

		// Approximate the watchdog sweep as the overshoot past the deadline.
		var sweep time.Duration
		if timedOut && l.cfg.RunTimeout > 0 {
			sweep = uptime - l.cfg.RunTimeout
			if sweep < 0 {
				sweep = 0
			}
		}

		if !h.ProcessOutput(l.cfg.OutputWait) {
			l.logger.Warn("output_drain_incomplete", "pid", h.Pid())
		}
		if closeErr := h.Close(); closeErr != nil {
			l.logger.Warn("handle_close_failed", "error", closeErr)
		}

		if l.cfg.Callbacks.OnExit != nil {
			l.cfg.Callbacks.OnExit(gen, status, uptime, timedOut, sweep)
		}

		l.mu.Lock()
		l.handle = nil
		l.mu.Unlock()

		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.cfg.Restart {
			return nil
		}
		if l.cfg.MaxRestarts > 0 && int(l.restarts.Load()) >= l.cfg.MaxRestarts {
			l.logger.Info("restart_budget_exhausted",
				"restarts", l.restarts.Load(),
				"max", l.cfg.MaxRestarts,
			)
			return nil
		}

		if supervisor.ShouldReset(uptime, status) {
			backoff.Reset()
		}
		delay := backoff.Next()
		l.restarts.Add(1)

		if l.cfg.Callbacks.OnRestart != nil {
			l.cfg.Callbacks.OnRestart(backoff.Attempts(), delay)
		}
		l.logger.Info("restart_scheduled",
			"generation", gen+1,
			"attempt", backoff.Attempts(),
			"delay", delay.String(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		l.mu.Lock()
		l.generation++
		l.mu.Unlock()
	}
}

// Kill terminates the current generation's tree, if one is running.
func (l *RunLoop) Kill() error {
	l.mu.RLock()
	h := l.handle
	l.mu.RUnlock()

	if h == nil {
		return nil
	}
	return h.Kill()
}

// Handle returns the current generation's handle, or nil between runs.
func (l *RunLoop) Handle() *supervisor.Handle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handle
}

// Generation returns the current generation number.
func (l *RunLoop) Generation() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.generation
}

// Launches returns the total number of successful launches.
func (l *RunLoop) Launches() int {
	return int(l.launches.Load())
}

// Restarts returns the total number of restarts.
func (l *RunLoop) Restarts() int {
	return int(l.restarts.Load())
}

// IsLaunchError reports whether err came from a failed launch rather
// than a supervised exit.
func IsLaunchError(err error) bool {
	var le *supervisor.LaunchError
	return errors.As(err, &le)
}
