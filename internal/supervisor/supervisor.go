package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/randomizedcoder/go-proc-supervisor/internal/drain"
	"github.com/randomizedcoder/go-proc-supervisor/internal/ptree"
)

// Spec describes the child process to launch.
type Spec struct {
	// Command is the executable to run. Resolved via PATH when it is
	// not an explicit path.
	Command string

	// Args are the command arguments, excluding the command itself.
	Args []string

	// Dir is the working directory. Empty means inherit.
	Dir string

	// Env is the environment. Nil means inherit the parent environment.
	Env []string
}

// options holds Launch configuration.
type options struct {
	logger       *slog.Logger
	discoverer   ptree.Discoverer
	killPasses   int
	lineHandlers []drain.LineHandler
}

// Option configures Launch.
type Option func(*options)

// WithLogger sets the handle's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDiscoverer overrides the process-table discoverer used during
// tree termination. Intended for tests.
func WithDiscoverer(d ptree.Discoverer) Option {
	return func(o *options) { o.discoverer = d }
}

// WithKillPasses overrides the termination engine's pass bound.
func WithKillPasses(n int) Option {
	return func(o *options) { o.killPasses = n }
}

// WithLineHandler registers an observer for captured output lines.
// Handlers run on the drain's reader goroutines and must not block.
func WithLineHandler(h drain.LineHandler) Option {
	return func(o *options) { o.lineHandlers = append(o.lineHandlers, h) }
}

// Launch starts the child described by spec inside a fresh termination
// boundary and begins draining its output. On success the returned handle
// has a live PID and no exit status yet; the caller drives it with Run,
// Wait, Kill, and ProcessOutput.
//
// Failures surface synchronously as a *LaunchError and are never retried.
func Launch(spec Spec, opts ...Option) (*Handle, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	if spec.Command == "" {
		return nil, &LaunchError{
			Reason: ReasonNotFound,
			Err:    fmt.Errorf("empty command"),
		}
	}

	// Resolve the executable up front so NotFound and PermissionDenied
	// surface before any process exists.
	if _, err := exec.LookPath(spec.Command); err != nil {
		return nil, newLaunchError(spec.Command, err)
	}

	if spec.Dir != "" {
		info, err := os.Stat(spec.Dir)
		if err != nil {
			return nil, newLaunchError(spec.Command, fmt.Errorf("working directory %s: %w", spec.Dir, err))
		}
		if !info.IsDir() {
			return nil, &LaunchError{
				Reason:  ReasonOther,
				Command: spec.Command,
				Err:     fmt.Errorf("working directory %s is not a directory", spec.Dir),
			}
		}
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	// Own the output pipes instead of using cmd.StdoutPipe: cmd.Wait
	// closes pipes it created as soon as the process exits, which would
	// cut the drain off with data still buffered. With parent-owned
	// pipes the drain reads until a true EOF, which arrives once every
	// tree member holding the write end has exited.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, newLaunchError(spec.Command, fmt.Errorf("stdout pipe: %w", err))
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, newLaunchError(spec.Command, fmt.Errorf("stderr pipe: %w", err))
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	boundary, err := ptree.StartInBoundary(cmd)
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, newLaunchError(spec.Command, err)
	}

	// Close the parent's write ends after Start so EOF reaches the
	// drain when the child side closes.
	stdoutW.Close()
	stderrW.Close()

	h := &Handle{
		spec:     spec,
		cmd:      cmd,
		logger:   o.logger,
		boundary: boundary,
		stdoutR:  stdoutR,
		stderrR:  stderrR,
		killer: ptree.NewKiller(ptree.KillerConfig{
			Discoverer: o.discoverer,
			Logger:     o.logger,
			Passes:     o.killPasses,
		}),
		drain: drain.New(drain.Config{
			Logger:   o.logger,
			Handlers: o.lineHandlers,
		}),
		state:     StateRunning,
		waitDone:  make(chan struct{}),
		startTime: time.Now(),
	}
	h.wd = newWatchdog(func() { h.terminate(true) })

	h.drain.Start(stdoutR, stderrR)

	o.logger.Info("process_launched",
		"command", spec.Command,
		"pid", cmd.Process.Pid,
		"dir", spec.Dir,
	)

	// Reaper: records the final status as soon as the child exits,
	// whichever path ends it (natural exit, caller kill, watchdog).
	go func() {
		waitErr := cmd.Wait()
		h.recordExit(waitErr)
	}()

	return h, nil
}
