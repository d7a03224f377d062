// Package orchestrator wires the supervision loop to metrics, stats
// aggregation, output handling, and the optional terminal UI.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/randomizedcoder/go-proc-supervisor/internal/config"
	"github.com/randomizedcoder/go-proc-supervisor/internal/drain"
	"github.com/randomizedcoder/go-proc-supervisor/internal/logging"
	"github.com/randomizedcoder/go-proc-supervisor/internal/metrics"
	"github.com/randomizedcoder/go-proc-supervisor/internal/preflight"
	"github.com/randomizedcoder/go-proc-supervisor/internal/ptree"
	"github.com/randomizedcoder/go-proc-supervisor/internal/stats"
	"github.com/randomizedcoder/go-proc-supervisor/internal/supervisor"
	"github.com/randomizedcoder/go-proc-supervisor/internal/timeseries"
	"github.com/randomizedcoder/go-proc-supervisor/internal/tui"
)

const (
	// sampleInterval is the cadence of the background sampler that feeds
	// throughput and descendant-count gauges.
	sampleInterval = 1 * time.Second

	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 10 * time.Second
)

// Orchestrator coordinates all components of a supervision session.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger

	runLoop       *RunLoop
	aggregator    *stats.Aggregator
	tracker       *timeseries.Tracker
	outputHandler *logging.OutputHandler
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	discoverer    *ptree.SystemDiscoverer

	startTime time.Time
}

// New creates an Orchestrator from the given configuration.
func New(cfg *config.Config, logger *slog.Logger, version string) *Orchestrator {
	commandLine := strings.TrimSpace(cfg.Command + " " + strings.Join(cfg.Args, " "))

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Version: version,
		Command: commandLine,
	})
	metricsServer := metrics.NewServer(cfg.MetricsAddr, logger)

	orch := &Orchestrator{
		config:        cfg,
		logger:        logger,
		aggregator:    stats.NewAggregator(),
		tracker:       timeseries.New(),
		outputHandler: logging.NewOutputHandler(logger, cfg.Verbose),
		metrics:       collector,
		metricsServer: metricsServer,
		discoverer:    ptree.NewSystemDiscoverer(),
	}

	orch.runLoop = NewRunLoop(RunLoopConfig{
		Spec: supervisor.Spec{
			Command: cfg.Command,
			Args:    cfg.Args,
			Dir:     cfg.Dir,
			Env:     cfg.Env,
		},
		Logger:      logger,
		RunTimeout:  cfg.Timeout,
		OutputWait:  cfg.OutputWait,
		Restart:     cfg.Restart,
		MaxRestarts: cfg.MaxRestarts,
		KillPasses:  cfg.KillPasses,
		BackoffConfig: supervisor.BackoffConfig{
			Initial:    cfg.BackoffInitial,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiply,
			JitterPct:  0.4,
		},
		LineHandlers: []drain.LineHandler{orch.handleLine},
		Callbacks: RunCallbacks{
			OnLaunch:        orch.onLaunch,
			OnLaunchFailure: orch.onLaunchFailure,
			OnExit:          orch.onExit,
			OnRestart:       orch.onRestart,
		},
	})

	return orch
}

// Run executes the supervision session. It blocks until the child exits
// without a restart due, the restart budget is exhausted, or a signal
// arrives.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	if !o.config.SkipPreflight {
		result := preflight.RunAll(o.config.Command, o.config.Dir)
		preflight.PrintResults(result)
		if !result.Passed {
			return fmt.Errorf("preflight checks failed (use --skip-preflight to override)")
		}
	}

	if o.config.MetricsAddr != "" {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	var runErr error
	g.Go(func() error {
		runErr = o.runLoop.Run(gctx)
		// The session is over once the loop returns, whatever the cause.
		cancel()
		return nil
	})

	g.Go(func() error {
		o.sample(gctx)
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			o.logger.Info("received_signal", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	var program *tea.Program
	if o.config.TUIEnabled {
		model := tui.New(tui.Config{
			Command:      o.config.Command,
			MetricsAddr:  o.config.MetricsAddr,
			StatsSource:  o,
			OutputSource: o.outputHandler,
		})
		program = tea.NewProgram(model, tea.WithAltScreen())

		g.Go(func() error {
			_, err := program.Run()
			// A TUI quit (q, Esc) ends the session.
			cancel()
			return err
		})
		g.Go(func() error {
			<-gctx.Done()
			tui.SendQuit(program)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Warn("session_error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if o.config.MetricsAddr != "" {
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
	}

	o.printExitSummary()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// GetAggregatedStats implements the stats source consumed by the TUI.
func (o *Orchestrator) GetAggregatedStats() *stats.AggregatedStats {
	return o.aggregator.Aggregate()
}

// Kill terminates the current process tree on demand and records the
// sweep in the metrics.
func (o *Orchestrator) Kill() error {
	start := time.Now()
	err := o.runLoop.Kill()
	elapsed := time.Since(start)

	o.metrics.RecordKill("manual", o.config.KillPasses, elapsed, 0)
	o.aggregator.RecordKillSweep(elapsed, 0)
	return err
}

// handleLine is the drain line handler. It fans each line out to the
// output handler, per-run stats, the throughput tracker, and metrics.
func (o *Orchestrator) handleLine(text string, stream drain.Stream) {
	o.outputHandler.HandleLine(text, string(stream))

	// +1 for the stripped newline
	lineBytes := int64(len(text)) + 1

	if rs := o.aggregator.Current(); rs != nil {
		switch stream {
		case drain.StreamStderr:
			rs.RecordStderrLine(lineBytes)
		default:
			rs.RecordStdoutLine(lineBytes)
		}
		if isErrorLine(text) {
			rs.RecordErrorLine()
		}
	}

	o.tracker.Observe(lineBytes)
	o.metrics.AddOutput(string(stream), lineBytes, 1)
}

// isErrorLine reports whether a line matches a known failure pattern.
func isErrorLine(line string) bool {
	for _, pattern := range logging.ErrorPatterns {
		if strings.Contains(line, pattern) {
			return true
		}
	}
	return false
}

// sample periodically updates the throughput window and the
// uptime/descendant gauges for the running generation.
func (o *Orchestrator) sample(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		o.tracker.Tick()
		o.metrics.SetOutputThroughput(o.tracker.Rates().BytesPerSec.Last1s)

		h := o.runLoop.Handle()
		if h == nil || !h.Alive() {
			continue
		}
		o.metrics.SetUptime(h.Uptime())

		snap, err := o.discoverer.Snapshot(h.Pid())
		if err != nil {
			continue
		}
		n := len(snap.Descendants)
		o.metrics.SetDescendants(n)
		if rs := o.aggregator.Current(); rs != nil {
			rs.UpdateDescendants(n)
		}
	}
}

// Callback handlers

func (o *Orchestrator) onLaunch(generation, pid int) {
	o.aggregator.StartRun(generation, pid)
	o.metrics.RecordLaunch(pid)

	o.logger.Info("process_launched",
		"generation", generation,
		"pid", pid,
	)
}

func (o *Orchestrator) onLaunchFailure(err error) {
	reason := "other"
	var le *supervisor.LaunchError
	if errors.As(err, &le) {
		reason = le.Reason.String()
	}
	o.metrics.RecordLaunchFailure(reason)
	o.logger.Error("launch_failed", "error", err, "reason", reason)
}

func (o *Orchestrator) onExit(generation int, status supervisor.ExitStatus, uptime time.Duration, timedOut bool, sweep time.Duration) {
	o.aggregator.FinishRun(status.Code, status.Killed, timedOut)
	o.metrics.RecordExit(status.Code, uptime)

	if timedOut {
		o.metrics.RecordKill("timeout", o.config.KillPasses, sweep, 0)
		o.aggregator.RecordKillSweep(sweep, 0)
	}

	agg := o.aggregator.Aggregate()
	o.metrics.SetLifetimePercentiles(agg.LifetimeP50, agg.LifetimeP95, agg.LifetimeP99)

	o.logger.Info("process_exited",
		"generation", generation,
		"exit_code", status.Code,
		"killed", status.Killed,
		"timed_out", timedOut,
		"uptime", uptime.String(),
	)
}

func (o *Orchestrator) onRestart(attempt int, delay time.Duration) {
	o.metrics.RecordRestart()

	if o.config.Verbose {
		o.logger.Debug("restart_scheduled",
			"attempt", attempt,
			"delay", delay.String(),
		)
	}
}

// printExitSummary prints the end-of-session report to stdout.
func (o *Orchestrator) printExitSummary() {
	agg := o.aggregator.Aggregate()
	summary := stats.FormatExitSummary(agg, stats.SummaryConfig{
		Command:        o.config.Command,
		Duration:       time.Since(o.startTime),
		MetricsAddr:    o.config.MetricsAddr,
		ShowRunHistory: o.config.Restart,
	})
	fmt.Println(summary)
}

// RunLoop returns the run loop for external access.
func (o *Orchestrator) RunLoop() *RunLoop {
	return o.runLoop
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}
