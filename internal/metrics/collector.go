// Package metrics provides Prometheus metrics for go-proc-supervisor.
//
// All metrics describe a single supervised process tree: lifecycle events
// (launches, restarts, exits, kills), the termination engine's sweep
// behavior, and the output drain.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// --- Panel 1: Process Overview ---
var (
	procInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_info",
			Help: "Information about the supervised command (value always 1)",
		},
		[]string{"version", "command"},
	)

	procUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_process_up",
			Help: "1 while the supervised process is alive, 0 otherwise",
		},
	)

	procPid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_process_pid",
			Help: "PID of the current supervised process (0 = none)",
		},
	)

	procUptimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_process_uptime_seconds",
			Help: "Uptime of the current supervised process",
		},
	)

	procDescendants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_descendants",
			Help: "Live descendant processes in the supervised tree",
		},
	)

	procElapsedSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_elapsed_seconds",
			Help: "Seconds since the supervisor started",
		},
	)
)

// --- Panel 2: Lifecycle Events ---
var (
	procLaunchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proc_supervisor_launches_total",
			Help: "Total process launches",
		},
	)

	procRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proc_supervisor_restarts_total",
			Help: "Total process restarts (after failure)",
		},
	)

	procExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proc_supervisor_exits_total",
			Help: "Process exits by exit code category",
		},
		[]string{"category"}, // "success", "error", "signal"
	)

	procKillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proc_supervisor_kills_total",
			Help: "Tree kills by trigger",
		},
		[]string{"trigger"}, // "manual" | "timeout"
	)

	procTimeoutsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proc_supervisor_timeouts_total",
			Help: "Total run-timeout watchdog expiries",
		},
	)

	procLaunchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proc_supervisor_launch_failures_total",
			Help: "Launch failures by reason",
		},
		[]string{"reason"}, // "not_found" | "permission_denied" | "other"
	)
)

// --- Panel 3: Termination Engine ---
var (
	procKillSweepSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "proc_supervisor_kill_sweep_seconds",
			Help: "Duration of a full tree kill sweep",
			Buckets: []float64{
				0.01, 0.05, 0.1, 0.25, 0.5,
				1.0, 2.5, 5.0, 10.0,
			},
		},
	)

	procKillPasses = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proc_supervisor_kill_passes",
			Help:    "Sweep passes needed to terminate the tree",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	procKillSurvivorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "proc_supervisor_kill_survivors_total",
			Help: "Processes still alive after the sweep pass bound",
		},
	)
)

// --- Panel 4: Output Drain ---
var (
	procOutputBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proc_supervisor_output_bytes_total",
			Help: "Bytes drained from child output by stream",
		},
		[]string{"stream"}, // "stdout" | "stderr"
	)

	procOutputLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proc_supervisor_output_lines_total",
			Help: "Lines drained from child output by stream",
		},
		[]string{"stream"},
	)

	procOutputBytesPerSec = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_output_bytes_per_second",
			Help: "Current child output throughput",
		},
	)
)

// --- Panel 5: Lifetime Distribution ---
var (
	procLifetimeSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proc_supervisor_lifetime_seconds",
			Help:    "Process lifetime before exit",
			Buckets: []float64{1, 5, 30, 60, 300, 600, 1800, 3600, 7200},
		},
	)

	procLifetimeP50Seconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_lifetime_p50_seconds",
			Help: "Process lifetime 50th percentile",
		},
	)

	procLifetimeP95Seconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_lifetime_p95_seconds",
			Help: "Process lifetime 95th percentile",
		},
	)

	procLifetimeP99Seconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "proc_supervisor_lifetime_p99_seconds",
			Help: "Process lifetime 99th percentile",
		},
	)
)

// =============================================================================
// Collector
// =============================================================================

// Collector manages all Prometheus metrics for the supervisor.
type Collector struct {
	command   string
	startTime time.Time

	// For summary generation
	mu              sync.Mutex
	totalLaunches   int64
	totalRestarts   int64
	totalKills      int64
	totalTimeouts   int64
	exitCodes       map[int]int64
	peakDescendants int
	lifetimes       []time.Duration
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Command string
}

// NewCollector creates a new metrics collector.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		command:   cfg.Command,
		startTime: time.Now(),
		exitCodes: make(map[int]int64),
	}

	registry.MustRegister(
		// Panel 1: Process Overview
		procInfo,
		procUp,
		procPid,
		procUptimeSeconds,
		procDescendants,
		procElapsedSeconds,

		// Panel 2: Lifecycle Events
		procLaunchesTotal,
		procRestartsTotal,
		procExitsTotal,
		procKillsTotal,
		procTimeoutsTotal,
		procLaunchFailuresTotal,

		// Panel 3: Termination Engine
		procKillSweepSeconds,
		procKillPasses,
		procKillSurvivorsTotal,

		// Panel 4: Output Drain
		procOutputBytesTotal,
		procOutputLinesTotal,
		procOutputBytesPerSec,

		// Panel 5: Lifetime Distribution
		procLifetimeSeconds,
		procLifetimeP50Seconds,
		procLifetimeP95Seconds,
		procLifetimeP99Seconds,
	)

	// Set initial values
	procInfo.WithLabelValues(cfg.Version, cfg.Command).Set(1)
	procUp.Set(0)

	return c
}

// =============================================================================
// Event Recording Methods
// =============================================================================

// RecordLaunch records a successful process launch.
func (c *Collector) RecordLaunch(pid int) {
	procLaunchesTotal.Inc()
	procUp.Set(1)
	procPid.Set(float64(pid))

	c.mu.Lock()
	c.totalLaunches++
	c.mu.Unlock()
}

// RecordLaunchFailure records a launch failure by classified reason.
func (c *Collector) RecordLaunchFailure(reason string) {
	procLaunchFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordRestart records a restart attempt.
func (c *Collector) RecordRestart() {
	procRestartsTotal.Inc()

	c.mu.Lock()
	c.totalRestarts++
	c.mu.Unlock()
}

// RecordExit records a process exit event.
func (c *Collector) RecordExit(exitCode int, lifetime time.Duration) {
	// Categorize exit code
	category := "error"
	if exitCode == 0 {
		category = "success"
	} else if exitCode > 128 {
		category = "signal"
	}
	procExitsTotal.WithLabelValues(category).Inc()
	procLifetimeSeconds.Observe(lifetime.Seconds())
	procUp.Set(0)
	procPid.Set(0)
	procDescendants.Set(0)

	c.mu.Lock()
	c.exitCodes[exitCode]++
	c.lifetimes = append(c.lifetimes, lifetime)
	c.mu.Unlock()
}

// RecordKill records a completed tree kill sweep. Trigger is "manual" or
// "timeout".
func (c *Collector) RecordKill(trigger string, passes int, sweep time.Duration, survivors int) {
	procKillsTotal.WithLabelValues(trigger).Inc()
	procKillPasses.Observe(float64(passes))
	procKillSweepSeconds.Observe(sweep.Seconds())
	if survivors > 0 {
		procKillSurvivorsTotal.Add(float64(survivors))
	}
	if trigger == "timeout" {
		procTimeoutsTotal.Inc()
	}

	c.mu.Lock()
	c.totalKills++
	if trigger == "timeout" {
		c.totalTimeouts++
	}
	c.mu.Unlock()
}

// SetDescendants updates the live descendant count.
func (c *Collector) SetDescendants(n int) {
	procDescendants.Set(float64(n))

	c.mu.Lock()
	if n > c.peakDescendants {
		c.peakDescendants = n
	}
	c.mu.Unlock()
}

// SetUptime updates the current process uptime gauge.
func (c *Collector) SetUptime(d time.Duration) {
	procUptimeSeconds.Set(d.Seconds())
	procElapsedSeconds.Set(time.Since(c.startTime).Seconds())
}

// AddOutput records drained output by stream.
func (c *Collector) AddOutput(stream string, bytes, lines int64) {
	if bytes > 0 {
		procOutputBytesTotal.WithLabelValues(stream).Add(float64(bytes))
	}
	if lines > 0 {
		procOutputLinesTotal.WithLabelValues(stream).Add(float64(lines))
	}
}

// SetOutputThroughput updates the current output throughput gauge.
func (c *Collector) SetOutputThroughput(bytesPerSec float64) {
	procOutputBytesPerSec.Set(bytesPerSec)
}

// SetLifetimePercentiles updates the lifetime percentile gauges.
func (c *Collector) SetLifetimePercentiles(p50, p95, p99 time.Duration) {
	procLifetimeP50Seconds.Set(p50.Seconds())
	procLifetimeP95Seconds.Set(p95.Seconds())
	procLifetimeP99Seconds.Set(p99.Seconds())
}

// =============================================================================
// Summary Generation
// =============================================================================

// Summary holds the data for generating an exit summary.
type Summary struct {
	Duration        time.Duration
	Command         string
	TotalLaunches   int64
	TotalRestarts   int64
	TotalKills      int64
	TotalTimeouts   int64
	PeakDescendants int
	ExitCodes       map[int]int64
	LifetimeP50     time.Duration
	LifetimeP95     time.Duration
	LifetimeP99     time.Duration
}

// GenerateSummary creates a summary of the run.
func (c *Collector) GenerateSummary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Summary{
		Duration:        time.Since(c.startTime),
		Command:         c.command,
		TotalLaunches:   c.totalLaunches,
		TotalRestarts:   c.totalRestarts,
		TotalKills:      c.totalKills,
		TotalTimeouts:   c.totalTimeouts,
		PeakDescendants: c.peakDescendants,
		ExitCodes:       make(map[int]int64),
	}

	// Copy exit codes
	for code, count := range c.exitCodes {
		s.ExitCodes[code] = count
	}

	// Calculate percentiles
	if len(c.lifetimes) > 0 {
		sorted := make([]time.Duration, len(c.lifetimes))
		copy(sorted, c.lifetimes)
		sortDurations(sorted)

		s.LifetimeP50 = percentile(sorted, 0.50)
		s.LifetimeP95 = percentile(sorted, 0.95)
		s.LifetimeP99 = percentile(sorted, 0.99)
	}

	return s
}

// TotalLaunches returns the total number of launches.
func (c *Collector) TotalLaunches() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLaunches
}

// TotalRestarts returns the total number of restarts.
func (c *Collector) TotalRestarts() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRestarts
}

// PeakDescendants returns the peak descendant count observed.
func (c *Collector) PeakDescendants() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peakDescendants
}

// =============================================================================
// Helper Functions
// =============================================================================

// ExitCodeLabel formats an exit code for display, folding signal codes.
func ExitCodeLabel(code int) string {
	if code > 128 {
		return "signal(" + strconv.Itoa(code-128) + ")"
	}
	return strconv.Itoa(code)
}

// sortDurations sorts a slice of durations in place.
func sortDurations(d []time.Duration) {
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j] < d[j-1]; j-- {
			d[j], d[j-1] = d[j-1], d[j]
		}
	}
}

// percentile returns the value at the given percentile (0.0-1.0).
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
