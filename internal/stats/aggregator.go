// Package stats provides per-run and aggregated statistics for process supervision.
//
// This file implements Aggregator which accumulates metrics across all
// generations of the supervised process:
// - Run records (lifetime, exit code, kill and timeout flags)
// - Output totals and rates
// - Lifetime percentiles (T-Digest, constant memory)
// - Kill sweep durations and survivor counts
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/influxdata/tdigest"
)

// RunRecord is the terminal record of one completed process generation.
type RunRecord struct {
	Generation int
	Pid        int
	StartTime  time.Time
	Lifetime   time.Duration
	ExitCode   int
	Killed     bool
	TimedOut   bool

	StdoutLines int64
	StderrLines int64
	StdoutBytes int64
	StderrBytes int64
	ErrorLines  int64

	PeakDescendants int
}

// AggregatedStats holds metrics across all generations.
//
// This is a snapshot - values are computed at the time of Aggregate() call.
type AggregatedStats struct {
	// Timestamp when this snapshot was taken
	Timestamp time.Time

	// Lifecycle
	TotalRuns         int
	Restarts          int
	Running           bool
	CurrentGeneration int
	CurrentPid        int
	CurrentUptime     time.Duration

	// Output totals
	TotalStdoutLines int64
	TotalStderrLines int64
	TotalStdoutBytes int64
	TotalStderrBytes int64
	TotalErrorLines  int64

	// Rates (per second) - calculated from start time
	LineRate              float64
	ThroughputBytesPerSec float64

	// Instantaneous rates (per second) - calculated from last snapshot
	InstantLineRate       float64
	InstantThroughputRate float64

	// Termination
	Kills      int
	Timeouts   int
	CleanExits int
	ErrorExits int
	ExitCodes  map[int]int64

	// Kill sweep health
	KillSweeps    int
	KillSweepAvg  time.Duration
	KillSweepMax  time.Duration
	KillSurvivors int64

	// Lifetime distribution (from T-Digest)
	LifetimeP50 time.Duration
	LifetimeP95 time.Duration
	LifetimeP99 time.Duration
	MinLifetime time.Duration
	MaxLifetime time.Duration
	AvgLifetime time.Duration

	// Tree health
	PeakDescendants int

	// Output health
	Quiet bool

	// Per-run records (optional, for detailed views)
	RunHistory []RunRecord
}

// Aggregator accumulates stats across process generations.
//
// Thread-safe: all methods can be called concurrently.
type Aggregator struct {
	mu        sync.RWMutex
	runs      []RunRecord
	current   *RunStats
	startTime time.Time

	// lifetimeDigest holds completed run lifetimes in seconds.
	// TDigest is not thread-safe, guarded by mu.
	lifetimeDigest *tdigest.TDigest

	// Kill sweep accumulators
	sweepCount    int
	sweepTotal    time.Duration
	sweepMax      time.Duration
	killSurvivors int64
	kills         int
	timeouts      int

	// For rate calculations (using atomic.Value for lock-free access)
	prevSnapshot atomic.Value // *rateSnapshot
}

// rateSnapshot holds values for calculating instantaneous rates
type rateSnapshot struct {
	timestamp time.Time
	lines     int64
	bytes     int64
}

// NewAggregator creates a new aggregator.
func NewAggregator() *Aggregator {
	agg := &Aggregator{
		startTime:      time.Now(),
		lifetimeDigest: tdigest.NewWithCompression(100), // ~100 centroids, ~10KB
	}
	agg.prevSnapshot.Store(&rateSnapshot{
		timestamp: time.Now(),
	})
	return agg
}

// StartRun registers a new process generation and returns its RunStats.
// Any previous generation must have been finished first.
func (a *Aggregator) StartRun(generation, pid int) *RunStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = NewRunStats(generation, pid)
	return a.current
}

// FinishRun closes out the current generation with its terminal outcome.
// Returns the completed record, or a zero record if no run was in flight.
func (a *Aggregator) FinishRun(exitCode int, killed, timedOut bool) RunRecord {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return RunRecord{}
	}

	s := a.current
	rec := RunRecord{
		Generation:      s.Generation,
		Pid:             s.Pid,
		StartTime:       s.StartTime,
		Lifetime:        time.Since(s.StartTime),
		ExitCode:        exitCode,
		Killed:          killed,
		TimedOut:        timedOut,
		StdoutLines:     s.StdoutLines.Load(),
		StderrLines:     s.StderrLines.Load(),
		StdoutBytes:     s.StdoutBytes(),
		StderrBytes:     s.StderrBytes(),
		ErrorLines:      s.ErrorLines.Load(),
		PeakDescendants: s.PeakDescendants(),
	}

	a.runs = append(a.runs, rec)
	a.lifetimeDigest.Add(rec.Lifetime.Seconds(), 1)
	if killed {
		a.kills++
	}
	if timedOut {
		a.timeouts++
	}
	a.current = nil
	return rec
}

// Current returns the in-flight RunStats, or nil if no run is active.
func (a *Aggregator) Current() *RunStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// RunCount returns the number of completed runs.
func (a *Aggregator) RunCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.runs)
}

// RecordKillSweep records one tree termination sweep.
func (a *Aggregator) RecordKillSweep(elapsed time.Duration, survivors int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sweepCount++
	a.sweepTotal += elapsed
	if elapsed > a.sweepMax {
		a.sweepMax = elapsed
	}
	a.killSurvivors += int64(survivors)
}

// StartTime returns when the aggregator was created.
func (a *Aggregator) StartTime() time.Time {
	return a.startTime
}

// Elapsed returns the duration since the aggregator was created.
func (a *Aggregator) Elapsed() time.Duration {
	return time.Since(a.startTime)
}

// Aggregate computes aggregated statistics across all generations.
//
// This creates a snapshot of current metrics. The returned struct is
// safe to use after the call returns.
func (a *Aggregator) Aggregate() *AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	now := time.Now()
	elapsed := now.Sub(a.startTime).Seconds()

	// Get previous snapshot for rate calculations (lock-free)
	var prevSnapshot *rateSnapshot
	if p := a.prevSnapshot.Load(); p != nil {
		prevSnapshot = p.(*rateSnapshot)
	}

	result := &AggregatedStats{
		Timestamp: now,
		TotalRuns: len(a.runs),
		ExitCodes: make(map[int]int64),
	}
	if a.current != nil {
		result.TotalRuns++
		result.Running = true
		result.CurrentGeneration = a.current.Generation
		result.CurrentPid = a.current.Pid
		result.CurrentUptime = a.current.Uptime()
		result.Quiet = a.current.IsQuiet()
	}
	if result.TotalRuns > 1 {
		result.Restarts = result.TotalRuns - 1
	}

	// Completed runs
	var totalLifetime time.Duration
	for _, r := range a.runs {
		result.TotalStdoutLines += r.StdoutLines
		result.TotalStderrLines += r.StderrLines
		result.TotalStdoutBytes += r.StdoutBytes
		result.TotalStderrBytes += r.StderrBytes
		result.TotalErrorLines += r.ErrorLines

		result.ExitCodes[r.ExitCode]++
		switch {
		case r.Killed:
			// counted via kills below
		case r.ExitCode == 0:
			result.CleanExits++
		default:
			result.ErrorExits++
		}

		totalLifetime += r.Lifetime
		if result.MinLifetime == 0 || r.Lifetime < result.MinLifetime {
			result.MinLifetime = r.Lifetime
		}
		if r.Lifetime > result.MaxLifetime {
			result.MaxLifetime = r.Lifetime
		}
		if r.PeakDescendants > result.PeakDescendants {
			result.PeakDescendants = r.PeakDescendants
		}
	}
	if len(a.runs) > 0 {
		result.AvgLifetime = totalLifetime / time.Duration(len(a.runs))
		result.LifetimeP50 = time.Duration(a.lifetimeDigest.Quantile(0.50) * float64(time.Second))
		result.LifetimeP95 = time.Duration(a.lifetimeDigest.Quantile(0.95) * float64(time.Second))
		result.LifetimeP99 = time.Duration(a.lifetimeDigest.Quantile(0.99) * float64(time.Second))
	}

	// In-flight run
	if a.current != nil {
		result.TotalStdoutLines += a.current.StdoutLines.Load()
		result.TotalStderrLines += a.current.StderrLines.Load()
		result.TotalStdoutBytes += a.current.StdoutBytes()
		result.TotalStderrBytes += a.current.StderrBytes()
		result.TotalErrorLines += a.current.ErrorLines.Load()
		if a.current.PeakDescendants() > result.PeakDescendants {
			result.PeakDescendants = a.current.PeakDescendants()
		}
	}

	result.Kills = a.kills
	result.Timeouts = a.timeouts
	result.KillSweeps = a.sweepCount
	result.KillSweepMax = a.sweepMax
	result.KillSurvivors = a.killSurvivors
	if a.sweepCount > 0 {
		result.KillSweepAvg = a.sweepTotal / time.Duration(a.sweepCount)
	}

	totalLines := result.TotalStdoutLines + result.TotalStderrLines
	totalBytes := result.TotalStdoutBytes + result.TotalStderrBytes

	// Calculate rates from start time
	if elapsed > 0 {
		result.LineRate = float64(totalLines) / elapsed
		result.ThroughputBytesPerSec = float64(totalBytes) / elapsed
	}

	// Calculate instantaneous rates from previous snapshot
	if prevSnapshot != nil {
		snapElapsed := now.Sub(prevSnapshot.timestamp).Seconds()
		if snapElapsed > 0 {
			result.InstantLineRate = float64(totalLines-prevSnapshot.lines) / snapElapsed
			result.InstantThroughputRate = float64(totalBytes-prevSnapshot.bytes) / snapElapsed
		}
	}

	result.RunHistory = make([]RunRecord, len(a.runs))
	copy(result.RunHistory, a.runs)

	// Update previous snapshot for next rate calculation (lock-free)
	a.prevSnapshot.Store(&rateSnapshot{
		timestamp: now,
		lines:     totalLines,
		bytes:     totalBytes,
	})

	return result
}

// Reset clears all runs and resets the start time.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runs = nil
	a.current = nil
	a.startTime = time.Now()
	a.lifetimeDigest = tdigest.NewWithCompression(100)
	a.sweepCount = 0
	a.sweepTotal = 0
	a.sweepMax = 0
	a.killSurvivors = 0
	a.kills = 0
	a.timeouts = 0
	a.prevSnapshot.Store(&rateSnapshot{
		timestamp: time.Now(),
	})
}
