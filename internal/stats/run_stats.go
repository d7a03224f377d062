// Package stats provides per-run and aggregated statistics for process supervision.
//
// This file implements RunStats which tracks metrics for a single process
// generation (one launch, up to its exit):
// - Output line and byte counts per stream
// - Error-pattern line counts
// - Descendant process counts (current and peak)
// - Quiet detection (no output for too long)
package stats

import (
	"sync/atomic"
	"time"
)

// Constants for quiet and descendant detection
const (
	// QuietDuration is how long a running process can produce no output
	// before it is flagged as quiet
	QuietDuration = 5 * time.Second

	// HighDescendantThreshold is the descendant count above which we flag a run
	HighDescendantThreshold = 50
)

// RunStats holds statistics for one process generation.
//
// Thread-safe: all fields are atomics, writers never block readers.
type RunStats struct {
	// Generation is 0 for the first launch, incremented per restart
	Generation int
	Pid        int
	StartTime  time.Time

	// Output counts (atomic, lock-free)
	StdoutLines atomic.Int64
	StderrLines atomic.Int64
	stdoutBytes atomic.Int64
	stderrBytes atomic.Int64

	// ErrorLines counts output lines matching known error patterns
	ErrorLines atomic.Int64

	// lastOutputAt is the unix-nano timestamp of the most recent output line.
	// Zero means no output has been seen yet.
	lastOutputAt atomic.Int64

	// Descendant tracking
	descendants     atomic.Int64
	peakDescendants atomic.Int64
}

// NewRunStats creates stats for a process generation.
func NewRunStats(generation, pid int) *RunStats {
	return &RunStats{
		Generation: generation,
		Pid:        pid,
		StartTime:  time.Now(),
	}
}

// --- Output Counting ---

// RecordStdoutLine records a line drained from stdout.
// Uses atomic operations for lock-free access.
func (s *RunStats) RecordStdoutLine(bytes int64) {
	s.StdoutLines.Add(1)
	s.stdoutBytes.Add(bytes)
	s.lastOutputAt.Store(time.Now().UnixNano())
}

// RecordStderrLine records a line drained from stderr.
// Uses atomic operations for lock-free access.
func (s *RunStats) RecordStderrLine(bytes int64) {
	s.StderrLines.Add(1)
	s.stderrBytes.Add(bytes)
	s.lastOutputAt.Store(time.Now().UnixNano())
}

// RecordErrorLine records an output line matching an error pattern.
func (s *RunStats) RecordErrorLine() {
	s.ErrorLines.Add(1)
}

// TotalLines returns lines drained across both streams.
func (s *RunStats) TotalLines() int64 {
	return s.StdoutLines.Load() + s.StderrLines.Load()
}

// TotalBytes returns bytes drained across both streams.
func (s *RunStats) TotalBytes() int64 {
	return s.stdoutBytes.Load() + s.stderrBytes.Load()
}

// StdoutBytes returns bytes drained from stdout.
func (s *RunStats) StdoutBytes() int64 {
	return s.stdoutBytes.Load()
}

// StderrBytes returns bytes drained from stderr.
func (s *RunStats) StderrBytes() int64 {
	return s.stderrBytes.Load()
}

// --- Quiet Detection ---

// IsQuiet returns true if the run has produced output before but none
// within QuietDuration. A run that has never produced output is not quiet.
func (s *RunStats) IsQuiet() bool {
	last := s.lastOutputAt.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(0, last)) > QuietDuration
}

// LastOutputAt returns when the most recent output line arrived.
// Returns the zero time if no output has been seen.
func (s *RunStats) LastOutputAt() time.Time {
	last := s.lastOutputAt.Load()
	if last == 0 {
		return time.Time{}
	}
	return time.Unix(0, last)
}

// --- Descendant Tracking ---

// UpdateDescendants records the current descendant count from a tree snapshot.
// Tracks the peak using a CAS loop for a lock-free max operation.
func (s *RunStats) UpdateDescendants(n int) {
	s.descendants.Store(int64(n))

	for {
		oldPeak := s.peakDescendants.Load()
		if int64(n) <= oldPeak {
			break
		}
		if s.peakDescendants.CompareAndSwap(oldPeak, int64(n)) {
			break
		}
		// Retry on CAS failure (another goroutine updated it)
	}
}

// Descendants returns the most recently observed descendant count.
func (s *RunStats) Descendants() int {
	return int(s.descendants.Load())
}

// PeakDescendants returns the highest descendant count observed.
func (s *RunStats) PeakDescendants() int {
	return int(s.peakDescendants.Load())
}

// HasHighDescendants returns true if the peak exceeds the threshold.
func (s *RunStats) HasHighDescendants() bool {
	return s.peakDescendants.Load() > HighDescendantThreshold
}

// --- Uptime ---

// Uptime returns how long this generation has been running.
func (s *RunStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// --- Summary ---

// RunSummary is a snapshot of one generation's key metrics.
type RunSummary struct {
	Generation      int
	Pid             int
	Uptime          time.Duration
	StdoutLines     int64
	StderrLines     int64
	StdoutBytes     int64
	StderrBytes     int64
	ErrorLines      int64
	Descendants     int
	PeakDescendants int
	IsQuiet         bool
}

// GetSummary returns a snapshot of all key metrics.
func (s *RunStats) GetSummary() RunSummary {
	return RunSummary{
		Generation:      s.Generation,
		Pid:             s.Pid,
		Uptime:          s.Uptime(),
		StdoutLines:     s.StdoutLines.Load(),
		StderrLines:     s.StderrLines.Load(),
		StdoutBytes:     s.stdoutBytes.Load(),
		StderrBytes:     s.stderrBytes.Load(),
		ErrorLines:      s.ErrorLines.Load(),
		Descendants:     s.Descendants(),
		PeakDescendants: s.PeakDescendants(),
		IsQuiet:         s.IsQuiet(),
	}
}
