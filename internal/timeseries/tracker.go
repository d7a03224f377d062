// Package timeseries tracks the volume of output drained from a supervised
// child and derives rolling per-second rates for bytes and lines.
//
// The drain goroutines feed Observe, a one-second sampler calls Tick, and
// readers (metrics, TUI) pull Rates. Observe is lock-free; Tick and Rates
// share a ring of cumulative-counter snapshots bounded at five minutes of
// history.
package timeseries

import (
	"sync"
	"sync/atomic"
	"time"
)

// historySize bounds the sample ring (5 minutes at one sample per second).
const historySize = 300

// Clock abstracts time.Now so tests can drive the tracker deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// sample is a snapshot of the cumulative counters at one instant.
type sample struct {
	at    time.Time
	bytes int64
	lines int64
}

// Tracker accumulates drained-output counters and keeps a bounded sample
// history from which rolling rates are computed.
type Tracker struct {
	bytes atomic.Int64
	lines atomic.Int64

	mu      sync.RWMutex
	ring    [historySize]sample
	count   int // valid samples in the ring, capped at historySize
	head    int // index of the newest sample
	started time.Time

	clock Clock
}

// WindowedRate is a per-second rate over the trailing windows the tracker
// maintains, plus the rate since tracking began.
type WindowedRate struct {
	Last1s   float64
	Last30s  float64
	Last5m   float64
	Lifetime float64
}

// Rates holds the cumulative totals and the derived per-second rates for
// bytes and lines.
type Rates struct {
	TotalBytes int64
	TotalLines int64

	BytesPerSec WindowedRate
	LinesPerSec WindowedRate
}

// New creates a Tracker on the system clock.
func New() *Tracker {
	return NewWithClock(systemClock{})
}

// NewWithClock creates a Tracker on the given clock. The history starts
// with a zero sample so rates are defined from the first read.
func NewWithClock(clock Clock) *Tracker {
	t := &Tracker{clock: clock}
	now := clock.Now()
	t.started = now
	t.ring[0] = sample{at: now}
	t.count = 1
	return t
}

// Observe records one drained line of n bytes. Lock-free, safe to call
// concurrently from both drain goroutines.
func (t *Tracker) Observe(n int64) {
	if n > 0 {
		t.bytes.Add(n)
	}
	t.lines.Add(1)
}

// Tick snapshots the cumulative counters into the history. Call once per
// second from the sampler loop.
func (t *Tracker) Tick() {
	s := sample{
		at:    t.clock.Now(),
		bytes: t.bytes.Load(),
		lines: t.lines.Load(),
	}

	t.mu.Lock()
	t.head = (t.head + 1) % historySize
	t.ring[t.head] = s
	if t.count < historySize {
		t.count++
	}
	t.mu.Unlock()
}

// Rates computes the current rolling rates. A window the history does not
// reach back to falls back to the oldest retained sample, so early reads
// report the rate over whatever history exists.
func (t *Tracker) Rates() Rates {
	now := t.clock.Now()
	bytes := t.bytes.Load()
	lines := t.lines.Load()

	t.mu.RLock()
	defer t.mu.RUnlock()

	r := Rates{TotalBytes: bytes, TotalLines: lines}
	if lifetime := now.Sub(t.started).Seconds(); lifetime > 0 {
		r.BytesPerSec.Lifetime = float64(bytes) / lifetime
		r.LinesPerSec.Lifetime = float64(lines) / lifetime
	}

	windows := []struct {
		d time.Duration
		b *float64
		l *float64
	}{
		{time.Second, &r.BytesPerSec.Last1s, &r.LinesPerSec.Last1s},
		{30 * time.Second, &r.BytesPerSec.Last30s, &r.LinesPerSec.Last30s},
		{5 * time.Minute, &r.BytesPerSec.Last5m, &r.LinesPerSec.Last5m},
	}
	for _, w := range windows {
		base := t.sampleAtOrBefore(now.Add(-w.d))
		elapsed := now.Sub(base.at).Seconds()
		if elapsed <= 0 {
			continue
		}
		*w.b = float64(bytes-base.bytes) / elapsed
		*w.l = float64(lines-base.lines) / elapsed
	}
	return r
}

// sampleAtOrBefore walks the ring newest-first and returns the most recent
// sample at or before cutoff, or the oldest retained sample when the
// history does not reach that far back. Caller holds mu.
func (t *Tracker) sampleAtOrBefore(cutoff time.Time) sample {
	idx := t.head
	for i := 0; i < t.count; i++ {
		s := t.ring[idx]
		if !s.at.After(cutoff) {
			return s
		}
		idx--
		if idx < 0 {
			idx = historySize - 1
		}
	}
	oldest := (t.head - t.count + 1 + historySize) % historySize
	return t.ring[oldest]
}

// Reset discards the history and restarts the counters, for reuse across
// restart generations.
func (t *Tracker) Reset() {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bytes.Store(0)
	t.lines.Store(0)
	t.ring[0] = sample{at: now}
	t.count = 1
	t.head = 0
	t.started = now
}

// SampleCount reports how many samples the history currently holds.
func (t *Tracker) SampleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}
