package supervisor

import (
	"testing"
	"time"
)

// =============================================================================
// Tests: Backoff delay growth
// =============================================================================

func TestBackoffGrowthAndCap(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        1 * time.Second,
		Multiplier: 2.0,
		JitterPct:  0,
	}
	b := NewBackoff(0, cfg)

	// Restart delays double per crash until the cap, then hold there.
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second,
		1 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i+1, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(want))
	}
}

func TestBackoffCalculateDoesNotAdvance(t *testing.T) {
	b := NewBackoff(0, BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2.0,
	})

	if d := b.Calculate(); d != 100*time.Millisecond {
		t.Errorf("Calculate() = %v, want 100ms", d)
	}
	if b.Attempts() != 0 {
		t.Errorf("Attempts() after Calculate = %d, want 0", b.Attempts())
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(0, BackoffConfig{
		Initial:    100 * time.Millisecond,
		Max:        time.Second,
		Multiplier: 2.0,
	})

	b.Next()
	b.Next()
	b.Reset()

	if b.Attempts() != 0 {
		t.Errorf("Attempts() after Reset = %d, want 0", b.Attempts())
	}
	if d := b.Next(); d != 100*time.Millisecond {
		t.Errorf("Next() after Reset = %v, want 100ms", d)
	}
}

func TestBackoffZeroInitial(t *testing.T) {
	b := NewBackoff(0, BackoffConfig{Max: time.Second, Multiplier: 2.0})

	if d := b.Calculate(); d != 0 {
		t.Errorf("Calculate() with zero initial = %v, want 0", d)
	}
}

// =============================================================================
// Tests: Jitter
// =============================================================================

func TestBackoffJitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		Initial:    time.Second,
		Max:        10 * time.Second,
		Multiplier: 1.0,
		JitterPct:  0.4,
	}
	b := NewBackoff(7, cfg)

	// JitterPct 0.4 spreads the delay across plus or minus 20 percent.
	for i := 0; i < 50; i++ {
		d := b.Calculate()
		if d < 800*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("sample %d = %v, want within [800ms, 1200ms]", i, d)
		}
	}
}

func TestBackoffJitterSeeding(t *testing.T) {
	cfg := DefaultBackoffConfig()

	// The same seed replays the same delay sequence; distinct seeds
	// diverge so a fleet of supervisors does not restart in lockstep.
	same1, same2 := NewBackoff(12345, cfg), NewBackoff(12345, cfg)
	other := NewBackoff(54321, cfg)

	diverged := false
	for i := 0; i < 10; i++ {
		d1, d2, d3 := same1.Next(), same2.Next(), other.Next()
		if d1 != d2 {
			t.Fatalf("iteration %d: same seed gave %v and %v", i, d1, d2)
		}
		if d1 != d3 {
			diverged = true
		}
	}
	if !diverged {
		t.Error("distinct seeds produced identical delay sequences")
	}
}

// =============================================================================
// Tests: ShouldReset
// =============================================================================

func TestShouldReset(t *testing.T) {
	tests := []struct {
		name   string
		uptime time.Duration
		status ExitStatus
		want   bool
	}{
		{"clean exit after brief run", time.Second, ExitStatus{Code: 0}, true},
		{"crash after stable run", time.Minute, ExitStatus{Code: 1}, true},
		{"crash loop", time.Second, ExitStatus{Code: 1}, false},
		{"uptime exactly at threshold", BackoffResetThreshold, ExitStatus{Code: 137}, true},
		{"supervisor kill after stable run", time.Minute, ExitStatus{Code: 137, Killed: true}, false},
		{"watchdog kill of a fast child", time.Second, ExitStatus{Code: 137, Killed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReset(tt.uptime, tt.status); got != tt.want {
				t.Errorf("ShouldReset(%v, %+v) = %v, want %v", tt.uptime, tt.status, got, tt.want)
			}
		})
	}
}
