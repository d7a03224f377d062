package stats

import (
	"testing"
	"time"
)

func TestNewAggregator(t *testing.T) {
	agg := NewAggregator()

	if agg.RunCount() != 0 {
		t.Errorf("RunCount = %d, want 0", agg.RunCount())
	}
	if agg.StartTime().IsZero() {
		t.Error("StartTime should not be zero")
	}
	if agg.Current() != nil {
		t.Error("Current should be nil before StartRun")
	}
}

func TestAggregator_StartAndFinishRun(t *testing.T) {
	agg := NewAggregator()

	run := agg.StartRun(0, 100)
	if run == nil {
		t.Fatal("StartRun returned nil")
	}
	if agg.Current() != run {
		t.Error("Current should return the started run")
	}

	run.RecordStdoutLine(10)
	run.RecordStderrLine(20)

	rec := agg.FinishRun(0, false, false)

	if rec.Generation != 0 || rec.Pid != 100 {
		t.Errorf("record = gen %d pid %d, want gen 0 pid 100", rec.Generation, rec.Pid)
	}
	if rec.ExitCode != 0 || rec.Killed || rec.TimedOut {
		t.Errorf("record outcome = %d/%t/%t, want 0/false/false", rec.ExitCode, rec.Killed, rec.TimedOut)
	}
	if rec.StdoutLines != 1 || rec.StderrLines != 1 {
		t.Errorf("record lines = %d/%d, want 1/1", rec.StdoutLines, rec.StderrLines)
	}
	if agg.RunCount() != 1 {
		t.Errorf("RunCount = %d, want 1", agg.RunCount())
	}
	if agg.Current() != nil {
		t.Error("Current should be nil after FinishRun")
	}
}

func TestAggregator_FinishRunWithoutStart(t *testing.T) {
	agg := NewAggregator()

	rec := agg.FinishRun(1, false, false)
	if rec.StartTime != (time.Time{}) {
		t.Error("FinishRun without a run should return a zero record")
	}
	if agg.RunCount() != 0 {
		t.Errorf("RunCount = %d, want 0", agg.RunCount())
	}
}

func TestAggregator_AggregateEmpty(t *testing.T) {
	agg := NewAggregator()

	result := agg.Aggregate()

	if result.TotalRuns != 0 {
		t.Errorf("TotalRuns = %d, want 0", result.TotalRuns)
	}
	if result.Running {
		t.Error("Running should be false with no run in flight")
	}
	if len(result.ExitCodes) != 0 {
		t.Errorf("ExitCodes has %d entries, want 0", len(result.ExitCodes))
	}
}

func TestAggregator_AggregateOutputTotals(t *testing.T) {
	agg := NewAggregator()

	run := agg.StartRun(0, 1)
	run.RecordStdoutLine(100)
	run.RecordStdoutLine(100)
	run.RecordStderrLine(50)
	agg.FinishRun(0, false, false)

	run2 := agg.StartRun(1, 2)
	run2.RecordStdoutLine(25)

	result := agg.Aggregate()

	if result.TotalRuns != 2 {
		t.Errorf("TotalRuns = %d, want 2", result.TotalRuns)
	}
	if result.Restarts != 1 {
		t.Errorf("Restarts = %d, want 1", result.Restarts)
	}
	if !result.Running {
		t.Error("Running should be true with a run in flight")
	}
	if result.TotalStdoutLines != 3 {
		t.Errorf("TotalStdoutLines = %d, want 3", result.TotalStdoutLines)
	}
	if result.TotalStderrLines != 1 {
		t.Errorf("TotalStderrLines = %d, want 1", result.TotalStderrLines)
	}
	if result.TotalStdoutBytes != 225 {
		t.Errorf("TotalStdoutBytes = %d, want 225", result.TotalStdoutBytes)
	}
	if result.TotalStderrBytes != 50 {
		t.Errorf("TotalStderrBytes = %d, want 50", result.TotalStderrBytes)
	}
}

func TestAggregator_AggregateExitOutcomes(t *testing.T) {
	agg := NewAggregator()

	agg.StartRun(0, 1)
	agg.FinishRun(0, false, false) // clean

	agg.StartRun(1, 2)
	agg.FinishRun(1, false, false) // error

	agg.StartRun(2, 3)
	agg.FinishRun(137, true, true) // timed out, killed

	result := agg.Aggregate()

	if result.CleanExits != 1 {
		t.Errorf("CleanExits = %d, want 1", result.CleanExits)
	}
	if result.ErrorExits != 1 {
		t.Errorf("ErrorExits = %d, want 1", result.ErrorExits)
	}
	if result.Kills != 1 {
		t.Errorf("Kills = %d, want 1", result.Kills)
	}
	if result.Timeouts != 1 {
		t.Errorf("Timeouts = %d, want 1", result.Timeouts)
	}
	if result.ExitCodes[0] != 1 || result.ExitCodes[1] != 1 || result.ExitCodes[137] != 1 {
		t.Errorf("ExitCodes = %v, want one each of 0, 1, 137", result.ExitCodes)
	}
}

func TestAggregator_LifetimePercentiles(t *testing.T) {
	agg := NewAggregator()

	// Backdate start times to create known lifetimes
	for i := 0; i < 10; i++ {
		run := agg.StartRun(i, i+1)
		run.StartTime = time.Now().Add(-time.Duration(i+1) * time.Second)
		agg.FinishRun(0, false, false)
	}

	result := agg.Aggregate()

	if result.LifetimeP50 <= 0 {
		t.Errorf("LifetimeP50 = %v, want > 0", result.LifetimeP50)
	}
	if result.LifetimeP99 < result.LifetimeP50 {
		t.Errorf("P99 (%v) < P50 (%v)", result.LifetimeP99, result.LifetimeP50)
	}
	if result.MinLifetime <= 0 || result.MaxLifetime < result.MinLifetime {
		t.Errorf("Min/Max = %v/%v, want 0 < Min <= Max", result.MinLifetime, result.MaxLifetime)
	}
	if result.AvgLifetime <= 0 {
		t.Errorf("AvgLifetime = %v, want > 0", result.AvgLifetime)
	}
}

func TestAggregator_KillSweeps(t *testing.T) {
	agg := NewAggregator()

	agg.RecordKillSweep(100*time.Millisecond, 0)
	agg.RecordKillSweep(300*time.Millisecond, 2)

	result := agg.Aggregate()

	if result.KillSweeps != 2 {
		t.Errorf("KillSweeps = %d, want 2", result.KillSweeps)
	}
	if result.KillSweepMax != 300*time.Millisecond {
		t.Errorf("KillSweepMax = %v, want 300ms", result.KillSweepMax)
	}
	if result.KillSweepAvg != 200*time.Millisecond {
		t.Errorf("KillSweepAvg = %v, want 200ms", result.KillSweepAvg)
	}
	if result.KillSurvivors != 2 {
		t.Errorf("KillSurvivors = %d, want 2", result.KillSurvivors)
	}
}

func TestAggregator_PeakDescendants(t *testing.T) {
	agg := NewAggregator()

	run := agg.StartRun(0, 1)
	run.UpdateDescendants(5)
	agg.FinishRun(0, false, false)

	run2 := agg.StartRun(1, 2)
	run2.UpdateDescendants(3)

	result := agg.Aggregate()

	if result.PeakDescendants != 5 {
		t.Errorf("PeakDescendants = %d, want 5", result.PeakDescendants)
	}
}

func TestAggregator_RunHistory(t *testing.T) {
	agg := NewAggregator()

	agg.StartRun(0, 1)
	agg.FinishRun(0, false, false)
	agg.StartRun(1, 2)
	agg.FinishRun(1, false, false)

	result := agg.Aggregate()

	if len(result.RunHistory) != 2 {
		t.Fatalf("RunHistory has %d entries, want 2", len(result.RunHistory))
	}
	if result.RunHistory[0].Generation != 0 || result.RunHistory[1].Generation != 1 {
		t.Errorf("RunHistory generations = %d, %d, want 0, 1",
			result.RunHistory[0].Generation, result.RunHistory[1].Generation)
	}
}

func TestAggregator_Reset(t *testing.T) {
	agg := NewAggregator()

	agg.StartRun(0, 1)
	agg.FinishRun(0, false, false)
	agg.RecordKillSweep(time.Millisecond, 1)

	agg.Reset()

	if agg.RunCount() != 0 {
		t.Errorf("RunCount = %d after Reset, want 0", agg.RunCount())
	}
	result := agg.Aggregate()
	if result.TotalRuns != 0 || result.KillSweeps != 0 || result.KillSurvivors != 0 {
		t.Errorf("Aggregate after Reset = %d runs, %d sweeps, %d survivors, want zeros",
			result.TotalRuns, result.KillSweeps, result.KillSurvivors)
	}
}

func TestAggregator_InstantaneousRates(t *testing.T) {
	agg := NewAggregator()

	run := agg.StartRun(0, 1)
	run.RecordStdoutLine(100)

	// First aggregate establishes the snapshot
	agg.Aggregate()

	run.RecordStdoutLine(100)
	time.Sleep(10 * time.Millisecond)

	result := agg.Aggregate()

	if result.InstantLineRate <= 0 {
		t.Errorf("InstantLineRate = %f, want > 0", result.InstantLineRate)
	}
	if result.InstantThroughputRate <= 0 {
		t.Errorf("InstantThroughputRate = %f, want > 0", result.InstantThroughputRate)
	}
}
