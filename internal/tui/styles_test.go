package tui

import (
	"strings"
	"testing"
)

func TestGetProcessState(t *testing.T) {
	tests := []struct {
		name    string
		running bool
		quiet   bool
		want    ProcessState
	}{
		{"running", true, false, ProcessStateRunning},
		{"running quiet", true, true, ProcessStateQuiet},
		{"stopped", false, false, ProcessStateStopped},
		{"stopped quiet", false, true, ProcessStateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetProcessState(tt.running, tt.quiet); got != tt.want {
				t.Errorf("GetProcessState(%t, %t) = %d, want %d", tt.running, tt.quiet, got, tt.want)
			}
		})
	}
}

func TestGetProcessLabel(t *testing.T) {
	if !strings.Contains(GetProcessLabel(true, false), "running") {
		t.Error("running label should say running")
	}
	if !strings.Contains(GetProcessLabel(true, true), "quiet") {
		t.Error("quiet label should say quiet")
	}
	if !strings.Contains(GetProcessLabel(false, false), "stopped") {
		t.Error("stopped label should say stopped")
	}
}

func TestGetErrorRateStyle(t *testing.T) {
	if GetErrorRateStyle(0).GetForeground() != valueGoodStyle.GetForeground() {
		t.Error("zero error rate should use good style")
	}
	if GetErrorRateStyle(0.005).GetForeground() != valueWarnStyle.GetForeground() {
		t.Error("sub-percent error rate should use warn style")
	}
	if GetErrorRateStyle(0.05).GetForeground() != valueBadStyle.GetForeground() {
		t.Error("high error rate should use bad style")
	}
}

func TestRenderProgressBar(t *testing.T) {
	bar := RenderProgressBar(0.5, 20)
	if !strings.Contains(bar, "50%") {
		t.Errorf("bar = %q, want 50%%", bar)
	}

	// Clamped at both ends
	if !strings.Contains(RenderProgressBar(1.5, 20), "150%") {
		t.Error("overflow keeps the true percent text")
	}
	bar = RenderProgressBar(-0.5, 20)
	if strings.Contains(bar, "█") {
		t.Error("negative progress should render no filled cells")
	}
}

func TestRenderKeyValue(t *testing.T) {
	out := RenderKeyValue("Uptime", "00:01:30")
	if !strings.Contains(out, "Uptime:") || !strings.Contains(out, "00:01:30") {
		t.Errorf("RenderKeyValue = %q", out)
	}
}

func TestRepeatChar(t *testing.T) {
	if got := repeatChar('x', 3); got != "xxx" {
		t.Errorf("repeatChar = %q, want xxx", got)
	}
	if got := repeatChar('x', 0); got != "" {
		t.Errorf("repeatChar(0) = %q, want empty", got)
	}
	if got := repeatChar('x', -1); got != "" {
		t.Errorf("repeatChar(-1) = %q, want empty", got)
	}
}
