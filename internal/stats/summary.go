// Package stats provides per-run and aggregated statistics for process supervision.
//
// This file implements the exit summary formatter which displays comprehensive
// statistics at program exit.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Command is the supervised command line
	Command string

	// Duration is the total run duration
	Duration time.Duration

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string

	// ShowRunHistory enables the per-generation table
	ShowRunHistory bool
}

// FormatExitSummary formats aggregated stats for display at program exit.
//
// The summary includes:
// - Quiet warning (if the child stopped producing output)
// - Run information
// - Output statistics with rates
// - Lifetime distribution percentiles
// - Termination statistics
// - Exit codes
// - Footnotes with diagnostic information
func FormatExitSummary(stats *AggregatedStats, cfg SummaryConfig) string {
	if stats == nil {
		return formatBasicSummary(cfg)
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                        go-proc-supervisor Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	// Quiet warning
	if stats.Quiet {
		b.WriteString("⚠️  QUIET: the child produced no output in its final interval\n")
		b.WriteString("    Consider: check the child is logging to stdout/stderr, not a file\n\n")
	}

	// Run info
	if cfg.Command != "" {
		fmt.Fprintf(&b, "Command:                %s\n", cfg.Command)
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n", FormatDuration(cfg.Duration))
	fmt.Fprintf(&b, "Total Launches:         %d\n", stats.TotalRuns)
	if stats.Restarts > 0 {
		fmt.Fprintf(&b, "Restarts:               %d\n", stats.Restarts)
	}
	b.WriteString("\n")

	// Output statistics
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
	b.WriteString("                              Output Statistics\n")
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

	fmt.Fprintf(&b, "  %-20s %12s %12s\n", "Stream", "Lines", "Bytes")
	b.WriteString("  " + strings.Repeat("─", 46) + "\n")
	fmt.Fprintf(&b, "  %-20s %12s %12s\n",
		"stdout",
		FormatNumber(stats.TotalStdoutLines),
		FormatBytes(stats.TotalStdoutBytes),
	)
	fmt.Fprintf(&b, "  %-20s %12s %12s\n",
		"stderr",
		FormatNumber(stats.TotalStderrLines),
		FormatBytes(stats.TotalStderrBytes),
	)
	fmt.Fprintf(&b, "\n  Total:                %s lines, %s  (%s/s)\n\n",
		FormatNumber(stats.TotalStdoutLines+stats.TotalStderrLines),
		FormatBytes(stats.TotalStdoutBytes+stats.TotalStderrBytes),
		FormatBytes(int64(stats.ThroughputBytesPerSec)),
	)

	// Lifetime distribution
	if stats.LifetimeP50 > 0 || stats.LifetimeP95 > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                           Lifetime Distribution\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  P50 (median):         %s\n", FormatDuration(stats.LifetimeP50))
		fmt.Fprintf(&b, "  P95:                  %s\n", FormatDuration(stats.LifetimeP95))
		fmt.Fprintf(&b, "  P99:                  %s\n", FormatDuration(stats.LifetimeP99))
		fmt.Fprintf(&b, "  Min / Avg / Max:      %s / %s / %s\n",
			FormatDuration(stats.MinLifetime),
			FormatDuration(stats.AvgLifetime),
			FormatDuration(stats.MaxLifetime),
		)
		b.WriteString("\n")
	}

	// Termination
	if stats.Kills > 0 || stats.Timeouts > 0 || stats.KillSweeps > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                                Termination\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  Tree Kills:           %d\n", stats.Kills)
		fmt.Fprintf(&b, "  Timeouts:             %d\n", stats.Timeouts)
		if stats.KillSweeps > 0 {
			fmt.Fprintf(&b, "  Sweep Avg / Max:      %s / %s\n",
				FormatMs(stats.KillSweepAvg),
				FormatMs(stats.KillSweepMax),
			)
		}
		if stats.KillSurvivors > 0 {
			fmt.Fprintf(&b, "  Sweep Survivors:      %d\n", stats.KillSurvivors)
		}
		b.WriteString("\n")
	}

	// Exit codes
	if len(stats.ExitCodes) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                                Exit Codes\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		// Sort exit codes for consistent output
		codes := make([]int, 0, len(stats.ExitCodes))
		for code := range stats.ExitCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)

		for _, code := range codes {
			count := stats.ExitCodes[code]
			label := exitCodeLabel(code)
			fmt.Fprintf(&b, "  %3d %-16s %d\n", code, label, count)
		}
		b.WriteString("\n")
	}

	// Per-generation history
	if cfg.ShowRunHistory && len(stats.RunHistory) > 0 {
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
		b.WriteString("                               Run History\n")
		b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")

		fmt.Fprintf(&b, "  %4s %8s %12s %6s %8s %8s\n",
			"Gen", "PID", "Lifetime", "Exit", "Killed", "TimedOut")
		b.WriteString("  " + strings.Repeat("─", 52) + "\n")
		for _, r := range stats.RunHistory {
			fmt.Fprintf(&b, "  %4d %8d %12s %6d %8t %8t\n",
				r.Generation, r.Pid, FormatDuration(r.Lifetime),
				r.ExitCode, r.Killed, r.TimedOut)
		}
		b.WriteString("\n")
	}

	// Footnotes (diagnostic information)
	footnotes := renderFootnotes(stats)
	if footnotes != "" {
		b.WriteString(footnotes)
	}

	// Metrics endpoint
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// formatBasicSummary formats a basic summary when stats are not available.
func formatBasicSummary(cfg SummaryConfig) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")
	b.WriteString("                        go-proc-supervisor Exit Summary\n")
	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n\n")

	if cfg.Command != "" {
		fmt.Fprintf(&b, "Command:                %s\n", cfg.Command)
	}
	fmt.Fprintf(&b, "Run Duration:           %s\n\n", FormatDuration(cfg.Duration))

	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}

	b.WriteString("═══════════════════════════════════════════════════════════════════════════════\n")

	return b.String()
}

// renderFootnotes adds diagnostic info that doesn't belong in main metrics.
func renderFootnotes(stats *AggregatedStats) string {
	var footnotes []string

	if stats.TotalErrorLines > 0 {
		footnotes = append(footnotes, fmt.Sprintf(
			"[1] Output lines matching error patterns: %d",
			stats.TotalErrorLines))
	}

	if stats.PeakDescendants > 0 {
		footnotes = append(footnotes, fmt.Sprintf(
			"[2] Peak descendant processes: %d",
			stats.PeakDescendants))
	}

	if stats.KillSurvivors > 0 {
		footnotes = append(footnotes, fmt.Sprintf(
			"[3] Processes surviving a kill sweep: %d (check for unkillable or reparented processes)",
			stats.KillSurvivors))
	}

	if len(footnotes) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n")
	b.WriteString("                                 Footnotes\n")
	b.WriteString("───────────────────────────────────────────────────────────────────────────────\n\n")
	for _, fn := range footnotes {
		fmt.Fprintf(&b, "  %s\n", fn)
	}
	b.WriteString("\n")
	return b.String()
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 126:
		return "(not executable)"
	case 127:
		return "(not found)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// FormatBytes formats bytes with KB/MB/GB suffixes.
func FormatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// FormatMs formats a duration as milliseconds.
func FormatMs(d time.Duration) string {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		// Sub-millisecond, show microseconds
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
	return fmt.Sprintf("%d ms", ms)
}

// FormatRate formats a rate with appropriate precision.
func FormatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.1fK/s", rate/1000)
	}
	if rate >= 1 {
		return fmt.Sprintf("%.1f/s", rate)
	}
	return fmt.Sprintf("%.2f/s", rate)
}
