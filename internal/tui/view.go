package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-proc-supervisor/internal/stats"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the main supervision dashboard.
func (m Model) renderSummaryView() string {
	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Process section
	sections = append(sections, m.renderProcess())

	// Stats sections (only if we have stats)
	if m.stats != nil {
		sections = append(sections, m.renderOutputStats())

		if m.stats.Restarts > 0 {
			sections = append(sections, m.renderLifetimeStats())
		}
		if m.hasTerminations() {
			sections = append(sections, m.renderTermination())
		}
	}

	// Recent output tail
	if m.outputSource != nil {
		if tail := m.renderOutputTail(); tail != "" {
			sections = append(sections, tail)
		}
	}

	// Footer
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHistoryView renders the per-generation run table.
func (m Model) renderHistoryView() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderRunTable())
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	quiet := m.stats != nil && m.stats.Quiet
	stateLabel := GetProcessLabel(m.Running(), quiet)

	pid := "-"
	if m.Running() {
		pid = fmt.Sprintf("%d", m.CurrentPid())
	}

	header := fmt.Sprintf(
		" go-proc-supervisor │ %s │ PID: %s │ Elapsed: %s ",
		stateLabel,
		pid,
		formatDuration(m.Elapsed()),
	)

	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Process Section
// =============================================================================

func (m Model) renderProcess() string {
	command := m.command
	if command == "" {
		command = "(none)"
	}

	rows := []string{
		RenderKeyValueWide("Command", command),
	}

	if m.stats != nil {
		rows = append(rows,
			RenderKeyValueWide("Generation", fmt.Sprintf("%d", m.stats.CurrentGeneration)),
			RenderKeyValueWide("Uptime", formatDuration(m.stats.CurrentUptime)),
			RenderKeyValueWide("Launches / Restarts",
				fmt.Sprintf("%d / %d", m.stats.TotalRuns, m.stats.Restarts)),
			RenderKeyValueWide("Peak Descendants", fmt.Sprintf("%d", m.stats.PeakDescendants)),
		)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Process")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Output Statistics
// =============================================================================

func (m Model) renderOutputStats() string {
	if m.stats == nil {
		return ""
	}

	s := m.stats
	totalLines := s.TotalStdoutLines + s.TotalStderrLines
	totalBytes := s.TotalStdoutBytes + s.TotalStderrBytes

	rows := []string{
		renderStatRow("Stdout Lines", formatNumber(s.TotalStdoutLines), formatBytes(s.TotalStdoutBytes)),
		renderStatRow("Stderr Lines", formatNumber(s.TotalStderrLines), formatBytes(s.TotalStderrBytes)),
		renderStatRow("Total", formatNumber(totalLines), formatBytes(totalBytes)),
		renderStatRow("Throughput",
			formatRate(s.InstantLineRate),
			formatBytes(int64(s.InstantThroughputRate))+"/s"),
	}

	if s.TotalErrorLines > 0 {
		errStyle := GetErrorRateStyle(m.ErrorLineRate())
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			labelWideStyle.Render("Error Lines:"),
			errStyle.Render(fmt.Sprintf("%d (%s)", s.TotalErrorLines, formatPercent(m.ErrorLineRate()))),
		))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Output")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

func renderStatRow(label, value, extra string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		labelWideStyle.Render(label+":"),
		valueStyle.Width(12).Render(value),
		mutedStyle.Render(" ("),
		valueStyle.Render(extra),
		mutedStyle.Render(")"),
	)
}

// =============================================================================
// Lifetime Statistics
// =============================================================================

func (m Model) renderLifetimeStats() string {
	s := m.stats
	if s == nil || s.LifetimeP50 == 0 {
		return ""
	}

	rows := []string{
		RenderKeyValueWide("P50 (median)", formatDuration(s.LifetimeP50)),
		RenderKeyValueWide("P95", formatDuration(s.LifetimeP95)),
		RenderKeyValueWide("P99", formatDuration(s.LifetimeP99)),
		RenderKeyValueWide("Min / Avg / Max",
			fmt.Sprintf("%s / %s / %s",
				formatDuration(s.MinLifetime),
				formatDuration(s.AvgLifetime),
				formatDuration(s.MaxLifetime))),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Lifetime Distribution")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Termination
// =============================================================================

func (m Model) hasTerminations() bool {
	s := m.stats
	return s != nil && (s.Kills > 0 || s.Timeouts > 0 || s.KillSweeps > 0)
}

func (m Model) renderTermination() string {
	s := m.stats

	rows := []string{
		RenderKeyValueWide("Tree Kills", fmt.Sprintf("%d", s.Kills)),
		RenderKeyValueWide("Timeouts", fmt.Sprintf("%d", s.Timeouts)),
	}
	if s.KillSweeps > 0 {
		rows = append(rows, RenderKeyValueWide("Sweep Avg / Max",
			fmt.Sprintf("%s / %s", formatMs(s.KillSweepAvg), formatMs(s.KillSweepMax))))
	}
	if s.KillSurvivors > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left,
			labelWideStyle.Render("Sweep Survivors:"),
			valueBadStyle.Render(fmt.Sprintf("%d", s.KillSurvivors)),
		))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Termination")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Output Tail
// =============================================================================

func (m Model) renderOutputTail() string {
	lines := m.outputSource.RecentLines(8)
	if len(lines) == 0 {
		return ""
	}

	maxWidth := m.width - 6
	if maxWidth < 20 {
		maxWidth = 20
	}

	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line) > maxWidth {
			line = line[:maxWidth-3] + "..."
		}
		rows = append(rows, dimStyle.Render(line))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Recent Output")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Run History Table
// =============================================================================

func (m Model) renderRunTable() string {
	s := m.stats

	header := tableHeaderStyle.Render(
		fmt.Sprintf("  %4s %8s %12s %6s %8s %8s", "Gen", "PID", "Lifetime", "Exit", "Killed", "TimedOut"))

	rows := []string{header}
	for i, r := range s.RunHistory {
		style := tableRowEvenStyle
		if i%2 == 1 {
			style = tableRowOddStyle
		}
		rows = append(rows, style.Render(renderRunRow(r)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{sectionHeaderStyle.Render("Run History")}, rows...)...,
	)

	return boxStyle.Width(m.width - 2).Render(content)
}

func renderRunRow(r stats.RunRecord) string {
	return fmt.Sprintf("  %4d %8d %12s %6d %8t %8t",
		r.Generation, r.Pid, formatDuration(r.Lifetime), r.ExitCode, r.Killed, r.TimedOut)
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	var parts []string

	parts = append(parts, "q: quit")
	if m.stats != nil && len(m.stats.RunHistory) > 0 {
		parts = append(parts, "h: history")
	}
	parts = append(parts, "r: refresh")

	if m.metricsAddr != "" {
		parts = append(parts, fmt.Sprintf("metrics: http://%s/metrics", m.metricsAddr))
	}

	return footerStyle.Render(" " + strings.Join(parts, "  │  "))
}
