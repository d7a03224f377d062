package logging

import (
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single log line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the maximum number of recent lines kept for
	// the exit summary.
	MaxBufferedLines = 100
)

// OutputHandler observes output lines from a supervised process. It
// buffers recent lines for the exit summary and logs notable ones. It is
// wired into the drain as a line handler.
type OutputHandler struct {
	logger  *slog.Logger
	verbose bool

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	mu     sync.Mutex
}

// NewOutputHandler creates an output handler for a supervised process.
func NewOutputHandler(logger *slog.Logger, verbose bool) *OutputHandler {
	return &OutputHandler{
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// HandleLine processes a single line of child output. The stream name is
// "stdout" or "stderr".
func (h *OutputHandler) HandleLine(line, stream string) {
	// Truncate if too long
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	// Store in circular buffer
	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.mu.Unlock()

	h.logLine(line, stream)
}

// logLine logs the line at a level based on content.
func (h *OutputHandler) logLine(line, stream string) {
	level := h.classifyLine(line)

	// In non-verbose mode, only log warnings and errors
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(nil, level, "child_output",
		"stream", stream,
		"line", line,
	)
}

// classifyLine determines the log level for a line based on content.
func (h *OutputHandler) classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	// Error patterns
	if strings.Contains(lower, "fatal") ||
		strings.Contains(lower, "panic:") ||
		strings.Contains(lower, "segmentation fault") ||
		strings.Contains(lower, "out of memory") ||
		(strings.Contains(lower, "error") && strings.Contains(lower, "failed")) {
		return slog.LevelWarn
	}

	// Warning patterns
	if strings.Contains(lower, "warning") ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "retry") {
		return slog.LevelWarn
	}

	// Default to debug
	return slog.LevelDebug
}

// RecentLines returns the most recent lines from the buffer.
func (h *OutputHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)

	// Read from circular buffer in order
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}

	return lines
}

// ErrorPatterns are common failure patterns extracted for the exit summary.
var ErrorPatterns = []string{
	"Connection refused",
	"Permission denied",
	"No such file",
	"Out of memory",
	"Segmentation fault",
	"panic:",
	"timeout",
}

// CountErrors counts occurrences of error patterns in the buffer.
func (h *OutputHandler) CountErrors() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[string]int)

	for _, line := range h.buffer {
		if line == "" {
			continue
		}
		for _, pattern := range ErrorPatterns {
			if strings.Contains(line, pattern) {
				counts[pattern]++
			}
		}
	}

	return counts
}
