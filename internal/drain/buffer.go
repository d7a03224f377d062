// Package drain provides non-blocking capture of a child process's output.
//
// One reader goroutine per stream consumes stdout/stderr for the whole
// process lifetime, independent of whether anyone is waiting on the handle.
// The child can therefore never stall on a full pipe, and callers may read
// the captured output at any time.
package drain

import (
	"strings"
	"sync"
)

// Stream identifies which pipe a captured line came from.
type Stream string

const (
	// StreamStdout marks lines read from the child's standard output.
	StreamStdout Stream = "stdout"

	// StreamStderr marks lines read from the child's standard error.
	StreamStderr Stream = "stderr"
)

// Line is one captured output line.
type Line struct {
	Text   string
	Stream Stream
}

// Buffer is the append-only capture of a process's output. The drain is the
// sole writer; any number of readers may take a consistent snapshot at any
// time without blocking the drain beyond the append itself.
type Buffer struct {
	mu    sync.RWMutex
	lines []Line
	bytes int64
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds one line. Only the drain calls this.
func (b *Buffer) Append(text string, stream Stream) {
	b.mu.Lock()
	b.lines = append(b.lines, Line{Text: text, Stream: stream})
	b.bytes += int64(len(text)) + 1
	b.mu.Unlock()
}

// Len returns the number of captured lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Bytes returns the number of captured bytes (including line terminators).
func (b *Buffer) Bytes() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bytes
}

// Lines returns a copy of all captured lines. Because the buffer is
// append-only, the copy is a consistent prefix of the final output.
func (b *Buffer) Lines() []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Line, len(b.lines))
	copy(out, b.lines)
	return out
}

// LinesSince returns a copy of the lines appended at or after index from.
// Useful for incremental readers such as the TUI output tail.
func (b *Buffer) LinesSince(from int) []Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(b.lines) {
		return nil
	}
	out := make([]Line, len(b.lines)-from)
	copy(out, b.lines[from:])
	return out
}

// String returns the captured output joined by newlines, both streams
// interleaved in arrival order.
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var sb strings.Builder
	sb.Grow(int(b.bytes))
	for _, l := range b.lines {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}
