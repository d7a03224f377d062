package drain

import (
	"bufio"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxLineSize caps a single captured line. Children that emit longer
	// lines get them split by the scanner rather than stalling the drain.
	maxLineSize = 64 * 1024

	// scanBufferCap is the scanner's maximum token buffer.
	scanBufferCap = 1024 * 1024
)

// LineHandler observes captured lines as they arrive. Handlers run on the
// reader goroutine and must not block; anything slow belongs behind a
// bounded channel on the handler's side.
type LineHandler func(text string, stream Stream)

// Drain continuously consumes a child's stdout and stderr into a Buffer.
type Drain struct {
	buf      *Buffer
	logger   *slog.Logger
	handlers []LineHandler

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once

	started   atomic.Bool
	bytesRead atomic.Int64
	linesRead atomic.Int64

	// readErr holds the first mid-run read failure. Draining stops
	// gracefully on error; the failure is reported, never fatal.
	errMu   sync.Mutex
	readErr error
}

// Config holds Drain construction options. Zero values select defaults.
type Config struct {
	Buffer   *Buffer
	Logger   *slog.Logger
	Handlers []LineHandler
}

// New creates a Drain. Call Start to attach it to the child's pipes.
func New(cfg Config) *Drain {
	d := &Drain{
		buf:      cfg.Buffer,
		logger:   cfg.Logger,
		handlers: cfg.Handlers,
		done:     make(chan struct{}),
	}
	if d.buf == nil {
		d.buf = NewBuffer()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Buffer returns the drain's capture buffer.
func (d *Drain) Buffer() *Buffer {
	return d.buf
}

// Start begins consuming both streams. Either reader may be nil (stream not
// piped). Start may be called once; the readers run until end-of-stream.
func (d *Drain) Start(stdout, stderr io.Reader) {
	if !d.started.CompareAndSwap(false, true) {
		return
	}
	if stdout != nil {
		d.wg.Add(1)
		go d.consume(stdout, StreamStdout)
	}
	if stderr != nil {
		d.wg.Add(1)
		go d.consume(stderr, StreamStderr)
	}
	go func() {
		d.wg.Wait()
		d.once.Do(func() { close(d.done) })
	}()
}

// consume reads lines from one stream until EOF or a read error.
func (d *Drain) consume(r io.Reader, stream Stream) {
	defer d.wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, maxLineSize), scanBufferCap)

	for scanner.Scan() {
		line := scanner.Text()
		d.bytesRead.Add(int64(len(line)) + 1)
		d.linesRead.Add(1)
		d.buf.Append(line, stream)
		for _, h := range d.handlers {
			h(line, stream)
		}
	}

	if err := scanner.Err(); err != nil {
		// A mid-run read failure must not abort the supervised process;
		// record it and let the stream end here.
		d.errMu.Lock()
		if d.readErr == nil {
			d.readErr = err
		}
		d.errMu.Unlock()
		d.logger.Warn("drain_read_failed", "stream", string(stream), "error", err)
	}
}

// Done returns a channel closed once both streams have reached end-of-stream
// (process exited and all output consumed). A drain that was never started
// has an open Done channel.
func (d *Drain) Done() <-chan struct{} {
	return d.done
}

// Wait blocks until the drain reaches end-of-stream or timeout elapses,
// reporting whether the output is fully drained. A zero timeout blocks until
// drained. Safe to call any number of times; once drained it returns true
// immediately. A timeout is a polling outcome, not an error.
func (d *Drain) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-d.done
		return true
	}
	select {
	case <-d.done:
		return true
	case <-time.After(timeout):
		// Lost race: the drain may have finished while the timer fired.
		select {
		case <-d.done:
			return true
		default:
			return false
		}
	}
}

// Err returns the first read failure observed mid-run, or nil.
func (d *Drain) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.readErr
}

// Stats returns total bytes and lines consumed across both streams.
func (d *Drain) Stats() (bytesRead, linesRead int64) {
	return d.bytesRead.Load(), d.linesRead.Load()
}
