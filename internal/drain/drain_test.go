package drain

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// slowReader emits its content byte by byte with a delay.
type slowReader struct {
	data  string
	pos   int
	delay time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

// failingReader returns some data then a read error.
type failingReader struct {
	data string
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		n := copy(p, r.data)
		return n, nil
	}
	return 0, errors.New("pipe broke")
}

func TestDrainCapturesBothStreams(t *testing.T) {
	d := New(Config{})
	d.Start(
		strings.NewReader("out1\nout2\n"),
		strings.NewReader("err1\n"),
	)

	if !d.Wait(2 * time.Second) {
		t.Fatal("Wait() = false, want drained")
	}

	buf := d.Buffer()
	if buf.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", buf.Len())
	}

	var stdout, stderr int
	for _, l := range buf.Lines() {
		switch l.Stream {
		case StreamStdout:
			stdout++
		case StreamStderr:
			stderr++
		}
	}
	if stdout != 2 || stderr != 1 {
		t.Errorf("captured stdout=%d stderr=%d, want 2 and 1", stdout, stderr)
	}
}

func TestDrainWaitTimeout(t *testing.T) {
	// ~40ms of reading at 2ms per byte; a 5ms wait must time out.
	d := New(Config{})
	d.Start(&slowReader{data: "slow output line\n", delay: 2 * time.Millisecond}, nil)

	if d.Wait(5 * time.Millisecond) {
		t.Error("Wait(5ms) = true before stream end, want false")
	}

	// The drain keeps consuming regardless of the failed wait.
	if !d.Wait(2 * time.Second) {
		t.Fatal("Wait() = false, want drained")
	}
}

func TestDrainWaitIdempotent(t *testing.T) {
	d := New(Config{})
	d.Start(strings.NewReader("hello\n"), strings.NewReader(""))

	if !d.Wait(2 * time.Second) {
		t.Fatal("first Wait() = false, want drained")
	}

	// Repeated waits after end-of-stream return immediately.
	for i := 0; i < 3; i++ {
		start := time.Now()
		if !d.Wait(time.Second) {
			t.Fatalf("Wait() call %d = false, want true", i+2)
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("Wait() call %d took %v, want immediate", i+2, elapsed)
		}
	}
}

func TestDrainReadErrorIsNotFatal(t *testing.T) {
	d := New(Config{})
	d.Start(&failingReader{data: "before failure\n"}, nil)

	// The stream ends on the failure; subsequent waits report drained.
	if !d.Wait(2 * time.Second) {
		t.Fatal("Wait() = false after read error, want drained")
	}
	if d.Err() == nil {
		t.Error("Err() = nil, want recorded read failure")
	}
	if d.Buffer().Len() != 1 {
		t.Errorf("Len() = %d, want 1 line captured before failure", d.Buffer().Len())
	}
}

func TestDrainHandlers(t *testing.T) {
	var mu sync.Mutex
	var got []string

	d := New(Config{
		Handlers: []LineHandler{
			func(text string, stream Stream) {
				mu.Lock()
				got = append(got, string(stream)+":"+text)
				mu.Unlock()
			},
		},
	})
	d.Start(strings.NewReader("a\nb\n"), nil)
	d.Wait(2 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("handler saw %d lines, want 2", len(got))
	}
	if got[0] != "stdout:a" || got[1] != "stdout:b" {
		t.Errorf("handler lines = %v", got)
	}
}

func TestDrainStats(t *testing.T) {
	d := New(Config{})
	d.Start(strings.NewReader("1234\n5678\n"), nil)
	d.Wait(2 * time.Second)

	bytesRead, linesRead := d.Stats()
	if linesRead != 2 {
		t.Errorf("linesRead = %d, want 2", linesRead)
	}
	if bytesRead != 10 {
		t.Errorf("bytesRead = %d, want 10", bytesRead)
	}
}

func TestBufferConsistentPrefix(t *testing.T) {
	buf := NewBuffer()
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				buf.Append("line", StreamStdout)
			}
		}
	}()

	// Readers always see a length that never decreases.
	last := 0
	for i := 0; i < 1000; i++ {
		n := buf.Len()
		if n < last {
			t.Fatalf("Len() went backwards: %d -> %d", last, n)
		}
		last = n
		if got := len(buf.Lines()); got < last {
			t.Fatalf("Lines() shorter than observed Len(): %d < %d", got, last)
		}
	}

	close(stop)
	wg.Wait()
}

func TestBufferLinesSince(t *testing.T) {
	buf := NewBuffer()
	for i := 0; i < 5; i++ {
		buf.Append("x", StreamStdout)
	}

	if got := len(buf.LinesSince(3)); got != 2 {
		t.Errorf("LinesSince(3) = %d lines, want 2", got)
	}
	if got := buf.LinesSince(10); got != nil {
		t.Errorf("LinesSince(10) = %v, want nil", got)
	}
	if got := len(buf.LinesSince(-1)); got != 5 {
		t.Errorf("LinesSince(-1) = %d lines, want 5", got)
	}
}
