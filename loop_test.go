package termio

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBackend stands in for the pty: reads are fed by the test, writes
// accumulate in a buffer.
type memBackend struct {
	reads chan []byte

	mu      sync.Mutex
	written bytes.Buffer
	resizes []MessageResize

	// fullWrites makes the next N writes fail with EAGAIN, as a pty
	// with a full kernel buffer would.
	fullWrites int

	closed    chan struct{}
	closeOnce sync.Once
}

func newMemBackend() *memBackend {
	return &memBackend{
		reads:  make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (b *memBackend) Read(p []byte) (int, error) {
	select {
	case data, ok := <-b.reads:
		if !ok {
			return 0, io.EOF
		}
		return copy(p, data), nil
	case <-b.closed:
		return 0, io.EOF
	}
}

func (b *memBackend) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fullWrites > 0 {
		b.fullWrites--
		return 0, syscall.EAGAIN
	}
	return b.written.Write(p)
}

func (b *memBackend) Resize(rows, cols, pxWidth, pxHeight int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resizes = append(b.resizes, MessageResize{
		Rows: rows, Cols: cols, PxWidth: pxWidth, PxHeight: pxHeight,
	})
	return nil
}

func (b *memBackend) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	return nil
}

func (b *memBackend) writtenString() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written.String()
}

func (b *memBackend) lastResize() (MessageResize, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.resizes) == 0 {
		return MessageResize{}, false
	}
	return b.resizes[len(b.resizes)-1], true
}

func startTestLoop(t *testing.T) (*Loop, *memBackend) {
	t.Helper()
	backend := newMemBackend()
	loop := NewLoop(LoopOptions{
		IO:      NewTerminalIO(Options{Cols: 80, Rows: 24}),
		Backend: backend,
	})

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()
	t.Cleanup(func() {
		loop.Stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
	})
	return loop, backend
}

func dumpLocked(l *Loop) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tio.DumpString()
}

func TestLoop_ReadsFeedTheTerminal(t *testing.T) {
	loop, backend := startTestLoop(t)

	backend.reads <- []byte("hello from child")
	require.Eventually(t, func() bool {
		return dumpLocked(loop) == "hello from child"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_WakeupSignalsAfterReads(t *testing.T) {
	loop, backend := startTestLoop(t)

	backend.reads <- []byte("x")
	select {
	case <-loop.Wakeup():
	case <-time.After(2 * time.Second):
		t.Fatal("no wakeup after pty data")
	}
}

func TestLoop_SynchronizedOutputWithholdsWakeup(t *testing.T) {
	loop, backend := startTestLoop(t)

	// The child opens a synchronized batch and paints inside it.
	backend.reads <- []byte("\x1b[?2026hbatched")
	require.Eventually(t, func() bool {
		return dumpLocked(loop) == "batched"
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case <-loop.Wakeup():
		t.Fatal("wakeup fired inside a synchronized batch")
	case <-time.After(50 * time.Millisecond):
	}

	// Closing the batch releases the held frame.
	backend.reads <- []byte("\x1b[?2026l")
	select {
	case <-loop.Wakeup():
	case <-time.After(2 * time.Second):
		t.Fatal("no wakeup after the batch closed")
	}
}

func TestLoop_WritesDrainToBackend(t *testing.T) {
	loop, backend := startTestLoop(t)

	require.True(t, loop.Mailbox().Push(WriteMessage([]byte("ls -la\n"))))
	require.Eventually(t, func() bool {
		return backend.writtenString() == "ls -la\n"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_FullPtyRetriesQueuedWrites(t *testing.T) {
	loop, backend := startTestLoop(t)

	backend.mu.Lock()
	backend.fullWrites = 2
	backend.mu.Unlock()

	// The write survives the EAGAINs and lands once the pty drains.
	require.True(t, loop.Mailbox().Push(WriteMessage([]byte("echo hi\n"))))
	require.Eventually(t, func() bool {
		return backend.writtenString() == "echo hi\n"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_QueryRepliesReachBackend(t *testing.T) {
	_, backend := startTestLoop(t)

	// A primary DA query arrives from the child; the reply must come
	// back out on the pty without any surface involvement.
	backend.reads <- []byte("\x1b[c")
	require.Eventually(t, func() bool {
		return backend.writtenString() == "\x1b[?62;22c"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_ResizeAppliesEverywhere(t *testing.T) {
	loop, backend := startTestLoop(t)

	want := MessageResize{Rows: 12, Cols: 40, PxWidth: 400, PxHeight: 240}
	loop.Mailbox().Push(want)

	// The terminal model resizes after the backend, so once the grid
	// changed the whole chain ran.
	require.Eventually(t, func() bool {
		loop.mu.Lock()
		defer loop.mu.Unlock()
		return loop.tio.Terminal().Cols() == 40 && loop.tio.Terminal().Rows() == 12
	}, 2*time.Second, 5*time.Millisecond)

	last, ok := backend.lastResize()
	require.True(t, ok)
	assert.Equal(t, want, last)
}

func TestLoop_SizeReportMessage(t *testing.T) {
	loop, backend := startTestLoop(t)

	// Apply the geometry first; the report and the resize travel on
	// different channels and would otherwise race.
	loop.Mailbox().Push(MessageResize{Rows: 24, Cols: 80, PxWidth: 800, PxHeight: 600})
	require.Eventually(t, func() bool {
		_, ok := backend.lastResize()
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	loop.Mailbox().Push(MessageSizeReport{})
	require.Eventually(t, func() bool {
		return strings.Contains(backend.writtenString(), "\x1b[48;24;80;600;800t")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_ClearScreenMessage(t *testing.T) {
	loop, backend := startTestLoop(t)

	backend.reads <- []byte("one\r\ntwo")
	require.Eventually(t, func() bool {
		return dumpLocked(loop) == "one\ntwo"
	}, 2*time.Second, 5*time.Millisecond)

	loop.Mailbox().Push(MessageClearScreen{History: true})
	require.Eventually(t, func() bool {
		return dumpLocked(loop) == ""
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_EOFStopsTheLoop(t *testing.T) {
	loop, backend := startTestLoop(t)

	close(backend.reads)
	select {
	case <-loop.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on EOF")
	}
}

func TestLoop_StopIsIdempotent(t *testing.T) {
	loop, _ := startTestLoop(t)

	loop.Stop()
	loop.Stop()
	select {
	case <-loop.Done():
	case <-time.After(time.Second):
		t.Fatal("Done did not close")
	}
}

func TestLoop_InspectorToggle(t *testing.T) {
	loop, _ := startTestLoop(t)

	assert.False(t, loop.InspectorEnabled())
	loop.Mailbox().Push(MessageInspector{Enabled: true})
	require.Eventually(t, loop.InspectorEnabled, 2*time.Second, 5*time.Millisecond)
}
