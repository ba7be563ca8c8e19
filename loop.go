package termio

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/sequences/csi"
)

// readBufferSize is the pty read chunk. Matches the kernel's default
// tty buffer so one read usually drains it.
const readBufferSize = 4096

// Backend is the loop's byte transport: a Pty in production, a pipe
// pair in tests.
type Backend interface {
	io.Reader
	io.Writer
	io.Closer

	// Resize propagates a geometry change to the transport.
	Resize(rows, cols, pxWidth, pxHeight int) error
}

// Loop owns the pty, the parser and the terminal model, and runs the
// IO side of the emulator: one goroutine moves pty bytes into the
// parser, another drains the mailbox and the pty write queue. The
// renderer shares the terminal through StateMutex.
type Loop struct {
	tio     *TerminalIO
	backend Backend
	mailbox *Mailbox

	// mu guards the terminal model and parser. The read goroutine
	// holds it while applying parsed bytes; the renderer holds it
	// while walking rows.
	mu sync.Mutex

	// wakeup pulses after terminal state changes. Signals coalesce
	// while the renderer sleeps.
	wakeup chan struct{}

	// flushCh pulses when flush left unwritten bytes behind so the
	// next loop pass retries them.
	flushCh chan struct{}

	stop     chan struct{}
	stopOnce sync.Once

	// Host query replies queue here rather than in the mailbox: the
	// read goroutine produces them while holding mu, so it must never
	// block on mailbox capacity.
	replyMu sync.Mutex
	replies [][]byte
	replyCh chan struct{}

	inspector atomic.Bool

	logger logger.Logger
}

type LoopOptions struct {
	// IO is the parser and terminal bundle the loop drives. Required.
	IO *TerminalIO

	// Backend is the pty or test transport. Required.
	Backend Backend

	// MailboxCap overrides DefaultMailboxCap when positive.
	MailboxCap int

	Logger logger.Logger
}

func NewLoop(opts LoopOptions) *Loop {
	log := opts.Logger
	if log == nil {
		log = logger.DefaultLogger
	}

	l := &Loop{
		tio:     opts.IO,
		backend: opts.Backend,
		mailbox: NewMailbox(opts.MailboxCap),
		wakeup:  make(chan struct{}, 1),
		flushCh: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		replyCh: make(chan struct{}, 1),
		logger:  log,
	}

	// Route host query replies through the loop so pty writes stay on
	// the loop goroutine.
	l.tio.Handler().SetRespond(func(reply []byte) error {
		l.queueReply(reply)
		return nil
	})

	return l
}

// IO returns the parser and terminal bundle.
func (l *Loop) IO() *TerminalIO {
	return l.tio
}

// Mailbox returns the control message queue the surface thread feeds.
func (l *Loop) Mailbox() *Mailbox {
	return l.mailbox
}

// StateMutex guards the terminal model. Hold it while reading grid
// state from outside the loop.
func (l *Loop) StateMutex() *sync.Mutex {
	return &l.mu
}

// Wakeup pulses after the terminal mutates.
func (l *Loop) Wakeup() <-chan struct{} {
	return l.wakeup
}

// Done closes when the loop stopped, by Stop or by pty EOF.
func (l *Loop) Done() <-chan struct{} {
	return l.stop
}

// InspectorEnabled reports whether inspector capture is on.
func (l *Loop) InspectorEnabled() bool {
	return l.inspector.Load()
}

// Stop shuts the loop down from any goroutine. The loop finishes the
// message it already popped; the rest of the mailbox is dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		if l.backend != nil {
			if err := l.backend.Close(); err != nil {
				l.logger.Debug("backend close", "err", err)
			}
		}
	})
}

// Run drives the loop until Stop or pty EOF. The read side runs on
// its own goroutine; the calling goroutine drains the mailbox and the
// write queue.
func (l *Loop) Run() {
	go l.readLoop()

	var queue [][]byte
	for {
		select {
		case <-l.stop:
			return
		case msg := <-l.mailbox.ch:
			queue = l.handleMessage(msg, queue)
		case <-l.mailbox.resizeCh:
			l.applyResize()
		case <-l.replyCh:
			queue = l.takeReplies(queue)
		case <-l.flushCh:
		}

		// Gather everything already pending so one flush covers it.
	drain:
		for {
			select {
			case <-l.stop:
				return
			case msg := <-l.mailbox.ch:
				queue = l.handleMessage(msg, queue)
			case <-l.mailbox.resizeCh:
				l.applyResize()
			case <-l.replyCh:
				queue = l.takeReplies(queue)
			case <-l.flushCh:
			default:
				break drain
			}
		}

		queue = l.flush(queue)
	}
}

// readLoop moves pty bytes into the parser until EOF or stop.
func (l *Loop) readLoop() {
	buf := make([]byte, readBufferSize)
	for {
		n, err := l.backend.Read(buf)
		if n > 0 {
			l.mu.Lock()
			perr := l.tio.ProcessOutput(buf[:n])
			held := l.tio.Terminal().Modes.Get(core.ModeSynchronizedOutput)
			l.mu.Unlock()
			if perr != nil {
				l.logger.Error("stream processing failed", "err", perr)
			}
			// Mode 2026: the application holds frames until it closes
			// the batch. The closing sequence arrives through
			// ProcessOutput too, so the wakeup fires on that read.
			if !held {
				l.notifyWakeup()
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, syscall.EIO):
			// Linux ptys report EIO instead of EOF once the child
			// exits.
			l.logger.Debug("pty reached end of stream")
			l.Stop()
			return
		case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EINTR):
		default:
			select {
			case <-l.stop:
			default:
				l.logger.Error("pty read failed", "err", err)
			}
			l.Stop()
			return
		}

		select {
		case <-l.stop:
			return
		default:
		}
	}
}

func (l *Loop) handleMessage(msg Message, queue [][]byte) [][]byte {
	switch msg := msg.(type) {
	case MessageResize:
		// Resizes normally ride the coalescing slot; honor a directly
		// queued one all the same.
		l.applyResize()

	case MessageWriteSmall:
		queue = append(queue, msg.Data[:msg.Len])

	case MessageWriteStable:
		queue = append(queue, msg.Data)

	case MessageWriteAlloc:
		queue = append(queue, msg.Data)

	case MessageClearScreen:
		l.mu.Lock()
		term := l.tio.Terminal()
		if msg.History {
			term.EraseInDisplay(csi.EDModeScrollback)
		}
		term.EraseInDisplay(csi.EDModeComplete)
		term.SetCursorPosition(1, 1)
		l.mu.Unlock()
		l.notifyWakeup()

	case MessageScrollViewport:
		l.mu.Lock()
		term := l.tio.Terminal()
		switch {
		case msg.Top:
			term.ScrollViewportTop()
		case msg.Bottom:
			term.ScrollViewportBottom()
		default:
			term.ScrollViewport(msg.Delta)
		}
		l.mu.Unlock()
		l.notifyWakeup()

	case MessageJumpToPrompt:
		l.mu.Lock()
		moved := l.tio.Terminal().JumpToPrompt(msg.Delta)
		l.mu.Unlock()
		if moved {
			l.notifyWakeup()
		}

	case MessageSizeReport:
		// In-band size report, the mode 2048 notification.
		l.mu.Lock()
		term := l.tio.Terminal()
		width, height := term.PixelSize()
		report := fmt.Appendf(nil, "\x1b[48;%d;%d;%d;%dt", term.Rows(), term.Cols(), height, width)
		l.mu.Unlock()
		queue = append(queue, report)

	case MessageInspector:
		l.inspector.Store(msg.Enabled)
		l.logger.Debug("inspector toggled", "enabled", msg.Enabled)

	default:
		l.logger.Warn("unknown mailbox message", "message", fmt.Sprintf("%T", msg))
	}
	return queue
}

func (l *Loop) applyResize() {
	resize, ok := l.mailbox.takeResize()
	if !ok {
		return
	}

	if err := l.backend.Resize(resize.Rows, resize.Cols, resize.PxWidth, resize.PxHeight); err != nil {
		l.logger.Warn("pty resize failed", "err", err)
	}

	l.mu.Lock()
	l.tio.Resize(resize.Cols, resize.Rows)
	l.tio.SetPixelSize(resize.PxWidth, resize.PxHeight)
	l.mu.Unlock()
	l.notifyWakeup()
}

func (l *Loop) queueReply(reply []byte) {
	l.replyMu.Lock()
	l.replies = append(l.replies, reply)
	l.replyMu.Unlock()

	select {
	case l.replyCh <- struct{}{}:
	default:
	}
}

func (l *Loop) takeReplies(queue [][]byte) [][]byte {
	l.replyMu.Lock()
	replies := l.replies
	l.replies = nil
	l.replyMu.Unlock()
	return append(queue, replies...)
}

// flush writes the queue to the pty. When the pty is full the
// unwritten tail goes back on the queue and the loop retries it on a
// later pass instead of spinning here; a hard error drops the queue,
// the read side will observe the broken pty and stop the loop.
func (l *Loop) flush(queue [][]byte) [][]byte {
	for i, buf := range queue {
		for len(buf) > 0 {
			n, err := l.backend.Write(buf)
			buf = buf[n:]
			switch {
			case err == nil:
			case errors.Is(err, syscall.EINTR):
				// Interrupted mid-write, retry immediately.
			case errors.Is(err, syscall.EAGAIN):
				rest := append([][]byte{buf}, queue[i+1:]...)
				select {
				case l.flushCh <- struct{}{}:
				default:
				}
				return rest
			default:
				l.logger.Warn("pty write failed", "err", err, "dropped", len(queue)-i)
				return queue[:0]
			}
		}
	}
	return queue[:0]
}

func (l *Loop) notifyWakeup() {
	select {
	case l.wakeup <- struct{}{}:
	default:
	}
}

var _ Backend = (*Pty)(nil)
