package termio

import "sync"

// DefaultMailboxCap bounds the IO loop mailbox.
const DefaultMailboxCap = 64

// Mailbox is the bounded FIFO between the surface thread and the IO
// loop. Resize is special cased: geometry lands in a single coalescing
// slot rather than the queue, so a burst of window drags applies once,
// with the latest size, and can never fill the mailbox.
type Mailbox struct {
	ch       chan Message
	resizeCh chan struct{}

	mu            sync.Mutex
	pendingResize *MessageResize
}

func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = DefaultMailboxCap
	}
	return &Mailbox{
		ch:       make(chan Message, capacity),
		resizeCh: make(chan struct{}, 1),
	}
}

// Push enqueues without blocking. ok reports acceptance; a full
// mailbox rejects everything except resizes, which always coalesce.
func (m *Mailbox) Push(msg Message) bool {
	if resize, ok := msg.(MessageResize); ok {
		m.pushResize(resize)
		return true
	}
	select {
	case m.ch <- msg:
		return true
	default:
		return false
	}
}

// Send enqueues, blocking while the mailbox is full. stop aborts the
// wait; nil never aborts.
func (m *Mailbox) Send(msg Message, stop <-chan struct{}) bool {
	if resize, ok := msg.(MessageResize); ok {
		m.pushResize(resize)
		return true
	}
	if stop == nil {
		m.ch <- msg
		return true
	}
	select {
	case m.ch <- msg:
		return true
	case <-stop:
		return false
	}
}

func (m *Mailbox) pushResize(resize MessageResize) {
	m.mu.Lock()
	if m.pendingResize == nil {
		m.pendingResize = new(MessageResize)
	}
	*m.pendingResize = resize
	m.mu.Unlock()

	select {
	case m.resizeCh <- struct{}{}:
	default:
	}
}

// takeResize pops the coalesced geometry. ok is false when no resize
// is pending.
func (m *Mailbox) takeResize() (MessageResize, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingResize == nil {
		return MessageResize{}, false
	}
	resize := *m.pendingResize
	m.pendingResize = nil
	return resize, true
}

// Len reports how many messages wait in the queue, not counting a
// pending resize.
func (m *Mailbox) Len() int {
	return len(m.ch)
}
