package termio

// Message is a control message for the IO loop mailbox. The surface
// thread produces them; the loop goroutine consumes them in FIFO
// order.
type Message interface {
	isMessage()
}

// MessageResize propagates a new grid and pixel geometry to the pty
// and the terminal model. Redundant resizes coalesce in the mailbox:
// only the latest geometry is applied.
type MessageResize struct {
	Rows, Cols        int
	PxWidth, PxHeight int
}

// MaxWriteSmall is the inline payload capacity of MessageWriteSmall.
// Sized so the message fits the mailbox slot without a heap
// allocation for typical keystroke encodings.
const MaxWriteSmall = 38

// MessageWriteSmall carries up to MaxWriteSmall bytes of pty input
// inline.
type MessageWriteSmall struct {
	Data [MaxWriteSmall]byte
	Len  uint8
}

// MessageWriteStable carries pty input whose backing array the caller
// guarantees to outlive the write.
type MessageWriteStable struct {
	Data []byte
}

// MessageWriteAlloc carries pty input owned by the loop. The slice is
// released once the write drains.
type MessageWriteAlloc struct {
	Data []byte
}

// MessageClearScreen erases the active screen. History also clears
// scrollback.
type MessageClearScreen struct {
	History bool
}

// MessageScrollViewport adjusts the viewport. Top and Bottom jump to
// the scrollback edges; otherwise Delta moves relative to the current
// viewport, negative toward scrollback.
type MessageScrollViewport struct {
	Top    bool
	Bottom bool
	Delta  int
}

// MessageJumpToPrompt moves the viewport Delta shell prompts backward
// (negative) or forward (positive).
type MessageJumpToPrompt struct {
	Delta int
}

// MessageSizeReport asks the loop to send an in-band size report to
// the child, the mode 2048 notification.
type MessageSizeReport struct{}

// MessageInspector toggles inspector event capture.
type MessageInspector struct {
	Enabled bool
}

func (MessageResize) isMessage()         {}
func (MessageWriteSmall) isMessage()     {}
func (MessageWriteStable) isMessage()    {}
func (MessageWriteAlloc) isMessage()     {}
func (MessageClearScreen) isMessage()    {}
func (MessageScrollViewport) isMessage() {}
func (MessageJumpToPrompt) isMessage()   {}
func (MessageSizeReport) isMessage()     {}
func (MessageInspector) isMessage()      {}

// WriteMessage wraps pty input in the cheapest write variant: inline
// when it fits, an owned slice otherwise. The loop takes ownership of
// data in the latter case.
func WriteMessage(data []byte) Message {
	if len(data) <= MaxWriteSmall {
		var msg MessageWriteSmall
		msg.Len = uint8(copy(msg.Data[:], data))
		return msg
	}
	return MessageWriteAlloc{Data: data}
}
