package termio

import (
	"fmt"
	"runtime/debug"

	"github.com/hnimtadd/termcore/logger"
	terminalPkg "github.com/hnimtadd/termcore/terminal"
	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/stream"
)

type TerminalIO struct {
	// The terminal emulator internal state. This is the abstract "terminal"
	// that manages input, grid updating, etc. and is renderer-agnostic. It
	// just stores internal state about a grid.
	terminal *terminalPkg.Terminal

	// The stream parser. This parses the stream of escape codes and so on
	// from the child process and calls callbacks in the stream handler.
	terminalStream *stream.Stream

	// The stream handler, kept so embedders can reach handler-owned
	// state: colors, palette, title, clipboard policy.
	handler *StreamHandler

	logger logger.Logger
}

type Options struct {
	Rows, Cols int

	// Respond receives reply bytes for host queries (DA, DSR, OSC
	// color queries and so on). Typically this writes to the pty.
	// Nil drops replies.
	Respond func([]byte) error

	// Surface receives out-of-band events: title, pwd, bell,
	// notifications, clipboard. Optional.
	Surface Surface

	// ClipboardWriteAllowed permits OSC 52 clipboard writes.
	ClipboardWriteAllowed bool

	// Configured default colors. Nil picks the built-in palette's
	// white-on-black.
	DefaultForeground *color.RGB
	DefaultBackground *color.RGB
	DefaultCursor     *color.RGB

	Logger logger.Logger
}

// Initialize the termio state.
func NewTerminalIO(opts Options) *TerminalIO {
	log := opts.Logger
	if log == nil {
		log = logger.DefaultLogger
	}

	// default terminal Mode
	modes := core.ModePacked

	// Create a new terminal instance
	term := terminalPkg.NewTerminal(
		terminalPkg.Options{
			Rows:   opts.Rows,
			Cols:   opts.Cols,
			Modes:  modes,
			Logger: log,
		},
	)

	// Create our stream handler.
	handler := NewStreamHandler(StreamHandlerOptions{
		Terminal:          term,
		Respond:           opts.Respond,
		Surface:           opts.Surface,
		DefaultForeground: opts.DefaultForeground,
		DefaultBackground: opts.DefaultBackground,
		DefaultCursor:     opts.DefaultCursor,
		Logger:            log,
	})
	handler.ClipboardWriteAllowed = opts.ClipboardWriteAllowed

	return &TerminalIO{
		terminal:       term,
		terminalStream: stream.NewStream(handler, log),
		handler:        handler,
		logger:         log,
	}
}

// Terminal exposes the grid model for renderers and tests.
func (t *TerminalIO) Terminal() *terminalPkg.Terminal {
	return t.terminal
}

// Handler exposes the stream handler, which owns colors, palette and
// title state.
func (t *TerminalIO) Handler() *StreamHandler {
	return t.handler
}

// resize the terminal
func (t *TerminalIO) Resize(cols, rows int) {
	t.terminal.Resize(size.CellCountInt(cols), size.CellCountInt(rows))
}

// SetPixelSize records the pixel geometry backing the grid. Size
// reports and image placement derive the cell size from it.
func (t *TerminalIO) SetPixelSize(width, height int) {
	t.terminal.SetPixelSize(width, height)
}

// proces output from the pty. This is the manual API that users can call
// with pty data
func (t *TerminalIO) ProcessOutput(buf []byte) (err error) {
	// Process the output from the pty
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in ProcessOutput", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic in ProcessOutput: %v", r)
		}
	}()
	t.terminalStream.NextSlice(buf)
	err = nil
	return
}

// Process output from pty by byte. This is the manual API that users can call
// with pty data
//
// NOTE, this implementation is helpful for debugging as you can see the
// process of each byte, but it is not as efficient as the slice version.
//
// consider ProcessOutput for better performance
func (t *TerminalIO) Process(c byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in Process", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic in Process: %v", r)
		}
	}()
	t.terminalStream.Next(c)
	err = nil
	return
}

func (t *TerminalIO) DumpString() string {
	return t.terminal.PlainString()
}

func (t *TerminalIO) Write(p []byte) (n int, err error) {
	t.terminalStream.NextSlice(p)
	return len(p), nil
}

// Close exists so the manual API satisfies io.WriteCloser. The child
// process and pty belong to the IO loop, which has its own shutdown.
func (t *TerminalIO) Close() error {
	return nil
}
