package main

import (
	"sync"

	"github.com/gdamore/tcell/v2"

	termio "github.com/hnimtadd/termcore"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/set"
	"github.com/hnimtadd/termcore/terminal/sgr"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/style"
	styleid "github.com/hnimtadd/termcore/terminal/style/id"
)

// viewer mirrors the emulator grid onto a tcell screen and feeds key
// events back through the loop mailbox.
type viewer struct {
	screen  tcell.Screen
	loop    *termio.Loop
	surface *viewerSurface

	rows, cols int

	// Grid modes sampled during draw, used by the key encoder without
	// taking the state mutex again.
	appCursor      bool
	bracketedPaste bool
}

func newViewer(screen tcell.Screen, loop *termio.Loop, surface *viewerSurface) *viewer {
	cols, rows := screen.Size()
	return &viewer{
		screen:  screen,
		loop:    loop,
		surface: surface,
		rows:    rows,
		cols:    cols,
	}
}

func (v *viewer) run() {
	events := make(chan tcell.Event, 8)
	go func() {
		defer close(events)
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	v.draw()
	for {
		select {
		case <-v.loop.Done():
			return
		case <-v.loop.Wakeup():
			v.draw()
		case ev, ok := <-events:
			if !ok {
				return
			}
			v.handleEvent(ev)
		}
	}
}

// draw copies the viewport into the tcell back buffer under the state
// mutex and flushes it after release.
func (v *viewer) draw() {
	mu := v.loop.StateMutex()
	mu.Lock()

	tio := v.loop.IO()
	term := tio.Terminal()
	handler := tio.Handler()
	palette := handler.Palette()

	defFG := handler.ForegroundColor()
	defBG := handler.BackgroundColor()
	if term.Modes.Get(core.ModeReverseColors) {
		defFG, defBG = defBG, defFG
	}

	rows, cols := int(term.Rows()), int(term.Cols())
	pages := term.Screen.Pages
	tl := pages.GetTopLeft(point.TagViewPort)
	for y := 0; y < rows; y++ {
		pin := tl.Down(size.CellCountInt(y))
		if pin == nil {
			break
		}
		pg := pin.Node.Data
		row := pg.GetRow(pin.Y)
		cells := pg.GetCells(row)

		for x := 0; x < cols && x < len(cells); x++ {
			cell := cells[x]
			if cell.Wide == page.WideSpacerTail {
				// tcell lays out the spacer from the wide rune.
				continue
			}

			st := style.Style{}
			if cell.StyleID != styleid.DefaultID {
				if raw := pg.Styles.Get(set.ID(cell.StyleID)); raw != nil {
					if s, ok := raw.(style.Style); ok {
						st = s
					}
				}
			}

			fg := defFG
			if c := st.FG(cell, palette, false); c != nil {
				fg = *c
			}
			bg := defBG
			if c := st.BG(cell, palette); c != nil {
				bg = *c
			}
			if st.Inverse {
				fg, bg = bg, fg
			}

			tstyle := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(fg.R), int32(fg.G), int32(fg.B))).
				Background(tcell.NewRGBColor(int32(bg.R), int32(bg.G), int32(bg.B))).
				Bold(st.Bold).
				Italic(st.Italic).
				Dim(st.Faint).
				Blink(st.Blink).
				Underline(st.Underline != sgr.UnderlineTypeNone).
				StrikeThrough(st.Strikethrough)

			mainc := ' '
			var combc []rune
			if cell.HasText() && !st.Invisible {
				mainc = rune(cell.ContentCP)
				if cell.GraphemeExtended {
					for _, cp := range pg.GraphemeCodepoints(row, size.CellCountInt(x)) {
						combc = append(combc, rune(cp))
					}
				}
			}
			v.screen.SetContent(x, y, mainc, combc, tstyle)
		}
	}

	if pages.ViewPort == pagelist.ViewportTagActive && term.Modes.Get(core.ModeCursorVisible) {
		cur := term.Screen.Cursor
		v.screen.ShowCursor(int(cur.X), int(cur.Y))
	} else {
		v.screen.HideCursor()
	}

	v.appCursor = term.Modes.Get(core.ModeCursorKeys)
	v.bracketedPaste = term.Modes.Get(core.ModeBracketedPaste)
	mu.Unlock()

	v.surface.drain(v.screen)
	v.screen.Show()
}

func (v *viewer) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.cols, v.rows = ev.Size()
		v.loop.Mailbox().Push(termio.MessageResize{
			Rows: v.rows,
			Cols: v.cols,
		})
		v.screen.Sync()

	case *tcell.EventPaste:
		if !v.bracketedPaste {
			return
		}
		if ev.Start() {
			v.send([]byte("\x1b[200~"))
		} else {
			v.send([]byte("\x1b[201~"))
		}

	case *tcell.EventKey:
		if ev.Modifiers()&tcell.ModShift != 0 && v.handleScrollKey(ev.Key()) {
			return
		}
		if data := encodeKey(ev, v.appCursor); data != nil {
			v.send(data)
		}
	}
}

// handleScrollKey maps shifted navigation keys onto viewport scrolls.
func (v *viewer) handleScrollKey(key tcell.Key) bool {
	mailbox := v.loop.Mailbox()
	switch key {
	case tcell.KeyPgUp:
		mailbox.Push(termio.MessageScrollViewport{Delta: -v.rows / 2})
	case tcell.KeyPgDn:
		mailbox.Push(termio.MessageScrollViewport{Delta: v.rows / 2})
	case tcell.KeyHome:
		mailbox.Push(termio.MessageScrollViewport{Top: true})
	case tcell.KeyEnd:
		mailbox.Push(termio.MessageScrollViewport{Bottom: true})
	default:
		return false
	}
	return true
}

func (v *viewer) send(data []byte) {
	v.loop.Mailbox().Push(termio.WriteMessage(data))
}

// encodeKey turns a tcell key event into the bytes a terminal sends.
// appCursor selects SS3 arrows (DECCKM).
func encodeKey(ev *tcell.EventKey, appCursor bool) []byte {
	arrow := func(final byte) []byte {
		if appCursor {
			return []byte{0x1b, 'O', final}
		}
		return []byte{0x1b, '[', final}
	}

	switch ev.Key() {
	case tcell.KeyUp:
		return arrow('A')
	case tcell.KeyDown:
		return arrow('B')
	case tcell.KeyRight:
		return arrow('C')
	case tcell.KeyLeft:
		return arrow('D')
	case tcell.KeyHome:
		return []byte("\x1b[H")
	case tcell.KeyEnd:
		return []byte("\x1b[F")
	case tcell.KeyInsert:
		return []byte("\x1b[2~")
	case tcell.KeyDelete:
		return []byte("\x1b[3~")
	case tcell.KeyPgUp:
		return []byte("\x1b[5~")
	case tcell.KeyPgDn:
		return []byte("\x1b[6~")
	case tcell.KeyF1:
		return []byte("\x1bOP")
	case tcell.KeyF2:
		return []byte("\x1bOQ")
	case tcell.KeyF3:
		return []byte("\x1bOR")
	case tcell.KeyF4:
		return []byte("\x1bOS")
	case tcell.KeyF5:
		return []byte("\x1b[15~")
	case tcell.KeyF6:
		return []byte("\x1b[17~")
	case tcell.KeyF7:
		return []byte("\x1b[18~")
	case tcell.KeyF8:
		return []byte("\x1b[19~")
	case tcell.KeyF9:
		return []byte("\x1b[20~")
	case tcell.KeyF10:
		return []byte("\x1b[21~")
	case tcell.KeyF11:
		return []byte("\x1b[23~")
	case tcell.KeyF12:
		return []byte("\x1b[24~")
	case tcell.KeyEnter:
		return []byte{'\r'}
	case tcell.KeyTab:
		return []byte{'\t'}
	case tcell.KeyEsc:
		return []byte{0x1b}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return []byte{0x7f}
	case tcell.KeyRune:
		data := []byte(string(ev.Rune()))
		if ev.Modifiers()&tcell.ModAlt != 0 {
			return append([]byte{0x1b}, data...)
		}
		return data
	default:
		// C0 controls (Ctrl-A..Ctrl-_, NUL) carry their byte value.
		if key := ev.Key(); key < 0x20 {
			return []byte{byte(key)}
		}
		return nil
	}
}

// viewerSurface receives out-of-band terminal events. They arrive on
// the IO goroutines, so effects queue under a lock and the viewer
// applies them between frames.
type viewerSurface struct {
	mu    sync.Mutex
	title *string
	bell  bool
	clip  map[uint8]string
}

func newViewerSurface() *viewerSurface {
	return &viewerSurface{clip: make(map[uint8]string)}
}

func (s *viewerSurface) SetTitle(title string) {
	s.mu.Lock()
	s.title = &title
	s.mu.Unlock()
}

func (s *viewerSurface) SetPwd(pwd string) {}

func (s *viewerSurface) Bell() {
	s.mu.Lock()
	s.bell = true
	s.mu.Unlock()
}

func (s *viewerSurface) DesktopNotification(title, body string) {
	// No notification daemon here; ringing is the closest effect.
	s.Bell()
}

func (s *viewerSurface) SetClipboard(clipboard uint8, data string) {
	s.mu.Lock()
	s.clip[clipboard] = data
	s.mu.Unlock()
}

func (s *viewerSurface) GetClipboard(clipboard uint8) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.clip[clipboard]
	return data, ok
}

// drain applies queued effects to the screen on the viewer goroutine.
func (s *viewerSurface) drain(screen tcell.Screen) {
	s.mu.Lock()
	title, bell := s.title, s.bell
	s.title, s.bell = nil, false
	s.mu.Unlock()

	if title != nil {
		screen.SetTitle(*title)
	}
	if bell {
		screen.Beep()
	}
}

var _ termio.Surface = (*viewerSurface)(nil)
