package terminal

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/charset"
	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/core"
	pagepkg "github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/screen"
	"github.com/hnimtadd/termcore/terminal/sequences/csi"
	"github.com/hnimtadd/termcore/terminal/set"
	"github.com/hnimtadd/termcore/terminal/sgr"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/style"
	styleid "github.com/hnimtadd/termcore/terminal/style/id"
	"github.com/hnimtadd/termcore/terminal/tabstops"
	"github.com/hnimtadd/termcore/terminal/utils"
	dw "github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// ScreenType identifies which of the two screens is active.
type ScreenType int

const (
	ScreenTypePrimary ScreenType = iota
	ScreenTypeAlternate
)

type (
	Options struct {
		Cols int // The number of columns in the terminal
		Rows int // The number of rows in the terminal

		// The default mode state. When the terminal gets a reset, it wqill revert
		// back to this state
		Modes map[core.Mode]bool

		Logger logger.Logger
	}
	// Terminal is the VT-series terminal model: it owns the two screens,
	// the mode state, margins, tabstops and charsets, and exposes the
	// operations the escape sequence handlers invoke.
	Terminal struct {
		// The active screen. Either the primary (with scrollback) or the
		// alternate (no scrollback, cleared on resize).
		Screen *screen.Screen

		// The inactive counterpart of Screen, swapped in by the alt screen
		// modes (47/1047/1049).
		secondary *screen.Screen
		active    ScreenType

		// The size of the terminal
		rows, cols size.CellCountInt

		// The size of display in pixels
		width, height int
		Modes         *core.ModeState

		pwd string // Current working directory

		// The previous printed character, we need this one for the repeat
		// previous char CSI (ESC [ <n> b).
		previousChar *uint32

		// Cursor shape as set by DECSCUSR, reported by DECRQSS.
		cursorStyle csi.CursorStyle

		// Where the tabstops are.
		tabstops *tabstops.Tabstops

		// The current sscrolling region.
		scrollingRegion *ScrollingRegion

		logger logger.Logger
	}

	// Scroll region is the are of the screen designated where scolling
	// occurs. When scrolling the screen, on this viewport is scroled.
	ScrollingRegion struct {
		// Top and bottom of the scroll region (0-indexed)
		// Precondition: top < bottom.
		top    size.CellCountInt
		bottom size.CellCountInt

		// Left/right scroll regions.
		// Precondition: right > left
		// Precondition: right <= cols - 1
		left  size.CellCountInt
		right size.CellCountInt
	}
)

func NewTerminal(opts Options) *Terminal {
	cols := size.CellCountInt(opts.Cols)
	rows := size.CellCountInt(opts.Rows)

	// The alternate screen keeps no scrollback.
	secondary := screen.NewScreen(cols, rows)
	secondary.NoScrollback = true

	return &Terminal{
		Screen:    screen.NewScreen(cols, rows),
		secondary: secondary,
		active:    ScreenTypePrimary,
		rows:      rows,
		cols:      cols,
		Modes:     core.NewModeState(opts.Modes, opts.Modes),
		tabstops: tabstops.NewTabstops(
			cols,
			tabstops.TABSTOP_INTERVAL,
		),
		scrollingRegion: &ScrollingRegion{
			top:    0,
			bottom: rows - 1,
			left:   0,
			right:  cols - 1,
		},
		pwd:    "",
		logger: opts.Logger,
	}
}

// Cols returns the terminal width in cells.
func (t *Terminal) Cols() size.CellCountInt { return t.cols }

// Rows returns the terminal height in cells.
func (t *Terminal) Rows() size.CellCountInt { return t.rows }

// ActiveScreen reports which screen is currently active.
func (t *Terminal) ActiveScreen() ScreenType { return t.active }

// SetPixelSize records the size of the display area in pixels. Used by
// the XTWINOPS size reports.
func (t *Terminal) SetPixelSize(width, height int) {
	t.width = width
	t.height = height
}

// PixelSize returns the display area size in pixels.
func (t *Terminal) PixelSize() (width, height int) {
	return t.width, t.height
}

// Backspace moves the cursor back a column (but not less than 0).
func (t *Terminal) Backspace() {
	t.SetCursorLeft(1)
}

// CarriageReturn moves cursor to first column of current line
func (t *Terminal) CarriageReturn() {
	// Always reset pending wrap state
	t.Screen.Cursor.PendingWrap = false

	var x size.CellCountInt
	// In origin mode, we always move to the left margin
	if t.Modes.Get(core.ModeOrigin) {
		x = t.scrollingRegion.left
	} else if t.Screen.Cursor.X >= t.scrollingRegion.left {
		x = t.scrollingRegion.left
	} else {
		x = 0
	}

	t.Screen.SetCursorHorizontalAbs(x)
}

// EraseInDisplay erases part of the display, never honoring protection.
func (t *Terminal) EraseInDisplay(mode csi.EDMode) {
	t.eraseDisplay(mode, false)
}

// EraseInDisplaySelective is the DECSED variant: cells protected by
// DECSCA survive the erase.
func (t *Terminal) EraseInDisplaySelective(mode csi.EDMode) {
	t.eraseDisplay(mode, true)
}

func (t *Terminal) eraseDisplay(mode csi.EDMode, protected bool) {
	switch mode {
	case csi.EDModeComplete:
		// Delete all lines in the screen
		t.Screen.ClearRows(point.Point{
			Tag:        point.TagActive,
			Coordinate: coordinate.Point[size.CellCountInt]{},
		}, nil, protected)
		t.Screen.Cursor.PendingWrap = false

	case csi.EDModeBelow:
		// All lines to the right (including the cursor)
		t.eraseLine(csi.ELModeRight, protected)

		// All lines below
		if t.Screen.Cursor.Y < t.rows-1 {
			t.Screen.ClearRows(
				point.Point{
					Tag: point.TagActive,
					Coordinate: coordinate.Point[size.CellCountInt]{
						Y: t.Screen.Cursor.Y + 1,
					},
				},
				nil,
				protected,
			)
		}
		// Unset pending wrap state
		utils.Assert(!t.Screen.Cursor.PendingWrap)

	case csi.EDModeAbove:
		// All ines to the left (including the cursor)
		t.eraseLine(csi.ELModeLeft, protected)

		// Erase all line above
		if t.Screen.Cursor.Y > 0 {
			t.Screen.ClearRows(
				point.Point{
					Tag: point.TagActive,
					Coordinate: coordinate.Point[size.CellCountInt]{
						Y: 0,
					},
				},
				&point.Point{
					Tag: point.TagActive,
					Coordinate: coordinate.Point[size.CellCountInt]{
						Y: t.Screen.Cursor.Y - 1,
					},
				},
				protected,
			)
		}
		// Unset pending wrap state

		utils.Assert(!t.Screen.Cursor.PendingWrap)
	case csi.EDModeScrollback:
		t.Screen.EraseRows(point.Point{Tag: point.TagHistory}, nil)
	default:
		t.logger.Warn("unimplemented erase display", "mode", mode)
	}
}

// EraseInLine erases part of the cursor row, never honoring protection.
func (t *Terminal) EraseInLine(mode csi.ELMode) {
	t.eraseLine(mode, false)
}

// EraseInLineSelective is the DECSEL variant: cells protected by DECSCA
// survive the erase.
func (t *Terminal) EraseInLineSelective(mode csi.ELMode) {
	t.eraseLine(mode, true)
}

func (t *Terminal) eraseLine(mode csi.ELMode, protected bool) {
	cursor := t.Screen.Cursor
	// Get our start/end positions depending on the mode.
	var start, end size.CellCountInt
	switch mode {
	case csi.ELModeRight:
		start = cursor.X

		// If our X is a wide spacer tail, then we need to erase the previous
		// cell too, as we don't want to split a multi-cell character.
		if start > 0 &&
			cursor.PageCell.Wide == pagepkg.WideSpacerTail {
			start--
		}
		end = t.cols
	case csi.ELModeLeft:
		start = 0

		// If our X is a wide char, then we need to erase the wide char tail
		// too, as we don't want to split a multi-cell character.
		if cursor.PageCell.Wide == pagepkg.WideWide {
			start++
		}
		end = cursor.X + 1

	case csi.ELModeAll:
		start = 0
		end = t.cols
	default:
		t.logger.Error("unimplemented erase line", "mode", mode)
		return
	}

	utils.Assert(end > start)

	// All modes will clear the pending wrap state and we know we have a valid
	// mode at this point
	cursor.PendingWrap = false

	// We always mark our row as dirty
	t.Screen.CursorMarkDirty()

	if protected {
		t.Screen.ClearUnprotectedCells(cursor.PagePin.Node.Data, cursor.PageRow, start, end)
		return
	}
	t.Screen.ClearCells(cursor.PagePin.Node.Data, cursor.PageRow, start, end)
}

// Full reset (RIS). Both screens are dropped, all state reverts to the
// power-on defaults.
func (t *Terminal) FullReset() {
	// Always land on the primary screen.
	if t.active == ScreenTypeAlternate {
		t.Screen, t.secondary = t.secondary, t.Screen
		t.active = ScreenTypePrimary
	}

	t.Screen.Reset()
	t.secondary.Reset()
	t.Modes.Reset()
	t.tabstops.Reset(tabstops.TABSTOP_INTERVAL)
	t.scrollingRegion = &ScrollingRegion{
		top:    0,
		bottom: t.rows - 1,
		left:   0,
		right:  t.cols - 1,
	}
	t.previousChar = nil
	t.cursorStyle = csi.CursorStyleDefault
	t.pwd = ""
}

// SoftReset implements DECSTR. Unlike a full reset, the screen contents
// and the cursor position survive.
func (t *Terminal) SoftReset() {
	t.Screen.SavedCursor = nil
	t.Modes.Set(core.ModeInsert, false)
	t.Modes.Set(core.ModeOrigin, false)
	t.Modes.Set(core.ModeCursorVisible, true)
	t.Modes.Set(core.ModeWraparound, true)
	t.Screen.Charset.Reset()
	t.Screen.Cursor.Protected = false
	t.Screen.Cursor.PendingWrap = false
	t.previousChar = nil
	t.scrollingRegion = &ScrollingRegion{
		top:    0,
		bottom: t.rows - 1,
		left:   0,
		right:  t.cols - 1,
	}
	t.Screen.Cursor.Style = style.Style{}
	t.Screen.ManualStyleUpdate()
}

// Linefeed moves the cursor to the next line.
func (t *Terminal) LineFeed() {
	t.Index()
	if t.Modes.Get(core.ModeLineFeed) {
		t.CarriageReturn()
	}
}

// Print writes a single codepoint at the cursor, handling soft wrap,
// wide characters and combining sequences.
func (t *Terminal) Print(c uint32) {
	// After doing any printing, wrapping, etc. we want to ensure that our
	// display remains in a consistent state.
	defer t.Screen.AssertIntegrity()
	var rightLimit size.CellCountInt

	// our right margin depends where our cursor is now
	if t.Screen.Cursor.X > t.scrollingRegion.right {
		rightLimit = t.cols
	} else {
		rightLimit = t.scrollingRegion.right + 1
	}

	// Grapheme clustering (mode 2027): when the new codepoint continues
	// the cluster in the previous cell it attaches there instead of
	// occupying a cell of its own.
	if c > 0xFF && t.Modes.Get(core.ModeGraphemeCluster) && t.Screen.Cursor.X > 0 {
		if prev, x, ok := t.previousTextCell(); ok && prev.HasText() {
			if t.graphemeContinues(prev, x, c) {
				t.Screen.Cursor.PagePin.Node.Data.AppendGrapheme(
					t.Screen.Cursor.PageRow, x, c)
				t.Screen.CursorMarkDirty()
				return
			}
		}
	}

	// Determine the width of this character so we can handle
	// non-single-width characters properly. We have a fast-path for byte-sized
	// characters since they're so common. We can ignore control characters
	// because they are always filtered prior.
	var width size.CellCountInt
	if c <= 0xFF {
		width = 1
	} else {
		width = size.CellCountInt(dw.RuneWidth(rune(c)))
	}

	utils.Assert(width <= 2)

	// Zero-width codepoints attach to the cell holding the previously
	// printed character.
	if width == 0 {
		// With clustering enabled the break check above already decided
		// this codepoint starts a new (invisible) cluster; drop it.
		if t.Modes.Get(core.ModeGraphemeCluster) {
			return
		}

		// At the first column there is nothing to attach to. Combining
		// marks are always preceded by their base at the time of writing.
		if t.Screen.Cursor.X == 0 {
			return
		}

		prev, x, ok := t.previousTextCell()
		if !ok || !prev.HasText() {
			return
		}
		t.Screen.Cursor.PagePin.Node.Data.AppendGrapheme(
			t.Screen.Cursor.PageRow, x, c)
		t.Screen.CursorMarkDirty()
		return
	}
	t.previousChar = &c

	// If we're soft-wrapping, then handle that first.
	if t.Screen.Cursor.PendingWrap && t.Modes.Get(core.ModeWraparound) {
		t.PrintWrap()
	}

	// If we have insert mode enabled, then we need to handle that.
	// We only do insert mode if we are not at the end of the line.
	if t.Modes.Get(core.ModeInsert) && t.Screen.Cursor.X+width < t.cols {
		t.InsertBlanks(uint16(width))
	}
	switch width {
	// Single cell, is very easy, just write in the cell
	case 1:
		t.Screen.CursorMarkDirty()
		t.printCell(c, pagepkg.WideNarrow)

	// Wide character requires a spacer. We print this by using two cells:
	// the first is flagged "wide" and has the wide char. The second is spacer
	// tail if we are not at the end of the line, or spacer head if we are at
	// the end of the line.
	case 2:
		if (rightLimit - t.scrollingRegion.left) > 1 {
			//  If we don't have space for the wide char, we need to insert
			//  spacers and wrap, then we just print the wide char as normal
			if t.Screen.Cursor.X == rightLimit-1 {
				// If we don't have wraparound enabled, then we don't print
				// this character at all and don't move the cursor.
				// This is how xterm behaves
				if !t.Modes.Get(core.ModeWraparound) {
					return
				}

				// A spacer head marks the hole only at the true edge of the
				// screen; at a right margin the cell is simply left empty.
				if rightLimit == t.cols {
					t.printCell(0, pagepkg.WideSpacerHead)
				} else {
					t.Screen.CursorMarkDirty()
					t.printCell(0, pagepkg.WideNarrow)
				}
				t.PrintWrap()
			}

			// We are at new line now, and ready to write 1 widechar with space
			// tail
			t.Screen.CursorMarkDirty()
			t.printCell(c, pagepkg.WideWide)
			t.Screen.SetCursorRight(1)
			t.printCell(0, pagepkg.WideSpacerTail)
		} else {
			// This is pretty broken, terminals should nevel be only 1-wide.
			// We should pretty much never hit this case.
			t.Screen.CursorMarkDirty()
			t.printCell(0, pagepkg.WideNarrow)
		}
	}

	// If we are at the end of the line, we need to wrap the next time.
	// In this case, we don't move the cursor.
	if t.Screen.Cursor.X == rightLimit-1 {
		t.Screen.Cursor.PendingWrap = true
		return
	}

	t.Screen.SetCursorRight(1)
}

// previousTextCell resolves the cell holding the most recently printed
// codepoint: the cell left of the cursor, or the cursor cell itself when
// a wrap is pending, hopping over a wide spacer tail. ok is false at the
// start of a fresh row.
func (t *Terminal) previousTextCell() (cell *pagepkg.Cell, x size.CellCountInt, ok bool) {
	cursor := t.Screen.Cursor

	var left size.CellCountInt = 1
	if cursor.PendingWrap {
		// The cursor never advanced past the printed cell.
		left = 0
	}
	if left > cursor.X {
		return nil, 0, false
	}

	x = cursor.X - left
	cell = cursor.PageRow.Cells[x]
	if cell.Wide == pagepkg.WideSpacerTail {
		utils.Assert(x > 0)
		x--
		cell = cursor.PageRow.Cells[x]
	}
	return cell, x, true
}

// graphemeContinues reports whether c extends the grapheme cluster held
// in the given cell rather than starting a new one. The full codepoint
// sequence of the cell is considered so stateful rules (regional
// indicator pairs, ZWJ sequences) resolve correctly.
func (t *Terminal) graphemeContinues(cell *pagepkg.Cell, x size.CellCountInt, c uint32) bool {
	var cluster []rune
	cluster = append(cluster, rune(cell.ContentCP))
	if cell.GraphemeExtended {
		page := t.Screen.Cursor.PagePin.Node.Data
		for _, cp := range page.GraphemeCodepoints(t.Screen.Cursor.PageRow, x) {
			cluster = append(cluster, rune(cp))
		}
	}
	cluster = append(cluster, rune(c))
	return uniseg.GraphemeClusterCount(string(cluster)) == 1
}

func (t *Terminal) PrintWrap() {
	// We only mark that we soft-wrapped if we're at the edge of our
	// full screen. We don't mark the row as wrapped if we're in the
	// middle due to a right margin.
	markWrap := t.Screen.Cursor.X == t.cols-1
	if markWrap {
		t.Screen.Cursor.PageRow.Wrap = true
	}

	// Get the old semantic prompt so we can extend it to the next
	// line. We need to do this before we index() because we may
	// modify memory.
	oldPrompt := t.Screen.Cursor.PageRow.SemanticPrompt

	// Move to the next line
	t.Index()
	t.Screen.SetCursorHorizontalAbs(t.scrollingRegion.left)
	if markWrap {
		// New line must inherit semantic prompt of the old line
		t.Screen.Cursor.PageRow.SemanticPrompt = oldPrompt
		t.Screen.Cursor.PageRow.WrapContinuation = true
	}
	// Assure that our screen is consistent
	t.Screen.AssertIntegrity()
}

func (t *Terminal) printCell(unmapped uint32, wide pagepkg.Wide) {
	cursor := t.Screen.Cursor
	defer t.Screen.AssertIntegrity()

	// Map through the invoked charset table. A pending single shift is
	// consumed by exactly one printable.
	c := uint32(t.Screen.Charset.Map(rune(unmapped)))

	cell := t.Screen.Cursor.PageCell

	// If the wide property of this cell is the same, then we don't need to do
	// the special handling here because the structure will be the same. If it
	// is NOT the same, then we may need to clear some cells.
	if cell.Wide != wide {
		switch cell.Wide {
		case pagepkg.WideNarrow:
			break
		// Previous cell was wide, so we need to clear the tail and head.
		case pagepkg.WideWide:
			if cursor.X >= t.cols-1 {
				break
			}

			t.Screen.ClearCells(
				cursor.PagePin.Node.Data,
				cursor.PageRow,
				cursor.X+1, // spacer cell is at cursor.X+1
				cursor.X+2,
			)

			if cursor.Y > 0 && cursor.X <= 1 {
				headCell := t.Screen.CursorCellEndOfPrevious()
				headCell.Wide = pagepkg.WideNarrow
			}
		case pagepkg.WideSpacerTail:
			utils.Assert(cursor.X > 0)

			// So integrity check pass. We fix this up later so we don't need
			// to do this without safety checks.
			cell.Wide = pagepkg.WideNarrow

			t.Screen.ClearCells(
				cursor.PagePin.Node.Data,
				cursor.PageRow,
				cursor.X-1, // cursor.X-1 is the wide cell
				cursor.X,
			)
			if cursor.Y > 0 && cursor.X <= 1 {
				// We need to clear the head of the previous cell
				headCell := t.Screen.CursorCellEndOfPrevious()
				headCell.Wide = pagepkg.WideNarrow
			}
		// A spacer head is simply overwritten; the wide character it
		// belonged to lives on the next row and stays intact.
		case pagepkg.WideSpacerHead:
			break

		}
	}

	// Overwriting a cell with combining marks drops the side-table entry.
	if cell.GraphemeExtended {
		cursor.PagePin.Node.Data.ClearGrapheme(cursor.PageRow, cursor.X)
	}

	// We don't need to update the style refs unless the cell's new style
	// will be different after writing.
	styleChanged := cell.StyleID != cursor.StyleID
	if styleChanged {
		page := cursor.PagePin.Node.Data
		// Release the old style
		if cell.StyleID != styleid.DefaultID {
			utils.Assert(cursor.PageRow.Styled)
			page.Styles.Release(set.ID(cell.StyleID))
		}
	}

	{
		(*cell).ContentTag = pagepkg.ContentTagCP
		(*cell).ContentCP = c
		(*cell).StyleID = cursor.StyleID
		(*cell).Wide = wide
		(*cell).Protected = cursor.Protected
		(*cell).GraphemeExtended = false
	}

	if styleChanged {
		page := cursor.PagePin.Node.Data

		// Use the new style
		if cell.StyleID != styleid.DefaultID {
			page.Styles.Use(set.ID(cell.StyleID))
			cursor.PageRow.Styled = true
		}
	}
}

// PrintRepeat repeats the previously printed character (REP).
func (t *Terminal) PrintRepeat(repeated uint16) {
	if t.previousChar == nil {
		return
	}
	count := max(repeated, 1)
	for range count {
		t.Print(*t.previousChar)
	}
}

// TabSet implements HTS, setting a tabstop at the cursor column.
func (t *Terminal) TabSet() {
	t.tabstops.Set(t.Screen.Cursor.X)
}

// TabClear implements TBC.
func (t *Terminal) TabClear(mode csi.TabClearMode) {
	switch mode {
	case csi.TabClearCurrent:
		t.tabstops.Unset(t.Screen.Cursor.X)
	case csi.TabClearAll:
		t.tabstops.Reset(0)
	default:
		t.logger.Warn("invalid tab clear mode", "mode", mode)
	}
}

// Move the cursor left amount collumns. If amount is greater than the maximum
// move distance then it is internally adjusted to the maximum move distance.
// If amount is 0, adjust it to 1.
func (t *Terminal) SetCursorLeft(offset uint16) {
	// Wrapping behavior depneds on various terminal modes
	const (
		wrapModeNone = iota
		wrapModeReverse
		wrapModeReverseExtended
	)
	wrapMode := wrapModeNone
	switch {
	case !t.Modes.Get(core.ModeWraparound):
		wrapMode = wrapModeNone
	case t.Modes.Get(core.ModeReverseWrapExtended):
		wrapMode = wrapModeReverseExtended
	case t.Modes.Get(core.ModeReverseWrap):
		wrapMode = wrapModeReverse
	}

	count := size.CellCountInt(max(offset, 1))

	// Without reverse wrap the movement stops at the left edge. This is
	// the fast and most typical path.
	if wrapMode == wrapModeNone {
		t.Screen.SetCursorLeft(min(count, t.Screen.Cursor.X))
		t.Screen.Cursor.PendingWrap = false
		return
	}

	// If we have a pending wrap state and we are in either reverse wrap
	// modes then we decrement the amount we move by one to match xterm.
	if t.Screen.Cursor.PendingWrap {
		t.Screen.Cursor.PendingWrap = false
		count--
	}

	// The margins we can move to.
	top := t.scrollingRegion.top
	bottom := t.scrollingRegion.bottom
	rightMargin := t.scrollingRegion.right
	leftMargin := t.scrollingRegion.left
	if t.Screen.Cursor.X < leftMargin {
		leftMargin = 0
	}

	// In plain reverse wrap mode a cursor already on the left margin at
	// or above the top margin parks at the region top-left.
	if t.Screen.Cursor.X == leftMargin &&
		wrapMode == wrapModeReverse &&
		t.Screen.Cursor.Y <= top {
		t.Screen.SetCursorAbs(leftMargin, top)
		return
	}

	for {
		// We can move at most to the left margin.
		maxLeft := t.Screen.Cursor.X - leftMargin

		// We want to move at most the number of columns we have left
		// or our remaining count. Do the move.
		amount := min(maxLeft, count)
		count -= amount
		t.Screen.SetCursorLeft(amount)

		// If we have no more to move, then we're done.
		if count == 0 {
			break
		}

		// If we are at the top, then we are done.
		if t.Screen.Cursor.Y == top {
			if wrapMode != wrapModeReverseExtended {
				break
			}
			t.Screen.SetCursorAbs(rightMargin, bottom)
			count--
			continue
		}

		// Wrap to the right margin of the previous row.
		t.Screen.SetCursorAbs(rightMargin, t.Screen.Cursor.Y-1)
		count--
	}
}

// Move the cursor down amount line. If amount is greater than the maximum
// move distance then it is internally adjusted to the maximum move distance.
// If amount is 0, adjust it to 1.
func (t *Terminal) SetCursorDown(offset uint16, carriage bool) {
	// Always reset pending wrap state
	t.Screen.Cursor.PendingWrap = false

	// The maximum amount the cursor can move up depends on scrolling regions
	var maxm size.CellCountInt
	if t.Screen.Cursor.Y <= t.scrollingRegion.bottom {
		// inside of scrolling region, margin is to the bottom of the scrolling
		// region
		maxm = t.scrollingRegion.bottom - t.Screen.Cursor.Y
	} else {
		// outside of scrolling region, margin is to the bottom of the screen
		maxm = (t.rows - 1) - t.Screen.Cursor.Y
	}
	adjustedCount := min(maxm, max(size.CellCountInt(offset), 1))

	t.Screen.SetCursorDown(adjustedCount)

	if carriage {
		t.CarriageReturn()
	}
}

// Move the cursor up amount line. If amount is greater than the maximum move
// distance then it is internally adjusted to the maximum move distance.
// If amount is 0, adjust it to 1.
func (t *Terminal) SetCursorUp(offset uint16, carriage bool) {
	// Always reset pending wrap state
	t.Screen.Cursor.PendingWrap = false

	// The maximum amount the cursor can move up depends on scrolling regions
	var maxm size.CellCountInt
	if t.Screen.Cursor.Y >= t.scrollingRegion.top {
		// inside scrolling region, margin is to the top of scrolling region
		maxm = t.Screen.Cursor.Y - t.scrollingRegion.top
	} else {
		// outside scrolling region, margin is to the top of the screen
		maxm = t.Screen.Cursor.Y
	}

	adjustedCount := min(maxm, max(size.CellCountInt(offset), 1))

	t.Screen.SetCursorUp(adjustedCount)

	if carriage {
		t.CarriageReturn()
	}
}

// Move the cursor right amount collumns. If amount is greater than the maximum
// move distance then it is internally adjusted to the maximum move distance.
// If amount is 0, adjust it to 1.
func (t *Terminal) SetCursorRight(offset uint16) {
	// Always reset pending wrap state
	t.Screen.Cursor.PendingWrap = false

	// The maximum amount the cursor can move to depends where the cursor is
	var maxm size.CellCountInt
	if t.Screen.Cursor.X <= t.scrollingRegion.right {
		// inside scrolling region, margin is to the right of scrolling region
		maxm = t.scrollingRegion.right - t.Screen.Cursor.X
	} else {
		// outside of scrolling region, margin is to the right of the screen
		maxm = t.cols - t.Screen.Cursor.X - 1
	}
	offset = min(uint16(maxm), max(offset, 1))
	t.Screen.SetCursorRight(size.CellCountInt(offset))
}

// SetCursorTabRight moves the cursor to the next tabstop, repeated times,
// saturating at the right margin.
func (t *Terminal) SetCursorTabRight(repeated uint16) {
	for range repeated {
		for t.Screen.Cursor.X < t.scrollingRegion.right {
			// Move the cursor right
			t.Screen.SetCursorRight(1)

			// If the last cursor position was a tabstop, this repeat is
			// done. We do "last cursor position" becasue we want a space
			// to be written at the tab stop unless we're at the end.
			if t.tabstops.Get(t.Screen.Cursor.X) {
				break
			}
		}
	}
}

// SetCursorTabLeft similar to SetCursorTabRight, but move the cursor to the
// previous tabstop instead
func (t *Terminal) SetCursorTabLeft(repeated uint16) {
	var leftLimit size.CellCountInt
	// With origin mode enabled, our leftmost limit is the left margin
	if t.Modes.Get(core.ModeOrigin) {
		leftLimit = t.scrollingRegion.left
	} else {
		leftLimit = 0
	}
	for range repeated {
		for t.Screen.Cursor.X > leftLimit {
			// Move the cursor left
			t.Screen.SetCursorLeft(1)

			if t.tabstops.Get(t.Screen.Cursor.X) {
				break
			}
		}
	}
}

// SetGraphicsRendition applies a parsed SGR attribute to the cursor style.
func (t *Terminal) SetGraphicsRendition(sgr *sgr.Attribute) {
	t.Screen.SetGraphicsRendition(sgr)
}

// Moves the cursor to the next line.
//
// If the cursor is outside of the scrolling region: move the cursor one line
// down if it isn not on the bottom-most line of the screen.
//
// If the cursor is inside the scrolling region:
//   - If the cursor is on the bottom-most line of the scrolling region,
//     a scroll up is performed
//     with amount=1
//   - If the cursor is not on the bottom-most line of the scrolllng region,
//     move the cursor one line down
//
// This unset the pending wrap state without wraping.
func (t *Terminal) Index() {
	// Unset pending wrap state
	t.Screen.Cursor.PendingWrap = false

	// Outside of the scrolling region, we move the cursor one line down.
	if t.Screen.Cursor.Y < t.scrollingRegion.top ||
		t.Screen.Cursor.Y > t.scrollingRegion.bottom {
		// We only move down if we are not already at the bottom of the
		// screen
		if t.Screen.Cursor.Y < t.rows-1 {
			t.Screen.SetCursorDown(1)
		}
		return
	}
	// If the cursor is inside the scrolling region, and on the bottom-most
	// line, then we scroll up. If our scrolling region is the full screen
	// we create scrollback.
	if (t.Screen.Cursor.Y == t.scrollingRegion.bottom) &&
		t.Screen.Cursor.X >= t.scrollingRegion.left &&
		t.Screen.Cursor.X <= t.scrollingRegion.right {

		// If our scrlling region is the full screen, we create scrollback.
		if t.scrollingRegion.top == 0 &&
			t.scrollingRegion.bottom == t.rows-1 &&
			t.scrollingRegion.left == 0 &&
			t.scrollingRegion.right == t.cols-1 {
			t.Screen.SetCursorScrollUp()
			return
		}

		// Left/right margins force the slow cell-copying path.
		if t.scrollingRegion.left != 0 ||
			t.scrollingRegion.right != t.cols-1 {
			t.ScrollUp(1)
			return
		}

		// Preserve old cursor just for assertions.
		oldX, oldY := t.Screen.Cursor.X, t.Screen.Cursor.Y

		t.Screen.Pages.EraseRowsBounded(point.Point{
			Tag: point.TagActive,
			Coordinate: coordinate.Point[size.CellCountInt]{
				Y: t.scrollingRegion.top,
			},
		}, t.scrollingRegion.bottom-t.scrollingRegion.top)

		// eraseRow will end up moving the cursor pin up by 1, so we need to move
		// it back down.
		utils.Assert(t.Screen.Cursor.X == oldX)
		utils.Assert(t.Screen.Cursor.Y == oldY)
		t.Screen.Cursor.Y -= 1
		t.Screen.SetCursorDown(1)

		// The operations above can prune our cursor style, so we need to
		// update. This should never fail because the above can only FREE
		// memory
		t.Screen.ManualStyleUpdate()
		return
	}

	// Increase the cursor by 1, maximum to bottom of view region
	if t.Screen.Cursor.Y < t.scrollingRegion.bottom {
		t.SetCursorDown(1, false)
	}
}

// ReverseIndex moves the cursor to the previous line, possibly scrolling.
//
// If the cursor is outside of the scrolling region, move the cursor one line
// up if it is not on the top-most line of the screen
//
// If the cursor is inside the scrolling region:
//
// * If the cursor is on the top-most line: invoke scrolldown with amount=1
// * If the cursor is not on the top-most line: just move 1 line up
func (t *Terminal) ReverseIndex() {
	if t.Screen.Cursor.Y != t.scrollingRegion.top ||
		t.Screen.Cursor.X < t.scrollingRegion.left ||
		t.Screen.Cursor.X > t.scrollingRegion.right {
		t.SetCursorUp(1, false)
		return
	}
	t.ScrollDown(1)
}

// SetCursorPosition move cursor to the position indicated
// by row and col (1-indexed). If collumn = 0, it is adjusted to 1.
// If column > the right-most col, it is adjusted to the right-most col.
// If row = 0, it is adjusted to 1.
// If row > the bottom-most row, it is adjusted to the bottom-most row.
func (t *Terminal) SetCursorPosition(row uint16, col uint16) {
	// If cursor origin mode is set the cursor row will be moved relative to
	// the top margin row and adjusted to be above or at bottom-most row
	// in the current scroll region.
	//
	// If origin mode is set and left and right margin mode is set the cursor
	// will be moved relative to the left margin column and adjusted to be on
	// or left of the right margin column.
	type params struct {
		xOffset size.CellCountInt
		yOffset size.CellCountInt
		xMax    size.CellCountInt
		yMax    size.CellCountInt
	}
	var p params

	if t.Modes.Get(core.ModeOrigin) {
		p = params{
			xOffset: t.scrollingRegion.left,
			yOffset: t.scrollingRegion.top,
			xMax:    t.scrollingRegion.right + 1,  // 1-indexed
			yMax:    t.scrollingRegion.bottom + 1, // 1-indexed
		}
	} else {
		p = params{
			xMax: t.cols,
			yMax: t.rows,
		}
	}

	// Unset pending wrap state
	t.Screen.Cursor.PendingWrap = false

	// Calculate new x/y
	var irow, icol size.CellCountInt
	if row == 0 {
		irow = 1
	} else {
		irow = size.CellCountInt(row)
	}

	if col == 0 {
		icol = 1
	} else {
		icol = size.CellCountInt(col)
	}

	var y, x size.CellCountInt
	x = max(min(p.xMax, icol+p.xOffset)-1, 0)
	y = max(min(p.yMax, irow+p.yOffset)-1, 0)
	cursor := t.Screen.Cursor

	// If the y is unchanged then this is fast pointer math
	if y == cursor.Y {
		if x > cursor.X {
			t.Screen.SetCursorRight(x - cursor.X)
		} else {
			t.Screen.SetCursorLeft(cursor.X - x)
		}
		return
	}

	// If everything changed we do an absolute change which is slightly slower
	t.Screen.SetCursorAbs(x, y)
}

// SetTopBottomMargin implements DECSTBM. Row arguments are 1-indexed; a
// bottom of 0 means the last row. Invalid regions (top >= bottom) are
// ignored. The cursor homes afterwards.
func (t *Terminal) SetTopBottomMargin(topReq, bottomReq uint16) {
	top := max(1, topReq)
	bottom := min(uint16(t.rows), bottomReq)
	if bottomReq == 0 {
		bottom = uint16(t.rows)
	}
	if top >= bottom {
		return
	}

	t.scrollingRegion.top = size.CellCountInt(top - 1)
	t.scrollingRegion.bottom = size.CellCountInt(bottom - 1)

	t.SetCursorPosition(1, 1)
}

// SetLeftRightMargin implements DECSLRM. This does nothing unless the
// left/right margin mode (DECLRMM, mode 69) is enabled. Column arguments
// are 1-indexed; a right of 0 means the last column. The cursor homes
// afterwards.
func (t *Terminal) SetLeftRightMargin(leftReq, rightReq uint16) {
	if !t.Modes.Get(core.ModeLeftRightMargins) {
		return
	}

	left := max(1, leftReq)
	right := min(uint16(t.cols), rightReq)
	if rightReq == 0 {
		right = uint16(t.cols)
	}
	if left >= right {
		return
	}

	t.scrollingRegion.left = size.CellCountInt(left - 1)
	t.scrollingRegion.right = size.CellCountInt(right - 1)

	t.SetCursorPosition(1, 1)
}

// TopBottomMargins returns the vertical scroll region, 0-indexed inclusive.
func (t *Terminal) TopBottomMargins() (top, bottom size.CellCountInt) {
	return t.scrollingRegion.top, t.scrollingRegion.bottom
}

// LeftRightMargins returns the horizontal scroll region, 0-indexed inclusive.
func (t *Terminal) LeftRightMargins() (left, right size.CellCountInt) {
	return t.scrollingRegion.left, t.scrollingRegion.right
}

// ScrollUp removes count lines from the top of the scroll region. The
// remaining lines to the bottom margin are shifted up and space from the
// bottom margin up is filled with empty lines.
//
// The new lines are created according to the current SGR state.
//
// Does not change the (absolute) cursor position.
func (t *Terminal) ScrollUp(count uint16) {
	// Preserve our x/y to restore
	oldX := t.Screen.Cursor.X
	oldY := t.Screen.Cursor.Y
	oldWrap := t.Screen.Cursor.PendingWrap
	defer func() {
		t.Screen.SetCursorAbs(oldX, oldY)
		t.Screen.Cursor.PendingWrap = oldWrap
	}()

	// Move the cursor to the top of the scroll region
	t.Screen.SetCursorAbs(t.scrollingRegion.left, t.scrollingRegion.top)
	t.DeleteLines(count)
}

// ScrollDown shifts the scroll region contents down by count lines,
// filling from the top. The cursor position is preserved.
func (t *Terminal) ScrollDown(count uint16) {
	// Preserve our x/y to restore
	oldX, oldY, oldWrap := t.Screen.Cursor.X, t.Screen.Cursor.Y, t.Screen.Cursor.PendingWrap
	defer func() {
		t.Screen.SetCursorAbs(oldX, oldY)
		t.Screen.Cursor.PendingWrap = oldWrap
	}()

	// Move the cursor to the top of the scroll region
	t.Screen.SetCursorAbs(t.scrollingRegion.left, t.scrollingRegion.top)
	t.InsertLines(count)
}

// swapRowContents exchanges everything that travels with a row's content,
// leaving the rows' own positions (Y) in place. The stable row identity
// moves with the content so render caches follow the shift.
func swapRowContents(dst, src *pagepkg.Row) {
	dst.ID, src.ID = src.ID, dst.ID
	dst.Cells, src.Cells = src.Cells, dst.Cells
	dst.Wrap, src.Wrap = src.Wrap, dst.Wrap
	dst.WrapContinuation, src.WrapContinuation = src.WrapContinuation, dst.WrapContinuation
	dst.SemanticPrompt, src.SemanticPrompt = src.SemanticPrompt, dst.SemanticPrompt
	dst.Styled, src.Styled = src.Styled, dst.Styled
	dst.Graphemes, src.Graphemes = src.Graphemes, dst.Graphemes
}

// Insert line repeated time at the current cursor row. The content of the
// line at the current cursor row and below (to the bottom-most line in the
// scrollingRegion) are shifted down by amount lines.
//
// This unsets the pending wrap state without wrapping. If the current cursor
// position is outside of the current scroll region it does nothing.
//
// If amount is greater than the remaining number of lines in the scrolling
// region it is adjusted down (still alowing for scrolling out every remaini
// line in the scrlling region)
//
// If left and right margin mode the margins are respected; lines are only
// scrolled in the scroll region.
//
// All cleared space is colored according to the current SGR state.
//
// Move the cursor to the left margin
func (t *Terminal) InsertLines(repeated uint16) {
	if repeated == 0 {
		return
	}

	// If the cursor is outside the scroll region, we do nothing
	if t.Screen.Cursor.Y < t.scrollingRegion.top ||
		t.Screen.Cursor.Y > t.scrollingRegion.bottom ||
		t.Screen.Cursor.X < t.scrollingRegion.left ||
		t.Screen.Cursor.X > t.scrollingRegion.right {
		return
	}

	// At the end, we need to return the cursor to the row it started on,
	// moved to the left margin.
	startY := t.Screen.Cursor.Y
	defer func() {
		t.Screen.SetCursorAbs(t.scrollingRegion.left, startY)
		// Always reset pending wrap state
		t.Screen.Cursor.PendingWrap = false
	}()
	/*
	* ------------------------------------------
	* |                                        |
	* |                                        |
	* |                                   |----| -| <- start row
	* |                                   |    |  |
	* |                                   |    |  | repeated
	* |                             rem   |    | -|
	* |                                   |    |
	* |                                   |    |
	* |                                   |    |
	* |                                   |----|
	* ------------------------------------------
	**/

	// We have a slower path if we have left or right scroll margin.
	leftRight := t.scrollingRegion.left > 0 ||
		t.scrollingRegion.right < t.cols-1

	// Remaining rows from our cursor to the bottom of the scroll region.
	rem := t.scrollingRegion.bottom - t.Screen.Cursor.Y + 1

	// We can only insert up to our remaining lines in the scroll region,
	// so we take wichever is smaller
	adjustedCount := min(size.CellCountInt(repeated), rem)

	// Walk the region bottom-up so shifted rows are never read after they
	// were overwritten.
	curP := t.Screen.Cursor.PagePin.Down(rem - 1)

	// y is our current y position relative to the cursor.
	for y := rem; y > 0; y-- {
		curRAC := curP.RowAndCell()
		curRow := curRAC.Row

		// Mark the row as dirty.
		curP.MarkDirty()

		// If this is one of the lines we need to shift, do so
		if y > adjustedCount {
			offP := curP.Up(adjustedCount)
			offRAC := offP.RowAndCell()
			offRow := offRAC.Row
			t.rowWillBeShifted(curP.Node.Data, curRow)
			t.rowWillBeShifted(offP.Node.Data, offRow)

			srcP := offP
			srcRow := offRow
			dstP := curP
			dstRow := curRow

			// if our page doesn't match, then we need to do a copy from one
			// page to another. This is the slow path.
			if srcP.Node != dstP.Node {
				if err := dstP.Node.Data.ClonePartialRowFrom(
					srcP.Node.Data,
					dstRow,
					srcRow,
					t.scrollingRegion.left,
					t.scrollingRegion.right+1,
				); err != nil {
					t.logger.Error("insert lines clone failed", "err", err)
				}
			} else {
				if !leftRight {
					// Swap the src/dst contents. This ensures that our dst
					// gets the proper shifted rows and src gets non-garbage
					// cell data that we can clear.
					swapRowContents(dstRow, srcRow)

					// A vertical shift over the full width breaks any
					// soft-wrap chain across the boundary.
					dstRow.Wrap = false
					dstRow.WrapContinuation = false
					srcRow.Wrap = false
					srcRow.WrapContinuation = false

					// Ensure that we didn't corrupt the page
					curP.Node.Data.AssertIntegrity()
				} else {
					// Left/right scroll margins we have to
					// copy cells, which is much slower...
					page := curP.Node.Data
					page.MoveCells(
						srcRow, t.scrollingRegion.left,
						dstRow, t.scrollingRegion.left,
						t.scrollingRegion.right-t.scrollingRegion.left+1,
					)
				}
			}
		} else {
			// Clear the cells for this row, it's has been shifted
			page := curP.Node.Data
			t.Screen.ClearCells(page, curRow,
				t.scrollingRegion.left, t.scrollingRegion.right+1)
		}

		if y > 1 {
			curP = curP.Up(1)
		}
	}
}

// Remove line repeated times from the cursor row doward. The remaining lines
// to the bottom margin are shifted up and space from the bottom margin up is
// filled with empty lines.
//
// If the cursor is outside of the scrolling region, this does nothing.
//
// If repeated is greater than the remaining number of lines in the scrolling
// region it is adjusted down
//
// In left and right margin mode, the margins are respected; lines are only
// scrolled in the scroll region.
//
// # If the cell movement split a multi-cell character, that character cleared,
// by replacing it by spaces, keepings its current attributes. All other
// cleared space is colored according to the current SGR state.
//
// Moves the cursor to the left margin.
func (t *Terminal) DeleteLines(repeated uint16) {
	if repeated == 0 {
		return
	}

	// If the cursor is outside the scrolling region, we do nothing.
	if t.Screen.Cursor.Y < t.scrollingRegion.top ||
		t.Screen.Cursor.Y > t.scrollingRegion.bottom ||
		t.Screen.Cursor.X < t.scrollingRegion.left ||
		t.Screen.Cursor.X > t.scrollingRegion.right {
		return
	}

	// At the end, we need to return the cursor to the row it started on,
	// moved to the left margin.
	startY := t.Screen.Cursor.Y
	defer func() {
		t.Screen.SetCursorAbs(t.scrollingRegion.left, startY)
		// Always reset pending wrap state
		t.Screen.Cursor.PendingWrap = false
	}()

	// We have a slower path if we have left or right scroll margin.
	leftRight := t.scrollingRegion.left > 0 ||
		t.scrollingRegion.right < t.cols-1

	// Remaining rows from our cursor to the bottom of the scroll region.
	rem := t.scrollingRegion.bottom - t.Screen.Cursor.Y + 1

	// We can only delete up to our remaining lines in the scroll region,
	// so we take wichever is smaller
	adjustedCount := min(size.CellCountInt(repeated), rem)

	curP := t.Screen.Cursor.PagePin

	for y := size.CellCountInt(0); y < rem; {
		curRAC := curP.RowAndCell()
		curRow := curRAC.Row
		curP.MarkDirty()

		// If this is one of the lines we need to shift, do so
		if y < rem-adjustedCount {
			offP := curP.Down(adjustedCount)
			offRAC := offP.RowAndCell()
			offRow := offRAC.Row

			t.rowWillBeShifted(curP.Node.Data, curRow)
			t.rowWillBeShifted(offP.Node.Data, offRow)

			srcP := offP
			srcRow := offRow
			dstP := curP
			dstRow := curRow

			// If our page doesn't match, then we need to do a copy from one
			// page to another. This is the slow path.
			if srcP.Node != dstP.Node {
				if err := dstP.Node.Data.ClonePartialRowFrom(
					srcP.Node.Data,
					dstRow,
					srcRow,
					t.scrollingRegion.left,
					t.scrollingRegion.right+1,
				); err != nil {
					t.logger.Error("delete lines clone failed", "err", err)
				}
			} else {
				if !leftRight {
					// Swap the src/dst contents. This ensures that our dst
					// gets the proper shifted rows and src gets non-garbage
					// cell data that we can clear.
					swapRowContents(dstRow, srcRow)

					// A vertical shift over the full width breaks any
					// soft-wrap chain across the boundary.
					dstRow.Wrap = false
					dstRow.WrapContinuation = false
					srcRow.Wrap = false
					srcRow.WrapContinuation = false

					// Ensure that we didn't corrupt the page
					curP.Node.Data.AssertIntegrity()
				} else {
					// Left/right scroll margins we have to
					// copy cells, which is much slower...
					page := curP.Node.Data
					page.MoveCells(
						srcRow, t.scrollingRegion.left,
						dstRow, t.scrollingRegion.left,
						t.scrollingRegion.right-t.scrollingRegion.left+1,
					)
				}
			}
		} else {
			// Clear the cells for this row, its content scrolled out of
			// the region.
			page := curP.Node.Data
			t.Screen.ClearCells(page, curRow,
				t.scrollingRegion.left, t.scrollingRegion.right+1)
		}
		// we have sucessfully process a line.
		y += 1
		if y >= rem {
			break
		}
		curP = curP.Down(1)
	}
}

// Inserts spaces at current cursor position moving existing cell contents
// to the right. The contents of the count right-most columns in the scroll
// region are lost. The cursor position is not changed.
//
// This unset the pending wrap state without wraping.
//
// The inserted cells are colored according the the current SGR state.
func (t *Terminal) InsertBlanks(repeated uint16) {
	cursor := t.Screen.Cursor
	// Unset pending wrap state without wrapping. Note: this purposely happens
	// BEFORE the scroll region check below.
	cursor.PendingWrap = false

	// If our cursor is outside the margins then do nothing. We DO reset
	// wrap state still so this must remain below the above logic.
	if cursor.X < t.scrollingRegion.left ||
		cursor.X > t.scrollingRegion.right {
		return
	}

	// leftX is the cursor position
	leftX := cursor.X
	page := cursor.PagePin.Node.Data

	// if our X is a wide spacer tail, then we need to erase the the previous
	// cell too, as we don't want to split a multi-cell character.
	if cursor.PageCell.Wide == pagepkg.WideSpacerTail {
		utils.Assert(cursor.X > 0)
		t.Screen.ClearCells(page, cursor.PageRow, leftX-1, leftX+1)
	}

	// Remaining cols from our cursor to the right margin
	rem := t.scrollingRegion.right - cursor.X + 1

	// We can only insert blanks up to our remaining cols
	adjustedCount := min(size.CellCountInt(repeated), rem)

	// This is the amount of space at the right of the line that will not be
	// blank, so we need to shift the correct cols right.
	// "amount" is the number of such cols.
	amount := rem - adjustedCount
	if amount > 0 {
		page.PauseIntegrityChecks(true)
		defer page.PauseIntegrityChecks(false)

		x := leftX + (amount - 1)
		// if our last cell we're shifting is a wide, then we need to clear
		// it to be empty, so we don't split a multi-cell char.
		end := cursor.PageRow.Cells[x]
		if end.Wide == pagepkg.WideWide {
			utils.Assert(cursor.PageRow.Cells[x+1].Wide == pagepkg.WideSpacerTail)
			t.Screen.ClearCells(page, cursor.PageRow, x, x+2)
		}

		// We work backwards, so we don't overwrite data. The loop variable
		// is signed on purpose: leftX can be column zero.
		for i := int(x); i >= int(leftX); i-- {
			page.SwapCells(cursor.PageRow,
				size.CellCountInt(i), size.CellCountInt(i)+adjustedCount)
		}
	}

	// Insert blanks. The blanks preserve the background color.
	t.Screen.ClearCells(page, cursor.PageRow, leftX, leftX+adjustedCount)

	// Our row is alway dirty
	t.Screen.CursorMarkDirty()
}

// Remove characters repeated times from the current position to the right.
// The remaining characters are shifted to the left and space from the right
// is filled with spaces
//
// If repated is greater than the remaining number of characters in the
// scrolling region, it is adjusted down.
//
// Does not move the cursor.
func (t *Terminal) DeleteChars(repeated uint16) {
	if repeated == 0 {
		return
	}

	cursor := t.Screen.Cursor

	// If our cursor is outside the margins then do nothing.
	if cursor.X < t.scrollingRegion.left ||
		cursor.X > t.scrollingRegion.right {
		return
	}

	// This resets the pending wrap state.
	cursor.PendingWrap = false

	// leftX is the cursor position
	leftX := cursor.X
	page := cursor.PagePin.Node.Data

	// Remaining cols from our cursor to the right margin
	rem := t.scrollingRegion.right - cursor.X + 1

	// We can only delete up to our remaining cols
	count := min(size.CellCountInt(repeated), rem)

	// Handle boundary conditions where the deleted region touches or
	// splits wide characters.
	t.Screen.SplitCellBoundary(cursor.X)
	t.Screen.SplitCellBoundary(cursor.X + count)
	t.Screen.SplitCellBoundary(t.scrollingRegion.right + 1)

	// This is the amount of space at the right of the line that will not
	// be blank, so we need to shift the correct cols left.
	// "amount" is the number of such cols.
	amount := rem - count
	x := leftX
	if amount > 0 {
		page.PauseIntegrityChecks(true)
		defer page.PauseIntegrityChecks(false)

		rightX := leftX + (amount - 1)

		for ; x <= rightX; x++ {
			page.SwapCells(cursor.PageRow, x, x+count)
		}
	}

	// Insert blanks. The blanks preserve the background color.
	t.Screen.ClearCells(page, cursor.PageRow, x, x+count)

	// Our row is always dirty
	t.Screen.CursorMarkDirty()
}

// EraseChars implements ECH: clears count cells from the cursor to the
// right without shifting, widening by one if the span would otherwise
// split a wide character.
func (t *Terminal) EraseChars(repeated uint16) {
	count := size.CellCountInt(max(repeated, 1))
	cursor := t.Screen.Cursor

	// This resets the pending wrap state.
	cursor.PendingWrap = false

	// Our last index is at most the end of the number of chars we have
	// in the current line.
	remaining := t.cols - cursor.X
	end := min(remaining, count)
	if end != remaining {
		if last := t.Screen.CursorCellRight(end - 1); last.Wide == pagepkg.WideWide {
			end++
		}
	}

	// Handle any boundary conditions on the edges of the erased area.
	t.Screen.SplitCellBoundary(cursor.X)
	t.Screen.SplitCellBoundary(cursor.X + end)

	t.Screen.CursorMarkDirty()
	t.Screen.ClearCells(cursor.PagePin.Node.Data, cursor.PageRow,
		cursor.X, cursor.X+end)
}

// To be called before shifting a row (as in InsertLines and deleteLines).
//
// Take care of boundary conditions such as potentially split wide chars
// across scrolling region boundaries and orphaned spacer heads at line ends.
func (t *Terminal) rowWillBeShifted(page *pagepkg.Page, row *pagepkg.Row) {
	// A spacer head at the end of a row pairs with a wide character on
	// the next row; the vertical shift breaks that pairing.
	if t.scrollingRegion.right == t.cols-1 {
		end := row.Cells[t.cols-1]
		if end.Wide == pagepkg.WideSpacerHead {
			end.Wide = pagepkg.WideNarrow
		}
	}

	// A wide character split by a vertical margin cannot survive the
	// shift; erase both halves.
	if t.scrollingRegion.left > 0 {
		left := row.Cells[t.scrollingRegion.left]
		if left.Wide == pagepkg.WideSpacerTail {
			page.ClearCells(row, t.scrollingRegion.left-1, t.scrollingRegion.left+1)
		}
	}
	if t.scrollingRegion.right < t.cols-1 {
		right := row.Cells[t.scrollingRegion.right]
		if right.Wide == pagepkg.WideWide {
			page.ClearCells(row, t.scrollingRegion.right, t.scrollingRegion.right+2)
		}
	}
}

// SaveCursor implements DECSC: snapshot the cursor position, style,
// protection, pending wrap, origin mode and charset state.
func (t *Terminal) SaveCursor() {
	t.Screen.SavedCursor = &screen.SavedCursor{
		X:           t.Screen.Cursor.X,
		Y:           t.Screen.Cursor.Y,
		Style:       t.Screen.Cursor.Style,
		Protected:   t.Screen.Cursor.Protected,
		PendingWrap: t.Screen.Cursor.PendingWrap,
		Origin:      t.Modes.Get(core.ModeOrigin),
		Charset:     t.Screen.Charset,
	}
}

// RestoreCursor implements DECRC. Restoring without a prior save applies
// the power-on cursor state. The position is clamped to the current
// screen size.
func (t *Terminal) RestoreCursor() {
	saved := t.Screen.SavedCursor
	if saved == nil {
		saved = &screen.SavedCursor{Charset: charset.NewState()}
	}

	t.Screen.Cursor.Style = saved.Style
	t.Screen.ManualStyleUpdate()

	t.Screen.Charset = saved.Charset
	t.Modes.Set(core.ModeOrigin, saved.Origin)
	t.Screen.Cursor.PendingWrap = saved.PendingWrap
	t.Screen.Cursor.Protected = saved.Protected
	t.Screen.SetCursorAbs(
		min(saved.X, t.cols-1),
		min(saved.Y, t.rows-1),
	)
}

// SetProtectedMode implements DECSCA. While enabled, printed cells carry
// the protected attribute and survive DECSED/DECSEL.
func (t *Terminal) SetProtectedMode(protected bool) {
	t.Screen.Cursor.Protected = protected
}

// ScreenAlignmentTest implements DECALN: resets margins and origin mode,
// homes the cursor and fills the screen with 'E'.
func (t *Terminal) ScreenAlignmentTest() {
	// The cursor keeps only its colors through the fill.
	t.Screen.Cursor.Style = style.Style{
		ForegroundColor: t.Screen.Cursor.Style.ForegroundColor,
		BackgroundColor: t.Screen.Cursor.Style.BackgroundColor,
	}
	t.Screen.ManualStyleUpdate()

	t.scrollingRegion = &ScrollingRegion{
		top:    0,
		bottom: t.rows - 1,
		left:   0,
		right:  t.cols - 1,
	}
	t.Modes.Set(core.ModeOrigin, false)
	t.SetCursorPosition(1, 1)

	tl := t.Screen.Pages.GetTopLeft(point.TagActive)
	it := tl.PageIterator(pagelist.DirectionRightDown, nil)
	for chunk := range it.Next() {
		page := chunk.Node.Data
		for y := chunk.StartY; y < chunk.EndY; y++ {
			row := page.Rows[y]
			page.ClearCells(row, 0, page.Size.Cols)
			for _, cell := range row.Cells[:page.Size.Cols] {
				cell.ContentTag = pagepkg.ContentTagCP
				cell.ContentCP = 'E'
			}
		}
		dirty := page.DirtyBitSet()
		dirty.SetRange(int(chunk.StartY), int(chunk.EndY))
	}
}

// DesignateCharset assigns a charset to one of the G0-G3 slots.
func (t *Terminal) DesignateCharset(slot charset.Slot, set charset.Charset) {
	t.Screen.Charset.Designate(slot, set)
}

// InvokeCharset maps a slot into GL or GR, either locking (SI/SO/LS*) or
// for a single following character (SS2/SS3).
func (t *Terminal) InvokeCharset(active charset.ActiveSlot, slot charset.Slot, single bool) {
	if single {
		utils.Assert(active == charset.ActiveSlotGL)
		t.Screen.Charset.SingleShift(slot)
		return
	}
	t.Screen.Charset.Invoke(active, slot)
}

// SetCursorStyle records the DECSCUSR cursor shape.
func (t *Terminal) SetCursorStyle(style csi.CursorStyle) {
	t.cursorStyle = style
}

// CursorStyle returns the current DECSCUSR cursor shape.
func (t *Terminal) CursorStyle() csi.CursorStyle {
	return t.cursorStyle
}

// SetMode sets or resets a terminal mode, applying its side effects.
func (t *Terminal) SetMode(mode core.Mode, enabled bool) {
	t.Modes.Set(mode, enabled)

	switch mode {
	case core.ModeOrigin:
		// Changing origin mode homes the cursor, which also re-anchors
		// it to the scroll region when set.
		t.SetCursorPosition(1, 1)

	case core.Mode132Column:
		t.Deccolm(enabled)

	case core.ModeAltScreenLegacy:
		if enabled {
			t.AlternateScreen(false, false)
		} else {
			t.PrimaryScreen(false, false)
		}

	case core.ModeAltScreen:
		if enabled {
			t.AlternateScreen(false, false)
		} else {
			// Returning from 1047 clears the alternate screen first.
			t.PrimaryScreen(false, true)
		}

	case core.ModeAltScreenSaveClear:
		if enabled {
			t.AlternateScreen(true, true)
		} else {
			t.PrimaryScreen(true, true)
		}

	case core.ModeSaveCursor:
		if enabled {
			t.SaveCursor()
		} else {
			t.RestoreCursor()
		}

	case core.ModeLeftRightMargins:
		// Disabling DECLRMM resets the horizontal margins.
		if !enabled {
			t.scrollingRegion.left = 0
			t.scrollingRegion.right = t.cols - 1
		}
	}
}

// SaveMode records the mode value for a later RestoreMode (XTSAVE).
func (t *Terminal) SaveMode(mode core.Mode) {
	t.Modes.Save(mode)
}

// RestoreMode applies the previously saved mode value (XTRESTORE),
// including the mode's side effects.
func (t *Terminal) RestoreMode(mode core.Mode) {
	t.SetMode(mode, t.Modes.Restore(mode))
}

// Deccolm implements the DECCOLM 80/132 column switch. The switch only
// acts when column mode changes are allowed (mode 40); it clears the
// screen, resets margins and homes the cursor.
func (t *Terminal) Deccolm(enabled bool) {
	if !t.Modes.Get(core.ModeEnableColumnMode) {
		t.Modes.Set(core.Mode132Column, false)
		return
	}

	t.Modes.Set(core.Mode132Column, enabled)

	cols := size.CellCountInt(80)
	if enabled {
		cols = 132
	}
	t.Resize(cols, t.rows)

	t.EraseInDisplay(csi.EDModeComplete)
	t.SetCursorPosition(1, 1)
}

// AlternateScreen switches to the alternate screen if not already there.
// cursorSave additionally saves the cursor on the primary screen (1049),
// clearOnEnter erases the alternate screen after the switch.
func (t *Terminal) AlternateScreen(cursorSave, clearOnEnter bool) {
	if t.active == ScreenTypeAlternate {
		return
	}

	if cursorSave {
		t.SaveCursor()
	}

	old := t.Screen
	t.Screen, t.secondary = t.secondary, t.Screen
	t.active = ScreenTypeAlternate

	// The charset state travels onto the alternate screen.
	t.Screen.Charset = old.Charset

	t.Screen.ClearSelection()

	// Bring the pen with us.
	t.Screen.CursorCopy(old.Cursor)

	if clearOnEnter {
		t.EraseInDisplay(csi.EDModeComplete)
	}
}

// PrimaryScreen switches back to the primary screen if not already there.
// clearOnExit erases the alternate screen before switching, cursorRestore
// applies the cursor saved by AlternateScreen (1049).
func (t *Terminal) PrimaryScreen(cursorRestore, clearOnExit bool) {
	if t.active == ScreenTypePrimary {
		return
	}

	if clearOnExit {
		t.EraseInDisplay(csi.EDModeComplete)
	}

	t.Screen.ClearSelection()

	t.Screen, t.secondary = t.secondary, t.Screen
	t.active = ScreenTypePrimary

	if cursorRestore {
		t.RestoreCursor()
	}
}

// Mark the current semantic prompt information. Current escape sequences
// (OSC 133) only allow setting this for wherever the current active cursor is
// located
func (t *Terminal) MarkSemanticPrompt(prompt pagepkg.SemanticPromptType) {
	switch prompt {
	case pagepkg.SemanticPromptTypePrompt,
		pagepkg.SemanticPromptTypeOutput,
		pagepkg.SemanticPromptTypeInput,
		pagepkg.SemanticPromptTypeContinuation:
		t.Screen.Cursor.PageRow.SemanticPrompt = prompt
	}
}

// Returns true if the cursor is currently at a prompt. Another way to look
// at this is it returns false if the shell is currently outputing something.
// This requires shll integration (sematic prompt integration).
//
// If the shell integration is not enabled, this will always return false.
func (t *Terminal) CursorIsAtPrompt() bool {
	// The alternate screen is never considered a prompt.
	if t.active == ScreenTypeAlternate {
		return false
	}

	// Reverse through the screen
	startX, startY := t.Screen.Cursor.X, t.Screen.Cursor.Y
	defer t.Screen.SetCursorAbs(startX, startY)

	for i := range startY + 1 {
		if i > 0 {
			t.Screen.SetCursorUp(1)
		}
		switch t.Screen.Cursor.PageRow.SemanticPrompt {
		// IF we're at a prompt or input area, then we are at a prompt
		case pagepkg.SemanticPromptTypePrompt,
			pagepkg.SemanticPromptTypeContinuation,
			pagepkg.SemanticPromptTypeInput:
			return true
		// If we have command output, then we're most certainly not at a prompt
		case pagepkg.SemanticPromptTypeOutput:
			return false
		default:
			continue
		}
	}
	return false
}

// Return the current string value of the terminal. Newline are encoded as "\n"
// This omits any formatting such as fg/bg.
func (t *Terminal) PlainString() string {
	w := bytes.NewBuffer(nil)
	if err := t.Screen.DumpString(w, point.TagViewPort); err != nil {
		return ""
	}
	return w.String()
}

// Resize the terminal grid. Content on the primary screen is preserved
// (clamped to the new width, history consumed or grown to satisfy the new
// height); the alternate screen is cleared. The scroll region resets.
func (t *Terminal) Resize(cols, rows size.CellCountInt) {
	// If our cols/rows didn't change, then we don't need to do anything
	if t.cols == cols && t.rows == rows {
		return
	}

	// Resize the tabstops
	if t.cols != cols {
		t.tabstops = tabstops.NewTabstops(cols, tabstops.TABSTOP_INTERVAL)
	}

	t.Screen.Resize(cols, rows)
	t.secondary.Resize(cols, rows)

	t.cols = cols
	t.rows = rows

	// Margins cannot outlive the geometry they were set against.
	t.scrollingRegion = &ScrollingRegion{
		top:    0,
		bottom: rows - 1,
		left:   0,
		right:  cols - 1,
	}
}

// Set a style attibute
func (t *Terminal) SetAttribute(attr sgr.Attribute) {
	t.Screen.SetAttribute(attr)
}

// Set the pwd for the terminal
func (t *Terminal) SetPwd(pwd string) {
	t.pwd = pwd
}

// function to get the current pwd
func (t *Terminal) GetPwd() string {
	return t.pwd
}

// StartHyperlink opens an OSC 8 anchor. Cells printed until the anchor
// closes carry the link.
func (t *Terminal) StartHyperlink(uri string, id string) {
	t.Screen.Cursor.Hyperlink = &screen.Hyperlink{ID: id, URI: uri}
}

// EndHyperlink closes the open anchor, if any.
func (t *Terminal) EndHyperlink() {
	t.Screen.Cursor.Hyperlink = nil
}

// ScrollViewport moves the viewport by delta rows, negative toward the
// scrollback. The active content does not move.
func (t *Terminal) ScrollViewport(delta int) {
	t.Screen.Pages.Scroll(delta)
}

// ScrollViewportTop pins the viewport to the top of the scrollback.
func (t *Terminal) ScrollViewportTop() {
	t.Screen.Pages.ScrollTop()
}

// ScrollViewportBottom returns the viewport to the active area.
func (t *Terminal) ScrollViewportBottom() {
	t.Screen.Pages.ScrollActive()
}

// JumpToPrompt scrolls the viewport to a prompt start, delta prompts
// away from the current view. Negative is an older prompt. Reports
// whether the viewport moved; without shell integration markers there
// is nothing to jump to.
func (t *Terminal) JumpToPrompt(delta int) bool {
	if t.active == ScreenTypeAlternate {
		return false
	}
	return t.Screen.JumpToPrompt(delta)
}

// PrintAttributes renders the current graphic rendition as the payload
// of a DECRPSS reply to a DECRQSS SGR request. The leading 0 resets
// the receiving side before the attributes apply.
func (t *Terminal) PrintAttributes() string {
	var sb strings.Builder
	sb.WriteByte('0')

	pen := t.Screen.Cursor.Style
	if pen.Bold {
		sb.WriteString(";1")
	}
	if pen.Faint {
		sb.WriteString(";2")
	}
	if pen.Italic {
		sb.WriteString(";3")
	}
	if pen.Underline != sgr.UnderlineTypeNone {
		sb.WriteString(";4")
	}
	if pen.Blink {
		sb.WriteString(";5")
	}
	if pen.Inverse {
		sb.WriteString(";7")
	}
	if pen.Invisible {
		sb.WriteString(";8")
	}
	if pen.Strikethrough {
		sb.WriteString(";9")
	}

	switch pen.ForegroundColor.Type {
	case style.ColorTypePalette:
		idx := pen.ForegroundColor.Palette
		switch {
		case idx >= 16:
			fmt.Fprintf(&sb, ";38:5:%d", idx)
		case idx >= 8:
			fmt.Fprintf(&sb, ";9%d", idx-8)
		default:
			fmt.Fprintf(&sb, ";3%d", idx)
		}
	case style.ColorTypeRGB:
		rgb := pen.ForegroundColor.RGB
		fmt.Fprintf(&sb, ";38:2::%d:%d:%d", rgb.R, rgb.G, rgb.B)
	}

	switch pen.BackgroundColor.Type {
	case style.ColorTypePalette:
		idx := pen.BackgroundColor.Palette
		switch {
		case idx >= 16:
			fmt.Fprintf(&sb, ";48:5:%d", idx)
		case idx >= 8:
			fmt.Fprintf(&sb, ";10%d", idx-8)
		default:
			fmt.Fprintf(&sb, ";4%d", idx)
		}
	case style.ColorTypeRGB:
		rgb := pen.BackgroundColor.RGB
		fmt.Fprintf(&sb, ";48:2::%d:%d:%d", rgb.R, rgb.G, rgb.B)
	}

	return sb.String()
}

// Returns true if the point is dirty, used for testing.
func (t *Terminal) isDirty(pt point.Point) bool {
	return t.Screen.Pages.GetCell(pt).IsDirty()
}

// Clear all dirty bits. Testing only.
func (t *Terminal) clearDirty() {
	t.Screen.Pages.ClearDirty()
}
