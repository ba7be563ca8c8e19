package screen

import (
	"fmt"

	"github.com/hnimtadd/termcore/internal/ioutil"
	"github.com/hnimtadd/termcore/terminal/charset"
	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/images"
	pagepkg "github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/set"
	"github.com/hnimtadd/termcore/terminal/sgr"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/style"
	styleid "github.com/hnimtadd/termcore/terminal/style/id"
	"github.com/hnimtadd/termcore/terminal/utils"
	dw "github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding/unicode"
)

//go:generate mockery --outpkg=screenmock --name=ScreenInt --filename=screen_mock.go --structname=MockScreen
type ScreenInt interface {
	// AssertIntegrity asserts that the screen is in a consistent state
	// This is a no-op in production, but can be used in tests to ensure
	// that the screen is in a valid state.
	AssertIntegrity()
	// CursorCellRight returns the cell at the right of the cursor
	CursorCellRight(n size.CellCountInt) *pagepkg.Cell
	// CursorCellLeft returns the cell at the left of the cursor
	CursorCellLeft(n size.CellCountInt) *pagepkg.Cell
	// SetCursorRight moves the cursor to the right by n cells
	// This is a specialized function that is very fast if the caller can
	// guarantee that we have space to move right (no wrapping)
	SetCursorRight(n size.CellCountInt)
	// SetCursorLeft moves the cursor to the left by n cells
	// This is a specialized function that is very fast if the caller can
	// guarantee that we have space to move left (no wrapping)
	SetCursorLeft(n size.CellCountInt)
	// SetCursorUp moves the cursor up by n cells
	// This is a specialized function that is very fast if the caller can
	// guarantee that we have space to move up (no wrapping)
	// Precondition: The cursor is not at the top of the screen
	SetCursorUp(n size.CellCountInt)
	// SetCursorDown moves the cursor down by n cells
	// This is a specialized function that is very fast if the caller can
	// guarantee that we have space to move down (no wrapping)
	// Precondition: The cursor is not at the bottom of the screen
	SetCursorDown(n size.CellCountInt)
	// SetCursorAbs moves the cursor to an absolute position
	SetCursorAbs(x size.CellCountInt, y size.CellCountInt)
	// CursorMarkDirty marks the cursor as dirty
	CursorMarkDirty()
	// SetCursorHorizontalAbs moves the cursor to an absolute horizontal
	// position
	SetCursorHorizontalAbs(x size.CellCountInt)
	// SetCursorVerticalAbs moves the cursor to an absolute vertical position
	SetCursorVerticalAbs(y size.CellCountInt)
	// GetCursor returns the current cursor position
	GetCursor() *Cursor
	// CursorCellEndOfPrevious returns the cell at the end of the previous
	// line
	CursorCellEndOfPrevious() *pagepkg.Cell
	// GetSize returns the current size of the screen in rows and columns
	GetSize() (rows, cols size.CellCountInt)
	// SetGraphicsRendition sets the graphics rendition for the screen
	SetGraphicsRendition(sgr *sgr.Attribute)
	// Resize the screen without any reflow. In this mode, columns/rows
	// are truncated as they are shrunk. If they are grown, the new space
	// is filled with blanks.
	Resize(cols, rows size.CellCountInt)
	// SetCursorScrollUp sets the cursor to scroll up
	SetCursorScrollUp()
	// SplitCellBoundary splits the cell boundary
	SplitCellBoundary(x size.CellCountInt)
	// ClearCells clears the cells
	ClearCells(page *pagepkg.Page, row *pagepkg.Row, fromX, toX size.CellCountInt)
	// ClearUnprotectedCells clears the cells that are not protected
	ClearUnprotectedCells(page *pagepkg.Page, row *pagepkg.Row, fromX, toX size.CellCountInt)
	// ClearRows clears a range of rows
	ClearRows(tl point.Point, bl *point.Point, protected bool)
	// EraseRows removes a range of rows from the screen entirely
	EraseRows(tl point.Point, bl *point.Point)
	// Reset resets the screen
	Reset()
	// DumpString dumps the screen to a string
	DumpString(writer ioutil.Writer, tl point.Tag) error
}

var _ ScreenInt = &Screen{}

// Screen is a Screen for the terminal
type Screen struct {
	Cursor *Cursor

	Pages *pagelist.PageList

	// The charset state. This travels with the screen so that the
	// alternate screen keeps its own G0-G3 designations.
	Charset charset.State

	// The saved cursor set by DECSC, nil if the cursor was never saved.
	SavedCursor *SavedCursor

	// Kitty graphics state: transmitted images and their placements on
	// this screen.
	Images *images.Storage

	rows, cols size.CellCountInt

	// The current selection, nil if there is none.
	selection *Selection

	// Special-case where we want no scrollback whatsever. We have to flag,
	//  this because MaxSize 0 in PageLists gets rounded up to two pages so we
	//  can alwasy have an active screen..
	NoScrollback bool
}

// Initialize a new screen
func NewScreen(cols, rows size.CellCountInt) *Screen {
	// initialize out backing pages
	pages := pagelist.NewPageList(cols, rows)

	// Create our tracked pin for the cursor.
	pagePin := pages.TrackPin(pagelist.Pin{Node: pages.Pages.First})
	pageRAC := pagePin.RowAndCell()

	return &Screen{
		Cursor: &Cursor{
			X:        0,
			Y:        0,
			PageRow:  pageRAC.Row,
			PageCell: pageRAC.Cell,
			PagePin:  pagePin,
		},
		Pages:   pages,
		Charset: charset.NewState(),
		Images:  images.NewStorage(),
		rows:    rows,
		cols:    cols,
	}
}

// Asert that the screen is in a consistent state. This doesn't check all pages
// in the pages list because that is SO SLOW event just for tests. This only
// asserts the screen spcific data so callers should ensure they're also
// calling page integrity checks if neccessary
func (s *Screen) AssertIntegrity() {
	// TODO: add feature flag to disable this
	utils.Assert(s.Cursor != nil)
	utils.Assert(s.Cursor.X < s.cols && s.Cursor.Y < s.rows)
}

// Move the cursor to the right by n cells. This is specialized function
// that is very fast if the caller can guarantee that we have space to move
// right (no wrapping)
//
// NOTE this is no wrapping move
func (s *Screen) SetCursorRight(n size.CellCountInt) {
	utils.Assert(s.Cursor.X+n < s.Pages.Cols)
	defer s.AssertIntegrity()

	s.Cursor.PageCell = s.Cursor.PageRow.Cells[s.Cursor.X+n]
	s.Cursor.PagePin.X += n
	s.Cursor.X += n
}

// Move the cursor to the left by n cells. This is specialized function
// that is very fast if the caller can guarantee that we have space to move
// left (no wrapping)
//
// NOTE this is no wrapping move
func (s *Screen) SetCursorLeft(n size.CellCountInt) {
	utils.Assert(s.Cursor.X >= n)
	defer s.AssertIntegrity()

	s.Cursor.PageCell = s.Cursor.PageRow.Cells[s.Cursor.X-n]
	s.Cursor.PagePin.X -= n
	s.Cursor.X -= n
}

// Move the cursor up
//
// Precondition: The cursor is not at the top of the screen
func (s *Screen) SetCursorUp(n size.CellCountInt) {
	utils.Assert(s.Cursor.Y >= n)
	defer s.AssertIntegrity()

	s.Cursor.Y -= n

	pagePin := s.Cursor.PagePin.Up(n)
	s.CursorChangePin(pagePin)
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageRow = pageRAC.Row
	s.Cursor.PageCell = pageRAC.Cell
}

// Move the cursor down
//
// Precondition: The cursor is not at the bottom of the screen
func (s *Screen) SetCursorDown(n size.CellCountInt) {
	utils.Assert(s.Cursor.Y+n < s.rows)
	defer s.AssertIntegrity()

	s.Cursor.Y += n // must be set before CursorChangePin

	// We move the offset into our page list to the next row and then
	// get the pointers to the row/cell and set all the cursor state up.
	pagePin := s.Cursor.PagePin.Down(n)
	s.CursorChangePin(pagePin)
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageRow = pageRAC.Row
	s.Cursor.PageCell = pageRAC.Cell
}

func (s *Screen) SetCursorAbs(x size.CellCountInt, y size.CellCountInt) {
	utils.Assert(x < s.cols && y < s.rows)
	defer s.AssertIntegrity()
	var pagePin *pagelist.Pin
	if y < s.Cursor.Y {
		// Move up.
		pagePin = s.Cursor.PagePin.Up(s.Cursor.Y - y)
	} else if y > s.Cursor.Y {
		// Move down.
		pagePin = s.Cursor.PagePin.Down(y - s.Cursor.Y)
	} else {
		//  keep the same row
		pagePin = s.Cursor.PagePin
	}
	pagePin.X = x
	s.Cursor.X = x // Must be set before CursorChangePin
	s.Cursor.Y = y
	s.CursorChangePin(pagePin)
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageRow = pageRAC.Row
	s.Cursor.PageCell = pageRAC.Cell
}

// Move the cursor to some absolute horizontal position
func (s *Screen) SetCursorHorizontalAbs(x size.CellCountInt) {
	utils.Assert(x < s.cols)
	defer s.AssertIntegrity()

	s.Cursor.PagePin.X = x
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageCell = pageRAC.Cell
	s.Cursor.X = x
}

func (s *Screen) SetCursorVerticalAbs(y size.CellCountInt) {
	utils.Assert(y < s.rows)
	defer s.AssertIntegrity()

	// since we have to move the pin to different rows, so using SetCursorAbs
	// is fine here. We only want to optimize the case if we are on the same
	// row.
	s.SetCursorAbs(s.Cursor.X, y)
}

// This scrolls the active area at and above the cursor.
// The lines below the cursor are not scrolled.
func (s *Screen) SetCursorScrollUp() {
	// We unconditionally mark the cursor as dirty here because
	// the cursor always changes page rows inside this function, and when
	// that happens, it can mean the text in the old row need to be re-shaped
	// because the cursor splits runs to break ligatures.
	s.Cursor.PagePin.MarkDirty()

	// If the cursor is on the bottom of the screen, its faster to use our
	// specialized function for that case.
	if s.Cursor.Y == s.Pages.Rows-1 {
		s.SetCursorDownScroll()
		return
	}

	defer s.AssertIntegrity()

	// Logic below assumes we always have at least one row that isn't moving.
	utils.Assert(s.Cursor.Y < s.Pages.Rows-1)

	// Explanation:
	//  We don't actually move every that's at or above the cursor
	//  since this would require us to shift up our ENTIRE scrollback, which
	//  would be ridiculously expensive. Instead, we insert a new row at the
	//  end of the pagelist (use grow()) and move everything BELOW the cursor
	//  DOWN by one row. This has the same practical results but is' a whole
	//  lot cheaper in 99% of cases. As number of rows below the cursor are
	//  > 90% case less than the number of rows above the cursor.
	if s.Pages.Grow() != nil {
		s.SetCursorScrollAboveRotate()
	} else {
		// In this case, it means grow() didn't allocate a new page.

		if s.Cursor.PagePin.Node == s.Pages.Pages.Last {
			// If we're on the last page, we can do a very fast path because
			// all the rows we need to move around are within a single page.
			s.CursorChangePin(s.Cursor.PagePin.Down(1))

			pin := s.Cursor.PagePin
			page := pin.Node.Data

			// Rotate the rows so that newly created empty row is at the
			// beginning.
			// [ 0 1 2 3 ] => [ 3 0 1 2 ]
			utils.RotateOnceR(page.Rows[pin.Y:page.Size.Rows])

			// Mark all our rotated row as dirty.
			dirty := page.DirtyBitSet()
			dirty.SetRange(int(pin.Y), int(page.Size.Rows))

			// Setup our cursor caches after the rotation so it points to
			// the correct data.
			pageRAC := s.Cursor.PagePin.RowAndCell()
			s.Cursor.PageRow = pageRAC.Row
			s.Cursor.PageCell = pageRAC.Cell
		} else {
			// We didn't grow pages but our cursor isn't on the last page.
			// In this case we need to do more work because we need to copy
			// elements between pages.
			//
			// An example scerario of this is:
			//
			//     : +------------+ : = PAGE 0
			// ... : :            : :
			//     +----------------+ ACTIVE AREA
			// 151 | |1A0000000000| | 0
			// 152 | |2B0000000000| | 1
			//     : :^           : : = CURSOR PIN
			// 153 | |3C0000000000| | 2
			//     : +------------+ :
			//     : +------------+ : = PAGE 1
			//   0 | |4D0000000000| | 3
			//   1 | |5E0000000000| | 4
			//     : +------------+ :
			//     +----------------+
			s.SetCursorScrollAboveRotate()
		}
	}

	if s.Cursor.StyleID != styleid.DefaultID {
		// The newly created line needs to be styled according to the
		// the bg color if it is set.
		if cell := s.Cursor.Style.BGCell(); cell != nil {
			cells := s.Cursor.PageRow.Cells
			for i := range s.Pages.Cols {
				*cells[i] = *cell
			}
		}
	}
}

// Scroll the screen through pages below the the cursor pin.
//
// This is specialized for the case wehere we have a cursor pin that is not in
// the last pages, and we need to shift all the rows down by one.
//
// See SetCursorScrollUp for more detail on its usage.
func (s *Screen) SetCursorScrollAboveRotate() {
	s.CursorChangePin(s.Cursor.PagePin.Down(1))

	// Go through each of the pages folllowing our pin, shiftall rows down
	// by one, and copy the last row of the previous page.
	curr := s.Pages.Pages.Last

	for ; curr != nil && curr != s.Cursor.PagePin.Node; curr = curr.Prev {
		prev := curr.Prev
		prevPage := prev.Data
		currPage := curr.Data
		prevRows := prevPage.Rows
		currRows := currPage.Rows

		// Rotatethe pages down: [ 0 1 2 3 ] => [ 3 0 1 2 ]
		utils.RotateOnceR(currRows[0:currPage.Size.Rows])

		// Copy the last row of the previous page to the top of current page.
		currPage.CloneRowFrom(prevPage, currRows[0], prevRows[prevPage.Size.Rows-1])

		// All rows we rotated are dirty.
		dirty := currPage.DirtyBitSet()
		dirty.SetRange(0, int(currPage.Size.Rows))
	}

	// Our current is our cursor page, we need to rotate down from the cursor
	// to the end of the page.
	utils.Assert(curr == s.Cursor.PagePin.Node)
	currPage := curr.Data
	currRows := currPage.Rows

	utils.RotateOnceR(currRows[s.Cursor.PagePin.Y:currPage.Size.Rows])
	s.ClearCells(currPage, currRows[s.Cursor.PagePin.Y], 0, currPage.Size.Cols)

	// Set all the rows we rotated as dirty.
	dirty := currPage.DirtyBitSet()
	dirty.SetRange(int(s.Cursor.PagePin.Y), int(currPage.Size.Rows))

	// Reset the cursor cache data.
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageRow = pageRAC.Row
	s.Cursor.PageCell = pageRAC.Cell
}

// Scroll the active area and keep the cursor at the bottom of the screen.
// This is a very specialized function but it keeps it fast.
func (s *Screen) SetCursorDownScroll() {
	utils.Assert(s.Cursor.Y == s.Pages.Rows-1)
	defer s.AssertIntegrity()

	// If we have no scrollback, then we shift all our rows instead.
	if s.NoScrollback {
		// If we have a single-row screen, we have no rows to shift so
		// our cursor is in the correct place, we just have to clear the cells
		if s.Pages.Rows == 1 {
			page := s.Cursor.PagePin.Node.Data
			s.ClearCells(page, s.Cursor.PageRow, 0, s.Pages.Cols)

			dirty := page.DirtyBitSet()
			dirty.Set(0)
		} else {
			// EraseRow will shift everything below it up.
			s.Pages.EraseRow(point.Point{Tag: point.TagActive})

			// NOTE, we don't need to mark anything dirty in this branch, as
			// EraseRow already does that for us.

			// The erase moved our tracked pin up one row with the shifted
			// content, the cursor stays on the bottom row.
			pagePin := s.Cursor.PagePin.Down(1)
			s.CursorChangePin(pagePin)
			pageRAC := s.Cursor.PagePin.RowAndCell()
			s.Cursor.PageRow = pageRAC.Row
			s.Cursor.PageCell = pageRAC.Cell

			// The above may clear our cursor so we need to update that again.
			s.ManualStyleUpdate()
		}
	} else {
		// Grow our pages by one row. The PageList will handle if we need
		// to allocate, prune scrollback, etc.
		oldNode := s.Cursor.PagePin.Node
		s.Pages.Grow()

		// If the pin node doesn't change, it means we are still on the same
		// page as before, so we can just move the pin down.
		if oldNode == s.Cursor.PagePin.Node {
			s.CursorChangePin(s.Cursor.PagePin.Down(1))
		} else {
			// If our pin node changed, it means the page the pin was on was
			// pruned. In this case, grow() moves the pin to the top-left of
			// the new page. This effectively moves it by one already, we
			// only have to fix the x value.
			s.Cursor.PagePin.X = s.Cursor.X
		}

		pageRAC := s.Cursor.PagePin.RowAndCell()
		s.Cursor.PageRow = pageRAC.Row
		s.Cursor.PageCell = pageRAC.Cell

		// Our new row is always dirty.
		s.CursorMarkDirty()

		// Clear the new row so it gets our bg color. We only do this if we
		// have a bg color at all.
		if s.Cursor.Style.BackgroundColor.Type != style.ColorTypeNone {
			page := s.Cursor.PagePin.Node.Data
			s.ClearCells(page, s.Cursor.PageRow, 0, page.Size.Cols)
		}
	}
	if s.Cursor.StyleID != styleid.DefaultID {
		// The newly created line need to be styled according to the bg color
		// if it is set
		if cell := s.Cursor.Style.BGCell(); cell != nil {
			cells := s.Cursor.PageRow.Cells
			for i := range s.Pages.Cols {
				*cells[i] = *cell
			}
		}
	}
}

// Clean up boundary conditions where a cell will become discontiguous with
// a neighboring cell because either one of them will be moved and/or cleard.
//
// For performance reasons this is specialized to operate on the cursor row.
//
// So, for example, if the cursor is at [a, b] (inclusive), call this function
// with `x=a` and `x=b+1`. It is okay if `x` is out of bounds by 1, this
// will be interpreted as correctly.
//
// DOES NOT MODIFY ROW WRAP STATE! See `CursorResetWrap` for that.
//
// The following boundary conditions are handled:
// - `x-1` is a wide character and `x` is a spacer tail:
//   - Both cells will be cleared
func (s *Screen) SplitCellBoundary(x size.CellCountInt) {
	page := s.Cursor.PagePin.Node.Data
	page.PauseIntegrityChecks(true)
	defer page.PauseIntegrityChecks(false)

	// `x` maybe up to an INCLUDING `cols`, since that signifiles spliting
	// the boundary to the right of the final cell in the rows`
	utils.Assert(x <= s.cols)

	// [ A B C D F F|]
	//              ^ Boundary between final cell and row end.
	if x == s.cols {
		if !s.Cursor.PageRow.Wrap {
			return
		}
		// Ignore spacer_head for now
	}
	// If x is 0 then we're done.
	if x == 0 {
		return
	}

	// [ ... X|Y ... ]
	//        ^ Boundary between two cells in the middle of the row.
	{
		utils.Assert(x > 0 && x < s.cols)
		cells := s.Cursor.PageRow.Cells

		left := cells[x-1]
		switch left.Wide {
		// A wide char would be split, so must be cleared
		case pagepkg.WideWide:
			s.ClearCells(
				page,
				s.Cursor.PageRow,
				x-1, x+1)
		}
	}
}

// Clear the cells with the blank cell. This takes care to handle cleaning
// up styles and grapheme data.
func (s *Screen) ClearCells(
	page *pagepkg.Page,
	row *pagepkg.Row,
	fromX, toX size.CellCountInt,
) {
	// This whole operation deos unsafe things, so we just want to assert the
	// end state.
	page.PauseIntegrityChecks(true)
	defer func() {
		page.PauseIntegrityChecks(false)
		page.AssertIntegrity()
		s.AssertIntegrity()
	}()

	// If the row has any multi-codepoint cells we need to drop their
	// grapheme entries before the cells are overwritten.
	if row.Graphemes != nil {
		for i := fromX; i < toX; i++ {
			if row.Cells[i].GraphemeExtended {
				page.ClearGrapheme(row, i)
			}
		}
	}

	if row.Styled {
		for i := fromX; i < toX; i++ {
			cell := row.Cells[i]
			if cell.StyleID == styleid.DefaultID {
				continue
			}
			page.Styles.Release(set.ID(cell.StyleID))
		}

		// If we cleared the full row width we can be sure that the row
		// is no longer styled.
		if toX-fromX == s.Pages.Cols {
			row.Styled = false
		}
	}

	// The cells are shared with the page backing so we write the blank
	// through the pointers, never replace them.
	blank := s.blankCell()
	for i := fromX; i < toX; i++ {
		*row.Cells[i] = blank
	}
}

// Clear the cells in [fromX, toX) skipping any cell marked protected by
// DECSCA or the protected mode. See ClearCells.
func (s *Screen) ClearUnprotectedCells(
	page *pagepkg.Page,
	row *pagepkg.Row,
	fromX, toX size.CellCountInt,
) {
	for x := fromX; x < toX; x++ {
		if row.Cells[x].Protected {
			continue
		}
		s.ClearCells(page, row, x, x+1)
	}
}

// Clear the rows between tl and bl inclusive, keeping them on the screen.
// Cleared cells are colored with the current style background color. When
// bl is nil the clear extends through the last row of the screen. When
// protected is true, cells marked protected are left alone and the row
// flags are kept.
func (s *Screen) ClearRows(tl point.Point, bl *point.Point, protected bool) {
	tlPin := s.Pages.Pin(tl)
	if tlPin == nil {
		return
	}
	var blPin *pagelist.Pin
	if bl != nil {
		blPin = s.Pages.Pin(*bl)
		if blPin == nil {
			return
		}
	}

	it := tlPin.PageIterator(pagelist.DirectionRightDown, blPin)
	for chunk := range it.Next() {
		pg := chunk.Node.Data
		dirty := pg.DirtyBitSet()
		dirty.SetRange(int(chunk.StartY), int(chunk.EndY))

		for y := chunk.StartY; y < chunk.EndY; y++ {
			row := pg.GetRow(y)
			if protected {
				s.ClearUnprotectedCells(pg, row, 0, pg.Size.Cols)
				continue
			}

			s.ClearCells(pg, row, 0, pg.Size.Cols)
			row.Wrap = false
			row.WrapContinuation = false
			row.SemanticPrompt = pagepkg.SemanticPromptTypeUnknown
		}
	}
}

// Erase the rows between tl and bl inclusive, removing them from the
// screen rather than blanking them. Rows below the erased region shift up
// to fill the hole. This is how "clear scrollback" works.
func (s *Screen) EraseRows(tl point.Point, bl *point.Point) {
	s.Pages.EraseRows(tl, bl)

	// The cursor pin is tracked through the erase but the cached row and
	// cell pointers may reference recycled memory now.
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageRow = pageRAC.Row
	s.Cursor.PageCell = pageRAC.Cell
}

// Return the blank cell to use when doing terminal operations that require
// preserving the bg color. The cell is returned by value so callers write
// it through the shared cell pointers.
func (s *Screen) blankCell() pagepkg.Cell {
	if s.Cursor.StyleID == styleid.DefaultID {
		return pagepkg.Cell{}
	}
	if cell := s.Cursor.Style.BGCell(); cell != nil {
		return *cell
	}
	return pagepkg.Cell{}
}

// Reset the screen according to the logic of DEC RIS sequence.
//
// - Clear the screen and attempt to reclaim memory
// - Moves the cursor to the top left corner
// - Drops the saved cursor, selection, and charset state
func (s *Screen) Reset() {
	s.ClearSelection()

	// Drop graphics before the page reset so placement pins untrack
	// while they are still valid.
	s.Images.Reset(s.Pages)

	// Reset our pages.
	s.Pages.Reset()

	// The above reset preserves tracked pins so we can still use our cursor
	// pin, which should be at the top-left already.
	cursorPin := s.Cursor.PagePin
	utils.Assert(cursorPin.Node == s.Pages.Pages.First)
	utils.Assert(cursorPin.X == 0 && cursorPin.Y == 0)
	cursorRAC := cursorPin.RowAndCell()
	s.Cursor = &Cursor{
		PageCell: cursorRAC.Cell,
		PageRow:  cursorRAC.Row,
		PagePin:  cursorPin,
	}

	s.Charset = charset.NewState()
	s.SavedCursor = nil
}

// Resize the screen to the given dimensions. There is no reflow: shrinking
// columns truncates rows on the right and growing pads them with blanks.
//
// Row changes trade rows with the scrollback history. Growing pulls rows
// back out of history before allocating fresh blank rows, shrinking drops
// trailing blank rows below the cursor and pushes the remainder into
// history. A screen without scrollback is simply rebuilt at the new size
// since the running program redraws after a resize anyway.
func (s *Screen) Resize(cols, rows size.CellCountInt) {
	utils.Assert(cols > 0 && rows > 0)
	if cols == s.cols && rows == s.rows {
		return
	}
	defer s.AssertIntegrity()

	// The cursor style is interned on its page and every branch below can
	// move, replace, or prune that page. Drop the ref now and re-add it on
	// whatever page the cursor ends up on.
	oldStyle := s.Cursor.Style
	hadStyle := s.Cursor.StyleID != styleid.DefaultID
	if hadStyle {
		s.Cursor.Style = style.Style{}
		s.ManualStyleUpdate()
	}

	if s.NoScrollback {
		s.Pages.Reinit(cols, rows)
		s.cols, s.rows = cols, rows
		s.Cursor.X = min(s.Cursor.X, cols-1)
		s.Cursor.Y = min(s.Cursor.Y, rows-1)
	} else {
		if cols != s.cols {
			s.Pages.ResizeCols(cols)
			s.cols = cols
			s.Cursor.X = min(s.Cursor.X, cols-1)
		}

		switch {
		case rows > s.rows:
			// Pull rows back out of history first. Only the remainder
			// that history cannot cover becomes fresh blank rows at the
			// bottom.
			added := rows - s.rows
			history := size.CellCountInt(s.Pages.TotalRows()) - s.rows
			consumed := min(added, history)
			for range added - consumed {
				s.Pages.Grow()
			}
			s.Pages.Rows = rows
			s.rows = rows
			s.Cursor.Y += consumed

		case rows < s.rows:
			removed := s.rows - rows

			// Blank rows below the cursor are dropped outright, the
			// cursor row itself is never trimmed.
			maxTrim := s.rows - 1 - s.Cursor.Y
			trimmed := s.Pages.TrimTrailingBlankRows(min(removed, maxTrim))

			// Everything else scrolls into history.
			push := removed - trimmed
			s.Pages.Rows = rows
			s.rows = rows
			if s.Cursor.Y >= push {
				s.Cursor.Y -= push
			} else {
				s.Cursor.Y = 0
			}
		}
	}

	// Re-derive the cursor pin from the active coordinates. The tracked
	// pin survived all of the above but the coordinates are authoritative
	// after a resize.
	pin := s.Pages.Pin(point.Point{
		Tag: point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{
			X: s.Cursor.X,
			Y: s.Cursor.Y,
		},
	})
	utils.Assert(pin != nil)
	s.CursorChangePin(pin)
	pageRAC := s.Cursor.PagePin.RowAndCell()
	s.Cursor.PageRow = pageRAC.Row
	s.Cursor.PageCell = pageRAC.Cell

	if hadStyle {
		s.Cursor.Style = oldStyle
		s.ManualStyleUpdate()
	}
}

// Copy the cursor state from another screen's cursor. This is used when
// switching between the primary and alternate screen so the position and
// pen travel with the switch. The position is clamped to our size since
// the other screen may have been sized differently.
func (s *Screen) CursorCopy(other *Cursor) {
	s.Cursor.Style = other.Style
	s.Cursor.Protected = other.Protected
	s.Cursor.PendingWrap = other.PendingWrap
	s.ManualStyleUpdate()

	s.SetCursorAbs(
		min(other.X, s.cols-1),
		min(other.Y, s.rows-1),
	)
}

// Dump the screen to a string. The writer given should be buffered;
// this function does not attempt to efficiently write and generally writes
// one byte at a time.
func (s *Screen) dumpString(
	w ioutil.Writer,
	opts pagelist.EncodeUtf8Options,
) error {
	return s.Pages.EncodeUtf8(w, opts)
}

// Dump the screen to a string. The writer given should be buffered;
// this function does not attempt to efficiently write and generally writes
// one byte at a time.
func (s *Screen) DumpString(
	w ioutil.Writer,
	tl point.Tag,
) error {
	tlPin := s.Pages.GetTopLeft(tl)
	brPin := s.Pages.GetBottomRight(tl)
	if tlPin == nil {
		return fmt.Errorf("invalid top-left point %v for tag %v", tl, tl)
	}
	return s.dumpString(w,
		pagelist.EncodeUtf8Options{
			Unwrap:      false,
			TopLeft:     *tlPin,
			BottomRight: brPin,
		},
	)
}

// Set a style attribute for the current cursor.
func (s *Screen) SetGraphicsRendition(attr *sgr.Attribute) {
	switch attr.Type {
	case sgr.AttributeTypeUnset:
		s.Cursor.Style.Reset()

	case sgr.AttributeTypeBold:
		s.Cursor.Style.Bold = true

	case sgr.AttributeTypeResetBold:
		// Bold and faint share the same SGR code for this
		s.Cursor.Style.Bold = false
		s.Cursor.Style.Faint = false

	case sgr.AttributeTypeItalic:
		s.Cursor.Style.Italic = true

	case sgr.AttributeTypeResetItalic:
		s.Cursor.Style.Italic = false

	case sgr.AttributeTypeFaint:
		s.Cursor.Style.Faint = true

	case sgr.AttributeTypeResetFaint:
		s.Cursor.Style.Faint = false

	case sgr.AttributeTypeUnderline:
		s.Cursor.Style.Underline = attr.Underline

	case sgr.AttributeTypeResetUnderline:
		s.Cursor.Style.Underline = sgr.UnderlineTypeNone

	case sgr.AttributeTypeUnderlineColor:
		s.Cursor.Style.UnderlineColor = style.Color{
			Type: style.ColorTypeRGB,
			RGB: color.RGB{
				R: attr.UnderlineColor.R,
				G: attr.UnderlineColor.G,
				B: attr.UnderlineColor.B,
			},
		}

	case sgr.AttributeType256UnderlineColor:
		s.Cursor.Style.UnderlineColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: attr.Color256,
		}

	case sgr.AttributeTypeResetUnderlineColor:
		s.Cursor.Style.UnderlineColor = style.Color{
			Type: style.ColorTypeNone,
		}
	case sgr.AttributeTypeOverline:
		s.Cursor.Style.Overline = true

	case sgr.AttributeTypeResetOverline:
		s.Cursor.Style.Overline = false

	case sgr.AttributeTypeBlink:
		s.Cursor.Style.Blink = true

	case sgr.AttributeTypeResetBlink:
		s.Cursor.Style.Blink = false

	case sgr.AttributeTypeInverse:
		s.Cursor.Style.Inverse = true

	case sgr.AttributeTypeResetInverse:
		s.Cursor.Style.Inverse = false

	case sgr.AttributeTypeInvisible:
		s.Cursor.Style.Invisible = true

	case sgr.AttributeTypeResetInvisible:
		s.Cursor.Style.Invisible = false

	case sgr.AttributeTypeStrikethrough:
		s.Cursor.Style.Strikethrough = true

	case sgr.AttributeTypeResetStrikethrough:
		s.Cursor.Style.Strikethrough = false

	case sgr.AttributeType8ColorFg, sgr.AttributeType8BrightColorFg:
		// The parser already offsets bright colors into 8-15.
		s.Cursor.Style.ForegroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: uint8(attr.Color8),
		}

	case sgr.AttributeType8ColorBg, sgr.AttributeType8BrightColorBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: uint8(attr.Color8),
		}

	case sgr.AttributeType256ColorFg:
		s.Cursor.Style.ForegroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: attr.Color256,
		}

	case sgr.AttributeType256ColorBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: attr.Color256,
		}

	case sgr.AttributeTypeDirectColorFg:
		s.Cursor.Style.ForegroundColor = style.Color{
			Type: style.ColorTypeRGB,
			RGB: color.RGB{
				R: attr.DirectColorFg.R,
				G: attr.DirectColorFg.G,
				B: attr.DirectColorFg.B,
			},
		}

	case sgr.AttributeTypeResetFg:
		s.Cursor.Style.ForegroundColor = style.Color{
			Type: style.ColorTypeNone,
		}

	case sgr.AttributeTypeDirectColorBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type: style.ColorTypeRGB,
			RGB: color.RGB{
				R: attr.DirectColorBg.R,
				G: attr.DirectColorBg.G,
				B: attr.DirectColorBg.B,
			},
		}

	case sgr.AttributeTypeResetBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type: style.ColorTypeNone,
		}

	// We don't handle unknown attributes in the screen, so we just ignore
	// them
	case sgr.AttributeTypeUnknown:

	default:
		utils.Assert(false, fmt.Sprintf("unknown sgr attribute type %v", attr.Type))
	}
	s.ManualStyleUpdate()
}

// Set a style attribute for the current cursor.
//
// This is the value-argument variant of SetGraphicsRendition, unknown
// attributes are silently ignored.
func (s *Screen) SetAttribute(attr sgr.Attribute) {
	switch attr.Type {
	case sgr.AttributeTypeUnset:
		s.Cursor.Style = style.Style{}

	case sgr.AttributeTypeBold:
		s.Cursor.Style.Bold = true

	case sgr.AttributeTypeResetBold:
		// Bold and faint share the same SGR code for this.
		s.Cursor.Style.Bold = false
		s.Cursor.Style.Faint = false

	case sgr.AttributeTypeItalic:
		s.Cursor.Style.Italic = true

	case sgr.AttributeTypeResetItalic:
		s.Cursor.Style.Italic = false

	case sgr.AttributeTypeFaint:
		s.Cursor.Style.Faint = true

	case sgr.AttributeTypeResetFaint:
		s.Cursor.Style.Faint = false

	case sgr.AttributeTypeUnderline:
		s.Cursor.Style.Underline = attr.Underline

	case sgr.AttributeTypeResetUnderline:
		s.Cursor.Style.Underline = sgr.UnderlineTypeNone

	case sgr.AttributeTypeUnderlineColor:
		rgb := attr.UnderlineColor
		s.Cursor.Style.UnderlineColor = style.Color{
			Type: style.ColorTypeRGB,
			RGB:  color.RGB{R: rgb.R, G: rgb.G, B: rgb.B},
		}

	case sgr.AttributeType256UnderlineColor:
		s.Cursor.Style.UnderlineColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: attr.Color256,
		}

	case sgr.AttributeTypeResetUnderlineColor:
		s.Cursor.Style.UnderlineColor = style.Color{
			Type: style.ColorTypeNone,
		}

	case sgr.AttributeTypeOverline:
		s.Cursor.Style.Overline = true

	case sgr.AttributeTypeResetOverline:
		s.Cursor.Style.Overline = false

	case sgr.AttributeTypeBlink:
		s.Cursor.Style.Blink = true

	case sgr.AttributeTypeResetBlink:
		s.Cursor.Style.Blink = false

	case sgr.AttributeTypeInverse:
		s.Cursor.Style.Inverse = true

	case sgr.AttributeTypeResetInverse:
		s.Cursor.Style.Inverse = false

	case sgr.AttributeTypeInvisible:
		s.Cursor.Style.Invisible = true

	case sgr.AttributeTypeResetInvisible:
		s.Cursor.Style.Invisible = false

	case sgr.AttributeTypeStrikethrough:
		s.Cursor.Style.Strikethrough = true

	case sgr.AttributeTypeResetStrikethrough:
		s.Cursor.Style.Strikethrough = false

	case sgr.AttributeType8ColorFg, sgr.AttributeType8BrightColorFg:
		s.Cursor.Style.ForegroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: uint8(attr.Color8),
		}

	case sgr.AttributeType8ColorBg, sgr.AttributeType8BrightColorBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: uint8(attr.Color8),
		}

	case sgr.AttributeType256ColorFg:
		s.Cursor.Style.ForegroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: attr.Color256,
		}

	case sgr.AttributeType256ColorBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type:    style.ColorTypePalette,
			Palette: attr.Color256,
		}

	case sgr.AttributeTypeDirectColorFg:
		rgb := attr.DirectColorFg
		s.Cursor.Style.ForegroundColor = style.Color{
			Type: style.ColorTypeRGB,
			RGB:  color.RGB{R: rgb.R, G: rgb.G, B: rgb.B},
		}

	case sgr.AttributeTypeDirectColorBg:
		rgb := attr.DirectColorBg
		s.Cursor.Style.BackgroundColor = style.Color{
			Type: style.ColorTypeRGB,
			RGB:  color.RGB{R: rgb.R, G: rgb.G, B: rgb.B},
		}

	case sgr.AttributeTypeResetFg:
		s.Cursor.Style.ForegroundColor = style.Color{
			Type: style.ColorTypeNone,
		}

	case sgr.AttributeTypeResetBg:
		s.Cursor.Style.BackgroundColor = style.Color{
			Type: style.ColorTypeNone,
		}

	case sgr.AttributeTypeUnknown:
		return
	}
	s.ManualStyleUpdate()
}

// Call this whenever we manually change the cursor style.
func (s *Screen) ManualStyleUpdate() {
	page := s.Cursor.PagePin.Node.Data
	// Release our previous style if it was not default.
	if s.Cursor.StyleID != styleid.DefaultID {
		page.Styles.Release(set.ID(s.Cursor.StyleID))
	}

	// If our new style is the default, just reset to that
	if s.Cursor.Style.IsDefault() {
		s.Cursor.StyleID = styleid.DefaultID
		return
	}

	// Clear the cursor style ID to prevent weird things from happening
	// if the page capacity has to be adjusted which would end up calling
	// manualStyleUpdate again.
	s.Cursor.StyleID = styleid.DefaultID

	// After setting the style, we need to update our style map.
	// Note that we COULD lazily do this in print. We should look into
	// if that makes a meaningful difference. Our priority is to keep print
	// fast because setting a ton of styles that do nothing is uncommon
	// and weird.
	id := page.Styles.Add(s.Cursor.Style)
	s.Cursor.StyleID = styleid.ID(id)
	s.AssertIntegrity()
}

// GetCursor returns the current cursor position
func (s *Screen) GetCursor() *Cursor {
	utils.Assert(s.Cursor != nil)
	return s.Cursor
}

// GetSize returns the current size of the display in rows and columns
func (s *Screen) GetSize() (rows, cols size.CellCountInt) {
	return s.rows, s.cols
}

func (s *Screen) CursorMarkDirty() {
	s.Cursor.PagePin.MarkDirty()
}

// Move the viewport to a prompt row relative to its current position.
// Negative deltas jump to older prompts, positive deltas to newer ones.
// A row counts as a prompt start when it is marked as a prompt or input
// row and the row above it is not. Reports whether the viewport moved.
func (s *Screen) JumpToPrompt(delta int) bool {
	if delta == 0 {
		return false
	}

	tl := s.Pages.GetTopLeft(point.TagViewPort)
	if tl == nil {
		return false
	}

	var target *pagelist.Pin
	if delta < 0 {
		cur, remaining := tl, -delta
		for remaining > 0 {
			up := cur.Up(1)
			if up == nil {
				break
			}
			cur = up
			if s.isPromptStart(cur) {
				target = cur
				remaining--
			}
		}
	} else {
		activeTL := s.Pages.GetTopLeft(point.TagActive)
		cur, remaining := tl, delta
		for remaining > 0 {
			down := cur.Down(1)
			if down == nil {
				break
			}
			cur = down
			if activeTL != nil && !cur.Before(activeTL) {
				// Forward jumps that reach the live screen snap to it.
				s.Pages.ScrollActive()
				return true
			}
			if s.isPromptStart(cur) {
				target = cur
				remaining--
			}
		}
	}

	if target == nil {
		return false
	}
	target.X = 0
	*s.Pages.ViewPortPin = *target
	s.Pages.ViewPort = pagelist.ViewportTagPin
	return true
}

// Whether the row under the pin starts a prompt block. Rows inside the
// same prompt don't count so repeated jumps move a full prompt at a time.
func (s *Screen) isPromptStart(pin *pagelist.Pin) bool {
	if !pin.RowAndCell().Row.SemanticPrompt.PromptOrInput() {
		return false
	}
	if up := pin.Up(1); up != nil && up.RowAndCell().Row.SemanticPrompt.PromptOrInput() {
		return false
	}
	return true
}

// This is basically a really jank version of Terminal.printString. We
// have to reimplement it here because we want a way to print to the screen
// to test it but don't want all the features of Terminal.
func (s *Screen) testWriteString(text []uint8) error {
	dec := unicode.UTF8.NewDecoder()
	decoded, err := dec.Bytes(text)
	if err != nil {
		return err
	}
	for _, c := range decoded {
		// Explicit newline forces a new row
		if c == '\n' {
			s.SetCursorDownOrScroll()
			s.SetCursorHorizontalAbs(0)
			s.Cursor.PageRow.Wrap = false
			continue
		}
		width := dw.RuneWidth(rune(c))
		if width == 0 {
			// do not support grapheme clusters
			continue
		}
		if s.Cursor.PendingWrap {
			utils.Assert(s.Cursor.X == s.cols-1)
			s.Cursor.PendingWrap = false
			s.Cursor.PageRow.Wrap = true
			s.SetCursorDownOrScroll()
			s.SetCursorHorizontalAbs(0)
			s.Cursor.PageRow.WrapContinuation = true
		}
		utils.Assert(width == 1 || width == 2)
		switch width {
		case 1:
			s.Cursor.PageCell.ContentTag = pagepkg.ContentTagCP
			s.Cursor.PageCell.ContentCP = uint32(c)
			s.Cursor.PageCell.StyleID = s.Cursor.StyleID
			// s.Cursor.PageCell.Protected = s.Cursor.Protected

			// if we have a ref-counted style, increase.
			if s.Cursor.StyleID != styleid.DefaultID {
				page := s.Cursor.PagePin.Node.Data
				page.Styles.Use(set.ID(s.Cursor.StyleID))
				s.Cursor.PageRow.Styled = true
			}
		case 2:
			// Need a wide spacer head
			if s.Cursor.X == s.cols-1 {
				s.Cursor.PageCell.ContentTag = pagepkg.ContentTagCP
				s.Cursor.PageCell.ContentCP = 0 // wide spacer head
				s.Cursor.PageCell.Wide = pagepkg.WideSpacerHead

				s.Cursor.PageRow.Wrap = true
				s.SetCursorDown(1)
				s.SetCursorHorizontalAbs(0)
				s.Cursor.PageRow.WrapContinuation = true
			}

			// Write our wide char
			s.Cursor.PageCell.ContentTag = pagepkg.ContentTagCP
			s.Cursor.PageCell.ContentCP = uint32(c)
			s.Cursor.PageCell.StyleID = s.Cursor.StyleID
			s.Cursor.PageCell.Wide = pagepkg.WideWide

			// Write our tail
			s.SetCursorRight(1)
			s.Cursor.PageCell.ContentTag = pagepkg.ContentTagCP
			s.Cursor.PageCell.ContentCP = 0 // wide spacer tail
			s.Cursor.PageCell.Wide = pagepkg.WideSpacerTail

			// If we have a ref-counted style, increase twice.
			if s.Cursor.StyleID != styleid.DefaultID {
				page := s.Cursor.PagePin.Node.Data
				page.Styles.Use(set.ID(s.Cursor.StyleID))
				page.Styles.Use(set.ID(s.Cursor.StyleID))
				s.Cursor.PageRow.Styled = true
			}
		}

		// if we don't stand at the end of the row, we can move right
		if s.Cursor.X+1 < s.cols {
			s.SetCursorRight(1)
		} else {
			s.Cursor.PendingWrap = true
		}
	}
	return nil
}

// Move the cursor down if we're not at the bottom of scren. Otherwise, do
// a scroll. Currently only used for testing.
func (s *Screen) SetCursorDownOrScroll() {
	if s.Cursor.Y < s.rows-1 {
		s.SetCursorDown(1)
	} else {
		s.SetCursorDownScroll()
	}
}

// Always use this to write to cusor.PagePin.*
//
// This specifically handles the case when the new pin is on different page
// than the old AND we have a style set. In that case, we must release
// our old one and insert the new one, since styles are per-page specific.
//
// The cursor pin is a tracked pin, so it is always mutated in place and
// never replaced. Replacing the object would orphan it from tracking and
// every later page list mutation would adjust a pin the cursor no longer
// uses.
func (s *Screen) CursorChangePin(newPin *pagelist.Pin) {
	// Moving the cursor affects text run splitting (ligatures) so we must
	// mark the old and new page dirty. We do this as long as the pins are
	// not equal
	if !s.Cursor.PagePin.Equal(newPin) {
		s.Cursor.PagePin.MarkDirty()
		newPin.MarkDirty()
	}

	// If our pin is on the same page, then we can just update the pin.
	// We don't need to migrate any state.
	if s.Cursor.PagePin.Node == newPin.Node {
		*s.Cursor.PagePin = *newPin
		return
	}

	hadStyle := s.Cursor.StyleID != styleid.DefaultID
	oldStyle := s.Cursor.Style
	if hadStyle {
		// Styles are interned per page, drop the ref on the old page
		// before the pin moves.
		s.Cursor.Style = style.Style{}
		s.ManualStyleUpdate()
	}

	*s.Cursor.PagePin = *newPin

	if hadStyle {
		s.Cursor.Style = oldStyle
		s.ManualStyleUpdate()
	}
}

// CursorCellRight implements Screen.
func (s *Screen) CursorCellRight(n size.CellCountInt) *pagepkg.Cell {
	utils.Assert(s.Cursor.X+n < s.cols)
	return s.Cursor.PageRow.Cells[s.Cursor.X+n]
}

func (s *Screen) CursorCellLeft(n size.CellCountInt) *pagepkg.Cell {
	utils.Assert(s.Cursor.X >= n)
	return s.Cursor.PageRow.Cells[s.Cursor.X-n]
}

// CursorCellEndOfPrevious returns the cell at the end of the previous line.
// If the previous line is not available, it returns nil.
func (s *Screen) CursorCellEndOfPrevious() *pagepkg.Cell {
	utils.Assert(s.Cursor.X > 0)
	pagePin := s.Cursor.PagePin.Up(1)
	if pagePin == nil {
		return nil
	}
	pagePin.X = s.Pages.Cols - 1
	pageRAC := pagePin.RowAndCell()
	return pageRAC.Cell
}
