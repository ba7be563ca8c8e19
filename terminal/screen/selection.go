package screen

import (
	"unicode/utf8"

	"github.com/hnimtadd/termcore/internal/ioutil"
	"github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/size"
)

// A selection is an ordered pair of pins plus a rectangle flag. The pins
// are tracked so the selection follows scrolling; it is dropped entirely
// when a page it touches is pruned from history.
type Selection struct {
	start *pagelist.Pin
	end   *pagelist.Pin

	// Whether the selection is a rectangular block rather than a linear
	// start-to-end range.
	rectangular bool
}

// TopLeft returns the ordered start of the selection.
func (s *Selection) TopLeft() *pagelist.Pin { return s.start }

// BottomRight returns the ordered end of the selection.
func (s *Selection) BottomRight() *pagelist.Pin { return s.end }

func (s *Selection) Rectangular() bool { return s.rectangular }

// Whether the selection covers any cell of the given row pin. The x value
// of the argument is ignored.
func (s *Selection) ContainsRow(pin *pagelist.Pin) bool {
	if pin.Node == s.start.Node && pin.Y >= s.start.Y {
		if pin.Node == s.end.Node {
			return pin.Y <= s.end.Y
		}
		return true
	}
	if pin.Node == s.end.Node && pin.Y <= s.end.Y {
		if pin.Node == s.start.Node {
			return pin.Y >= s.start.Y
		}
		return true
	}
	// Strictly between the two pages.
	row := pagelist.Pin{Node: pin.Node, Y: pin.Y}
	return s.start.Before(&row) && row.Before(s.end)
}

// Set the selection to the given pins, ordering them if necessary. The
// pins are tracked and any previous selection is dropped.
func (s *Screen) Select(start, end pagelist.Pin, rectangular bool) {
	s.ClearSelection()

	// Order the bounds so start is always the top-left.
	if end.Before(&start) {
		start, end = end, start
	}

	s.selection = &Selection{
		start:       s.Pages.TrackPin(start),
		end:         s.Pages.TrackPin(end),
		rectangular: rectangular,
	}
}

// The active selection, nil when there is none.
func (s *Screen) Selection() *Selection {
	return s.selection
}

// Drop the selection and untrack its pins.
func (s *Screen) ClearSelection() {
	if s.selection == nil {
		return
	}
	s.Pages.UntrackPin(s.selection.start)
	s.Pages.UntrackPin(s.selection.end)
	s.selection = nil
}

// Write the selected text to the writer. Soft-wrapped rows are joined;
// hard line breaks become newlines. Rectangular selections take the
// start/end columns on every row.
func (s *Screen) SelectionString(w ioutil.Writer) error {
	sel := s.selection
	if sel == nil {
		return nil
	}

	it := sel.start.PageIterator(pagelist.DirectionRightDown, sel.end)
	first := true
	for chunk := range it.Next() {
		pg := chunk.Node.Data
		for y := chunk.StartY; y < chunk.EndY; y++ {
			row := pg.GetRow(y)

			startX := size.CellCountInt(0)
			endX := pg.Size.Cols - 1
			switch {
			case sel.rectangular:
				startX, endX = sel.start.X, sel.end.X
			default:
				if first {
					startX = sel.start.X
				}
				if chunk.Node == sel.end.Node && y == sel.end.Y {
					endX = sel.end.X
				}
			}

			// Rows are separated by newlines unless they soft-wrap, but a
			// rectangular block always breaks lines.
			if !first && (sel.rectangular || !row.WrapContinuation) {
				if err := w.WriteByte('\n'); err != nil {
					return err
				}
			}
			first = false

			if err := encodeRowRange(w, pg, row, startX, endX); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write the text of the cells in [startX, endX], skipping wide spacers
// and eliding trailing blanks.
func encodeRowRange(w ioutil.Writer, pg *page.Page, row *page.Row, startX, endX size.CellCountInt) error {
	blanks := 0
	for x := startX; x <= endX; x++ {
		cell := row.Cells[x]
		switch cell.Wide {
		case page.WideSpacerHead, page.WideSpacerTail:
			continue
		case page.WideNarrow, page.WideWide:
		}

		if !cell.HasText() {
			blanks++
			continue
		}
		for range blanks {
			if err := w.WriteByte(' '); err != nil {
				return err
			}
		}
		blanks = 0

		if err := writeRune(w, rune(cell.ContentCP)); err != nil {
			return err
		}
		if cell.GraphemeExtended {
			for _, cp := range pg.GraphemeCodepoints(row, x) {
				if err := writeRune(w, rune(cp)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func writeRune(w ioutil.Writer, r rune) error {
	var buf [4]byte
	n := utf8.EncodeRune(buf[:], r)
	_, err := w.Write(buf[:n])
	return err
}
