package page

import (
	"fmt"

	"github.com/hnimtadd/termcore/internal/ioutil"
	"github.com/hnimtadd/termcore/terminal/set"
	"github.com/hnimtadd/termcore/terminal/size"
	styleid "github.com/hnimtadd/termcore/terminal/style/id"
	"github.com/hnimtadd/termcore/terminal/utils"
)

var ErrOutOfMemory = fmt.Errorf("page: out of memory")

// A page represents a specific section of terminal screen. The primary
// idea of a page is that it is a fully self-contained unit that can be
// serialized, copied, etc. as a convenient way to represent a section
// of the screen.
//
// This property is useful for renderers which want to copy just the pages
// for the visible portion of the screen, or for infinite scrollback where
// we may want to serialize and store pages that are sufficiently far
// away from the current viewport.
type Page struct {
	// The array of Rows in the page. The Rows are always in row order (i.e.
	// index 0 is the top row, index 1 is the second row, etc.)
	Rows []*Row

	// The arrays of Cells in the page. The Cells are NOT in row order, but
	// they are in column order. To determine the mapping of cellls, to row,
	// we hae to use the `rows` field. From the pointer to the first column,
	// all Cells in that row are laid out in column order.
	Cells []*Cell

	// The availabes set of styles in use on this page.
	Styles *set.RefCountedSet

	// Dirty bits in the page.
	// Each bit represents a row in the page, and if the bit is set,
	// then the row is dirty and requires a redraw. Dirty status is only ever
	// meant to convey that a cell has changed visually. A cell changes in a
	// way that doesn't affect the visual representation may not be marked as
	// dirty.
	//
	// Dirty tracking may have false positibes, but should never have false
	// negatives.
	// A false negative would result in a visual artifact on the screen.
	Dirty *utils.StaticBitSet

	Size     Size
	Capacity Capacity

	// If this is positive then verify integrity will do nothing.
	pauseIntegrityCheck int
}

func InitPage(cap Capacity) *Page {
	// init the cells.
	cells := make([]*Cell, cap.Cols*cap.Rows)
	for i := range cells {
		cells[i] = &Cell{}
	}

	rows := make([]*Row, cap.Rows)
	// we need to go through and initialize all the rows so that they point
	// to a valid cells, since the rows zero-initialized aren't valid.
	for i := range rows {
		rows[i] = &Row{
			Cells: cells[i*int(cap.Cols) : (i+1)*int(cap.Cols)],
			Y:     size.CellCountInt(i),
		}
	}

	return &Page{
		Rows:  rows,
		Cells: cells,
		Styles: set.NewRefCountedSet(set.Options{
			Cap: utils.PointerTo(uint64(cap.Styles)),
		}),
		Size:     Size{Cols: cap.Cols, Rows: cap.Rows},
		Capacity: cap,
		Dirty:    utils.NewStaticBitSet(int(cap.Rows)),
	}
}

// A helper that can be used to assert the integrity of the page. This is no-op
// if checks are paused.
func (p *Page) AssertIntegrity() {
	if p.pauseIntegrityCheck > 0 {
		return
	}
	utils.Assert(p.Size.Rows != 0, "page integrity violation zero row count")
	utils.Assert(p.Size.Cols != 0, "page integrity violation zero col count")
}

// Temporarily pause integrity checks. This is useful when we are
// doing a lot of operations that would trigger integrity check
// violations but we know the page will end up in a consistent state.
func (p *Page) PauseIntegrityChecks(v bool) {
	if v {
		p.pauseIntegrityCheck += 1
	} else {
		p.pauseIntegrityCheck -= 1
	}
}

// MoveCells moves cells from srcRow to dstRow, shifting their grapheme
// data along. The source cells are zeroed out. Rows may belong to the
// same or different positions of this page, but not to another page.
func (p *Page) MoveCells(
	srcRow *Row,
	srcLeft size.CellCountInt,
	dstRow *Row,
	dstLeft size.CellCountInt,
	length size.CellCountInt,
) {
	defer p.AssertIntegrity()

	// The destination cells are overwritten, release any styles they hold.
	if dstRow.Styled {
		for _, cell := range dstRow.Cells[dstLeft : dstLeft+length] {
			if cell.StyleID != styleid.DefaultID {
				p.Styles.Release(set.ID(cell.StyleID))
			}
		}
	}

	for i := size.CellCountInt(0); i < length; i++ {
		src := srcRow.Cells[srcLeft+i]
		dst := dstRow.Cells[dstLeft+i]
		*dst = *src

		// Style refs travel with the cell contents, no recount needed.
		if src.GraphemeExtended {
			if cps := srcRow.grapheme(srcLeft + i); cps != nil {
				if dstRow.Graphemes == nil {
					dstRow.Graphemes = make(map[size.CellCountInt][]uint32)
				}
				dstRow.Graphemes[dstLeft+i] = cps
				srcRow.clearGrapheme(srcLeft + i)
			}
		} else {
			dstRow.clearGrapheme(dstLeft + i)
		}

		*src = Cell{}
	}

	if srcRow.Styled {
		dstRow.Styled = true
	}
}

// SwapCells exchanges the contents of two cells in the row, carrying any
// attached grapheme data with them.
func (p *Page) SwapCells(row *Row, a, b size.CellCountInt) {
	*row.Cells[a], *row.Cells[b] = *row.Cells[b], *row.Cells[a]

	if row.Graphemes != nil {
		ga, oka := row.Graphemes[a]
		gb, okb := row.Graphemes[b]
		delete(row.Graphemes, a)
		delete(row.Graphemes, b)
		if oka {
			row.Graphemes[b] = ga
		}
		if okb {
			row.Graphemes[a] = gb
		}
	}
}

// ClonePartialRowFrom copies the cells in [start, end) of srcRow, which
// belongs to the other page, into dstRow on this page. Styles are
// re-interned into this page's style set and grapheme data is copied.
//
// A full-width clone also carries the row-level flags.
func (p *Page) ClonePartialRowFrom(
	other *Page,
	dstRow *Row,
	srcRow *Row,
	start size.CellCountInt,
	end size.CellCountInt,
) error {
	defer p.AssertIntegrity()

	// Release styles the overwritten destination cells hold.
	if dstRow.Styled {
		for _, cell := range dstRow.Cells[start:end] {
			if cell.StyleID != styleid.DefaultID {
				p.Styles.Release(set.ID(cell.StyleID))
			}
		}
	}

	for x := start; x < end; x++ {
		src := srcRow.Cells[x]
		dst := dstRow.Cells[x]
		*dst = *src

		if src.StyleID != styleid.DefaultID {
			srcStyle := other.Styles.Get(set.ID(src.StyleID))
			dst.StyleID = styleid.ID(p.Styles.Add(srcStyle))
			dstRow.Styled = true
		}

		if src.GraphemeExtended {
			if cps := srcRow.grapheme(x); cps != nil {
				if dstRow.Graphemes == nil {
					dstRow.Graphemes = make(map[size.CellCountInt][]uint32)
				}
				cloned := make([]uint32, len(cps))
				copy(cloned, cps)
				dstRow.Graphemes[x] = cloned
			}
		} else {
			dstRow.clearGrapheme(x)
		}
	}

	// Full-width clones take the row metadata with them.
	if start == 0 && end == p.Size.Cols {
		dstRow.ID = srcRow.ID
		dstRow.Wrap = srcRow.Wrap
		dstRow.WrapContinuation = srcRow.WrapContinuation
		dstRow.SemanticPrompt = srcRow.SemanticPrompt
	}
	return nil
}

// CloneRowFrom copies the full srcRow from the other page into dstRow.
func (p *Page) CloneRowFrom(other *Page, dstRow *Row, srcRow *Row) {
	// The error is impossible for a full-width clone since the style set
	// grows on demand.
	_ = p.ClonePartialRowFrom(other, dstRow, srcRow, 0, p.Size.Cols)
}

// AppendGrapheme attaches a combining codepoint to the cell at x in the
// row and marks the cell as grapheme extended.
func (p *Page) AppendGrapheme(row *Row, x size.CellCountInt, cp uint32) {
	utils.Assert(x < p.Size.Cols)
	row.appendGrapheme(x, cp)
	row.Cells[x].GraphemeExtended = true
}

// GraphemeCodepoints returns the combining codepoints attached to the
// cell at x, nil if the cell is not extended.
func (p *Page) GraphemeCodepoints(row *Row, x size.CellCountInt) []uint32 {
	return row.grapheme(x)
}

// ClearGrapheme removes the combining codepoints attached to the cell
// at x and unsets its extended flag.
func (p *Page) ClearGrapheme(row *Row, x size.CellCountInt) {
	row.clearGrapheme(x)
	row.Cells[x].GraphemeExtended = false
}

// The size of this page
type Size struct {
	Cols size.CellCountInt
	Rows size.CellCountInt
}

// Capacity of this page.
type Capacity struct {
	// Number of Cols and rows we can know about:
	Cols size.CellCountInt
	Rows size.CellCountInt

	// Number of unique Styles that can be used on this page.
	Styles uint
}

// Rough per-item footprints used for scrollback accounting. These don't
// have to be exact, they only have to be stable so that the page list
// can bound total memory.
const (
	perCellBytes  = 32
	perRowBytes   = 64
	perStyleBytes = 64
)

// Size estimates the memory footprint in bytes of a page allocated with
// this capacity.
func (c Capacity) Size() uint64 {
	return uint64(c.Cols)*uint64(c.Rows)*perCellBytes +
		uint64(c.Rows)*perRowBytes +
		uint64(c.Styles)*perStyleBytes
}

type Adjustment struct {
	Cols size.CellCountInt
}

// Adjust the capacity parameters while retaining the same total size.
// Adjustments alwasy happen by limiting the row in pages. Everying else
// can grow. If it is impossible to achieve the desired capacity, OutOfMemory
// is returned.
func (c *Capacity) Adjust(req Adjustment) error {
	if req.Cols > 0 && req.Cols != c.Cols {
		totalCells := c.Cols * c.Rows
		new_rows := int(totalCells / req.Cols)
		// If our rows to to zero then we can't fit any row metadata for the
		// desired number of columns.
		if new_rows == 0 {
			return ErrOutOfMemory
		}
		c.Rows = size.CellCountInt(new_rows)
		c.Cols = req.Cols
	}
	return nil
}

// The standard capacity for a page that doesn't have special
// requirements. This is enough to support a very large number of cells.
// The standard capacity is chosen as the fast-path for allocation since
// pages of standard capacity use a pooled allocator instead of single-use
// mmaps.
var StandardCapacity = Capacity{
	Cols:   215,
	Rows:   215,
	Styles: 128,
}

type EncodeUtf8Options struct {
	// The range of rows to encode. If EndY is null, then it will
	// encode to the end of the page.
	StartY size.CellCountInt
	EndY   *size.CellCountInt
	Unwrap bool

	// Preceding state from encoding the previous page.
	// Use to preserve blanks properly across multiple pages.
	Preceding TrailingUtf8State
}

type TrailingUtf8State struct {
	Rows  uint
	Cells uint
}

// Encode the page contents as UTF-8.
//
// The preceding state is used to initialize our blank rows/cells count
// so that we can accumlate blanks across multiple pages. The returned
// trailing state should be fed into the next page's encode.
func (p *Page) EncodeUtf8(w ioutil.Writer, opts EncodeUtf8Options) (TrailingUtf8State, error) {
	blankRows := opts.Preceding.Rows
	blankCells := opts.Preceding.Cells
	startY, endY := opts.StartY, opts.EndY
	if endY == nil {
		endY = &p.Size.Rows
	}

	trailing := func() TrailingUtf8State {
		return TrailingUtf8State{Rows: blankRows, Cells: blankCells}
	}
	for y := startY; y < *endY; y++ {
		row := p.GetRow(y)
		cells := p.GetCells(row)

		// If this row is blank, acculate to avoid a bunch of extra work
		// later. If it isn't blank, make sure we dump all our blanks.
		if !hasTextAny(cells) {
			blankRows += 1
			continue
		}

		// we have blank rows to process here.
		for range blankRows {
			if err := w.WriteByte('\n'); err != nil {
				return trailing(), err
			}
		}
		blankRows = 0

		// If we're not wrapped, we always add a newline so after the row is
		// printed we can add a newline.
		if !row.Wrap || !opts.Unwrap {
			blankRows++
		}

		// If the row doesn't continue a wrap, then we need to reset our blank
		// cell count.
		if !row.WrapContinuation || !opts.Unwrap {
			blankCells = 0
		}

		// go through each cell and print it.
	processCell:
		for x, cell := range cells {
			// skper spacers
			switch cell.Wide {
			case WideSpacerHead, WideSpacerTail:
				continue processCell
			case WideNarrow, WideWide:
			}

			// If we have a zel value, then we accumlate a counters. We only
			// want to turn zero values into spaces if we have a non-zero
			// char sometime later.
			if !cell.HasText() {
				blankCells++
				continue processCell
			}

			if blankCells > 0 {
				for range blankCells {
					if err := w.WriteByte(' '); err != nil {
						return trailing(), err
					}
				}
				blankCells = 0
			}
			switch cell.ContentTag {
			case ContentTagCP:
				if _, err := fmt.Fprintf(w, "%c", cell.ContentCP); err != nil {
					return trailing(), err
				}

				if cell.GraphemeExtended {
					for _, cp := range row.grapheme(size.CellCountInt(x)) {
						if _, err := fmt.Fprintf(w, "%c", cp); err != nil {
							return trailing(), err
						}
					}
				}
			case ContentTagBGColorPalette, ContentTagBGColorRGB:
				// Unreachable since we do HasText above.
				continue processCell
			}
		}
	}
	return trailing(), nil
}

// Get a single row, y must be valid.
func (p *Page) GetRow(y size.CellCountInt) *Row {
	utils.Assert(y < p.Size.Rows)
	return p.Rows[y]
}

// Get the cells for a row.
func (p *Page) GetCells(row *Row) []*Cell {
	cells := row.Cells
	return cells[0:p.Size.Cols]
}

// RowHasText reports whether any cell in the row holds a printable
// codepoint. Styled blanks don't count.
func (p *Page) RowHasText(row *Row) bool {
	return hasTextAny(p.GetCells(row))
}

// Get th roew and cell for the given X/Y within this page.
func (p *Page) GetRowAndCell(x, y size.CellCountInt) *RAC {
	utils.Assert(x < p.Size.Cols)
	utils.Assert(y < p.Size.Rows)

	row := p.Rows[y]
	cell := row.Cells[x]
	return &RAC{
		Row:  row,
		Cell: cell,
	}
}

func (p *Page) DirtyBitSet() *utils.StaticBitSet {
	return p.Dirty
}

func (p *Page) IsRowDirty(y size.CellCountInt) bool {
	return p.Dirty.IsSet(int(y))
}

// Clear the cells in the given row. Attached grapheme data is dropped
// and styles are released.
func (p *Page) ClearCells(row *Row, left, end size.CellCountInt) {
	defer p.AssertIntegrity()
	cells := row.Cells[left:end]
	if row.Styled {
		for _, cell := range cells {
			if cell.StyleID == styleid.DefaultID {
				continue
			}
			p.Styles.Release(set.ID(cell.StyleID))
		}
		if len(cells) == int(p.Size.Cols) {
			row.Styled = false
		}
	}

	if row.Graphemes != nil {
		for x := left; x < end; x++ {
			delete(row.Graphemes, x)
		}
	}

	// Zero out the cells in the row.
	for _, cell := range cells {
		*cell = Cell{}
	}
}

// Reset returns the page to its empty state, keeping the allocation.
func (p *Page) Reset() {
	for _, row := range p.Rows {
		for _, cell := range row.Cells {
			*cell = Cell{}
		}
		*row = Row{Cells: row.Cells, Y: row.Y}
	}
	p.Styles = set.NewRefCountedSet(set.Options{
		Cap: utils.PointerTo(uint64(p.Capacity.Styles)),
	})
	p.Dirty.Clear()
}
