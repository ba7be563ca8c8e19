package page

import "github.com/hnimtadd/termcore/terminal/size"

type Row struct {
	// Stable identity of this row for render caching. The ID travels with
	// the row's content when lines shift and is re-minted whenever the row
	// is recycled for fresh content (scroll rotation, full clears).
	ID uint64

	// The cells in the row offset from the page.
	Cells []*Cell
	// Whether the row is wrapped
	Wrap bool
	// Whether the row is a continuation of a wrapped line
	WrapContinuation bool
	Y                size.CellCountInt

	// True if any of the cells in this row have a ref-counted style.
	// This can have false positives but never a false negative. Meaning:
	// this will be set to true the first time a style is used, but it
	// will not be set to false if the style is no longer used, because
	// checking for that condition is too expensive.
	//
	// Why have this weird false positive flag at all? This makes VT operations
	// that erase cells (such as insert lines, delete lines, erase chars,
	// etc.) MUCH MUCH faster in the case that the row was never styled.
	// At the time of writing this, the speed difference is around 4x.
	Styled bool

	// The semantic prompt type for this row as specified by the running
	// program, or "unknown" if it was never set.
	SemanticPrompt SemanticPromptType

	// Graphemes holds the combining codepoints for cells in this row that
	// have GraphemeExtended set, keyed by column. Lazily allocated since
	// most rows never hold a multi-codepoint grapheme.
	Graphemes map[size.CellCountInt][]uint32
}

// appendGrapheme attaches a combining codepoint to the cell at x.
func (r *Row) appendGrapheme(x size.CellCountInt, cp uint32) {
	if r.Graphemes == nil {
		r.Graphemes = make(map[size.CellCountInt][]uint32)
	}
	r.Graphemes[x] = append(r.Graphemes[x], cp)
}

// grapheme returns the combining codepoints for the cell at x, nil if
// the cell isn't extended.
func (r *Row) grapheme(x size.CellCountInt) []uint32 {
	if r.Graphemes == nil {
		return nil
	}
	return r.Graphemes[x]
}

// clearGrapheme drops the grapheme entry for the cell at x.
func (r *Row) clearGrapheme(x size.CellCountInt) {
	if r.Graphemes == nil {
		return
	}
	delete(r.Graphemes, x)
}

type RAC struct {
	Row  *Row
	Cell *Cell
}
