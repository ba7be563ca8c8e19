package renderer

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/hnimtadd/termcore/terminal"
	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/screen"
	"github.com/hnimtadd/termcore/terminal/set"
	"github.com/hnimtadd/termcore/terminal/sgr"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/style"
	styleid "github.com/hnimtadd/termcore/terminal/style/id"
)

// ColorScheme is the resolved default colors for one frame. The
// stream handler owns the live values; the embedder snapshots them
// here before building.
type ColorScheme struct {
	Palette    *color.Palette
	Foreground color.RGB
	Background color.RGB
	Cursor     color.RGB

	// BoldIsBright maps bold palette foregrounds 0-7 onto 8-15.
	BoldIsBright bool
}

// Renderer turns the visible grid into vertex lists, reusing cached
// rows when their content and selection state are unchanged. Not safe
// for concurrent use.
type Renderer struct {
	cache  *Cache
	shaper Shaper

	// scratch for per-cell codepoint lists.
	cps []uint32
}

func NewRenderer(shaper Shaper, visibleRows int) *Renderer {
	return &Renderer{
		cache:  NewCache(visibleRows),
		shaper: shaper,
		cps:    make([]uint32, 0, 8),
	}
}

// Cache exposes the row cache, mostly for stats.
func (r *Renderer) Cache() *Cache {
	return r.cache
}

// BuildFrame walks the viewport and returns the frame's vertex list,
// rows top to bottom, cursor last. The caller must hold the loop's
// state mutex for the duration. Dirty flags are consumed: rows
// rendered by this frame are clean afterward.
func (r *Renderer) BuildFrame(term *terminal.Terminal, scheme ColorScheme) []Vertex {
	if term.Modes.Get(core.ModeReverseColors) {
		scheme.Foreground, scheme.Background = scheme.Background, scheme.Foreground
	}

	scr := term.Screen
	pages := scr.Pages
	rows := int(term.Rows())
	r.cache.Resize(rows)

	sel := scr.Selection()
	screenType := term.ActiveScreen()

	frame := make([]Vertex, 0, rows*4)
	tl := pages.GetTopLeft(point.TagViewPort)
	for y := 0; y < rows; y++ {
		rowPin := tl.Down(size.CellCountInt(y))
		if rowPin == nil {
			break
		}
		pg := rowPin.Node.Data
		row := pg.GetRow(rowPin.Y)

		key := Key{
			Screen: screenType,
			RowID:  row.ID,
			SelSig: SelectionSignature(sel, *rowPin),
		}

		if !pg.IsRowDirty(rowPin.Y) {
			if verts, ok := r.cache.Get(key); ok {
				for i := range verts {
					verts[i].Y = uint16(y)
				}
				frame = append(frame, verts...)
				continue
			}
		}

		verts := r.buildRow(pg, row, rowPin, uint16(y), sel, scheme)
		r.cache.Put(key, verts)
		frame = append(frame, verts...)
	}

	if cursor, ok := r.buildCursor(term, scheme); ok {
		frame = append(frame, cursor)
	}

	pages.ClearDirty()
	return frame
}

// buildRow shapes one row into vertices: backgrounds first, then text
// and decorations, in column order.
func (r *Renderer) buildRow(
	pg *page.Page,
	row *page.Row,
	rowPin *pagelist.Pin,
	y uint16,
	sel *screen.Selection,
	scheme ColorScheme,
) []Vertex {
	cells := pg.GetCells(row)
	verts := make([]Vertex, 0, 4)

	selStart, selEnd, selected := selRange(sel, rowPin, pg.Size.Cols)

	for x, cell := range cells {
		st := style.Style{}
		if cell.StyleID != styleid.DefaultID && row.Styled {
			if v := pg.Styles.Get(set.ID(cell.StyleID)); v != nil {
				if s, ok := v.(style.Style); ok {
					st = s
				}
			}
		}

		fg := scheme.Foreground
		if c := st.FG(cell, scheme.Palette, scheme.BoldIsBright); c != nil {
			fg = *c
		}
		bg := st.BG(cell, scheme.Palette)

		if st.Inverse {
			fg, bg = invert(fg, bg, scheme)
		}
		if selected && size.CellCountInt(x) >= selStart && size.CellCountInt(x) <= selEnd {
			fg, bg = invert(fg, bg, scheme)
		}

		if bg != nil {
			verts = append(verts, Vertex{
				Kind: VertexKindBG,
				X:    uint16(x), Y: y,
				R: bg.R, G: bg.G, B: bg.B, A: 255,
			})
		}

		// Spacers carry no text or decorations of their own.
		if cell.Wide == page.WideSpacerHead || cell.Wide == page.WideSpacerTail {
			continue
		}

		var mode uint8
		if cell.Wide == page.WideWide {
			mode |= VertexModeWide
		}
		if st.Bold {
			mode |= VertexModeBold
		}
		if st.Italic {
			mode |= VertexModeItalic
		}
		if st.Faint {
			mode |= VertexModeFaint
		}
		if st.Blink {
			mode |= VertexModeBlink
		}

		if cell.HasText() && !st.Invisible && r.shaper != nil {
			r.cps = append(r.cps[:0], cell.ContentCP)
			if cell.GraphemeExtended {
				r.cps = append(r.cps, pg.GraphemeCodepoints(row, size.CellCountInt(x))...)
			}
			glyph := r.shaper.GlyphBox(r.cps, st.Bold, st.Italic)
			verts = append(verts, Vertex{
				Kind: VertexKindFG,
				X:    uint16(x), Y: y,
				TexX: glyph.TexX, TexY: glyph.TexY,
				TexW: glyph.TexW, TexH: glyph.TexH,
				OffX: glyph.OffX, OffY: glyph.OffY,
				R: fg.R, G: fg.G, B: fg.B, A: 255,
				Mode: mode,
			})
		}

		if st.Underline != sgr.UnderlineTypeNone {
			uc := fg
			if c := st.UColor(scheme.Palette); c != nil {
				uc = *c
			}
			verts = append(verts, Vertex{
				Kind: VertexKindUnderline,
				X:    uint16(x), Y: y,
				R: uc.R, G: uc.G, B: uc.B, A: 255,
				Mode: uint8(st.Underline),
			})
		}

		if st.Strikethrough {
			verts = append(verts, Vertex{
				Kind: VertexKindStrikethrough,
				X:    uint16(x), Y: y,
				R: fg.R, G: fg.G, B: fg.B, A: 255,
			})
		}
	}
	return verts
}

// invert swaps effective foreground and background. A nil background
// stands for the scheme default.
func invert(fg color.RGB, bg *color.RGB, scheme ColorScheme) (color.RGB, *color.RGB) {
	newFG := scheme.Background
	if bg != nil {
		newFG = *bg
	}
	newBG := fg
	return newFG, &newBG
}

// buildCursor produces the cursor vertex. The cursor draws over the
// cached cells and is never cached itself: it is absent while the
// viewport is scrolled back or the cursor is hidden.
func (r *Renderer) buildCursor(term *terminal.Terminal, scheme ColorScheme) (Vertex, bool) {
	if term.Screen.Pages.ViewPort != pagelist.ViewportTagActive {
		return Vertex{}, false
	}
	if !term.Modes.Get(core.ModeCursorVisible) {
		return Vertex{}, false
	}

	cur := term.Screen.Cursor
	return Vertex{
		Kind: VertexKindCursor,
		X:    uint16(cur.X), Y: uint16(cur.Y),
		R: scheme.Cursor.R, G: scheme.Cursor.G, B: scheme.Cursor.B, A: 255,
		Mode: uint8(term.CursorStyle()),
	}, true
}

// selRange returns the selected column span on the row, ok false when
// the selection misses it entirely.
func selRange(
	sel *screen.Selection,
	rowPin *pagelist.Pin,
	cols size.CellCountInt,
) (startX, endX size.CellCountInt, ok bool) {
	if sel == nil || !sel.ContainsRow(rowPin) {
		return 0, 0, false
	}

	start, end := sel.TopLeft(), sel.BottomRight()
	if sel.Rectangular() {
		return start.X, end.X, true
	}

	startX, endX = 0, cols-1
	if rowPin.Node == start.Node && rowPin.Y == start.Y {
		startX = start.X
	}
	if rowPin.Node == end.Node && rowPin.Y == end.Y {
		endX = end.X
	}
	return startX, endX, true
}

// SelectionSignature folds the selection's shape on one row into a
// cache key component. Zero means the selection misses the row, which
// doubles as the no-selection signature so unaffected rows keep their
// entries across selection changes. The hash covers the bound
// coordinates plus this row's start/end relation, which together
// fully determine the selected span.
func SelectionSignature(sel *screen.Selection, rowPin pagelist.Pin) uint64 {
	if sel == nil || !sel.ContainsRow(&rowPin) {
		return 0
	}

	start, end := sel.TopLeft(), sel.BottomRight()
	var rel byte
	if rowPin.Node == start.Node && rowPin.Y == start.Y {
		rel |= 1
	}
	if rowPin.Node == end.Node && rowPin.Y == end.Y {
		rel |= 2
	}
	if sel.Rectangular() {
		rel |= 4
	}

	h := fnv.New64a()
	var buf [2]byte
	for _, v := range []size.CellCountInt{start.X, start.Y, end.X, end.Y} {
		binary.LittleEndian.PutUint16(buf[:], v)
		h.Write(buf[:])
	}
	h.Write([]byte{rel})

	sig := h.Sum64()
	if sig == 0 {
		sig = 1
	}
	return sig
}
