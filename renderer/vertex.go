// Package renderer holds the render-side view of the grid: a row
// vertex cache plus the builder that turns visible rows into flat
// vertex lists for a GPU cell pipeline. The package never talks to a
// GPU itself; it produces records a backend uploads as instance data.
package renderer

// VertexKind tells the pipeline what a record draws.
type VertexKind uint8

const (
	VertexKindBG VertexKind = iota
	VertexKindFG
	VertexKindUnderline
	VertexKindStrikethrough
	VertexKindCursor
)

func (k VertexKind) String() string {
	switch k {
	case VertexKindBG:
		return "bg"
	case VertexKindFG:
		return "fg"
	case VertexKindUnderline:
		return "underline"
	case VertexKindStrikethrough:
		return "strikethrough"
	case VertexKindCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// Mode bits for text vertices. Underline vertices reuse the Mode byte
// for the underline style instead, and cursor vertices for the cursor
// shape.
const (
	VertexModeWide uint8 = 1 << iota
	VertexModeBold
	VertexModeItalic
	VertexModeFaint
	VertexModeBlink
)

// Vertex is one quad of instance data.
type Vertex struct {
	Kind VertexKind

	// Cell position in the viewport grid. Cached rows keep their X
	// values; Y is rewritten to the current viewport row on reuse.
	X, Y uint16

	// Glyph box in the atlas plus the bearing offset from the cell
	// origin. Zero for non-text kinds.
	TexX, TexY uint16
	TexW, TexH uint16
	OffX, OffY int16

	// Straight-alpha color.
	R, G, B, A uint8

	Mode uint8
}

// Glyph is a shaped glyph's atlas box and bearings.
type Glyph struct {
	TexX, TexY uint16
	TexW, TexH uint16
	OffX, OffY int16
}

// Shaper resolves text to atlas glyphs. Row rebuilds call it once per
// text cell; cache hits skip it entirely.
type Shaper interface {
	// GlyphBox returns the atlas box for one cell's codepoints, the
	// base plus any combining marks. bold and italic select the face.
	GlyphBox(cps []uint32, bold, italic bool) Glyph
}
