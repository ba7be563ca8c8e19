package renderer

import (
	"testing"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal"
	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedShaper returns the same glyph box for everything and counts
// calls, so tests can tell rebuilt rows from cached ones.
type fixedShaper struct {
	calls int
}

func (s *fixedShaper) GlyphBox(cps []uint32, bold, italic bool) Glyph {
	s.calls++
	return Glyph{TexW: 8, TexH: 16}
}

func testScheme() ColorScheme {
	palette := color.Palette(color.DefaultPalette)
	return ColorScheme{
		Palette:    &palette,
		Foreground: color.RGB{R: 0xEE, G: 0xEE, B: 0xEE},
		Background: color.RGB{R: 0x11, G: 0x11, B: 0x11},
		Cursor:     color.RGB{R: 0xAA, G: 0xAA, B: 0xAA},
	}
}

func newTestTerminal(cols, rows int) *terminal.Terminal {
	return terminal.NewTerminal(terminal.Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})
}

// feed prints the string, treating newlines as CR+LF.
func feed(term *terminal.Terminal, s string) {
	for _, r := range s {
		if r == '\n' {
			term.Index()
			term.CarriageReturn()
			continue
		}
		term.Print(uint32(r))
	}
}

func activePin(t *testing.T, term *terminal.Terminal, x, y size.CellCountInt) pagelist.Pin {
	t.Helper()
	pin := term.Screen.Pages.Pin(point.Point{
		Tag:        point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{X: x, Y: y},
	})
	require.NotNil(t, pin)
	return *pin
}

// countKinds tallies the frame by vertex kind.
func countKinds(frame []Vertex) map[VertexKind]int {
	counts := make(map[VertexKind]int)
	for _, v := range frame {
		counts[v.Kind]++
	}
	return counts
}

func TestCache_EvictsOldestBeyondCapacity(t *testing.T) {
	c := NewCache(1)
	require.Equal(t, MinCacheEntries, c.Capacity())

	for i := range MinCacheEntries + 20 {
		c.Put(Key{RowID: uint64(i + 1)}, []Vertex{{X: uint16(i)}})
	}
	assert.Equal(t, MinCacheEntries, c.Len())

	// The 20 oldest fell out, the newest stayed.
	_, ok := c.Get(Key{RowID: 1})
	assert.False(t, ok)
	_, ok = c.Get(Key{RowID: 21})
	assert.True(t, ok)

	assert.Equal(t, uint64(20), c.Stats().Evictions)
}

func TestCache_GetRefreshesRecency(t *testing.T) {
	c := NewCache(1)
	for i := range MinCacheEntries {
		c.Put(Key{RowID: uint64(i + 1)}, nil)
	}

	// Touch the oldest entry, then overflow by one: the eviction must
	// take the second oldest instead.
	_, ok := c.Get(Key{RowID: 1})
	require.True(t, ok)
	c.Put(Key{RowID: 1000}, nil)

	_, ok = c.Get(Key{RowID: 1})
	assert.True(t, ok)
	_, ok = c.Get(Key{RowID: 2})
	assert.False(t, ok)
}

func TestCache_PutReplacesInPlace(t *testing.T) {
	c := NewCache(1)
	key := Key{RowID: 7}

	c.Put(key, []Vertex{{X: 1}})
	c.Put(key, []Vertex{{X: 2}})
	assert.Equal(t, 1, c.Len())

	verts, ok := c.Get(key)
	require.True(t, ok)
	require.Len(t, verts, 1)
	assert.Equal(t, uint16(2), verts[0].X)
}

func TestCache_ResizeShrinkEvicts(t *testing.T) {
	c := NewCache(30)
	require.Equal(t, 300, c.Capacity())

	for i := range 200 {
		c.Put(Key{RowID: uint64(i + 1)}, nil)
	}
	c.Resize(5)
	assert.Equal(t, MinCacheEntries, c.Capacity())
	assert.Equal(t, MinCacheEntries, c.Len())

	// Survivors are the most recently inserted.
	_, ok := c.Get(Key{RowID: 200})
	assert.True(t, ok)
	_, ok = c.Get(Key{RowID: 120})
	assert.False(t, ok)
}

func TestCache_ClearKeepsCounters(t *testing.T) {
	c := NewCache(1)
	c.Put(Key{RowID: 1}, nil)
	c.Get(Key{RowID: 1})
	c.Get(Key{RowID: 2})

	c.Clear()
	assert.Equal(t, 0, c.Len())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 0, stats.Entries)
}

func TestRenderer_BuildFrameTextAndCursor(t *testing.T) {
	term := newTestTerminal(10, 3)
	feed(term, "hi")

	shaper := &fixedShaper{}
	r := NewRenderer(shaper, 3)
	frame := r.BuildFrame(term, testScheme())

	counts := countKinds(frame)
	assert.Equal(t, 2, counts[VertexKindFG])
	assert.Equal(t, 1, counts[VertexKindCursor])
	assert.Equal(t, 0, counts[VertexKindBG], "default style has no bg")
	assert.Equal(t, 2, shaper.calls)

	// The cursor draws last, at the position after the text.
	last := frame[len(frame)-1]
	assert.Equal(t, VertexKindCursor, last.Kind)
	assert.Equal(t, uint16(2), last.X)
	assert.Equal(t, uint16(0), last.Y)
	assert.Equal(t, uint8(0xAA), last.R)
}

func TestRenderer_HiddenCursorDrawsNoVertex(t *testing.T) {
	term := newTestTerminal(10, 3)
	term.SetMode(core.ModeCursorVisible, false)
	feed(term, "x")

	r := NewRenderer(&fixedShaper{}, 3)
	frame := r.BuildFrame(term, testScheme())
	assert.Zero(t, countKinds(frame)[VertexKindCursor])
}

func TestRenderer_CleanRowsComeFromCache(t *testing.T) {
	term := newTestTerminal(10, 3)
	feed(term, "ab\ncd")

	shaper := &fixedShaper{}
	r := NewRenderer(shaper, 3)
	first := r.BuildFrame(term, testScheme())
	built := shaper.calls
	require.Equal(t, 4, built)

	// Nothing changed: the second frame is served entirely from cache.
	second := r.BuildFrame(term, testScheme())
	assert.Equal(t, first, second)
	assert.Equal(t, built, shaper.calls)
	assert.NotZero(t, r.Cache().Stats().Hits)

	// Touching one row rebuilds that row alone.
	term.Print('X')
	r.BuildFrame(term, testScheme())
	assert.Equal(t, built+3, shaper.calls)
}

func TestRenderer_ViewportScrollRewritesY(t *testing.T) {
	term := newTestTerminal(10, 3)
	feed(term, "one\ntwo\nthree\nfour")

	shaper := &fixedShaper{}
	r := NewRenderer(shaper, 3)
	r.BuildFrame(term, testScheme())
	shaped := shaper.calls

	// One row back: "one" scrolls into view, "two" and "three" shift
	// down a slot. Both were cached and only "one" needs shaping.
	term.ScrollViewport(-1)
	frame := r.BuildFrame(term, testScheme())
	assert.Equal(t, shaped+3, shaper.calls)

	perRow := map[uint16]int{}
	for _, v := range frame {
		if v.Kind == VertexKindFG {
			perRow[v.Y]++
		}
	}
	assert.Equal(t, map[uint16]int{0: 3, 1: 3, 2: 5}, perRow)

	// Scrolled back means no cursor.
	assert.Zero(t, countKinds(frame)[VertexKindCursor])
}

func TestRenderer_ReverseColorsSwapsScheme(t *testing.T) {
	term := newTestTerminal(10, 3)
	feed(term, "r")
	term.SetMode(core.ModeReverseColors, true)

	scheme := testScheme()
	r := NewRenderer(&fixedShaper{}, 3)
	frame := r.BuildFrame(term, scheme)

	var fg *Vertex
	for i := range frame {
		if frame[i].Kind == VertexKindFG {
			fg = &frame[i]
			break
		}
	}
	require.NotNil(t, fg)
	assert.Equal(t, scheme.Background.R, fg.R)
	assert.Equal(t, scheme.Background.G, fg.G)
	assert.Equal(t, scheme.Background.B, fg.B)
}

func TestRenderer_SelectionInvertsAndRestores(t *testing.T) {
	term := newTestTerminal(10, 3)
	feed(term, "hi")

	scheme := testScheme()
	shaper := &fixedShaper{}
	r := NewRenderer(shaper, 3)

	plain := r.BuildFrame(term, scheme)
	built := shaper.calls
	assert.Zero(t, countKinds(plain)[VertexKindBG])

	// Select the first row: its cache key changes, the row rebuilds
	// inverted. Text picks up the scheme background, and every cell in
	// the span gets a background in the old foreground.
	term.Screen.Select(activePin(t, term, 0, 0), activePin(t, term, 9, 0), false)
	selected := r.BuildFrame(term, scheme)
	assert.Equal(t, built+2, shaper.calls)
	counts := countKinds(selected)
	assert.Equal(t, 10, counts[VertexKindBG])

	for _, v := range selected {
		switch v.Kind {
		case VertexKindFG:
			assert.Equal(t, scheme.Background.R, v.R)
		case VertexKindBG:
			assert.Equal(t, scheme.Foreground.R, v.R)
		}
	}

	// Dropping the selection restores the original rendering from the
	// cache without reshaping.
	term.Screen.ClearSelection()
	restored := r.BuildFrame(term, scheme)
	assert.Equal(t, built+2, shaper.calls)
	assert.Equal(t, plain, restored)
}

func TestSelectionSignature_NoSelectionIsZero(t *testing.T) {
	term := newTestTerminal(10, 3)
	pin := activePin(t, term, 0, 0)
	assert.Zero(t, SelectionSignature(nil, pin))
}

func TestSelectionSignature_RowRelationsDiffer(t *testing.T) {
	term := newTestTerminal(10, 5)
	feed(term, "aaaa\nbbbb\ncccc\ndddd")

	term.Screen.Select(activePin(t, term, 1, 0), activePin(t, term, 2, 2), false)
	sel := term.Screen.Selection()
	require.NotNil(t, sel)

	sigStart := SelectionSignature(sel, activePin(t, term, 0, 0))
	sigMid := SelectionSignature(sel, activePin(t, term, 0, 1))
	sigEnd := SelectionSignature(sel, activePin(t, term, 0, 2))
	sigOut := SelectionSignature(sel, activePin(t, term, 0, 3))

	// The start row selects columns 1.., the middle row everything,
	// the end row ..2: three distinct spans, three distinct keys.
	assert.NotZero(t, sigStart)
	assert.NotZero(t, sigMid)
	assert.NotZero(t, sigEnd)
	assert.Zero(t, sigOut)
	assert.NotEqual(t, sigStart, sigMid)
	assert.NotEqual(t, sigMid, sigEnd)
	assert.NotEqual(t, sigStart, sigEnd)
}

func TestSelectionSignature_RectangularDiffers(t *testing.T) {
	term := newTestTerminal(10, 5)
	feed(term, "aaaa\nbbbb\ncccc")

	start, end := activePin(t, term, 1, 0), activePin(t, term, 2, 2)

	term.Screen.Select(start, end, false)
	linear := SelectionSignature(term.Screen.Selection(), activePin(t, term, 0, 1))

	// Same bounds as a rectangle select only the 1..2 column band on
	// the middle row.
	term.Screen.Select(start, end, true)
	rect := SelectionSignature(term.Screen.Selection(), activePin(t, term, 0, 1))

	assert.NotZero(t, linear)
	assert.NotZero(t, rect)
	assert.NotEqual(t, linear, rect)
}
