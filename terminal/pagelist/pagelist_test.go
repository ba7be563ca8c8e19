package pagelist

import (
	"bytes"
	"testing"

	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/datastruct"
	"github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageList(t *testing.T) {
	s := NewPageList(80, 24)
	assert.Equal(t, s.ViewPort, ViewportTagActive)
	assert.NotNil(t, s.Pages.First)
	assert.EqualValues(t, s.Rows, s.TotalRows())
	// Active area should be the top
	assert.EqualValues(t, &Pin{
		Node: s.Pages.First,
		Y:    0,
		X:    0,
	}, s.GetTopLeft(point.TagActive))
}

func TestPageListInitRowsAcrossTwoPages(t *testing.T) {
	const rows = 100
	cap := page.StandardCapacity
	err := cap.Adjust(page.Adjustment{
		Cols: 50,
	})
	assert.NoError(t, err)
	for cap.Rows >= rows && err == nil {
		err = cap.Adjust(page.Adjustment{
			Cols: cap.Cols + 50,
		})
	}
	assert.NoError(t, err)
	// Init

	s := NewPageList(cap.Cols, rows)
	assert.Equal(t, s.ViewPort, ViewportTagActive)
	assert.NotNil(t, s.Pages.First)
	assert.NotNil(t, s.Pages.First.Next)
	assert.EqualValues(t, s.Rows, s.TotalRows())
}

func TestPageListPointFromPinActive(t *testing.T) {
	s := NewPageList(80, 24)

	// Active area should be the top
	assert.EqualValues(t, &point.Point{
		Tag: point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{
			Y: 0,
			X: 0,
		},
	}, s.PointFromPin(point.TagActive, Pin{
		Node: s.Pages.First,
		Y:    0,
		X:    0,
	}))

	assert.EqualValues(t, &point.Point{
		Tag: point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{
			Y: 2,
			X: 4,
		},
	}, s.PointFromPin(point.TagActive, Pin{
		Node: s.Pages.First,
		Y:    2,
		X:    4,
	}))
}

func TestPageListPointFromPinActiveWithHistory(t *testing.T) {
	s := NewPageList(80, 24)
	err := s.growRows(30)
	assert.NoError(t, err)

	// Active area should be the top
	assert.EqualValues(t, &point.Point{
		Tag: point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{
			Y: 0,
			X: 2,
		},
	}, s.PointFromPin(point.TagActive, Pin{
		Node: s.Pages.First,
		Y:    30,
		X:    2,
	}))

	// In history, invalid
	assert.Nil(t, s.PointFromPin(point.TagActive, Pin{
		Node: s.Pages.First,
		Y:    21,
		X:    2,
	}))
}

func TestPageListRowIDsUnique(t *testing.T) {
	s := NewPageList(80, 24)

	seen := make(map[uint64]bool)
	for node := range s.Pages.Nodes() {
		for _, row := range node.Data.Rows {
			require.NotZero(t, row.ID)
			require.False(t, seen[row.ID], "row ID %d minted twice", row.ID)
			seen[row.ID] = true
		}
	}
}

func TestPageListEraseRowRecyclesID(t *testing.T) {
	s := NewPageList(80, 24)

	first := s.Pages.First.Data
	topID := first.Rows[0].ID
	lastID := first.Rows[s.Rows-1].ID

	s.EraseRow(point.Point{Tag: point.TagActive})

	// Everything shifted up by one, so the old row 1 content (and its ID)
	// is now at row 0 and the bottom row was recycled with a new identity.
	assert.NotEqual(t, topID, first.Rows[0].ID)
	assert.NotEqual(t, lastID, first.Rows[s.Rows-1].ID)
}

func TestPageListEraseRowUpdatesPins(t *testing.T) {
	s := NewPageList(80, 24)

	pin := s.TrackPin(Pin{Node: s.Pages.First, Y: 5, X: 3})
	s.EraseRow(point.Point{Tag: point.TagActive})

	assert.EqualValues(t, 4, pin.Y)
	assert.EqualValues(t, 3, pin.X)
}

func TestPageListGrowFastPath(t *testing.T) {
	s := NewPageList(80, 24)

	node := s.Grow()
	assert.Nil(t, node, "grow within capacity should not allocate")
	assert.EqualValues(t, 25, s.TotalRows())
}

func TestPageListGrowAllocatesWhenFull(t *testing.T) {
	s := NewPageList(80, 24)

	first := s.Pages.First
	rem := first.Data.Capacity.Rows - first.Data.Size.Rows
	for range rem {
		assert.Nil(t, s.Grow())
	}

	node := s.Grow()
	require.NotNil(t, node)
	assert.Equal(t, node, s.Pages.Last)
	assert.EqualValues(t, 1, node.Data.Size.Rows)
}

func TestPageListGrowPrunesAtMaxSize(t *testing.T) {
	s := NewPageList(80, 24)

	// Fill the first page, then allocate a second one.
	first := s.Pages.First
	for first.Data.Size.Rows < first.Data.Capacity.Rows {
		s.Grow()
	}
	second := s.Grow()
	require.NotNil(t, second)

	// Cap the list at its current size so the next allocation must prune.
	s.MaxPagesSize = s.PageSize

	// Fill the second page too so another grow needs a third page. The
	// active area now lives entirely in the second page, so the first is
	// pure scrollback and is prunable.
	for second.Data.Size.Rows < second.Data.Capacity.Rows {
		s.Grow()
	}

	pruned := false
	s.OnPrune = func(node *datastruct.Node[*page.Page]) {
		pruned = true
		assert.Equal(t, first, node)
	}

	pin := s.TrackPin(Pin{Node: first, Y: 3, X: 1})
	reused := s.Grow()
	require.NotNil(t, reused)
	assert.True(t, pruned)

	// The pruned node was recycled as the new last page.
	assert.Equal(t, reused, s.Pages.Last)

	// The tracked pin that pointed into the pruned page moved to the
	// top-left of the oldest remaining page.
	assert.Equal(t, s.Pages.First, pin.Node)
	assert.NotEqual(t, reused, pin.Node)
	assert.EqualValues(t, 0, pin.X)
	assert.EqualValues(t, 0, pin.Y)
}

func TestPageListScroll(t *testing.T) {
	s := NewPageList(80, 24)
	require.NoError(t, s.growRows(40))

	// Scroll up into the history.
	s.Scroll(-10)
	assert.Equal(t, ViewportTagPin, s.ViewPort)

	tl := s.GetTopLeft(point.TagViewPort)
	pt := s.PointFromPin(point.TagScreen, *tl)
	require.NotNil(t, pt)
	assert.EqualValues(t, 30, pt.Coordinate.Y)

	// Scroll past the top pins to the top.
	s.Scroll(-100)
	assert.Equal(t, ViewportTagTop, s.ViewPort)

	// Scroll down past the active area snaps back to active.
	s.Scroll(1000)
	assert.Equal(t, ViewportTagActive, s.ViewPort)
}

func TestPageListReset(t *testing.T) {
	s := NewPageList(80, 24)
	require.NoError(t, s.growRows(500))
	s.Scroll(-10)

	pin := s.TrackPin(Pin{Node: s.Pages.Last, Y: 2, X: 2})

	s.Reset()

	assert.EqualValues(t, s.Rows, s.TotalRows())
	assert.Equal(t, ViewportTagActive, s.ViewPort)
	assert.Equal(t, s.Pages.First, pin.Node)
	assert.EqualValues(t, 0, pin.X)
	assert.EqualValues(t, 0, pin.Y)
}

func TestPageListEncodeUtf8AcrossPages(t *testing.T) {
	s := NewPageList(80, 24)

	// Fill the first page and spill into a second.
	first := s.Pages.First
	for first.Data.Size.Rows < first.Data.Capacity.Rows {
		s.Grow()
	}
	require.NotNil(t, s.Grow())

	// One character on the very first row, one on the very last.
	rac := first.Data.GetRowAndCell(0, 0)
	rac.Cell.ContentTag = page.ContentTagCP
	rac.Cell.ContentCP = 'a'

	last := s.Pages.Last
	rac = last.Data.GetRowAndCell(0, last.Data.Size.Rows-1)
	rac.Cell.ContentTag = page.ContentTagCP
	rac.Cell.ContentCP = 'b'

	var buf bytes.Buffer
	err := s.EncodeUtf8(&buf, EncodeUtf8Options{
		TopLeft: Pin{Node: s.Pages.First},
	})
	require.NoError(t, err)

	total := int(s.TotalRows())
	want := "a"
	for range total - 1 {
		want += "\n"
	}
	want += "b"
	assert.Equal(t, want, buf.String())
}
