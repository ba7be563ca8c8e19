package terminal

import (
	"slices"
	"testing"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/core"
	pagepkg "github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/stretchr/testify/assert"
)

func TestTerminal_InputWithNoControlCharacters(t *testing.T) {
	const rows = 40
	const cols = 40
	term := NewTerminal(Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	// Basic grid writing
	input := "hello"
	for c := range slices.Values([]byte(input)) {
		term.Print(uint32(c))
	}
	// Check cursor position
	assert.Equal(t, size.CellCountInt(0), term.Screen.Cursor.Y)
	assert.Equal(t, size.CellCountInt(5), term.Screen.Cursor.X)

	// Check screen content
	content := term.PlainString()
	assert.Equal(t, input, content)
	// Written row should be dirty
	assert.True(t, term.isDirty(point.Point{
		Tag:        point.TagScreen,
		Coordinate: coordinate.Point[size.CellCountInt]{X: 4, Y: 0},
	}))
	assert.False(t, term.isDirty(point.Point{
		Tag:        point.TagScreen,
		Coordinate: coordinate.Point[size.CellCountInt]{X: 5, Y: 1},
	}))
}

func TestTerminal_InputWithWraparound(t *testing.T) {
	const rows = 40
	const cols = 5

	term := NewTerminal(Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	// Basic grid writing
	input := "helloworldabc12"
	for _, c := range input {
		// check print wrap
		term.Print(uint32(c))
	}

	// Verify cursor position and wrap state
	assert.Equal(t, size.CellCountInt(2), term.Screen.Cursor.Y,
		"cursor Y should be 2")
	assert.Equal(t, size.CellCountInt(4), term.Screen.Cursor.X,
		"cursor X should be 4")
	assert.True(t, term.Screen.Cursor.PendingWrap,
		"cursor should be pending wrap")

	// Mock DumpString to return the expected content
	expectedContent := "hello\nworld\nabc12"

	// Check screen content
	content := term.PlainString()
	assert.Equal(
		t,
		expectedContent,
		content,
		"screen content should match expected",
	)
}

func TestTerminal_InputWithBasicWraparoundDirty(t *testing.T) {
	const rows = 40
	const cols = 5
	term := NewTerminal(Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})
	// Basic grid writing
	for _, c := range "hello" {
		// check print wrap
		term.Print(uint32(c))
	}

	assert.True(t, term.isDirty(point.Point{
		Tag:        point.TagScreen,
		Coordinate: coordinate.Point[size.CellCountInt]{X: 4, Y: 0},
	}))
	term.clearDirty()
	term.Print('w')

	// Old row is dirty as we moved from there
	assert.True(t, term.isDirty(point.Point{
		Tag:        point.TagScreen,
		Coordinate: coordinate.Point[size.CellCountInt]{X: 4, Y: 0},
	}))
	assert.True(t, term.isDirty(point.Point{
		Tag:        point.TagScreen,
		Coordinate: coordinate.Point[size.CellCountInt]{X: 0, Y: 1},
	}))
}

func TestTerminal_InputThatForcesScroll(t *testing.T) {
	rows := 5
	cols := 1

	term := NewTerminal(Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	// Basic grid writing
	input := "abcdef"
	for _, c := range input {
		term.Print(uint32(c))
	}

	assert.Equal(t, size.CellCountInt(4), term.Screen.Cursor.Y,
		"cursor Y should be 5")
	assert.Equal(t, size.CellCountInt(0), term.Screen.Cursor.X,
		"cursor X should be 0")
	{
		str := term.PlainString()
		assert.Equal(t, "b\nc\nd\ne\nf", str,
			"screen content should match expected")
	}
}

// Takes a look at this
// func TestTerminal_InputUniqueStylePerCell(t *testing.T) {
// 	cols := 30
// 	rows := 30
// 	term := NewTerminal(Options{
// 		Cols:   cols,
// 		Rows:   rows,
// 		Modes:  core.ModePacked,
// 		Logger: logger.DefaultLogger,
// 	})
//
// 	for y := range term.rows {
// 		for x := range term.cols {
// 			term.SetCursorPosition(uint16(y), uint16(x))
// 			term.SetAttribute(sgr.Attribute{
// 				Type: sgr.AttributeTypeDirectColorBg,
// 				DirectColorBg: color.RGB{
// 					R: uint8(x),
// 					G: uint8(y),
// 					B: 0,
// 				},
// 			})
// 			term.Print('x')
// 		}
// 	}
// }

func TestTerminal_ZeroWidthCharacterAtStart(t *testing.T) {
	cols := 30
	rows := 30
	term := NewTerminal(Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	// Write a zero-width character at the start, we will ignore this character
	// right now.
	term.Print(uint32('\u200b')) // Zero-width space

	assert.Equal(t, size.CellCountInt(0), term.Screen.Cursor.X,
		"cursor X should be 0")
	assert.Equal(t, size.CellCountInt(0), term.Screen.Cursor.Y,
		"cursor Y should be 0")

	// Should not be dirty since we changed nothing.
	assert.False(t, term.isDirty(point.Point{
		Tag:        point.TagScreen,
		Coordinate: coordinate.Point[size.CellCountInt]{X: 0, Y: 0},
	}))
}

func wideTestCell(t *Terminal, x, y size.CellCountInt) *pagepkg.Cell {
	return t.Screen.Pages.GetCell(point.Point{
		Tag:        point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{X: x, Y: y},
	}).Cell
}

func TestTerminal_WideCharSpacerTail(t *testing.T) {
	term := NewTerminal(Options{
		Cols:   10,
		Rows:   5,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	term.Print(0x6F22) // 漢

	head := wideTestCell(term, 0, 0)
	assert.Equal(t, pagepkg.WideWide, head.Wide)
	assert.Equal(t, uint32(0x6F22), head.ContentCP)

	tail := wideTestCell(term, 1, 0)
	assert.Equal(t, pagepkg.WideSpacerTail, tail.Wide)
	assert.Equal(t, size.CellCountInt(2), term.Screen.Cursor.X)
}

func TestTerminal_WideCharAtLastColumnWraps(t *testing.T) {
	term := NewTerminal(Options{
		Cols:   5,
		Rows:   5,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	for _, c := range "abcd" {
		term.Print(uint32(c))
	}
	term.Print(0x6F22)

	// Column 4 cannot hold both halves: it becomes a spacer head and
	// the wide char lands at the start of the next row.
	assert.Equal(t, pagepkg.WideSpacerHead, wideTestCell(term, 4, 0).Wide)
	assert.Equal(t, pagepkg.WideWide, wideTestCell(term, 0, 1).Wide)
	assert.Equal(t, pagepkg.WideSpacerTail, wideTestCell(term, 1, 1).Wide)
	assert.Equal(t, size.CellCountInt(2), term.Screen.Cursor.X)
	assert.Equal(t, size.CellCountInt(1), term.Screen.Cursor.Y)
}

func TestTerminal_NarrowOverWideClearsSpacerTail(t *testing.T) {
	term := NewTerminal(Options{
		Cols:   10,
		Rows:   5,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	term.Print(0x6F22)
	term.SetCursorPosition(1, 1)
	term.Print('x')

	// Overwriting the wide half releases its orphaned tail.
	assert.Equal(t, uint32('x'), wideTestCell(term, 0, 0).ContentCP)
	assert.Equal(t, pagepkg.WideNarrow, wideTestCell(term, 0, 0).Wide)
	assert.Equal(t, pagepkg.WideNarrow, wideTestCell(term, 1, 0).Wide)
	assert.False(t, wideTestCell(term, 1, 0).HasText())
}

func TestTerminal_PrintSingleVeryLongLine(t *testing.T) {
	cols := 5
	rows := 5
	term := NewTerminal(Options{
		Cols:   cols,
		Rows:   rows,
		Modes:  core.ModePacked,
		Logger: logger.DefaultLogger,
	})

	// We assert the terminal will not crash here.
	for range 10000 {
		term.Print('x')
	}
}
