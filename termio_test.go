package termio

import (
	"testing"

	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/set"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/style"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIO(cols, rows int) *TerminalIO {
	return NewTerminalIO(Options{
		Cols: cols,
		Rows: rows,
	})
}

// cellAt returns the active-screen cell and its resolved style.
func cellAt(t *testing.T, tio *TerminalIO, x, y size.CellCountInt) (uint32, style.Style) {
	t.Helper()
	cell := tio.Terminal().Screen.Pages.GetCell(point.Point{
		Tag:        point.TagActive,
		Coordinate: coordinate.Point[size.CellCountInt]{X: x, Y: y},
	})
	require.NotNil(t, cell, "cell (%d,%d) should exist", x, y)

	var st style.Style
	if cell.Cell.StyleID != 0 {
		got := cell.Node.Data.Styles.Get(set.ID(cell.Cell.StyleID))
		require.NotNil(t, got, "style %d should be in the page set", cell.Cell.StyleID)
		st = got.(style.Style)
	}
	return cell.Cell.ContentCP, st
}

func TestTerminalIO_PlainTextWithNewline(t *testing.T) {
	tio := newTestIO(80, 24)
	require.NoError(t, tio.ProcessOutput([]byte("hello\r\nworld")))

	assert.Equal(t, "hello\nworld", tio.DumpString())
	assert.Equal(t, size.CellCountInt(5), tio.Terminal().Screen.Cursor.X)
	assert.Equal(t, size.CellCountInt(1), tio.Terminal().Screen.Cursor.Y)
}

func TestTerminalIO_BackspaceOverwrite(t *testing.T) {
	tio := newTestIO(80, 24)
	require.NoError(t, tio.ProcessOutput([]byte("hello\x08y")))

	assert.Equal(t, "helly", tio.DumpString())
	assert.Equal(t, size.CellCountInt(5), tio.Terminal().Screen.Cursor.X)
	assert.Equal(t, size.CellCountInt(0), tio.Terminal().Screen.Cursor.Y)
}

func TestTerminalIO_ClearMoveAndStyledPrint(t *testing.T) {
	tio := newTestIO(80, 24)
	require.NoError(t, tio.ProcessOutput([]byte("\x1b[2J\x1b[3;5H\x1b[31;1mX")))

	cp, st := cellAt(t, tio, 4, 2)
	assert.Equal(t, uint32('X'), cp)
	assert.True(t, st.Bold)
	assert.Equal(t, style.ColorTypePalette, st.ForegroundColor.Type)
	assert.Equal(t, uint8(1), st.ForegroundColor.Palette)

	assert.Equal(t, size.CellCountInt(5), tio.Terminal().Screen.Cursor.X)
	assert.Equal(t, size.CellCountInt(2), tio.Terminal().Screen.Cursor.Y)
}

func TestTerminalIO_WrapAtRightEdge(t *testing.T) {
	tio := newTestIO(5, 24)
	require.NoError(t, tio.ProcessOutput([]byte("abcdef")))

	assert.Equal(t, "abcde\nf", tio.DumpString())

	// Row 0 wrapped, row 1 is its continuation.
	pg := tio.Terminal().Screen.Pages.GetTopLeft(point.TagActive)
	require.NotNil(t, pg)
	row0 := pg.Node.Data.GetRow(pg.Y)
	assert.True(t, row0.Wrap)
	row1 := pg.Node.Data.GetRow(pg.Y + 1)
	assert.True(t, row1.WrapContinuation)

	cp, _ := cellAt(t, tio, 0, 1)
	assert.Equal(t, uint32('f'), cp)
	assert.Equal(t, size.CellCountInt(1), tio.Terminal().Screen.Cursor.X)
	assert.Equal(t, size.CellCountInt(1), tio.Terminal().Screen.Cursor.Y)
}

func TestTerminalIO_AltScreenRoundTrip(t *testing.T) {
	tio := newTestIO(80, 24)
	require.NoError(t, tio.ProcessOutput([]byte("A\x1b[?1049h\x1b[HB")))

	// On the alternate screen the primary content is hidden.
	assert.True(t, tio.Terminal().Modes.Get(core.ModeAltScreenSaveClear))
	assert.Equal(t, "B", tio.DumpString())

	require.NoError(t, tio.ProcessOutput([]byte("\x1b[?1049l")))

	// Back on primary: A survives, B stayed on the alternate screen,
	// and the cursor position from before the switch is restored.
	assert.False(t, tio.Terminal().Modes.Get(core.ModeAltScreenSaveClear))
	assert.Equal(t, "A", tio.DumpString())
	assert.Equal(t, size.CellCountInt(1), tio.Terminal().Screen.Cursor.X)
	assert.Equal(t, size.CellCountInt(0), tio.Terminal().Screen.Cursor.Y)
}

func TestTerminalIO_CancelAbortsSequence(t *testing.T) {
	tio := newTestIO(80, 24)

	// CAN aborts the half-written CSI. The following SGR must still
	// apply and X prints red rather than being swallowed.
	require.NoError(t, tio.ProcessOutput([]byte("\x1b[12;\x18\x1b[31mX")))

	cp, st := cellAt(t, tio, 0, 0)
	assert.Equal(t, uint32('X'), cp)
	assert.Equal(t, style.ColorTypePalette, st.ForegroundColor.Type)
	assert.Equal(t, uint8(1), st.ForegroundColor.Palette)
}

// Feeding the stream byte-at-a-time and slice-at-once must land on the
// same grid, even when escape sequences and UTF-8 runes straddle the
// boundary between calls.
func TestTerminalIO_ByteAndSliceEquivalence(t *testing.T) {
	input := []byte("héllo\r\n\x1b[3;5H\x1b[1;4;38;5;99mwörld\x1b[0m" +
		"\x1b]0;a title\x07\x1b[2Aqu\xe4\xb8\xadend")

	whole := newTestIO(20, 10)
	require.NoError(t, whole.ProcessOutput(input))

	byByte := newTestIO(20, 10)
	for _, c := range input {
		require.NoError(t, byByte.Process(c))
	}

	assert.Equal(t, whole.DumpString(), byByte.DumpString())
	assert.Equal(t, whole.Terminal().Screen.Cursor.X, byByte.Terminal().Screen.Cursor.X)
	assert.Equal(t, whole.Terminal().Screen.Cursor.Y, byByte.Terminal().Screen.Cursor.Y)
	assert.Equal(t, whole.Handler().Title(), byByte.Handler().Title())
}

// Split the same input at every possible position and process the two
// halves. Chunk boundaries must never change the result.
func TestTerminalIO_SplitChunkEquivalence(t *testing.T) {
	input := []byte("a\x1b[31mb\x1b[0;44mc\xf0\x9f\x98\x80d\x1b[He")

	whole := newTestIO(20, 10)
	require.NoError(t, whole.ProcessOutput(input))
	want := whole.DumpString()

	for cut := 1; cut < len(input); cut++ {
		split := newTestIO(20, 10)
		require.NoError(t, split.ProcessOutput(input[:cut]))
		require.NoError(t, split.ProcessOutput(input[cut:]))
		assert.Equal(t, want, split.DumpString(), "split at %d", cut)
	}
}

func TestTerminalIO_WriterInterface(t *testing.T) {
	tio := newTestIO(80, 24)

	n, err := tio.Write([]byte("stream"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "stream", tio.DumpString())
	require.NoError(t, tio.Close())
}

func TestTerminalIO_ResizeKeepsContent(t *testing.T) {
	tio := newTestIO(80, 24)
	require.NoError(t, tio.ProcessOutput([]byte("keep me")))

	tio.Resize(40, 12)
	assert.Equal(t, size.CellCountInt(40), tio.Terminal().Cols())
	assert.Equal(t, size.CellCountInt(12), tio.Terminal().Rows())
	assert.Equal(t, "keep me", tio.DumpString())
}
