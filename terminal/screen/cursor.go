package screen

import (
	"github.com/hnimtadd/termcore/terminal/charset"
	"github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/size"
	"github.com/hnimtadd/termcore/terminal/style"
	styleid "github.com/hnimtadd/termcore/terminal/style/id"
)

// The cursor position and style.
type Cursor struct {
	X           size.CellCountInt
	Y           size.CellCountInt
	PendingWrap bool          // Whether the cursor is pending to wrap
	PageCell    *page.Cell    // Cell at the cursor position
	PageRow     *page.Row     // Row of the page
	PagePin     *pagelist.Pin // Pin of the page

	// Whether cells written at the cursor are protected from selective
	// erase (DECSCA).
	Protected bool

	// The currently active hyperlink (OSC 8), nil when none is open.
	Hyperlink *Hyperlink

	// The current active style. This is the concerte style value that
	// should be kept up to date. The style ID to use for cell writing
	// is below
	Style style.Style

	// The current active style ID. The style is page-specific so when
	// we change pages, we need to ensurethat update that page with our style
	// when used.
	StyleID styleid.ID
}

// A hyperlink opened with OSC 8. The ID is optional and comes from the
// id= parameter; terminals use it to join cells of the same link.
type Hyperlink struct {
	ID  string
	URI string
}

// Saved cursor state for DECSC/DECRC and mode 1048. This is a snapshot,
// not a pin: the restored position is clamped against the screen size at
// restore time.
type SavedCursor struct {
	X           size.CellCountInt
	Y           size.CellCountInt
	Style       style.Style
	Protected   bool
	PendingWrap bool
	Origin      bool
	Charset     charset.State
}
