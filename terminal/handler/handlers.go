package handler

import (
	"github.com/hnimtadd/termcore/terminal/charset"
	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/sequences/csi"
	"github.com/hnimtadd/termcore/terminal/sequences/dcs"
	"github.com/hnimtadd/termcore/terminal/sequences/osc"
	"github.com/hnimtadd/termcore/terminal/sgr"
)

type (
	FormatEffectorHandler interface {
		// NextLine move cursor to the first position of next line, if the
		// cursor is at the bottom of the screen, a scroll up is performed.
		NextLine()
		// Index moves cursor downward one line without changing the
		// column position. If the active position is at the bottom of the
		// screen, a scroll up is performed.
		Index()
		// ReverseIndex moves cursor upward one line without changing the
		// column position. If the active position is at the top of the screen,
		// a scroll down is performed.
		ReverseIndex()
		// TabSet sets one horizontal stop at the active position.
		TabSet()
		// FullReset resets all attributes to their defaults.
		FullReset()
	}

	SGRHandler interface {
		SetGraphicsRendition(sgr *sgr.Attribute)
	}
	VT100Handler interface {
		// SetMode sets the mode to the given value, if the mode is not
		// settable, it skips.
		SetMode(mode core.Mode, value bool)
		// SaveMode stashes the current value of a mode (XTSAVE).
		SaveMode(mode core.Mode)
		// RestoreMode reverts a mode to its stashed value (XTRESTORE).
		// Without a prior save the mode is left untouched.
		RestoreMode(mode core.Mode)
	}
	// EditorHandler interface includes all cursor movement and content
	// related methods
	EditorHandler interface {
		// DeleteChars deletes char repeated time start at the current cursor
		// position rightward
		DeleteChars(reepeated uint16)
		// DeleteLines deletes line repeated time start at the current cursor
		// position downward
		DeleteLines(repeated uint16)
		// InsertLines inserts line repeated time start at the current cursor
		// position downward
		InsertLines(repeated uint16)
		// InsertBlanks inserts blanks repeated time start at the current
		// cursor position rightward
		InsertBlanks(repeated uint16)
		// EraseInLine erases chars in line with behavior depends on mode
		EraseInLine(mode csi.ELMode)
		// EraseInDisplay erases chars in display with behavior depends on mode
		EraseInDisplay(erase csi.EDMode)
		// LineFeed moves cursor to the first position of next line,
		LineFeed()
		// Backspace moves cursor to the left one character position,
		// unless it is at the left margin, in which case no action occurs.
		Backspace()
		// SetCursorRow moves cursor to rows
		SetCursorRow(row uint16)
		// SetCursorCol moves cursor to cols
		SetCursorCol(col uint16)
		// SetCursorPosition moves cursor to row and col
		SetCursorPosition(row, col uint16)
		// SetCursorUp moves cursor up by offset, carriage controls whether
		// the cursor stays in same col position or movess to col 0
		SetCursorUp(offset uint16, carriage bool)
		// SetCursorDown moves cursor down by offset, carriage controls whether
		// the cursor stays in same col position or movess to col 0
		SetCursorDown(offset uint16, carriage bool)
		// SetCursorLeft moves cursor left by offset, unless it is at
		// the left margin, in which case no actions occurs
		SetCursorLeft(offset uint16)
		// SetCursorRight moves cursor right by offset, unless it is at
		// the right margin, in which case no actions occurs
		SetCursorRight(offset uint16)
		// SetCursorTabRight move cursor to the repeated next tab stop,
		// or to the right margin if no further tab stops are present
		// on the line.
		SetCursorTabRight(repeated uint16)
		// SetCursorTabLeft move cursor to the repeated previous tab stop,
		// or to the left margin if no further tab stops are present
		// on the line.
		SetCursorTabLeft(repeated uint16)
		// CarriageReturn moves cursor to left margin of the current line.
		CarriageReturn()
	}

	// PrintHandler receives decoded codepoints for display.
	PrintHandler interface {
		Print(cp uint32)
	}

	// PrintRepeatHandler repeats the last printed codepoint (REP).
	PrintRepeatHandler interface {
		PrintRepeat(repeated uint16)
	}

	// ScreenHandler covers operations that act on whole-screen state:
	// scrolling, margins, bulk erasure and the saved cursor.
	ScreenHandler interface {
		// EraseChars replaces count cells at the cursor with blanks
		// without shifting the remainder of the line.
		EraseChars(count uint16)
		// ScrollUp scrolls the scroll region up, content moves up and
		// blank lines appear at the bottom.
		ScrollUp(count uint16)
		// ScrollDown scrolls the scroll region down.
		ScrollDown(count uint16)
		// SetTopBottomMargin sets the vertical scroll region. Zero
		// values select the screen edges.
		SetTopBottomMargin(top, bottom uint16)
		// SetLeftRightMargin sets the horizontal scroll region. Zero
		// values select the screen edges.
		SetLeftRightMargin(left, right uint16)
		// ScreenAlignmentTest fills the screen with 'E' (DECALN).
		ScreenAlignmentTest()
		// SaveCursor stores cursor position, style, charsets, origin
		// and pending-wrap state.
		SaveCursor()
		// RestoreCursor restores the previously saved state.
		RestoreCursor()
	}

	// CharsetHandler designates and invokes character sets.
	CharsetHandler interface {
		// DesignateCharset assigns a charset to one of G0-G3.
		DesignateCharset(slot charset.Slot, set charset.Charset)
		// InvokeCharset maps a slot into GL or GR. A single invocation
		// only affects the next printed character.
		InvokeCharset(active charset.ActiveSlot, slot charset.Slot, single bool)
	}

	// KeypadHandler switches the keypad between numeric and
	// application mode (DECKPNM, DECKPAM).
	KeypadHandler interface {
		SetKeypadMode(application bool)
	}

	// DeviceHandler answers host queries. Responses travel through the
	// handler's write-back channel, not through this package.
	DeviceHandler interface {
		DeviceAttributes(req csi.DeviceAttributeReq)
		DeviceStatusReport(req csi.DeviceStatusReq)
		// RequestMode reports whether a mode is set (DECRQM).
		RequestMode(mode int, ansiMode bool)
		// ReportXTVersion reports the terminal name and version.
		ReportXTVersion()
		// WindowManipulation handles the XTWINOPS op codes the
		// terminal supports, size reports and the title stack.
		WindowManipulation(op uint16, params []uint16)
	}

	// ResetHandler performs the DECSTR soft reset. The full reset
	// belongs to FormatEffectorHandler.
	ResetHandler interface {
		SoftReset()
	}

	// CursorStyleHandler applies DECSCUSR.
	CursorStyleHandler interface {
		SetCursorStyle(style csi.CursorStyle)
	}

	// ProtectionHandler covers DECSCA character protection and the
	// selective erase forms that honor it.
	ProtectionHandler interface {
		SetProtectedMode(protected bool)
		EraseInDisplaySelective(mode csi.EDMode)
		EraseInLineSelective(mode csi.ELMode)
	}

	// TabHandler clears tab stops (TBC). Setting one belongs to
	// FormatEffectorHandler.
	TabHandler interface {
		TabClear(mode csi.TabClearMode)
	}

	// BellHandler rings the bell.
	BellHandler interface {
		Bell()
	}

	// TitleHandler receives window title and icon changes.
	TitleHandler interface {
		ChangeWindowTitle(title string)
		ChangeWindowIcon(name string)
	}

	// PwdHandler receives working directory reports from the shell.
	PwdHandler interface {
		ReportPwd(url string)
	}

	// HyperlinkHandler opens and closes OSC 8 hyperlink anchors.
	HyperlinkHandler interface {
		StartHyperlink(uri string, id string)
		EndHyperlink()
	}

	// ClipboardHandler reads and writes selection buffers. Both
	// operations are subject to the handler's access policy.
	ClipboardHandler interface {
		SetClipboard(clipboard uint8, data string)
		QueryClipboard(clipboard uint8)
	}

	// PaletteHandler updates the 256-color palette.
	PaletteHandler interface {
		SetPalette(entries []osc.PaletteEntry)
		QueryPalette(indexes []uint8)
		// ResetPalette restores default entries; an empty index list
		// resets the whole palette.
		ResetPalette(indexes []uint8)
	}

	// DynamicColorHandler updates the default foreground, background
	// and cursor colors.
	DynamicColorHandler interface {
		SetDynamicColor(target osc.ColorTarget, value color.RGB)
		QueryDynamicColor(target osc.ColorTarget)
		ResetDynamicColor(target osc.ColorTarget)
	}

	// NotificationHandler surfaces desktop notifications.
	NotificationHandler interface {
		DesktopNotification(title, body string)
	}

	// SemanticPromptHandler receives shell integration markers.
	SemanticPromptHandler interface {
		PromptStart(aid string, redraw bool)
		PromptContinuation()
		PromptEnd()
		EndOfInput()
		// EndOfCommand reports command completion. exitCode is nil
		// when the shell did not report one.
		EndOfCommand(exitCode *int)
	}

	// APCHandler receives application program command payloads, which
	// carry the kitty graphics protocol.
	APCHandler interface {
		APCStart()
		APCPut(c uint8)
		APCEnd()
	}

	// DCSHandler receives device control strings. DCSHook opens the
	// string with the parsed header, DCSPut delivers payload bytes and
	// DCSUnhook closes it.
	DCSHandler interface {
		DCSHook(cmd *dcs.DCS)
		DCSPut(c uint8)
		DCSUnhook()
	}
)
