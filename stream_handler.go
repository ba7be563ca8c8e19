package termio

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal"
	"github.com/hnimtadd/termcore/terminal/charset"
	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/handler"
	"github.com/hnimtadd/termcore/terminal/images"
	pagepkg "github.com/hnimtadd/termcore/terminal/page"
	"github.com/hnimtadd/termcore/terminal/sequences/csi"
	"github.com/hnimtadd/termcore/terminal/sequences/dcs"
	"github.com/hnimtadd/termcore/terminal/sequences/osc"
	"github.com/hnimtadd/termcore/terminal/sgr"
	"github.com/hnimtadd/termcore/terminal/size"
)

// Reported by XTVERSION and the XTGETTCAP TN capability.
const (
	terminalName    = "termcore"
	terminalVersion = "0.1.0"
)

// Surface receives the out-of-band events an embedder renders outside
// the grid. Implementations must not block: calls land on the IO
// thread between escape sequences.
type Surface interface {
	// SetTitle reports a window title change (OSC 0/2, title stack pop).
	SetTitle(title string)
	// SetPwd reports a working directory change (OSC 7).
	SetPwd(pwd string)
	// Bell rings (BEL outside of a control sequence).
	Bell()
	// DesktopNotification surfaces an OSC 9/777 notification.
	DesktopNotification(title, body string)
	// SetClipboard stores decoded clipboard data. The clipboard byte
	// selects the target: 'c' system, 'p' primary, 's' selection.
	SetClipboard(clipboard uint8, data string)
	// GetClipboard returns clipboard contents for an OSC 52 query.
	// ok false means the surface does not serve reads.
	GetClipboard(clipboard uint8) (data string, ok bool)
}

// This is used as the handler for the terminal.Stream type. This is stateful
// and is expected to live for the entire lifetime of the terminal. It is not
// valid to stop a stream handler, create a new one, and use that unless all
// of the member fields are copied.
type StreamHandler struct {
	terminal *terminal.Terminal

	// respond delivers reply bytes for host queries (DA, DSR, DECRQSS,
	// XTVERSION, OSC color and clipboard queries). Wired to the IO
	// loop's write queue; nil drops replies, which only makes sense in
	// tests that assert on grid state alone.
	respond func([]byte) error

	// surface receives out-of-band events, optional.
	surface Surface

	// ClipboardWriteAllowed gates OSC 52 writes. Off by default:
	// untrusted programs must not place data on the clipboard.
	ClipboardWriteAllowed bool

	// The default forground and background color are those set by the user's
	// config file.
	defaultForegroundColor color.RGB
	defaultBackgroundColor color.RGB
	defaultCursorColor     color.RGB

	// The foreground, background and cursor color as set by an OSC 10,
	// OSC 11 or OSC 12 sequence. If unset the respective color is the
	// default value.
	foregroundColor *color.RGB
	backgroundColor *color.RGB
	cursorColor     *color.RGB

	// The 256-color palette, mutated by OSC 4/104. The renderer reads
	// it when mapping palette styles to pixels.
	palette color.Palette

	// Window title plus the XTWINOPS 22/23 stack.
	title      string
	titleStack []string

	// -----------------------------------------------------------------------
	// Internal state

	// The DCS handler maintains DCS state. DCS is like CSI or OSC, but
	// requires more stateful parsing. This is used by functionality such
	// as XTGETTCAP.
	dcs *dcs.Handler

	// The APC parser accumulates kitty graphics commands.
	apc *images.Parser

	logger logger.Logger
}

// StreamHandlerOptions configures a stream handler. Only Terminal is
// required.
type StreamHandlerOptions struct {
	Terminal *terminal.Terminal

	// Respond receives reply bytes for host queries.
	Respond func([]byte) error

	// Surface receives out-of-band events.
	Surface Surface

	// Configured default colors, reported by OSC 10/11/12 queries
	// until the application overrides them.
	DefaultForeground *color.RGB
	DefaultBackground *color.RGB
	DefaultCursor     *color.RGB

	Logger logger.Logger
}

func NewStreamHandler(opts StreamHandlerOptions) *StreamHandler {
	log := opts.Logger
	if log == nil {
		log = logger.DefaultLogger
	}

	fg := color.DefaultPalette[7]
	bg := color.DefaultPalette[0]
	if opts.DefaultForeground != nil {
		fg = *opts.DefaultForeground
	}
	if opts.DefaultBackground != nil {
		bg = *opts.DefaultBackground
	}
	cursor := fg
	if opts.DefaultCursor != nil {
		cursor = *opts.DefaultCursor
	}

	return &StreamHandler{
		terminal:               opts.Terminal,
		respond:                opts.Respond,
		surface:                opts.Surface,
		defaultForegroundColor: fg,
		defaultBackgroundColor: bg,
		defaultCursorColor:     cursor,
		palette:                color.Palette(color.DefaultPalette),
		dcs:                    dcs.NewHandler(),
		apc:                    images.NewParser(),
		logger:                 log,
	}
}

// SetRespond wires the reply channel after construction. The IO loop
// does this once its write queue exists.
func (s *StreamHandler) SetRespond(respond func([]byte) error) {
	s.respond = respond
}

// send formats one reply and pushes it at the responder.
func (s *StreamHandler) send(format string, args ...any) {
	if s.respond == nil {
		return
	}
	reply := fmt.Appendf(nil, format, args...)
	if err := s.respond(reply); err != nil {
		s.logger.Warn("failed to write reply", "err", err)
	}
}

// Palette returns the live 256-color palette.
func (s *StreamHandler) Palette() *color.Palette {
	return &s.palette
}

// ForegroundColor returns the effective default foreground.
func (s *StreamHandler) ForegroundColor() color.RGB {
	if s.foregroundColor != nil {
		return *s.foregroundColor
	}
	return s.defaultForegroundColor
}

// BackgroundColor returns the effective default background.
func (s *StreamHandler) BackgroundColor() color.RGB {
	if s.backgroundColor != nil {
		return *s.backgroundColor
	}
	return s.defaultBackgroundColor
}

// CursorColor returns the effective cursor color.
func (s *StreamHandler) CursorColor() color.RGB {
	if s.cursorColor != nil {
		return *s.cursorColor
	}
	return s.defaultCursorColor
}

// Title returns the current window title.
func (s *StreamHandler) Title() string {
	return s.title
}

// -----------------------------------------------------------------------
// Printing and format effectors

func (s *StreamHandler) Print(c uint32) {
	s.terminal.Print(c)
}

func (s *StreamHandler) PrintRepeat(repeated uint16) {
	s.terminal.PrintRepeat(repeated)
}

func (s *StreamHandler) Backspace() {
	s.terminal.Backspace()
}

func (s *StreamHandler) CarriageReturn() {
	s.terminal.CarriageReturn()
}

func (s *StreamHandler) LineFeed() {
	s.terminal.LineFeed()
}

func (s *StreamHandler) NextLine() {
	s.terminal.Index()
	s.terminal.CarriageReturn()
}

func (s *StreamHandler) Index() {
	s.terminal.Index()
}

func (s *StreamHandler) ReverseIndex() {
	s.terminal.ReverseIndex()
}

func (s *StreamHandler) TabSet() {
	s.terminal.TabSet()
}

func (s *StreamHandler) TabClear(mode csi.TabClearMode) {
	s.terminal.TabClear(mode)
}

// FullReset reverts the handler-owned state alongside the terminal:
// colors, palette, title stack and any half-parsed DCS/APC payloads.
func (s *StreamHandler) FullReset() {
	s.terminal.FullReset()
	s.foregroundColor = nil
	s.backgroundColor = nil
	s.cursorColor = nil
	s.palette = color.Palette(color.DefaultPalette)
	s.titleStack = s.titleStack[:0]
	s.dcs = dcs.NewHandler()
	s.apc.Start()
}

func (s *StreamHandler) SoftReset() {
	s.terminal.SoftReset()
}

// -----------------------------------------------------------------------
// Cursor movement and editing

func (s *StreamHandler) SetCursorUp(offset uint16, carriage bool) {
	s.terminal.SetCursorUp(offset, carriage)
}

func (s *StreamHandler) SetCursorDown(offset uint16, carriage bool) {
	s.terminal.SetCursorDown(offset, carriage)
}

func (s *StreamHandler) SetCursorLeft(offset uint16) {
	s.terminal.SetCursorLeft(offset)
}

func (s *StreamHandler) SetCursorRight(offset uint16) {
	s.terminal.SetCursorRight(offset)
}

func (s *StreamHandler) SetCursorPosition(row uint16, col uint16) {
	s.terminal.SetCursorPosition(row, col)
}

// cursorReqPosition converts the absolute cursor position into the
// 1-indexed origin-relative coordinates SetCursorPosition expects, so
// single-axis moves can pass the other axis through unchanged.
func (s *StreamHandler) cursorReqPosition() (row, col uint16) {
	cursor := s.terminal.Screen.Cursor
	row, col = uint16(cursor.Y)+1, uint16(cursor.X)+1
	if s.terminal.Modes.Get(core.ModeOrigin) {
		top, _ := s.terminal.TopBottomMargins()
		left, _ := s.terminal.LeftRightMargins()
		row, col = 1, 1
		if cursor.Y >= top {
			row = uint16(cursor.Y-top) + 1
		}
		if cursor.X >= left {
			col = uint16(cursor.X-left) + 1
		}
	}
	return row, col
}

func (s *StreamHandler) SetCursorCol(col uint16) {
	row, _ := s.cursorReqPosition()
	s.terminal.SetCursorPosition(row, col)
}

func (s *StreamHandler) SetCursorRow(row uint16) {
	_, col := s.cursorReqPosition()
	s.terminal.SetCursorPosition(row, col)
}

func (s *StreamHandler) SetCursorTabRight(repeated uint16) {
	s.terminal.SetCursorTabRight(repeated)
}

func (s *StreamHandler) SetCursorTabLeft(repeated uint16) {
	s.terminal.SetCursorTabLeft(repeated)
}

func (s *StreamHandler) DeleteChars(repeated uint16) {
	s.terminal.DeleteChars(repeated)
}

func (s *StreamHandler) DeleteLines(repeated uint16) {
	s.terminal.DeleteLines(repeated)
}

func (s *StreamHandler) InsertLines(repeated uint16) {
	s.terminal.InsertLines(repeated)
}

func (s *StreamHandler) InsertBlanks(repeated uint16) {
	s.terminal.InsertBlanks(repeated)
}

func (s *StreamHandler) EraseInLine(mode csi.ELMode) {
	s.terminal.EraseInLine(mode)
}

func (s *StreamHandler) EraseInDisplay(erase csi.EDMode) {
	s.terminal.EraseInDisplay(erase)
}

func (s *StreamHandler) EraseChars(count uint16) {
	s.terminal.EraseChars(count)
}

// -----------------------------------------------------------------------
// Screen state

func (s *StreamHandler) ScrollUp(count uint16) {
	s.terminal.ScrollUp(count)
}

func (s *StreamHandler) ScrollDown(count uint16) {
	s.terminal.ScrollDown(count)
}

func (s *StreamHandler) SetTopBottomMargin(top, bottom uint16) {
	s.terminal.SetTopBottomMargin(top, bottom)
}

func (s *StreamHandler) SetLeftRightMargin(left, right uint16) {
	s.terminal.SetLeftRightMargin(left, right)
}

func (s *StreamHandler) ScreenAlignmentTest() {
	s.terminal.ScreenAlignmentTest()
}

func (s *StreamHandler) SaveCursor() {
	s.terminal.SaveCursor()
}

func (s *StreamHandler) RestoreCursor() {
	s.terminal.RestoreCursor()
}

func (s *StreamHandler) SetProtectedMode(protected bool) {
	s.terminal.SetProtectedMode(protected)
}

func (s *StreamHandler) EraseInDisplaySelective(mode csi.EDMode) {
	s.terminal.EraseInDisplaySelective(mode)
}

func (s *StreamHandler) EraseInLineSelective(mode csi.ELMode) {
	s.terminal.EraseInLineSelective(mode)
}

func (s *StreamHandler) SetCursorStyle(style csi.CursorStyle) {
	s.terminal.SetCursorStyle(style)
}

// -----------------------------------------------------------------------
// Graphic rendition

func (s *StreamHandler) SetGraphicsRendition(attr *sgr.Attribute) {
	switch attr.Type {
	case sgr.AttributeTypeUnknown:
		s.logger.Warn("unknown SGR attribute", "attribute", attr)
	default:
		s.terminal.SetGraphicsRendition(attr)
	}
}

// -----------------------------------------------------------------------
// Modes

func (s *StreamHandler) SetMode(mode core.Mode, enabled bool) {
	s.terminal.SetMode(mode, enabled)
}

func (s *StreamHandler) SaveMode(mode core.Mode) {
	s.terminal.SaveMode(mode)
}

func (s *StreamHandler) RestoreMode(mode core.Mode) {
	s.terminal.RestoreMode(mode)
}

func (s *StreamHandler) SetKeypadMode(application bool) {
	s.terminal.SetMode(core.ModeKeypadKeys, application)
}

// -----------------------------------------------------------------------
// Charsets

func (s *StreamHandler) DesignateCharset(slot charset.Slot, set charset.Charset) {
	s.terminal.DesignateCharset(slot, set)
}

func (s *StreamHandler) InvokeCharset(active charset.ActiveSlot, slot charset.Slot, single bool) {
	s.terminal.InvokeCharset(active, slot, single)
}

// -----------------------------------------------------------------------
// Host queries

func (s *StreamHandler) DeviceAttributes(req csi.DeviceAttributeReq) {
	switch req {
	case csi.DeviceAttributePrimary:
		// VT220 with ANSI color.
		s.send("\x1b[?62;22c")
	case csi.DeviceAttributeSecondary:
		s.send("\x1b[>1;10;0c")
	case csi.DeviceAttributeTertiary:
		s.send("\x1bP!|00000000\x1b\\")
	default:
		s.logger.Warn("unimplemented device attributes request", "req", req)
	}
}

func (s *StreamHandler) DeviceStatusReport(req csi.DeviceStatusReq) {
	switch req {
	case csi.DeviceStatusOperating:
		s.send("\x1b[0n")

	case csi.DeviceStatusCursorPosition, csi.DeviceStatusCursorPositionDec:
		// The reported row is relative to the scroll region top when
		// origin mode is set.
		cursor := s.terminal.Screen.Cursor
		x, y := cursor.X, cursor.Y
		if s.terminal.Modes.Get(core.ModeOrigin) {
			if top, _ := s.terminal.TopBottomMargins(); y >= top {
				y -= top
			} else {
				y = 0
			}
		}
		if req == csi.DeviceStatusCursorPositionDec {
			s.send("\x1b[?%d;%dR", y+1, x+1)
		} else {
			s.send("\x1b[%d;%dR", y+1, x+1)
		}
	}
}

// RequestMode answers DECRQM: 0 unrecognized, 1 set, 2 reset.
func (s *StreamHandler) RequestMode(modeInt int, ansiMode bool) {
	state := 0
	if mode := core.ModeFromInt(modeInt, ansiMode); mode != nil {
		if s.terminal.Modes.Get(*mode) {
			state = 1
		} else {
			state = 2
		}
	}
	prefix := "?"
	if ansiMode {
		prefix = ""
	}
	s.send("\x1b[%s%d;%d$y", prefix, modeInt, state)
}

func (s *StreamHandler) ReportXTVersion() {
	s.send("\x1bP>|%s %s\x1b\\", terminalName, terminalVersion)
}

// WindowManipulation implements the XTWINOPS report and title stack
// operations. Operations that would resize or move a window are the
// embedder's call, not the application's, and are ignored.
func (s *StreamHandler) WindowManipulation(op uint16, params []uint16) {
	switch op {
	case 14:
		// Text area size in pixels.
		width, height := s.terminal.PixelSize()
		s.send("\x1b[4;%d;%dt", height, width)

	case 16:
		// Cell size in pixels.
		cell := s.cellSize()
		s.send("\x1b[6;%d;%dt", cell.Height, cell.Width)

	case 18:
		// Text area size in cells.
		s.send("\x1b[8;%d;%dt", s.terminal.Rows(), s.terminal.Cols())

	case 22:
		// Push title. The title/icon distinction carried by the
		// parameter collapsed long ago; any variant pushes.
		if len(s.titleStack) >= 10 {
			s.titleStack = s.titleStack[1:]
		}
		s.titleStack = append(s.titleStack, s.title)

	case 23:
		if n := len(s.titleStack); n > 0 {
			title := s.titleStack[n-1]
			s.titleStack = s.titleStack[:n-1]
			s.ChangeWindowTitle(title)
		}

	default:
		s.logger.Debug("ignoring window manipulation", "op", op, "params", params)
	}
}

// cellSize derives the pixel geometry of one cell from the last
// reported window size. Zero when the embedder never reported pixels.
func (s *StreamHandler) cellSize() images.CellSize {
	width, height := s.terminal.PixelSize()
	var cell images.CellSize
	if cols := int(s.terminal.Cols()); cols > 0 && width > 0 {
		cell.Width = width / cols
	}
	if rows := int(s.terminal.Rows()); rows > 0 && height > 0 {
		cell.Height = height / rows
	}
	return cell
}

// -----------------------------------------------------------------------
// OSC: title, pwd, hyperlinks, notifications, bell

func (s *StreamHandler) ChangeWindowTitle(title string) {
	s.title = title
	if s.surface != nil {
		s.surface.SetTitle(title)
	}
}

func (s *StreamHandler) ChangeWindowIcon(name string) {
	// Icon names have no modern rendering; keep the event observable.
	s.logger.Debug("ignoring window icon change", "name", name)
}

func (s *StreamHandler) ReportPwd(url string) {
	s.terminal.SetPwd(url)
	if s.surface != nil {
		s.surface.SetPwd(url)
	}
}

func (s *StreamHandler) StartHyperlink(uri string, id string) {
	s.terminal.StartHyperlink(uri, id)
}

func (s *StreamHandler) EndHyperlink() {
	s.terminal.EndHyperlink()
}

func (s *StreamHandler) Bell() {
	if s.surface != nil {
		s.surface.Bell()
	}
}

func (s *StreamHandler) DesktopNotification(title, body string) {
	if s.surface == nil {
		s.logger.Debug("dropping desktop notification", "title", title)
		return
	}
	s.surface.DesktopNotification(title, body)
}

// -----------------------------------------------------------------------
// OSC: clipboard

// SetClipboard handles an OSC 52 write. The payload stays base64 until
// the policy gate passes; rejected writes never decode.
func (s *StreamHandler) SetClipboard(clipboard uint8, data string) {
	if !s.ClipboardWriteAllowed {
		s.logger.Debug("clipboard write rejected by policy")
		return
	}
	if s.surface == nil {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		s.logger.Warn("invalid clipboard payload", "err", err)
		return
	}
	s.surface.SetClipboard(clipboard, string(decoded))
}

func (s *StreamHandler) QueryClipboard(clipboard uint8) {
	if s.surface == nil {
		return
	}
	data, ok := s.surface.GetClipboard(clipboard)
	if !ok {
		return
	}
	s.send("\x1b]52;%c;%s\x1b\\", clipboard, base64.StdEncoding.EncodeToString([]byte(data)))
}

// -----------------------------------------------------------------------
// OSC: colors

func (s *StreamHandler) SetPalette(entries []osc.PaletteEntry) {
	for _, entry := range entries {
		s.palette[entry.Index] = entry.Color
	}
}

func (s *StreamHandler) QueryPalette(indexes []uint8) {
	for _, index := range indexes {
		s.send("\x1b]4;%d;%s\x1b\\", index, s.palette[index].String())
	}
}

func (s *StreamHandler) ResetPalette(indexes []uint8) {
	if len(indexes) == 0 {
		s.palette = color.Palette(color.DefaultPalette)
		return
	}
	for _, index := range indexes {
		s.palette[index] = color.DefaultPalette[index]
	}
}

func (s *StreamHandler) SetDynamicColor(target osc.ColorTarget, value color.RGB) {
	switch target {
	case osc.ColorTargetForeground:
		s.foregroundColor = &value
	case osc.ColorTargetBackground:
		s.backgroundColor = &value
	case osc.ColorTargetCursor:
		s.cursorColor = &value
	}
}

func (s *StreamHandler) QueryDynamicColor(target osc.ColorTarget) {
	var value color.RGB
	var num int
	switch target {
	case osc.ColorTargetForeground:
		value, num = s.ForegroundColor(), 10
	case osc.ColorTargetBackground:
		value, num = s.BackgroundColor(), 11
	case osc.ColorTargetCursor:
		value, num = s.CursorColor(), 12
	default:
		return
	}
	s.send("\x1b]%d;%s\x1b\\", num, value.String())
}

func (s *StreamHandler) ResetDynamicColor(target osc.ColorTarget) {
	switch target {
	case osc.ColorTargetForeground:
		s.foregroundColor = nil
	case osc.ColorTargetBackground:
		s.backgroundColor = nil
	case osc.ColorTargetCursor:
		s.cursorColor = nil
	}
}

// -----------------------------------------------------------------------
// OSC: semantic prompts

func (s *StreamHandler) PromptStart(aid string, redraw bool) {
	_ = aid
	_ = redraw
	s.terminal.MarkSemanticPrompt(pagepkg.SemanticPromptTypePrompt)
}

func (s *StreamHandler) PromptContinuation() {
	s.terminal.MarkSemanticPrompt(pagepkg.SemanticPromptTypeContinuation)
}

func (s *StreamHandler) PromptEnd() {
	s.terminal.MarkSemanticPrompt(pagepkg.SemanticPromptTypeInput)
}

func (s *StreamHandler) EndOfInput() {
	s.terminal.MarkSemanticPrompt(pagepkg.SemanticPromptTypeOutput)
}

func (s *StreamHandler) EndOfCommand(exitCode *int) {
	// The exit code only matters to embedders that badge finished
	// commands; nothing in the grid changes.
	if exitCode != nil {
		s.logger.Debug("command finished", "exit_code", *exitCode)
	}
}

// -----------------------------------------------------------------------
// DCS: XTGETTCAP and DECRQSS

func (s *StreamHandler) DCSHook(cmd *dcs.DCS) {
	s.dcs.Hook(cmd)
}

func (s *StreamHandler) DCSPut(c uint8) {
	s.dcs.Put(c)
}

func (s *StreamHandler) DCSUnhook() {
	cmd := s.dcs.Unhook()
	if cmd == nil {
		return
	}
	switch cmd.Type {
	case dcs.CommandTypeXTGETTCAP:
		for name, ok := cmd.NextCapability(); ok; name, ok = cmd.NextCapability() {
			s.sendCapability(name)
		}
	case dcs.CommandTypeDECRQSS:
		s.sendSettingReport(cmd.Setting)
	}
}

// sendCapability answers one XTGETTCAP name. Names arrive hex encoded
// and the reply echoes them the same way.
func (s *StreamHandler) sendCapability(hexName []byte) {
	decoded, err := hex.DecodeString(string(hexName))
	if err != nil {
		s.send("\x1bP0+r\x1b\\")
		return
	}

	var value string
	boolean := false
	switch string(decoded) {
	case "TN", "name":
		value = "xterm-" + terminalName
	case "Co", "colors":
		value = "256"
	case "RGB":
		// Flag capability: present means direct color works.
		boolean = true
	default:
		s.send("\x1bP0+r\x1b\\")
		return
	}

	if boolean {
		s.send("\x1bP1+r%s\x1b\\", hexName)
		return
	}
	s.send("\x1bP1+r%s=%s\x1b\\", hexName, hex.EncodeToString([]byte(value)))
}

// sendSettingReport answers DECRQSS with a DECRPSS. The leading 1
// flags a recognized request, 0 an unrecognized one.
func (s *StreamHandler) sendSettingReport(setting dcs.DECRQSSSetting) {
	switch setting {
	case dcs.DECRQSSSettingSGR:
		s.send("\x1bP1$r%sm\x1b\\", s.terminal.PrintAttributes())

	case dcs.DECRQSSSettingDECSCUSR:
		style := s.terminal.CursorStyle()
		if style == csi.CursorStyleDefault {
			style = csi.CursorStyleBlinkingBlock
		}
		s.send("\x1bP1$r%d q\x1b\\", style)

	case dcs.DECRQSSSettingDECSTBM:
		top, bottom := s.terminal.TopBottomMargins()
		s.send("\x1bP1$r%d;%dr\x1b\\", top+1, bottom+1)

	case dcs.DECRQSSSettingDECSLRM:
		// Only meaningful while mode 69 is enabled.
		if !s.terminal.Modes.Get(core.ModeLeftRightMargins) {
			s.send("\x1bP0$r\x1b\\")
			return
		}
		left, right := s.terminal.LeftRightMargins()
		s.send("\x1bP1$r%d;%ds\x1b\\", left+1, right+1)

	default:
		s.send("\x1bP0$r\x1b\\")
	}
}

// -----------------------------------------------------------------------
// APC: kitty graphics

func (s *StreamHandler) APCStart() {
	s.apc.Start()
}

func (s *StreamHandler) APCPut(c uint8) {
	s.apc.Feed(c)
}

func (s *StreamHandler) APCEnd() {
	cmd := s.apc.End()
	if cmd == nil {
		return
	}

	scr := s.terminal.Screen
	cursor := coordinate.Point[size.CellCountInt]{X: scr.Cursor.X, Y: scr.Cursor.Y}
	resp := scr.Images.Execute(scr.Pages, cursor, s.cellSize(), cmd)
	if resp == nil {
		return
	}
	if reply := resp.Encode(); len(reply) > 0 {
		s.send("%s", reply)
	}
}

// The full capability surface the stream dispatches to.
var (
	_ handler.FormatEffectorHandler = (*StreamHandler)(nil)
	_ handler.SGRHandler            = (*StreamHandler)(nil)
	_ handler.VT100Handler          = (*StreamHandler)(nil)
	_ handler.EditorHandler         = (*StreamHandler)(nil)
	_ handler.PrintHandler          = (*StreamHandler)(nil)
	_ handler.PrintRepeatHandler    = (*StreamHandler)(nil)
	_ handler.ScreenHandler         = (*StreamHandler)(nil)
	_ handler.CharsetHandler        = (*StreamHandler)(nil)
	_ handler.KeypadHandler         = (*StreamHandler)(nil)
	_ handler.DeviceHandler         = (*StreamHandler)(nil)
	_ handler.ResetHandler          = (*StreamHandler)(nil)
	_ handler.CursorStyleHandler    = (*StreamHandler)(nil)
	_ handler.ProtectionHandler     = (*StreamHandler)(nil)
	_ handler.TabHandler            = (*StreamHandler)(nil)
	_ handler.BellHandler           = (*StreamHandler)(nil)
	_ handler.TitleHandler          = (*StreamHandler)(nil)
	_ handler.PwdHandler            = (*StreamHandler)(nil)
	_ handler.HyperlinkHandler      = (*StreamHandler)(nil)
	_ handler.ClipboardHandler      = (*StreamHandler)(nil)
	_ handler.PaletteHandler        = (*StreamHandler)(nil)
	_ handler.DynamicColorHandler   = (*StreamHandler)(nil)
	_ handler.NotificationHandler   = (*StreamHandler)(nil)
	_ handler.SemanticPromptHandler = (*StreamHandler)(nil)
	_ handler.APCHandler            = (*StreamHandler)(nil)
	_ handler.DCSHandler            = (*StreamHandler)(nil)
)
