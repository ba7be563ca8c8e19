// Package osc implements parsing of Operating System Command sequences.
//
// OSC payloads arrive one byte at a time from the VT parser while it is
// in the osc_string state. The payload is accumulated here and decoded
// in one shot when the terminator (BEL or ST) arrives, since most OSC
// commands cannot be decoded incrementally: the command number and its
// arguments are only delimited by semicolons.
package osc

import (
	"strconv"
	"strings"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/color"
)

// MaxBufferSize bounds the accumulated payload. Sequences that exceed
// it are discarded whole rather than truncated, a truncated OSC 52
// would otherwise paste garbage into the clipboard.
const MaxBufferSize = 4096

// Kind identifies the decoded OSC command.
type Kind int

const (
	KindInvalid Kind = iota

	// Window title and icon (OSC 0, 1, 2).
	KindChangeWindowTitle
	KindChangeWindowIcon

	// Working directory report (OSC 7).
	KindReportPwd

	// Hyperlink anchors (OSC 8).
	KindHyperlinkStart
	KindHyperlinkEnd

	// Color palette (OSC 4, 104).
	KindSetPalette
	KindResetPalette

	// Dynamic colors (OSC 10, 11, 12, 110, 111, 112).
	KindSetColor
	KindQueryColor
	KindResetColor

	// Clipboard access (OSC 52).
	KindSetClipboard
	KindQueryClipboard

	// Desktop notifications (OSC 9, 777).
	KindDesktopNotification

	// Semantic prompt markers (OSC 133).
	KindPromptStart
	KindPromptEnd
	KindEndOfInput
	KindEndOfCommand
)

func (k Kind) String() string {
	switch k {
	case KindChangeWindowTitle:
		return "ChangeWindowTitle"
	case KindChangeWindowIcon:
		return "ChangeWindowIcon"
	case KindReportPwd:
		return "ReportPwd"
	case KindHyperlinkStart:
		return "HyperlinkStart"
	case KindHyperlinkEnd:
		return "HyperlinkEnd"
	case KindSetPalette:
		return "SetPalette"
	case KindResetPalette:
		return "ResetPalette"
	case KindSetColor:
		return "SetColor"
	case KindQueryColor:
		return "QueryColor"
	case KindResetColor:
		return "ResetColor"
	case KindSetClipboard:
		return "SetClipboard"
	case KindQueryClipboard:
		return "QueryClipboard"
	case KindDesktopNotification:
		return "DesktopNotification"
	case KindPromptStart:
		return "PromptStart"
	case KindPromptEnd:
		return "PromptEnd"
	case KindEndOfInput:
		return "EndOfInput"
	case KindEndOfCommand:
		return "EndOfCommand"
	default:
		return "Invalid"
	}
}

// ColorTarget is the dynamic color addressed by OSC 10/11/12 and their
// reset counterparts.
type ColorTarget int

const (
	ColorTargetForeground ColorTarget = iota
	ColorTargetBackground
	ColorTargetCursor
)

func (t ColorTarget) String() string {
	switch t {
	case ColorTargetForeground:
		return "foreground"
	case ColorTargetBackground:
		return "background"
	case ColorTargetCursor:
		return "cursor"
	default:
		return "unknown"
	}
}

// PaletteEntry is one index/color pair from an OSC 4 sequence.
type PaletteEntry struct {
	Index uint8
	Color color.RGB
}

// Command is a fully decoded OSC sequence. Only the fields relevant to
// Kind are populated.
type Command struct {
	Kind Kind

	// Window or notification title.
	Title string

	// Notification body.
	Body string

	// Working directory as reported by the shell, usually a file:// URI.
	Pwd string

	// Hyperlink anchor. The ID is optional and empty when the shell did
	// not provide one.
	HyperlinkID  string
	HyperlinkURI string

	// Palette entries to set and palette indexes whose current value
	// was queried. A single OSC 4 may carry both.
	Palette        []PaletteEntry
	PaletteQueries []uint8

	// Palette indexes to reset. Empty means the entire palette.
	PaletteResets []uint8

	// Dynamic color target and the value to set it to.
	Target ColorTarget
	Color  color.RGB

	// Clipboard selection ('c', 'p', 's', ...) and the payload, which
	// stays base64-encoded; decoding is up to the handler since writes
	// may be rejected by policy before the payload is ever looked at.
	Clipboard     uint8
	ClipboardData string

	// Semantic prompt options from OSC 133;A.
	PromptAid    string
	PromptRedraw bool
	Continuation bool

	// Exit code carried by OSC 133;D. HasExitCode distinguishes a
	// reported zero from an absent report.
	ExitCode    int
	HasExitCode bool
}

// Parser accumulates an OSC payload byte by byte and decodes it when
// the sequence terminates.
type Parser struct {
	buf      []byte
	overflow bool

	logger logger.Logger
}

func NewParser() *Parser {
	return &Parser{
		buf:    make([]byte, 0, 128),
		logger: logger.DefaultLogger,
	}
}

// Reset discards any partially accumulated payload. Called when the VT
// parser enters the osc_string state.
func (p *Parser) Reset() {
	p.buf = p.buf[:0]
	p.overflow = false
}

// Next accumulates one payload byte.
func (p *Parser) Next(c uint8) {
	if len(p.buf) >= MaxBufferSize {
		p.overflow = true
		return
	}
	p.buf = append(p.buf, c)
}

// End decodes the accumulated payload. It returns nil for empty,
// oversized, or unrecognized sequences; the caller treats nil as
// "nothing to dispatch".
func (p *Parser) End() *Command {
	if p.overflow {
		p.logger.Warn("osc: discarding oversized sequence", "len", len(p.buf))
		return nil
	}
	if len(p.buf) == 0 {
		return nil
	}

	data := string(p.buf)
	numStr, rest, _ := strings.Cut(data, ";")
	num, err := strconv.Atoi(numStr)
	if err != nil {
		p.logger.Debug("osc: non-numeric command", "data", data)
		return nil
	}

	switch num {
	case 0, 2:
		// 0 nominally sets the icon name too; nobody renders icon
		// names anymore so both behave as a title change.
		return &Command{Kind: KindChangeWindowTitle, Title: rest}
	case 1:
		return &Command{Kind: KindChangeWindowIcon, Title: rest}
	case 4:
		return p.parsePalette(rest)
	case 7:
		return &Command{Kind: KindReportPwd, Pwd: rest}
	case 8:
		return p.parseHyperlink(rest)
	case 9:
		return &Command{Kind: KindDesktopNotification, Body: rest}
	case 10, 11, 12:
		return p.parseDynamicColor(num, rest)
	case 52:
		return p.parseClipboard(rest)
	case 104:
		return p.parseResetPalette(rest)
	case 110:
		return &Command{Kind: KindResetColor, Target: ColorTargetForeground}
	case 111:
		return &Command{Kind: KindResetColor, Target: ColorTargetBackground}
	case 112:
		return &Command{Kind: KindResetColor, Target: ColorTargetCursor}
	case 133:
		return p.parseSemanticPrompt(rest)
	case 777:
		return p.parseNotification(rest)
	}

	p.logger.Debug("osc: unimplemented command", "num", num)
	return nil
}

// parsePalette decodes the index/spec pairs of OSC 4. A spec of "?"
// queries the current value instead of setting one; sets and queries
// may be mixed in a single sequence.
func (p *Parser) parsePalette(rest string) *Command {
	parts := strings.Split(rest, ";")
	cmd := &Command{Kind: KindSetPalette}
	for i := 0; i+1 < len(parts); i += 2 {
		index, err := strconv.Atoi(parts[i])
		if err != nil || index < 0 || index > 255 {
			p.logger.Debug("osc: invalid palette index", "index", parts[i])
			continue
		}
		spec := parts[i+1]
		if spec == "?" {
			cmd.PaletteQueries = append(cmd.PaletteQueries, uint8(index))
			continue
		}
		rgb, err := color.ParseSpec(spec)
		if err != nil {
			p.logger.Debug("osc: invalid color spec", "spec", spec)
			continue
		}
		cmd.Palette = append(cmd.Palette, PaletteEntry{Index: uint8(index), Color: rgb})
	}
	if len(cmd.Palette) == 0 && len(cmd.PaletteQueries) == 0 {
		return nil
	}
	return cmd
}

// parseHyperlink decodes OSC 8 in the form "params;uri". An empty URI
// closes the current anchor. The URI is everything after the second
// semicolon and may itself contain semicolons.
func (p *Parser) parseHyperlink(rest string) *Command {
	params, uri, found := strings.Cut(rest, ";")
	if !found {
		p.logger.Debug("osc: malformed hyperlink", "data", rest)
		return nil
	}
	if uri == "" {
		return &Command{Kind: KindHyperlinkEnd}
	}

	cmd := &Command{Kind: KindHyperlinkStart, HyperlinkURI: uri}
	for _, kv := range strings.Split(params, ":") {
		if key, value, ok := strings.Cut(kv, "="); ok && key == "id" {
			cmd.HyperlinkID = value
		}
	}
	return cmd
}

func (p *Parser) parseDynamicColor(num int, rest string) *Command {
	var target ColorTarget
	switch num {
	case 10:
		target = ColorTargetForeground
	case 11:
		target = ColorTargetBackground
	case 12:
		target = ColorTargetCursor
	}

	if rest == "?" {
		return &Command{Kind: KindQueryColor, Target: target}
	}
	rgb, err := color.ParseSpec(rest)
	if err != nil {
		p.logger.Debug("osc: invalid color spec", "spec", rest)
		return nil
	}
	return &Command{Kind: KindSetColor, Target: target, Color: rgb}
}

// parseClipboard decodes OSC 52 in the form "targets;data". The first
// target character selects the clipboard; an empty target list means
// the system clipboard. A data payload of "?" queries instead of sets.
func (p *Parser) parseClipboard(rest string) *Command {
	targets, data, found := strings.Cut(rest, ";")
	if !found {
		p.logger.Debug("osc: malformed clipboard sequence", "data", rest)
		return nil
	}

	clipboard := uint8('c')
	if len(targets) > 0 {
		clipboard = targets[0]
	}
	if data == "?" {
		return &Command{Kind: KindQueryClipboard, Clipboard: clipboard}
	}
	return &Command{Kind: KindSetClipboard, Clipboard: clipboard, ClipboardData: data}
}

func (p *Parser) parseResetPalette(rest string) *Command {
	cmd := &Command{Kind: KindResetPalette}
	if rest == "" {
		return cmd
	}
	for _, part := range strings.Split(rest, ";") {
		index, err := strconv.Atoi(part)
		if err != nil || index < 0 || index > 255 {
			p.logger.Debug("osc: invalid palette index", "index", part)
			continue
		}
		cmd.PaletteResets = append(cmd.PaletteResets, uint8(index))
	}
	if len(cmd.PaletteResets) == 0 {
		return nil
	}
	return cmd
}

// parseSemanticPrompt decodes the FinalTerm-style shell integration
// markers: A marks a prompt start, B the prompt end, C the end of user
// input, and D the end of the command with an optional exit code.
func (p *Parser) parseSemanticPrompt(rest string) *Command {
	marker, opts, _ := strings.Cut(rest, ";")
	switch marker {
	case "A":
		cmd := &Command{Kind: KindPromptStart, PromptRedraw: true}
		for _, opt := range strings.Split(opts, ";") {
			key, value, ok := strings.Cut(opt, "=")
			if !ok {
				continue
			}
			switch key {
			case "aid":
				cmd.PromptAid = value
			case "redraw":
				cmd.PromptRedraw = value != "0"
			case "k":
				// k=c and k=s mark continuation and secondary
				// prompts; both continue an existing prompt.
				cmd.Continuation = value == "c" || value == "s"
			}
		}
		return cmd
	case "B":
		return &Command{Kind: KindPromptEnd}
	case "C":
		return &Command{Kind: KindEndOfInput}
	case "D":
		cmd := &Command{Kind: KindEndOfCommand}
		if code, _, _ := strings.Cut(opts, ";"); code != "" {
			if exit, err := strconv.Atoi(code); err == nil {
				cmd.ExitCode = exit
				cmd.HasExitCode = true
			}
		}
		return cmd
	}
	p.logger.Debug("osc: unknown semantic prompt marker", "marker", marker)
	return nil
}

// parseNotification decodes the urxvt extension OSC 777;notify;title;body.
func (p *Parser) parseNotification(rest string) *Command {
	module, args, _ := strings.Cut(rest, ";")
	if module != "notify" {
		p.logger.Debug("osc: unknown 777 module", "module", module)
		return nil
	}
	title, body, _ := strings.Cut(args, ";")
	return &Command{Kind: KindDesktopNotification, Title: title, Body: body}
}
