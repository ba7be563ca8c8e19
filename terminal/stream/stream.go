package stream

import (
	"slices"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/ansi"
	"github.com/hnimtadd/termcore/terminal/charset"
	"github.com/hnimtadd/termcore/terminal/core"
	"github.com/hnimtadd/termcore/terminal/handler"
	"github.com/hnimtadd/termcore/terminal/parser"
	"github.com/hnimtadd/termcore/terminal/sequences/csi"
	"github.com/hnimtadd/termcore/terminal/sequences/esc"
	"github.com/hnimtadd/termcore/terminal/sequences/osc"
	"github.com/hnimtadd/termcore/terminal/sgr"
	"github.com/hnimtadd/termcore/terminal/utils"
)

// This is the maximum number of codepoints we can decode
// at one time for this function call. This is somewhat arbitrary
// so if someone can demonstrate a better number then we can switch.
const MaxCodePoints = 4096

// This type can be used to process a stream of tty control characters.
// This will call various callback functions on type T. Type T only has to
// implement the callbacks it cares about; any unimplemented callbacks will
// be logged at runtime.
//
// To figure out what callbacks are available, we try to cast the type T
// into specific golang interfaces from the handler package.
type Stream struct {
	handler     any
	parser      *parser.Parser
	utf8Decoder *UTF8Decoder

	logger logger.Logger
}

func NewStream(handler any, logger logger.Logger) *Stream {
	return &Stream{
		handler:     handler,
		parser:      parser.NewParser(),
		utf8Decoder: NewUTF8Decoder(),
		logger:      logger,
	}
}

// NextSlice processes a slice of bytes. This produces exactly the same
// dispatches as feeding the bytes one at a time through Next, but takes
// the bulk path for printable runs in the ground state.
func (s *Stream) NextSlice(input []uint8) {
	cpBuf := make([]uint32, MaxCodePoints)

	// split the input into chunks that fit into cpBuf
	i := 0
	for i < len(input) {
		bufLen := min(len(cpBuf), len(input)-i)
		s.nextSliceCapped(input[i:i+bufLen], cpBuf)
		i += bufLen
	}
}

func (s *Stream) nextSliceCapped(input []uint8, cpBuf []uint32) {
	utils.Assert(len(input) <= len(cpBuf))
	offset := 0

	// Drain a partial UTF-8 sequence left over from the last chunk.
	for s.utf8Decoder.state != 0 {
		if offset >= len(input) {
			break
		}
		s.nextUtf8(input[offset])
		offset += 1
	}
	if offset >= len(input) {
		return
	}

	// If we're not in the ground state then we process until we are. This
	// can happen if the last chunk of input put us in the middle of a control
	// sequence.
	offset += s.consumeUntilGround(input[offset:])
	if offset >= len(input) {
		return
	}
	offset += s.consumeAllEscapes(input[offset:])

	// If we're in the ground state then we can process the input
	// until we see an ESC (0x1B) since all other characters up to that
	// point are just UTF-8 characters.
	for (s.parser.State == parser.StateGround) && (offset < len(input)) {
		decoded, consumed := s.utf8Decoder.DecodeUntilControlSeq(input[offset:], cpBuf)
		for cp := range slices.Values(cpBuf[:decoded]) {
			if cp <= uint32(ansi.C0.SI) {
				s.execute(uint8(cp))
			} else {
				s.print(cp)
			}
		}
		// Consume the bytes we just processed.
		offset += consumed
		if offset >= len(input) {
			return
		}

		// If our offset is NOT an escape then we must have a partial
		// UTF-8 sequence. In that case, we pass the remainder off to
		// the scalar path.
		if input[offset] != ansi.C0.ESC {
			rem := input[offset:]
			for c := range slices.Values(rem) {
				s.nextUtf8(c)
			}
			return
		}

		// Process control sequences until we run out.
		offset += s.consumeAllEscapes(input[offset:])
	}
}

// Next processes a single byte. This is necessarily a scalar operation.
// Prefer NextSlice if multiple bytes are available at once.
func (s *Stream) Next(c uint8) {
	// The scalar path can be responsible for decoding UTF-8. ESC goes
	// straight to the parser so that a pending multi-byte sequence
	// survives an interleaved control sequence, same as the slice path.
	if s.parser.State == parser.StateGround && c != ansi.C0.ESC {
		s.nextUtf8(c)
		return
	}
	s.nextNonUtf8(c)
}

// nextUtf8 processes a single UTF-8 byte and prints as necessary.
//
// This assumes we're in the UTF-8 decoding state. If we may not
// be in the UTF-8 decoding state call NextSlice or Next.
func (s *Stream) nextUtf8(c uint8) {
	utils.Assert(s.parser.State == parser.StateGround)

	cp, generated, consumed := s.utf8Decoder.Next(c)
	if generated {
		s.handleCodepoint(cp)
	}

	if !consumed {
		cp, generated, consumed := s.utf8Decoder.Next(c)

		// It should be impossible for the utf8Decoder
		// to not consume the byte twice in a row.
		utils.Assert(consumed)
		if generated {
			s.handleCodepoint(cp)
		}
	}
}

// To be called whenever the utf-8 decoder produces a codepoint.
//
// This function is abstracted this way to handle the case where
// the decoder emits a 0x1B after rejecting an ill-formed sequence.
func (s *Stream) handleCodepoint(cp uint32) {
	if cp <= uint32(ansi.C0.SI) {
		s.execute(uint8(cp))
		return
	}
	if cp == uint32(ansi.C0.ESC) {
		s.nextNonUtf8(uint8(cp))
		return
	}

	s.print(cp)
}

// Process the next character and call any callbacks if necessary.
//
// This assumes that we're not in the UTF-8 decoding state. If
// we may be in the UTF-8 decoding state call NextSlice or Next.
func (s *Stream) nextNonUtf8(c uint8) {
	utils.Assert(s.parser.State != parser.StateGround || c == ansi.C0.ESC)

	actions := s.parser.Next(c)
	for action := range slices.Values(actions[:]) {
		if action == nil {
			continue
		}
		switch action.Type {
		case parser.ActionPrint:
			s.print(uint32(action.PrintData))

		case parser.ActionExecute:
			s.execute(action.ExecuteData)

		case parser.ActionCSIDispatch:
			s.csiDispatch(action.CSIDispatchData)

		case parser.ActionESCDispatch:
			s.escDispatch(action.ESCDispatchData)

		case parser.ActionOSCEnd:
			if action.OSCDispatchData != nil {
				s.oscDispatch(action.OSCDispatchData)
			}

		case parser.ActionDCSHook:
			if action.DCSHookData == nil {
				s.logger.Warn("DCS hook without data, ignoring")
				continue
			}
			if handler, implemented := s.handler.(handler.DCSHandler); implemented {
				handler.DCSHook(action.DCSHookData)
			}

		case parser.ActionDCSPut:
			if handler, implemented := s.handler.(handler.DCSHandler); implemented {
				handler.DCSPut(action.DCSPutData)
			}

		case parser.ActionDCSUnHook:
			if handler, implemented := s.handler.(handler.DCSHandler); implemented {
				handler.DCSUnhook()
			}

		case parser.ActionAPCStart:
			if handler, implemented := s.handler.(handler.APCHandler); implemented {
				handler.APCStart()
			}

		case parser.ActionAPCPut:
			if handler, implemented := s.handler.(handler.APCHandler); implemented {
				handler.APCPut(action.APCPutData)
			}

		case parser.ActionAPCEnd:
			if handler, implemented := s.handler.(handler.APCHandler); implemented {
				handler.APCEnd()
			}
		}
	}
}

func (s *Stream) execute(c uint8) {
	if s.handler == nil {
		s.logger.Warn("handler is nil, ignoring")
		return
	}
	c0 := ansi.C0
	switch c {
	case c0.BS:
		if handler, implemented := s.handler.(handler.EditorHandler); implemented {
			handler.Backspace()
		} else {
			s.logger.Warn("unimplemented execute", "codepoint", c)
		}

	case c0.HT:
		if handler, implemented := s.handler.(handler.EditorHandler); implemented {
			handler.SetCursorTabRight(1)
		} else {
			s.logger.Warn("unimplemented execute", "codepoint", c)
		}

	case c0.LF, c0.VT, c0.FF:
		if handler, implemented := s.handler.(handler.EditorHandler); implemented {
			handler.LineFeed()
		} else {
			s.logger.Warn("unimplemented execute", "codepoint", c)
		}

	case c0.CR:
		if handler, implemented := s.handler.(handler.EditorHandler); implemented {
			handler.CarriageReturn()
		} else {
			s.logger.Warn("unimplemented execute", "codepoint", c)
		}

	case c0.BEL:
		if handler, implemented := s.handler.(handler.BellHandler); implemented {
			handler.Bell()
		}

	// Locking shifts: SO invokes G1 into GL, SI invokes G0.
	case c0.SO:
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGL, charset.SlotG1, false)
		}
	case c0.SI:
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGL, charset.SlotG0, false)
		}

	case c0.NUL, c0.ENQ, c0.EOT, c0.CAN, c0.SUB:
		// Harmless in real streams, nothing to do.
		s.logger.Debug("ignoring control", "codepoint", ansi.String(c))

	default:
		s.logger.Debug("ignoring unknown c0 character", "codepoint", ansi.String(c))
	}
}

func (s *Stream) print(c uint32) {
	if handler, implemented := s.handler.(handler.PrintHandler); implemented {
		handler.Print(c)
	} else {
		s.logger.Warn("unimplemented print", "codepoint", c)
	}
}

// paramOr returns the parameter at idx, or def when the sequence did
// not carry that many parameters.
func paramOr(params []uint16, idx int, def uint16) uint16 {
	if idx >= len(params) {
		return def
	}
	return params[idx]
}

// csiDispatch implements dispatch for the host-to-terminal control
// sequences. Sequences addressed to capabilities the handler does not
// implement are logged and dropped.
func (s *Stream) csiDispatch(c *csi.Command) {
	// by alphabetical order of final character
	switch c.Final {
	case '@':
		// ICH - Insert Blanks
		handler, implemented := s.handler.(handler.EditorHandler)
		if !implemented {
			s.logger.Warn("unimplemented ICH command", "codepoint", c)
			return
		}
		switch len(c.Params) {
		case 0:
			handler.InsertBlanks(1)
		case 1:
			handler.InsertBlanks(c.Params[0])
		default:
			s.logger.Warn("invalid ICH command", "codepoint", c)
			return
		}

	case 'A', 'k':
		// CUU - Cursor Up
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CUU command", "codepoint", c)
				return
			}

			var offset uint16
			switch len(c.Params) {
			case 0:
				offset = 1
			case 1:
				offset = c.Params[0]
			default:
				s.logger.Warn("invalid CUU command", "codepoint", c)
				return
			}

			handler.SetCursorUp(offset, false)
		default:
			s.logger.Warn("unimplemented CSI A with intermediates", "codepoint", c)
			return
		}

	case 'B':
		// CUD - Cursor Down
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CUD command", "codepoint", c)
				return
			}
			var offset uint16
			switch len(c.Params) {
			case 0:
				offset = 1
			case 1:
				offset = c.Params[0]
			default:
				s.logger.Warn("invalid CUD command", "codepoint", c)
				return
			}
			handler.SetCursorDown(offset, false)

		default:
			s.logger.Warn("unimplemented CSI B with intermediates", "codepoint", c)
		}

	case 'C':
		// CUF - Cursor Forward
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CUF command", "codepoint", c)
				return
			}

			var offset uint16
			switch len(c.Params) {
			case 0:
				offset = 1
			case 1:
				offset = c.Params[0]
			default:
				s.logger.Warn("invalid CUF command", "codepoint", c)
				return
			}
			handler.SetCursorRight(offset)

		default:
			s.logger.Warn("unimplemented CSI C with intermediates", "codepoint", c)
		}

	case 'D', 'j':
		// CUB - Cursor Backward
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CUB command", "codepoint", c)
				return
			}

			var offset uint16
			switch len(c.Params) {
			case 0:
				offset = 1
			case 1:
				offset = c.Params[0]
			default:
				s.logger.Warn("invalid CUB command", "codepoint", c)
				return
			}
			handler.SetCursorLeft(offset)

		default:
			s.logger.Warn("unimplemented CSI D with intermediates", "codepoint", c)
			return
		}

	case 'E':
		// CNL - Cursor Next Line
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CNL command", "codepoint", c)
				return
			}
			var offset uint16
			switch len(c.Params) {
			case 0:
				offset = 1
			case 1:
				offset = c.Params[0]
			default:
				s.logger.Warn("invalid CNL command", "codepoint", c)
				return
			}
			handler.SetCursorDown(offset, true)
		default:
			s.logger.Warn("unimplemented CSI E with intermediates", "codepoint", c)
			return
		}

	case 'F':
		// CPL - Cursor Preceding Line
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CPL command", "codepoint", c)
				return
			}
			var offset uint16
			switch len(c.Params) {
			case 0:
				offset = 1
			case 1:
				offset = c.Params[0]
			default:
				s.logger.Warn("invalid CPL command", "codepoint", c)
				return
			}
			handler.SetCursorUp(offset, true)
		default:
			s.logger.Warn("unimplemented CSI F with intermediates", "codepoint", c)
			return
		}

	case 'G', '`':
		// HPA - Cursor Horizontal Position Absolute
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented HPA command", "codepoint", c)
				return
			}
			var col uint16
			switch len(c.Params) {
			case 0:
				col = 1
			case 1:
				col = c.Params[0]
			default:
				s.logger.Warn("invalid HPA command", "codepoint", c)
				return
			}
			handler.SetCursorCol(col)
		default:
			s.logger.Warn("unimplemented CSI G with intermediates", "codepoint", c)
			return
		}

	case 'H', 'f':
		// CUP - Cursor Position
		// HVP - Horizontal Vertical Position
		handler, implemented := s.handler.(handler.EditorHandler)
		if !implemented {
			s.logger.Warn("unimplemented CUP command", "codepoint", c)
			return
		}

		switch len(c.Params) {
		case 0:
			handler.SetCursorPosition(0, 0)
		case 1:
			handler.SetCursorPosition(c.Params[0], 0)
		case 2:
			handler.SetCursorPosition(c.Params[0], c.Params[1])
		default:
			s.logger.Warn("invalid CUP command", "codepoint", c)
			return
		}

	case 'I':
		// CHT - Cursor Horizontal Tabulation
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented CHT command", "codepoint", c)
				return
			}
			var numTab uint16
			switch len(c.Params) {
			case 0:
				numTab = 1
			case 1:
				numTab = c.Params[0]
			default:
				s.logger.Warn("invalid CHT command", "codepoint", c)
				return
			}
			handler.SetCursorTabRight(numTab)
		default:
			s.logger.Warn("unimplemented CSI I with intermediates", "codepoint", c)
			return
		}

	case 'J':
		// ED - Erase in Display, DECSED with a '?' intermediate.
		mode := csi.EDMode(paramOr(c.Params, 0, 0))
		switch {
		case len(c.Intermediates) == 0:
			if handler, implemented := s.handler.(handler.EditorHandler); implemented {
				handler.EraseInDisplay(mode)
			} else {
				s.logger.Warn("unimplemented ED command", "codepoint", c)
			}
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '?':
			if handler, implemented := s.handler.(handler.ProtectionHandler); implemented {
				handler.EraseInDisplaySelective(mode)
			} else {
				s.logger.Warn("unimplemented DECSED command", "codepoint", c)
			}
		default:
			s.logger.Warn("unimplemented CSI J with intermediates", "codepoint", c)
			return
		}

	case 'K':
		// EL - Erase in Line, DECSEL with a '?' intermediate.
		mode := csi.ELMode(paramOr(c.Params, 0, 0))
		switch {
		case len(c.Intermediates) == 0:
			if handler, implemented := s.handler.(handler.EditorHandler); implemented {
				handler.EraseInLine(mode)
			} else {
				s.logger.Warn("unimplemented EL command", "codepoint", c)
			}
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '?':
			if handler, implemented := s.handler.(handler.ProtectionHandler); implemented {
				handler.EraseInLineSelective(mode)
			} else {
				s.logger.Warn("unimplemented DECSEL command", "codepoint", c)
			}
		default:
			s.logger.Warn("unimplemented CSI K with intermediates", "codepoint", c)
			return
		}

	case 'L':
		// IL - Insert Lines
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented IL command", "codepoint", c)
				return
			}
			handler.InsertLines(paramOr(c.Params, 0, 1))
		default:
			s.logger.Warn("unimplemented CSI L with intermediates", "codepoint", c)
			return
		}

	case 'M':
		// DL - Delete Lines
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented DL command", "codepoint", c)
				return
			}
			handler.DeleteLines(paramOr(c.Params, 0, 1))
		default:
			s.logger.Warn("unimplemented CSI M with intermediates", "codepoint", c)
		}

	case 'P':
		// DCH - Delete Characters
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.EditorHandler)
			if !implemented {
				s.logger.Warn("unimplemented DCH command", "codepoint", c)
				return
			}
			handler.DeleteChars(paramOr(c.Params, 0, 1))
		default:
			s.logger.Warn("unimplemented CSI P with intermediates", "codepoint", c)
		}

	case 'S':
		// SU - Scroll Up. With a '?' intermediate this is
		// XTSMGRAPHICS, which we do not implement.
		if len(c.Intermediates) != 0 {
			s.logger.Debug("ignoring XTSMGRAPHICS", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.ScrollUp(paramOr(c.Params, 0, 1))
		} else {
			s.logger.Warn("unimplemented SU command", "codepoint", c)
		}

	case 'T':
		// SD - Scroll Down. More than one parameter selects the
		// ancient mouse highlight tracking protocol, ignored.
		if len(c.Intermediates) != 0 || len(c.Params) > 1 {
			s.logger.Debug("ignoring CSI T variant", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.ScrollDown(paramOr(c.Params, 0, 1))
		} else {
			s.logger.Warn("unimplemented SD command", "codepoint", c)
		}

	case 'X':
		// ECH - Erase Characters
		if len(c.Intermediates) != 0 {
			s.logger.Warn("unimplemented CSI X with intermediates", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.EraseChars(paramOr(c.Params, 0, 1))
		} else {
			s.logger.Warn("unimplemented ECH command", "codepoint", c)
		}

	case 'Z':
		// CBT - Cursor Backwards Tab
		if len(c.Intermediates) != 0 {
			s.logger.Warn("unimplemented CSI Z with intermediates", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.EditorHandler); implemented {
			handler.SetCursorTabLeft(paramOr(c.Params, 0, 1))
		} else {
			s.logger.Warn("unimplemented CBT command", "codepoint", c)
		}

	case 'b':
		// REP - Repeat Previous Character
		if len(c.Intermediates) != 0 {
			s.logger.Warn("unimplemented CSI b with intermediates", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.PrintRepeatHandler); implemented {
			handler.PrintRepeat(paramOr(c.Params, 0, 1))
		} else {
			s.logger.Warn("unimplemented REP command", "codepoint", c)
		}

	case 'c':
		// DA - Device Attributes
		handler, implemented := s.handler.(handler.DeviceHandler)
		if !implemented {
			s.logger.Warn("unimplemented DA command", "codepoint", c)
			return
		}
		switch {
		case len(c.Intermediates) == 0:
			if paramOr(c.Params, 0, 0) != 0 {
				s.logger.Warn("invalid DA command", "codepoint", c)
				return
			}
			handler.DeviceAttributes(csi.DeviceAttributePrimary)
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '>':
			handler.DeviceAttributes(csi.DeviceAttributeSecondary)
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '=':
			handler.DeviceAttributes(csi.DeviceAttributeTertiary)
		default:
			s.logger.Warn("invalid DA command", "codepoint", c)
			return
		}

	case 'd':
		// VPA - Vertical Position Absolute
		if len(c.Intermediates) != 0 {
			s.logger.Warn("unimplemented CSI d with intermediates", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.EditorHandler); implemented {
			handler.SetCursorRow(paramOr(c.Params, 0, 1))
		} else {
			s.logger.Warn("unimplemented VPA command", "codepoint", c)
		}

	case 'g':
		// TBC - Tab Clear
		if len(c.Intermediates) != 0 {
			s.logger.Warn("unimplemented CSI g with intermediates", "codepoint", c)
			return
		}
		handler, implemented := s.handler.(handler.TabHandler)
		if !implemented {
			s.logger.Warn("unimplemented TBC command", "codepoint", c)
			return
		}
		switch mode := paramOr(c.Params, 0, 0); mode {
		case 0:
			handler.TabClear(csi.TabClearCurrent)
		case 3:
			handler.TabClear(csi.TabClearAll)
		default:
			s.logger.Warn("invalid TBC command", "codepoint", c)
			return
		}

	case 'h':
		// SM - Set Mode
		s.setModeDispatch(c, true)

	case 'l':
		// RM - Reset Mode
		s.setModeDispatch(c, false)

	case 'm':
		// SGR - Select Graphic Rendition. A '>' intermediate selects
		// XTMODKEYS, which we do not implement.
		switch len(c.Intermediates) {
		case 0:
			handler, implemented := s.handler.(handler.SGRHandler)
			if !implemented {
				s.logger.Warn("unimplemented SGR command", "codepoint", c)
				return
			}
			p := sgr.Parser{
				Params:    c.Params,
				ParamsSep: c.ParamsSet,
			}
			for attr := range p.Iter() {
				if attr != nil {
					handler.SetGraphicsRendition(attr)
				}
			}
		default:
			s.logger.Debug("ignoring CSI m with intermediates", "codepoint", c)
			return
		}

	case 'n':
		// DSR - Device Status Report
		handler, implemented := s.handler.(handler.DeviceHandler)
		if !implemented {
			s.logger.Warn("unimplemented DSR command", "codepoint", c)
			return
		}
		req := paramOr(c.Params, 0, 0)
		switch {
		case len(c.Intermediates) == 0 && req == 5:
			handler.DeviceStatusReport(csi.DeviceStatusOperating)
		case len(c.Intermediates) == 0 && req == 6:
			handler.DeviceStatusReport(csi.DeviceStatusCursorPosition)
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '?' && req == 6:
			handler.DeviceStatusReport(csi.DeviceStatusCursorPositionDec)
		default:
			s.logger.Debug("ignoring DSR variant", "codepoint", c)
			return
		}

	case 'p':
		// DECSTR with a '!' intermediate, DECRQM with '$'.
		switch {
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '!':
			if handler, implemented := s.handler.(handler.ResetHandler); implemented {
				handler.SoftReset()
			} else {
				s.logger.Warn("unimplemented DECSTR command", "codepoint", c)
			}
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '$':
			if handler, implemented := s.handler.(handler.DeviceHandler); implemented {
				handler.RequestMode(int(paramOr(c.Params, 0, 0)), true)
			} else {
				s.logger.Warn("unimplemented DECRQM command", "codepoint", c)
			}
		case len(c.Intermediates) == 2 && c.Intermediates[0] == '?' && c.Intermediates[1] == '$':
			if handler, implemented := s.handler.(handler.DeviceHandler); implemented {
				handler.RequestMode(int(paramOr(c.Params, 0, 0)), false)
			} else {
				s.logger.Warn("unimplemented DECRQM command", "codepoint", c)
			}
		default:
			s.logger.Debug("ignoring CSI p variant", "codepoint", c)
			return
		}

	case 'q':
		// DECSCA with '"', DECSCUSR with space, XTVERSION with '>'.
		switch {
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '"':
			handler, implemented := s.handler.(handler.ProtectionHandler)
			if !implemented {
				s.logger.Warn("unimplemented DECSCA command", "codepoint", c)
				return
			}
			switch paramOr(c.Params, 0, 0) {
			case 0, 2:
				handler.SetProtectedMode(false)
			case 1:
				handler.SetProtectedMode(true)
			default:
				s.logger.Warn("invalid DECSCA command", "codepoint", c)
				return
			}
		case len(c.Intermediates) == 1 && c.Intermediates[0] == ' ':
			style := csi.CursorStyle(paramOr(c.Params, 0, 0))
			if style > csi.CursorStyleSteadyBar {
				s.logger.Warn("invalid DECSCUSR command", "codepoint", c)
				return
			}
			if handler, implemented := s.handler.(handler.CursorStyleHandler); implemented {
				handler.SetCursorStyle(style)
			} else {
				s.logger.Warn("unimplemented DECSCUSR command", "codepoint", c)
			}
		case len(c.Intermediates) == 1 && c.Intermediates[0] == '>':
			if handler, implemented := s.handler.(handler.DeviceHandler); implemented {
				handler.ReportXTVersion()
			} else {
				s.logger.Warn("unimplemented XTVERSION command", "codepoint", c)
			}
		default:
			// DECLL, load LEDs. Nothing to light up.
			s.logger.Debug("ignoring CSI q variant", "codepoint", c)
			return
		}

	case 'r':
		// DECSTBM - Set Top and Bottom Margins. With a '?'
		// intermediate this is XTRESTORE.
		if len(c.Intermediates) == 1 && c.Intermediates[0] == '?' {
			s.saveModeDispatch(c, false)
			return
		}
		if len(c.Intermediates) != 0 {
			s.logger.Debug("ignoring CSI r variant", "codepoint", c)
			return
		}
		if len(c.Params) > 2 {
			s.logger.Warn("invalid DECSTBM command", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.SetTopBottomMargin(paramOr(c.Params, 0, 0), paramOr(c.Params, 1, 0))
		} else {
			s.logger.Warn("unimplemented DECSTBM command", "codepoint", c)
		}

	case 's':
		// With no parameters this is SCOSC (save cursor); with
		// parameters it is DECSLRM. A '?' intermediate is XTSAVE.
		if len(c.Intermediates) == 1 && c.Intermediates[0] == '?' {
			s.saveModeDispatch(c, true)
			return
		}
		if len(c.Intermediates) != 0 {
			s.logger.Debug("ignoring CSI s variant", "codepoint", c)
			return
		}
		handler, implemented := s.handler.(handler.ScreenHandler)
		if !implemented {
			s.logger.Warn("unimplemented CSI s command", "codepoint", c)
			return
		}
		if len(c.Params) == 0 {
			handler.SaveCursor()
			return
		}
		if len(c.Params) > 2 {
			s.logger.Warn("invalid DECSLRM command", "codepoint", c)
			return
		}
		handler.SetLeftRightMargin(paramOr(c.Params, 0, 0), paramOr(c.Params, 1, 0))

	case 't':
		// XTWINOPS - Window Manipulation
		if len(c.Intermediates) != 0 || len(c.Params) == 0 {
			s.logger.Debug("ignoring CSI t variant", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.DeviceHandler); implemented {
			handler.WindowManipulation(c.Params[0], c.Params[1:])
		} else {
			s.logger.Warn("unimplemented XTWINOPS command", "codepoint", c)
		}

	case 'u':
		// SCORC - Restore Cursor. The '>', '<' and '=' intermediates
		// belong to the kitty keyboard protocol, ignored.
		if len(c.Intermediates) != 0 || len(c.Params) != 0 {
			s.logger.Debug("ignoring CSI u variant", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.RestoreCursor()
		} else {
			s.logger.Warn("unimplemented SCORC command", "codepoint", c)
		}

	default:
		s.logger.Warn("unimplemented CSI command", "codepoint", c)
	}
}

// setModeDispatch handles SM and RM for both ANSI and DEC private
// modes. Unrecognized modes are logged and skipped, recognized ones
// earlier in the list still apply.
func (s *Stream) setModeDispatch(c *csi.Command, enabled bool) {
	handler, implemented := s.handler.(handler.VT100Handler)
	if !implemented {
		s.logger.Warn("unimplemented set mode command", "codepoint", c)
		return
	}
	var ansiMode bool
	switch {
	case len(c.Intermediates) == 0:
		ansiMode = true
	case len(c.Intermediates) == 1 && c.Intermediates[0] == '?':
		ansiMode = false
	default:
		s.logger.Warn("invalid set mode command", "codepoint", c)
		return
	}
	for _, modeInt := range c.Params {
		if mode := core.ModeFromInt(int(modeInt), ansiMode); mode != nil {
			handler.SetMode(*mode, enabled)
		} else {
			s.logger.Warn("unimplemented mode", "mode", modeInt, "ansi", ansiMode)
		}
	}
}

// saveModeDispatch handles XTSAVE and XTRESTORE for DEC private modes.
func (s *Stream) saveModeDispatch(c *csi.Command, save bool) {
	handler, implemented := s.handler.(handler.VT100Handler)
	if !implemented {
		s.logger.Warn("unimplemented save mode command", "codepoint", c)
		return
	}
	for _, modeInt := range c.Params {
		mode := core.ModeFromInt(int(modeInt), false)
		if mode == nil {
			s.logger.Warn("unimplemented mode", "mode", modeInt, "ansi", false)
			continue
		}
		if save {
			handler.SaveMode(*mode)
		} else {
			handler.RestoreMode(*mode)
		}
	}
}

// escDispatch implements dispatch for plain escape sequences.
func (s *Stream) escDispatch(c *esc.Command) {
	// Charset designations carry one of the slot-selecting
	// intermediates.
	if len(c.Intermediates) == 1 {
		switch c.Intermediates[0] {
		case '(', ')', '*', '+':
			s.designateCharset(c)
			return
		case '#':
			if c.Final == '8' {
				// DECALN - Screen Alignment Test
				if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
					handler.ScreenAlignmentTest()
				} else {
					s.logger.Warn("unimplemented DECALN command", "codepoint", c)
				}
				return
			}
			s.logger.Debug("ignoring ESC # variant", "codepoint", c)
			return
		}
	}

	switch c.Final {
	case '7':
		// DECSC - Save Cursor
		if len(c.Intermediates) != 0 {
			s.logger.Warn("invalid DECSC command", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.SaveCursor()
		} else {
			s.logger.Warn("unimplemented DECSC command", "codepoint", c)
		}

	case '8':
		// DECRC - Restore Cursor
		if len(c.Intermediates) != 0 {
			s.logger.Warn("invalid DECRC command", "codepoint", c)
			return
		}
		if handler, implemented := s.handler.(handler.ScreenHandler); implemented {
			handler.RestoreCursor()
		} else {
			s.logger.Warn("unimplemented DECRC command", "codepoint", c)
		}

	case '=':
		// DECKPAM - Keypad Application Mode
		if handler, implemented := s.handler.(handler.KeypadHandler); implemented {
			handler.SetKeypadMode(true)
		} else {
			s.logger.Warn("unimplemented DECKPAM command", "codepoint", c)
		}

	case '>':
		// DECKPNM - Keypad Numeric Mode
		if handler, implemented := s.handler.(handler.KeypadHandler); implemented {
			handler.SetKeypadMode(false)
		} else {
			s.logger.Warn("unimplemented DECKPNM command", "codepoint", c)
		}

	case 'D':
		// IND - Index
		handler, implemented := s.handler.(handler.FormatEffectorHandler)
		if !implemented {
			s.logger.Warn("unimplemented IND command", "codepoint", c)
			return
		}
		switch len(c.Intermediates) {
		case 0:
			handler.Index()
		default:
			s.logger.Warn("invalid IND command", "codepoint", c)
			return
		}

	case 'E':
		// NEL - Next Line
		handler, implemented := s.handler.(handler.FormatEffectorHandler)
		if !implemented {
			s.logger.Warn("unimplemented NEL command", "codepoint", c)
			return
		}
		switch len(c.Intermediates) {
		case 0:
			handler.NextLine()
		default:
			s.logger.Warn("invalid NEL command", "codepoint", c)
			return
		}

	case 'H':
		// HTS - Tab Set
		handler, implemented := s.handler.(handler.FormatEffectorHandler)
		if !implemented {
			s.logger.Warn("unimplemented HTS command", "codepoint", c)
			return
		}
		switch len(c.Intermediates) {
		case 0:
			handler.TabSet()
		default:
			s.logger.Warn("invalid HTS command", "codepoint", c)
			return
		}

	case 'M':
		// RI - Reverse Index
		handler, implemented := s.handler.(handler.FormatEffectorHandler)
		if !implemented {
			s.logger.Warn("unimplemented RI command", "codepoint", c)
			return
		}
		switch len(c.Intermediates) {
		case 0:
			handler.ReverseIndex()
		default:
			s.logger.Warn("invalid RI command", "codepoint", c)
			return
		}

	case 'N':
		// SS2 - Single Shift G2
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGL, charset.SlotG2, true)
		} else {
			s.logger.Warn("unimplemented SS2 command", "codepoint", c)
		}

	case 'O':
		// SS3 - Single Shift G3
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGL, charset.SlotG3, true)
		} else {
			s.logger.Warn("unimplemented SS3 command", "codepoint", c)
		}

	case 'c':
		// RIS - Full Reset
		handler, implemented := s.handler.(handler.FormatEffectorHandler)
		if !implemented {
			s.logger.Warn("unimplemented RIS command", "codepoint", c)
			return
		}
		switch len(c.Intermediates) {
		case 0:
			handler.FullReset()
		default:
			s.logger.Warn("invalid RIS command", "codepoint", c)
			return
		}

	case 'n':
		// LS2 - Locking Shift G2 into GL
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGL, charset.SlotG2, false)
		} else {
			s.logger.Warn("unimplemented LS2 command", "codepoint", c)
		}

	case 'o':
		// LS3 - Locking Shift G3 into GL
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGL, charset.SlotG3, false)
		} else {
			s.logger.Warn("unimplemented LS3 command", "codepoint", c)
		}

	case '|':
		// LS3R - Locking Shift G3 into GR
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGR, charset.SlotG3, false)
		}

	case '}':
		// LS2R - Locking Shift G2 into GR
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGR, charset.SlotG2, false)
		}

	case '~':
		// LS1R - Locking Shift G1 into GR
		if handler, implemented := s.handler.(handler.CharsetHandler); implemented {
			handler.InvokeCharset(charset.ActiveSlotGR, charset.SlotG1, false)
		}

	case '\\':
		// ST - String terminator
		// We don't have to do anything.

	default:
		s.logger.Debug("ignoring ESC sequence", "codepoint", c)
	}
}

// designateCharset handles the SCS sequences ESC ( ) * + with the
// final byte selecting the set.
func (s *Stream) designateCharset(c *esc.Command) {
	handler, implemented := s.handler.(handler.CharsetHandler)
	if !implemented {
		s.logger.Warn("unimplemented SCS command", "codepoint", c)
		return
	}

	var slot charset.Slot
	switch c.Intermediates[0] {
	case '(':
		slot = charset.SlotG0
	case ')':
		slot = charset.SlotG1
	case '*':
		slot = charset.SlotG2
	case '+':
		slot = charset.SlotG3
	}

	var set charset.Charset
	switch c.Final {
	case 'B':
		set = charset.CharsetASCII
	case 'A':
		set = charset.CharsetBritish
	case '0':
		set = charset.CharsetDecSpecial
	default:
		s.logger.Debug("ignoring unknown charset", "codepoint", c)
		return
	}

	handler.DesignateCharset(slot, set)
}

// oscDispatch routes a decoded OSC command to the matching handler
// capability.
func (s *Stream) oscDispatch(cmd *osc.Command) {
	switch cmd.Kind {
	case osc.KindChangeWindowTitle:
		if handler, implemented := s.handler.(handler.TitleHandler); implemented {
			handler.ChangeWindowTitle(cmd.Title)
			return
		}

	case osc.KindChangeWindowIcon:
		if handler, implemented := s.handler.(handler.TitleHandler); implemented {
			handler.ChangeWindowIcon(cmd.Title)
			return
		}

	case osc.KindReportPwd:
		if handler, implemented := s.handler.(handler.PwdHandler); implemented {
			handler.ReportPwd(cmd.Pwd)
			return
		}

	case osc.KindHyperlinkStart:
		if handler, implemented := s.handler.(handler.HyperlinkHandler); implemented {
			handler.StartHyperlink(cmd.HyperlinkURI, cmd.HyperlinkID)
			return
		}

	case osc.KindHyperlinkEnd:
		if handler, implemented := s.handler.(handler.HyperlinkHandler); implemented {
			handler.EndHyperlink()
			return
		}

	case osc.KindSetPalette:
		if handler, implemented := s.handler.(handler.PaletteHandler); implemented {
			if len(cmd.Palette) > 0 {
				handler.SetPalette(cmd.Palette)
			}
			if len(cmd.PaletteQueries) > 0 {
				handler.QueryPalette(cmd.PaletteQueries)
			}
			return
		}

	case osc.KindResetPalette:
		if handler, implemented := s.handler.(handler.PaletteHandler); implemented {
			handler.ResetPalette(cmd.PaletteResets)
			return
		}

	case osc.KindSetColor:
		if handler, implemented := s.handler.(handler.DynamicColorHandler); implemented {
			handler.SetDynamicColor(cmd.Target, cmd.Color)
			return
		}

	case osc.KindQueryColor:
		if handler, implemented := s.handler.(handler.DynamicColorHandler); implemented {
			handler.QueryDynamicColor(cmd.Target)
			return
		}

	case osc.KindResetColor:
		if handler, implemented := s.handler.(handler.DynamicColorHandler); implemented {
			handler.ResetDynamicColor(cmd.Target)
			return
		}

	case osc.KindSetClipboard:
		if handler, implemented := s.handler.(handler.ClipboardHandler); implemented {
			handler.SetClipboard(cmd.Clipboard, cmd.ClipboardData)
			return
		}

	case osc.KindQueryClipboard:
		if handler, implemented := s.handler.(handler.ClipboardHandler); implemented {
			handler.QueryClipboard(cmd.Clipboard)
			return
		}

	case osc.KindDesktopNotification:
		if handler, implemented := s.handler.(handler.NotificationHandler); implemented {
			handler.DesktopNotification(cmd.Title, cmd.Body)
			return
		}

	case osc.KindPromptStart:
		if handler, implemented := s.handler.(handler.SemanticPromptHandler); implemented {
			if cmd.Continuation {
				handler.PromptContinuation()
			} else {
				handler.PromptStart(cmd.PromptAid, cmd.PromptRedraw)
			}
			return
		}

	case osc.KindPromptEnd:
		if handler, implemented := s.handler.(handler.SemanticPromptHandler); implemented {
			handler.PromptEnd()
			return
		}

	case osc.KindEndOfInput:
		if handler, implemented := s.handler.(handler.SemanticPromptHandler); implemented {
			handler.EndOfInput()
			return
		}

	case osc.KindEndOfCommand:
		if handler, implemented := s.handler.(handler.SemanticPromptHandler); implemented {
			var exitCode *int
			if cmd.HasExitCode {
				exitCode = &cmd.ExitCode
			}
			handler.EndOfCommand(exitCode)
			return
		}
	}

	s.logger.Debug("unhandled OSC command", "kind", cmd.Kind)
}

// consumeUntilGround reads the stream until we reach the ground state,
// then returns the number of bytes consumed.
func (s *Stream) consumeUntilGround(input []uint8) int {
	offset := 0
	for s.parser.State != parser.StateGround {
		if offset >= len(input) {
			return len(input)
		}
		s.nextNonUtf8(input[offset])
		offset += 1
	}
	return offset
}

// Parse escape sequences back-to-back until none are left.
// Returns the number of bytes consumed from the provided input.
//
// Expects input to start with ansi ESC, use consumeUntilGround first
// if the stream is in the middle of an escape sequence.
func (s *Stream) consumeAllEscapes(input []uint8) int {
	offset := 0
	for offset < len(input) && input[offset] == ansi.C0.ESC {
		s.parser.State = parser.StateEscape
		s.parser.Clear()
		offset += 1
		offset += s.consumeUntilGround(input[offset:])
		if offset >= len(input) {
			return len(input)
		}
	}
	return offset
}
