package dcs

import "github.com/hnimtadd/termcore/logger"

// MaxBufferSize bounds the accumulated payload of a single device
// control string so hostile input cannot grow memory without limit.
const MaxBufferSize = 1024

type state int

const (
	stateInactive state = iota
	// stateIgnore swallows the payload of a hooked sequence that was
	// not recognized or that overflowed.
	stateIgnore
	stateXTGETTCAP
	stateDECRQSS
)

// Handler tracks one device control string between hook and unhook.
// Hook classifies the sequence, Put collects payload bytes, Unhook
// produces the decoded command.
type Handler struct {
	state state
	buf   []byte

	decrqss    [2]byte
	decrqssLen int

	logger logger.Logger
}

func NewHandler() *Handler {
	return &Handler{
		buf:    make([]byte, 0, 128),
		logger: logger.DefaultLogger,
	}
}

// Hook begins a new device control string. A still-active previous
// sequence is discarded first; the parser guarantees an unhook between
// hooks, but corrupted input must not wedge the handler.
func (h *Handler) Hook(cmd *DCS) {
	if h.state != stateInactive {
		h.logger.Debug("dcs: hook while active, discarding previous sequence")
	}
	h.reset()

	if len(cmd.Intermediates) != 1 || cmd.Final != 'q' {
		h.logger.Debug("dcs: unknown hook", "dcs", cmd.String())
		h.state = stateIgnore
		return
	}
	switch cmd.Intermediates[0] {
	case '+':
		h.state = stateXTGETTCAP
	case '$':
		h.state = stateDECRQSS
	default:
		h.logger.Debug("dcs: unknown hook", "dcs", cmd.String())
		h.state = stateIgnore
	}
}

// Put accumulates one payload byte. Overflow flips the sequence to
// ignored rather than truncating it, a clipped capability query would
// answer for the wrong capabilities.
func (h *Handler) Put(c uint8) {
	switch h.state {
	case stateInactive, stateIgnore:

	case stateXTGETTCAP:
		if len(h.buf) >= MaxBufferSize {
			h.logger.Warn("dcs: oversized sequence, ignoring")
			h.state = stateIgnore
			return
		}
		h.buf = append(h.buf, c)

	case stateDECRQSS:
		if h.decrqssLen >= len(h.decrqss) {
			h.state = stateIgnore
			return
		}
		h.decrqss[h.decrqssLen] = c
		h.decrqssLen++
	}
}

// Unhook finishes the sequence. It returns nil when the sequence was
// unrecognized or ignored.
func (h *Handler) Unhook() *Command {
	defer func() { h.state = stateInactive }()

	switch h.state {
	case stateXTGETTCAP:
		data := make([]byte, len(h.buf))
		copy(data, h.buf)
		return &Command{Type: CommandTypeXTGETTCAP, Data: data}

	case stateDECRQSS:
		cmd := &Command{Type: CommandTypeDECRQSS}
		switch h.decrqssLen {
		case 1:
			switch h.decrqss[0] {
			case 'm':
				cmd.Setting = DECRQSSSettingSGR
			case 'r':
				cmd.Setting = DECRQSSSettingDECSTBM
			case 's':
				cmd.Setting = DECRQSSSettingDECSLRM
			}
		case 2:
			if h.decrqss[0] == ' ' && h.decrqss[1] == 'q' {
				cmd.Setting = DECRQSSSettingDECSCUSR
			}
		}
		return cmd
	}
	return nil
}

func (h *Handler) reset() {
	h.state = stateInactive
	h.buf = h.buf[:0]
	h.decrqssLen = 0
}
