// Package dcs accumulates Device Control Strings between the hook,
// put, and unhook events emitted by the VT parser.
//
// Unlike OSC, a DCS payload can be unbounded (XTGETTCAP requests are
// chained with semicolons), so payload bytes stream through Put and
// the decoded command is only produced on Unhook.
package dcs

import (
	"bytes"
	"fmt"
)

// DCS is the parsed header of a device control string: params and
// intermediates between the introducer and the final byte, before any
// payload.
type DCS struct {
	Intermediates []uint8
	Params        []uint16
	Final         uint8
}

func (c *DCS) String() string {
	return fmt.Sprintf("DCS %v %v %v", c.Intermediates, c.Params, c.Final)
}

// CommandType identifies the decoded device control string.
type CommandType int

const (
	CommandTypeInvalid CommandType = iota

	// Terminfo capability query, DCS + q Pt ST.
	CommandTypeXTGETTCAP

	// Status string request, DCS $ q Pt ST.
	CommandTypeDECRQSS
)

func (t CommandType) String() string {
	switch t {
	case CommandTypeXTGETTCAP:
		return "XTGETTCAP"
	case CommandTypeDECRQSS:
		return "DECRQSS"
	default:
		return "Invalid"
	}
}

// DECRQSSSetting is the control function whose current value a DECRQSS
// request asks about.
type DECRQSSSetting int

const (
	DECRQSSSettingNone DECRQSSSetting = iota
	// Graphic rendition, payload "m".
	DECRQSSSettingSGR
	// Cursor style, payload " q".
	DECRQSSSettingDECSCUSR
	// Top/bottom margins, payload "r".
	DECRQSSSettingDECSTBM
	// Left/right margins, payload "s".
	DECRQSSSettingDECSLRM
)

// Command is a fully accumulated device control string. Only the
// fields relevant to Type are populated.
type Command struct {
	Type CommandType

	// XTGETTCAP payload: semicolon separated, hex encoded capability
	// names. Consume with NextCapability.
	Data []byte
	idx  int

	// DECRQSS payload.
	Setting DECRQSSSetting
}

// NextCapability returns the next requested capability name, and false
// once the payload is exhausted. Names stay hex encoded; reply tables
// key on the encoded form so decoding would be wasted work.
func (c *Command) NextCapability() ([]byte, bool) {
	if c.idx >= len(c.Data) {
		return nil, false
	}
	rem := c.Data[c.idx:]
	end := bytes.IndexByte(rem, ';')
	if end == -1 {
		end = len(rem)
	}
	c.idx += end + 1
	return rem[:end], true
}
