package csi

import (
	"fmt"

	"github.com/hnimtadd/termcore/terminal/utils"
)

type Command struct {
	Intermediates []uint8
	Params        []uint16
	ParamsSet     *utils.StaticBitSet
	Final         uint8
}

func (c Command) String() string {
	return fmt.Sprintf("CSI %v %v %v", c.Intermediates, c.Params, c.Final)
}

// Erase in Display mode
type EDMode uint8

const (
	EDModeBelow      EDMode = 0
	EDModeAbove      EDMode = 1
	EDModeComplete   EDMode = 2
	EDModeScrollback EDMode = 3
)

// Erase in Line mode
type ELMode uint8

const (
	ELModeRight ELMode = 0
	ELModeLeft  ELMode = 1
	ELModeAll   ELMode = 2
)

// Tab clear mode (TBC)
type TabClearMode uint8

const (
	TabClearCurrent TabClearMode = 0
	TabClearAll     TabClearMode = 3
)

// Cursor style selected by DECSCUSR. Zero and one are both the
// blinking block; zero additionally restores the configured default.
type CursorStyle uint8

const (
	CursorStyleDefault           CursorStyle = 0
	CursorStyleBlinkingBlock     CursorStyle = 1
	CursorStyleSteadyBlock       CursorStyle = 2
	CursorStyleBlinkingUnderline CursorStyle = 3
	CursorStyleSteadyUnderline   CursorStyle = 4
	CursorStyleBlinkingBar       CursorStyle = 5
	CursorStyleSteadyBar         CursorStyle = 6
)

// Device attribute request flavor (DA1, DA2, DA3).
type DeviceAttributeReq uint8

const (
	DeviceAttributePrimary DeviceAttributeReq = iota
	DeviceAttributeSecondary
	DeviceAttributeTertiary
)

// Device status request flavor (DSR).
type DeviceStatusReq uint8

const (
	// Operating status, answered with "OK".
	DeviceStatusOperating DeviceStatusReq = iota
	// Cursor position report.
	DeviceStatusCursorPosition
	// Cursor position report in the DEC private form.
	DeviceStatusCursorPositionDec
)
