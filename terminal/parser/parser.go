package parser

import (
	"math"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/sequences/csi"
	"github.com/hnimtadd/termcore/terminal/sequences/dcs"
	"github.com/hnimtadd/termcore/terminal/sequences/esc"
	"github.com/hnimtadd/termcore/terminal/sequences/osc"
	"github.com/hnimtadd/termcore/terminal/utils"
)

const (
	// MaxParams is the number of full (semicolon separated) parameters
	// a sequence can carry. Excess parameters are dropped silently and
	// the dispatch still fires, matching XTerm.
	MaxParams = 16

	// MaxSubParams is the number of colon subparameters one parameter
	// can carry.
	MaxSubParams = 4

	// MaxIntermediates is the number of intermediate bytes kept.
	MaxIntermediates = 2

	// maxParamSlots sizes the flat parameter buffer: every parameter
	// plus its subparameters occupies one slot each.
	maxParamSlots = MaxParams * (MaxSubParams + 1)
)

// The transition table is immutable after construction so a single
// instance is shared by every parser.
var sharedTable = newParserTable()

// VT-series parser for escape and control sequences.
//
// This is implemented directly as the state machine described on
// vt100.net: https://vt100.net/emu/dec_ansi_parser
type Parser struct {
	State State

	// intermediate tracking
	intermediates    [MaxIntermediates]uint8
	intermediatesIdx int

	// Parameters are stored flat; a parameter followed by a colon has
	// its bit set in paramsSet, joining it to the next slot.
	params      [maxParamSlots]uint16
	paramsIdx   int
	paramsSet   *utils.StaticBitSet
	paramAcc    uint16
	paramAccIdx int

	// Capacity bookkeeping for the silent-drop behavior.
	paramCount     int
	subParamCount  int
	paramsOverflow bool

	// Set while inside an APC string that was entered through the APC
	// introducer. SOS and PM strings share the state but their bytes
	// never reach the caller.
	apc bool

	oscParser *osc.Parser
	table     *parserTable

	logger logger.Logger
}

func NewParser() *Parser {
	return &Parser{
		State:     StateGround,
		table:     sharedTable,
		paramsSet: utils.NewStaticBitSet(maxParamSlots),
		oscParser: osc.NewParser(),
		logger:    logger.DefaultLogger,
	}
}

// Next consumes the next character c and returns the actions to execute.
//
// # Up to 3 actions may need to be executed
//
// When going from one state to another state, the actions take place
// in this order
//
// 1. exit action from old state
//
// 2. transition action
//
// 3. entry action to new state
func (p *Parser) Next(c uint8) [3]*Action {
	effect := p.table[c][p.State]

	nextState := effect.state
	action := effect.action

	// CAN and SUB cancel in-flight sequences without emitting the
	// end-of-string dispatches.
	abort := c == 0x18 || c == 0x1A

	// after generating the actions, we set our next state
	defer func() {
		p.State = nextState
	}()

	actions := [3]*Action{}

	// Exit action from old state
	{
		var exitAction *Action = nil
		if p.State != nextState && !abort {
			switch p.State {
			case StateOSCString:
				// oscEnd
				if cmd := p.oscParser.End(); cmd != nil {
					exitAction = &Action{
						Type:            ActionOSCEnd,
						OSCDispatchData: cmd,
					}
				}
			case StateDCSPassthrough:
				// DCSUnhook
				exitAction = &Action{
					Type: ActionDCSUnHook,
				}
			case StateSosPmApcString:
				if p.apc {
					exitAction = &Action{Type: ActionAPCEnd}
				}
			}
		}
		if p.State == StateSosPmApcString && p.State != nextState {
			p.apc = false
		}
		actions[0] = exitAction
	}

	// transition action
	{
		actions[1] = p.doAction(action, c)
	}

	// entry action
	{
		var entryAction *Action = nil
		if p.State != nextState {
			switch nextState {
			case StateEscape, StateDCSEntry, StateCSIEntry:
				p.Clear()
			case StateOSCString:
				// entry/osc_start
				p.oscParser.Reset()
			case StateSosPmApcString:
				// Only the APC introducers produce events; SOS and PM
				// strings are consumed silently.
				p.apc = c == 0x5F || c == 0x9F
				if p.apc {
					entryAction = &Action{Type: ActionAPCStart}
				}
			case StateDCSPassthrough:
				// entry/hook. This is invoked when the final character
				// of the DCS header arrives.
				p.finalizeParams()
				entryAction = &Action{
					Type: ActionDCSHook,
					DCSHookData: &dcs.DCS{
						Intermediates: p.intermediates[:p.intermediatesIdx],
						Params:        p.params[:p.paramsIdx],
						Final:         c,
					},
				}
			}
		}
		actions[2] = entryAction
	}

	return actions
}

func (p *Parser) doAction(actionType ActionType, c uint8) (action *Action) {
	switch actionType {
	case ActionIgnore, ActionNone:
		return
	case ActionPrint:
		return &Action{Type: ActionPrint, PrintData: c}
	case ActionExecute:
		return &Action{Type: ActionExecute, ExecuteData: c}
	case ActionCollect:
		p.Collect(c)
		return
	case ActionParam:
		// Separators store the accumulated value and move on to the
		// next slot. Everything else is a digit.
		switch c {
		case ';':
			p.endParam(false)
		case ':':
			p.endParam(true)
		default:
			// A numeric value. Accumulate, saturating at the uint16
			// limit like XTerm rather than wrapping.
			acc, overflow := utils.AddWithOverflow(int(p.paramAcc)*10, int(c-'0'))
			if overflow {
				acc = math.MaxUint16
			}
			p.paramAcc = uint16(acc)

			// Increment our accumulator index. If we overflow then
			// we're out of bounds and we exit immediately.
			nextAccIdx, overflow := utils.AddWithOverflow(p.paramAccIdx, 1)
			if overflow {
				return
			}
			p.paramAccIdx = nextAccIdx
		}
		// The client is expected to perform no action.
		return
	case ActionESCDispatch:
		return &Action{
			Type: ActionESCDispatch,
			ESCDispatchData: &esc.Command{
				Intermediates: p.intermediates[:p.intermediatesIdx],
				Final:         c,
			},
		}
	case ActionCSIDispatch:
		p.finalizeParams()
		action = &Action{
			Type: ActionCSIDispatch,
			CSIDispatchData: &csi.Command{
				Intermediates: p.intermediates[:p.intermediatesIdx],
				Params:        p.params[:p.paramsIdx],
				ParamsSet:     p.paramsSet,
				Final:         c,
			},
		}

		// We only allow colon or mixed separators for the 'm' command.
		if c != 'm' && p.paramsSet.Count() > 0 {
			p.logger.Warn(
				"CSI colon or mixed separators only allowed for 'm' command",
				"got",
				action,
			)
			return nil
		}
		return
	case ActionDCSPut:
		// dcsPut event inside StateDCSPassthrough
		return &Action{
			Type:       ActionDCSPut,
			DCSPutData: c,
		}
	case ActionOSCPut:
		p.oscParser.Next(c)
		return
	case ActionAPCPut:
		if !p.apc {
			return
		}
		return &Action{
			Type:       ActionAPCPut,
			APCPutData: c,
		}
	default:
		p.logger.Warn("Unknown action", "type", actionType)
		return nil
	}
}

// endParam stores the accumulated value when a separator arrives.
// colon reports whether the separator was a colon, joining this value
// to the next as a subparameter group.
func (p *Parser) endParam(colon bool) {
	defer func() {
		p.paramAcc = 0
		p.paramAccIdx = 0
	}()

	// Parameters past the capacity vanish but parsing continues.
	if p.paramCount >= MaxParams || p.paramsOverflow {
		if !colon {
			p.paramsOverflow = false
			p.subParamCount = 0
			p.paramCount++
		}
		return
	}

	if colon && p.subParamCount >= MaxSubParams {
		// This value is the last subparameter with room; the one the
		// colon announces is dropped. Store the value but leave the
		// separator bit clear so the group ends cleanly here.
		p.params[p.paramsIdx] = p.paramAcc
		p.paramsIdx++
		p.paramsOverflow = true
		return
	}

	p.params[p.paramsIdx] = p.paramAcc
	if colon {
		p.paramsSet.Set(p.paramsIdx)
		p.subParamCount++
	} else {
		p.subParamCount = 0
		p.paramCount++
	}
	p.paramsIdx++
}

// finalizeParams stores a still-accumulating value when the final byte
// of a CSI or DCS header arrives. A trailing empty parameter is not
// stored, matching XTerm.
func (p *Parser) finalizeParams() {
	if p.paramAccIdx > 0 {
		p.endParam(false)
	}
}

func (p *Parser) Collect(c uint8) {
	if p.intermediatesIdx >= MaxIntermediates {
		p.logger.Warn("Too many intermediates, ignoring", "codepoint", c)
		return
	}
	p.intermediates[p.intermediatesIdx] = c
	p.intermediatesIdx += 1
}

func (p *Parser) Clear() {
	p.paramsIdx = 0
	p.paramAcc = 0
	p.paramAccIdx = 0
	p.paramCount = 0
	p.subParamCount = 0
	p.paramsOverflow = false
	p.paramsSet.Clear()
	p.intermediatesIdx = 0
}
