package parser

// State transition table for VT emulation.
//
// This is based on the vt100.net state machine
// (https://vt100.net/emu/dec_ansi_parser) with the deviations modern
// terminals make:
//
//   - colon is a valid parameter separator in csi_param so that
//     colon-delimited SGR forms survive,
//   - OSC and APC strings accept the full 0x20-0xFF payload range so
//     that UTF-8 titles and image payloads pass through untouched,
//   - BEL terminates an OSC string,
//   - APC payload bytes produce apc_put.
//
// Every byte is defined for every state. Bytes with no explicit route
// stay in the current state and do nothing.
type parserTable [256][numStates]Transition

func newParserTable() *parserTable {
	t := new(parserTable)

	for c := 0; c <= 0xFF; c++ {
		for s := range numStates {
			t[c][s] = transition(State(s), ActionNone)
		}
	}

	allStates := []State{
		StateGround,
		StateEscape,
		StateEscapeIntermediate,
		StateCSIEntry,
		StateCSIParam,
		StateCSIIntermediate,
		StateCsiIgnore,
		StateDCSEntry,
		StateDCSParam,
		StateDCSIntermediate,
		StateDCSPassthrough,
		StateDCSIgnore,
		StateOSCString,
		StateSosPmApcString,
	}

	// anywhere
	for _, source := range allStates {
		// CAN and SUB abort any in-flight sequence. The parser
		// suppresses the end-of-string dispatches itself on these.
		t.addSingle(0x18, source, StateGround, ActionExecute)
		t.addSingle(0x1A, source, StateGround, ActionExecute)

		// => escape
		t.addSingle(0x1B, source, StateEscape, ActionNone)

		// Raw C1 controls. The string states are excluded so UTF-8
		// continuation bytes inside OSC and APC payloads survive;
		// those sequences terminate on BEL or ESC \ instead.
		if source == StateOSCString || source == StateSosPmApcString {
			continue
		}
		t.addRange(0x80, 0x8F, source, StateGround, ActionExecute)
		t.addRange(0x91, 0x97, source, StateGround, ActionExecute)
		t.addSingle(0x99, source, StateGround, ActionExecute)
		t.addSingle(0x9A, source, StateGround, ActionExecute)
		t.addSingle(0x9C, source, StateGround, ActionNone)

		// => sosPmApcString
		t.addSingle(0x98, source, StateSosPmApcString, ActionNone)
		t.addSingle(0x9E, source, StateSosPmApcString, ActionNone)
		t.addSingle(0x9F, source, StateSosPmApcString, ActionNone)

		// => dcsEntry
		t.addSingle(0x90, source, StateDCSEntry, ActionNone)

		// => oscString
		t.addSingle(0x9D, source, StateOSCString, ActionNone)

		// => csiEntry
		t.addSingle(0x9B, source, StateCSIEntry, ActionNone)
	}

	// ground
	{
		source := StateGround

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addRange(0x20, 0x7F, source, source, ActionPrint)

		// The stream layer decodes UTF-8 before the parser sees it,
		// but the parser stays usable on raw bytes.
		t.addRange(0xA0, 0xFF, source, source, ActionPrint)
	}

	// escape
	{
		source := StateEscape

		// => ground
		t.addRange(0x30, 0x4F, source, StateGround, ActionESCDispatch)
		t.addRange(0x51, 0x57, source, StateGround, ActionESCDispatch)
		t.addSingle(0x59, source, StateGround, ActionESCDispatch)
		t.addSingle(0x5A, source, StateGround, ActionESCDispatch)
		t.addSingle(0x5C, source, StateGround, ActionESCDispatch)
		t.addRange(0x60, 0x7E, source, StateGround, ActionESCDispatch)

		// => escapeIntermediate
		t.addRange(0x20, 0x2F, source, StateEscapeIntermediate, ActionCollect)

		// => sosPmApcString
		t.addSingle(0x58, source, StateSosPmApcString, ActionNone)
		t.addSingle(0x5E, source, StateSosPmApcString, ActionNone)
		t.addSingle(0x5F, source, StateSosPmApcString, ActionNone)

		// => dcsEntry
		t.addSingle(0x50, source, StateDCSEntry, ActionNone)

		// => oscString
		t.addSingle(0x5D, source, StateOSCString, ActionNone)

		// => csiEntry
		t.addSingle(0x5B, source, StateCSIEntry, ActionNone)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// escapeIntermediate
	{
		source := StateEscapeIntermediate

		// => ground
		t.addRange(0x30, 0x7E, source, StateGround, ActionESCDispatch)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addRange(0x20, 0x2F, source, source, ActionCollect)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// csiEntry
	{
		source := StateCSIEntry

		// => ground
		t.addRange(0x40, 0x7E, source, StateGround, ActionCSIDispatch)

		// => csiParam
		t.addRange(0x30, 0x39, source, StateCSIParam, ActionParam)
		t.addSingle(0x3B, source, StateCSIParam, ActionParam)
		t.addRange(0x3C, 0x3F, source, StateCSIParam, ActionCollect)

		// => csiIgnore
		t.addSingle(0x3A, source, StateCsiIgnore, ActionNone)

		// => csiIntermediate
		t.addRange(0x20, 0x2F, source, StateCSIIntermediate, ActionCollect)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// csiParam
	{
		source := StateCSIParam

		// => ground
		t.addRange(0x40, 0x7E, source, StateGround, ActionCSIDispatch)

		// => csiIgnore
		t.addRange(0x3C, 0x3F, source, StateCsiIgnore, ActionNone)

		// => csiIntermediate
		t.addRange(0x20, 0x2F, source, StateCSIIntermediate, ActionCollect)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addRange(0x30, 0x39, source, source, ActionParam)
		t.addSingle(0x3A, source, source, ActionParam)
		t.addSingle(0x3B, source, source, ActionParam)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// csiIntermediate
	{
		source := StateCSIIntermediate

		// => ground
		t.addRange(0x40, 0x7E, source, StateGround, ActionCSIDispatch)

		// => csiIgnore
		t.addRange(0x30, 0x3F, source, StateCsiIgnore, ActionNone)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addRange(0x20, 0x2F, source, source, ActionCollect)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// csiIgnore
	{
		source := StateCsiIgnore

		// => ground
		t.addRange(0x40, 0x7E, source, StateGround, ActionNone)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionExecute)
		t.addSingle(0x19, source, source, ActionExecute)
		t.addRange(0x1C, 0x1F, source, source, ActionExecute)
		t.addRange(0x20, 0x3F, source, source, ActionIgnore)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// dcsEntry
	{
		source := StateDCSEntry

		// => dcsIntermediate
		t.addRange(0x20, 0x2F, source, StateDCSIntermediate, ActionCollect)

		// => dcsIgnore
		t.addSingle(0x3A, source, StateDCSIgnore, ActionNone)

		// => dcsParam
		t.addRange(0x30, 0x39, source, StateDCSParam, ActionParam)
		t.addSingle(0x3B, source, StateDCSParam, ActionParam)
		t.addRange(0x3C, 0x3F, source, StateDCSParam, ActionCollect)

		// => dcsPassthrough
		t.addRange(0x40, 0x7E, source, StateDCSPassthrough, ActionNone)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionIgnore)
		t.addSingle(0x19, source, source, ActionIgnore)
		t.addRange(0x1C, 0x1F, source, source, ActionIgnore)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// dcsParam
	{
		source := StateDCSParam

		// => dcsIntermediate
		t.addRange(0x20, 0x2F, source, StateDCSIntermediate, ActionCollect)

		// => dcsIgnore
		t.addSingle(0x3A, source, StateDCSIgnore, ActionNone)
		t.addRange(0x3C, 0x3F, source, StateDCSIgnore, ActionNone)

		// => dcsPassthrough
		t.addRange(0x40, 0x7E, source, StateDCSPassthrough, ActionNone)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionIgnore)
		t.addSingle(0x19, source, source, ActionIgnore)
		t.addRange(0x1C, 0x1F, source, source, ActionIgnore)
		t.addRange(0x30, 0x39, source, source, ActionParam)
		t.addSingle(0x3B, source, source, ActionParam)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// dcsIntermediate
	{
		source := StateDCSIntermediate

		// => dcsIgnore
		t.addRange(0x30, 0x3F, source, StateDCSIgnore, ActionNone)

		// => dcsPassthrough
		t.addRange(0x40, 0x7E, source, StateDCSPassthrough, ActionNone)

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionIgnore)
		t.addSingle(0x19, source, source, ActionIgnore)
		t.addRange(0x1C, 0x1F, source, source, ActionIgnore)
		t.addRange(0x20, 0x2F, source, source, ActionCollect)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// dcsPassthrough
	{
		source := StateDCSPassthrough

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionDCSPut)
		t.addSingle(0x19, source, source, ActionDCSPut)
		t.addRange(0x1C, 0x1F, source, source, ActionDCSPut)
		t.addRange(0x20, 0x7E, source, source, ActionDCSPut)
		t.addSingle(0x7F, source, source, ActionIgnore)
	}

	// dcsIgnore
	{
		source := StateDCSIgnore

		// internal events
		t.addRange(0x00, 0x17, source, source, ActionIgnore)
		t.addSingle(0x19, source, source, ActionIgnore)
		t.addRange(0x1C, 0x1F, source, source, ActionIgnore)
		t.addRange(0x20, 0x7F, source, source, ActionIgnore)
	}

	// oscString
	{
		source := StateOSCString

		// BEL terminates the string in addition to ST. The dispatch
		// happens in the exit action.
		t.addSingle(0x07, source, StateGround, ActionNone)

		// internal events
		t.addRange(0x00, 0x06, source, source, ActionIgnore)
		t.addRange(0x08, 0x17, source, source, ActionIgnore)
		t.addSingle(0x19, source, source, ActionIgnore)
		t.addRange(0x1C, 0x1F, source, source, ActionIgnore)
		t.addRange(0x20, 0xFF, source, source, ActionOSCPut)
	}

	// sosPmApcString
	{
		source := StateSosPmApcString

		// internal events. The put only reaches the caller for APC
		// strings, SOS and PM payloads are dropped by the parser.
		t.addRange(0x00, 0x17, source, source, ActionIgnore)
		t.addSingle(0x19, source, source, ActionIgnore)
		t.addRange(0x1C, 0x1F, source, source, ActionIgnore)
		t.addRange(0x20, 0xFF, source, source, ActionAPCPut)
	}

	return t
}

func (t *parserTable) addSingle(c uint8, s0 State, s1 State, a ActionType) {
	t[c][s0] = transition(s1, a)
}

func (t *parserTable) addRange(from uint8, to uint8, s0 State, s1 State, a ActionType) {
	i := from
	for {
		t.addSingle(i, s0, s1, a)
		// If to is 0xFF, increasing i would overflow. Return early.
		if i == to {
			break
		}
		i++
	}
}

type Transition struct {
	state  State
	action ActionType
}

func transition(state State, action ActionType) Transition {
	return Transition{state: state, action: action}
}
