package core

import (
	"maps"
	"slices"
)

// A struct that maintains the state of all settable modes
type Mode struct {
	Name  string
	Value int
	// True if this is an ANSI mode
	Ansi    bool
	Default bool
}

func entryForMode(name string, value int, ansi bool, defaultMode bool) Mode {
	return Mode{
		Name:    name,
		Value:   value,
		Ansi:    ansi,
		Default: defaultMode,
	}
}

var (
	// ansi modes
	ModeDisableKeyboard = entryForMode("disable_keyboard", 2, true, false)  // KAM
	ModeInsert          = entryForMode("insert", 4, true, false)            // IRM
	ModeSendReceiveMode = entryForMode("send_receive_mode", 12, true, true) // SRM
	ModeLineFeed        = entryForMode("linefeed", 20, true, false)         // LNM

	// DEC modes
	ModeCursorKeys          = entryForMode("cursor_keys", 1, false, false)    // DECCKM
	Mode132Column           = entryForMode("132_column", 3, false, false)     // DECCOLM
	ModeReverseColors       = entryForMode("reverse_colors", 5, false, false) // DECSCNM
	ModeOrigin              = entryForMode("origin", 6, false, false)         // DECOM
	ModeWraparound          = entryForMode("wraparound", 7, false, true)      // DECAWM
	ModeMouseEventX10       = entryForMode("mouse_event_x10", 9, false, false)
	ModeCursorVisible       = entryForMode("cursor_visible", 25, false, true) // DECTCEM
	ModeEnableColumnMode    = entryForMode("enable_mode_3", 40, false, false)
	ModeReverseWrap         = entryForMode("reverse_wrap", 45, false, false)
	ModeAltScreenLegacy     = entryForMode("alt_screen_legacy", 47, false, false)
	ModeKeypadKeys          = entryForMode("keypad_keys", 66, false, false)                  // DECNKM
	ModeLeftRightMargins    = entryForMode("enable_left_and_right_margin", 69, false, false) // DECLRMM
	ModeSixelDisplay        = entryForMode("sixel_display_mode", 80, false, false)           // DECSDM
	ModeMouseEventNormal    = entryForMode("mouse_event_normal", 1000, false, false)
	ModeMouseEventButton    = entryForMode("mouse_event_button", 1002, false, false)
	ModeMouseEventAny       = entryForMode("mouse_event_any", 1003, false, false)
	ModeFocusEvent          = entryForMode("focus_event", 1004, false, false)
	ModeMouseFormatSGR      = entryForMode("mouse_format_sgr", 1006, false, false)
	ModeReverseWrapExtended = entryForMode("reverse_wrap_extended", 1045, false, false)
	ModeAltScreen           = entryForMode("alt_screen", 1047, false, false)
	ModeSaveCursor          = entryForMode("save_cursor", 1048, false, false)
	ModeAltScreenSaveClear  = entryForMode("alt_screen_save_cursor_clear", 1049, false, false)
	ModeBracketedPaste      = entryForMode("bracketed_paste", 2004, false, false)
	ModeSynchronizedOutput  = entryForMode("synchronized_output", 2026, false, false)
	ModeGraphemeCluster     = entryForMode("grapheme_cluster", 2027, false, false)

	// The full list of avialbe entries. For documentation on these modes, see
	// how they are used in the VT100 and ECMA-48 standards or google their values.
	entries = []Mode{
		ModeDisableKeyboard,
		ModeInsert,
		ModeSendReceiveMode,
		ModeLineFeed,
		ModeCursorKeys,
		Mode132Column,
		ModeReverseColors,
		ModeOrigin,
		ModeWraparound,
		ModeMouseEventX10,
		ModeCursorVisible,
		ModeEnableColumnMode,
		ModeReverseWrap,
		ModeAltScreenLegacy,
		ModeKeypadKeys,
		ModeLeftRightMargins,
		ModeSixelDisplay,
		ModeMouseEventNormal,
		ModeMouseEventButton,
		ModeMouseEventAny,
		ModeFocusEvent,
		ModeMouseFormatSGR,
		ModeReverseWrapExtended,
		ModeAltScreen,
		ModeSaveCursor,
		ModeAltScreenSaveClear,
		ModeBracketedPaste,
		ModeSynchronizedOutput,
		ModeGraphemeCluster,
	}
)

// A Packed map of all settable modes. This shouldn't be used directly but
// rather through the ModeState struct
var ModePacked = func() map[Mode]bool {
	packed := make(map[Mode]bool, len(entries))
	for _, m := range entries {
		packed[m] = m.Default
	}
	return packed
}()

type ModeState struct {
	// The values of current modes
	values map[Mode]bool
	// The default values of modes
	defaults map[Mode]bool
	// Snapshots taken by XTSAVE (CSI ? Pm s), consumed by XTRESTORE.
	saved map[Mode]bool
}

// NewModeState builds a mode table from the given initial values and
// defaults. Both maps are cloned: callers share templates like
// ModePacked across terminals and Set must never write through to them.
func NewModeState(values map[Mode]bool, def map[Mode]bool) *ModeState {
	state := &ModeState{
		defaults: maps.Clone(def),
		values:   maps.Clone(values),
		saved:    make(map[Mode]bool),
	}
	if state.values == nil {
		state.values = make(map[Mode]bool)
	}
	if state.defaults == nil {
		state.defaults = make(map[Mode]bool)
	}
	return state
}

func (s *ModeState) Set(m Mode, value bool) {
	s.values[m] = value
}

func (s *ModeState) Get(m Mode) bool {
	if value, ok := s.values[m]; ok {
		return value
	}
	return m.Default
}

// Save records the current value of the mode for a later Restore.
func (s *ModeState) Save(m Mode) {
	s.saved[m] = s.Get(m)
}

// Restore applies the previously saved value of the mode and returns
// it. A mode that was never saved restores to its default.
func (s *ModeState) Restore(m Mode) bool {
	value, ok := s.saved[m]
	if !ok {
		value = m.Default
	}
	s.values[m] = value
	return value
}

func (s *ModeState) Reset() {
	s.values = make(map[Mode]bool)
	maps.Copy(s.values, s.defaults)
	s.saved = make(map[Mode]bool)
}

func ModeFromInt(input int, ansi bool) *Mode {
	for entry := range slices.Values(entries) {
		if entry.Value == input && entry.Ansi == ansi {
			return &entry
		}
	}
	return nil
}

/* Helpful doc:
DECOM (originMode) doc: https://documentation.help/putty/config-decom.html
DECAWM/DECCOLM behavior: https://vt100.net/docs/vt510-rm/DECCOLM.html
*/
