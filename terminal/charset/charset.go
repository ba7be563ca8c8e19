// charset implements the character set designation and invocation
// machinery (SCS, shift-in/shift-out, single shifts).
//
// This is implemented based on: https://vt100.net/docs/vt220-rm/chapter4.html
package charset

// Charset identifies a character set that can be designated into one of
// the four slots. Sets we cannot map designate ASCII.
type Charset uint8

const (
	CharsetUTF8 Charset = iota
	CharsetASCII
	CharsetBritish
	CharsetDecSpecial
)

// Map translates a 7-bit codepoint through the charset. Codepoints
// outside the 7-bit range pass through unchanged.
func (c Charset) Map(cp rune) rune {
	if cp >= 0x80 {
		return cp
	}
	switch c {
	case CharsetBritish:
		if cp == '#' {
			return '£'
		}
	case CharsetDecSpecial:
		if mapped, ok := decSpecial[cp]; ok {
			return mapped
		}
	}
	return cp
}

// decSpecial is the DEC Special Graphics (line drawing) set, designated
// with ESC ( 0. Values from: https://vt100.net/docs/vt220-rm/table2-4.html
var decSpecial = map[rune]rune{
	'`': '◆',
	'a': '▒',
	'b': '␉',
	'c': '␌',
	'd': '␍',
	'e': '␊',
	'f': '°',
	'g': '±',
	'h': '␤',
	'i': '␋',
	'j': '┘',
	'k': '┐',
	'l': '┌',
	'm': '└',
	'n': '┼',
	'o': '⎺',
	'p': '⎻',
	'q': '─',
	'r': '⎼',
	's': '⎽',
	't': '├',
	'u': '┤',
	'v': '┴',
	'w': '┬',
	'x': '│',
	'y': '≤',
	'z': '≥',
	'{': 'π',
	'|': '≠',
	'}': '£',
	'~': '·',
}

// Slot is one of the four designable charset slots G0-G3.
type Slot uint8

const (
	SlotG0 Slot = iota
	SlotG1
	SlotG2
	SlotG3
)

// ActiveSlot selects which half of the code table an invocation targets.
type ActiveSlot uint8

const (
	ActiveSlotGL ActiveSlot = iota
	ActiveSlotGR
)

// State tracks which charset occupies each slot and which slots are
// invoked for GL and GR. The zero value is not useful, use NewState.
type State struct {
	charsets [4]Charset
	gl       Slot
	gr       Slot

	// singleShift routes exactly one following printable through the
	// given slot (SS2/SS3).
	singleShift *Slot
}

// NewState returns the power-on charset state: UTF-8 everywhere, G0
// invoked into GL and G1 into GR.
func NewState() State {
	return State{
		charsets: [4]Charset{CharsetUTF8, CharsetUTF8, CharsetUTF8, CharsetUTF8},
		gl:       SlotG0,
		gr:       SlotG1,
	}
}

// Designate assigns a charset to a slot (ESC ( ) * + sequences).
func (s *State) Designate(slot Slot, set Charset) {
	s.charsets[slot] = set
}

// Designated returns the charset currently designated into the slot.
func (s *State) Designated(slot Slot) Charset {
	return s.charsets[slot]
}

// Invoke makes the slot active for GL (SI, SO, LS2, LS3) or GR.
func (s *State) Invoke(active ActiveSlot, slot Slot) {
	switch active {
	case ActiveSlotGL:
		s.gl = slot
	case ActiveSlotGR:
		s.gr = slot
	}
}

// SingleShift routes only the next printable through the slot (SS2/SS3).
func (s *State) SingleShift(slot Slot) {
	s.singleShift = &slot
}

// Map translates cp through the invoked charset, consuming a pending
// single shift if one is set.
func (s *State) Map(cp rune) rune {
	slot := s.gl
	if s.singleShift != nil {
		slot = *s.singleShift
		s.singleShift = nil
	}
	return s.charsets[slot].Map(cp)
}

// Reset restores the power-on charset state (RIS, DECSTR).
func (s *State) Reset() {
	*s = NewState()
}
