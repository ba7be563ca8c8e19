package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharsetMap(t *testing.T) {
	tcs := []struct {
		name     string
		set      Charset
		in       rune
		expected rune
	}{
		{name: "utf8 passthrough", set: CharsetUTF8, in: 'x', expected: 'x'},
		{name: "ascii passthrough", set: CharsetASCII, in: '#', expected: '#'},
		{name: "british pound", set: CharsetBritish, in: '#', expected: '£'},
		{name: "british passthrough", set: CharsetBritish, in: 'a', expected: 'a'},
		{name: "dec special horizontal", set: CharsetDecSpecial, in: 'q', expected: '─'},
		{name: "dec special vertical", set: CharsetDecSpecial, in: 'x', expected: '│'},
		{name: "dec special corner", set: CharsetDecSpecial, in: 'l', expected: '┌'},
		{name: "dec special diamond", set: CharsetDecSpecial, in: '`', expected: '◆'},
		{name: "dec special passthrough", set: CharsetDecSpecial, in: 'A', expected: 'A'},
		{name: "dec special high bit untouched", set: CharsetDecSpecial, in: 'é', expected: 'é'},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.set.Map(tc.in))
		})
	}
}

func TestStateDesignateInvoke(t *testing.T) {
	state := NewState()
	assert.Equal(t, 'q', state.Map('q'))

	// ESC ( 0 then the set is live immediately since G0 is in GL.
	state.Designate(SlotG0, CharsetDecSpecial)
	assert.Equal(t, '─', state.Map('q'))
	assert.Equal(t, CharsetDecSpecial, state.Designated(SlotG0))

	// Shift out to G1 which still holds UTF-8.
	state.Invoke(ActiveSlotGL, SlotG1)
	assert.Equal(t, 'q', state.Map('q'))

	// Shift back in.
	state.Invoke(ActiveSlotGL, SlotG0)
	assert.Equal(t, '─', state.Map('q'))
}

func TestStateSingleShift(t *testing.T) {
	state := NewState()
	state.Designate(SlotG2, CharsetDecSpecial)

	// SS2 maps exactly one printable through G2.
	state.SingleShift(SlotG2)
	assert.Equal(t, '─', state.Map('q'))
	assert.Equal(t, 'q', state.Map('q'))
}

func TestStateReset(t *testing.T) {
	state := NewState()
	state.Designate(SlotG0, CharsetBritish)
	state.Invoke(ActiveSlotGL, SlotG3)
	state.SingleShift(SlotG2)

	state.Reset()
	assert.Equal(t, CharsetUTF8, state.Designated(SlotG0))
	assert.Equal(t, '#', state.Map('#'))
}
