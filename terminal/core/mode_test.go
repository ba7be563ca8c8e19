package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ModeState(t *testing.T) {
	// Create a new mode state
	state := NewModeState(nil, nil)

	assert.False(
		t,
		state.Get(ModeDisableKeyboard),
		"Expected ModeDisableKeyboard to be false by default",
	)

	// Set the mode
	state.Set(ModeDisableKeyboard, true)

	// Check if the mode is set correctly
	assert.True(
		t,
		state.Get(ModeDisableKeyboard),
		"Expected ModeDisableKeyboard to be set to true",
	)

	// Unset the mode
	state.Set(ModeDisableKeyboard, false)

	// Check if the mode is unset correctly
	assert.False(
		t,
		state.Get(ModeDisableKeyboard),
		"Expected ModeDisableKeyboard to be set to false",
	)
}

func TestModeFromInput(t *testing.T) {
	mode := ModeFromInt(2, true)
	assert.NotNil(t, mode)
	assert.True(t, *mode == ModeDisableKeyboard)

	mode = ModeFromInt(4, true)
	assert.NotNil(t, mode)
	assert.True(t, *mode == ModeInsert)

	// DEC and ANSI modes share numbers but not identity.
	mode = ModeFromInt(6, false)
	assert.NotNil(t, mode)
	assert.True(t, *mode == ModeOrigin)

	mode = ModeFromInt(6, true)
	assert.Nil(t, mode)

	mode = ModeFromInt(2026, false)
	assert.NotNil(t, mode)
	assert.True(t, *mode == ModeSynchronizedOutput)
}

func TestModeDefaults(t *testing.T) {
	state := NewModeState(nil, nil)

	// Modes that were never set report their default value.
	assert.True(t, state.Get(ModeWraparound))
	assert.True(t, state.Get(ModeCursorVisible))
	assert.False(t, state.Get(ModeOrigin))

	state.Set(ModeWraparound, false)
	assert.False(t, state.Get(ModeWraparound))
}

func TestModeStateDoesNotAliasInput(t *testing.T) {
	// Two terminals built from the same template must not see each
	// other's mode changes, and the template itself stays pristine.
	a := NewModeState(ModePacked, ModePacked)
	b := NewModeState(ModePacked, ModePacked)

	a.Set(ModeBracketedPaste, true)
	assert.True(t, a.Get(ModeBracketedPaste))
	assert.False(t, b.Get(ModeBracketedPaste))
	assert.False(t, ModePacked[ModeBracketedPaste])

	// Reset restores the defaults as they were at construction.
	a.Reset()
	assert.False(t, a.Get(ModeBracketedPaste))
}

func TestModeSaveRestore(t *testing.T) {
	state := NewModeState(nil, nil)

	// XTSAVE the current (default-true) value, flip it, XTRESTORE.
	state.Save(ModeWraparound)
	state.Set(ModeWraparound, false)
	assert.False(t, state.Get(ModeWraparound))
	assert.True(t, state.Restore(ModeWraparound))
	assert.True(t, state.Get(ModeWraparound))

	// Restoring a mode that was never saved falls back to its default.
	state.Set(ModeOrigin, true)
	assert.False(t, state.Restore(ModeOrigin))
	assert.False(t, state.Get(ModeOrigin))
}
