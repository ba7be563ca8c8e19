package dcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedPayload(h *Handler, payload string) {
	for i := 0; i < len(payload); i++ {
		h.Put(payload[i])
	}
}

func TestHandler_XTGETTCAPRoundTrip(t *testing.T) {
	h := NewHandler()
	h.Hook(&DCS{Intermediates: []uint8{'+'}, Final: 'q'})
	feedPayload(h, "544e")

	cmd := h.Unhook()
	require.NotNil(t, cmd)
	assert.Equal(t, CommandTypeXTGETTCAP, cmd.Type)

	cap, ok := cmd.NextCapability()
	require.True(t, ok)
	assert.Equal(t, []byte("544e"), cap)

	_, ok = cmd.NextCapability()
	assert.False(t, ok)
}

func TestHandler_XTGETTCAPChainedCapabilities(t *testing.T) {
	h := NewHandler()
	h.Hook(&DCS{Intermediates: []uint8{'+'}, Final: 'q'})
	feedPayload(h, "544e;;436f")

	cmd := h.Unhook()
	require.NotNil(t, cmd)

	var caps []string
	for {
		cap, ok := cmd.NextCapability()
		if !ok {
			break
		}
		caps = append(caps, string(cap))
	}
	// Empty segments come through so the replier can refuse them
	// individually.
	assert.Equal(t, []string{"544e", "", "436f"}, caps)
}

func TestHandler_DECRQSSSettings(t *testing.T) {
	cases := []struct {
		payload string
		want    DECRQSSSetting
	}{
		{"m", DECRQSSSettingSGR},
		{"r", DECRQSSSettingDECSTBM},
		{"s", DECRQSSSettingDECSLRM},
		{" q", DECRQSSSettingDECSCUSR},
		{"z", DECRQSSSettingNone},
		{"", DECRQSSSettingNone},
	}

	for _, tc := range cases {
		h := NewHandler()
		h.Hook(&DCS{Intermediates: []uint8{'$'}, Final: 'q'})
		feedPayload(h, tc.payload)

		cmd := h.Unhook()
		require.NotNil(t, cmd, "payload %q", tc.payload)
		assert.Equal(t, CommandTypeDECRQSS, cmd.Type)
		assert.Equal(t, tc.want, cmd.Setting, "payload %q", tc.payload)
	}
}

func TestHandler_DECRQSSOverflowIgnored(t *testing.T) {
	h := NewHandler()
	h.Hook(&DCS{Intermediates: []uint8{'$'}, Final: 'q'})
	feedPayload(h, " qx")

	assert.Nil(t, h.Unhook())
}

func TestHandler_XTGETTCAPOverflowIgnored(t *testing.T) {
	h := NewHandler()
	h.Hook(&DCS{Intermediates: []uint8{'+'}, Final: 'q'})
	for range MaxBufferSize + 1 {
		h.Put('a')
	}

	assert.Nil(t, h.Unhook())
}

func TestHandler_UnknownHookIgnored(t *testing.T) {
	for _, dcs := range []*DCS{
		{Final: 'q'},
		{Intermediates: []uint8{'!'}, Final: 'q'},
		{Intermediates: []uint8{'+'}, Final: 'p'},
		{Intermediates: []uint8{'+', '$'}, Final: 'q'},
	} {
		h := NewHandler()
		h.Hook(dcs)
		feedPayload(h, "544e")
		assert.Nil(t, h.Unhook(), "dcs %s", dcs)
	}
}

func TestHandler_HookDiscardsActiveSequence(t *testing.T) {
	h := NewHandler()
	h.Hook(&DCS{Intermediates: []uint8{'+'}, Final: 'q'})
	feedPayload(h, "dead")

	// A second hook without an unhook starts fresh.
	h.Hook(&DCS{Intermediates: []uint8{'+'}, Final: 'q'})
	feedPayload(h, "544e")

	cmd := h.Unhook()
	require.NotNil(t, cmd)
	assert.Equal(t, []byte("544e"), cmd.Data)
}

func TestHandler_PutBeforeHookIsDropped(t *testing.T) {
	h := NewHandler()
	feedPayload(h, "544e")
	assert.Nil(t, h.Unhook())

	// The stray bytes must not leak into the next sequence.
	h.Hook(&DCS{Intermediates: []uint8{'+'}, Final: 'q'})
	feedPayload(h, "436f")
	cmd := h.Unhook()
	require.NotNil(t, cmd)
	assert.Equal(t, []byte("436f"), cmd.Data)
}
