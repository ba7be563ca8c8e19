package sgr

import (
	"iter"
	"testing"

	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/hnimtadd/termcore/terminal/utils"
	"github.com/stretchr/testify/assert"
)

func TestParserNext(t *testing.T) {
	tests := []struct {
		name      string
		params    []uint16
		paramsSep *utils.StaticBitSet
		expected  *Attribute
	}{
		{
			name:      "[]: unset",
			params:    []uint16{},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  &Attribute{Type: AttributeTypeUnset},
		},
		{
			name:      "[0]: unset",
			params:    []uint16{0},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  &Attribute{Type: AttributeTypeUnset},
		},
		{
			name:      "[38, 2, 40, 44, 52]: direct color fg",
			params:    []uint16{38, 2, 40, 44, 52},
			paramsSep: utils.NewStaticBitSet(5),
			expected: &Attribute{
				Type:          AttributeTypeDirectColorFg,
				DirectColorFg: color.RGB{R: 40, G: 44, B: 52},
			},
		},
		{
			name:      "[38, 2, 44, 52]: unknown",
			params:    []uint16{38, 2, 44, 52},
			paramsSep: utils.NewStaticBitSet(4),
			expected:  nil,
		},
		{
			name:      "[48, 2, 40, 44, 52]: direct color bg",
			params:    []uint16{48, 2, 40, 44, 52},
			paramsSep: utils.NewStaticBitSet(5),
			expected: &Attribute{
				Type:          AttributeTypeDirectColorBg,
				DirectColorBg: color.RGB{R: 40, G: 44, B: 52},
			},
		},
		{
			name:      "[38, 2, 44, 52]: unknown",
			params:    []uint16{38, 2, 44, 52},
			paramsSep: utils.NewStaticBitSet(4),
			expected:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Parser{
				Params:    tc.params,
				ParamsSep: tc.paramsSep,
			}
			pull, stop := iter.Pull(p.Iter())
			defer stop()
			got, ok := pull()
			assert.True(t, ok)
			assert.EqualValues(t, tc.expected, got)
		})
	}
}

func TestParserNextMultiple(t *testing.T) {
	t.Run("[0, 38, 2, 40, 44, 52]: unset, DirectColorFg", func(t *testing.T) {
		parser := Parser{
			Params:    []uint16{0, 38, 2, 40, 44, 52},
			ParamsSep: utils.NewStaticBitSet(6),
		}
		pull, cls := iter.Pull(parser.Iter())
		defer cls()
		attr, ok := pull()
		assert.True(t, ok)
		assert.NotNil(t, attr)
		assert.Equal(t, AttributeTypeUnset, attr.Type)

		attr, ok = pull()
		assert.True(t, ok)
		assert.NotNil(t, attr)
		assert.Equal(t, AttributeTypeDirectColorFg, attr.Type)
		assert.Equal(t, color.RGB{R: 40, G: 44, B: 52}, attr.DirectColorFg)

		attr, ok = pull()
		assert.True(t, ok) // We don't mark the parsernext to done here
		assert.Nil(t, attr)

		attr, ok = pull()
		assert.False(t, ok)
		assert.Nil(t, attr)
	})
}

func TestUnsupportedWithColon(t *testing.T) {
	t.Run("sgr: unsupported with colon", func(t *testing.T) {
		sepList := utils.NewStaticBitSet(3)
		sepList.Set(0)
		parser := Parser{
			Params:    []uint16{0, 4, 1},
			ParamsSep: sepList,
		}
		pull, cls := iter.Pull(parser.Iter())
		defer cls()

		attr, ok := pull()
		assert.True(t, ok)
		assert.NotNil(t, attr)
		assert.Equal(t, AttributeTypeUnknown, attr.Type)

		attr, ok = pull()
		assert.True(t, ok)
		assert.NotNil(t, attr)
		assert.Equal(t, AttributeTypeBold, attr.Type)

		attr, ok = pull()
		assert.True(t, ok) // We don't mark the parsernext to done here
		assert.Nil(t, attr)

		attr, ok = pull()
		assert.False(t, ok)
		assert.Nil(t, attr)
	})
}

func TestParserWithSingleAttribute(t *testing.T) {
	tests := []struct {
		name      string
		params    []uint16
		paramsSep *utils.StaticBitSet
		expected  AttributeType
	}{
		{
			name:      "sgr: bold",
			params:    []uint16{1},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeBold,
		},
		{
			name:      "sgr: reset bold",
			params:    []uint16{22},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetBold,
		},
		{
			name:      "sgr: italic",
			params:    []uint16{3},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeItalic,
		},
		{
			name:      "sgr: reset italic",
			params:    []uint16{23},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetItalic,
		},
		{
			name:      "sgr: underline",
			params:    []uint16{4},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeUnderline,
		},
		{
			name:      "sgr: resetUnderLine",
			params:    []uint16{24},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetUnderline,
		},
		{
			name:      "sgr: overline",
			params:    []uint16{53},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeOverline,
		},
		{
			name:      "sgr: reset overline",
			params:    []uint16{55},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetOverline,
		},
		{
			name:      "sgr: invisible",
			params:    []uint16{8},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeInvisible,
		},
		{
			name:      "sgr: reset invisible",
			params:    []uint16{28},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetInvisible,
		},
		{
			name:      "sgr: blink",
			params:    []uint16{5},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeBlink,
		},
		{
			name:      "sgr: blink",
			params:    []uint16{6},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeBlink,
		},
		{
			name:      "sgr: reset Blink",
			params:    []uint16{25},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetBlink,
		},
		{
			name:      "sgr: inverse",
			params:    []uint16{7},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeInverse,
		},
		{
			name:      "sgr: reset inverse",
			params:    []uint16{27},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetInverse,
		},
		{
			name:      "sgr: strikethrough",
			params:    []uint16{9},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeStrikethrough,
		},
		{
			name:      "sgr: reset strikethrough",
			params:    []uint16{29},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetStrikethrough,
		},
		{
			name:      "sgr: reset fg",
			params:    []uint16{39},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetFg,
		},
		{
			name:      "sgr: reset bg",
			params:    []uint16{49},
			paramsSep: utils.NewStaticBitSet(1),
			expected:  AttributeTypeResetBg,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Parser{
				Params:    tc.params,
				ParamsSep: tc.paramsSep,
			}
			pull, stop := iter.Pull(p.Iter())
			defer stop()
			got, ok := pull()
			assert.True(t, ok)
			assert.EqualValues(t, tc.expected, got.Type)
		})
	}
}

func TestParserNamedColors(t *testing.T) {
	tests := []struct {
		name     string
		params   []uint16
		expected *Attribute
	}{
		{
			name:   "[31]: red fg",
			params: []uint16{31},
			expected: &Attribute{
				Type:   AttributeType8ColorFg,
				Color8: color.ColorTypeRed,
			},
		},
		{
			name:   "[37]: white fg",
			params: []uint16{37},
			expected: &Attribute{
				Type:   AttributeType8ColorFg,
				Color8: color.ColorTypeWhite,
			},
		},
		{
			name:   "[44]: blue bg",
			params: []uint16{44},
			expected: &Attribute{
				Type:   AttributeType8ColorBg,
				Color8: color.ColorTypeBlue,
			},
		},
		{
			name:   "[90]: bright black fg",
			params: []uint16{90},
			expected: &Attribute{
				Type:   AttributeType8BrightColorFg,
				Color8: color.ColorTypeBrightBlack,
			},
		},
		{
			name:   "[97]: bright white fg",
			params: []uint16{97},
			expected: &Attribute{
				Type:   AttributeType8BrightColorFg,
				Color8: color.ColorTypeBrightWhite,
			},
		},
		{
			name:   "[103]: bright yellow bg",
			params: []uint16{103},
			expected: &Attribute{
				Type:   AttributeType8BrightColorBg,
				Color8: color.ColorTypeBrightYellow,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Parser{
				Params:    tc.params,
				ParamsSep: utils.NewStaticBitSet(len(tc.params)),
			}
			pull, stop := iter.Pull(p.Iter())
			defer stop()
			got, ok := pull()
			assert.True(t, ok)
			assert.EqualValues(t, tc.expected, got)
		})
	}
}

func TestParser256Colors(t *testing.T) {
	t.Run("[38, 5, 123]: 256 fg", func(t *testing.T) {
		p := Parser{
			Params:    []uint16{38, 5, 123},
			ParamsSep: utils.NewStaticBitSet(3),
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType256ColorFg, got.Type)
		assert.Equal(t, uint8(123), got.Color256)
	})

	t.Run("[48, 5, 16]: 256 bg", func(t *testing.T) {
		p := Parser{
			Params:    []uint16{48, 5, 16},
			ParamsSep: utils.NewStaticBitSet(3),
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType256ColorBg, got.Type)
		assert.Equal(t, uint8(16), got.Color256)
	})

	t.Run("[58, 5, 99]: 256 underline color", func(t *testing.T) {
		p := Parser{
			Params:    []uint16{58, 5, 99},
			ParamsSep: utils.NewStaticBitSet(3),
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType256UnderlineColor, got.Type)
		assert.Equal(t, uint8(99), got.Color256)
	})

	t.Run("[38:5:123]: 256 fg colon form", func(t *testing.T) {
		sep := utils.NewStaticBitSet(3)
		sep.Set(0)
		sep.Set(1)
		p := Parser{
			Params:    []uint16{38, 5, 123},
			ParamsSep: sep,
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType256ColorFg, got.Type)
		assert.Equal(t, uint8(123), got.Color256)
	})

	t.Run("[38, 5, 300]: index clamps to 255", func(t *testing.T) {
		p := Parser{
			Params:    []uint16{38, 5, 300},
			ParamsSep: utils.NewStaticBitSet(3),
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType256ColorFg, got.Type)
		assert.Equal(t, uint8(255), got.Color256)
	})

	t.Run("[38, 5, 10, 31]: trailing attributes still parse", func(t *testing.T) {
		p := Parser{
			Params:    []uint16{38, 5, 10, 31},
			ParamsSep: utils.NewStaticBitSet(4),
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()

		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType256ColorFg, got.Type)
		assert.Equal(t, uint8(10), got.Color256)

		got, ok = pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeType8ColorFg, got.Type)
		assert.Equal(t, color.ColorTypeRed, got.Color8)
	})
}

func TestParserDirectColorColon(t *testing.T) {
	t.Run("[38:2:40:44:52]: direct color fg", func(t *testing.T) {
		sep := utils.NewStaticBitSet(5)
		for i := range 4 {
			sep.Set(i)
		}
		p := Parser{
			Params:    []uint16{38, 2, 40, 44, 52},
			ParamsSep: sep,
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeTypeDirectColorFg, got.Type)
		assert.Equal(t, color.RGB{R: 40, G: 44, B: 52}, got.DirectColorFg)
	})

	t.Run("[38:2:0:40:44:52]: direct color fg with colorspace", func(t *testing.T) {
		sep := utils.NewStaticBitSet(6)
		for i := range 5 {
			sep.Set(i)
		}
		p := Parser{
			Params:    []uint16{38, 2, 0, 40, 44, 52},
			ParamsSep: sep,
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeTypeDirectColorFg, got.Type)
		assert.Equal(t, color.RGB{R: 40, G: 44, B: 52}, got.DirectColorFg)
	})
}

func TestParserUnderlineStyles(t *testing.T) {
	tests := []struct {
		name     string
		style    uint16
		expected UnderlineType
	}{
		{name: "4:1 single", style: 1, expected: UnderlineTypeSingle},
		{name: "4:2 double", style: 2, expected: UnderlineTypeDouble},
		{name: "4:3 curly", style: 3, expected: UnderlineTypeCurly},
		{name: "4:4 dotted", style: 4, expected: UnderlineTypeDotted},
		{name: "4:5 dashed", style: 5, expected: UnderlineTypedashed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sep := utils.NewStaticBitSet(2)
			sep.Set(0)
			p := Parser{
				Params:    []uint16{4, tc.style},
				ParamsSep: sep,
			}
			pull, stop := iter.Pull(p.Iter())
			defer stop()
			got, ok := pull()
			assert.True(t, ok)
			assert.Equal(t, AttributeTypeUnderline, got.Type)
			assert.Equal(t, tc.expected, got.Underline)
		})
	}

	t.Run("4:0 reset", func(t *testing.T) {
		sep := utils.NewStaticBitSet(2)
		sep.Set(0)
		p := Parser{
			Params:    []uint16{4, 0},
			ParamsSep: sep,
		}
		pull, stop := iter.Pull(p.Iter())
		defer stop()
		got, ok := pull()
		assert.True(t, ok)
		assert.Equal(t, AttributeTypeResetUnderline, got.Type)
	})
}
