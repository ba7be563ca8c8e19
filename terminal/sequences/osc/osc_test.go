package osc

import (
	"strings"
	"testing"

	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(payload string) *Command {
	p := NewParser()
	p.Reset()
	for i := 0; i < len(payload); i++ {
		p.Next(payload[i])
	}
	return p.End()
}

func TestParserDecode(t *testing.T) {
	tcs := []struct {
		name    string
		payload string
		want    *Command
	}{
		{
			name:    "title osc 0",
			payload: "0;hello world",
			want:    &Command{Kind: KindChangeWindowTitle, Title: "hello world"},
		},
		{
			name:    "title osc 2 keeps semicolons",
			payload: "2;a;b",
			want:    &Command{Kind: KindChangeWindowTitle, Title: "a;b"},
		},
		{
			name:    "icon",
			payload: "1;icon",
			want:    &Command{Kind: KindChangeWindowIcon, Title: "icon"},
		},
		{
			name:    "pwd",
			payload: "7;file:///home/user",
			want:    &Command{Kind: KindReportPwd, Pwd: "file:///home/user"},
		},
		{
			name:    "hyperlink start with id",
			payload: "8;id=foo;https://example.com/a;b",
			want: &Command{
				Kind:         KindHyperlinkStart,
				HyperlinkID:  "foo",
				HyperlinkURI: "https://example.com/a;b",
			},
		},
		{
			name:    "hyperlink end",
			payload: "8;;",
			want:    &Command{Kind: KindHyperlinkEnd},
		},
		{
			name:    "palette set and query mixed",
			payload: "4;1;#ff0000;2;?",
			want: &Command{
				Kind:           KindSetPalette,
				Palette:        []PaletteEntry{{Index: 1, Color: color.RGB{R: 0xFF}}},
				PaletteQueries: []uint8{2},
			},
		},
		{
			name:    "palette reset whole",
			payload: "104",
			want:    &Command{Kind: KindResetPalette},
		},
		{
			name:    "palette reset indexes",
			payload: "104;3;200",
			want:    &Command{Kind: KindResetPalette, PaletteResets: []uint8{3, 200}},
		},
		{
			name:    "dynamic color set",
			payload: "11;rgb:12/34/56",
			want: &Command{
				Kind:   KindSetColor,
				Target: ColorTargetBackground,
				Color:  color.RGB{R: 0x12, G: 0x34, B: 0x56},
			},
		},
		{
			name:    "dynamic color query",
			payload: "12;?",
			want:    &Command{Kind: KindQueryColor, Target: ColorTargetCursor},
		},
		{
			name:    "dynamic color reset",
			payload: "110",
			want:    &Command{Kind: KindResetColor, Target: ColorTargetForeground},
		},
		{
			name:    "clipboard set",
			payload: "52;c;aGVsbG8=",
			want:    &Command{Kind: KindSetClipboard, Clipboard: 'c', ClipboardData: "aGVsbG8="},
		},
		{
			name:    "clipboard default target",
			payload: "52;;data",
			want:    &Command{Kind: KindSetClipboard, Clipboard: 'c', ClipboardData: "data"},
		},
		{
			name:    "clipboard query",
			payload: "52;p;?",
			want:    &Command{Kind: KindQueryClipboard, Clipboard: 'p'},
		},
		{
			name:    "notification osc 9",
			payload: "9;build done",
			want:    &Command{Kind: KindDesktopNotification, Body: "build done"},
		},
		{
			name:    "notification osc 777",
			payload: "777;notify;title;the body",
			want:    &Command{Kind: KindDesktopNotification, Title: "title", Body: "the body"},
		},
		{
			name:    "prompt start",
			payload: "133;A;aid=42;redraw=0",
			want:    &Command{Kind: KindPromptStart, PromptAid: "42"},
		},
		{
			name:    "prompt continuation",
			payload: "133;A;k=c",
			want:    &Command{Kind: KindPromptStart, PromptRedraw: true, Continuation: true},
		},
		{
			name:    "prompt end",
			payload: "133;B",
			want:    &Command{Kind: KindPromptEnd},
		},
		{
			name:    "end of input",
			payload: "133;C",
			want:    &Command{Kind: KindEndOfInput},
		},
		{
			name:    "end of command with exit code",
			payload: "133;D;0",
			want:    &Command{Kind: KindEndOfCommand, ExitCode: 0, HasExitCode: true},
		},
		{
			name:    "end of command without exit code",
			payload: "133;D",
			want:    &Command{Kind: KindEndOfCommand},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parse(tc.payload))
		})
	}
}

func TestParserRejects(t *testing.T) {
	tcs := []struct {
		name    string
		payload string
	}{
		{name: "empty", payload: ""},
		{name: "non numeric", payload: "nope;x"},
		{name: "unknown number", payload: "9999;x"},
		{name: "palette without pairs", payload: "4;bogus"},
		{name: "bad dynamic color spec", payload: "10;notacolor"},
		{name: "clipboard missing payload", payload: "52;c"},
		{name: "unknown 777 module", payload: "777;clock;x"},
		{name: "unknown prompt marker", payload: "133;Z"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, parse(tc.payload))
		})
	}
}

func TestParserOverflowDiscardsWholeSequence(t *testing.T) {
	p := NewParser()
	p.Reset()
	for _, c := range []byte("0;") {
		p.Next(c)
	}
	for range MaxBufferSize {
		p.Next('a')
	}
	assert.Nil(t, p.End())

	// The next sequence starts clean.
	p.Reset()
	for _, c := range []byte("0;ok") {
		p.Next(c)
	}
	cmd := p.End()
	require.NotNil(t, cmd)
	assert.Equal(t, "ok", cmd.Title)
}

func TestParserResetDropsPartialPayload(t *testing.T) {
	p := NewParser()
	p.Reset()
	for _, c := range []byte("2;half") {
		p.Next(c)
	}

	p.Reset()
	for _, c := range []byte("2;" + strings.Repeat("t", 3)) {
		p.Next(c)
	}
	cmd := p.End()
	require.NotNil(t, cmd)
	assert.Equal(t, "ttt", cmd.Title)
}
