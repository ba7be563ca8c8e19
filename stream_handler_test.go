package termio

import (
	"encoding/base64"
	"testing"

	"github.com/hnimtadd/termcore/terminal/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replyIO couples a TerminalIO to a reply recorder so tests can feed
// escape sequences through the real parser and assert on the bytes the
// host would write back to the pty.
type replyIO struct {
	*TerminalIO
	replies []string
	surface *recordingSurface
}

func newReplyIO(t *testing.T, opts Options) *replyIO {
	t.Helper()
	r := &replyIO{surface: newRecordingSurface()}
	opts.Respond = func(reply []byte) error {
		r.replies = append(r.replies, string(reply))
		return nil
	}
	if opts.Surface == nil {
		opts.Surface = r.surface
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	r.TerminalIO = NewTerminalIO(opts)
	return r
}

func (r *replyIO) feed(t *testing.T, input string) {
	t.Helper()
	require.NoError(t, r.ProcessOutput([]byte(input)))
}

func (r *replyIO) takeReplies() []string {
	out := r.replies
	r.replies = nil
	return out
}

type recordingSurface struct {
	titles        []string
	pwds          []string
	bells         int
	notifications [][2]string
	clipboard     map[uint8]string
}

func newRecordingSurface() *recordingSurface {
	return &recordingSurface{clipboard: map[uint8]string{}}
}

func (s *recordingSurface) SetTitle(title string) { s.titles = append(s.titles, title) }
func (s *recordingSurface) SetPwd(pwd string)     { s.pwds = append(s.pwds, pwd) }
func (s *recordingSurface) Bell()                 { s.bells++ }
func (s *recordingSurface) DesktopNotification(title, body string) {
	s.notifications = append(s.notifications, [2]string{title, body})
}
func (s *recordingSurface) SetClipboard(clipboard uint8, data string) {
	s.clipboard[clipboard] = data
}
func (s *recordingSurface) GetClipboard(clipboard uint8) (string, bool) {
	data, ok := s.clipboard[clipboard]
	return data, ok
}

func TestStreamHandler_DeviceAttributes(t *testing.T) {
	r := newReplyIO(t, Options{})

	r.feed(t, "\x1b[c\x1b[>c\x1b[=c")
	assert.Equal(t, []string{
		"\x1b[?62;22c",
		"\x1b[>1;10;0c",
		"\x1bP!|00000000\x1b\\",
	}, r.takeReplies())
}

func TestStreamHandler_DeviceStatusReports(t *testing.T) {
	r := newReplyIO(t, Options{})

	r.feed(t, "\x1b[5n")
	assert.Equal(t, []string{"\x1b[0n"}, r.takeReplies())

	// CPR reports the cursor 1-indexed.
	r.feed(t, "\x1b[3;5H\x1b[6n")
	assert.Equal(t, []string{"\x1b[3;5R"}, r.takeReplies())

	r.feed(t, "\x1b[?6n")
	assert.Equal(t, []string{"\x1b[?3;5R"}, r.takeReplies())
}

func TestStreamHandler_CursorPositionReportOriginMode(t *testing.T) {
	r := newReplyIO(t, Options{})

	// With origin mode the report is relative to the scroll region, and
	// the home position lands on the region's top row.
	r.feed(t, "\x1b[5;20r\x1b[?6h\x1b[H\x1b[6n")
	assert.Equal(t, []string{"\x1b[1;1R"}, r.takeReplies())

	r.feed(t, "\x1b[3;4H\x1b[6n")
	assert.Equal(t, []string{"\x1b[3;4R"}, r.takeReplies())
}

func TestStreamHandler_RequestMode(t *testing.T) {
	r := newReplyIO(t, Options{})

	// Bracketed paste starts reset.
	r.feed(t, "\x1b[?2004$p")
	assert.Equal(t, []string{"\x1b[?2004;2$y"}, r.takeReplies())

	r.feed(t, "\x1b[?2004h\x1b[?2004$p")
	assert.Equal(t, []string{"\x1b[?2004;1$y"}, r.takeReplies())

	// Unknown modes report state 0.
	r.feed(t, "\x1b[?9999$p")
	assert.Equal(t, []string{"\x1b[?9999;0$y"}, r.takeReplies())
}

func TestStreamHandler_ReportXTVersion(t *testing.T) {
	r := newReplyIO(t, Options{})

	r.feed(t, "\x1b[>0q")
	assert.Equal(t, []string{"\x1bP>|termcore 0.1.0\x1b\\"}, r.takeReplies())
}

func TestStreamHandler_WindowManipulationReports(t *testing.T) {
	r := newReplyIO(t, Options{})
	r.SetPixelSize(800, 600)

	r.feed(t, "\x1b[14t")
	assert.Equal(t, []string{"\x1b[4;600;800t"}, r.takeReplies())

	// 800px / 80 cols, 600px / 24 rows.
	r.feed(t, "\x1b[16t")
	assert.Equal(t, []string{"\x1b[6;25;10t"}, r.takeReplies())

	r.feed(t, "\x1b[18t")
	assert.Equal(t, []string{"\x1b[8;24;80t"}, r.takeReplies())
}

func TestStreamHandler_TitleStack(t *testing.T) {
	r := newReplyIO(t, Options{})

	r.feed(t, "\x1b]0;first\x07\x1b[22;0t\x1b]0;second\x07")
	assert.Equal(t, "second", r.Handler().Title())

	r.feed(t, "\x1b[23;0t")
	assert.Equal(t, "first", r.Handler().Title())
	assert.Equal(t, []string{"first", "second", "first"}, r.surface.titles)

	// Pop on an empty stack keeps the current title.
	r.feed(t, "\x1b[23;0t")
	assert.Equal(t, "first", r.Handler().Title())
}

func TestStreamHandler_SettingReports(t *testing.T) {
	r := newReplyIO(t, Options{})

	// SGR starts at the reset default.
	r.feed(t, "\x1bP$qm\x1b\\")
	assert.Equal(t, []string{"\x1bP1$r0m\x1b\\"}, r.takeReplies())

	r.feed(t, "\x1b[1;31m\x1bP$qm\x1b\\")
	assert.Equal(t, []string{"\x1bP1$r0;1;31m\x1b\\"}, r.takeReplies())

	// Cursor style reports the blinking block when never set.
	r.feed(t, "\x1bP$q q\x1b\\")
	assert.Equal(t, []string{"\x1bP1$r1 q\x1b\\"}, r.takeReplies())

	r.feed(t, "\x1b[4 q\x1bP$q q\x1b\\")
	assert.Equal(t, []string{"\x1bP1$r4 q\x1b\\"}, r.takeReplies())

	// Top/bottom margins, 1-indexed.
	r.feed(t, "\x1b[5;20r\x1bP$qr\x1b\\")
	assert.Equal(t, []string{"\x1bP1$r5;20r\x1b\\"}, r.takeReplies())

	// DECSLRM only reports while mode 69 is enabled.
	r.feed(t, "\x1bP$qs\x1b\\")
	assert.Equal(t, []string{"\x1bP0$r\x1b\\"}, r.takeReplies())

	// Unrecognized settings report failure.
	r.feed(t, "\x1bP$qx\x1b\\")
	assert.Equal(t, []string{"\x1bP0$r\x1b\\"}, r.takeReplies())
}

func TestStreamHandler_TermcapQueries(t *testing.T) {
	r := newReplyIO(t, Options{})

	// "TN" hex encoded is 544e; the reply carries "xterm-termcore".
	r.feed(t, "\x1bP+q544e\x1b\\")
	assert.Equal(t, []string{
		"\x1bP1+r544e=787465726d2d7465726d636f7265\x1b\\",
	}, r.takeReplies())

	// "Co" reports 256 colors, "RGB" is a flag with no value, and the
	// three can be chained in one request.
	r.feed(t, "\x1bP+q436f;524742;5858\x1b\\")
	assert.Equal(t, []string{
		"\x1bP1+r436f=323536\x1b\\",
		"\x1bP1+r524742\x1b\\",
		"\x1bP0+r\x1b\\",
	}, r.takeReplies())
}

func TestStreamHandler_DynamicColorQueries(t *testing.T) {
	r := newReplyIO(t, Options{})

	// Defaults come from the built-in palette: white on black.
	r.feed(t, "\x1b]10;?\x07\x1b]11;?\x07\x1b]12;?\x07")
	assert.Equal(t, []string{
		"\x1b]10;rgb:c5c5/c8c8/c6c6\x1b\\",
		"\x1b]11;rgb:1d1d/1f1f/2121\x1b\\",
		"\x1b]12;rgb:c5c5/c8c8/c6c6\x1b\\",
	}, r.takeReplies())

	// A set overrides the default until the matching reset.
	r.feed(t, "\x1b]10;#ff8000\x07\x1b]10;?\x07")
	assert.Equal(t, []string{"\x1b]10;rgb:ffff/8080/0000\x1b\\"}, r.takeReplies())

	r.feed(t, "\x1b]110\x07\x1b]10;?\x07")
	assert.Equal(t, []string{"\x1b]10;rgb:c5c5/c8c8/c6c6\x1b\\"}, r.takeReplies())
}

func TestStreamHandler_PaletteSetAndQuery(t *testing.T) {
	r := newReplyIO(t, Options{})

	// Sets and queries mix in one OSC 4.
	r.feed(t, "\x1b]4;1;rgb:aa/bb/cc;1;?\x07")
	assert.Equal(t, []string{"\x1b]4;1;rgb:aaaa/bbbb/cccc\x1b\\"}, r.takeReplies())

	// OSC 104 with an index restores that entry only.
	r.feed(t, "\x1b]104;1\x07\x1b]4;1;?\x07")
	assert.Equal(t, []string{"\x1b]4;1;rgb:cccc/6666/6666\x1b\\"}, r.takeReplies())

	defaultRed := color.DefaultPalette[1]
	assert.Equal(t, defaultRed, r.Handler().Palette()[1])
}

func TestStreamHandler_ClipboardWriteGatedByPolicy(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("stolen"))

	// Default policy rejects writes outright.
	r := newReplyIO(t, Options{})
	r.feed(t, "\x1b]52;c;"+payload+"\x07")
	assert.Empty(t, r.surface.clipboard)

	allowed := newReplyIO(t, Options{ClipboardWriteAllowed: true})
	allowed.feed(t, "\x1b]52;c;"+payload+"\x07")
	assert.Equal(t, "stolen", allowed.surface.clipboard['c'])

	// Garbage base64 is dropped even when writes are allowed.
	allowed.feed(t, "\x1b]52;c;!!!\x07")
	assert.Equal(t, "stolen", allowed.surface.clipboard['c'])
}

func TestStreamHandler_ClipboardQuery(t *testing.T) {
	r := newReplyIO(t, Options{})
	r.surface.clipboard['c'] = "copy me"

	r.feed(t, "\x1b]52;c;?\x07")
	want := "\x1b]52;c;" + base64.StdEncoding.EncodeToString([]byte("copy me")) + "\x1b\\"
	assert.Equal(t, []string{want}, r.takeReplies())

	// Unpopulated selections stay silent.
	r.feed(t, "\x1b]52;p;?\x07")
	assert.Empty(t, r.takeReplies())
}

func TestStreamHandler_SurfaceEvents(t *testing.T) {
	r := newReplyIO(t, Options{})

	r.feed(t, "\x07")
	assert.Equal(t, 1, r.surface.bells)

	r.feed(t, "\x1b]7;file:///home/user\x07")
	assert.Equal(t, []string{"file:///home/user"}, r.surface.pwds)
	assert.Equal(t, "file:///home/user", r.Terminal().GetPwd())

	r.feed(t, "\x1b]9;plain body\x07")
	r.feed(t, "\x1b]777;notify;a title;a body\x07")
	assert.Equal(t, [][2]string{
		{"", "plain body"},
		{"a title", "a body"},
	}, r.surface.notifications)
}

func TestStreamHandler_SaveRestoreModeRoundTrip(t *testing.T) {
	r := newReplyIO(t, Options{})

	// XTSAVE keeps the value, XTRESTORE brings it back.
	r.feed(t, "\x1b[?2004h\x1b[?2004s\x1b[?2004l\x1b[?2004$p")
	assert.Equal(t, []string{"\x1b[?2004;2$y"}, r.takeReplies())

	r.feed(t, "\x1b[?2004r\x1b[?2004$p")
	assert.Equal(t, []string{"\x1b[?2004;1$y"}, r.takeReplies())
}

func TestStreamHandler_FullResetRestoresColors(t *testing.T) {
	r := newReplyIO(t, Options{})

	r.feed(t, "\x1b]10;#102030\x07\x1b]4;1;#445566\x07\x1b]0;t\x07\x1b[22;0t")
	assert.Equal(t, color.RGB{R: 0x10, G: 0x20, B: 0x30}, r.Handler().ForegroundColor())
	assert.Equal(t, color.RGB{R: 0x44, G: 0x55, B: 0x66}, r.Handler().Palette()[1])

	r.feed(t, "\x1bc")
	assert.Equal(t, color.DefaultPalette[7], r.Handler().ForegroundColor())
	assert.Equal(t, color.DefaultPalette[1], r.Handler().Palette()[1])

	// The title stack emptied: a pop is a no-op after reset.
	r.feed(t, "\x1b]0;after\x07\x1b[23;0t")
	assert.Equal(t, "after", r.Handler().Title())
}
