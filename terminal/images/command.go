package images

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/hnimtadd/termcore/logger"
)

// MaxBufferSize bounds one accumulated APC payload. The kitty protocol
// chunks transfers at 4096 bytes but other clients send larger single
// escapes; oversized payloads are dropped whole.
const MaxBufferSize = 4 << 20

// Action selected by the a= key.
type Action uint8

const (
	ActionTransmit           Action = 't'
	ActionTransmitAndDisplay Action = 'T'
	ActionQuery              Action = 'q'
	ActionDisplay            Action = 'p'
	ActionDelete             Action = 'd'
)

// Quiet controls which replies the client wants (q= key).
type Quiet uint8

const (
	QuietNone     Quiet = 0
	QuietOK       Quiet = 1
	QuietFailures Quiet = 2
)

// Medium is the transmission medium (t= key). Only direct transmission
// is supported: the emulator must not open files on behalf of the
// child process.
type Medium uint8

const (
	MediumDirect    Medium = 'd'
	MediumFile      Medium = 'f'
	MediumTempFile  Medium = 't'
	MediumSharedMem Medium = 's'
)

// Command is one parsed kitty graphics command.
type Command struct {
	Action Action
	Quiet  Quiet
	Format Format
	Medium Medium

	ImageID     uint32 // i=
	ImageNumber uint32 // I=
	PlacementID uint32 // p=

	// Pixel dimensions of the transmitted data (s=, v=). Ignored for
	// PNG data, which carries its own.
	Width  uint32
	Height uint32

	// More chunks follow (m=1).
	More bool

	// Source rectangle within the image (x=, y=, w=, h=). A zero
	// width/height extends to the image edge.
	SrcX, SrcY, SrcWidth, SrcHeight uint32

	// Pixel offset of the top-left corner within the first cell
	// (X=, Y=).
	CellOffsetX, CellOffsetY uint32

	// Cells the placement spans (c=, r=). Zero derives the span from
	// the image and cell pixel sizes.
	Columns, Rows uint32

	// Z layer (z=). Negative layers draw under text.
	Z int32

	// Delete selector (d=). An uppercase selector also drops the data
	// of images left without placements.
	Delete uint8

	// Payload after the ';', still base64 for transmit actions.
	Data []byte
}

// Parser accumulates one APC payload and decodes it as a kitty
// graphics command. Payloads not starting with 'G' decode to nil; APC
// carries other protocols too and those are not errors.
type Parser struct {
	buf      []byte
	overflow bool

	logger logger.Logger
}

func NewParser() *Parser {
	return &Parser{
		buf:    make([]byte, 0, 256),
		logger: logger.DefaultLogger,
	}
}

// Start discards any partial payload. Called on APC entry.
func (p *Parser) Start() {
	p.buf = p.buf[:0]
	p.overflow = false
}

// Feed accumulates one payload byte.
func (p *Parser) Feed(c uint8) {
	if len(p.buf) >= MaxBufferSize {
		p.overflow = true
		return
	}
	p.buf = append(p.buf, c)
}

// End decodes the accumulated payload. Nil means nothing to execute:
// empty, oversized, non-graphics or malformed payloads.
func (p *Parser) End() *Command {
	if p.overflow {
		p.logger.Warn("images: discarding oversized apc payload", "len", len(p.buf))
		return nil
	}
	if len(p.buf) == 0 || p.buf[0] != 'G' {
		return nil
	}

	control := p.buf[1:]
	cmd := &Command{Action: ActionTransmit, Medium: MediumDirect}
	if idx := bytes.IndexByte(control, ';'); idx >= 0 {
		cmd.Data = append([]byte(nil), control[idx+1:]...)
		control = control[:idx]
	}

	for len(control) > 0 {
		kv := control
		if idx := bytes.IndexByte(control, ','); idx >= 0 {
			kv = control[:idx]
			control = control[idx+1:]
		} else {
			control = nil
		}
		if err := p.parseKV(cmd, kv); err != nil {
			p.logger.Debug("images: bad control pair", "pair", string(kv), "err", err)
			return nil
		}
	}
	return cmd
}

func (p *Parser) parseKV(cmd *Command, kv []byte) error {
	key, value, found := bytes.Cut(kv, []byte{'='})
	if !found || len(key) != 1 || len(value) == 0 {
		return fmt.Errorf("malformed pair")
	}

	// Single-character values.
	switch key[0] {
	case 'a':
		switch Action(value[0]) {
		case ActionTransmit, ActionTransmitAndDisplay, ActionQuery,
			ActionDisplay, ActionDelete:
			cmd.Action = Action(value[0])
		default:
			return fmt.Errorf("unknown action %q", value[0])
		}
		return nil
	case 't':
		cmd.Medium = Medium(value[0])
		return nil
	case 'd':
		cmd.Delete = value[0]
		return nil
	}

	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return err
	}
	switch key[0] {
	case 'q':
		cmd.Quiet = Quiet(n)
	case 'f':
		cmd.Format = Format(n)
	case 'i':
		cmd.ImageID = uint32(n)
	case 'I':
		cmd.ImageNumber = uint32(n)
	case 'p':
		cmd.PlacementID = uint32(n)
	case 's':
		cmd.Width = uint32(n)
	case 'v':
		cmd.Height = uint32(n)
	case 'm':
		cmd.More = n != 0
	case 'x':
		cmd.SrcX = uint32(n)
	case 'y':
		cmd.SrcY = uint32(n)
	case 'w':
		cmd.SrcWidth = uint32(n)
	case 'h':
		cmd.SrcHeight = uint32(n)
	case 'X':
		cmd.CellOffsetX = uint32(n)
	case 'Y':
		cmd.CellOffsetY = uint32(n)
	case 'c':
		cmd.Columns = uint32(n)
	case 'r':
		cmd.Rows = uint32(n)
	case 'z':
		cmd.Z = int32(n)
	default:
		// Keys we do not act on (compression, animation) parse fine
		// and are skipped; the protocol keeps growing.
		p.logger.Debug("images: ignoring control key", "key", string(key))
	}
	return nil
}

// Response is the reply to a graphics command, itself an APC G
// sequence.
type Response struct {
	ImageID     uint32
	ImageNumber uint32
	PlacementID uint32
	Message     string
}

func (r *Response) OK() bool { return r.Message == "OK" }

// Encode renders the response bytes. Empty when there is no id to key
// the reply to; clients cannot correlate such replies.
func (r *Response) Encode() []byte {
	if r.ImageID == 0 && r.ImageNumber == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteString("\x1b_G")
	sep := ""
	if r.ImageID > 0 {
		fmt.Fprintf(&buf, "i=%d", r.ImageID)
		sep = ","
	}
	if r.ImageNumber > 0 {
		fmt.Fprintf(&buf, "%sI=%d", sep, r.ImageNumber)
		sep = ","
	}
	if r.PlacementID > 0 {
		fmt.Fprintf(&buf, "%sp=%d", sep, r.PlacementID)
	}
	buf.WriteByte(';')
	buf.WriteString(r.Message)
	buf.WriteString("\x1b\\")
	return buf.Bytes()
}
