package images

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/hnimtadd/termcore/logger"
	"github.com/hnimtadd/termcore/terminal/coordinate"
	"github.com/hnimtadd/termcore/terminal/pagelist"
	"github.com/hnimtadd/termcore/terminal/point"
	"github.com/hnimtadd/termcore/terminal/size"
)

// PlacementKey addresses one placement. Placement id zero is the
// unnamed placement; re-displaying with the same key replaces it.
type PlacementKey struct {
	ImageID     uint32
	PlacementID uint32
}

// Placement puts an image on the grid. The pin is tracked, so the
// placement rides along with scrollback and survives page pruning the
// same way the cursor does.
type Placement struct {
	ImageID     uint32
	PlacementID uint32

	// Tracked pin of the top-left cell.
	Pin *pagelist.Pin

	// Pixel offset within the top-left cell.
	X, Y uint32

	// Source rectangle within the image. Zero width/height extends to
	// the image edge.
	SrcX, SrcY, SrcWidth, SrcHeight uint32

	// Grid span. Derived from the image and cell pixel sizes when the
	// command did not give an explicit span.
	Cols, Rows uint32

	// Draw order. Negative is under text.
	Z int32
}

// CellSize is the pixel geometry of one grid cell. The storage needs
// it to derive the grid span of placements sized in pixels.
type CellSize struct {
	Width  int
	Height int
}

// Storage holds the transmitted images and their placements for one
// screen.
type Storage struct {
	images     map[uint32]*Image
	placements map[PlacementKey]*Placement

	// In-flight chunked transmission, nil when none.
	loading *loadingImage

	// Ids handed out for I= transmissions that let us pick the id.
	nextID uint32

	// Total decoded bytes held.
	totalBytes int

	logger logger.Logger
}

func NewStorage() *Storage {
	return &Storage{
		images:     make(map[uint32]*Image),
		placements: make(map[PlacementKey]*Placement),
		logger:     logger.DefaultLogger,
	}
}

// ImageByID returns the image with the given id, nil when absent.
func (s *Storage) ImageByID(id uint32) *Image {
	return s.images[id]
}

// ImageByNumber returns the most recently transmitted image with the
// given client-assigned number.
func (s *Storage) ImageByNumber(number uint32) *Image {
	var best *Image
	for _, img := range s.images {
		if img.Number != number {
			continue
		}
		if best == nil || img.transmitTime.After(best.transmitTime) {
			best = img
		}
	}
	return best
}

// Placements returns the live placement set. The map is owned by the
// storage; callers must not mutate it.
func (s *Storage) Placements() map[PlacementKey]*Placement {
	return s.placements
}

// Reset drops all images and placements, untracking their pins.
func (s *Storage) Reset(pl *pagelist.PageList) {
	for key, p := range s.placements {
		pl.UntrackPin(p.Pin)
		delete(s.placements, key)
	}
	clear(s.images)
	s.loading = nil
	s.totalBytes = 0
}

// Execute runs one parsed graphics command. cursor is the active-area
// cursor position, where display actions anchor. The returned response
// is nil when the command produces no reply, including replies dropped
// by the quiet level.
func (s *Storage) Execute(
	pl *pagelist.PageList,
	cursor coordinate.Point[size.CellCountInt],
	cell CellSize,
	cmd *Command,
) *Response {
	quiet := cmd.Quiet
	if s.loading != nil && s.loading.quiet > quiet {
		quiet = s.loading.quiet
	}

	var resp *Response
	switch cmd.Action {
	case ActionQuery:
		resp = s.query(cmd)
	case ActionTransmit, ActionTransmitAndDisplay:
		resp = s.transmit(pl, cursor, cell, cmd)
	case ActionDisplay:
		resp = s.display(pl, cursor, cell, cmd)
	case ActionDelete:
		s.delete(pl, cursor, cmd)
	default:
		s.logger.Debug("images: unimplemented action", "action", cmd.Action)
	}

	if resp == nil {
		return nil
	}
	switch quiet {
	case QuietOK:
		if resp.OK() {
			return nil
		}
	case QuietFailures:
		return nil
	}
	return resp
}

// query validates a transmission without storing anything. Clients use
// it to probe for protocol support.
func (s *Storage) query(cmd *Command) *Response {
	resp := &Response{ImageID: cmd.ImageID, ImageNumber: cmd.ImageNumber, Message: "OK"}
	switch {
	case cmd.Medium != MediumDirect:
		resp.Message = "EINVAL: unsupported transmission medium"
	case cmd.Format.bytesPerPixel() == 0 && cmd.Format != FormatPNG:
		resp.Message = fmt.Sprintf("EINVAL: unsupported format %d", cmd.Format)
	case cmd.ImageID == 0 && cmd.ImageNumber == 0:
		resp.Message = "EINVAL: query requires an id"
	}
	return resp
}

// transmit starts or continues an image transmission. Nil is returned
// while more chunks are expected; the final chunk answers for the
// whole transfer.
func (s *Storage) transmit(
	pl *pagelist.PageList,
	cursor coordinate.Point[size.CellCountInt],
	cell CellSize,
	cmd *Command,
) *Response {
	if s.loading == nil {
		if resp := s.beginLoad(cmd); resp != nil {
			return resp
		}
	}

	if err := s.loading.addData(cmd.Data); err != nil {
		resp := &Response{
			ImageID:     s.loading.image.ID,
			ImageNumber: s.loading.image.Number,
			Message:     "ENOMEM: " + err.Error(),
		}
		s.loading = nil
		return resp
	}

	if cmd.More {
		return nil
	}

	loading := s.loading
	s.loading = nil
	img, err := loading.complete()
	if err != nil {
		return &Response{
			ImageID:     loading.image.ID,
			ImageNumber: loading.image.Number,
			Message:     "EINVAL: " + err.Error(),
		}
	}

	s.addImage(img)
	resp := &Response{ImageID: img.ID, ImageNumber: img.Number, Message: "OK"}

	if loading.display != nil {
		// Transmit-and-display: anchor the placement now that the
		// data is in.
		display := *loading.display
		display.ImageID = img.ID
		display.ImageNumber = img.Number
		resp = s.display(pl, cursor, cell, &display)
	}
	return resp
}

// beginLoad validates the opening chunk and sets up the loading state.
// A non-nil response is the rejection.
func (s *Storage) beginLoad(cmd *Command) *Response {
	reject := func(msg string) *Response {
		return &Response{ImageID: cmd.ImageID, ImageNumber: cmd.ImageNumber, Message: msg}
	}
	if cmd.Medium != MediumDirect {
		return reject("EINVAL: unsupported transmission medium")
	}
	if cmd.Format.bytesPerPixel() == 0 && cmd.Format != FormatPNG {
		return reject(fmt.Sprintf("EINVAL: unsupported format %d", cmd.Format))
	}

	img := Image{
		ID:     cmd.ImageID,
		Number: cmd.ImageNumber,
		Format: cmd.Format,
		Width:  cmd.Width,
		Height: cmd.Height,
	}
	if img.ID == 0 {
		// The client sent a number and wants us to pick the id.
		s.nextID++
		for s.images[s.nextID] != nil {
			s.nextID++
		}
		img.ID = s.nextID
	}

	loading := &loadingImage{image: img, quiet: cmd.Quiet}
	if cmd.Action == ActionTransmitAndDisplay {
		display := *cmd
		display.Data = nil
		loading.display = &display
	}
	s.loading = loading
	return nil
}

// addImage stores a completed image, replacing any previous image with
// the same id. Replacement is atomic: placements of the old image just
// show the new data.
func (s *Storage) addImage(img *Image) {
	if old, ok := s.images[img.ID]; ok {
		s.totalBytes -= len(old.Data)
		img.refs = old.refs
	}
	s.images[img.ID] = img
	s.totalBytes += len(img.Data)
	s.evict(img.ID)
}

// evict drops the oldest unplaced images until the storage is under
// its byte limit. keep is never evicted.
func (s *Storage) evict(keep uint32) {
	for s.totalBytes > MaxStorageBytes {
		var oldest *Image
		for _, img := range s.images {
			if img.ID == keep || img.refs > 0 {
				continue
			}
			if oldest == nil || img.transmitTime.Before(oldest.transmitTime) {
				oldest = img
			}
		}
		if oldest == nil {
			s.logger.Warn("images: storage over limit with all images placed",
				"bytes", s.totalBytes)
			return
		}
		s.totalBytes -= len(oldest.Data)
		delete(s.images, oldest.ID)
	}
}

// display anchors an image at the cursor.
func (s *Storage) display(
	pl *pagelist.PageList,
	cursor coordinate.Point[size.CellCountInt],
	cell CellSize,
	cmd *Command,
) *Response {
	resp := &Response{
		ImageID:     cmd.ImageID,
		ImageNumber: cmd.ImageNumber,
		PlacementID: cmd.PlacementID,
		Message:     "OK",
	}

	var img *Image
	if cmd.ImageID != 0 {
		img = s.ImageByID(cmd.ImageID)
	} else {
		img = s.ImageByNumber(cmd.ImageNumber)
	}
	if img == nil {
		resp.Message = "ENOENT: image not found"
		return resp
	}
	resp.ImageID = img.ID
	resp.ImageNumber = img.Number

	pin := pl.Pin(point.Point{Tag: point.TagActive, Coordinate: cursor})
	if pin == nil {
		resp.Message = "EINVAL: cursor outside the grid"
		return resp
	}

	p := &Placement{
		ImageID:     img.ID,
		PlacementID: cmd.PlacementID,
		Pin:         pl.TrackPin(*pin),
		X:           cmd.CellOffsetX,
		Y:           cmd.CellOffsetY,
		SrcX:        cmd.SrcX,
		SrcY:        cmd.SrcY,
		SrcWidth:    cmd.SrcWidth,
		SrcHeight:   cmd.SrcHeight,
		Cols:        cmd.Columns,
		Rows:        cmd.Rows,
		Z:           cmd.Z,
	}
	p.deriveSpan(img, cell)

	key := PlacementKey{ImageID: img.ID, PlacementID: cmd.PlacementID}
	if old, ok := s.placements[key]; ok {
		pl.UntrackPin(old.Pin)
	} else {
		img.refs++
	}
	s.placements[key] = p
	return resp
}

// deriveSpan fills the grid span for placements sized in pixels.
func (p *Placement) deriveSpan(img *Image, cell CellSize) {
	srcW := p.SrcWidth
	if srcW == 0 && img.Width > p.SrcX {
		srcW = img.Width - p.SrcX
	}
	srcH := p.SrcHeight
	if srcH == 0 && img.Height > p.SrcY {
		srcH = img.Height - p.SrcY
	}
	if p.Cols == 0 {
		p.Cols = 1
		if cell.Width > 0 {
			p.Cols = (srcW + uint32(cell.Width) - 1) / uint32(cell.Width)
		}
	}
	if p.Rows == 0 {
		p.Rows = 1
		if cell.Height > 0 {
			p.Rows = (srcH + uint32(cell.Height) - 1) / uint32(cell.Height)
		}
	}
}

// removePlacement drops one placement and the image data behind it
// when asked and unreferenced.
func (s *Storage) removePlacement(pl *pagelist.PageList, key PlacementKey, dropData bool) {
	p, ok := s.placements[key]
	if !ok {
		return
	}
	pl.UntrackPin(p.Pin)
	delete(s.placements, key)

	img, ok := s.images[p.ImageID]
	if !ok {
		return
	}
	img.refs--
	if dropData && img.refs <= 0 {
		s.totalBytes -= len(img.Data)
		delete(s.images, img.ID)
	}
}

// delete implements the d= selectors. Uppercase selectors also drop
// the data of images left without placements. Deletes never answer,
// matching the reference implementation.
func (s *Storage) delete(
	pl *pagelist.PageList,
	cursor coordinate.Point[size.CellCountInt],
	cmd *Command,
) {
	sel := cmd.Delete
	if sel == 0 {
		sel = 'a'
	}
	dropData := sel >= 'A' && sel <= 'Z'

	matches := func(fn func(*Placement) bool) []PlacementKey {
		var keys []PlacementKey
		for key, p := range s.placements {
			if fn(p) {
				keys = append(keys, key)
			}
		}
		return keys
	}

	var keys []PlacementKey
	switch sel {
	case 'a', 'A':
		keys = matches(func(*Placement) bool { return true })

	case 'i', 'I':
		if cmd.ImageID == 0 && cmd.ImageNumber == 0 {
			return
		}
		id := cmd.ImageID
		if id == 0 {
			img := s.ImageByNumber(cmd.ImageNumber)
			if img == nil {
				return
			}
			id = img.ID
		}
		keys = matches(func(p *Placement) bool {
			if p.ImageID != id {
				return false
			}
			return cmd.PlacementID == 0 || p.PlacementID == cmd.PlacementID
		})
		// Deleting by id drops the image even when it was never
		// placed.
		if dropData && len(keys) == 0 {
			if img, ok := s.images[id]; ok && img.refs <= 0 {
				s.totalBytes -= len(img.Data)
				delete(s.images, id)
			}
		}

	case 'c', 'C':
		keys = matches(func(p *Placement) bool {
			return s.intersectsCell(pl, p, cursor.X, cursor.Y)
		})

	case 'p', 'P':
		keys = matches(func(p *Placement) bool {
			return s.intersectsCell(pl, p,
				size.CellCountInt(cmd.SrcX), size.CellCountInt(cmd.SrcY))
		})

	case 'x', 'X':
		col := size.CellCountInt(cmd.SrcX)
		keys = matches(func(p *Placement) bool {
			return p.Pin.X <= col && col < p.Pin.X+size.CellCountInt(p.Cols)
		})

	case 'y', 'Y':
		row := size.CellCountInt(cmd.SrcY)
		keys = matches(func(p *Placement) bool {
			pt := pl.PointFromPin(point.TagActive, *p.Pin)
			if pt == nil {
				return false
			}
			return pt.Coordinate.Y <= row &&
				row < pt.Coordinate.Y+size.CellCountInt(p.Rows)
		})

	case 'z', 'Z':
		keys = matches(func(p *Placement) bool { return p.Z == cmd.Z })

	default:
		s.logger.Debug("images: unimplemented delete selector", "selector", sel)
		return
	}

	for _, key := range keys {
		s.removePlacement(pl, key, dropData)
	}
}

// intersectsCell reports whether the placement covers the given
// active-area cell. Placements scrolled out of the active area never
// intersect.
func (s *Storage) intersectsCell(
	pl *pagelist.PageList,
	p *Placement,
	x, y size.CellCountInt,
) bool {
	pt := pl.PointFromPin(point.TagActive, *p.Pin)
	if pt == nil {
		return false
	}
	return pt.Coordinate.X <= x && x < pt.Coordinate.X+size.CellCountInt(p.Cols) &&
		pt.Coordinate.Y <= y && y < pt.Coordinate.Y+size.CellCountInt(p.Rows)
}

// VisiblePlacement is a placement that intersects the viewport, with
// its anchor translated to viewport cells. Y is negative when the
// placement starts above the view and hangs into it.
type VisiblePlacement struct {
	Placement *Placement
	Image     *Image
	X, Y      int
}

// VisiblePlacements returns the placements intersecting the viewport,
// ordered by z then image id so renderers can paint in order.
func (s *Storage) VisiblePlacements(pl *pagelist.PageList) []VisiblePlacement {
	var out []VisiblePlacement
	for _, p := range s.placements {
		img := s.images[p.ImageID]
		if img == nil {
			continue
		}

		if pt := pl.PointFromPin(point.TagViewPort, *p.Pin); pt != nil {
			out = append(out, VisiblePlacement{
				Placement: p,
				Image:     img,
				X:         int(pt.Coordinate.X),
				Y:         int(pt.Coordinate.Y),
			})
			continue
		}

		// The anchor may be above the viewport with the image hanging
		// into it.
		if p.Rows > 1 {
			bottom := p.Pin.Down(size.CellCountInt(p.Rows - 1))
			if bottom == nil {
				continue
			}
			if pt := pl.PointFromPin(point.TagViewPort, *bottom); pt != nil {
				out = append(out, VisiblePlacement{
					Placement: p,
					Image:     img,
					X:         int(p.Pin.X),
					Y:         int(pt.Coordinate.Y) - int(p.Rows-1),
				})
			}
		}
	}

	slices.SortFunc(out, func(a, b VisiblePlacement) int {
		if c := cmp.Compare(a.Placement.Z, b.Placement.Z); c != 0 {
			return c
		}
		return cmp.Compare(a.Placement.ImageID, b.Placement.ImageID)
	})
	return out
}
