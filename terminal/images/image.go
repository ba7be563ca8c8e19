// Package images implements the kitty graphics protocol state: images
// transmitted by the child process and their placements on the grid.
//
// Reference: https://sw.kovidgoyal.net/kitty/graphics-protocol/
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"
)

// MaxImageBytes bounds the decoded size of a single image. Transfers
// beyond this answer ENOMEM.
const MaxImageBytes = 128 << 20

// MaxStorageBytes bounds the decoded bytes held across all images.
// Exceeding it evicts the oldest transmissions first.
const MaxStorageBytes = 320 << 20

// Format of the transmitted pixel data (f= key).
type Format uint16

const (
	FormatGray Format = 8
	FormatRGB  Format = 24
	FormatRGBA Format = 32
	FormatPNG  Format = 100
)

// bytesPerPixel is zero for formats whose size cannot be derived from
// the pixel dimensions.
func (f Format) bytesPerPixel() int {
	switch f {
	case FormatGray:
		return 1
	case FormatRGB:
		return 3
	case FormatRGBA:
		return 4
	default:
		return 0
	}
}

// Image is one transmitted image. Data holds decoded bytes: raw pixels
// for the gray/RGB/RGBA formats, the PNG file for FormatPNG.
type Image struct {
	ID     uint32
	Number uint32
	Format Format
	Width  uint32
	Height uint32
	Data   []byte

	// Number of placements referencing this image.
	refs int

	// When the transmission completed, for eviction ordering.
	transmitTime time.Time
}

// loadingImage is an in-flight chunked transmission (m=1). The payload
// stays base64 until the final chunk arrives since chunk boundaries do
// not align with base64 quads.
type loadingImage struct {
	image Image
	quiet Quiet

	// The display half of a transmit-and-display, applied once the
	// data is complete.
	display *Command

	data []byte
}

func (l *loadingImage) addData(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	// Encoded length overestimates decoded length, which is fine for
	// a limit check.
	if len(l.data)+len(data) > MaxImageBytes {
		return fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	l.data = append(l.data, data...)
	return nil
}

// complete decodes the accumulated payload and validates it against
// the declared geometry.
func (l *loadingImage) complete() (*Image, error) {
	img := l.image

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(l.data)))
	n, err := base64.StdEncoding.Decode(decoded, l.data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	img.Data = decoded[:n]

	if img.Format == FormatPNG {
		// Dimensions come from the PNG header, the s=/v= keys are
		// optional for this format.
		cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
		if err != nil {
			return nil, fmt.Errorf("invalid png data: %w", err)
		}
		img.Width = uint32(cfg.Width)
		img.Height = uint32(cfg.Height)
	} else {
		bpp := img.Format.bytesPerPixel()
		if bpp == 0 {
			return nil, fmt.Errorf("unsupported format %d", img.Format)
		}
		if img.Width == 0 || img.Height == 0 {
			return nil, fmt.Errorf("missing image dimensions")
		}
		if len(img.Data) != int(img.Width)*int(img.Height)*bpp {
			return nil, fmt.Errorf("data size %d does not match %dx%dx%d",
				len(img.Data), img.Width, img.Height, bpp)
		}
	}

	img.transmitTime = time.Now()
	return &img, nil
}
