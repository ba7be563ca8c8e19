package color

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseSpec parses a color specification of the kind carried by
// OSC 4/10/11/12 payloads. Supported forms:
//
//   - "#rgb" and "#rrggbb" hex values
//   - "rgb:r/g/b" X11 syntax with 1 to 4 hex digits per channel
//
// Anything else (named X11 colors, rgbi floats) is rejected.
func ParseSpec(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RGB{}, fmt.Errorf("color: empty specification")
	}

	if s[0] == '#' {
		c, err := colorful.Hex(s)
		if err != nil {
			return RGB{}, fmt.Errorf("color: bad hex %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return RGB{R: r, G: g, B: b}, nil
	}

	if rest, ok := strings.CutPrefix(s, "rgb:"); ok {
		parts := strings.Split(rest, "/")
		if len(parts) != 3 {
			return RGB{}, fmt.Errorf("color: bad rgb spec %q", s)
		}
		var out [3]uint8
		for i, part := range parts {
			v, err := parseScaledHex(part)
			if err != nil {
				return RGB{}, fmt.Errorf("color: bad rgb spec %q: %w", s, err)
			}
			out[i] = v
		}
		return RGB{R: out[0], G: out[1], B: out[2]}, nil
	}

	return RGB{}, fmt.Errorf("color: unsupported specification %q", s)
}

// parseScaledHex parses an X11 channel value of 1 to 4 hex digits and
// scales it to 8 bits. A single digit "f" means 0xFF, "ff" is 0xFF,
// "fff" scales down from 12 bits, "ffff" from 16.
func parseScaledHex(s string) (uint8, error) {
	if len(s) == 0 || len(s) > 4 {
		return 0, fmt.Errorf("channel %q out of range", s)
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	switch len(s) {
	case 1:
		return uint8(v * 0x11), nil
	case 2:
		return uint8(v), nil
	case 3:
		return uint8(v >> 4), nil
	default:
		return uint8(v >> 8), nil
	}
}
