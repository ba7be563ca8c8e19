// Package ioutil holds small IO interfaces shared by the grid encoders.
package ioutil

import "io"

// Writer is the sink used when encoding grid contents to UTF-8. Both
// bytes.Buffer and strings.Builder satisfy it.
type Writer interface {
	io.Writer
	io.ByteWriter
}
