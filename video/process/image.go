package process

import (
	"encoding/binary"
)

// Image16 is a single channel 16-bit image in row-major order.
type Image16 struct {
	Width, Height int
	Pix           []uint16
}

func NewImage16(width, height int) Image16 {
	return Image16{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height),
	}
}

// Bytes returns the little-endian plane, the layout ffmpeg expects for gray16le.
func (i Image16) Bytes() []byte {
	b := make([]byte, len(i.Pix)*2)
	for n, v := range i.Pix {
		binary.LittleEndian.PutUint16(b[n*2:], v)
	}
	return b
}

// Image8 is a single channel 8-bit image for display.
type Image8 struct {
	Width, Height int
	Pix           []uint8
}
