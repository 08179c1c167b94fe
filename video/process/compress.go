package process

import (
	"math"
)

// Display-only log compression constants. These never affect saved data.
const (
	previewOffset = 100
	previewLow    = 160
	previewHigh   = 5500
	previewLogMin = 5
	previewGain   = 70
)

var logTable = func() (t [previewHigh + 1]uint8) {
	for v := previewLow; v <= previewHigh; v++ {
		t[v] = uint8((math.Log(float64(v)) - previewLogMin) * previewGain)
	}
	return t
}()

// LogCompress maps a 16-bit IR image onto 8 bits for viewing.
func LogCompress(in Image16) Image8 {
	out := Image8{
		Width:  in.Width,
		Height: in.Height,
		Pix:    make([]uint8, len(in.Pix)),
	}
	for i, v := range in.Pix {
		x := int(v) + previewOffset
		if x < previewLow {
			x = previewLow
		} else if x > previewHigh {
			x = previewHigh
		}
		out.Pix[i] = logTable[x]
	}
	return out
}
