package process

import (
	"math"

	"depthcam/video/source"
)

const (
	// Depth samples outside (MinDepth, MaxDepth) millimeters are zeroed.
	MinDepth = 20
	MaxDepth = 10000

	maxIR = math.MaxUint16
)

// TransformDepth scales raw depth samples to millimeters, zeroing anything
// outside the valid range.
func TransformDepth(raw *source.RawFrame) Image16 {
	img := NewImage16(raw.Width, raw.Height)
	samples := raw.Samples()
	n := len(img.Pix)
	if len(samples) < n {
		n = len(samples)
	}
	scale := float64(raw.Scale)
	for i := 0; i < n; i++ {
		img.Pix[i] = clipDepth(float64(samples[i]) * scale)
	}
	return img
}

func clipDepth(mm float64) uint16 {
	if !(mm > MinDepth && mm < MaxDepth) {
		return 0
	}
	return uint16(math.Round(mm))
}

// TransformIR stretches the frame's own min/max range onto [0, 65535]. A
// constant frame maps to all zeros.
func TransformIR(raw *source.RawFrame) Image16 {
	img := NewImage16(raw.Width, raw.Height)
	samples := raw.Samples()
	n := len(img.Pix)
	if len(samples) < n {
		n = len(samples)
	}
	if n == 0 {
		return img
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples[:n] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return img
	}

	span := float64(hi - lo)
	for i, v := range samples[:n] {
		img.Pix[i] = uint16(math.Round(float64(v-lo) * maxIR / span))
	}
	return img
}

// Transform converts one frame set into images ready for lossless encoding.
func Transform(depth, ir *source.RawFrame) (Image16, Image16) {
	return TransformDepth(depth), TransformIR(ir)
}
