package lightshow

import "math"

// Resolution is the number of LEDs every show renders.
const Resolution = 140

// LedSample is one LED's colour in a frame.
type LedSample struct {
	Index uint8 `json:"index"`
	R     uint8 `json:"r"`
	G     uint8 `json:"g"`
	B     uint8 `json:"b"`
}

// Frame is one tick's colours for the whole strip, ordered by LED index.
type Frame []LedSample

// canvas is the float working buffer a show renders into:
// one row per colour channel, one column per LED.
type canvas [3][]float64

func newCanvas(fill float64) canvas {
	var c canvas
	for ch := range c {
		c[ch] = make([]float64, Resolution)
		for i := range c[ch] {
			c[ch][i] = fill
		}
	}
	return c
}

// set writes one LED's colour.
func (c canvas) set(led int, r, g, b float64) {
	c[0][led], c[1][led], c[2][led] = r, g, b
}

// scale multiplies every value by f.
func (c canvas) scale(f float64) {
	for ch := range c {
		for i := range c[ch] {
			c[ch][i] *= f
		}
	}
}

// flatten lays the channels end to end for whole-frame smoothing.
func (c canvas) flatten() []float64 {
	out := make([]float64, 0, 3*Resolution)
	for ch := range c {
		out = append(out, c[ch]...)
	}
	return out
}

// canvasFrom is the inverse of flatten.
func canvasFrom(flat []float64) canvas {
	var c canvas
	for ch := range c {
		c[ch] = make([]float64, Resolution)
		copy(c[ch], flat[ch*Resolution:(ch+1)*Resolution])
	}
	return c
}

// frame converts the canvas to a Frame, clamping each channel to [0, 255]
// and truncating fractions.
func (c canvas) frame() Frame {
	f := make(Frame, Resolution)
	for i := range f {
		f[i] = LedSample{
			Index: uint8(i), //nolint:gosec // Resolution fits in a byte
			R:     toByte(c[0][i]),
			G:     toByte(c[1][i]),
			B:     toByte(c[2][i]),
		}
	}
	return f
}

func toByte(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Clone returns an independent copy of f.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}
