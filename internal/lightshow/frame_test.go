package lightshow

import (
	"math"
	"testing"
)

func TestToByte(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{0.99, 0},
		{127.5, 127},
		{254.9, 254},
		{255, 255},
		{300, 255},
		{math.NaN(), 0},
		{math.Inf(1), 255},
	}
	for _, tt := range tests {
		if got := toByte(tt.in); got != tt.want {
			t.Errorf("toByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCanvasFrame_IndexesAndLength(t *testing.T) {
	c := newCanvas(0)
	c.set(7, 1, 2, 3)
	f := c.frame()
	if len(f) != Resolution {
		t.Fatalf("len(frame) = %d, want %d", len(f), Resolution)
	}
	for i, s := range f {
		if int(s.Index) != i {
			t.Fatalf("frame[%d].Index = %d", i, s.Index)
		}
	}
	if f[7] != (LedSample{Index: 7, R: 1, G: 2, B: 3}) {
		t.Errorf("frame[7] = %+v", f[7])
	}
}

func TestCanvas_FlattenRoundTrip(t *testing.T) {
	c := newCanvas(0)
	c.set(0, 10, 20, 30)
	c.set(Resolution-1, 40, 50, 60)

	back := canvasFrom(c.flatten())
	for ch := range c {
		for i := range c[ch] {
			if back[ch][i] != c[ch][i] {
				t.Fatalf("channel %d led %d = %v, want %v", ch, i, back[ch][i], c[ch][i])
			}
		}
	}
}

func TestFrameClone_Independent(t *testing.T) {
	f := newCanvas(255).frame()
	g := f.Clone()
	g[0].R = 0
	if f[0].R != 255 {
		t.Error("Clone() shares storage with the original")
	}
}
