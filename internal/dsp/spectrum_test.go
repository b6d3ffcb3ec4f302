package dsp

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestMagnitudes(t *testing.T) {
	bins := []complex128{
		complex(-3, 4), // DC: |re| only
		complex(0, 0),  // silent: clamped to 0
		complex(10, 0), // 10*log10(100) = 20
		complex(0.1, 0),
		complex(3, 4), // 10*log10(25)
	}
	got := Magnitudes(bins)
	want := []float64{3, 0, 20, 0, 10 * math.Log10(25)}

	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("Magnitudes()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Magnitudes(nil)) != 0 {
		t.Error("Magnitudes(nil) should be empty")
	}
}

func TestTransformer_PureTone(t *testing.T) {
	const numBins = 64
	tr := NewTransformer(numBins)
	if tr.WindowSize() != 128 {
		t.Fatalf("WindowSize() = %d, want 128", tr.WindowSize())
	}

	// A cosine completing exactly 8 cycles in the window lands in bin 8.
	samples := make([]float64, tr.WindowSize())
	for i := range samples {
		samples[i] = math.Cos(2 * math.Pi * 8 * float64(i) / float64(len(samples)))
	}

	bins := tr.Transform(samples)
	if len(bins) != numBins {
		t.Fatalf("len(bins) = %d, want %d", len(bins), numBins)
	}

	peak := 0
	for i := range bins {
		if cmplx.Abs(bins[i]) > cmplx.Abs(bins[peak]) {
			peak = i
		}
	}
	if peak != 8 {
		t.Errorf("peak bin = %d, want 8", peak)
	}
}

func TestTransformer_PadsAndTrims(t *testing.T) {
	tr := NewTransformer(4)

	short := tr.Transform([]float64{1})
	// A single impulse has a flat spectrum.
	for i, b := range short {
		if math.Abs(cmplx.Abs(b)-1) > 1e-9 {
			t.Errorf("impulse bin %d = %v, want magnitude 1", i, b)
		}
	}

	long := make([]float64, 20)
	long[len(long)-tr.WindowSize()] = 1
	trimmed := tr.Transform(long)
	for i, b := range trimmed {
		if math.Abs(cmplx.Abs(b)-1) > 1e-9 {
			t.Errorf("trimmed bin %d = %v, want magnitude 1", i, b)
		}
	}
}
