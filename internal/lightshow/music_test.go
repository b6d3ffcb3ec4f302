package lightshow

import (
	"testing"
	"time"
)

func TestBandThirds(t *testing.T) {
	b := bandThirds(bands(16, 1))
	if len(b[0]) != 5 || len(b[1]) != 5 || len(b[2]) != 6 {
		t.Errorf("thirds = %d/%d/%d, want 5/5/6", len(b[0]), len(b[1]), len(b[2]))
	}
}

func TestMusicEnergy_NoSpectrumHoldsFrame(t *testing.T) {
	src := &fakeSpectrum{}
	g := mustNew(t, KindMusicEnergy, Params{}, src)

	f := g.Frame(time.Now())
	for i, s := range f {
		if (s.R | s.G | s.B) != 0 {
			t.Fatalf("led %d = %+v before any spectrum", i, s)
		}
	}

	src.set(bands(16, 1)...)
	lit := g.Frame(time.Now())

	src.ok = false
	held := g.Frame(time.Now())
	for i := range lit {
		if held[i] != lit[i] {
			t.Fatalf("led %d changed without a spectrum: %+v -> %+v", i, lit[i], held[i])
		}
	}
}

func TestMusicEnergy_BarLength(t *testing.T) {
	src := &fakeSpectrum{}
	g := mustNew(t, KindMusicEnergy, Params{}, src)

	// Mean 0.5 lights int(0.5 * 69) = 34 LEDs each side of centre.
	src.set(bands(16, 0.5)...)
	f := g.Frame(time.Now())

	const on = 153 // 0.6 * 255
	checks := map[int]uint8{
		70:  on,
		103: on,
		104: 0,
		69:  on,
		36:  on,
		35:  0,
		0:   0,
		139: 0,
	}
	for led, want := range checks {
		s := f[led]
		if s.R != want || s.G != want || s.B != want {
			t.Errorf("led %d = %+v, want %d on every channel", led, s, want)
		}
	}
}

func TestMusicEnergy_ChannelsFollowThirds(t *testing.T) {
	src := &fakeSpectrum{}
	g := mustNew(t, KindMusicEnergy, Params{}, src)

	spectrum := bands(16, 0)
	for i := range 5 {
		spectrum[i] = 1 // low third only
	}
	src.set(spectrum...)
	f := g.Frame(time.Now())

	if f[middle].R == 0 {
		t.Error("red should be lit by the low bands")
	}
	if f[middle].G != 0 || f[middle].B != 0 {
		t.Errorf("centre = %+v, want only red", f[middle])
	}
}

func TestMusicScroll_SpikeAtCentre(t *testing.T) {
	src := &fakeSpectrum{}
	g := mustNew(t, KindMusicScroll, Params{}, src)

	spike := bands(16, 0)
	spike[0] = 10
	src.set(spike...)

	f := g.Frame(time.Now())
	for i, s := range f {
		centre := i == middle || i == middle-1
		switch {
		case centre && (s.R != 255 || s.G != 0 || s.B != 0):
			t.Errorf("centre led %d = %+v, want full red", i, s)
		case !centre && (s.R|s.G|s.B) != 0:
			t.Errorf("led %d = %+v, want dark", i, s)
		}
	}

	// Second tick: the first spike has moved one LED outward and faded.
	f = g.Frame(time.Now())
	for _, i := range []int{middle + 1, middle - 2} {
		if f[i].R != 244 { // 0.95 * 255 * 1000/990
			t.Errorf("led %d R = %d, want 244", i, f[i].R)
		}
	}

	// Silence: the centre goes dark while earlier values keep scrolling.
	src.set(bands(16, 0)...)
	f = g.Frame(time.Now())
	if f[middle].R != 0 || f[middle-1].R != 0 {
		t.Errorf("centre R = %d/%d after silence, want 0", f[middle].R, f[middle-1].R)
	}
	if f[middle+2].R != 232 || f[middle-3].R != 232 {
		t.Errorf("second ring R = %d/%d, want 232", f[middle+2].R, f[middle-3].R)
	}
}

func TestMusicScroll_ShiftsAndFadesPriorBuffer(t *testing.T) {
	src := &fakeSpectrum{}
	m := newMusicScroll(src)
	for i := range Resolution {
		m.buf.set(i, float64(i), float64(i)/2, 1)
	}
	prior := canvasFrom(m.buf.flatten())

	spike := bands(16, 0)
	spike[0] = 10
	src.set(spike...)
	f := m.Frame(time.Now())

	for i := range Resolution {
		var want float64
		switch {
		case i == middle || i == middle-1:
			continue
		case i > middle:
			want = prior[0][i-1] * scrollFade
		default:
			want = prior[0][i+1] * scrollFade
		}
		if f[i].R != toByte(want) {
			t.Errorf("led %d R = %d, want %d", i, f[i].R, toByte(want))
		}
	}
}

func TestMusicScroll_TooShortSpectrumHoldsFrame(t *testing.T) {
	src := &fakeSpectrum{}
	g := mustNew(t, KindMusicScroll, Params{}, src)
	src.set(1, 1)
	f := g.Frame(time.Now())
	for i, s := range f {
		if (s.R | s.G | s.B) != 0 {
			t.Fatalf("led %d = %+v, want dark", i, s)
		}
	}
}
