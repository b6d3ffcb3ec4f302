package lightshow

import (
	"math"
	"time"

	"github.com/nerrad567/ledtube-core/internal/dsp"
)

// Music show tuning.
const (
	energyRise  = 0.6
	energyDecay = 0.01

	scrollGainRise  = 0.99
	scrollGainDecay = 0.001
	scrollFade      = 0.95
	scrollGainFloor = 1e-6
)

// middle is the index of the first LED right of the strip's centre.
const middle = Resolution / 2

// bandThirds splits a spectrum into low, mid and high thirds. Bands left
// over by integer division go to the last third.
func bandThirds(spectrum []float64) [3][]float64 {
	n := len(spectrum) / 3
	return [3][]float64{spectrum[:n], spectrum[n : 2*n], spectrum[2*n:]}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}

// musicEnergy grows a bar outward from the centre for each colour channel:
// red follows the low third of the spectrum, green the mid, blue the high.
type musicEnergy struct {
	spectrum SpectrumSource
	smooth   *dsp.SmoothingFilter
	last     Frame
}

func newMusicEnergy(src SpectrumSource) *musicEnergy {
	// Coefficients are constants inside (0, 1).
	smooth, _ := dsp.NewSmoothingFilterFilled(3*Resolution, 0, energyRise, energyDecay) //nolint:errcheck // constant coefficients
	return &musicEnergy{
		spectrum: src,
		smooth:   smooth,
		last:     newCanvas(0).frame(),
	}
}

func (m *musicEnergy) Kind() Kind      { return KindMusicEnergy }
func (m *musicEnergy) FPS() int        { return animatedFPS }
func (m *musicEnergy) Resolution() int { return Resolution }

func (m *musicEnergy) Frame(_ time.Time) Frame {
	spectrum, ok := m.spectrum.Spectrum()
	if !ok || len(spectrum) < 3 {
		return m.last.Clone()
	}

	target := newCanvas(0)
	for ch, band := range bandThirds(spectrum) {
		lit := int(mean(band) * float64(middle-1))
		for led := 0; led < min(lit, middle); led++ {
			target[ch][middle+led] = 255
			target[ch][middle-1-led] = 255
		}
	}

	smoothed, err := m.smooth.Update(target.flatten())
	if err != nil {
		return m.last.Clone()
	}
	m.last = canvasFrom(smoothed).frame()
	return m.last.Clone()
}

// musicScroll injects the current per-third peak at the two centre LEDs each
// tick and scrolls older values outward while they fade.
type musicScroll struct {
	spectrum SpectrumSource
	gain     *dsp.SmoothingFilter
	buf      canvas
	last     Frame
}

func newMusicScroll(src SpectrumSource) *musicScroll {
	return &musicScroll{
		spectrum: src,
		buf:      newCanvas(0),
		last:     newCanvas(0).frame(),
	}
}

func (m *musicScroll) Kind() Kind      { return KindMusicScroll }
func (m *musicScroll) FPS() int        { return animatedFPS }
func (m *musicScroll) Resolution() int { return Resolution }

func (m *musicScroll) Frame(_ time.Time) Frame {
	spectrum, ok := m.spectrum.Spectrum()
	if !ok || len(spectrum) < 3 {
		return m.last.Clone()
	}

	levels, err := m.normalize(spectrum)
	if err != nil {
		return m.last.Clone()
	}

	var peaks [3]float64
	for ch, band := range bandThirds(levels) {
		peaks[ch] = maxOf(band) * 255
	}

	m.scroll()
	m.buf.set(middle, peaks[0], peaks[1], peaks[2])
	m.buf.set(middle-1, peaks[0], peaks[1], peaks[2])

	m.last = m.buf.frame()
	return m.last.Clone()
}

// normalize cubes the spectrum to sharpen peaks, then divides by a slowly
// tracking gain so quiet and loud passages use the same range.
func (m *musicScroll) normalize(spectrum []float64) ([]float64, error) {
	cubed := make([]float64, len(spectrum))
	for i, v := range spectrum {
		cubed[i] = v * v * v
	}

	if m.gain == nil || m.gain.Len() != len(cubed) {
		g, err := dsp.NewSmoothingFilterFilled(len(cubed), 0, scrollGainRise, scrollGainDecay)
		if err != nil {
			return nil, err
		}
		m.gain = g
	}
	gain, err := m.gain.Update(cubed)
	if err != nil {
		return nil, err
	}

	for i := range cubed {
		cubed[i] /= math.Max(gain[i], scrollGainFloor)
	}
	return cubed, nil
}

// scroll moves the right half one LED right and the left half one LED left,
// then fades everything. The two centre LEDs are overwritten afterwards.
func (m *musicScroll) scroll() {
	for ch := range m.buf {
		row := m.buf[ch]
		for i := Resolution - 1; i > middle; i-- {
			row[i] = row[i-1]
		}
		for i := 0; i < middle-1; i++ {
			row[i] = row[i+1]
		}
	}
	m.buf.scale(scrollFade)
}
