package dsp

import (
	"fmt"
	"math"
)

// HertzToMel converts a frequency in Hz to the mel scale.
func HertzToMel(freq float64) float64 {
	return 2595 * math.Log10(1+freq/700)
}

// MelToHertz converts a mel value back to Hz.
func MelToHertz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// FilterbankConfig describes a mel filterbank.
type FilterbankConfig struct {
	NumMelBands int
	FreqMin     float64
	FreqMax     float64
	NumFFTBins  int
	SampleRate  int
}

// DefaultFilterbankConfig returns 16 bands over 20-8000 Hz for 64 bins at 44.1 kHz.
func DefaultFilterbankConfig() FilterbankConfig {
	return FilterbankConfig{
		NumMelBands: 16,
		FreqMin:     20,
		FreqMax:     8000,
		NumFFTBins:  64,
		SampleRate:  44100,
	}
}

// MelFilterbank maps FFT magnitude bins onto mel bands with triangular
// filters. The weight matrix is computed once and reused for every Apply.
type MelFilterbank struct {
	cfg     FilterbankConfig
	weights [][]float64 // [band][bin]
	edges   [][3]float64
}

// NewMelFilterbank computes the filter matrix.
//
// NumMelBands+2 points are spaced evenly on the mel scale between FreqMin
// and FreqMax; band b uses points b, b+1, b+2 as lower edge, centre and
// upper edge. Bin i sits at frequency i*(SampleRate/2)/(NumFFTBins-1).
// A band's weight rises linearly from 0 at its lower edge to 1 at its
// centre and falls back to 0 at its upper edge.
func NewMelFilterbank(cfg FilterbankConfig) (*MelFilterbank, error) {
	switch {
	case cfg.NumMelBands < 1:
		return nil, fmt.Errorf("%w: num mel bands %d", ErrInvalidFilterbank, cfg.NumMelBands)
	case cfg.NumFFTBins < 2:
		return nil, fmt.Errorf("%w: num fft bins %d", ErrInvalidFilterbank, cfg.NumFFTBins)
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidFilterbank, cfg.SampleRate)
	case cfg.FreqMin < 0 || cfg.FreqMin >= cfg.FreqMax:
		return nil, fmt.Errorf("%w: frequency range %v-%v", ErrInvalidFilterbank, cfg.FreqMin, cfg.FreqMax)
	}

	melMin := HertzToMel(cfg.FreqMin)
	melMax := HertzToMel(cfg.FreqMax)
	step := (melMax - melMin) / float64(cfg.NumMelBands+1)

	points := make([]float64, cfg.NumMelBands+2)
	for i := range points {
		points[i] = MelToHertz(melMin + float64(i)*step)
	}

	binFreqs := linspace(0, float64(cfg.SampleRate)/2, cfg.NumFFTBins)

	fb := &MelFilterbank{
		cfg:     cfg,
		weights: make([][]float64, cfg.NumMelBands),
		edges:   make([][3]float64, cfg.NumMelBands),
	}
	for b := 0; b < cfg.NumMelBands; b++ {
		lower, center, upper := points[b], points[b+1], points[b+2]
		fb.edges[b] = [3]float64{lower, center, upper}

		row := make([]float64, cfg.NumFFTBins)
		for i, f := range binFreqs {
			switch {
			case f >= lower && f < center:
				row[i] = (f - lower) / (center - lower)
			case f >= center && f <= upper:
				row[i] = (upper - f) / (upper - center)
			}
		}
		fb.weights[b] = row
	}
	return fb, nil
}

// Apply returns the per-band weighted sum of magnitudes.
func (fb *MelFilterbank) Apply(magnitudes []float64) ([]float64, error) {
	if len(magnitudes) != fb.cfg.NumFFTBins {
		return nil, fmt.Errorf("%w: got %d bins, want %d", ErrLengthMismatch, len(magnitudes), fb.cfg.NumFFTBins)
	}
	out := make([]float64, len(fb.weights))
	for b, row := range fb.weights {
		var sum float64
		for i, w := range row {
			if w != 0 {
				sum += w * magnitudes[i]
			}
		}
		out[b] = sum
	}
	return out, nil
}

// Weights returns a copy of the filter row for band b.
func (fb *MelFilterbank) Weights(b int) []float64 {
	out := make([]float64, len(fb.weights[b]))
	copy(out, fb.weights[b])
	return out
}

// Edges returns the lower, centre and upper frequency (Hz) of band b.
func (fb *MelFilterbank) Edges(b int) (lower, center, upper float64) {
	e := fb.edges[b]
	return e[0], e[1], e[2]
}

// NumBands returns the number of mel bands.
func (fb *MelFilterbank) NumBands() int { return fb.cfg.NumMelBands }

// NumBins returns the number of FFT bins expected by Apply.
func (fb *MelFilterbank) NumBins() int { return fb.cfg.NumFFTBins }

// linspace returns n evenly spaced values from start to stop inclusive.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
