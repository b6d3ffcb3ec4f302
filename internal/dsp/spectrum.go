package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Magnitudes converts complex FFT bins to log power. The DC bin is the
// absolute value of its real part; every other bin is
// max(0, 10*log10(re^2 + im^2)).
func Magnitudes(bins []complex128) []float64 {
	out := make([]float64, len(bins))
	if len(bins) == 0 {
		return out
	}
	out[0] = math.Abs(real(bins[0]))
	for i := 1; i < len(bins); i++ {
		re, im := real(bins[i]), imag(bins[i])
		power := re*re + im*im
		if power <= 0 {
			continue
		}
		out[i] = math.Max(0, 10*math.Log10(power))
	}
	return out
}

// Transformer runs a real FFT over fixed-size windows of time-domain samples.
// It reuses its buffers and is not safe for concurrent use.
type Transformer struct {
	fft     *fourier.FFT
	n       int
	numBins int
	window  []float64
	coeffs  []complex128
}

// NewTransformer returns a Transformer producing numBins bins. It consumes
// windows of 2*numBins samples; the Nyquist coefficient is dropped.
func NewTransformer(numBins int) *Transformer {
	n := 2 * numBins
	return &Transformer{
		fft:     fourier.NewFFT(n),
		n:       n,
		numBins: numBins,
		window:  make([]float64, n),
		coeffs:  make([]complex128, n/2+1),
	}
}

// WindowSize returns the number of time-domain samples per transform.
func (t *Transformer) WindowSize() int { return t.n }

// Transform returns numBins complex bins for samples. Shorter input is
// zero-padded; longer input uses its newest WindowSize samples.
func (t *Transformer) Transform(samples []float64) []complex128 {
	if len(samples) > t.n {
		samples = samples[len(samples)-t.n:]
	}
	copy(t.window, samples)
	for i := len(samples); i < t.n; i++ {
		t.window[i] = 0
	}

	t.coeffs = t.fft.Coefficients(t.coeffs, t.window)

	out := make([]complex128, t.numBins)
	copy(out, t.coeffs[:t.numBins])
	return out
}
