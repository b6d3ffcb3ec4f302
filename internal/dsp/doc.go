// Package dsp holds the signal-processing primitives behind the
// audio-reactive shows: an asymmetric exponential smoothing filter, a
// triangular mel filterbank and FFT magnitude conversion.
//
// The FFT itself comes from gonum.org/v1/gonum/dsp/fourier.
package dsp
