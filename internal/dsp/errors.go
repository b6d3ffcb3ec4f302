package dsp

import "errors"

var (
	// ErrInvalidAlpha is returned when a smoothing coefficient is outside (0, 1).
	ErrInvalidAlpha = errors.New("dsp: smoothing coefficient must be in (0, 1)")

	// ErrLengthMismatch is returned when a vector does not match the filter size.
	ErrLengthMismatch = errors.New("dsp: vector length mismatch")

	// ErrInvalidFilterbank is returned for an unusable filterbank configuration.
	ErrInvalidFilterbank = errors.New("dsp: invalid filterbank configuration")
)
