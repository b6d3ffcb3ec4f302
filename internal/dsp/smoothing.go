package dsp

import "fmt"

// SmoothingFilter is an exponential moving average with separate
// coefficients for rising and falling values. Each element picks its own
// coefficient per update: rise when the new value is above the stored one,
// decay otherwise.
//
// A SmoothingFilter is not safe for concurrent use; each generator and
// pipeline stage owns its own.
type SmoothingFilter struct {
	values     []float64
	alphaRise  float64
	alphaDecay float64
}

// NewSmoothingFilter creates a filter whose state starts at initial (copied).
//
// Parameters:
//   - initial: starting state; its length fixes the filter size
//   - alphaRise: weight of the new value when it is higher, in (0, 1)
//   - alphaDecay: weight of the new value when it is lower or equal, in (0, 1)
//
// Returns:
//   - *SmoothingFilter: ready filter
//   - error: ErrInvalidAlpha if either coefficient is outside (0, 1)
func NewSmoothingFilter(initial []float64, alphaRise, alphaDecay float64) (*SmoothingFilter, error) {
	if !(alphaRise > 0 && alphaRise < 1) || !(alphaDecay > 0 && alphaDecay < 1) {
		return nil, fmt.Errorf("%w: rise=%v decay=%v", ErrInvalidAlpha, alphaRise, alphaDecay)
	}
	values := make([]float64, len(initial))
	copy(values, initial)
	return &SmoothingFilter{
		values:     values,
		alphaRise:  alphaRise,
		alphaDecay: alphaDecay,
	}, nil
}

// NewSmoothingFilterFilled creates a filter of size n with every element set to v.
func NewSmoothingFilterFilled(n int, v, alphaRise, alphaDecay float64) (*SmoothingFilter, error) {
	initial := make([]float64, n)
	for i := range initial {
		initial[i] = v
	}
	return NewSmoothingFilter(initial, alphaRise, alphaDecay)
}

// Update folds next into the filter state and returns a copy of the new state:
// v[i] = a*next[i] + (1-a)*v[i] with a = rise if next[i] > v[i] else decay.
func (f *SmoothingFilter) Update(next []float64) ([]float64, error) {
	if len(next) != len(f.values) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(next), len(f.values))
	}
	for i, n := range next {
		alpha := f.alphaDecay
		if n-f.values[i] > 0 {
			alpha = f.alphaRise
		}
		f.values[i] = alpha*n + (1-alpha)*f.values[i]
	}
	return f.Values(), nil
}

// Values returns a copy of the current state.
func (f *SmoothingFilter) Values() []float64 {
	out := make([]float64, len(f.values))
	copy(out, f.values)
	return out
}

// Len returns the filter size.
func (f *SmoothingFilter) Len() int {
	return len(f.values)
}
