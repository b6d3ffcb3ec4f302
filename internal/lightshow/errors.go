package lightshow

import "errors"

var (
	// ErrUnknownKind is returned for a show name that is not one of the six kinds.
	ErrUnknownKind = errors.New("lightshow: unknown kind")

	// ErrSpectrumRequired is returned when building a music show without a spectrum source.
	ErrSpectrumRequired = errors.New("lightshow: music show requires a spectrum source")

	// ErrInvalidParams is returned when show parameters are out of range.
	ErrInvalidParams = errors.New("lightshow: invalid parameters")
)
