package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrEndpointNotFound) {
//	    // handle not found case
//	}
var (
	// ErrEndpointNotFound is returned when no endpoint has the given key.
	ErrEndpointNotFound = errors.New("device: endpoint not found")

	// ErrInvalidEndpoint is returned when endpoint validation fails.
	ErrInvalidEndpoint = errors.New("device: invalid endpoint")

	// ErrInvalidKey is returned when a key is not of the form "address:port".
	ErrInvalidKey = errors.New("device: invalid key")
)
