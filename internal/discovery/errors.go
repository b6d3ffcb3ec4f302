package discovery

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the loop is active.
	ErrAlreadyRunning = errors.New("discovery: already running")

	// ErrNoAddress is returned when no usable local IPv4 address exists.
	ErrNoAddress = errors.New("discovery: no usable IPv4 address")

	// ErrShortPayload is returned when a device sends fewer than 2 bytes.
	ErrShortPayload = errors.New("discovery: short registration payload")
)
