package streamer

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the loop is active.
	ErrAlreadyRunning = errors.New("streamer: already running")

	// ErrNoSource is returned when the streamer has no generator source.
	ErrNoSource = errors.New("streamer: no frame source")
)
