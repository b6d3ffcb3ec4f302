package audio

import "errors"

var (
	// ErrNotReady is returned by a Source that has no new samples yet.
	ErrNotReady = errors.New("audio: no samples available")

	// ErrAlreadyRunning is returned when starting a pipeline twice.
	ErrAlreadyRunning = errors.New("audio: pipeline already running")

	// ErrNoSource is returned when starting a pipeline that has no source.
	ErrNoSource = errors.New("audio: no source configured")

	// ErrInvalidWAV is returned when a file is not a decodable PCM WAV file.
	ErrInvalidWAV = errors.New("audio: invalid wav file")

	// ErrEmptySamples is returned when a sample buffer carries no data.
	ErrEmptySamples = errors.New("audio: empty sample buffer")
)
