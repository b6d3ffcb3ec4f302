// Package audio turns captured sound into the per-band spectrum that the
// music shows render.
//
// A Source hands over the newest capture buffer (FFT bins or PCM). The
// Pipeline analyses it and publishes a normalised spectrum that any
// goroutine can read with Latest, plus an optional synchronous Observer.
//
// Two sources are provided: FeedSource, for capture code that pushes
// buffers, and WAVSource, which plays a WAV file in real time.
package audio
