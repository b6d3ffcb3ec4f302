package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVSource plays a PCM WAV file in real time and serves, on every Read,
// the window of samples ending at the current playback position. It stands
// in for a live capture device.
type WAVSource struct {
	samples    []float64 // mono, normalised to [-1, 1]
	sampleRate int
	window     int
	loop       bool

	now     func() time.Time
	started time.Time
}

// OpenWAV decodes path into memory.
//
// Parameters:
//   - path: PCM WAV file; multi-channel audio is mixed down to mono
//   - window: samples returned per Read
//   - loop: restart from the beginning at end of file instead of returning io.EOF
func OpenWAV(path string, window int, loop bool) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wav: %w", err)
	}
	defer f.Close()

	return DecodeWAV(f, window, loop)
}

// DecodeWAV decodes a WAV stream into a WAVSource.
func DecodeWAV(r io.ReadSeeker, window int, loop bool) (*WAVSource, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive", ErrInvalidWAV)
	}

	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidWAV)
	}

	mono := mixDown(buf)
	if len(mono) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidWAV)
	}

	return &WAVSource{
		samples:    mono,
		sampleRate: buf.Format.SampleRate,
		window:     window,
		loop:       loop,
		now:        time.Now,
	}, nil
}

// mixDown averages interleaved channels and scales integer samples by
// 2^(bitDepth-1).
func mixDown(buf *goaudio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

// SampleRate returns the file's sample rate.
func (s *WAVSource) SampleRate() int { return s.sampleRate }

// Duration returns the playback length of the file.
func (s *WAVSource) Duration() time.Duration {
	return time.Duration(len(s.samples)) * time.Second / time.Duration(s.sampleRate)
}

// Read returns the window ending at the current playback position. The
// first call starts the clock. Past the end of a non-looping file it
// returns io.EOF.
func (s *WAVSource) Read(ctx context.Context) (Samples, error) {
	if err := ctx.Err(); err != nil {
		return Samples{}, err
	}

	now := s.now()
	if s.started.IsZero() {
		s.started = now
	}

	pos := int(now.Sub(s.started).Seconds() * float64(s.sampleRate))
	if pos >= len(s.samples) {
		if !s.loop {
			return Samples{}, io.EOF
		}
		pos %= len(s.samples)
	}

	out := make([]float64, s.window)
	// Fill backwards from pos so the newest sample is last.
	for i := s.window - 1; i >= 0; i-- {
		idx := pos - (s.window - 1 - i)
		switch {
		case idx >= 0:
			out[i] = s.samples[idx]
		case s.loop:
			out[i] = s.samples[(idx%len(s.samples)+len(s.samples))%len(s.samples)]
		}
	}
	return Samples{PCM: out}, nil
}
