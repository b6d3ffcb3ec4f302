package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/ledtube-core/internal/process"
)

// CommandConfig describes an external capture command that writes raw
// signed 16-bit little-endian mono PCM to standard output.
type CommandConfig struct {
	Binary string
	Args   []string

	// Window is the number of samples per buffer handed to the pipeline.
	Window int

	// RestartDelay is the wait before restarting a crashed command.
	RestartDelay time.Duration
}

// CommandSource supervises a capture command and exposes its newest
// window of samples. It implements Runner, so a Pipeline starts the
// command with its analysis loop and stops it afterwards.
type CommandSource struct {
	window int
	feed   *FeedSource
	mgr    *process.Manager
}

// NewCommandSource prepares a capture command. Nothing runs until Start.
func NewCommandSource(cfg CommandConfig) (*CommandSource, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("audio: capture command binary is required")
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("audio: capture window must be positive, got %d", cfg.Window)
	}

	s := &CommandSource{
		window: cfg.Window,
		feed:   NewFeedSource(),
	}
	s.mgr = process.NewManager(process.Config{
		Name:             "audio-capture",
		Binary:           cfg.Binary,
		Args:             cfg.Args,
		RestartOnFailure: true,
		RestartDelay:     cfg.RestartDelay,
		Stdout:           s.consume,
	})
	return s, nil
}

// SetLogger sets the logger for the supervised command.
func (s *CommandSource) SetLogger(logger Logger) {
	s.mgr.SetLogger(logger)
}

// Start launches the capture command.
func (s *CommandSource) Start(ctx context.Context) error {
	return s.mgr.Start(ctx)
}

// Stop terminates the capture command. Safe to call when stopped.
func (s *CommandSource) Stop() error {
	return s.mgr.Stop()
}

// Stats reports the supervised command's state.
func (s *CommandSource) Stats() process.Stats {
	return s.mgr.Stats()
}

// Read returns the newest complete window or ErrNotReady.
func (s *CommandSource) Read(ctx context.Context) (Samples, error) {
	return s.feed.Read(ctx)
}

// Dropped returns how many windows were overwritten before being read.
func (s *CommandSource) Dropped() uint64 {
	return s.feed.Dropped()
}

// consume decodes whole windows from r until it fails or ends.
func (s *CommandSource) consume(r io.Reader) {
	raw := make([]byte, 2*s.window)
	for {
		if _, err := io.ReadFull(r, raw); err != nil {
			return
		}
		s.feed.PushPCM(decodeS16LE(raw))
	}
}

// decodeS16LE converts little-endian int16 samples to floats in [-1, 1).
func decodeS16LE(raw []byte) []float64 {
	pcm := make([]float64, len(raw)/2)
	for i := range pcm {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		pcm[i] = float64(v) / 32768
	}
	return pcm
}
