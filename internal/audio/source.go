package audio

import (
	"context"
	"sync"
)

// Samples is one capture buffer. Exactly one of Bins or PCM is set:
// Bins when the capture device already ran an FFT, PCM (mono, in [-1, 1])
// when it only supplies time-domain samples.
type Samples struct {
	Bins []complex128
	PCM  []float64
}

// Source supplies the newest capture buffer.
// Read returns ErrNotReady when nothing new has arrived since the last call.
type Source interface {
	Read(ctx context.Context) (Samples, error)
}

// Runner is implemented by sources that own a capture process. A Pipeline
// starts it with the analysis loop and stops it when the loop stops.
type Runner interface {
	Start(ctx context.Context) error
	Stop() error
}

// FeedSource is a Source for capture collaborators that push buffers.
// It keeps only the newest buffer; older unread buffers are dropped.
type FeedSource struct {
	mu      sync.Mutex
	latest  Samples
	fresh   bool
	dropped uint64
}

// NewFeedSource creates an empty FeedSource.
func NewFeedSource() *FeedSource {
	return &FeedSource{}
}

// Push stores s as the newest buffer, replacing any unread one.
func (f *FeedSource) Push(s Samples) {
	f.mu.Lock()
	if f.fresh {
		f.dropped++
	}
	f.latest = s
	f.fresh = true
	f.mu.Unlock()
}

// PushPCM is shorthand for Push(Samples{PCM: pcm}).
func (f *FeedSource) PushPCM(pcm []float64) {
	f.Push(Samples{PCM: pcm})
}

// PushBins is shorthand for Push(Samples{Bins: bins}).
func (f *FeedSource) PushBins(bins []complex128) {
	f.Push(Samples{Bins: bins})
}

// Read returns the newest unread buffer or ErrNotReady.
func (f *FeedSource) Read(_ context.Context) (Samples, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.fresh {
		return Samples{}, ErrNotReady
	}
	f.fresh = false
	return f.latest, nil
}

// Dropped returns how many buffers were overwritten before being read.
func (f *FeedSource) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
