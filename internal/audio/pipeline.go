package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ledtube-core/internal/dsp"
)

// Analysis constants.
const (
	gainInitial = 0.1
	gainRise    = 0.75
	gainDecay   = 0.001

	smoothInitial = 0.1
	smoothRise    = 0.99
	smoothDecay   = 0.2

	// GainFloor is the smallest divisor used when normalising by the gain envelope.
	GainFloor = 1e-6
)

// Logger defines the logging interface used by the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Observer receives every published spectrum on the analysis goroutine.
// The slice is shared with Analyze's caller and must not be modified.
type Observer func(spectrum []float64)

// Config configures a Pipeline.
type Config struct {
	Filterbank dsp.FilterbankConfig

	// FPS is the analysis rate of the Run loop.
	FPS int
}

// DefaultConfig returns 16 mel bands, 64 bins at 44.1 kHz analysed at 70 fps.
func DefaultConfig() Config {
	return Config{Filterbank: dsp.DefaultFilterbankConfig(), FPS: 70}
}

// Pipeline turns capture buffers into a normalised per-band spectrum.
//
// Per buffer: FFT (when only PCM is available), log magnitudes, mel
// filterbank, cube, divide by an adaptive gain envelope, smooth, publish.
// The published vector is replaced atomically, so generators on the
// streamer goroutine always read a complete vector, at worst one
// analysis tick old.
type Pipeline struct {
	cfg         Config
	source      Source
	filterbank  *dsp.MelFilterbank
	transformer *dsp.Transformer

	mu     sync.Mutex // serialises Analyze
	gain   *dsp.SmoothingFilter
	smooth *dsp.SmoothingFilter

	latest   atomic.Pointer[[]float64]
	observer atomic.Pointer[Observer]
	analyzed atomic.Uint64

	logger Logger

	lifeMu  sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewPipeline builds the filterbank and filters for cfg. source may be nil
// when buffers are only fed through Analyze.
func NewPipeline(cfg Config, source Source) (*Pipeline, error) {
	fb, err := dsp.NewMelFilterbank(cfg.Filterbank)
	if err != nil {
		return nil, err
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("audio: fps must be positive, got %d", cfg.FPS)
	}

	bands := cfg.Filterbank.NumMelBands
	gain, err := dsp.NewSmoothingFilterFilled(bands, gainInitial, gainRise, gainDecay)
	if err != nil {
		return nil, err
	}
	smooth, err := dsp.NewSmoothingFilterFilled(bands, smoothInitial, smoothRise, smoothDecay)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:         cfg,
		source:      source,
		filterbank:  fb,
		transformer: dsp.NewTransformer(cfg.Filterbank.NumFFTBins),
		gain:        gain,
		smooth:      smooth,
		logger:      noopLogger{},
	}, nil
}

// SetLogger sets the logger for the pipeline.
func (p *Pipeline) SetLogger(logger Logger) {
	p.logger = logger
}

// SetObserver registers fn to receive every published spectrum. Pass nil to remove it.
func (p *Pipeline) SetObserver(fn Observer) {
	if fn == nil {
		p.observer.Store(nil)
		return
	}
	p.observer.Store(&fn)
}

// NumBands returns the length of the published spectrum.
func (p *Pipeline) NumBands() int {
	return p.cfg.Filterbank.NumMelBands
}

// WindowSize returns the PCM window length the FFT consumes.
func (p *Pipeline) WindowSize() int {
	return p.transformer.WindowSize()
}

// Analyze runs one analysis step on s, publishes the result and notifies the observer.
//
// Returns:
//   - []float64: the published spectrum (caller-owned copy)
//   - error: ErrEmptySamples for an empty buffer, or a length error when
//     Bins is shorter than the filterbank expects
func (p *Pipeline) Analyze(s Samples) ([]float64, error) {
	p.mu.Lock()
	spectrum, err := p.analyzeLocked(s)
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}

	published := make([]float64, len(spectrum))
	copy(published, spectrum)
	p.latest.Store(&published)
	p.analyzed.Add(1)

	if obs := p.observer.Load(); obs != nil {
		(*obs)(spectrum)
	}
	return spectrum, nil
}

func (p *Pipeline) analyzeLocked(s Samples) ([]float64, error) {
	bins := s.Bins
	switch {
	case len(bins) > 0:
	case len(s.PCM) > 0:
		bins = p.transformer.Transform(s.PCM)
	default:
		return nil, ErrEmptySamples
	}

	n := p.filterbank.NumBins()
	if len(bins) < n {
		return nil, fmt.Errorf("%w: got %d bins, want %d", dsp.ErrLengthMismatch, len(bins), n)
	}

	mel, err := p.filterbank.Apply(dsp.Magnitudes(bins[:n]))
	if err != nil {
		return nil, err
	}

	for i, v := range mel {
		mel[i] = v * v * v
	}

	envelope, err := p.gain.Update(mel)
	if err != nil {
		return nil, err
	}
	for i := range mel {
		mel[i] /= math.Max(envelope[i], GainFloor)
	}

	return p.smooth.Update(mel)
}

// Latest returns a copy of the most recently published spectrum.
// ok is false until the first analysis completes.
func (p *Pipeline) Latest() (spectrum []float64, ok bool) {
	v := p.latest.Load()
	if v == nil {
		return nil, false
	}
	out := make([]float64, len(*v))
	copy(out, *v)
	return out, true
}

// Spectrum is Latest under the name generators consume.
func (p *Pipeline) Spectrum() ([]float64, bool) {
	return p.Latest()
}

// Analyzed returns the number of spectra published so far.
func (p *Pipeline) Analyzed() uint64 {
	return p.analyzed.Load()
}

// Start launches the analysis loop, pulling from the source at the configured FPS.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.source == nil {
		return ErrNoSource
	}

	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}
	if r, ok := p.source.(Runner); ok {
		if err := r.Start(ctx); err != nil {
			return fmt.Errorf("audio: starting capture: %w", err)
		}
	}
	p.running = true
	p.done = make(chan struct{})

	p.wg.Add(1)
	go p.run(ctx, p.done)

	p.logger.Info("audio pipeline started", "fps", p.cfg.FPS, "bands", p.NumBands())
	return nil
}

// Stop ends the analysis loop and waits for it to exit. Safe to call when stopped.
func (p *Pipeline) Stop() {
	p.lifeMu.Lock()
	wasRunning := p.running
	if wasRunning {
		p.running = false
		close(p.done)
	}
	p.lifeMu.Unlock()

	if wasRunning {
		p.wg.Wait()
	}
	// The loop may have ended on its own while capture is still up.
	if r, ok := p.source.(Runner); ok {
		if err := r.Stop(); err != nil {
			p.logger.Warn("stopping audio capture failed", "error", err)
		}
	}
	if wasRunning {
		p.logger.Info("audio pipeline stopped", "analyzed", p.Analyzed())
	}
}

// IsRunning reports whether the analysis loop is active.
func (p *Pipeline) IsRunning() bool {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	return p.running
}

func (p *Pipeline) run(ctx context.Context, done <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(p.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			p.markStopped(done)
			return
		case <-ticker.C:
		}

		samples, err := p.source.Read(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotReady):
			continue
		case errors.Is(err, io.EOF):
			p.logger.Info("audio source exhausted")
			p.markStopped(done)
			return
		case errors.Is(err, context.Canceled):
			p.markStopped(done)
			return
		default:
			p.logger.Warn("audio source read failed", "error", err)
			continue
		}

		if _, err := p.Analyze(samples); err != nil {
			p.logger.Warn("audio analysis failed", "error", err)
		}
	}
}

// markStopped clears the running flag when the loop exits on its own.
func (p *Pipeline) markStopped(done <-chan struct{}) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if p.running && p.done == done {
		p.running = false
		close(p.done)
	}
}
