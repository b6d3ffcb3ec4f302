package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/ledtube-core/internal/device"
	"github.com/nerrad567/ledtube-core/internal/discovery"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
	"github.com/nerrad567/ledtube-core/internal/streamer"
)

// Logger defines the logging interface used by the engine.
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

// Registry is the device store shared by the listener, the streamer and
// status queries.
type Registry interface {
	Clear(ctx context.Context) error
	Upsert(ctx context.Context, e device.Endpoint) error
	GetAll(ctx context.Context) ([]device.Endpoint, error)
	Count() int
}

// AudioRunner is the audio analysis loop started for music shows.
type AudioRunner interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// Deps holds everything the engine wires together.
type Deps struct {
	// NodeID identifies this controller in status reports.
	NodeID string

	Registry Registry
	Beacon   discovery.BeaconConfig
	Listener discovery.ListenerConfig
	Streamer streamer.Config

	// DefaultShow is used when streaming starts with no show selected.
	DefaultShow lightshow.Kind

	// ShowParams are the configured show settings; SetShow falls back to
	// them field by field.
	ShowParams lightshow.Params

	// Spectrum feeds the music shows. Nil disables them.
	Spectrum lightshow.SpectrumSource

	// Audio is started for music shows and stopped otherwise. Optional.
	Audio AudioRunner

	Logger Logger
}

// Session is the active show.
type Session struct {
	ID        string           `json:"id"`
	Kind      lightshow.Kind   `json:"show"`
	Params    lightshow.Params `json:"params"`
	StartedAt time.Time        `json:"started_at"`

	gen lightshow.Generator
}

// Engine is the orchestrator.
type Engine struct {
	nodeID      string
	registry    Registry
	beacon      *discovery.Beacon
	listener    *discovery.Listener
	streamer    *streamer.Streamer
	audio       AudioRunner
	spectrum    lightshow.SpectrumSource
	defaultShow lightshow.Kind
	params      lightshow.Params
	logger      Logger
	now         func() time.Time

	// ctx bounds every loop; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	session atomic.Pointer[Session]
	showMu  sync.Mutex

	observers []Observer
	obsMu     sync.RWMutex
}

// New builds an engine with every loop stopped.
//
// Parameters:
//   - deps: collaborators and loop settings; Registry is required
//
// Returns:
//   - *Engine: ready engine
//   - error: ErrNoRegistry, or an unknown DefaultShow
func New(deps Deps) (*Engine, error) {
	if deps.Registry == nil {
		return nil, ErrNoRegistry
	}
	if deps.DefaultShow == "" {
		deps.DefaultShow = lightshow.KindStaticWhite
	}
	if _, err := lightshow.ParseKind(string(deps.DefaultShow)); err != nil {
		return nil, fmt.Errorf("default show: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		nodeID:      deps.NodeID,
		registry:    deps.Registry,
		audio:       deps.Audio,
		spectrum:    deps.Spectrum,
		defaultShow: deps.DefaultShow,
		params:      deps.ShowParams,
		logger:      logger,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
	}

	e.beacon = discovery.NewBeacon(deps.Beacon)
	e.beacon.SetLogger(logger)

	e.listener = discovery.NewListener(deps.Listener, deps.Registry)
	e.listener.SetLogger(logger)
	e.listener.SetOnRegister(e.onRegister)

	e.streamer = streamer.New(deps.Streamer, e, deps.Registry)
	e.streamer.SetLogger(logger)
	e.streamer.SetOnStats(e.onStats)

	return e, nil
}

func (e *Engine) checkOpen(ctx context.Context) error {
	if e.closed.Load() {
		return ErrShutdown
	}
	return ctx.Err()
}

// StartDiscovery starts the registration listener, which clears the
// registry, and then the beacon. Already-running loops are left alone.
//
// ctx bounds the call only; the loops run until StopDiscovery or Shutdown.
// A beacon that cannot resolve a local address is logged and left stopped
// while the listener keeps running.
func (e *Engine) StartDiscovery(ctx context.Context) error {
	if err := e.checkOpen(ctx); err != nil {
		return err
	}

	if err := e.listener.Start(e.ctx); err != nil && !errors.Is(err, discovery.ErrAlreadyRunning) {
		return fmt.Errorf("starting registration listener: %w", err)
	}
	if err := e.beacon.Start(e.ctx); err != nil && !errors.Is(err, discovery.ErrAlreadyRunning) {
		e.logger.Warn("beacon not started", "error", err)
	}
	return nil
}

// StopDiscovery stops the beacon and the listener.
func (e *Engine) StopDiscovery() {
	var g errgroup.Group
	g.Go(func() error { e.beacon.Stop(); return nil })
	g.Go(func() error { e.listener.Stop(); return nil })
	g.Wait() //nolint:errcheck // stop functions never fail
}

// StartStreaming starts the frame streamer, selecting the default show
// first if none is active. Already streaming is not an error.
func (e *Engine) StartStreaming(ctx context.Context) error {
	if err := e.checkOpen(ctx); err != nil {
		return err
	}

	if e.session.Load() == nil {
		if _, err := e.SetShow(e.defaultShow, lightshow.Params{}); err != nil {
			return err
		}
	}

	if err := e.streamer.Start(e.ctx); err != nil && !errors.Is(err, streamer.ErrAlreadyRunning) {
		return fmt.Errorf("starting streamer: %w", err)
	}
	return nil
}

// StopStreaming stops the frame streamer. The active show is kept.
func (e *Engine) StopStreaming() {
	e.streamer.Stop()
}

// SetShow replaces the active show with a freshly built generator. Zero or
// nil params fields fall back to the configured show settings.
//
// Returns:
//   - Session: the new active show
//   - error: lightshow.ErrUnknownKind, lightshow.ErrSpectrumRequired,
//     lightshow.ErrInvalidParams or ErrShutdown
func (e *Engine) SetShow(kind lightshow.Kind, params lightshow.Params) (Session, error) {
	if e.closed.Load() {
		return Session{}, ErrShutdown
	}

	params = mergeParams(params, e.params)
	gen, err := lightshow.New(kind, params, e.spectrum)
	if err != nil {
		return Session{}, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		Params:    params,
		StartedAt: e.now().UTC(),
		gen:       gen,
	}

	e.showMu.Lock()
	prev := e.session.Swap(s)
	e.syncAudio(kind)
	e.showMu.Unlock()

	from := lightshow.Kind("")
	if prev != nil {
		from = prev.Kind
	}
	e.logger.Info("show changed", "from", from, "to", kind, "session", s.ID)
	e.emit(EventShowChanged, *s)
	return *s, nil
}

// syncAudio runs the audio pipeline only while a music show is active.
func (e *Engine) syncAudio(kind lightshow.Kind) {
	if e.audio == nil {
		return
	}
	switch {
	case kind.IsMusic() && !e.audio.IsRunning():
		if err := e.audio.Start(e.ctx); err != nil {
			e.logger.Warn("audio pipeline not started", "error", err)
		}
	case !kind.IsMusic() && e.audio.IsRunning():
		e.audio.Stop()
	}
}

// mergeParams fills zero and nil fields of p from base.
func mergeParams(p, base lightshow.Params) lightshow.Params {
	if p.Pulsating.MillisPerPulse == 0 {
		p.Pulsating.MillisPerPulse = base.Pulsating.MillisPerPulse
	}
	if p.Pulsating.MinIntensity == nil {
		p.Pulsating.MinIntensity = base.Pulsating.MinIntensity
	}
	if p.PingPong.MillisPerPulse == 0 {
		p.PingPong.MillisPerPulse = base.PingPong.MillisPerPulse
	}
	if p.PingPong.MillisPerColorCycle == 0 {
		p.PingPong.MillisPerColorCycle = base.PingPong.MillisPerColorCycle
	}
	if p.PingPong.TailFade == 0 {
		p.PingPong.TailFade = base.PingPong.TailFade
	}
	return p
}

// Current returns the active generator, or nil before the first SetShow.
// The streamer calls it once per tick.
func (e *Engine) Current() lightshow.Generator {
	if s := e.session.Load(); s != nil {
		return s.gen
	}
	return nil
}

// CurrentShow returns the active session. ok is false before the first SetShow.
func (e *Engine) CurrentShow() (Session, bool) {
	s := e.session.Load()
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// IsDiscovering reports whether the registration listener is running.
func (e *Engine) IsDiscovering() bool {
	return e.listener.IsRunning()
}

// IsStreaming reports whether the frame streamer is running.
func (e *Engine) IsStreaming() bool {
	return e.streamer.IsRunning()
}

// Status is a point-in-time view of the engine.
type Status struct {
	NodeID                string          `json:"node_id"`
	Discovering           bool            `json:"discovering"`
	BeaconRunning         bool            `json:"beacon_running"`
	BeaconAddress         string          `json:"beacon_address,omitempty"`
	BeaconsSent           uint64          `json:"beacons_sent"`
	ListenerRunning       bool            `json:"listener_running"`
	ListenerAddress       string          `json:"listener_address,omitempty"`
	RegistrationsRejected uint64          `json:"registrations_rejected"`
	Streaming             bool            `json:"streaming"`
	Show                  lightshow.Kind  `json:"show,omitempty"`
	SessionID             string          `json:"session_id,omitempty"`
	Devices               int             `json:"devices"`
	Stats                 *streamer.Stats `json:"stats,omitempty"`
	AudioRunning          bool            `json:"audio_running"`
	Timestamp             time.Time       `json:"timestamp"`
}

// Status returns the current engine status.
func (e *Engine) Status() Status {
	st := Status{
		NodeID:                e.nodeID,
		Discovering:           e.IsDiscovering(),
		BeaconRunning:         e.beacon.IsRunning(),
		BeaconsSent:           e.beacon.Sent(),
		ListenerRunning:       e.listener.IsRunning(),
		RegistrationsRejected: e.listener.Rejected(),
		Streaming:             e.IsStreaming(),
		Devices:               e.registry.Count(),
		Timestamp:             e.now().UTC(),
	}
	if st.BeaconRunning {
		if ip := e.beacon.Address(); ip != nil {
			st.BeaconAddress = ip.String()
		}
	}
	if st.ListenerRunning {
		if addr := e.ListenerAddr(); addr != nil {
			st.ListenerAddress = addr.String()
		}
	}
	if s, ok := e.CurrentShow(); ok {
		st.Show = s.Kind
		st.SessionID = s.ID
	}
	if stats, ok := e.streamer.Stats(); ok && st.Streaming {
		st.Stats = &stats
	}
	if e.audio != nil {
		st.AudioRunning = e.audio.IsRunning()
	}
	return st
}

// Shutdown stops every loop in parallel and rejects further starts.
// It returns ctx.Err() if the loops have not stopped before ctx ends.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.Go(func() error { e.streamer.Stop(); return nil })
		g.Go(func() error { e.beacon.Stop(); return nil })
		g.Go(func() error { e.listener.Stop(); return nil })
		if e.audio != nil {
			g.Go(func() error { e.audio.Stop(); return nil })
		}
		g.Wait() //nolint:errcheck // stop functions never fail
		e.cancel()
	}()

	select {
	case <-done:
		e.logger.Info("engine stopped")
		return nil
	case <-ctx.Done():
		e.cancel()
		return fmt.Errorf("engine shutdown: %w", ctx.Err())
	}
}

// ListenerAddr returns the registration listener's bound address while it
// runs, or nil.
func (e *Engine) ListenerAddr() net.Addr {
	return e.listener.Addr()
}
