package streamer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ledtube-core/internal/device"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
)

// Defaults.
const (
	DefaultStatsWindow = time.Second

	// idleWait is how long the loop waits when no show is active.
	idleWait = 100 * time.Millisecond
)

// Logger defines the logging interface used by the streamer.
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

// FrameSource returns the active generator. It is read once per tick, so a
// swap takes effect on the next frame. A nil generator idles the loop.
type FrameSource interface {
	Current() lightshow.Generator
}

// DeviceLister supplies frame destinations.
type DeviceLister interface {
	GetAll(ctx context.Context) ([]device.Endpoint, error)
}

// Config configures the streamer.
type Config struct {
	// StatsWindow is how often stats are computed and devices re-read.
	StatsWindow time.Duration

	// LocalAddr is the UDP bind address for outgoing frames. Empty picks
	// any free port.
	LocalAddr string
}

// Stats summarises one stats window.
type Stats struct {
	// FPS is the number of frames rendered in the window, scaled to one second.
	FPS float64 `json:"fps"`

	// Load is the share of the window spent working rather than sleeping, in [0, 1].
	Load float64 `json:"load"`

	// Devices is the number of destinations frames were sent to.
	Devices int `json:"devices"`

	// Show is the generator active at the end of the window.
	Show lightshow.Kind `json:"show"`

	// Frames and SendErrors are totals since Start.
	Frames     uint64 `json:"frames"`
	SendErrors uint64 `json:"send_errors"`

	// Window is when the window ended.
	Window time.Time `json:"window"`
}

// Streamer drives the active generator and sends its frames to every device.
type Streamer struct {
	cfg     Config
	source  FrameSource
	devices DeviceLister
	logger  Logger
	now     func() time.Time

	onStats atomic.Pointer[func(Stats)]
	stats   atomic.Pointer[Stats]

	mu      sync.Mutex
	conn    net.PacketConn
	running bool
	done    chan struct{}
	exited  chan struct{}
	release func() bool
}

// New creates a stopped streamer.
func New(cfg Config, source FrameSource, devices DeviceLister) *Streamer {
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = DefaultStatsWindow
	}
	return &Streamer{
		cfg:     cfg,
		source:  source,
		devices: devices,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the streamer.
func (s *Streamer) SetLogger(logger Logger) {
	s.logger = logger
}

// SetOnStats sets a callback invoked with every window's Stats.
// It runs on the streamer goroutine and must return quickly.
func (s *Streamer) SetOnStats(fn func(Stats)) {
	if fn == nil {
		s.onStats.Store(nil)
		return
	}
	s.onStats.Store(&fn)
}

// Stats returns the most recent window's snapshot.
// ok is false until the first window completes.
func (s *Streamer) Stats() (Stats, bool) {
	st := s.stats.Load()
	if st == nil {
		return Stats{}, false
	}
	return *st, true
}

// Start opens the UDP socket and launches the frame loop. The loop runs
// until Stop is called or ctx is cancelled.
func (s *Streamer) Start(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp4", s.cfg.LocalAddr)
	if err != nil {
		return fmt.Errorf("opening frame socket: %w", err)
	}

	s.conn = conn
	s.running = true
	s.done = make(chan struct{})
	s.exited = make(chan struct{})

	done, exited := s.done, s.exited
	s.release = context.AfterFunc(ctx, func() { s.stop(done) })
	go s.run(ctx, conn, done, exited)

	s.logger.Info("frame streamer started", "local", conn.LocalAddr().String())
	return nil
}

// Stop ends the frame loop within one frame period and closes the socket.
// Safe to call when stopped.
func (s *Streamer) Stop() {
	s.stop(nil)
}

func (s *Streamer) stop(done chan struct{}) {
	s.mu.Lock()
	if !s.running || (done != nil && s.done != done) {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	conn, exited, release := s.conn, s.exited, s.release
	s.conn = nil
	s.mu.Unlock()

	release()
	<-exited
	if err := conn.Close(); err != nil {
		s.logger.Debug("frame streamer: closing socket", "error", err)
	}
	s.logger.Info("frame streamer stopped")
}

// IsRunning reports whether the frame loop is active.
func (s *Streamer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LocalAddr returns the frame socket's address while running, or nil.
func (s *Streamer) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// framePeriod returns 1000/fps whole milliseconds.
func framePeriod(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Duration(1000/fps) * time.Millisecond
}

// sleepDuration returns how long to sleep after a tick that took elapsed,
// never negative.
func sleepDuration(period, elapsed time.Duration) time.Duration {
	return max(0, period-elapsed)
}

// window accumulates one stats window.
type window struct {
	start  time.Time
	frames int
	slept  time.Duration
}

func (s *Streamer) run(ctx context.Context, conn net.PacketConn, done, exited chan struct{}) {
	defer close(exited)

	var (
		buf        []byte
		frames     uint64
		sendErrors uint64
		show       lightshow.Kind
	)
	targets := s.refreshTargets(ctx, nil)
	win := window{start: s.now()}

	for {
		select {
		case <-done:
			return
		default:
		}

		tickStart := s.now()
		gen := s.source.Current()

		var wait time.Duration
		if gen == nil {
			show = ""
			wait = idleWait
		} else {
			show = gen.Kind()
			buf = AppendFrame(buf[:0], gen.Frame(tickStart))
			for _, dst := range targets {
				if _, err := conn.WriteTo(buf, dst); err != nil {
					sendErrors++
					s.logger.Debug("frame send failed", "device", dst.String(), "error", err)
				}
			}
			frames++
			win.frames++
			wait = sleepDuration(framePeriod(gen.FPS()), s.now().Sub(tickStart))
		}

		win.slept += wait
		if wait > 0 && !sleepOrDone(wait, done) {
			return
		}

		if elapsed := s.now().Sub(win.start); elapsed >= s.cfg.StatsWindow {
			s.publish(Stats{
				FPS:        float64(win.frames) * float64(time.Second) / float64(elapsed),
				Load:       load(win.slept, elapsed),
				Devices:    len(targets),
				Show:       show,
				Frames:     frames,
				SendErrors: sendErrors,
				Window:     s.now(),
			})
			targets = s.refreshTargets(ctx, targets)
			win = window{start: s.now()}
		}
	}
}

// load is the share of elapsed not spent sleeping, clamped to [0, 1].
func load(slept, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	l := 1 - float64(slept)/float64(elapsed)
	return min(1, max(0, l))
}

func (s *Streamer) publish(st Stats) {
	s.stats.Store(&st)
	s.logger.Debug("stream window",
		"fps", st.FPS,
		"load_pct", int(st.Load*100),
		"show", st.Show,
		"devices", st.Devices,
	)
	if fn := s.onStats.Load(); fn != nil {
		(*fn)(st)
	}
}

// refreshTargets re-reads the device list. On error the previous targets
// are kept until the next window.
func (s *Streamer) refreshTargets(ctx context.Context, prev []*net.UDPAddr) []*net.UDPAddr {
	if s.devices == nil {
		return nil
	}
	endpoints, err := s.devices.GetAll(ctx)
	if err != nil {
		s.logger.Warn("frame streamer: listing devices", "error", err)
		return prev
	}
	targets := make([]*net.UDPAddr, 0, len(endpoints))
	for _, e := range endpoints {
		if addr := e.UDPAddr(); addr != nil {
			targets = append(targets, addr)
		}
	}
	return targets
}

// sleepOrDone waits for d or until done closes.
// Returns false if done closed first.
func sleepOrDone(d time.Duration, done <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		return true
	}
}
