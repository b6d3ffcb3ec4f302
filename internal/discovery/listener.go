package discovery

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/ledtube-core/internal/device"
)

// Listener defaults.
const (
	DefaultRegistrationInterval = time.Second
	DefaultReadTimeout          = 2 * time.Second
)

// registrationPayloadLen is the size of the port a device sends.
const registrationPayloadLen = 2

// Registrar is the part of the device registry the listener writes to.
type Registrar interface {
	Clear(ctx context.Context) error
	Upsert(ctx context.Context, e device.Endpoint) error
}

// ListenerConfig configures the registration listener.
type ListenerConfig struct {
	// Host is the bind address. Empty binds every interface.
	Host string

	// Port is the TCP registration port. Zero picks a free port.
	Port int

	// Interval is the pause between accepted connections.
	Interval time.Duration

	// ReadTimeout bounds the wait for a device's 2-byte payload.
	ReadTimeout time.Duration
}

// Listener accepts device registrations over TCP and upserts them into
// the registry.
type Listener struct {
	cfg        ListenerConfig
	registrar  Registrar
	logger     Logger
	now        func() time.Time
	onRegister atomic.Pointer[func(device.Endpoint)]

	mu      sync.Mutex
	ln      net.Listener
	conn    net.Conn // registration being read, closed by stop
	running bool
	done    chan struct{}
	exited  chan struct{}
	release func() bool

	registered atomic.Uint64
	rejected   atomic.Uint64
}

// NewListener creates a stopped listener writing to registrar.
// Zero Interval and ReadTimeout take defaults; Port is used as given.
func NewListener(cfg ListenerConfig, registrar Registrar) *Listener {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRegistrationInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &Listener{
		cfg:       cfg,
		registrar: registrar,
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the logger for the listener.
func (l *Listener) SetLogger(logger Logger) {
	l.logger = logger
}

// SetOnRegister sets a callback invoked after every successful registration.
// It runs on the listener goroutine and should return quickly.
func (l *Listener) SetOnRegister(fn func(device.Endpoint)) {
	if fn == nil {
		l.onRegister.Store(nil)
		return
	}
	l.onRegister.Store(&fn)
}

// DecodePort reads the device's UDP port from a registration payload:
// 2 bytes, little-endian unsigned.
func DecodePort(payload []byte) (uint16, error) {
	if len(payload) < registrationPayloadLen {
		return 0, fmt.Errorf("%w: got %d bytes", ErrShortPayload, len(payload))
	}
	return binary.LittleEndian.Uint16(payload), nil
}

// Start opens the TCP socket, clears the registry and launches the accept
// loop. The loop runs until Stop is called or ctx is cancelled. The registry
// is left untouched when the socket cannot be opened.
//
// Returns:
//   - error: ErrAlreadyRunning, a socket error, or a registry error from Clear
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return ErrAlreadyRunning
	}

	addr := net.JoinHostPort(l.cfg.Host, strconv.Itoa(l.cfg.Port))
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("opening registration socket: %w", err)
	}

	if err := l.registrar.Clear(ctx); err != nil {
		ln.Close() //nolint:errcheck // already failing
		return fmt.Errorf("clearing registry: %w", err)
	}

	l.ln = ln
	l.running = true
	l.done = make(chan struct{})
	l.exited = make(chan struct{})

	done, exited := l.done, l.exited
	l.release = context.AfterFunc(ctx, func() { l.stop(done) })
	go l.run(ctx, ln, done, exited)

	l.logger.Info("registration listener started", "address", ln.Addr().String())
	return nil
}

// Addr returns the bound address while running, or nil.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop ends the accept loop and closes the socket, unblocking a pending
// accept or registration read. Safe to call when stopped.
func (l *Listener) Stop() {
	l.stop(nil)
}

func (l *Listener) stop(done chan struct{}) {
	l.mu.Lock()
	if !l.running || (done != nil && l.done != done) {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.done)
	if err := l.ln.Close(); err != nil {
		l.logger.Debug("registration listener: closing socket", "error", err)
	}
	l.ln = nil
	if l.conn != nil {
		l.conn.Close() //nolint:errcheck // interrupts the pending read
		l.conn = nil
	}
	exited, release := l.exited, l.release
	l.mu.Unlock()

	release()
	<-exited
	l.logger.Info("registration listener stopped",
		"registered", l.registered.Load(),
		"rejected", l.rejected.Load(),
	)
}

// IsRunning reports whether the accept loop is active.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Registered returns the number of successful registrations.
func (l *Listener) Registered() uint64 {
	return l.registered.Load()
}

// Rejected returns the number of connections that did not register.
func (l *Listener) Rejected() uint64 {
	return l.rejected.Load()
}

func (l *Listener) run(ctx context.Context, ln net.Listener, done, exited chan struct{}) {
	defer close(exited)

	for {
		select {
		case <-done:
			return
		default:
		}

		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			l.logger.Warn("registration accept failed", "error", err)
		} else {
			l.handle(ctx, conn, done)
		}

		if !sleepOrDone(l.cfg.Interval, done) {
			return
		}
	}
}

// handle reads one registration and always closes the connection.
func (l *Listener) handle(ctx context.Context, conn net.Conn, done chan struct{}) {
	defer conn.Close() //nolint:errcheck // registration connections are one-shot
	if !l.track(conn, done) {
		return
	}
	defer l.untrack(conn)

	peer := peerIP(conn.RemoteAddr())
	if err := conn.SetReadDeadline(l.now().Add(l.cfg.ReadTimeout)); err != nil {
		l.logger.Debug("registration: set read deadline", "error", err)
	}

	buf := make([]byte, registrationPayloadLen)
	n, err := io.ReadFull(conn, buf)
	if err != nil {
		select {
		case <-done:
			l.logger.Debug("registration interrupted by stop", "peer", peer)
			return
		default:
		}
		l.rejected.Add(1)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w: got %d bytes", ErrShortPayload, n)
		}
		l.logger.Warn("registration skipped", "peer", peer, "error", err)
		return
	}

	if _, err := l.register(ctx, peer, buf); err != nil {
		l.rejected.Add(1)
		l.logger.Warn("registration rejected", "peer", peer, "error", err)
	}
}

// track publishes conn for stop to close. It reports false once the loop
// owning done has been stopped.
func (l *Listener) track(conn net.Conn, done chan struct{}) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running || l.done != done {
		return false
	}
	l.conn = conn
	return true
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
	}
	l.mu.Unlock()
}

// register decodes payload and upserts the endpoint for address.
func (l *Listener) register(ctx context.Context, address string, payload []byte) (device.Endpoint, error) {
	port, err := DecodePort(payload)
	if err != nil {
		return device.Endpoint{}, err
	}

	e := device.NewRegistration(address, port, l.now())
	if err := l.registrar.Upsert(ctx, e); err != nil {
		return device.Endpoint{}, err
	}
	l.registered.Add(1)
	l.logger.Info("device registered", "key", e.Key())

	if fn := l.onRegister.Load(); fn != nil {
		(*fn)(e)
	}
	return e, nil
}

// peerIP returns the IP of a TCP peer, with IPv4-mapped addresses unwrapped.
func peerIP(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}
		return host
	}
	if ip4 := tcp.IP.To4(); ip4 != nil {
		return ip4.String()
	}
	return tcp.IP.String()
}
