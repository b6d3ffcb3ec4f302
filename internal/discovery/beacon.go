package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"
)

// Beacon defaults.
const (
	DefaultMulticastGroup = "224.1.1.1"
	DefaultMulticastPort  = 5555
	DefaultBeaconInterval = time.Second
)

// BeaconConfig configures the discovery beacon.
type BeaconConfig struct {
	// Group is the destination IPv4 address, normally a multicast group.
	Group string

	// Port is the destination UDP port.
	Port int

	// Interval is the time between beacons.
	Interval time.Duration

	// TTL is the multicast hop limit. Zero leaves the system default.
	TTL int

	// Interface restricts address resolution and multicast egress to one NIC.
	Interface string
}

// Beacon periodically announces this node's IPv4 address so devices can
// find the registration port.
type Beacon struct {
	cfg     BeaconConfig
	resolve func(iface string) (net.IP, error)
	logger  Logger

	// mu serialises sends against Stop closing the socket.
	mu      sync.Mutex
	conn    *net.UDPConn
	running bool
	done    chan struct{}
	exited  chan struct{}
	release func() bool

	address atomic.Pointer[net.IP]
	sent    atomic.Uint64
}

// NewBeacon creates a stopped beacon. Zero config fields take defaults.
func NewBeacon(cfg BeaconConfig) *Beacon {
	if cfg.Group == "" {
		cfg.Group = DefaultMulticastGroup
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultMulticastPort
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBeaconInterval
	}
	return &Beacon{
		cfg:     cfg,
		resolve: LocalIPv4,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the beacon.
func (b *Beacon) SetLogger(logger Logger) {
	b.logger = logger
}

// Start resolves the local address, opens the UDP socket and launches the
// send loop. The loop runs until Stop is called or ctx is cancelled.
//
// Returns:
//   - error: ErrAlreadyRunning, ErrNoAddress (the loop is not started), or
//     a socket error
func (b *Beacon) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrAlreadyRunning
	}

	ip, err := b.resolve(b.cfg.Interface)
	if err != nil {
		b.logger.Error("beacon: cannot resolve local address", "error", err)
		return err
	}
	payload := []byte(ip.To4())
	if len(payload) != net.IPv4len {
		return fmt.Errorf("%w: %s is not IPv4", ErrNoAddress, ip)
	}

	conn, err := b.dial()
	if err != nil {
		return err
	}

	b.conn = conn
	b.running = true
	b.done = make(chan struct{})
	b.exited = make(chan struct{})
	b.address.Store(&ip)

	done, exited := b.done, b.exited
	b.release = context.AfterFunc(ctx, func() { b.stop(done) })
	go b.run(payload, done, exited)

	b.logger.Info("beacon started",
		"address", ip.String(),
		"group", b.groupAddr(),
		"interval", b.cfg.Interval,
	)
	return nil
}

func (b *Beacon) groupAddr() string {
	return net.JoinHostPort(b.cfg.Group, strconv.Itoa(b.cfg.Port))
}

// dial opens the send socket and applies TTL and egress interface.
func (b *Beacon) dial() (*net.UDPConn, error) {
	dst, err := net.ResolveUDPAddr("udp4", b.groupAddr())
	if err != nil {
		return nil, fmt.Errorf("resolving beacon group: %w", err)
	}
	conn, err := net.DialUDP("udp4", nil, dst)
	if err != nil {
		return nil, fmt.Errorf("opening beacon socket: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if b.cfg.TTL > 0 {
		if err := pc.SetMulticastTTL(b.cfg.TTL); err != nil {
			conn.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("setting multicast TTL: %w", err)
		}
	}
	if b.cfg.Interface != "" {
		ifi, err := net.InterfaceByName(b.cfg.Interface)
		if err != nil {
			conn.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("beacon interface %q: %w", b.cfg.Interface, err)
		}
		if err := pc.SetMulticastInterface(ifi); err != nil {
			conn.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("setting multicast interface: %w", err)
		}
	}
	return conn, nil
}

// Stop ends the send loop and closes the socket. Safe to call when stopped.
func (b *Beacon) Stop() {
	b.stop(nil)
}

// stop shuts down the run identified by done, or whatever run is active
// when done is nil.
func (b *Beacon) stop(done chan struct{}) {
	b.mu.Lock()
	if !b.running || (done != nil && b.done != done) {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.done)
	if err := b.conn.Close(); err != nil {
		b.logger.Debug("beacon: closing socket", "error", err)
	}
	b.conn = nil
	exited, release := b.exited, b.release
	b.mu.Unlock()

	release()
	<-exited
	b.logger.Info("beacon stopped", "sent", b.sent.Load())
}

// IsRunning reports whether the send loop is active.
func (b *Beacon) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Address returns the announced address, or nil before the first Start.
func (b *Beacon) Address() net.IP {
	if ip := b.address.Load(); ip != nil {
		return *ip
	}
	return nil
}

// Sent returns the number of beacons sent successfully.
func (b *Beacon) Sent() uint64 {
	return b.sent.Load()
}

func (b *Beacon) run(payload []byte, done, exited chan struct{}) {
	defer close(exited)

	for {
		b.send(payload, done)
		if !sleepOrDone(b.cfg.Interval, done) {
			return
		}
	}
}

// send writes one beacon unless the run has been stopped. A failed send is
// logged and retried on the next interval.
func (b *Beacon) send(payload []byte, done chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != done || b.conn == nil {
		return
	}
	if _, err := b.conn.Write(payload); err != nil {
		b.logger.Debug("beacon send failed", "error", err)
		return
	}
	b.sent.Add(1)
}
