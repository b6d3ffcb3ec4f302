package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/ledtube-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// Streamer stats arrive once per second and spectrum points at most a
	// few dozen times per second, so a 100-point batch flushes in seconds.
	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// Client records streamer, spectrum and registration telemetry in
// InfluxDB v2. Every point carries a "node" tag.
//
// Writes never block the caller: the underlying write API batches them and
// reports failures asynchronously to the SetOnError callback. A nil or
// closed Client drops writes silently.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig
	node     string
	open     atomic.Bool

	mu      sync.RWMutex
	onError func(err error)
}

// Connect pings the server and starts the batched writer.
//
// Returns:
//   - *Client: ready for writes
//   - error: ErrDisabled when cfg.Enabled is false, ErrConnectionFailed otherwise
func Connect(cfg config.InfluxDBConfig, node string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch, flush := batchSettings(cfg)
	opts := influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint((time.Duration(flush) * time.Second).Milliseconds()))
	ic := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	if err := ping(ctx, ic); err != nil {
		ic.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}

	c := &Client{
		client:   ic,
		writeAPI: ic.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
		node:     node,
	}
	c.open.Store(true)
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

func ping(ctx context.Context, ic influxdb2.Client) error {
	healthy, err := ic.Ping(ctx)
	switch {
	case err != nil:
		return err
	case !healthy:
		return errors.New("server not healthy")
	}
	return nil
}

// batchSettings returns the batch size and flush interval in seconds,
// replacing non-positive config values with the defaults.
func batchSettings(cfg config.InfluxDBConfig) (size, flushSeconds uint) {
	size, flushSeconds = defaultBatchSize, defaultFlushInterval
	if cfg.BatchSize > 0 {
		size = uint(cfg.BatchSize)
	}
	if cfg.FlushInterval > 0 {
		flushSeconds = uint(cfg.FlushInterval)
	}
	return size, flushSeconds
}

// forwardErrors ends when the write API closes its error channel on Close.
func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.mu.RLock()
		fn := c.onError
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

// Close flushes buffered points and releases the HTTP client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.open.Store(false)
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected is false for a nil client and after Close.
func (c *Client) IsConnected() bool {
	return c != nil && c.open.Load()
}

// SetOnError receives batch write failures.
func (c *Client) SetOnError(fn func(err error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// WriteSpectrumEnabled reports whether influxdb.write_spectrum is on. The
// audio pipeline only installs its observer when it is.
func (c *Client) WriteSpectrumEnabled() bool {
	return c.IsConnected() && c.cfg.WriteSpectrum
}

func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}
