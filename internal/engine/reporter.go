package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/ledtube-core/internal/infrastructure/mqtt"
)

// DefaultStatusInterval is how often the status reporter publishes.
const DefaultStatusInterval = 30 * time.Second

// Publisher is the outbound side of the MQTT client.
type Publisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// StatusSource supplies the status snapshot to publish.
type StatusSource interface {
	Status() Status
}

// StatusMessage is the retained payload on the engine status topic.
type StatusMessage struct {
	Status
	Version string `json:"version,omitempty"`
	Uptime  int64  `json:"uptime_seconds"`
	State   string `json:"state"`
}

// Reporter states.
const (
	StateRunning  = "running"
	StateStopping = "stopping"
)

// StatusReporter publishes the engine status, retained, at a fixed interval.
type StatusReporter struct {
	source    StatusSource
	publisher Publisher
	version   string
	interval  time.Duration
	topic     string
	startTime time.Time

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// StatusReporterConfig holds configuration for the status reporter.
type StatusReporterConfig struct {
	Source    StatusSource
	Publisher Publisher
	Version   string

	// Interval defaults to DefaultStatusInterval.
	Interval time.Duration
}

// NewStatusReporter creates a status reporter. Call Start to begin reporting.
func NewStatusReporter(cfg StatusReporterConfig) *StatusReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	return &StatusReporter{
		source:    cfg.Source,
		publisher: cfg.Publisher,
		version:   cfg.Version,
		interval:  interval,
		topic:     mqtt.Topics{}.EngineStatus(),
		startTime: time.Now(),
		done:      make(chan struct{}),
	}
}

// SetLogger sets the logger for this reporter.
func (r *StatusReporter) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

// Start begins periodic reporting until ctx ends or Stop is called.
func (r *StatusReporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (r *StatusReporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()

		//nolint:errcheck // best-effort during shutdown
		r.publish(StateStopping)
	})
}

// PublishNow publishes the current status immediately.
func (r *StatusReporter) PublishNow() error {
	return r.publish(StateRunning)
}

func (r *StatusReporter) reportLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if err := r.PublishNow(); err != nil {
		r.logError("failed to publish initial status", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-ticker.C:
			if err := r.PublishNow(); err != nil {
				r.logError("failed to publish status", err)
			}
		}
	}
}

func (r *StatusReporter) publish(state string) error {
	if r.publisher == nil || r.source == nil {
		return nil
	}
	if !r.publisher.IsConnected() {
		return mqtt.ErrNotConnected
	}

	msg := StatusMessage{
		Status:  r.source.Status(),
		Version: r.version,
		Uptime:  int64(time.Since(r.startTime).Seconds()),
		State:   state,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.publisher.Publish(r.topic, payload, 1, true)
}

func (r *StatusReporter) logError(msg string, err error) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
