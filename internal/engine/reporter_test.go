package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ledtube-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ledtube-core/internal/lightshow"
)

// mockPublisher implements Publisher for testing.
type mockPublisher struct {
	mu        sync.Mutex
	connected bool
	err       error
	messages  []publishedMessage
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newMockPublisher(connected bool) *mockPublisher {
	return &mockPublisher{connected: connected}
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{
		topic:    topic,
		payload:  payload,
		qos:      qos,
		retained: retained,
	})
	return nil
}

func (m *mockPublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockPublisher) getMessages() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]publishedMessage, len(m.messages))
	copy(result, m.messages)
	return result
}

type staticStatus Status

func (s staticStatus) Status() Status { return Status(s) }

func TestNewStatusReporterDefaultInterval(t *testing.T) {
	r := NewStatusReporter(StatusReporterConfig{})
	if r.interval != DefaultStatusInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultStatusInterval)
	}
	if r.topic != "ledtube/engine/status" {
		t.Errorf("topic = %q, want ledtube/engine/status", r.topic)
	}
}

func TestStatusReporterPublishNow(t *testing.T) {
	pub := newMockPublisher(true)
	r := NewStatusReporter(StatusReporterConfig{
		Source: staticStatus{
			NodeID:    "tube-1",
			Streaming: true,
			Show:      lightshow.KindPingPong,
			Devices:   3,
		},
		Publisher: pub,
		Version:   "1.2.0",
	})

	if err := r.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	messages := pub.getMessages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.topic != (mqtt.Topics{}).EngineStatus() {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.qos != 1 || !msg.retained {
		t.Errorf("qos = %d retained = %v, want 1 retained", msg.qos, msg.retained)
	}

	var got StatusMessage
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if got.NodeID != "tube-1" || got.Show != lightshow.KindPingPong || got.Devices != 3 {
		t.Errorf("status = %+v", got.Status)
	}
	if got.State != StateRunning {
		t.Errorf("State = %q, want %q", got.State, StateRunning)
	}
	if got.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0", got.Version)
	}
}

func TestStatusReporterDisconnected(t *testing.T) {
	pub := newMockPublisher(false)
	r := NewStatusReporter(StatusReporterConfig{Source: staticStatus{}, Publisher: pub})

	if err := r.PublishNow(); !errors.Is(err, mqtt.ErrNotConnected) {
		t.Errorf("PublishNow() error = %v, want ErrNotConnected", err)
	}
	if len(pub.getMessages()) != 0 {
		t.Error("nothing should be published while disconnected")
	}
}

func TestStatusReporterNoPublisher(t *testing.T) {
	r := NewStatusReporter(StatusReporterConfig{Source: staticStatus{}})
	if err := r.PublishNow(); err != nil {
		t.Errorf("PublishNow() without publisher error = %v", err)
	}
}

func TestStatusReporterLifecycle(t *testing.T) {
	pub := newMockPublisher(true)
	r := NewStatusReporter(StatusReporterConfig{
		Source:    staticStatus{NodeID: "tube-1"},
		Publisher: pub,
		Interval:  20 * time.Millisecond,
	})

	r.Start(context.Background())
	waitFor(t, "periodic status", func() bool { return len(pub.getMessages()) >= 3 })

	r.Stop()
	r.Stop() // safe to call twice

	messages := pub.getMessages()
	var last StatusMessage
	if err := json.Unmarshal(messages[len(messages)-1].payload, &last); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if last.State != StateStopping {
		t.Errorf("final State = %q, want %q", last.State, StateStopping)
	}

	count := len(messages)
	time.Sleep(50 * time.Millisecond)
	if len(pub.getMessages()) != count {
		t.Error("reporter published after Stop")
	}
}

func TestStatusReporterContextCancel(t *testing.T) {
	pub := newMockPublisher(true)
	r := NewStatusReporter(StatusReporterConfig{
		Source:    staticStatus{},
		Publisher: pub,
		Interval:  time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	waitFor(t, "initial status", func() bool { return len(pub.getMessages()) == 1 })
	cancel()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked after context cancellation")
	}
}
