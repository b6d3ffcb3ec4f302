package engine

import (
	"time"

	"github.com/nerrad567/ledtube-core/internal/device"
	"github.com/nerrad567/ledtube-core/internal/streamer"
)

// EventType identifies an engine event.
type EventType string

// Engine events.
const (
	EventDeviceRegistered EventType = "device.registered"
	EventShowChanged      EventType = "show.changed"
	EventStreamStats      EventType = "stream.stats"
)

// Event is a state change reported to observers. Payload holds a
// device.Endpoint, a Session or a streamer.Stats depending on Type.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
	At      time.Time `json:"timestamp"`
}

// Observer receives engine events. Observers run synchronously on the
// goroutine that produced the event (listener, streamer or caller of
// SetShow) and must return quickly.
type Observer func(Event)

// AddObserver registers fn for every future event.
func (e *Engine) AddObserver(fn Observer) {
	if fn == nil {
		return
	}
	e.obsMu.Lock()
	e.observers = append(e.observers, fn)
	e.obsMu.Unlock()
}

func (e *Engine) emit(t EventType, payload any) {
	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()

	ev := Event{Type: t, Payload: payload, At: e.now().UTC()}
	for _, fn := range observers {
		fn(ev)
	}
}

func (e *Engine) onRegister(ep device.Endpoint) {
	e.emit(EventDeviceRegistered, ep)
}

func (e *Engine) onStats(st streamer.Stats) {
	e.emit(EventStreamStats, st)
}
