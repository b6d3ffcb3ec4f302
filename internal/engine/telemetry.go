package engine

import (
	"encoding/json"
	"time"

	"github.com/nerrad567/ledtube-core/internal/device"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/ledtube-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ledtube-core/internal/streamer"
)

// MetricsWriter is the InfluxDB surface used for telemetry.
type MetricsWriter interface {
	WriteStreamStats(s influxdb.StreamStats)
	WriteRegistration(address string, port uint16, at time.Time)
}

// TelemetryObserver records stream stats and registrations as time series.
func TelemetryObserver(w MetricsWriter) Observer {
	return func(ev Event) {
		switch p := ev.Payload.(type) {
		case streamer.Stats:
			w.WriteStreamStats(influxdb.StreamStats{
				Show:       string(p.Show),
				FPS:        p.FPS,
				Load:       p.Load,
				Devices:    p.Devices,
				Frames:     p.Frames,
				SendErrors: p.SendErrors,
				At:         p.Window,
			})
		case device.Endpoint:
			w.WriteRegistration(p.Address, p.Port, p.RegisteredAt)
		}
	}
}

// EventPublisher forwards events to MQTT: registrations and show changes
// under ledtube/event/, stats to ledtube/engine/stats. Publish failures are
// logged and dropped.
func EventPublisher(pub Publisher, logger Logger) Observer {
	if logger == nil {
		logger = noopLogger{}
	}
	topics := mqtt.Topics{}
	return func(ev Event) {
		if !pub.IsConnected() {
			return
		}

		var topic string
		switch ev.Type {
		case EventDeviceRegistered:
			topic = topics.Event(mqtt.EventDeviceRegistered)
		case EventShowChanged:
			topic = topics.Event(mqtt.EventShowChanged)
		case EventStreamStats:
			topic = topics.StreamStats()
		default:
			return
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			logger.Warn("encoding event", "type", ev.Type, "error", err)
			return
		}
		if err := pub.Publish(topic, payload, 0, false); err != nil {
			logger.Warn("publishing event", "type", ev.Type, "error", err)
		}
	}
}
