package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/ledtube-core/internal/lightshow"
	"github.com/nerrad567/ledtube-core/internal/streamer"
)

// SystemMetrics is the GET /metrics body: process health plus the lightshow
// counters an operator looks at first.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Devices       DeviceMetrics   `json:"devices"`
	Show          lightshow.Kind  `json:"show,omitempty"`
	Streamer      *streamer.Stats `json:"streamer,omitempty"`
}

type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
	LastGCPauseUS int64   `json:"last_gc_pause_us"`
}

// WSMetrics reports hub fan-out. Dropped counts messages skipped because a
// client's buffer was full.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	Dropped          uint64 `json:"dropped"`
}

type MQTTMetrics struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}

type DeviceMetrics struct {
	Registered int `json:"registered"`
}

const bytesPerMB = 1 << 20

func readRuntimeMetrics() RuntimeMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	rm := RuntimeMetrics{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(ms.HeapAlloc) / bytesPerMB,
		NumGC:       ms.NumGC,
	}
	if ms.NumGC > 0 {
		rm.LastGCPauseUS = time.Duration(ms.PauseNs[(ms.NumGC+255)%256]).Microseconds()
	}
	return rm
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	st := s.engine.Status()

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime:       readRuntimeMetrics(),
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			Dropped:          s.hub.Dropped(),
		},
		Devices:  DeviceMetrics{Registered: s.registry.Count()},
		Show:     st.Show,
		Streamer: st.Stats,
	}
	if s.mqtt != nil {
		m.MQTT = MQTTMetrics{Configured: true, Connected: s.mqtt.IsConnected()}
	}

	writeJSON(w, http.StatusOK, m)
}
