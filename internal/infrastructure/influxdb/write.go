package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementStream       = "stream_stats"
	measurementSpectrum     = "audio_spectrum"
	measurementRegistration = "device_registration"
)

// StreamStats is one streamer window as recorded in InfluxDB.
type StreamStats struct {
	Show       string
	FPS        float64
	Load       float64
	Devices    int
	Frames     uint64
	SendErrors uint64
	At         time.Time
}

// WriteStreamStats records one streamer window.
func (c *Client) WriteStreamStats(s StreamStats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(streamStatsPoint(c.node, s))
}

// WriteSpectrum records one spectrum vector as a point with one field per
// band (band_00, band_01, ...). Skipped unless write_spectrum is enabled.
func (c *Client) WriteSpectrum(bands []float64, at time.Time) {
	if !c.WriteSpectrumEnabled() || len(bands) == 0 {
		return
	}
	c.writeAPI.WritePoint(spectrumPoint(c.node, bands, at))
}

// WriteRegistration records a device registration.
func (c *Client) WriteRegistration(address string, port uint16, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(registrationPoint(c.node, address, port, at))
}

func streamStatsPoint(node string, s StreamStats) *write.Point {
	show := s.Show
	if show == "" {
		show = "none"
	}
	return write.NewPoint(
		measurementStream,
		map[string]string{"node": node, "show": show},
		map[string]any{
			"fps":         s.FPS,
			"load":        s.Load,
			"devices":     s.Devices,
			"frames":      s.Frames,
			"send_errors": s.SendErrors,
		},
		s.At,
	)
}

func spectrumPoint(node string, bands []float64, at time.Time) *write.Point {
	fields := make(map[string]any, len(bands))
	for i, v := range bands {
		fields[bandField(i)] = v
	}
	return write.NewPoint(measurementSpectrum, map[string]string{"node": node}, fields, at)
}

// bandField names a band's field with a zero-padded index so fields sort.
func bandField(i int) string {
	if i < 10 {
		return "band_0" + strconv.Itoa(i)
	}
	return "band_" + strconv.Itoa(i)
}

func registrationPoint(node, address string, port uint16, at time.Time) *write.Point {
	return write.NewPoint(
		measurementRegistration,
		map[string]string{"node": node, "address": address},
		map[string]any{"device_port": int64(port)},
		at,
	)
}
