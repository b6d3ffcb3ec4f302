// Package influxdb records ledtube telemetry in InfluxDB v2.
//
// Measurements:
//   - stream_stats: fps, load, device count and send errors per streamer window
//   - audio_spectrum: per-band intensities (only with write_spectrum enabled)
//   - device_registration: one point per device registration
//
// Every point carries a "node" tag. Writes are batched and non-blocking
// (batch_size, flush_interval); batch errors are delivered to the callback
// set with SetOnError.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	client.WriteStreamStats(influxdb.StreamStats{Show: "pulsating", FPS: 70})
package influxdb
