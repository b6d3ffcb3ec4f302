// Package engine orchestrates the discovery loops, the frame streamer and
// the active lightshow.
//
// The engine owns the single generator slot. SetShow builds a fresh
// generator and swaps it in atomically; the streamer picks it up on its
// next tick and the previous generator's state is discarded. Music shows
// start the audio pipeline on demand.
//
// Remote control arrives over MQTT (CommandHandler) or the HTTP API; state
// leaves through Observers (Event), the retained MQTT status topic
// (StatusReporter) and InfluxDB telemetry (TelemetryObserver).
package engine
