// Package logging builds the slog-based logger shared by every ledtube
// subsystem. Entries carry service and version fields; Component adds a
// per-subsystem tag so beacon, registration, streamer and audio lines can be
// filtered apart.
//
// The logging section of config.yaml selects it:
//
//	logging:
//	  level: info      # debug | info | warn | error
//	  format: json     # json | text
//	  output: stdout   # stdout | stderr | discard
//
// Streamer stats are logged at info once per stats window, so debug is only
// needed when chasing per-packet or per-device behaviour.
package logging
