// Package lightshow renders LED frames for the streamer.
//
// Each show is a Generator that maps wall-clock time (and, for the music
// shows, the newest audio spectrum) to a Frame of Resolution LEDs. Shows
// work on a float canvas internally; conversion to a Frame clamps every
// channel to [0, 255].
//
// Shows:
//   - all_off, static_white: constant frames at 4 fps
//   - pulsating: red sine pulse with a brightness floor
//   - ping_pong: bouncing dot with hue cycling and a fading tail
//   - music_energy: per-band bars growing from the centre
//   - music_scroll: per-band peaks scrolling outward from the centre
//
// Generators carry filter state and are driven by one goroutine.
package lightshow
