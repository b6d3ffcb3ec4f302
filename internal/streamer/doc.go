// Package streamer paces the active lightshow and fans each frame out to
// every registered device over UDP.
//
// Each tick renders one frame from the current generator, encodes it as
// 4-byte [index, r, g, b] records and sends one datagram per device.
// Sends are fire-and-forget: a failing device is counted and skipped.
// The loop then sleeps for the rest of the generator's frame period
// (1000/fps ms), never a negative amount.
//
// Once per stats window (1 s by default) the streamer recomputes the
// achieved frame rate and load, publishes a Stats snapshot and re-reads the
// device list, so a newly registered device starts receiving frames within
// one window.
package streamer
