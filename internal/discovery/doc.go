// Package discovery lets LED devices find and register with this node.
//
// Two loops run side by side:
//
//   - Beacon multicasts the node's IPv4 address (4 raw octets) to a group,
//     224.1.1.1:5555 by default, once a second.
//   - Listener accepts TCP connections on the registration port (1337 by
//     default). A device sends its UDP frame port as 2 little-endian bytes;
//     the listener pairs it with the TCP peer address and upserts the
//     endpoint into the device registry.
//
// The listener clears the registry when it starts, so every discovery run
// rebuilds the device list from scratch. Neither loop authenticates or
// encrypts traffic.
//
// Both loops stop on Stop or when the context passed to Start is cancelled.
// Stop closes the loop's socket, which unblocks any pending send or accept.
package discovery
