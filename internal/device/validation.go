package device

import (
	"fmt"
	"math"
	"net"
)

// Validate checks that an endpoint can receive frames.
//
// Returns an error wrapping ErrInvalidEndpoint when the address is not an
// IP literal, the port is zero, or the battery level is negative or NaN.
func (e Endpoint) Validate() error {
	if net.ParseIP(e.Address) == nil {
		return fmt.Errorf("%w: address %q is not an IP", ErrInvalidEndpoint, e.Address)
	}
	if e.Port == 0 {
		return fmt.Errorf("%w: port must be non-zero", ErrInvalidEndpoint)
	}
	if math.IsNaN(e.Battery) || e.Battery < 0 {
		return fmt.Errorf("%w: battery %v out of range", ErrInvalidEndpoint, e.Battery)
	}
	return nil
}
