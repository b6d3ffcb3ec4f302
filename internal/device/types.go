package device

import (
	"net"
	"strconv"
	"time"
)

// Endpoint is an LED device that registered for frame traffic.
// Identity is the pair (Address, Port); see Key.
type Endpoint struct {
	// Address is the device's IP address as seen by the registration listener.
	Address string `json:"address"`

	// Port is the UDP port the device listens on for frames.
	Port uint16 `json:"device_port"`

	// Battery is the reported battery level. Registration always sets 0.
	Battery float64 `json:"battery"`

	// Active is true for every endpoint created by registration.
	Active bool `json:"active"`

	// RegisteredAt is when the endpoint was last (re-)registered.
	RegisteredAt time.Time `json:"registered_at"`
}

// Key returns the registry key "address:port".
func (e Endpoint) Key() string {
	return Key(e.Address, e.Port)
}

// UDPAddr returns the frame destination for this endpoint, or nil if the
// address is not an IP literal.
func (e Endpoint) UDPAddr() *net.UDPAddr {
	ip := net.ParseIP(e.Address)
	if ip == nil {
		return nil
	}
	return &net.UDPAddr{IP: ip, Port: int(e.Port)}
}

// Key builds the registry key for an address and port.
func Key(address string, port uint16) string {
	return net.JoinHostPort(address, strconv.Itoa(int(port)))
}

// ParseKey splits a registry key back into address and port.
func ParseKey(key string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(key)
	if err != nil {
		return "", 0, ErrInvalidKey
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || host == "" {
		return "", 0, ErrInvalidKey
	}
	return host, uint16(port), nil
}

// NewRegistration builds the endpoint stored when a device registers:
// battery 0, active, stamped with now.
func NewRegistration(address string, port uint16, now time.Time) Endpoint {
	return Endpoint{
		Address:      address,
		Port:         port,
		Battery:      0,
		Active:       true,
		RegisteredAt: now.UTC(),
	}
}
