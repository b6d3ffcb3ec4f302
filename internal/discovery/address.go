package discovery

import (
	"fmt"
	"net"
)

// probeAddr is only used to pick a route; UDP connect sends nothing.
const probeAddr = "192.0.2.1:9"

// LocalIPv4 returns the first IPv4 address of an up, non-loopback interface.
// When iface is non-empty only that interface is considered.
//
// If enumeration finds nothing and no interface was named, the outbound
// address the kernel would use for a remote destination is tried instead.
func LocalIPv4(iface string) (net.IP, error) {
	if iface != "" {
		ifi, err := net.InterfaceByName(iface)
		if err != nil {
			return nil, fmt.Errorf("%w: interface %q: %v", ErrNoAddress, iface, err)
		}
		if ip := interfaceIPv4(ifi); ip != nil {
			return ip, nil
		}
		return nil, fmt.Errorf("%w: interface %q has no IPv4 address", ErrNoAddress, iface)
	}

	ifaces, err := net.Interfaces()
	if err == nil {
		for i := range ifaces {
			if ip := interfaceIPv4(&ifaces[i]); ip != nil {
				return ip, nil
			}
		}
	}

	return outboundIPv4()
}

func interfaceIPv4(ifi *net.Interface) net.IP {
	if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
		return nil
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil
	}
	return firstIPv4(addrs)
}

// firstIPv4 returns the first non-loopback IPv4 address in addrs.
func firstIPv4(addrs []net.Addr) net.IP {
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
			return ip4
		}
	}
	return nil
}

func outboundIPv4() (net.IP, error) {
	conn, err := net.Dial("udp4", probeAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAddress, err)
	}
	defer conn.Close() //nolint:errcheck // probe socket

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, ErrNoAddress
	}
	ip4 := addr.IP.To4()
	if ip4 == nil || ip4.IsLoopback() || ip4.IsUnspecified() {
		return nil, ErrNoAddress
	}
	return ip4, nil
}
