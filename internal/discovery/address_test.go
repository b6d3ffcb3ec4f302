package discovery

import (
	"errors"
	"net"
	"testing"
)

func TestFirstIPv4(t *testing.T) {
	tests := []struct {
		name  string
		addrs []net.Addr
		want  string
	}{
		{"empty", nil, ""},
		{
			"skips loopback and v6",
			[]net.Addr{
				&net.IPNet{IP: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(8, 32)},
				&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
				&net.IPNet{IP: net.ParseIP("192.168.1.20"), Mask: net.CIDRMask(24, 32)},
			},
			"192.168.1.20",
		},
		{
			"ip addr form",
			[]net.Addr{&net.IPAddr{IP: net.ParseIP("10.1.2.3")}},
			"10.1.2.3",
		},
		{
			"only v6",
			[]net.Addr{&net.IPNet{IP: net.ParseIP("2001:db8::1"), Mask: net.CIDRMask(64, 128)}},
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstIPv4(tt.addrs)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("firstIPv4() = %v, want nil", got)
			case tt.want != "" && got.String() != tt.want:
				t.Errorf("firstIPv4() = %v, want %s", got, tt.want)
			case got != nil && len(got) != net.IPv4len:
				t.Errorf("firstIPv4() returned %d bytes, want 4", len(got))
			}
		})
	}
}

func TestLocalIPv4_UnknownInterface(t *testing.T) {
	_, err := LocalIPv4("ledtube-no-such-if0")
	if !errors.Is(err, ErrNoAddress) {
		t.Errorf("LocalIPv4() error = %v, want ErrNoAddress", err)
	}
}
