package mesh

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned when a peer address cannot be parsed.
var ErrInvalidAddress = errors.New("invalid peer address")

// PeerAddress identifies an outbound peer.  It is the key of the Registry.
type PeerAddress struct {
	Host string
	Port uint16
}

// NewPeerAddress validates a host and a textual port.
func NewPeerAddress(host, port string) (PeerAddress, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return PeerAddress{}, fmt.Errorf("%w: empty host", ErrInvalidAddress)
	}
	p, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16)
	if err != nil || p == 0 {
		return PeerAddress{}, fmt.Errorf("%w: bad port %q", ErrInvalidAddress, port)
	}
	return PeerAddress{Host: host, Port: uint16(p)}, nil
}

// ParsePeerAddress parses a "host:port" string.
func ParsePeerAddress(s string) (PeerAddress, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return PeerAddress{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return NewPeerAddress(host, port)
}

// String returns the address in host:port form.
func (a PeerAddress) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

func sortAddresses(addrs []PeerAddress) {
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Host != addrs[j].Host {
			return addrs[i].Host < addrs[j].Host
		}
		return addrs[i].Port < addrs[j].Port
	})
}
