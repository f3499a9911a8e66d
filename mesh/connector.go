package mesh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrAlreadyConnected is returned when the address is already registered.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrSelfConnect is returned when asked to dial the node's own listener.
	ErrSelfConnect = errors.New("cannot connect to self")
)

// ConnectAll makes one connect attempt to every address concurrently and
// returns once all attempts have finished.  Failed addresses are logged and
// left out of the registry; there is no retry.  It returns the number of
// peers that were registered.
func (n *Node) ConnectAll(ctx context.Context, peers []PeerAddress) int {
	seen := make(map[PeerAddress]struct{}, len(peers))
	var connected atomic.Int32

	var g errgroup.Group
	g.SetLimit(n.cfg.MaxConcurrentDials)
	for _, addr := range peers {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		g.Go(func() error {
			if err := n.Connect(ctx, addr); err == nil {
				connected.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	return int(connected.Load())
}

// Connect makes a single bounded connect attempt to addr.  On success the
// connection is registered and a reader is started for it.
func (n *Node) Connect(ctx context.Context, addr PeerAddress) error {
	if !n.running() {
		return ErrNodeClosed
	}
	if _, ok := n.registry.Get(addr); ok {
		return fmt.Errorf("connect to %s: %w", addr, ErrAlreadyConnected)
	}

	dialCtx, cancel := context.WithTimeout(ctx, n.cfg.DialTimeout)
	defer cancel()
	stop := context.AfterFunc(n.ctx, cancel)
	defer stop()

	if n.isSelf(dialCtx, addr) {
		return fmt.Errorf("connect to %s: %w", addr, ErrSelfConnect)
	}

	log.Debugf("Connecting to %s", addr)
	conn, err := n.cfg.Dial(dialCtx, "tcp", addr.String())
	if err != nil {
		if !n.running() {
			return ErrNodeClosed
		}
		log.Warnf("Failed to connect to %s: %v", addr, err)
		n.notice("[error] could not connect to %s: %v", addr, err)
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	pc := newPeerConn(addr, conn)
	if !n.registry.Add(pc) {
		pc.Close()
		return fmt.Errorf("connect to %s: %w", addr, ErrAlreadyConnected)
	}
	if !n.spawn(func() { n.readConn(conn, addr.String(), pc) }) {
		n.registry.Remove(pc)
		pc.Close()
		return ErrNodeClosed
	}

	log.Infof("Connected to %s", addr)
	n.notice("[connection] connected to %s", addr)
	return nil
}

// isSelf reports whether addr names this node's own listener.  Host names
// are resolved first, and a listener bound to the unspecified address
// matches every local interface address on its port.
func (n *Node) isSelf(ctx context.Context, addr PeerAddress) bool {
	if addr.String() == n.cfg.ListenAddr {
		return true
	}
	la, ok := n.Addr().(*net.TCPAddr)
	if !ok || int(addr.Port) != la.Port {
		return false
	}

	ips, err := resolveHost(ctx, addr.Host)
	if err != nil {
		log.Debugf("Unable to resolve %s: %v", addr.Host, err)
		return false
	}
	for _, ip := range ips {
		if ip.Equal(la.IP) {
			return true
		}
		if la.IP.IsUnspecified() && isLocalIP(ip) {
			return true
		}
	}
	return false
}

func resolveHost(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// isLocalIP reports whether ip belongs to this host.
func isLocalIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() {
		return true
	}
	ifaddrs, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, a := range ifaddrs {
		if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.Equal(ip) {
			return true
		}
	}
	return false
}
