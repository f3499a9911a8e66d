package main

import (
	"context"
	"net"
	"time"

	"github.com/decred/go-socks/socks"

	"meshchat/mesh"
)

// newDialer returns the function used for outbound peer connections.  A nil
// result selects a direct TCP dial.
func newDialer(cfg *config) mesh.DialFunc {
	if cfg.Proxy == "" {
		return nil
	}

	proxy := &socks.Proxy{
		Addr:     cfg.Proxy,
		Username: cfg.ProxyUser,
		Password: cfg.ProxyPass,
	}
	chatLog.Infof("Connecting to peers via SOCKS5 proxy %s", cfg.Proxy)

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		timeout := cfg.DialTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return proxy.DialTimeout(network, addr, timeout)
	}
}
