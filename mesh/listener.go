package mesh

import (
	"errors"
	"net"
	"time"
)

// acceptLoop accepts inbound connections until the node stops.  Each
// connection is handed to its own reader immediately so acceptance never
// waits on consumption.
func (n *Node) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !n.running() {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				log.Errorf("Listener on %s closed unexpectedly", ln.Addr())
				return
			}

			log.Errorf("Accept error: %v", err)
			n.notice("[error] accepting connection: %v", err)

			t := time.NewTimer(n.cfg.AcceptBackoff)
			select {
			case <-n.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			continue
		}

		origin := conn.RemoteAddr().String()
		log.Infof("New inbound connection from %s", origin)
		n.notice("[connection] accepted from %s", origin)

		if !n.spawn(func() { n.readConn(conn, origin, nil) }) {
			conn.Close()
			return
		}
	}
}
