package mesh

import (
	"net"
	"sync"
)

// PeerConn is an established outbound connection bound to exactly one
// PeerAddress.
type PeerConn struct {
	addr PeerAddress
	conn net.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newPeerConn(addr PeerAddress, conn net.Conn) *PeerConn {
	return &PeerConn{addr: addr, conn: conn}
}

// Addr returns the address the connection was dialed with.
func (p *PeerConn) Addr() PeerAddress {
	return p.addr
}

// write sends one frame.  Concurrent writers are serialized so frames never
// interleave on the wire.
func (p *PeerConn) write(frame []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	_, err := p.conn.Write(frame)
	return err
}

// Close closes the underlying connection.  It is safe to call more than once.
func (p *PeerConn) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}
