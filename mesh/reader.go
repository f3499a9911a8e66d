package mesh

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMalformedFrame is returned by the reader when a line is not valid UTF-8.
var ErrMalformedFrame = errors.New("malformed frame: invalid UTF-8")

// readFrames splits r into newline delimited lines, trims trailing
// whitespace and calls fn for every non-empty line.  It returns nil on end of
// stream.
func readFrames(r io.Reader, maxLineSize int, fn func(line string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRightFunc(scanner.Text(), unicode.IsSpace)
		if line == "" {
			continue
		}
		if !utf8.ValidString(line) {
			return ErrMalformedFrame
		}
		if !fn(line) {
			return nil
		}
	}
	return scanner.Err()
}

// readConn owns conn until the stream ends, fails, or the node stops.  When
// pc is non-nil the connection is an outbound peer and its registry entry is
// removed before the socket is closed.
func (n *Node) readConn(conn net.Conn, origin string, pc *PeerConn) {
	stop := context.AfterFunc(n.ctx, func() { conn.Close() })
	defer func() {
		stop()
		if pc != nil {
			n.registry.Remove(pc)
			pc.Close()
			return
		}
		conn.Close()
	}()

	err := readFrames(conn, n.cfg.MaxLineSize, func(line string) bool {
		if !n.running() {
			return false
		}
		n.deliver(line)
		return true
	})

	switch {
	case !n.running():
		log.Debugf("Reader for %s stopped", origin)

	case err == nil:
		log.Infof("Peer %s disconnected", origin)
		n.notice("[info] %s disconnected", origin)

	default:
		log.Warnf("Connection with %s lost: %v", origin, err)
		n.notice("[error] connection with %s lost: %v", origin, err)
	}
}

func (n *Node) deliver(line string) {
	n.cfg.Sink.Append(line)
	if n.cfg.OnMessage != nil {
		n.cfg.OnMessage(line)
	}
}
