package mesh

import (
	"bufio"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "", normalizeText(" \t\r\n "))
	assert.Equal(t, "hi", normalizeText("  hi  "))
	assert.Equal(t, "one two", normalizeText("one\r\ntwo"))
	assert.Equal(t, "a b", normalizeText("a\n\n\nb"))
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "alice: hi", FormatMessage("alice", "hi"))
}

func TestBroadcastContinuesPastFailedPeer(t *testing.T) {
	useTestLogger(t)

	sink := &collectSink{}
	n := New(Config{Sink: sink})
	t.Cleanup(func() { n.Close() })

	bad := pipePeer(t, PeerAddress{Host: "10.0.0.1", Port: 1})
	bad.Close()
	require.True(t, n.registry.Add(bad))

	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	good := newPeerConn(PeerAddress{Host: "10.0.0.2", Port: 2}, local)
	require.True(t, n.registry.Add(good))

	received := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(remote).ReadString('\n')
		if err == nil {
			received <- line
		}
	}()

	sent := n.Broadcast("hello", "bob")

	assert.Equal(t, 1, sent)
	assert.Equal(t, "bob: hello\n", <-received)
	assert.Equal(t, 2, n.registry.Len(), "write failures do not deregister")
	assert.True(t, sink.hasPrefix("[error] failed to send to 10.0.0.1:1"))

	// The local echo comes after every write attempt.
	lines := sink.Lines()
	assert.Equal(t, "bob: hello", lines[len(lines)-1])
}

func TestBroadcastEmptyIsNoop(t *testing.T) {
	sink := &collectSink{}
	n := New(Config{Sink: sink})
	t.Cleanup(func() { n.Close() })

	bad := pipePeer(t, PeerAddress{Host: "10.0.0.1", Port: 1})
	bad.Close()
	require.True(t, n.registry.Add(bad))

	assert.Equal(t, 0, n.Broadcast("", "bob"))
	assert.Equal(t, 0, n.Broadcast(" \t\n", "bob"))
	assert.Empty(t, sink.Lines(), "no write attempts and no sink entries")
}
