/*
Package mesh implements the networking core of a minimal peer-to-peer chat.

A Node listens for inbound connections and keeps outbound connections to a
configured set of peers. Every connection gets its own reader goroutine which
splits the stream into newline delimited UTF-8 lines and hands each line to a
Sink. Broadcast writes one line to every registered outbound peer.

Inbound connections are only read from. They never appear in the Registry and
are never broadcast targets.

	node := mesh.New(mesh.Config{ListenAddr: "127.0.0.1:6787", Sink: sink})
	if err := node.Start(ctx); err != nil {
		return err
	}
	defer node.Close()

	node.ConnectAll(ctx, peers)
	node.Broadcast("hello", "alice")
*/
package mesh
