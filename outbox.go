package main

import (
	"context"

	"meshchat/mesh"
)

// outgoing is one chat message waiting to be broadcast.
type outgoing struct {
	text     string
	identity string
}

// outbox hands typed messages to a single sender goroutine so every peer,
// and the local echo, sees them in the order they were submitted.
type outbox struct {
	node  *mesh.Node
	queue chan outgoing
}

func newOutbox(node *mesh.Node, size int) *outbox {
	return &outbox{
		node:  node,
		queue: make(chan outgoing, size),
	}
}

// Send queues text without blocking.  It reports false when the queue is
// full.
func (o *outbox) Send(text, identity string) bool {
	select {
	case o.queue <- outgoing{text: text, identity: identity}:
		return true
	default:
		return false
	}
}

// run broadcasts queued messages one at a time until ctx is done.
func (o *outbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-o.queue:
			o.node.Broadcast(m.text, m.identity)
		}
	}
}
