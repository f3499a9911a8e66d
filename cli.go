package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"meshchat/mesh"
)

const cliHelp = `Commands:
  /connect <host:port> - Connect to peer
  /peers               - List connected peers
  /help                - Show this help
  /quit                - Exit
Anything else is sent to every connected peer.`

// console is the line-oriented front end used with --plain.
type console struct {
	node     *mesh.Node
	identity string
	out      mesh.Sink
}

// runConsole connects to the configured peers and then reads commands and
// messages from in until EOF, /quit, or ctx is done.
func runConsole(ctx context.Context, node *mesh.Node, identity string,
	peers []mesh.PeerAddress, in io.Reader, out mesh.Sink) error {

	c := &console{node: node, identity: identity, out: out}

	if len(peers) > 0 {
		n := node.ConnectAll(ctx, peers)
		c.out.Append(fmt.Sprintf("[info] connected to %d of %d peer(s)", n, len(peers)))
	} else {
		c.out.Append("[info] no peers configured, use /connect <host:port>")
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-node.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one line of input.  It reports true when the user asked to
// quit.
func (c *console) handle(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch {
	case input == "":

	case input == "/quit":
		return true

	case input == "/help":
		c.out.Append(cliHelp)

	case input == "/peers":
		peers := c.node.Peers()
		if len(peers) == 0 {
			c.out.Append("No connected peers")
			break
		}
		c.out.Append("Connected peers:")
		for _, p := range peers {
			c.out.Append("  - " + p.String())
		}

	case strings.HasPrefix(input, "/connect"):
		arg := strings.TrimSpace(strings.TrimPrefix(input, "/connect"))
		addr, err := mesh.ParsePeerAddress(arg)
		if err != nil {
			c.out.Append(fmt.Sprintf("[error] %v", err))
			break
		}
		err = c.node.Connect(ctx, addr)
		if errors.Is(err, mesh.ErrAlreadyConnected) || errors.Is(err, mesh.ErrSelfConnect) {
			c.out.Append(fmt.Sprintf("[info] %v", err))
		}

	default:
		c.node.Broadcast(input, c.identity)
	}
	return false
}
