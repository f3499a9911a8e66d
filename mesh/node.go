package mesh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	defaultDialTimeout        = 5 * time.Second
	defaultAcceptBackoff      = time.Second
	defaultMaxLineSize        = 64 * 1024
	defaultMaxConcurrentDials = 8
)

var (
	// ErrNodeClosed is returned by operations attempted after Close.
	ErrNodeClosed = errors.New("node closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("node already started")
)

// DialFunc opens an outbound connection.  It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ListenFunc binds the local listener.  It matches net.ListenConfig.Listen.
type ListenFunc func(ctx context.Context, network, addr string) (net.Listener, error)

// Config holds the parameters of a Node.  Zero values select defaults.
type Config struct {
	// ListenAddr is the local host:port accepting inbound connections.
	ListenAddr string

	// Sink receives every display line.  Defaults to DiscardSink.
	Sink Sink

	// OnMessage, when set, is called with every line read from the network
	// after it has been appended to the Sink.
	OnMessage func(line string)

	Dial   DialFunc
	Listen ListenFunc

	DialTimeout        time.Duration
	AcceptBackoff      time.Duration
	MaxLineSize        int
	MaxConcurrentDials int
}

func (c *Config) setDefaults() {
	if c.Sink == nil {
		c.Sink = DiscardSink
	}
	if c.Dial == nil {
		var d net.Dialer
		c.Dial = d.DialContext
	}
	if c.Listen == nil {
		var lc net.ListenConfig
		c.Listen = lc.Listen
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.AcceptBackoff <= 0 {
		c.AcceptBackoff = defaultAcceptBackoff
	}
	if c.MaxLineSize <= 0 {
		c.MaxLineSize = defaultMaxLineSize
	}
	if c.MaxConcurrentDials <= 0 {
		c.MaxConcurrentDials = defaultMaxConcurrentDials
	}
}

// Node is one participant of the mesh.
type Node struct {
	cfg      Config
	registry *Registry

	// ctx is cancelled exactly once, by Close.  Every loop exits when it
	// observes the cancellation.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	wg       sync.WaitGroup

	closeOnce sync.Once
}

// New returns a Node that is not yet listening.
func New(cfg Config) *Node {
	cfg.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		cfg:      cfg,
		registry: NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start binds the local listener and begins accepting connections.  A bind
// failure is returned to the caller; the node cannot serve inbound peers
// without it.  Cancelling ctx has the same effect as calling Close.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrNodeClosed
	}
	if n.listener != nil {
		n.mu.Unlock()
		return ErrAlreadyStarted
	}

	ln, err := n.cfg.Listen(ctx, "tcp", n.cfg.ListenAddr)
	if err != nil {
		n.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", n.cfg.ListenAddr, err)
	}
	n.listener = ln

	// Release blocking accept and read calls once the node stops.
	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		<-n.ctx.Done()
		ln.Close()
		n.registry.CloseAll()
	}()
	go func() {
		defer n.wg.Done()
		n.acceptLoop(ln)
	}()
	n.mu.Unlock()

	log.Infof("Listening on %s", ln.Addr())
	n.notice("[server] listening on %s", ln.Addr())

	context.AfterFunc(ctx, n.cancel)
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// Peers returns the addresses of the currently registered outbound peers.
func (n *Node) Peers() []PeerAddress {
	return n.registry.Addresses()
}

// Registry exposes the peer registry.
func (n *Node) Registry() *Registry {
	return n.registry
}

// Done is closed when the node begins shutting down.
func (n *Node) Done() <-chan struct{} {
	return n.ctx.Done()
}

// Close stops the node: accept and read loops exit, every connection is
// closed and Close waits for all goroutines to finish.  It is safe to call
// more than once.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()

		n.cancel()
		n.wg.Wait()
		log.Debugf("Node shut down")
	})
	return nil
}

// spawn runs f in a tracked goroutine.  It reports false without running f
// once the node is closed.
func (n *Node) spawn(f func()) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed || n.ctx.Err() != nil {
		return false
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		f()
	}()
	return true
}

func (n *Node) running() bool {
	return n.ctx.Err() == nil
}

// notice surfaces a status line to the sink.
func (n *Node) notice(format string, args ...any) {
	n.cfg.Sink.Append(fmt.Sprintf(format, args...))
}
