package mesh

import "sync"

// Registry maps peer addresses to live outbound connections.  All methods are
// safe for concurrent use: the outbound connector inserts while connection
// readers remove and the broadcaster iterates.
type Registry struct {
	mu    sync.RWMutex
	peers map[PeerAddress]*PeerConn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[PeerAddress]*PeerConn)}
}

// Add registers pc under its address.  It reports false, leaving the registry
// untouched, when the address already has a connection.
func (r *Registry) Add(pc *PeerConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.peers[pc.addr]; exists {
		return false
	}
	r.peers[pc.addr] = pc
	return true
}

// Remove deletes the entry for pc's address only if it still refers to pc.
// Removing twice, or removing after a newer connection took over the same
// address, is a no-op that reports false.
func (r *Registry) Remove(pc *PeerConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.peers[pc.addr]; !ok || cur != pc {
		return false
	}
	delete(r.peers, pc.addr)
	return true
}

// Get returns the connection registered for addr.
func (r *Registry) Get(addr PeerAddress) (*PeerConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pc, ok := r.peers[addr]
	return pc, ok
}

// Snapshot returns the connections registered at the time of the call.
func (r *Registry) Snapshot() []*PeerConn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*PeerConn, 0, len(r.peers))
	for _, pc := range r.peers {
		conns = append(conns, pc)
	}
	return conns
}

// Addresses returns the registered addresses in sorted order.
func (r *Registry) Addresses() []PeerAddress {
	r.mu.RLock()
	addrs := make([]PeerAddress, 0, len(r.peers))
	for addr := range r.peers {
		addrs = append(addrs, addr)
	}
	r.mu.RUnlock()

	sortAddresses(addrs)
	return addrs
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// CloseAll closes every registered connection.  Entries are left in place;
// each connection's reader removes its own entry when its read fails.
func (r *Registry) CloseAll() {
	for _, pc := range r.Snapshot() {
		pc.Close()
	}
}
