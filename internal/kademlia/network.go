package kademlia

import (
	"sync"

	"github.com/dep2p/go-secureoverlay/pkg/hash"
)

// Network is the in-process stand-in for a Kademlia transport: a shared
// registry every DHT instance in a test or example process joins. It
// replaces UDP sockets and NAT traversal (out of scope per spec §1) with
// direct in-memory calls between registered peers.
//
// On registration every existing peer learns the newcomer and vice
// versa, approximating a small, fully-bootstrapped swarm — a
// simplification appropriate for a reference implementation, not a
// production routing layer.
type Network struct {
	mu    sync.RWMutex
	peers map[hash.InfoHash]*DHT
}

// NewNetwork creates an empty, shared in-process network.
func NewNetwork() *Network {
	return &Network{peers: make(map[hash.InfoHash]*DHT)}
}

func (n *Network) register(d *DHT) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, other := range n.peers {
		other.routing.Add(d.id)
		d.routing.Add(other.id)
	}
	n.peers[d.id] = d
}

func (n *Network) unregister(id hash.InfoHash) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.peers, id)
	for _, other := range n.peers {
		other.routing.Remove(id)
	}
}

func (n *Network) peer(id hash.InfoHash) (*DHT, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	d, ok := n.peers[id]
	return d, ok
}

// Size returns how many DHT instances are currently registered.
func (n *Network) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.peers)
}
