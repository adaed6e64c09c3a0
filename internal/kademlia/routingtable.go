// Package kademlia is a minimal, in-process reference implementation of
// the pkg/dht.DHT interface the secure overlay consumes. It exists so
// the repository compiles and can be driven end-to-end in tests; it is explicitly not a production Kademlia
// network stack (no UDP sockets, no NAT traversal — spec §1 non-goals).
//
// K-bucket and XOR-distance handling is generalized from the teacher's
// internal/core/discovery/dht/realm_key.go (XORDistance/
// CommonPrefixLength/LeadingZeros), narrowed from 256-bit NodeID to the
// spec's 160-bit InfoHash.
package kademlia

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-secureoverlay/pkg/hash"
)

// BucketSize bounds how many peers a single k-bucket retains.
const BucketSize = 20

// NumBuckets is one bucket per possible common-prefix length with self.
const NumBuckets = hash.Size * 8

// RoutingTable is a simple k-bucket table keyed by XOR distance to self.
// Each bucket is an LRU set: when a bucket is full, adding a peer evicts
// the least recently added one. There is no liveness-ping subsystem, so
// long-lived peers are not preferred over newcomers.
type RoutingTable struct {
	self hash.InfoHash

	mu      sync.RWMutex
	buckets [NumBuckets]*lru.Cache[hash.InfoHash, struct{}]
}

// NewRoutingTable builds an empty routing table for self.
func NewRoutingTable(self hash.InfoHash) *RoutingTable {
	rt := &RoutingTable{self: self}
	for i := range rt.buckets {
		c, _ := lru.New[hash.InfoHash, struct{}](BucketSize)
		rt.buckets[i] = c
	}
	return rt
}

func (rt *RoutingTable) bucketIndex(id hash.InfoHash) int {
	cb := hash.CommonBits(rt.self, id)
	if cb >= NumBuckets {
		cb = NumBuckets - 1
	}
	return cb
}

// Add records id as known, unless it is self.
func (rt *RoutingTable) Add(id hash.InfoHash) {
	if id.Equal(rt.self) {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.buckets[rt.bucketIndex(id)].Add(id, struct{}{})
}

// Remove forgets id, e.g. once a peer is known to be gone.
func (rt *RoutingTable) Remove(id hash.InfoHash) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.buckets[rt.bucketIndex(id)].Remove(id)
}

// Size returns the total number of known peers.
func (rt *RoutingTable) Size() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	n := 0
	for _, b := range rt.buckets {
		n += b.Len()
	}
	return n
}

// NearestPeers returns up to count known peers ordered by ascending XOR
// distance to target.
func (rt *RoutingTable) NearestPeers(target hash.InfoHash, count int) []hash.InfoHash {
	rt.mu.RLock()
	all := make([]hash.InfoHash, 0, rt.Size())
	for _, b := range rt.buckets {
		all = append(all, b.Keys()...)
	}
	rt.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return hash.Xor(all[i], target).Less(hash.Xor(all[j], target))
	})
	if len(all) > count {
		all = all[:count]
	}
	return all
}
