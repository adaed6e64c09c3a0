package kademlia

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	godht "github.com/dep2p/go-secureoverlay/pkg/dht"
	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

// ReplicationFactor bounds how many of the nearest known peers a Get
// fans out to, mirroring the teacher's ReplicationFactor/alpha constants
// in internal/core/discovery/dht (adapted to Value/Filter semantics
// instead of byte key/value storage).
const ReplicationFactor = 3

type storedValue struct {
	value     *value.Value
	expiresAt time.Time
}

type subscription struct {
	token    godht.ListenToken
	hash     hash.InfoHash
	filter   value.Filter
	onValues godht.OnValues
}

// Option configures a DHT at construction, following the teacher's
// functional-options convention.
type Option func(*DHT)

// WithClock overrides the clock used for value expiry, for deterministic
// TTL tests (github.com/benbjohnson/clock).
func WithClock(c clock.Clock) Option {
	return func(d *DHT) { d.clock = c }
}

// DHT is the reference, in-process implementation of pkg/dht.DHT.
type DHT struct {
	id      hash.InfoHash
	network *Network
	routing *RoutingTable
	clock   clock.Clock

	mu      sync.Mutex
	store   map[hash.InfoHash]map[uint64]*storedValue
	lastPut map[hash.InfoHash]map[uint64]*value.Value
	types   map[value.ID]value.Type
	subs    map[string]*subscription

	closed atomic.Bool
}

var _ godht.DHT = (*DHT)(nil)

// New creates a DHT instance identified by id and joins it to network.
func New(network *Network, id hash.InfoHash, opts ...Option) *DHT {
	d := &DHT{
		id:      id,
		network: network,
		routing: NewRoutingTable(id),
		clock:   clock.New(),
		store:   make(map[hash.InfoHash]map[uint64]*storedValue),
		lastPut: make(map[hash.InfoHash]map[uint64]*value.Value),
		types:   make(map[value.ID]value.Type),
		subs:    make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	network.register(d)
	return d
}

// Close removes this instance from its network and marks it closed, so
// later Put, Get and Listen calls fail with ErrClosed. Its stored values
// are kept in memory.
func (d *DHT) Close() {
	if d.closed.Swap(true) {
		return
	}
	d.network.unregister(d.id)
}

// ID implements pkg/dht.DHT.
func (d *DHT) ID() hash.InfoHash { return d.id }

// RegisterType implements pkg/dht.DHT.
func (d *DHT) RegisterType(t value.Type) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.types[t.ID] = t
}

// RegisterInsecureType implements pkg/dht.DHT. The reference DHT applies
// whatever StorePolicy/EditPolicy the Type carries regardless of which
// registration call was used — the secure/insecure distinction lives in
// whether the overlay wrapped the type with SecureType before handing it
// here, not in this storage layer.
func (d *DHT) RegisterInsecureType(t value.Type) {
	d.RegisterType(t)
}

// GetPut implements pkg/dht.DHT.
func (d *DHT) GetPut(h hash.InfoHash, id uint64) (*value.Value, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.lastPut[h]
	if !ok {
		return nil, false
	}
	v, ok := m[id]
	return v, ok
}

// Put implements pkg/dht.DHT. A zero value.ID is replaced with a random
// one (spec §3: "INVALID_ID = 0 means assign random").
func (d *DHT) Put(ctx context.Context, h hash.InfoHash, v *value.Value) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if v.ID == 0 {
		v.ID = randomValueID()
	}

	d.mu.Lock()
	typ, hasType := d.types[v.Type]
	bucket, ok := d.store[h]
	if !ok {
		bucket = make(map[uint64]*storedValue)
		d.store[h] = bucket
	}
	old, hadOld := bucket[v.ID]
	d.mu.Unlock()

	const localAddr = "in-process"
	if hasType {
		if hadOld {
			if typ.EditPolicy != nil && !typ.EditPolicy(h, old.value, v, d.id, localAddr) {
				return ErrPolicyRejected
			}
		} else if typ.StorePolicy != nil && !typ.StorePolicy(h, v, d.id, localAddr) {
			return ErrPolicyRejected
		}
	}

	expiry := value.DefaultExpiration
	if hasType && typ.Expiration > 0 {
		expiry = typ.Expiration
	}

	stored := v.Clone()
	d.mu.Lock()
	bucket[v.ID] = &storedValue{value: stored, expiresAt: d.clock.Now().Add(expiry)}
	lp, ok := d.lastPut[h]
	if !ok {
		lp = make(map[uint64]*value.Value)
		d.lastPut[h] = lp
	}
	lp[v.ID] = v.Clone()
	d.mu.Unlock()

	d.notifySubscribers(h, stored)
	return nil
}

// ForceStore overwrites the stored value at (h, v.ID) without running any
// store/edit policy, bypassing the normal Put path entirely. It exists
// for tests that need to simulate a value having been tampered with
// after it was accepted, which Put's policy checks would otherwise
// prevent from ever occurring.
func (d *DHT) ForceStore(h hash.InfoHash, v *value.Value) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bucket, ok := d.store[h]
	if !ok {
		bucket = make(map[uint64]*storedValue)
		d.store[h] = bucket
	}
	expiry := value.DefaultExpiration
	if typ, hasType := d.types[v.Type]; hasType && typ.Expiration > 0 {
		expiry = typ.Expiration
	}
	bucket[v.ID] = &storedValue{value: v.Clone(), expiresAt: d.clock.Now().Add(expiry)}
}

// Get implements pkg/dht.DHT: it checks the local store first, then fans
// out to the ReplicationFactor nearest known peers concurrently
// (golang.org/x/sync/errgroup), matching the "Alpha-way concurrent
// fan-out" described in SPEC_FULL §5.
func (d *DHT) Get(ctx context.Context, h hash.InfoHash, onValues godht.OnValues, filter value.Filter) error {
	if d.closed.Load() {
		return ErrClosed
	}

	var stopped atomic.Bool
	deliver := func(vals []*value.Value) {
		if stopped.Load() || len(vals) == 0 {
			return
		}
		if !onValues(vals) {
			stopped.Store(true)
		}
	}

	deliver(d.localMatches(h, filter))

	peers := d.routing.NearestPeers(h, ReplicationFactor)
	g, _ := errgroup.WithContext(ctx)
	for _, p := range peers {
		p := p
		g.Go(func() error {
			if stopped.Load() {
				return nil
			}
			peerDHT, ok := d.network.peer(p)
			if !ok {
				return nil
			}
			deliver(peerDHT.localMatches(h, filter))
			return nil
		})
	}
	return g.Wait()
}

// Listen implements pkg/dht.DHT.
func (d *DHT) Listen(ctx context.Context, h hash.InfoHash, onValues godht.OnValues, filter value.Filter) (godht.ListenToken, error) {
	if d.closed.Load() {
		return godht.ListenToken{}, ErrClosed
	}
	token := godht.NewListenToken(uuid.NewString())
	sub := &subscription{token: token, hash: h, filter: filter, onValues: onValues}

	d.mu.Lock()
	d.subs[token.String()] = sub
	d.mu.Unlock()

	if local := d.localMatches(h, filter); len(local) > 0 {
		if !onValues(local) {
			d.mu.Lock()
			delete(d.subs, token.String())
			d.mu.Unlock()
		}
	}
	return token, nil
}

func (d *DHT) localMatches(h hash.InfoHash, filter value.Filter) []*value.Value {
	d.mu.Lock()
	defer d.mu.Unlock()
	bucket, ok := d.store[h]
	if !ok {
		return nil
	}
	now := d.clock.Now()
	var out []*value.Value
	for id, sv := range bucket {
		if now.After(sv.expiresAt) {
			delete(bucket, id)
			continue
		}
		if value.Apply(filter, sv.value) {
			out = append(out, sv.value.Clone())
		}
	}
	return out
}

func (d *DHT) notifySubscribers(h hash.InfoHash, v *value.Value) {
	d.mu.Lock()
	var matched []*subscription
	for _, s := range d.subs {
		if s.hash == h && value.Apply(s.filter, v) {
			matched = append(matched, s)
		}
	}
	d.mu.Unlock()

	for _, s := range matched {
		if !s.onValues([]*value.Value{v.Clone()}) {
			d.mu.Lock()
			delete(d.subs, s.token.String())
			d.mu.Unlock()
		}
	}
}

func randomValueID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand failing means the OS entropy source is broken
	}
	id := binary.BigEndian.Uint64(b[:])
	if id == 0 {
		id = 1
	}
	return id
}
