// Package dht defines the interface the secure overlay consumes from an
// underlying Kademlia-style DHT, grounded on the teacher's
// pkg/interfaces/dht.go split of interface from implementation.
//
// The overlay (root package) and the certificate directory (certstore)
// both depend only on this package, never on a concrete implementation;
// internal/kademlia is one such implementation, used by tests.
package dht

import (
	"context"

	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

// OnValues delivers a non-empty batch of values matching a Get or Listen
// query. Returning false requests the underlying DHT stop the iterative
// query (for Get) or cancel the subscription (for Listen).
type OnValues func(values []*value.Value) bool

// ListenToken identifies an active Listen subscription. The spec defines
// no explicit cancellation API (§5): a subscription ends when its
// onValues callback returns false, or when the DHT instance is closed.
// The token exists purely for tracking/logging which subscription a
// later delivery belongs to.
type ListenToken struct {
	id string
}

// NewListenToken wraps an opaque subscription id. Implementations of DHT
// construct tokens; callers only compare or hold them.
func NewListenToken(id string) ListenToken { return ListenToken{id: id} }

// String returns the token's opaque id, useful for logging.
func (t ListenToken) String() string { return t.id }

// DHT is the small surface the secure overlay builds on (spec §6,
// "Consumed from the underlying DHT"). Put folds the spec's
// done(ok, nodes) callback into a returned error; Get and Listen keep
// callback-based delivery since a query or subscription may deliver
// several batches over its lifetime.
type DHT interface {
	// Get performs a one-shot (possibly iterative) lookup of h, invoking
	// onValues with each batch of matching values until onValues returns
	// false or the query is exhausted.
	Get(ctx context.Context, h hash.InfoHash, onValues OnValues, filter value.Filter) error

	// Put stores v under h, running the registered Type's store or edit
	// policy against any existing value at (h, v.ID).
	Put(ctx context.Context, h hash.InfoHash, v *value.Value) error

	// Listen subscribes to future values stored under h, invoking
	// onValues for each arrival until onValues returns false or the DHT
	// instance is closed.
	Listen(ctx context.Context, h hash.InfoHash, onValues OnValues, filter value.Filter) (ListenToken, error)

	// RegisterType registers t's store/edit policies for values carrying
	// that type tag.
	RegisterType(t value.Type)

	// RegisterInsecureType registers t exactly as RegisterType; it exists
	// as a distinct call so callers (the overlay) can make explicit which
	// types they deliberately did not wrap in SecureType — most
	// prominently CERTIFICATE, which must stay unsigned-policy so it can
	// bootstrap the very keys signature checking depends on.
	RegisterInsecureType(t value.Type)

	// GetPut returns the last value this local instance announced under
	// (h, id), if any — used by putSigned to avoid seq regressions across
	// repeated local announcements.
	GetPut(h hash.InfoHash, id uint64) (*value.Value, bool)

	// ID returns this DHT instance's own node identifier.
	ID() hash.InfoHash
}
