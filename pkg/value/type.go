// Package value defines the DHT-level payload (Value), its canonical
// serialization, and the ValueType registry the storage policies hang
// off of.
package value

import (
	"time"

	"github.com/dep2p/go-secureoverlay/pkg/hash"
)

// ID identifies a ValueType.
type ID uint16

// CertificateType is the reserved, well-known value type carrying X.509
// certificates (DER-encoded) on the DHT. It must always be registered as
// insecure: it IS the means of obtaining signature-verification keys, so
// it cannot itself be subject to signature enforcement (spec §6).
const CertificateType ID = 0

// UserDataType is the default, generic value type for opaque
// application payloads.
const UserDataType ID = 1

// DefaultExpiration is the TTL new ValueType values expire under unless
// overridden.
const DefaultExpiration = time.Hour

// StorePolicy decides whether a brand-new value may be stored at id,
// proposed by fromNode at addr.
type StorePolicy func(id hash.InfoHash, v *Value, fromNode hash.InfoHash, addr string) bool

// EditPolicy decides whether new may replace the already-stored old value.
type EditPolicy func(id hash.InfoHash, old, new *Value, fromNode hash.InfoHash, addr string) bool

// AllowStore is the permissive default StorePolicy.
func AllowStore(hash.InfoHash, *Value, hash.InfoHash, string) bool { return true }

// DenyEdit is the conservative default EditPolicy: once stored, a value
// at a given (info-hash, value-id) cannot be overwritten unless a type's
// registered policy says otherwise.
func DenyEdit(hash.InfoHash, *Value, *Value, hash.InfoHash, string) bool { return false }

// Type is a registered value-type tag with its store/edit policies and
// expiration, the unit the overlay's SecureType wrapper operates over.
type Type struct {
	ID          ID
	Name        string
	Expiration  time.Duration
	StorePolicy StorePolicy
	EditPolicy  EditPolicy
}

// NewType builds a Type with the permissive defaults, ready to be
// customized or wrapped by SecureType.
func NewType(id ID, name string) Type {
	return Type{
		ID:          id,
		Name:        name,
		Expiration:  DefaultExpiration,
		StorePolicy: AllowStore,
		EditPolicy:  DenyEdit,
	}
}

// Filter decides whether a Value should be delivered to a caller. Filters
// compose by conjunction via Chain.
type Filter func(*Value) bool

// AllFilter accepts every value.
func AllFilter(*Value) bool { return true }

// TypeFilter accepts values whose Type matches id.
func TypeFilter(id ID) Filter {
	return func(v *Value) bool { return v.Type == id }
}

// IDFilter accepts values whose ID matches id.
func IDFilter(id uint64) Filter {
	return func(v *Value) bool { return v.ID == id }
}

// RecipientFilter accepts values addressed to recipient.
func RecipientFilter(recipient hash.InfoHash) Filter {
	return func(v *Value) bool { return v.Flags.HasRecipient && v.Recipient == recipient }
}

// Chain combines filters by logical AND; a nil filter in the chain is
// skipped. A nil Filter itself (no filters given) accepts everything.
func Chain(filters ...Filter) Filter {
	return func(v *Value) bool {
		for _, f := range filters {
			if f != nil && !f(v) {
				return false
			}
		}
		return true
	}
}

// Apply runs f against v, treating a nil Filter as "accept".
func Apply(f Filter, v *Value) bool {
	if f == nil {
		return true
	}
	return f(v)
}
