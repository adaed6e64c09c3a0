package secureoverlay

import (
	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

// SecureType wraps t's store/edit policies with the signature and
// monotonicity checks spec §4.C describes, delegating to t's own
// policies once the checks pass. Grounded on SecureDht::secureType in
// the original C++ source; the Design Notes' "Policy composition"
// preference for a (verify, delegate) builder over inheritance is
// realized here as two closures composed over t's originals.
func SecureType(t value.Type) value.Type {
	innerStore := t.StorePolicy
	if innerStore == nil {
		innerStore = value.AllowStore
	}
	innerEdit := t.EditPolicy
	if innerEdit == nil {
		innerEdit = value.DenyEdit
	}

	wrapped := t
	wrapped.StorePolicy = func(id hash.InfoHash, v *value.Value, from hash.InfoHash, addr string) bool {
		if v.Flags.Signed && !v.Flags.Encrypted {
			if v.Owner == nil {
				return false
			}
			toSign, err := v.GetToSign()
			if err != nil {
				return false
			}
			ok, err := v.Owner.Verify(toSign, v.Signature)
			if err != nil || !ok {
				return false
			}
		}
		return innerStore(id, v, from, addr)
	}

	wrapped.EditPolicy = func(id hash.InfoHash, old, next *value.Value, from hash.InfoHash, addr string) bool {
		if !old.Flags.Signed || old.Flags.Encrypted {
			return innerEdit(id, old, next, from, addr)
		}
		if next.Owner == nil || old.Owner == nil || !next.Owner.Equals(old.Owner) {
			return false
		}
		toSign, err := next.GetToSign()
		if err != nil {
			return false
		}
		ok, err := next.Owner.Verify(toSign, next.Signature)
		if err != nil || !ok {
			return false
		}
		if next.Seq == old.Seq {
			oldToSign, err := old.GetToSign()
			if err != nil || string(oldToSign) != string(toSign) {
				return false
			}
		} else if next.Seq <= old.Seq {
			return false
		}
		return innerEdit(id, old, next, from, addr)
	}

	return wrapped
}
