package crypto

import "github.com/dep2p/go-secureoverlay/pkg/hash"

// PublicKeyID derives the stable InfoHash identity of a public key: the
// SHA-1 digest of its canonical DER encoding (spec §3).
func PublicKeyID(pub PublicKey) (hash.InfoHash, error) {
	if pub == nil {
		return hash.Zero, ErrNilPublicKey
	}
	raw, err := pub.Raw()
	if err != nil {
		return hash.Zero, err
	}
	return hash.Of(raw), nil
}
