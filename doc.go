// Package secureoverlay layers authenticity, confidentiality and
// identity discovery on top of a plain Kademlia-style DHT.
//
// It does not implement a DHT itself: pkg/dht.DHT is the small interface
// Overlay consumes, and internal/kademlia is a reference, in-process
// implementation used by this package's own tests. Production callers
// supply their own DHT.
//
// # Constructing an overlay
//
//	identity, err := crypto.GenerateIdentity("node-1", nil, crypto.RSADefaultKeySize)
//	overlay, err := secureoverlay.NewOverlay(ctx, dht, identity)
//
// A nil identity produces an anonymous, read-only overlay: it can Get
// and Listen, and Put plain values, but PutSigned, PutEncrypted, sign,
// encrypt and decrypt all fail with ErrNoIdentity.
//
// # Announcing signed data
//
//	v := value.New(value.UserDataType, []byte("hello"))
//	err := overlay.PutSigned(ctx, key, v)
//
// PutSigned assigns v an id if it has none, checks for a prior
// self-owned announcement at that id and bumps Seq past it, signs v
// under the overlay's identity, and stores it.
//
// # Sending a private message
//
//	err := overlay.PutEncrypted(ctx, key, recipientCertID, v)
//
// PutEncrypted resolves the recipient's certificate by its certificate
// id, the InfoHash of the recipient's public key (via the built-in
// certificate directory, certstore.Store), encrypts v toward that
// certificate's public key, signs the plaintext before encrypting it,
// and stores only the resulting cyphertext.
//
// # Reading values back
//
//	err := overlay.Get(ctx, key, func(vals []*value.Value) bool {
//	    for _, v := range vals {
//	        fmt.Println(string(v.Data))
//	    }
//	    return true
//	}, nil)
//
// Get and Listen both run every incoming value through the receive
// pipeline before handing it to the caller: encrypted values are
// decrypted and their inner signature verified, signed values have
// their signature verified, and plain values pass through unchanged.
// Values that fail verification are dropped silently; if a whole batch
// is dropped, the caller's callback is not invoked for it at all.
package secureoverlay
