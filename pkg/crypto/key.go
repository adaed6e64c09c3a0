// Package crypto provides the RSA key, X.509 certificate, signature,
// block-wise asymmetric encryption and AES-GCM primitives the secure
// overlay is built on.
//
// The data model (spec §3) fixes the owner/identity key type to RSA, so
// unlike a general-purpose key library this package does not abstract
// over multiple signature algorithms: there is exactly one PublicKey and
// one PrivateKey implementation, both backed by crypto/rsa.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
)

// Key is the common behavior of public and private keys.
type Key interface {
	// Raw returns the key's canonical DER encoding.
	Raw() ([]byte, error)

	// Equals reports whether two keys hold the same material.
	Equals(Key) bool
}

// PublicKey verifies signatures and encrypts data block-wise toward the
// holder of the matching PrivateKey.
type PublicKey interface {
	Key

	// Verify checks sig against data using PKCS#1 v1.5 + SHA-512.
	Verify(data, sig []byte) (bool, error)

	// Encrypt splits data into chunks small enough for one padded block
	// each and encrypts each one, returning the concatenation of the
	// resulting modulus-sized ciphertext blocks.
	Encrypt(data []byte) ([]byte, error)
}

// PrivateKey signs data and recovers plaintext encrypted toward the
// matching PublicKey.
type PrivateKey interface {
	Key

	// Sign produces a PKCS#1 v1.5 + SHA-512 signature over data.
	Sign(data []byte) ([]byte, error)

	// Decrypt reverses PublicKey.Encrypt, failing entirely if any block
	// fails to decrypt.
	Decrypt(cypher []byte) ([]byte, error)

	// Public returns the corresponding public key.
	Public() PublicKey
}

// KeyEqual performs a constant-time comparison of two keys' raw
// encodings, guarding against timing side channels.
func KeyEqual(a, b Key) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, err1 := a.Raw()
	bb, err2 := b.Raw()
	if err1 != nil || err2 != nil {
		return false
	}
	return subtle.ConstantTimeCompare(ab, bb) == 1
}

// RandomBytes returns n cryptographically secure random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
