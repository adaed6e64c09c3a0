package crypto

import (
	gocrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
)

// RSA key size bounds (bits). The spec's default identity key length is
// 4096; 2048 is the floor accepted from a peer.
const (
	RSAMinKeySize     = 2048
	RSADefaultKeySize = 4096
	RSAMaxKeySize     = 8192
)

// pkcs1v15EncryptOverhead is the minimum padding overhead RFC 8017
// requires for PKCS#1 v1.5 encryption (11 bytes).
const pkcs1v15EncryptOverhead = 11

// ============================================================================
//                              RSAPublicKey
// ============================================================================

// RSAPublicKey is the PublicKey implementation backing owner/recipient
// identities in the value model.
type RSAPublicKey struct {
	k *rsa.PublicKey
}

// NewRSAPublicKey wraps a standard library RSA public key.
func NewRSAPublicKey(k *rsa.PublicKey) *RSAPublicKey {
	return &RSAPublicKey{k: k}
}

// Raw returns the PKIX/DER encoding of the public key.
func (k *RSAPublicKey) Raw() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.k)
}

// Equals compares the modulus and exponent of two RSA public keys.
func (k *RSAPublicKey) Equals(other Key) bool {
	rk, ok := other.(*RSAPublicKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.N.Cmp(rk.k.N) == 0 && k.k.E == rk.k.E
}

// Verify checks sig over data using RSA PKCS#1 v1.5 with SHA-512, the
// digest the overlay's peers are required to agree on (spec §9).
func (k *RSAPublicKey) Verify(data, sig []byte) (bool, error) {
	if len(sig) == 0 {
		return false, nil
	}
	hash := sha512.Sum512(data)
	err := rsa.VerifyPKCS1v15(k.k, gocrypto.SHA512, hash[:], sig)
	return err == nil, nil
}

// Encrypt splits data into chunks of the modulus size minus the 11-byte
// PKCS#1 v1.5 overhead, PKCS#1 v1.5-encrypts each, and concatenates the
// resulting modulus-sized ciphertext blocks.
func (k *RSAPublicKey) Encrypt(data []byte) ([]byte, error) {
	blockSize := k.k.Size()
	chunkSize := blockSize - pkcs1v15EncryptOverhead
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: modulus too small for PKCS#1 v1.5", ErrEncryptFailed)
	}

	chunks := 1
	if len(data) > 0 {
		chunks = (len(data) + chunkSize - 1) / chunkSize
	}

	var out []byte
	for i := 0; i < chunks; i++ {
		off := i * chunkSize
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		block, err := rsa.EncryptPKCS1v15(rand.Reader, k.k, data[off:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
		}
		out = append(out, block...)
	}
	return out, nil
}

// ============================================================================
//                              RSAPrivateKey
// ============================================================================

// RSAPrivateKey is the PrivateKey implementation backing the overlay's
// own identity.
type RSAPrivateKey struct {
	k *rsa.PrivateKey
}

// NewRSAPrivateKey wraps a standard library RSA private key.
func NewRSAPrivateKey(k *rsa.PrivateKey) *RSAPrivateKey {
	return &RSAPrivateKey{k: k}
}

// Raw returns the PKCS#1 encoding of the private key.
func (k *RSAPrivateKey) Raw() ([]byte, error) {
	return x509.MarshalPKCS1PrivateKey(k.k), nil
}

// Equals compares the private exponent and modulus of two RSA private keys.
func (k *RSAPrivateKey) Equals(other Key) bool {
	rk, ok := other.(*RSAPrivateKey)
	if !ok {
		return KeyEqual(k, other)
	}
	return k.k.D.Cmp(rk.k.D) == 0 && k.k.N.Cmp(rk.k.N) == 0
}

// Public returns the key's corresponding public key.
func (k *RSAPrivateKey) Public() PublicKey {
	return &RSAPublicKey{k: &k.k.PublicKey}
}

// Sign produces an RSA PKCS#1 v1.5 signature over the SHA-512 digest of data.
func (k *RSAPrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha512.Sum512(data)
	return rsa.SignPKCS1v15(rand.Reader, k.k, gocrypto.SHA512, hash[:])
}

// Decrypt reverses RSAPublicKey.Encrypt. cypher must be a multiple of the
// modulus size; any block that fails to decrypt fails the whole call, per
// spec §4.A ("failure of any block raises a DecryptError").
func (k *RSAPrivateKey) Decrypt(cypher []byte) ([]byte, error) {
	blockSize := k.k.Size()
	if blockSize == 0 || len(cypher)%blockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext not a multiple of modulus size", ErrDecryptFailed)
	}

	var out []byte
	for off := 0; off < len(cypher); off += blockSize {
		block := cypher[off : off+blockSize]
		plain, err := rsa.DecryptPKCS1v15(rand.Reader, k.k, block)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		out = append(out, plain...)
	}
	return out, nil
}

// ============================================================================
//                              Factory functions
// ============================================================================

// GenerateRSAKey generates a new RSA key pair of the given size in bits.
func GenerateRSAKey(bits int) (PrivateKey, PublicKey, error) {
	if bits < RSAMinKeySize {
		return nil, nil, fmt.Errorf("%w: must be at least %d bits", ErrInvalidKeySize, RSAMinKeySize)
	}
	if bits > RSAMaxKeySize {
		return nil, nil, fmt.Errorf("%w: must be at most %d bits", ErrInvalidKeySize, RSAMaxKeySize)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, err
	}
	return &RSAPrivateKey{k: priv}, &RSAPublicKey{k: &priv.PublicKey}, nil
}

// UnmarshalRSAPublicKey decodes a PKIX/DER-encoded RSA public key.
func UnmarshalRSAPublicKey(data []byte) (PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPublicKey
	}
	if rsaPub.N.BitLen() < RSAMinKeySize {
		return nil, fmt.Errorf("%w: key too small", ErrInvalidPublicKey)
	}
	return &RSAPublicKey{k: rsaPub}, nil
}

// UnmarshalRSAPrivateKey decodes a PKCS#1- or PKCS#8-encoded RSA private key.
func UnmarshalRSAPrivateKey(data []byte) (PrivateKey, error) {
	if priv, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		if priv.N.BitLen() < RSAMinKeySize {
			return nil, fmt.Errorf("%w: key too small", ErrInvalidPrivateKey)
		}
		return &RSAPrivateKey{k: priv}, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(data); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			if rsaKey.N.BitLen() < RSAMinKeySize {
				return nil, fmt.Errorf("%w: key too small", ErrInvalidPrivateKey)
			}
			return &RSAPrivateKey{k: rsaKey}, nil
		}
	}
	return nil, ErrInvalidPrivateKey
}
