package crypto

import "errors"

// Key errors.
var (
	// ErrNilPrivateKey indicates a nil private key was supplied.
	ErrNilPrivateKey = errors.New("crypto: nil private key")
	// ErrNilPublicKey indicates a nil public key was supplied.
	ErrNilPublicKey = errors.New("crypto: nil public key")
	// ErrInvalidKeySize indicates a key outside the allowed bit range.
	ErrInvalidKeySize = errors.New("crypto: invalid key size")
	// ErrInvalidPublicKey indicates malformed or non-RSA public key bytes.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
	// ErrInvalidPrivateKey indicates malformed or non-RSA private key bytes.
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
)

// Signature errors.
var (
	// ErrNilSignature indicates an empty signature was supplied to verify.
	ErrNilSignature = errors.New("crypto: nil signature")
)

// Serialization errors.
var (
	// ErrMarshalFailed wraps a failure encoding a key to bytes.
	ErrMarshalFailed = errors.New("crypto: marshal failed")
	// ErrUnmarshalFailed wraps a failure decoding a key from bytes.
	ErrUnmarshalFailed = errors.New("crypto: unmarshal failed")
)

// Encryption errors.
var (
	// ErrDecryptFailed indicates ciphertext could not be recovered: wrong
	// key, tampered data, or bad padding. Never surfaced beyond a dropped
	// value and a log line — see spec §7 (DecryptError).
	ErrDecryptFailed = errors.New("crypto: decryption failed")
	// ErrEncryptFailed indicates a failure producing ciphertext.
	ErrEncryptFailed = errors.New("crypto: encryption failed")
	// ErrCiphertextTooShort indicates an AES-GCM blob shorter than nonce+tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// Keystore errors.
var (
	// ErrInvalidPassword indicates the password could not open a keystore file.
	ErrInvalidPassword = errors.New("crypto: invalid password")
	// ErrInvalidKeyFile indicates a keystore file with a bad magic/version.
	ErrInvalidKeyFile = errors.New("crypto: invalid key file format")
)

// Certificate errors.
var (
	// ErrCertKeyMismatch indicates a certificate's public key id does not
	// match the node id it was claimed to belong to.
	ErrCertKeyMismatch = errors.New("crypto: certificate public key does not match node id")
	// ErrNotCA indicates an attempt to sign a certificate with a
	// non-CA issuer identity.
	ErrNotCA = errors.New("crypto: issuer certificate is not a CA")
)
