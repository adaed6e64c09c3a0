package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// gcmNonceSize is the standard 96-bit AES-GCM nonce size.
const gcmNonceSize = 12

// AESEncrypt encrypts data under a 128/192/256-bit key using AES-GCM with
// a random 96-bit nonce, returning nonce || ciphertext || tag.
//
// Per spec §4.A this is exposed for external callers; the secure overlay
// itself only ever uses the asymmetric RSA primitives in rsa.go.
func AESEncrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	return gcm.Seal(nonce, nonce, data, nil), nil
}

// AESDecrypt reverses AESEncrypt, failing on tag mismatch.
func AESDecrypt(blob, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if len(blob) < gcmNonceSize+gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := blob[:gcmNonceSize], blob[gcmNonceSize:]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plain, nil
}
