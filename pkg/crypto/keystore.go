package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Identity file format, adapted from the teacher's generic key-file
// layout (pkg/lib/crypto/keystore.go) and narrowed to one RSA identity:
//
//	┌────────────────────────────────────────────────────────┐
//	│ Magic "SOID" (4) │ Version(1) │ Encrypted(1) │ Body     │
//	└────────────────────────────────────────────────────────┘
//
//	Body, unencrypted: [PrivLen(4)][Priv][CertLen(4)][Cert DER]
//	Body, encrypted:   [Salt(16)][Nonce(12)][AES-GCM(body)]
const (
	identityFileMagic   = "SOID"
	identityFileVersion = 1

	saltSize  = 16
	nonceSize = 12

	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// MarshalIdentity serializes an Identity to bytes, optionally protecting
// the private key with a password (spec §3: "Serializable with optional
// password-based protection").
func MarshalIdentity(id *Identity, password []byte) ([]byte, error) {
	privBytes, err := MarshalPrivateKey(id.PrivateKey)
	if err != nil {
		return nil, err
	}
	certDER := id.Certificate.DER()

	var body []byte
	body = WriteLenPrefixed(body, privBytes)
	body = WriteLenPrefixed(body, certDER)

	encrypted := byte(0)
	if len(password) > 0 {
		encrypted = 1
		body, err = encryptIdentityBody(body, password)
		if err != nil {
			return nil, err
		}
	}

	out := []byte(identityFileMagic)
	out = append(out, identityFileVersion, encrypted)
	out = append(out, body...)
	return out, nil
}

// UnmarshalIdentity reverses MarshalIdentity. password must match what
// MarshalIdentity was called with (nil/empty if the identity was stored
// unencrypted).
func UnmarshalIdentity(data []byte, password []byte) (*Identity, error) {
	if len(data) < 6 || string(data[:4]) != identityFileMagic {
		return nil, ErrInvalidKeyFile
	}
	version, encrypted := data[4], data[5]
	if version != identityFileVersion {
		return nil, ErrInvalidKeyFile
	}
	body := data[6:]

	if encrypted == 1 {
		if len(password) == 0 {
			return nil, ErrInvalidPassword
		}
		plain, err := decryptIdentityBody(body, password)
		if err != nil {
			return nil, err
		}
		body = plain
	}

	privBytes, rest, err := ReadLenPrefixed(body)
	if err != nil {
		return nil, err
	}
	certDER, _, err := ReadLenPrefixed(rest)
	if err != nil {
		return nil, err
	}

	priv, err := UnmarshalPrivateKeyBytes(privBytes)
	if err != nil {
		return nil, err
	}
	cert, err := ParseCertificateDER(certDER)
	if err != nil {
		return nil, err
	}
	return NewIdentity(priv, cert)
}

func encryptIdentityBody(plain, password []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	key := argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nil, nonce, plain, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

func decryptIdentityBody(blob, password []byte) ([]byte, error) {
	if len(blob) < saltSize+nonceSize {
		return nil, ErrInvalidKeyFile
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	key := argon2.IDKey(password, salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidPassword
	}
	return plain, nil
}
