package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESEncryptDecryptRoundtrip(t *testing.T) {
	key, err := RandomBytes(32)
	require.NoError(t, err)
	plain := []byte("a secret overlay payload")

	blob, err := AESEncrypt(plain, key)
	require.NoError(t, err)
	assert.NotEqual(t, plain, blob)

	got, err := AESDecrypt(blob, key)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAESEncryptProducesFreshNonceEachCall(t *testing.T) {
	key, err := RandomBytes(32)
	require.NoError(t, err)
	plain := []byte("same plaintext twice")

	a, err := AESEncrypt(plain, key)
	require.NoError(t, err)
	b, err := AESEncrypt(plain, key)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "nonce reuse would make ciphertexts identical")
}

func TestAESDecryptWrongKeyFails(t *testing.T) {
	key, err := RandomBytes(32)
	require.NoError(t, err)
	other, err := RandomBytes(32)
	require.NoError(t, err)

	blob, err := AESEncrypt([]byte("hello"), key)
	require.NoError(t, err)

	_, err = AESDecrypt(blob, other)
	assert.Error(t, err)
}

func TestAESDecryptTamperedCiphertextFails(t *testing.T) {
	key, err := RandomBytes(32)
	require.NoError(t, err)

	blob, err := AESEncrypt([]byte("hello world"), key)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xFF

	_, err = AESDecrypt(blob, key)
	assert.Error(t, err)
}

func TestAESDecryptTooShortFails(t *testing.T) {
	key, err := RandomBytes(32)
	require.NoError(t, err)

	_, err = AESDecrypt([]byte{1, 2, 3}, key)
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}
