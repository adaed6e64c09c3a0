package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genTestKey(t *testing.T) (PrivateKey, PublicKey) {
	t.Helper()
	priv, pub, err := GenerateRSAKey(RSAMinKeySize)
	require.NoError(t, err)
	return priv, pub
}

func TestRSASignVerifyRoundtrip(t *testing.T) {
	priv, pub := genTestKey(t)
	data := []byte("the quick brown fox")

	sig, err := priv.Sign(data)
	require.NoError(t, err)

	ok, err := pub.Verify(data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRSASignVerifyTamperedData(t *testing.T) {
	priv, pub := genTestKey(t)
	data := []byte("original data")
	sig, err := priv.Sign(data)
	require.NoError(t, err)

	ok, err := pub.Verify([]byte("tampered data"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRSASignVerifyTamperedSignature(t *testing.T) {
	priv, pub := genTestKey(t)
	data := []byte("original data")
	sig, err := priv.Sign(data)
	require.NoError(t, err)
	sig[0] ^= 0xFF

	ok, err := pub.Verify(data, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRSAEncryptDecryptRoundtripSmall(t *testing.T) {
	priv, pub := genTestKey(t)
	plain := []byte("hello")

	cypher, err := pub.Encrypt(plain)
	require.NoError(t, err)

	out, err := priv.Decrypt(cypher)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestRSAEncryptDecryptRoundtripMultiBlock(t *testing.T) {
	priv, pub := genTestKey(t)
	plain := make([]byte, 1000)
	for i := range plain {
		plain[i] = byte(i)
	}

	cypher, err := pub.Encrypt(plain)
	require.NoError(t, err)

	out, err := priv.Decrypt(cypher)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestRSAEncryptDecryptEmpty(t *testing.T) {
	priv, pub := genTestKey(t)

	cypher, err := pub.Encrypt(nil)
	require.NoError(t, err)

	out, err := priv.Decrypt(cypher)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRSADecryptCorruptedBlockFails(t *testing.T) {
	priv, pub := genTestKey(t)
	cypher, err := pub.Encrypt([]byte("some secret"))
	require.NoError(t, err)

	cypher[len(cypher)/2] ^= 0xFF

	_, err = priv.Decrypt(cypher)
	assert.Error(t, err)
}

func TestGenerateRSAKeyRejectsSmallSize(t *testing.T) {
	_, _, err := GenerateRSAKey(512)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestRSAPublicKeyMarshalRoundtrip(t *testing.T) {
	_, pub := genTestKey(t)
	raw, err := pub.Raw()
	require.NoError(t, err)

	pub2, err := UnmarshalRSAPublicKey(raw)
	require.NoError(t, err)
	assert.True(t, pub.(*RSAPublicKey).Equals(pub2))
}

func TestRSAPrivateKeyMarshalRoundtrip(t *testing.T) {
	priv, _ := genTestKey(t)
	raw, err := priv.Raw()
	require.NoError(t, err)

	priv2, err := UnmarshalRSAPrivateKey(raw)
	require.NoError(t, err)
	assert.True(t, priv.(*RSAPrivateKey).Equals(priv2))
}
