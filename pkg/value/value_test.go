package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secureoverlay/pkg/crypto"
	"github.com/dep2p/go-secureoverlay/pkg/hash"
)

func TestPackUnpackPlainValue(t *testing.T) {
	v := New(UserDataType, []byte("hello overlay"))
	v.ID = 42

	blob, err := v.Pack()
	require.NoError(t, err)

	got, err := Unpack(blob)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	assert.Equal(t, v.Type, got.Type)
	assert.Equal(t, v.Data, got.Data)
	assert.False(t, got.Flags.Signed)
	assert.False(t, got.Flags.Encrypted)
}

func TestPackUnpackSignedValue(t *testing.T) {
	priv, pub := genKey(t)

	v := New(UserDataType, []byte("signed payload"))
	v.ID = 7
	v.Flags.Signed = true
	v.Owner = pub

	toSign, err := v.GetToSign()
	require.NoError(t, err)
	sig, err := priv.Sign(toSign)
	require.NoError(t, err)
	v.Signature = sig

	blob, err := v.Pack()
	require.NoError(t, err)

	got, err := Unpack(blob)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)

	gotToSign, err := got.GetToSign()
	require.NoError(t, err)
	ok, err := got.Owner.Verify(gotToSign, got.Signature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPackUnpackEncryptedWithRecipient(t *testing.T) {
	v := New(UserDataType, nil)
	v.ID = 9
	v.Flags.Encrypted = true
	v.Flags.HasRecipient = true
	v.Recipient = hash.Of([]byte("recipient"))
	v.Cypher = []byte("opaque ciphertext bytes")

	blob, err := v.Pack()
	require.NoError(t, err)

	got, err := Unpack(blob)
	require.NoError(t, err)
	assert.Equal(t, v.Recipient, got.Recipient)
	assert.Equal(t, v.Cypher, got.Cypher)
	assert.Nil(t, got.Data)
}

func TestUnpackRejectsUnknownFlags(t *testing.T) {
	v := New(UserDataType, []byte("x"))
	blob, err := v.Pack()
	require.NoError(t, err)
	blob[10] |= 0x80

	_, err = Unpack(blob)
	assert.ErrorIs(t, err, ErrUnknownFlags)
}

func TestUnpackTruncatedFails(t *testing.T) {
	_, err := Unpack([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestGetToSignDiffersWhenPayloadDiffers(t *testing.T) {
	a := New(UserDataType, []byte("one"))
	b := New(UserDataType, []byte("two"))

	sa, err := a.GetToSign()
	require.NoError(t, err)
	sb, err := b.GetToSign()
	require.NoError(t, err)
	assert.NotEqual(t, sa, sb)
}

func TestGetToEncryptParseSignedPlaintextRoundtrip(t *testing.T) {
	priv, pub := genKey(t)

	v := New(UserDataType, []byte("inner signed payload"))
	v.ID = 11
	v.Flags.Signed = true
	v.Owner = pub

	toSign, err := v.GetToSign()
	require.NoError(t, err)
	sig, err := priv.Sign(toSign)
	require.NoError(t, err)
	v.Signature = sig

	toEncrypt, err := v.GetToEncrypt()
	require.NoError(t, err)

	parsed, ownerID, err := ParseSignedPlaintext(toEncrypt, v.ID)
	require.NoError(t, err)

	wantOwnerID, err := crypto.PublicKeyID(pub)
	require.NoError(t, err)
	assert.Equal(t, wantOwnerID, ownerID)
	assert.Equal(t, v.Data, parsed.Data)
	assert.Equal(t, v.ID, parsed.ID)

	rebuiltToSign, err := (&Value{
		ID: parsed.ID, Type: parsed.Type, Flags: parsed.Flags,
		Owner: pub, Data: parsed.Data,
	}).GetToSign()
	require.NoError(t, err)
	ok, err := pub.Verify(rebuiltToSign, parsed.Signature)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilterChain(t *testing.T) {
	v := New(UserDataType, []byte("x"))
	v.ID = 5

	f := Chain(TypeFilter(UserDataType), IDFilter(5))
	assert.True(t, f(v))

	f2 := Chain(TypeFilter(CertificateType), IDFilter(5))
	assert.False(t, f2(v))
}

func genKey(t *testing.T) (crypto.PrivateKey, crypto.PublicKey) {
	t.Helper()
	priv, pub, err := crypto.GenerateRSAKey(crypto.RSAMinKeySize)
	require.NoError(t, err)
	return priv, pub
}
