package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalIdentityNoPassword(t *testing.T) {
	id, err := GenerateIdentity("node-e", nil, RSAMinKeySize)
	require.NoError(t, err)

	data, err := MarshalIdentity(id, nil)
	require.NoError(t, err)

	got, err := UnmarshalIdentity(data, nil)
	require.NoError(t, err)

	gotID, err := got.Certificate.ID()
	require.NoError(t, err)
	wantID, err := id.Certificate.ID()
	require.NoError(t, err)
	assert.Equal(t, wantID, gotID)
	assert.True(t, id.PrivateKey.Public().Equals(got.PrivateKey.Public()))
}

func TestMarshalUnmarshalIdentityWithPassword(t *testing.T) {
	id, err := GenerateIdentity("node-f", nil, RSAMinKeySize)
	require.NoError(t, err)

	password := []byte("correct horse battery staple")
	data, err := MarshalIdentity(id, password)
	require.NoError(t, err)

	got, err := UnmarshalIdentity(data, password)
	require.NoError(t, err)
	assert.True(t, id.Certificate.Equals(got.Certificate))
}

func TestUnmarshalIdentityWrongPasswordFails(t *testing.T) {
	id, err := GenerateIdentity("node-g", nil, RSAMinKeySize)
	require.NoError(t, err)

	data, err := MarshalIdentity(id, []byte("right password"))
	require.NoError(t, err)

	_, err = UnmarshalIdentity(data, []byte("wrong password"))
	assert.Error(t, err)
}

func TestUnmarshalIdentityMissingPasswordFails(t *testing.T) {
	id, err := GenerateIdentity("node-h", nil, RSAMinKeySize)
	require.NoError(t, err)

	data, err := MarshalIdentity(id, []byte("a password"))
	require.NoError(t, err)

	_, err = UnmarshalIdentity(data, nil)
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestUnmarshalIdentityRejectsBadMagic(t *testing.T) {
	_, err := UnmarshalIdentity([]byte("not an identity file at all"), nil)
	assert.ErrorIs(t, err, ErrInvalidKeyFile)
}
