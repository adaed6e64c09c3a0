package certstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secureoverlay/internal/kademlia"
	"github.com/dep2p/go-secureoverlay/pkg/crypto"
	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

func genIdentity(t *testing.T, name string) *crypto.Identity {
	t.Helper()
	id, err := crypto.GenerateIdentity(name, nil, crypto.RSAMinKeySize)
	require.NoError(t, err)
	return id
}

func TestGetCertificateSelf(t *testing.T) {
	id := genIdentity(t, "self")
	selfID, err := id.Certificate.ID()
	require.NoError(t, err)

	s := New(selfID, id.Certificate)
	cert, ok := s.GetCertificate(selfID)
	require.True(t, ok)
	assert.True(t, cert.Equals(id.Certificate))
}

func TestRegisterCertificateBytesRejectsMismatch(t *testing.T) {
	a := genIdentity(t, "a")
	b := genIdentity(t, "b")
	bID, err := b.Certificate.ID()
	require.NoError(t, err)

	s := New(hash.Random(), nil)
	_, err = s.RegisterCertificateBytes(bID, a.Certificate.DER())
	assert.ErrorIs(t, err, ErrCertificateIDMismatch)
}

func TestFindCertificateCacheHit(t *testing.T) {
	a := genIdentity(t, "a")
	aID, err := a.Certificate.ID()
	require.NoError(t, err)

	s := New(hash.Random(), nil)
	_, err = s.RegisterCertificate(a.Certificate)
	require.NoError(t, err)

	calls := 0
	err = s.FindCertificate(context.Background(), nil, aID, func(cert *crypto.Certificate) {
		calls++
		require.NotNil(t, cert)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFindCertificateLocalHook(t *testing.T) {
	a := genIdentity(t, "a")
	aID, err := a.Certificate.ID()
	require.NoError(t, err)

	s := New(hash.Random(), nil)
	s.SetLocalCertificateStore(func(hash.InfoHash) []*crypto.Certificate {
		return []*crypto.Certificate{a.Certificate}
	})

	var got *crypto.Certificate
	err = s.FindCertificate(context.Background(), nil, aID, func(cert *crypto.Certificate) {
		got = cert
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equals(a.Certificate))
}

func TestFindCertificateViaDHTAtMostOnce(t *testing.T) {
	net := kademlia.NewNetwork()
	a := genIdentity(t, "a")
	aID, err := a.Certificate.ID()
	require.NoError(t, err)

	publisher := kademlia.New(net, aID)
	publisher.RegisterInsecureType(value.NewType(value.CertificateType, "certificate"))

	v := value.New(value.CertificateType, a.Certificate.DER())
	v.ID = 1
	require.NoError(t, publisher.Put(context.Background(), aID, v))

	resolver := kademlia.New(net, hash.Random())
	s := New(resolver.ID(), nil)

	calls := 0
	err = s.FindCertificate(context.Background(), resolver, aID, func(cert *crypto.Certificate) {
		calls++
		require.NotNil(t, cert)
		gotID, err := cert.ID()
		require.NoError(t, err)
		assert.Equal(t, aID, gotID)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFindCertificateUnresolved(t *testing.T) {
	net := kademlia.NewNetwork()
	resolver := kademlia.New(net, hash.Random())
	s := New(resolver.ID(), nil)

	calls := 0
	err := s.FindCertificate(context.Background(), resolver, hash.Random(), func(cert *crypto.Certificate) {
		calls++
		assert.Nil(t, cert)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
