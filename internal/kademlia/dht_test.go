package kademlia

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-secureoverlay/pkg/hash"
	"github.com/dep2p/go-secureoverlay/pkg/value"
)

func TestPutGetLocal(t *testing.T) {
	net := NewNetwork()
	d := New(net, hash.Random())

	h := hash.Of([]byte("key-1"))
	v := value.New(value.UserDataType, []byte("payload"))
	require.NoError(t, d.Put(context.Background(), h, v))

	var got []*value.Value
	err := d.Get(context.Background(), h, func(vals []*value.Value) bool {
		got = append(got, vals...)
		return true
	}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, v.Data, got[0].Data)
}

func TestGetFansOutToPeers(t *testing.T) {
	net := NewNetwork()
	a := New(net, hash.Random())
	b := New(net, hash.Random())

	h := hash.Of([]byte("shared-key"))
	v := value.New(value.UserDataType, []byte("from-a"))
	require.NoError(t, a.Put(context.Background(), h, v))

	var got []*value.Value
	err := b.Get(context.Background(), h, func(vals []*value.Value) bool {
		got = append(got, vals...)
		return true
	}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "from-a", string(got[0].Data))
}

func TestListenDeliversNewPuts(t *testing.T) {
	net := NewNetwork()
	d := New(net, hash.Random())
	h := hash.Of([]byte("listen-key"))

	delivered := make(chan *value.Value, 1)
	_, err := d.Listen(context.Background(), h, func(vals []*value.Value) bool {
		delivered <- vals[0]
		return true
	}, nil)
	require.NoError(t, err)

	v := value.New(value.UserDataType, []byte("hello"))
	require.NoError(t, d.Put(context.Background(), h, v))

	select {
	case got := <-delivered:
		assert.Equal(t, "hello", string(got.Data))
	case <-time.After(time.Second):
		t.Fatal("listener did not receive put")
	}
}

func TestPutRejectedByStorePolicy(t *testing.T) {
	net := NewNetwork()
	d := New(net, hash.Random())

	typ := value.NewType(42, "locked")
	typ.StorePolicy = func(hash.InfoHash, *value.Value, hash.InfoHash, string) bool { return false }
	d.RegisterType(typ)

	h := hash.Of([]byte("locked-key"))
	v := value.New(42, []byte("nope"))
	err := d.Put(context.Background(), h, v)
	assert.ErrorIs(t, err, ErrPolicyRejected)
}

func TestValueExpiresByClock(t *testing.T) {
	fc := clock.NewMock()
	net := NewNetwork()
	d := New(net, hash.Random(), WithClock(fc))

	typ := value.NewType(7, "short-lived")
	typ.Expiration = time.Minute
	d.RegisterType(typ)

	h := hash.Of([]byte("ttl-key"))
	require.NoError(t, d.Put(context.Background(), h, value.New(7, []byte("x"))))

	fc.Add(2 * time.Minute)

	var got []*value.Value
	err := d.Get(context.Background(), h, func(vals []*value.Value) bool {
		got = append(got, vals...)
		return true
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetPutReturnsLastLocalAnnouncement(t *testing.T) {
	net := NewNetwork()
	d := New(net, hash.Random())
	h := hash.Of([]byte("announce-key"))

	v := value.New(value.UserDataType, []byte("v1"))
	v.ID = 99
	require.NoError(t, d.Put(context.Background(), h, v))

	got, ok := d.GetPut(h, 99)
	require.True(t, ok)
	assert.Equal(t, "v1", string(got.Data))

	_, ok = d.GetPut(h, 100)
	assert.False(t, ok)
}
