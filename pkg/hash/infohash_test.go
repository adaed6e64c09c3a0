package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesRoundtrip(t *testing.T) {
	h := Random()
	h2, err := FromBytes(h.Bytes())
	require.NoError(t, err)
	assert.Equal(t, h, h2)
}

func TestFromBytesInvalidLength(t *testing.T) {
	_, err := FromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestFromHexRoundtrip(t *testing.T) {
	h := Of([]byte("hello"))
	h2, err := FromHex(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, h2)
}

func TestOfIsDeterministic(t *testing.T) {
	a := Of([]byte("same input"))
	b := Of([]byte("same input"))
	assert.Equal(t, a, b)
	c := Of([]byte("different input"))
	assert.NotEqual(t, a, c)
}

func TestSetBitAndBit(t *testing.T) {
	h := Zero
	h = h.SetBit(0, 1)
	assert.Equal(t, 1, h.Bit(0))
	assert.Equal(t, 0, h.Bit(1))

	h = h.SetBit(159, 1)
	assert.Equal(t, 1, h.Bit(159))

	h = h.SetBit(0, 0)
	assert.Equal(t, 0, h.Bit(0))
}

func TestXorSelfIsZero(t *testing.T) {
	h := Random()
	assert.Equal(t, Zero, Xor(h, h))
}

func TestCommonBitsIdentical(t *testing.T) {
	h := Random()
	assert.Equal(t, Size*8, CommonBits(h, h))
}

func TestCommonBitsDiffersAtFirstBit(t *testing.T) {
	a := Zero
	b := Zero.SetBit(0, 1)
	assert.Equal(t, 0, CommonBits(a, b))
}

func TestLessIsLexicographic(t *testing.T) {
	a := Zero
	b := Zero.SetBit(159, 1)
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, Random().IsZero())
}
