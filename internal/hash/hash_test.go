package hash

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
)

func TestHash_WriteAny(t *testing.T) {
	group := curve.Secp256k1{}
	testFunc := func(vs ...interface{}) error {
		h := New("test")
		for _, v := range vs {
			if err := h.WriteAny(v); err != nil {
				return err
			}
		}
		return nil
	}

	assert.NoError(t, testFunc(uint32(35), "tag"))
	assert.NoError(t, testFunc(sample.Scalar(rand.Reader, group).ActOnBase()))
	assert.NoError(t, testFunc([]byte{1, 4, 6}))
	assert.NoError(t, testFunc(sample.Scalar(rand.Reader, group)))
	// the identity cannot be marshalled
	assert.Error(t, testFunc(group.NewPoint()))
	assert.Panics(t, func() { _ = testFunc(3.5) })
}

func TestHash_DomainSeparation(t *testing.T) {
	h1 := New("a")
	h2 := New("b")
	require.NoError(t, h1.WriteAny([]byte("x")))
	require.NoError(t, h2.WriteAny([]byte("x")))
	assert.NotEqual(t, h1.Sum(), h2.Sum())

	// []byte and string are separated
	h3 := New("a")
	require.NoError(t, h3.WriteAny("x"))
	assert.NotEqual(t, h1.Clone().Sum(), h3.Sum())

	assert.Len(t, h1.Sum(), DigestLengthBytes)
	assert.Equal(t, h1.Sum(), h1.Sum())
}

func TestHash_WriteAnyMarshaler(t *testing.T) {
	group := curve.Secp256k1{}
	x := sample.Scalar(rand.Reader, group)
	data, err := x.MarshalBinary()
	require.NoError(t, err)

	h1 := New("a")
	require.NoError(t, h1.WriteAny(x))
	h2 := New("a")
	require.NoError(t, h2.WriteAny(x))
	assert.Equal(t, h1.Sum(), h2.Sum())

	// the type name separates a scalar from its raw bytes
	h3 := New("a")
	require.NoError(t, h3.WriteAny(data))
	assert.NotEqual(t, h1.Sum(), h3.Sum())
}
