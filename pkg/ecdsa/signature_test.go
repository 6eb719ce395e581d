package ecdsa

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
)

func TestKeccak256(t *testing.T) {
	// Keccak-256 of the empty string, as used by Ethereum.
	assert.Equal(t,
		"c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		hex.EncodeToString(Keccak256(nil)))
}

func TestSignature_Verify(t *testing.T) {
	group := curve.Secp256k1{}

	m := Keccak256([]byte("hello"))
	x := sample.Scalar(rand.Reader, group)
	X := x.ActOnBase()
	sig, err := Sign(x, m)
	require.NoError(t, err)
	assert.True(t, sig.Verify(X, m))

	recovered, err := sig.RecoverPublicKey(m)
	require.NoError(t, err)
	assert.True(t, recovered.Equal(X))

	other := sample.Scalar(rand.Reader, group).ActOnBase()
	assert.False(t, sig.Verify(other, m))
	assert.False(t, sig.Verify(X, Keccak256([]byte("world"))))

	flipped := *sig
	flipped.V ^= 1
	assert.False(t, flipped.Verify(X, m))
}

func TestSignature_Hex(t *testing.T) {
	group := curve.Secp256k1{}
	x := sample.Scalar(rand.Reader, group)
	m := Keccak256([]byte("padding"))
	sig, err := Sign(x, m)
	require.NoError(t, err)

	assert.Len(t, sig.RHex(), 64)
	assert.Len(t, sig.SHex(), 64)
	assert.Len(t, sig.Bytes(), 65)

	parsed, err := FromHex(sig.RHex(), sig.SHex(), int(sig.V))
	require.NoError(t, err)
	assert.True(t, parsed.Verify(x.ActOnBase(), m))

	// unpadded values are accepted
	short, err := FromHex("01", "0x02", 1)
	require.NoError(t, err)
	assert.Equal(t, "0000000000000000000000000000000000000000000000000000000000000001", short.RHex())

	_, err = FromHex("00", "01", 0)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	_, err = FromHex("01", "01", 2)
	assert.Error(t, err)
}

func TestSign_InvalidHash(t *testing.T) {
	group := curve.Secp256k1{}
	_, err := Sign(sample.Scalar(rand.Reader, group), []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidHash)
}
