package curve

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomScalar(t *testing.T) Scalar {
	buf := make([]byte, 32)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	s, err := ScalarFromBytes(buf)
	require.NoError(t, err)
	return s
}

func TestScalarHexIsFixedWidth(t *testing.T) {
	group := Secp256k1{}
	s := FromUint32(group, 0xED)
	str := ScalarHex(s)
	assert.Len(t, str, 64)
	assert.Equal(t, "00000000000000000000000000000000000000000000000000000000000000ed", str)

	parsed, err := ScalarFromHex("ed")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(s))
}

func TestScalarReduction(t *testing.T) {
	group := Secp256k1{}
	n := group.Order().Nat()
	nPlusOne := new(saferith.Nat).Add(n, new(saferith.Nat).SetUint64(1), -1)
	s := group.NewScalar().SetNat(nPlusOne)
	assert.True(t, s.Equal(FromUint32(group, 1)))

	var raw [32]byte
	copy(raw[:], n.Bytes())
	var out Secp256k1Scalar
	assert.Error(t, out.UnmarshalBinary(raw[:]), "encoding of n must be rejected")
}

func TestScalarArithmetic(t *testing.T) {
	group := Secp256k1{}
	a := randomScalar(t)
	b := randomScalar(t)
	sum := group.NewScalar().Set(a).Add(b)
	assert.True(t, sum.Sub(b).Equal(a))

	inv := group.NewScalar().Set(a).Invert()
	assert.True(t, inv.Mul(a).Equal(FromUint32(group, 1)))
}

func TestPointIterativeAdditionMatchesScalarMult(t *testing.T) {
	group := Secp256k1{}
	A := randomScalar(t).ActOnBase()
	acc := group.NewPoint()
	for i := 0; i < 7; i++ {
		acc = acc.Add(A)
	}
	assert.True(t, acc.Equal(FromUint32(group, 7).Act(A)))
}

func TestPointEncodings(t *testing.T) {
	P := randomScalar(t).ActOnBase()

	data, err := P.MarshalBinary()
	require.NoError(t, err)
	Q := Secp256k1{}.NewPoint()
	require.NoError(t, Q.UnmarshalBinary(data))
	assert.True(t, P.Equal(Q))

	R, err := PointFromUncompressed(Uncompressed(P))
	require.NoError(t, err)
	assert.True(t, P.Equal(R))

	js, err := json.Marshal(P)
	require.NoError(t, err)
	S := new(Secp256k1Point)
	require.NoError(t, json.Unmarshal(js, S))
	assert.True(t, P.Equal(S))
	assert.Equal(t, XHex(P), XHex(S))
}

func TestPointCBOR(t *testing.T) {
	type wrapper struct {
		P JSONPoint
	}
	P := randomScalar(t).ActOnBase()
	data, err := cbor.Marshal(wrapper{P: NewJSONPoint(P)})
	require.NoError(t, err)
	var w wrapper
	require.NoError(t, cbor.Unmarshal(data, &w))
	Q, err := w.P.Point()
	require.NoError(t, err)
	assert.True(t, P.Equal(Q))
}

func TestPointNotOnCurve(t *testing.T) {
	x := make([]byte, 32)
	y := make([]byte, 32)
	x[31] = 1
	y[31] = 1
	_, err := PointFromCoordinates(x, y)
	assert.Error(t, err)
}

func TestIdentity(t *testing.T) {
	group := Secp256k1{}
	assert.True(t, group.NewPoint().IsIdentity())
	P := group.NewBasePoint()
	assert.False(t, P.IsIdentity())
	assert.True(t, P.Sub(P).IsIdentity())
	assert.True(t, FromUint32(group, 1).ActOnBase().Equal(P))
}
