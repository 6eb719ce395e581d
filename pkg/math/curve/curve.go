// Package curve implements the scalar and point arithmetic of secp256k1 behind the Curve,
// Scalar and Point interfaces.
package curve

import (
	"encoding"

	"github.com/cronokirby/saferith"
)

// Curve represents the prime order group the scheme operates over.
type Curve interface {
	NewPoint() Point
	NewBasePoint() Point
	NewScalar() Scalar
	SafeScalarBytes() int
	Order() *saferith.Modulus
	Name() string
}

// Scalar represents an element of ℤₙ, where n is the order of the group.
//
// Arithmetic methods modify the receiver and return it.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Invert() Scalar
	Negate() Scalar
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	Act(Point) Point
	ActOnBase() Point
}

// Point represents an element of the group.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Set(Point) Point
	Negate() Point
	Equal(Point) bool
	IsIdentity() bool
}

// FromUint32 returns x as a Scalar of the group.
func FromUint32(group Curve, x uint32) Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetUint64(uint64(x)))
}
