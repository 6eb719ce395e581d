package curve

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ScalarBytes returns the fixed-width 32-byte big-endian encoding of s.
func ScalarBytes(s Scalar) []byte {
	data, err := s.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("curve.ScalarBytes: %v", err))
	}
	return data
}

// ScalarHex returns s as 64 lower case hex characters, left-padded with zeros.
func ScalarHex(s Scalar) string {
	return hex.EncodeToString(ScalarBytes(s))
}

// ScalarFromBytes interprets data as a big-endian integer of at most 32 bytes,
// reduced modulo the order of secp256k1.
func ScalarFromBytes(data []byte) (Scalar, error) {
	if len(data) > 32 {
		return nil, fmt.Errorf("curve.ScalarFromBytes: %d bytes is too long", len(data))
	}
	out := new(Secp256k1Scalar)
	out.value.SetByteSlice(data)
	return out, nil
}

// ScalarFromHex parses a hex string of at most 64 characters. Shorter strings
// are treated as left-padded.
func ScalarFromHex(str string) (Scalar, error) {
	str = strings.TrimPrefix(str, "0x")
	if len(str)%2 == 1 {
		str = "0" + str
	}
	data, err := hex.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("curve.ScalarFromHex: %w", err)
	}
	return ScalarFromBytes(data)
}

// PointFromCoordinates builds a point from affine coordinates, making sure it lies on secp256k1.
func PointFromCoordinates(x, y []byte) (Point, error) {
	if len(x) > 32 || len(y) > 32 {
		return nil, errors.New("curve.PointFromCoordinates: coordinate is too long")
	}
	var fx, fy secp256k1.FieldVal
	if fx.SetByteSlice(x) {
		return nil, errors.New("curve.PointFromCoordinates: x >= field prime")
	}
	if fy.SetByteSlice(y) {
		return nil, errors.New("curve.PointFromCoordinates: y >= field prime")
	}
	pub := secp256k1.NewPublicKey(&fx, &fy)
	if !pub.IsOnCurve() {
		return nil, errors.New("curve.PointFromCoordinates: point is not on the secp256k1 curve")
	}
	out := new(Secp256k1Point)
	pub.AsJacobian(&out.value)
	return out, nil
}

// PointFromHexCoordinates is PointFromCoordinates for hex strings.
func PointFromHexCoordinates(x, y string) (Point, error) {
	xs, err := ScalarLikeHex(x)
	if err != nil {
		return nil, err
	}
	ys, err := ScalarLikeHex(y)
	if err != nil {
		return nil, err
	}
	return PointFromCoordinates(xs, ys)
}

// ScalarLikeHex decodes a hex string of at most 64 characters into 32 bytes.
func ScalarLikeHex(str string) ([]byte, error) {
	str = strings.TrimPrefix(str, "0x")
	if len(str) > 64 {
		return nil, fmt.Errorf("curve: hex value of %d characters is too long", len(str))
	}
	str = strings.Repeat("0", 64-len(str)) + str
	return hex.DecodeString(str)
}

// Coordinates returns the affine coordinates of p as 32 byte big-endian values.
func Coordinates(p Point) (x, y [32]byte) {
	point := secp256k1CastPoint(p)
	point.value.ToAffine()
	point.value.X.PutBytes(&x)
	point.value.Y.PutBytes(&y)
	return x, y
}

// XHex returns the x coordinate of p as 64 hex characters.
func XHex(p Point) string {
	x, _ := Coordinates(p)
	return hex.EncodeToString(x[:])
}

// YHex returns the y coordinate of p as 64 hex characters.
func YHex(p Point) string {
	_, y := Coordinates(p)
	return hex.EncodeToString(y[:])
}

// Uncompressed returns 0x04 ∥ x ∥ y.
func Uncompressed(p Point) []byte {
	x, y := Coordinates(p)
	out := make([]byte, 0, 65)
	out = append(out, secp256k1.PubKeyFormatUncompressed)
	out = append(out, x[:]...)
	return append(out, y[:]...)
}

// PointFromUncompressed parses 0x04 ∥ x ∥ y.
func PointFromUncompressed(data []byte) (Point, error) {
	if len(data) != 65 || data[0] != secp256k1.PubKeyFormatUncompressed {
		return nil, errors.New("curve.PointFromUncompressed: invalid encoding")
	}
	return PointFromCoordinates(data[1:33], data[33:])
}

// PublicKey converts p to a decred public key.
func PublicKey(p Point) *secp256k1.PublicKey {
	point := secp256k1CastPoint(p)
	var affine secp256k1.JacobianPoint
	affine.Set(&point.value)
	affine.ToAffine()
	return secp256k1.NewPublicKey(&affine.X, &affine.Y)
}

// PrivateKey converts s to a decred private key.
func PrivateKey(s Scalar) *secp256k1.PrivateKey {
	scalar := secp256k1CastScalar(s)
	return secp256k1.NewPrivateKey(&scalar.value)
}

// JSONPoint is the {"x", "y"} hex representation of a point used on the wire.
type JSONPoint struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// NewJSONPoint returns the wire representation of p.
func NewJSONPoint(p Point) JSONPoint {
	return JSONPoint{X: XHex(p), Y: YHex(p)}
}

// Point parses the wire representation.
func (j JSONPoint) Point() (Point, error) {
	return PointFromHexCoordinates(j.X, j.Y)
}

// MarshalJSON implements json.Marshaler.
func (p *Secp256k1Point) MarshalJSON() ([]byte, error) {
	if p.IsIdentity() {
		return nil, errors.New("secp256k1Point.MarshalJSON: tries to marshal identity")
	}
	return json.Marshal(NewJSONPoint(p))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Secp256k1Point) UnmarshalJSON(data []byte) error {
	var j JSONPoint
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("secp256k1Point: failed to unmarshal coordinates: %w", err)
	}
	point, err := j.Point()
	if err != nil {
		return err
	}
	p.Set(point)
	return nil
}

// String implements fmt.Stringer.
func (p *Secp256k1Point) String() string {
	if p == nil {
		return "nil"
	}
	if p.IsIdentity() {
		return "Point{Identity}"
	}
	return fmt.Sprintf("Point{X: %s, Y: %s}", XHex(p), YHex(p))
}
