package party

import (
	"encoding/binary"
	"strconv"

	"github.com/taurusgroup/tss-factors/pkg/math/curve"
)

// ID is the evaluation point of a party on a sharing polynomial.
// Zero is reserved for the secret itself and is never a valid ID.
type ID uint32

// Scalar returns the corresponding curve.Scalar.
func (id ID) Scalar(group curve.Curve) curve.Scalar {
	return curve.FromUint32(group, uint32(id))
}

// Bytes returns the 4 byte big endian encoding of id.
func (id ID) Bytes() []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(id))
	return b
}

// String returns a base 10 representation of ID.
func (id ID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// FromString reads a base 10 string and attempts to generate an ID from it.
func FromString(str string) (ID, error) {
	p, err := strconv.ParseUint(str, 10, 32)
	if err != nil {
		return 0, err
	}
	return ID(p), nil
}
