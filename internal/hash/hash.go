package hash

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// DigestLengthBytes is the length of the output of Sum.
const DigestLengthBytes = 32

// Hash is the hash function we use for session nonces, metadata digests, etc.
//
// Internally, this is a wrapper around blake3, but any hash function with
// an easily extendable output would work as well.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash whose state is initialized with the given domain.
func New(domain string) *Hash {
	hash := &Hash{h: blake3.New()}
	_ = writeWithDomain(hash.h, domainBytes{domain: "Domain", data: []byte(domain)})
	return hash
}

// Digest returns a reader for the current output of the function.
//
// This finalizes the current state of the hash, and returns what's
// essentially a stream of random bytes.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a slice of length DigestLengthBytes resulting from the current hash state.
// If a different length is required, use io.ReadFull(hash.Digest(), out) instead.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	if _, err := io.ReadFull(hash.Digest(), out); err != nil {
		panic(fmt.Sprintf("hash.ReadBytes: internal hash failure: %v", err))
	}
	return out
}

// WriteAny takes many different data types and writes them to the hash state.
//
// Currently supported types:
//
//   - []byte
//   - string
//   - uint32, uint64, int64
//   - encoding.BinaryMarshaler (curve.Scalar, curve.Point)
//   - hash.WriterToWithDomain
//
// This function will apply its own domain separation for all but the last type.
// The last type already suggests which domain to use, and this function respects it.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		var err error
		switch t := d.(type) {
		case []byte:
			err = writeWithDomain(hash.h, domainBytes{domain: "[]byte", data: t})
		case string:
			err = writeWithDomain(hash.h, domainBytes{domain: "string", data: []byte(t)})
		case uint32:
			err = writeWithDomain(hash.h, domainBytes{domain: "uint32", data: binary.BigEndian.AppendUint32(nil, t)})
		case uint64:
			err = writeWithDomain(hash.h, domainBytes{domain: "uint64", data: binary.BigEndian.AppendUint64(nil, t)})
		case int64:
			err = writeWithDomain(hash.h, domainBytes{domain: "int64", data: binary.BigEndian.AppendUint64(nil, uint64(t))})
		case WriterToWithDomain:
			err = writeWithDomain(hash.h, t)
		case encoding.BinaryMarshaler:
			var b []byte
			if b, err = t.MarshalBinary(); err != nil {
				return fmt.Errorf("hash.Hash: marshal %T: %w", t, err)
			}
			err = writeWithDomain(hash.h, domainBytes{domain: fmt.Sprintf("%T", t), data: b})
		default:
			panic(fmt.Sprintf("hash.Hash: unsupported type %T", d))
		}
		if err != nil {
			return fmt.Errorf("hash.Hash: write %T: %w", d, err)
		}
	}
	return nil
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}
