package ecdsa

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"golang.org/x/crypto/sha3"
)

// HashLength is the length of the digests that are signed.
const HashLength = 32

var (
	ErrInvalidHash      = errors.New("ecdsa: message hash must be 32 bytes")
	ErrInvalidSignature = errors.New("ecdsa: invalid signature")
)

// Signature is an ECDSA signature over secp256k1, with its recovery parameter.
type Signature struct {
	R curve.Scalar
	S curve.Scalar
	// V is the recovery parameter, 0 or 1.
	V byte
}

// Keccak256 returns the legacy Keccak-256 digest of data.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Sign produces a recoverable signature of hash with the private key x.
func Sign(x curve.Scalar, hash []byte) (*Signature, error) {
	if len(hash) != HashLength {
		return nil, ErrInvalidHash
	}
	priv := curve.PrivateKey(x)
	defer priv.Zero()
	return FromCompact(dcrecdsa.SignCompact(priv, hash, false))
}

// FromCompact parses a 65 byte compact signature [27 + v] ∥ r ∥ s.
func FromCompact(compact []byte) (*Signature, error) {
	if len(compact) != 65 {
		return nil, fmt.Errorf("ecdsa: compact signature has length %d", len(compact))
	}
	recovery := compact[0] - 27
	// compressed key flag
	recovery &^= 4
	if recovery > 1 {
		return nil, fmt.Errorf("ecdsa: invalid recovery code %d", compact[0])
	}
	return fromRS(compact[1:33], compact[33:65], recovery)
}

// FromHex parses r and s given as hex strings of at most 64 characters.
func FromHex(r, s string, v int) (*Signature, error) {
	if v < 0 || v > 1 {
		return nil, fmt.Errorf("ecdsa: invalid recovery parameter %d", v)
	}
	rBytes, err := decodePadded(r)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: r: %w", err)
	}
	sBytes, err := decodePadded(s)
	if err != nil {
		return nil, fmt.Errorf("ecdsa: s: %w", err)
	}
	return fromRS(rBytes, sBytes, byte(v))
}

func fromRS(r, s []byte, v byte) (*Signature, error) {
	group := curve.Secp256k1{}
	rs, sc := group.NewScalar(), group.NewScalar()
	if err := rs.UnmarshalBinary(r); err != nil {
		return nil, fmt.Errorf("ecdsa: r: %w", err)
	}
	if err := sc.UnmarshalBinary(s); err != nil {
		return nil, fmt.Errorf("ecdsa: s: %w", err)
	}
	if rs.IsZero() || sc.IsZero() {
		return nil, ErrInvalidSignature
	}
	return &Signature{R: rs, S: sc, V: v}, nil
}

// decodePadded decodes a hex string and left pads it to 32 bytes.
func decodePadded(str string) ([]byte, error) {
	str = strings.TrimPrefix(str, "0x")
	if len(str) > 64 {
		return nil, fmt.Errorf("%d hex characters is too long", len(str))
	}
	return hex.DecodeString(strings.Repeat("0", 64-len(str)) + str)
}

// RHex returns r as 64 hex characters.
func (sig *Signature) RHex() string {
	return curve.ScalarHex(sig.R)
}

// SHex returns s as 64 hex characters.
func (sig *Signature) SHex() string {
	return curve.ScalarHex(sig.S)
}

// Bytes returns r ∥ s ∥ v, the 65 byte format used by Ethereum.
func (sig *Signature) Bytes() []byte {
	out := make([]byte, 0, 65)
	out = append(out, curve.ScalarBytes(sig.R)...)
	out = append(out, curve.ScalarBytes(sig.S)...)
	return append(out, sig.V)
}

// RecoverPublicKey returns the public key that produced sig over hash.
func (sig *Signature) RecoverPublicKey(hash []byte) (curve.Point, error) {
	if len(hash) != HashLength {
		return nil, ErrInvalidHash
	}
	pub, err := crypto.SigToPub(hash, sig.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return curve.PointFromUncompressed(crypto.FromECDSAPub(pub))
}

// Verify checks that sig is a valid signature of hash for the public key X,
// and that the recovery parameter designates X.
func (sig *Signature) Verify(X curve.Point, hash []byte) bool {
	if len(hash) != HashLength || X == nil || X.IsIdentity() {
		return false
	}
	if !crypto.VerifySignature(curve.Uncompressed(X), hash, sig.Bytes()[:64]) {
		return false
	}
	recovered, err := sig.RecoverPublicKey(hash)
	if err != nil {
		return false
	}
	return recovered.Equal(X)
}
