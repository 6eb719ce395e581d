package factor

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/tss-factors/pkg/ecies"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

// Type describes how a factor's share was encrypted.
type Type string

const (
	// TypeDirect means UserEnc holds the share itself.
	TypeDirect Type = "direct"
	// TypeHierarchical means the share is split between UserEnc and a threshold
	// sharing among the custodial servers in ServerEncs.
	TypeHierarchical Type = "hierarchical"
)

// ID returns the identifier of a factor, the 64 hex characters of its x coordinate.
func ID(pub curve.Point) string {
	return curve.XHex(pub)
}

// Encryption is the encrypted share material of one factor.
type Encryption struct {
	TSSIndex party.ID          `json:"tssIndex" cbor:"1,keyasint"`
	Type     Type              `json:"type" cbor:"2,keyasint"`
	UserEnc  *ecies.Ciphertext `json:"userEnc" cbor:"3,keyasint"`
	// ServerEncs has one entry per custodial server, in server order.
	// A nil entry denotes a server that did not produce a ciphertext.
	ServerEncs []*ecies.Ciphertext `json:"serverEncs" cbor:"4,keyasint"`
}

// Validate checks that the encryption is well formed.
func (e *Encryption) Validate() error {
	if e == nil {
		return errors.New("factor: nil encryption")
	}
	if e.TSSIndex == 0 {
		return errors.New("factor: tss index 0 is reserved")
	}
	if e.UserEnc == nil {
		return errors.New("factor: missing user ciphertext")
	}
	switch e.Type {
	case TypeDirect:
	case TypeHierarchical:
		if len(e.ServerEncs) == 0 {
			return errors.New("factor: hierarchical encryption without server ciphertexts")
		}
	default:
		return fmt.Errorf("factor: unknown encryption type %q", e.Type)
	}
	return nil
}

// Clone returns a copy of e. Ciphertexts are immutable and are shared.
func (e *Encryption) Clone() *Encryption {
	if e == nil {
		return nil
	}
	out := *e
	out.ServerEncs = append([]*ecies.Ciphertext(nil), e.ServerEncs...)
	return &out
}
