package share

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

const (
	// ServerVirtualIndex is the point at which the servers' value is placed when
	// combining it with the user's value in the hierarchical topology.
	ServerVirtualIndex party.ID = 1
	// UserVirtualIndex is the point of the user's value in the hierarchical topology.
	UserVirtualIndex party.ID = 99
)

var (
	// ErrCommitmentMismatch is returned when a direct share does not match the public commitments.
	ErrCommitmentMismatch = errors.New("share: share does not match tss commitments")
	// ErrNoValidShareCombination is returned when no subset of server decryptions yields a valid share.
	ErrNoValidShareCombination = errors.New("share: no valid combination of server decryptions")
)

// Share is a party's share of the tss key, at a given index.
type Share struct {
	Index party.ID
	Value curve.Scalar
}

// Public returns Value•G.
func (s *Share) Public() curve.Point {
	return s.Value.ActOnBase()
}

// String does not reveal the share value.
func (s *Share) String() string {
	return fmt.Sprintf("Share{Index: %d}", s.Index)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler, logging only the index.
func (s *Share) MarshalZerologObject(e *zerolog.Event) {
	e.Uint32("tss_index", uint32(s.Index))
}

// NoValidShareCombinationError reports which server decryptions were tried.
type NoValidShareCombinationError struct {
	// Tried is the number of combinations that were interpolated and checked.
	Tried     int
	Threshold int
	Servers   int
	// Undecryptable lists the servers whose ciphertext was missing or failed to decrypt.
	Undecryptable []party.ID
}

func (e *NoValidShareCombinationError) Error() string {
	return fmt.Sprintf("%v: tried %d combinations of %d out of %d servers, undecryptable servers %v",
		ErrNoValidShareCombination, e.Tried, e.Threshold, e.Servers, party.IDSlice(e.Undecryptable))
}

func (e *NoValidShareCombinationError) Is(target error) bool {
	return target == ErrNoValidShareCombination
}
