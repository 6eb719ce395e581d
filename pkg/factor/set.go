package factor

import (
	"fmt"

	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

// Set is the collection of factors authorized for one tag.
type Set struct {
	Pubs []curve.Point
	// Encs is keyed by ID(pub).
	Encs map[string]*Encryption
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{Encs: map[string]*Encryption{}}
}

// Find returns the positions in s.Pubs of the points equal to pub.
func (s *Set) Find(pub curve.Point) []int {
	var found []int
	for i, p := range s.Pubs {
		if p.Equal(pub) {
			found = append(found, i)
		}
	}
	return found
}

// Contains returns true if pub is part of the set.
func (s *Set) Contains(pub curve.Point) bool {
	return len(s.Find(pub)) > 0
}

// Encryption returns the encrypted share material of pub.
func (s *Set) Encryption(pub curve.Point) (*Encryption, bool) {
	enc, ok := s.Encs[ID(pub)]
	return enc, ok
}

// Index returns the tss index of pub.
func (s *Set) Index(pub curve.Point) (party.ID, error) {
	enc, ok := s.Encryption(pub)
	if !ok {
		return 0, fmt.Errorf("factor: no encryption for factor %s", ID(pub))
	}
	return enc.TSSIndex, nil
}

// Indexes returns the tss index of every factor, in the order of s.Pubs.
func (s *Set) Indexes() ([]party.ID, error) {
	indexes := make([]party.ID, len(s.Pubs))
	for i, pub := range s.Pubs {
		index, err := s.Index(pub)
		if err != nil {
			return nil, err
		}
		indexes[i] = index
	}
	return indexes, nil
}

// Validate checks that every factor is unique and has an encryption, and that
// there are no dangling encryptions.
func (s *Set) Validate() error {
	seen := make(map[string]struct{}, len(s.Pubs))
	for _, pub := range s.Pubs {
		if pub == nil || pub.IsIdentity() {
			return fmt.Errorf("factor: invalid factor pub")
		}
		id := ID(pub)
		if _, ok := seen[id]; ok {
			return fmt.Errorf("factor: duplicate factor %s", id)
		}
		seen[id] = struct{}{}
		enc, ok := s.Encs[id]
		if !ok {
			return fmt.Errorf("factor: no encryption for factor %s", id)
		}
		if err := enc.Validate(); err != nil {
			return fmt.Errorf("factor %s: %w", id, err)
		}
	}
	if len(s.Encs) != len(s.Pubs) {
		return fmt.Errorf("factor: %d encryptions for %d factors", len(s.Encs), len(s.Pubs))
	}
	return nil
}

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	out := &Set{
		Pubs: make([]curve.Point, len(s.Pubs)),
		Encs: make(map[string]*Encryption, len(s.Encs)),
	}
	for i, pub := range s.Pubs {
		out.Pubs[i] = pub.Curve().NewPoint().Set(pub)
	}
	for id, enc := range s.Encs {
		out.Encs[id] = enc.Clone()
	}
	return out
}
