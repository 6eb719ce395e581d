// Package factors adds, copies and deletes the factors authorized for a tss key.
//
// Every operation is authorized by the share of an existing factor, and returns a new
// factor.TagData. Writing it back to the metadata store is left to the caller, so that
// several changes can be synced at once.
package factors

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

// Auth identifies the caller of a mutation.
type Auth struct {
	// FactorKey is the private key of an existing factor.
	FactorKey  curve.Scalar
	VerifierID string
	Tag        string
	// Signatures authorize the re-share with the custodial servers.
	Signatures []string
}

// Mutator changes factor sets.
type Mutator struct {
	Reconstructor *share.Reconstructor
	Resharer      Resharer
	// Servers is the number of custodial servers, indexed from 1.
	Servers int
	Rand    io.Reader
	Log     zerolog.Logger
}

// NewMutator returns a Mutator using crypto/rand.
func NewMutator(resharer Resharer, servers int, log zerolog.Logger) (*Mutator, error) {
	if resharer == nil {
		return nil, errors.New("factors: nil resharer")
	}
	if servers <= 0 {
		return nil, fmt.Errorf("factors: invalid number of servers %d", servers)
	}
	return &Mutator{
		Reconstructor: share.NewReconstructor(log),
		Resharer:      resharer,
		Servers:       servers,
		Rand:          rand.Reader,
		Log:           log,
	}, nil
}

func validIndex(index party.ID) bool {
	return index == 2 || index == 3
}

// inputShare recovers the share of the factor whose private key is auth.FactorKey.
func (m *Mutator) inputShare(ctx context.Context, data *factor.TagData, auth Auth) (*share.Share, error) {
	if auth.FactorKey == nil || auth.FactorKey.IsZero() {
		return nil, errors.New("factors: missing input factor key")
	}
	enc, ok := data.Factors.Encryption(auth.FactorKey.ActOnBase())
	if !ok {
		return nil, fmt.Errorf("input factor: %w", ErrFactorNotFound)
	}
	commitment, err := data.Commitment()
	if err != nil {
		return nil, err
	}
	return m.Reconstructor.Reconstruct(ctx, enc, commitment, auth.FactorKey)
}

// Add authorizes pub at index and re-shares the key among all factors.
// If pub is already present, its index is updated.
func (m *Mutator) Add(ctx context.Context, data *factor.TagData, auth Auth, pub curve.Point, index party.ID) (*factor.TagData, error) {
	if !validIndex(index) {
		return nil, ErrInvalidTSSIndex
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	input, err := m.inputShare(ctx, data, auth)
	if err != nil {
		return nil, err
	}

	pubs := clonePoints(data.Factors.Pubs)
	indexes, err := data.Factors.Indexes()
	if err != nil {
		return nil, err
	}
	if found := data.Factors.Find(pub); len(found) > 0 {
		for _, i := range found {
			indexes[i] = index
		}
	} else {
		pubs = append(pubs, pub)
		indexes = append(indexes, index)
	}

	m.Log.Info().
		Str("factor", factor.ID(pub)).
		Uint32("tss_index", uint32(index)).
		Int("factors", len(pubs)).
		Msg("adding factor")
	return m.reshare(ctx, data, auth, input, pubs, indexes)
}

// Copy authorizes pub with the input factor's share, without re-sharing.
// The input factor must hold the share at index.
func (m *Mutator) Copy(ctx context.Context, data *factor.TagData, auth Auth, pub curve.Point, index party.ID) (*factor.TagData, error) {
	if !validIndex(index) {
		return nil, ErrInvalidTSSIndex
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	input, err := m.inputShare(ctx, data, auth)
	if err != nil {
		return nil, err
	}
	if input.Index != index {
		return nil, fmt.Errorf("%w: input factor has index %d, not %d", ErrIndexMismatch, input.Index, index)
	}
	// re-registering an existing factor is allowed, at the same index
	if existing, ok := data.Factors.Encryption(pub); ok && existing.TSSIndex != index {
		return nil, fmt.Errorf("%w: factor is registered at index %d", ErrIndexMismatch, existing.TSSIndex)
	}

	enc, err := share.EncryptDirect(m.Rand, pub, input)
	if err != nil {
		return nil, err
	}

	out := data.Clone()
	if !out.Factors.Contains(pub) {
		out.Factors.Pubs = append(out.Factors.Pubs, pub.Curve().NewPoint().Set(pub))
	}
	out.Factors.Encs[factor.ID(pub)] = enc

	m.Log.Info().
		Str("factor", factor.ID(pub)).
		Uint32("tss_index", uint32(index)).
		Msg("copied factor")
	return out, out.Validate()
}

// Delete removes pub and re-shares the key among the remaining factors.
func (m *Mutator) Delete(ctx context.Context, data *factor.TagData, auth Auth, pub curve.Point) (*factor.TagData, error) {
	found := data.Factors.Find(pub)
	switch {
	case len(found) == 0:
		return nil, ErrFactorNotFound
	case len(found) > 1:
		return nil, ErrAmbiguousFactor
	case len(data.Factors.Pubs) == 1:
		return nil, ErrLastFactor
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	input, err := m.inputShare(ctx, data, auth)
	if err != nil {
		return nil, err
	}

	pubs := make([]curve.Point, 0, len(data.Factors.Pubs)-1)
	indexes := make([]party.ID, 0, len(data.Factors.Pubs)-1)
	for i, p := range data.Factors.Pubs {
		if i == found[0] {
			continue
		}
		index, err := data.Factors.Index(p)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p.Curve().NewPoint().Set(p))
		indexes = append(indexes, index)
	}

	m.Log.Info().
		Str("factor", factor.ID(pub)).
		Int("factors", len(pubs)).
		Msg("deleting factor")
	return m.reshare(ctx, data, auth, input, pubs, indexes)
}

func (m *Mutator) reshare(ctx context.Context, data *factor.TagData, auth Auth, input *share.Share, pubs []curve.Point, indexes []party.ID) (*factor.TagData, error) {
	servers, err := sample.Subset(m.Rand, party.Range(1, party.ID(m.Servers)), (m.Servers+1)/2)
	if err != nil {
		return nil, err
	}
	result, err := m.Resharer.Reshare(ctx, ReshareRequest{
		VerifierID:  auth.VerifierID,
		Tag:         auth.Tag,
		Nonce:       data.Nonce,
		Commitments: clonePoints(data.Commitments),
		Input:       input,
		Factors:     pubs,
		Indexes:     indexes,
		Servers:     servers,
		Signatures:  auth.Signatures,
	})
	if err != nil {
		return nil, fmt.Errorf("factors: re-share: %w", err)
	}

	out := &factor.TagData{
		Nonce:       result.Nonce,
		Commitments: result.Commitments,
		Factors:     &factor.Set{Pubs: pubs, Encs: result.Encs},
	}
	if err = checkReshare(data, out); err != nil {
		return nil, err
	}
	m.Log.Debug().
		Uint32("tss_nonce", out.Nonce).
		Str("servers", servers.String()).
		Msg("re-shared")
	return out, nil
}

func checkReshare(before, after *factor.TagData) error {
	if err := after.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentReshare, err)
	}
	if after.Nonce <= before.Nonce {
		return fmt.Errorf("%w: nonce did not increase", ErrInconsistentReshare)
	}
	oldPub, err := before.PublicKey()
	if err != nil {
		return err
	}
	newPub, err := after.PublicKey()
	if err != nil {
		return err
	}
	if !oldPub.Equal(newPub) {
		return fmt.Errorf("%w: tss public key changed", ErrInconsistentReshare)
	}
	return nil
}

func clonePoints(points []curve.Point) []curve.Point {
	out := make([]curve.Point, len(points))
	for i, p := range points {
		out[i] = p.Curve().NewPoint().Set(p)
	}
	return out
}
