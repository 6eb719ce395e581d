package localnet

import (
	"context"
	"errors"
	"fmt"

	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
	"github.com/taurusgroup/tss-factors/protocols/factors"
)

// Reshare replaces the sharing of a key with a fresh one, and encrypts the new shares
// to every requested factor. The tss key does not change, the nonce is incremented.
func (n *Network) Reshare(ctx context.Context, req factors.ReshareRequest) (*factors.ReshareResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Signatures) == 0 {
		return nil, ErrUnauthorized
	}
	if req.Input == nil || req.Input.Value == nil {
		return nil, errors.New("localnet: missing input share")
	}
	if len(req.Commitments) == 0 {
		return nil, errors.New("localnet: missing commitments")
	}
	if len(req.Factors) != len(req.Indexes) {
		return nil, fmt.Errorf("localnet: %d factors but %d indexes", len(req.Factors), len(req.Indexes))
	}

	serverValue, err := n.serverValue(req.VerifierID, req.Tag, req.Nonce, req.Servers)
	if err != nil {
		return nil, err
	}
	domain := []party.ID{share.ServerVirtualIndex, req.Input.Index}
	lServer, err := polynomial.LagrangeAt(n.Group, domain, share.ServerVirtualIndex, 0)
	if err != nil {
		return nil, err
	}
	lUser, err := polynomial.LagrangeAt(n.Group, domain, req.Input.Index, 0)
	if err != nil {
		return nil, err
	}
	x := lServer.Mul(serverValue).Add(lUser.Mul(req.Input.Value))
	if !x.ActOnBase().Equal(req.Commitments[0]) {
		return nil, errors.New("localnet: input share and server shares do not match the tss key")
	}

	nonce := req.Nonce + 1
	f := n.sharing(req.VerifierID, req.Tag, nonce, x)
	encs := make(map[string]*factor.Encryption, len(req.Factors))
	for i, pub := range req.Factors {
		enc, err := n.encrypt(f, pub, req.Indexes[i])
		if err != nil {
			return nil, err
		}
		encs[factor.ID(pub)] = enc
	}

	n.Log.Info().
		Str("tag", req.Tag).
		Uint32("tss_nonce", nonce).
		Int("factors", len(req.Factors)).
		Stringer("servers", party.IDSlice(req.Servers)).
		Msg("re-shared key")
	return &factors.ReshareResult{
		Nonce:       nonce,
		Commitments: polynomial.NewPolynomialExponent(f).Coefficients(),
		Encs:        encs,
	}, nil
}

var _ factors.Resharer = (*Network)(nil)

