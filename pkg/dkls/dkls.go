// Package dkls computes the coefficients that turn the shares held by the client and the
// participating servers into the inputs expected by the DKLS multiparty signing engine.
//
// The engine numbers parties by position: the sorted participating servers take positions
// 0, …, |S|-1, and the client takes position |S|. It combines inputs as if party p held a
// Shamir share at index p+1, so every input is divided by that party's Lagrange coefficient
// over {1, …, N}, and multiplied by the coefficient that makes the sum equal the tss key:
//
//	client:    ℓᵤ(0) over {1, u}
//	server s:  ℓ₁(0) over {1, u} ⋅ ℓₛ(0) over S
package dkls

import (
	"errors"
	"fmt"

	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

var ErrUnknownServer = errors.New("dkls: server is not participating")

func validateServers(servers []party.ID) error {
	if len(servers) == 0 || !party.IDSlice(servers).Valid() {
		return fmt.Errorf("%w: participating servers %v must be sorted and distinct", polynomial.ErrInvalidIndexSet, party.IDSlice(servers))
	}
	return nil
}

// Parties returns the number of parties in the signing session, servers and client.
func Parties(servers []party.ID) int {
	return len(servers) + 1
}

// ClientPosition is the position of the client among the engine's parties.
func ClientPosition(servers []party.ID) int {
	return len(servers)
}

// Normalization returns the Lagrange coefficient at 0 of position+1 over {1, …, parties},
// the weight the engine gives to the input of the party at position.
func Normalization(group curve.Curve, parties, position int) (curve.Scalar, error) {
	return polynomial.LagrangeAt(group, party.Range(1, party.ID(parties)), party.ID(position+1), 0)
}

// ClientCoefficient returns the coefficient by which the client multiplies its share at userIndex.
func ClientCoefficient(group curve.Curve, servers []party.ID, userIndex party.ID) (curve.Scalar, error) {
	if err := validateServers(servers); err != nil {
		return nil, err
	}
	additive, err := polynomial.LagrangeAt(group, []party.ID{share.ServerVirtualIndex, userIndex}, userIndex, 0)
	if err != nil {
		return nil, err
	}
	norm, err := Normalization(group, Parties(servers), ClientPosition(servers))
	if err != nil {
		return nil, err
	}
	return additive.Mul(norm.Invert()), nil
}

// ServerCoefficient returns the coefficient by which server multiplies its share.
func ServerCoefficient(group curve.Curve, servers []party.ID, userIndex, server party.ID) (curve.Scalar, error) {
	if err := validateServers(servers); err != nil {
		return nil, err
	}
	position := party.IDSlice(servers).GetIndex(server)
	if position < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownServer, server)
	}
	master, err := polynomial.LagrangeAt(group, []party.ID{share.ServerVirtualIndex, userIndex}, share.ServerVirtualIndex, 0)
	if err != nil {
		return nil, err
	}
	serverCoeff, err := polynomial.LagrangeAt(group, servers, server, 0)
	if err != nil {
		return nil, err
	}
	norm, err := Normalization(group, Parties(servers), position)
	if err != nil {
		return nil, err
	}
	return master.Mul(serverCoeff).Mul(norm.Invert()), nil
}

// Denormalize returns the client's share multiplied by its coefficient.
func Denormalize(s *share.Share, servers []party.ID) (curve.Scalar, error) {
	group := s.Value.Curve()
	coeff, err := ClientCoefficient(group, servers, s.Index)
	if err != nil {
		return nil, err
	}
	return coeff.Mul(s.Value), nil
}

// ServerCoefficients returns the coefficient of every server, keyed by the decimal server index,
// as 64 hex characters.
func ServerCoefficients(group curve.Curve, servers []party.ID, userIndex party.ID) (map[string]string, error) {
	out := make(map[string]string, len(servers))
	for _, server := range servers {
		coeff, err := ServerCoefficient(group, servers, userIndex, server)
		if err != nil {
			return nil, err
		}
		out[server.String()] = curve.ScalarHex(coeff)
	}
	return out, nil
}
