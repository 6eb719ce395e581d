package dkls

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/share"
)

// The engine's weighted sum of denormalized inputs must give back the tss key.
func TestCoefficients_Combine(t *testing.T) {
	group := curve.Secp256k1{}
	for _, servers := range []party.IDSlice{{1, 2, 3}, {1, 3, 5}, {2, 4}, {1, 2, 3, 4, 5}} {
		for _, userIndex := range []party.ID{2, 3} {
			secret := sample.Scalar(rand.Reader, group)
			f := polynomial.NewPolynomial(group, 1, secret, rand.Reader)
			serverValue := f.Evaluate(share.ServerVirtualIndex.Scalar(group))
			userShare := &share.Share{Index: userIndex, Value: f.Evaluate(userIndex.Scalar(group))}
			g := polynomial.NewPolynomial(group, len(servers)-1, serverValue, rand.Reader)

			N := Parties(servers)
			sum := group.NewScalar()
			for position, server := range servers {
				coeff, err := ServerCoefficient(group, servers, userIndex, server)
				require.NoError(t, err)
				norm, err := Normalization(group, N, position)
				require.NoError(t, err)
				sum.Add(norm.Mul(coeff).Mul(g.Evaluate(server.Scalar(group))))
			}
			denormalized, err := Denormalize(userShare, servers)
			require.NoError(t, err)
			norm, err := Normalization(group, N, ClientPosition(servers))
			require.NoError(t, err)
			sum.Add(norm.Mul(denormalized))

			assert.True(t, sum.Equal(secret), "servers %v user %d", servers, userIndex)
		}
	}
}

func TestServerCoefficients(t *testing.T) {
	group := curve.Secp256k1{}
	servers := []party.ID{1, 2, 3}
	coeffs, err := ServerCoefficients(group, servers, 2)
	require.NoError(t, err)
	require.Len(t, coeffs, 3)
	for _, server := range servers {
		hex, ok := coeffs[server.String()]
		require.True(t, ok)
		assert.Len(t, hex, 64)
		expected, err := ServerCoefficient(group, servers, 2, server)
		require.NoError(t, err)
		parsed, err := curve.ScalarFromHex(hex)
		require.NoError(t, err)
		assert.True(t, parsed.Equal(expected))
	}

	// deterministic
	again, err := ServerCoefficients(group, servers, 2)
	require.NoError(t, err)
	assert.Equal(t, coeffs, again)
}

func TestCoefficients_Invalid(t *testing.T) {
	group := curve.Secp256k1{}
	_, err := ClientCoefficient(group, []party.ID{2, 1}, 2)
	assert.ErrorIs(t, err, polynomial.ErrInvalidIndexSet)
	_, err = ClientCoefficient(group, nil, 2)
	assert.ErrorIs(t, err, polynomial.ErrInvalidIndexSet)
	_, err = ServerCoefficient(group, []party.ID{1, 2}, 2, 3)
	assert.ErrorIs(t, err, ErrUnknownServer)
	// index 1 is the servers' virtual index
	_, err = ClientCoefficient(group, []party.ID{1, 2}, 1)
	assert.ErrorIs(t, err, polynomial.ErrInvalidIndexSet)
}
