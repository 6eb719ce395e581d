package share

import (
	"errors"
	"fmt"
	"io"

	"github.com/taurusgroup/tss-factors/pkg/ecies"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

// EncryptDirect encrypts s to the factor public key pub.
func EncryptDirect(rand io.Reader, pub curve.Point, s *Share) (*factor.Encryption, error) {
	c, err := ecies.EncryptScalar(rand, pub, s.Value)
	if err != nil {
		return nil, err
	}
	return &factor.Encryption{
		TSSIndex:   s.Index,
		Type:       factor.TypeDirect,
		UserEnc:    c,
		ServerEncs: []*ecies.Ciphertext{},
	}, nil
}

// EncryptHierarchical splits s into a user value and a server value, shares the server value
// among servers with the given threshold, and encrypts everything to the factor public key pub.
//
// With h a random line such that h(0) = s, the user value is h(99) and the server value h(1).
func EncryptHierarchical(rand io.Reader, pub curve.Point, s *Share, servers, threshold int) (*factor.Encryption, error) {
	if servers <= 0 {
		return nil, errors.New("share: hierarchical encryption needs servers")
	}
	if threshold <= 0 {
		threshold = (servers + 1) / 2
	}
	if threshold > servers {
		return nil, fmt.Errorf("share: threshold %d is larger than the number of servers %d", threshold, servers)
	}
	group := s.Value.Curve()

	line := polynomial.NewPolynomial(group, 1, s.Value, rand)
	userValue := line.Evaluate(UserVirtualIndex.Scalar(group))
	serverValue := line.Evaluate(ServerVirtualIndex.Scalar(group))

	userEnc, err := ecies.EncryptScalar(rand, pub, userValue)
	if err != nil {
		return nil, err
	}

	serverPoly := polynomial.NewPolynomial(group, threshold-1, serverValue, rand)
	serverEncs := make([]*ecies.Ciphertext, servers)
	for i := range serverEncs {
		serverEncs[i], err = ecies.EncryptScalar(rand, pub, serverPoly.Evaluate(party.ID(i+1).Scalar(group)))
		if err != nil {
			return nil, err
		}
	}

	return &factor.Encryption{
		TSSIndex:   s.Index,
		Type:       factor.TypeHierarchical,
		UserEnc:    userEnc,
		ServerEncs: serverEncs,
	}, nil
}
