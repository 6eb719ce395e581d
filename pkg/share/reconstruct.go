package share

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/taurusgroup/tss-factors/pkg/ecies"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/party"
	"github.com/taurusgroup/tss-factors/pkg/pool"
	"golang.org/x/sync/errgroup"
)

// Reconstructor recovers a factor's tss share from its encrypted share material.
type Reconstructor struct {
	Group curve.Curve
	// Threshold is the number of server decryptions interpolated together in the
	// hierarchical topology. If 0, half the number of servers rounded up is used.
	Threshold int
	// Pool is used to check candidate combinations in parallel. It may be nil.
	Pool *pool.Pool
	Log  zerolog.Logger
}

// NewReconstructor returns a Reconstructor over secp256k1 with default settings.
func NewReconstructor(log zerolog.Logger) *Reconstructor {
	return &Reconstructor{Group: curve.Secp256k1{}, Log: log}
}

func (r *Reconstructor) group() curve.Curve {
	if r.Group == nil {
		return curve.Secp256k1{}
	}
	return r.Group
}

// Reconstruct decrypts enc with key and returns the share it contains, after checking
// it against the tss commitments.
func (r *Reconstructor) Reconstruct(ctx context.Context, enc *factor.Encryption, commitments *polynomial.Exponent, key curve.Scalar) (*Share, error) {
	if err := enc.Validate(); err != nil {
		return nil, err
	}
	log := r.Log.With().
		Uint32("tss_index", uint32(enc.TSSIndex)).
		Str("type", string(enc.Type)).
		Int("server_encs", len(enc.ServerEncs)).
		Logger()

	userDec, serverDecs, err := r.decrypt(ctx, enc, key)
	if err != nil {
		return nil, err
	}

	switch enc.Type {
	case factor.TypeDirect:
		if !commitments.Verify(enc.TSSIndex, userDec) {
			log.Warn().Msg("direct share does not match commitments")
			return nil, ErrCommitmentMismatch
		}
		return &Share{Index: enc.TSSIndex, Value: userDec}, nil
	case factor.TypeHierarchical:
		return r.search(ctx, log, enc.TSSIndex, userDec, serverDecs, commitments)
	default:
		return nil, fmt.Errorf("share: unknown encryption type %q", enc.Type)
	}
}

// decrypt decrypts all ciphertexts concurrently. Server decryptions that fail are
// returned as nil entries.
func (r *Reconstructor) decrypt(ctx context.Context, enc *factor.Encryption, key curve.Scalar) (curve.Scalar, []curve.Scalar, error) {
	var userDec curve.Scalar
	serverDecs := make([]curve.Scalar, len(enc.ServerEncs))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := ecies.DecryptScalar(key, enc.UserEnc)
		if err != nil {
			return fmt.Errorf("user share: %w", err)
		}
		userDec = s
		return nil
	})
	if enc.Type == factor.TypeHierarchical {
		for i, c := range enc.ServerEncs {
			i, c := i, c
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				if c == nil {
					return nil
				}
				s, err := ecies.DecryptScalar(key, c)
				if err != nil {
					r.Log.Debug().Int("server", i+1).Int("size", c.Size()).Msg("server share failed to decrypt")
					return nil
				}
				serverDecs[i] = s
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return userDec, serverDecs, nil
}

// search tries every combination of threshold server decryptions, in lexicographic order,
// and returns the first one which combined with the user's value matches the commitments.
func (r *Reconstructor) search(ctx context.Context, log zerolog.Logger, index party.ID, userDec curve.Scalar, serverDecs []curve.Scalar, commitments *polynomial.Exponent) (*Share, error) {
	group := r.group()
	servers := len(serverDecs)
	threshold := r.Threshold
	if threshold <= 0 {
		threshold = (servers + 1) / 2
	}

	available := make(party.IDSlice, 0, servers)
	var undecryptable []party.ID
	for i, s := range serverDecs {
		id := party.ID(i + 1)
		if s == nil {
			undecryptable = append(undecryptable, id)
			continue
		}
		available = append(available, id)
	}

	fail := func(tried int) error {
		log.Warn().
			Int("tried", tried).
			Int("threshold", threshold).
			Str("undecryptable", party.IDSlice(undecryptable).String()).
			Msg("no valid share combination")
		return &NoValidShareCombinationError{
			Tried:         tried,
			Threshold:     threshold,
			Servers:       servers,
			Undecryptable: undecryptable,
		}
	}

	if threshold > len(available) {
		return nil, fail(0)
	}

	userCoeff, err := polynomial.LagrangeAt(group, []party.ID{ServerVirtualIndex, UserVirtualIndex}, UserVirtualIndex, 0)
	if err != nil {
		return nil, err
	}
	serverCoeff, err := polynomial.LagrangeAt(group, []party.ID{ServerVirtualIndex, UserVirtualIndex}, ServerVirtualIndex, 0)
	if err != nil {
		return nil, err
	}
	userTerm := group.NewScalar().Set(userCoeff).Mul(userDec)

	combinations := Combinations(available, threshold)
	candidates := make([]curve.Scalar, len(combinations))
	found := r.Pool.First(len(combinations), func(i int) bool {
		if ctx.Err() != nil {
			return false
		}
		points := make(map[party.ID]curve.Scalar, threshold)
		for _, id := range combinations[i] {
			points[id] = serverDecs[id-1]
		}
		serverValue, err := polynomial.Interpolate(group, points, 0)
		if err != nil {
			return false
		}
		candidate := serverValue.Mul(serverCoeff).Add(userTerm)
		if !commitments.Verify(index, candidate) {
			return false
		}
		candidates[i] = candidate
		return true
	})
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if found < 0 {
		return nil, fail(len(combinations))
	}
	log.Debug().Int("combination", found).Str("servers", party.IDSlice(combinations[found]).String()).Msg("share reconstructed")
	return &Share{Index: index, Value: candidates[found]}, nil
}

// Combinations returns all subsets of size k of items, in lexicographic order of positions.
func Combinations(items []party.ID, k int) [][]party.ID {
	n := len(items)
	if k <= 0 || k > n {
		return nil
	}
	var out [][]party.ID
	positions := make([]int, k)
	for i := range positions {
		positions[i] = i
	}
	for {
		combination := make([]party.ID, k)
		for i, p := range positions {
			combination[i] = items[p]
		}
		out = append(out, combination)

		// find the rightmost position that can still move
		i := k - 1
		for i >= 0 && positions[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		positions[i]++
		for j := i + 1; j < k; j++ {
			positions[j] = positions[j-1] + 1
		}
	}
}
