package sample

import (
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/cronokirby/saferith"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/party"
)

const maxIterations = 255

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// Scalar returns a new *curve.Scalar by reading bytes from rand.Reader.
//
// The result is uniform over ℤₙ and never zero.
func Scalar(rand io.Reader, group curve.Curve) curve.Scalar {
	buf := make([]byte, group.SafeScalarBytes())
	order := group.Order()
	for i := 0; i < maxIterations; i++ {
		mustReadBits(rand, buf)
		n := new(saferith.Nat).SetBytes(buf)
		if _, _, lt := n.CmpMod(order); lt != 1 {
			continue
		}
		s := group.NewScalar().SetNat(n)
		if !s.IsZero() {
			return s
		}
	}
	panic(ErrMaxIterations)
}

// Subset returns size distinct elements of ids chosen uniformly at random, sorted.
func Subset(rand io.Reader, ids []party.ID, size int) (party.IDSlice, error) {
	if size < 0 || size > len(ids) {
		return nil, fmt.Errorf("sample.Subset: cannot pick %d elements out of %d", size, len(ids))
	}
	candidates := make([]party.ID, len(ids))
	copy(candidates, ids)
	// partial Fisher-Yates shuffle
	for i := 0; i < size; i++ {
		j, err := randInt(rand, int64(len(candidates)-i))
		if err != nil {
			return nil, err
		}
		k := i + int(j)
		candidates[i], candidates[k] = candidates[k], candidates[i]
	}
	out := party.IDSlice(candidates[:size])
	sort.Sort(out)
	return out, nil
}

func randInt(rand io.Reader, n int64) (int64, error) {
	max := big.NewInt(n)
	buf := make([]byte, 8)
	bound := new(big.Int).Lsh(big.NewInt(1), 64)
	// reject the tail so that the result stays uniform
	limit := new(big.Int).Sub(bound, new(big.Int).Mod(bound, max))
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err != nil {
			return 0, fmt.Errorf("sample: read randomness: %w", err)
		}
		v := new(big.Int).SetBytes(buf)
		if v.Cmp(limit) < 0 {
			return v.Mod(v, max).Int64(), nil
		}
	}
	return 0, ErrMaxIterations
}
