package metadata

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/tss-factors/pkg/factor"
	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"github.com/taurusgroup/tss-factors/pkg/math/polynomial"
	"github.com/taurusgroup/tss-factors/pkg/math/sample"
)

func newMetadata(t *testing.T) *factor.Metadata {
	group := curve.Secp256k1{}
	f := polynomial.NewPolynomial(group, 1, sample.Scalar(rand.Reader, group), rand.Reader)
	return &factor.Metadata{
		VerifierID: "alice",
		Tag:        factor.DefaultTag,
		Tags: map[string]*factor.TagData{
			factor.DefaultTag: {
				Nonce:       3,
				Commitments: polynomial.NewPolynomialExponent(f).Coefficients(),
				Factors:     factor.NewSet(),
			},
		},
	}
}

func TestStore_SetGet(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())
	key := sample.Scalar(rand.Reader, curve.Secp256k1{})
	want := newMetadata(t)

	var got factor.Metadata
	assert.ErrorIs(t, store.Get(context.Background(), key, &got), ErrNotFound)

	require.NoError(t, store.Set(context.Background(), key, want))
	require.NoError(t, store.Get(context.Background(), key, &got))
	assert.Equal(t, want.VerifierID, got.VerifierID)
	assert.Equal(t, want.Tag, got.Tag)
	data, err := got.Current()
	require.NoError(t, err)
	assert.Equal(t, uint32(3), data.Nonce)
	assert.True(t, data.Commitments[0].Equal(want.Tags[factor.DefaultTag].Commitments[0]))

	// a different key addresses a different value
	other := sample.Scalar(rand.Reader, curve.Secp256k1{})
	assert.ErrorIs(t, store.Get(context.Background(), other, &got), ErrNotFound)
}

func TestStore_Key(t *testing.T) {
	key := sample.Scalar(rand.Reader, curve.Secp256k1{})
	k := Key(key)
	assert.Len(t, k, 66)
	assert.Contains(t, []string{"02", "03"}, k[:2])
}

func TestStore_Tampered(t *testing.T) {
	backend := NewMemoryBackend()
	store := NewStore(backend, zerolog.Nop())
	key := sample.Scalar(rand.Reader, curve.Secp256k1{})
	other := sample.Scalar(rand.Reader, curve.Secp256k1{})
	require.NoError(t, store.Set(context.Background(), other, "hello"))

	// a blob signed by another key
	blob, err := backend.Fetch(context.Background(), Key(other))
	require.NoError(t, err)
	require.NoError(t, backend.Store(context.Background(), Key(key), blob))
	var got string
	assert.ErrorIs(t, store.Get(context.Background(), key, &got), ErrInvalidEnvelope)

	require.NoError(t, backend.Store(context.Background(), Key(key), []byte("garbage")))
	assert.ErrorIs(t, store.Get(context.Background(), key, &got), ErrInvalidEnvelope)
}

func TestBatch_Sync(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())
	a := sample.Scalar(rand.Reader, curve.Secp256k1{})
	b := sample.Scalar(rand.Reader, curve.Secp256k1{})

	batch := store.Batch()
	batch.Set(a, "first")
	batch.Set(a, "second")
	batch.Set(b, "other")
	assert.Equal(t, 2, batch.Len())

	var got string
	assert.ErrorIs(t, store.Get(context.Background(), a, &got), ErrNotFound)

	require.NoError(t, batch.Sync(context.Background()))
	assert.Zero(t, batch.Len())
	require.NoError(t, store.Get(context.Background(), a, &got))
	assert.Equal(t, "second", got)
	require.NoError(t, store.Get(context.Background(), b, &got))
	assert.Equal(t, "other", got)
}

func TestBatch_SyncFailureKeepsWrites(t *testing.T) {
	store := NewStore(NewMemoryBackend(), zerolog.Nop())
	batch := store.Batch()
	batch.Set(sample.Scalar(rand.Reader, curve.Secp256k1{}), "value")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, batch.Sync(ctx), context.Canceled)
	assert.Equal(t, 1, batch.Len())
	assert.NoError(t, batch.Sync(context.Background()))
}
