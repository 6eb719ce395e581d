package metadata

import (
	"context"
	"sync"

	"github.com/taurusgroup/tss-factors/pkg/math/curve"
	"golang.org/x/sync/errgroup"
)

type pending struct {
	privKey curve.Scalar
	value   interface{}
}

// Batch stages writes until Sync is called. The last write to a key wins.
type Batch struct {
	store *Store

	mtx    sync.Mutex
	writes map[string]pending
}

// Batch returns an empty Batch writing to s.
func (s *Store) Batch() *Batch {
	return &Batch{store: s, writes: make(map[string]pending)}
}

// Set stages v as the value owned by privKey.
func (b *Batch) Set(privKey curve.Scalar, v interface{}) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.writes[Key(privKey)] = pending{privKey: privKey, value: v}
}

// Len returns the number of staged writes.
func (b *Batch) Len() int {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return len(b.writes)
}

// Sync writes all staged values in parallel. Staged values are kept if any write fails,
// so Sync may be called again.
func (b *Batch) Sync(ctx context.Context) error {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range b.writes {
		w := w
		eg.Go(func() error {
			return b.store.Set(ctx, w.privKey, w.value)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	b.store.Log.Info().Int("writes", len(b.writes)).Msg("synced")
	b.writes = make(map[string]pending)
	return nil
}
