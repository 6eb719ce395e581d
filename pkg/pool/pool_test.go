package pool

import (
	"crypto/rand"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelize(t *testing.T) {
	for _, p := range []*Pool{nil, NewPool(0), NewPool(3)} {
		results := Parallelize(p, 10, func(i int) int { return i * i })
		require.Len(t, results, 10)
		for i, r := range results {
			assert.Equal(t, i*i, r)
		}
		if p != nil {
			p.TearDown()
		}
	}
}

func TestFirst(t *testing.T) {
	p := NewPool(4)
	defer p.TearDown()

	for _, pl := range []*Pool{nil, p} {
		assert.Equal(t, 5, pl.First(20, func(i int) bool { return i >= 5 }))
		assert.Equal(t, 13, pl.First(20, func(i int) bool { return i == 13 || i == 19 }))
		assert.Equal(t, -1, pl.First(20, func(int) bool { return false }))
		assert.Equal(t, -1, pl.First(0, func(int) bool { return true }))
	}
}

func TestLockedReader(t *testing.T) {
	r := NewLockedReader(rand.Reader)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, 32)
			_, err := io.ReadFull(r, buf)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
