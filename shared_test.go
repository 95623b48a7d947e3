package bumpgo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bumpgo/resource"
)

func TestSharedArenaAllocate(t *testing.T) {
	t.Run("alignment", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		for _, align := range []int{1, 8, 64, 256} {
			p, err := s.Allocate(24, align)
			require.NoError(t, err)
			require.Len(t, p, 24)
			assert.Zero(t, sliceAddr(p)%uintptr(align))
		}
	})

	t.Run("zero size", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		p, err := s.Allocate(0, 8)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("invalid alignment", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		_, err := s.Allocate(8, 6)
		assert.ErrorIs(t, err, ErrInvalidAlignment)
	})

	t.Run("closed", func(t *testing.T) {
		s := NewShared()
		require.NoError(t, s.Close())

		_, err := s.Allocate(8, 8)
		assert.ErrorIs(t, err, ErrArenaClosed)
	})
}

func TestSharedArenaConcurrent(t *testing.T) {
	const (
		workers   = 8
		perWorker = 200
		slotSize  = 16
	)

	s := NewShared()
	defer s.Close()

	slots := make([][][]byte, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				p, err := s.Allocate(slotSize, 8)
				if err != nil {
					t.Errorf("worker %d: %v", w, err)
					return
				}
				for j := range p {
					p[j] = byte(w)
				}
				slots[w] = append(slots[w], p)
			}
		}(w)
	}
	wg.Wait()

	// Overlapping slots would have clobbered each other's fill pattern.
	for w, ps := range slots {
		require.Len(t, ps, perWorker)
		for _, p := range ps {
			for _, b := range p {
				require.Equal(t, byte(w), b)
			}
		}
	}

	st := s.Stats()
	assert.Equal(t, int64(workers*perWorker), st.Allocs)
	assert.Equal(t, int64(workers*perWorker*slotSize), st.Used)
}

func TestSharedArenaDeallocate(t *testing.T) {
	s := NewShared()
	defer s.Close()

	pa, err := s.Allocate(16, 8)
	require.NoError(t, err)
	pb, err := s.Allocate(16, 8)
	require.NoError(t, err)

	s.Deallocate(pb)
	pb2, err := s.Allocate(16, 8)
	require.NoError(t, err)
	assert.Equal(t, sliceAddr(pb), sliceAddr(pb2))

	s.Deallocate(pa)
	assert.Equal(t, int64(1), s.Stats().DeallocHits)
}

func TestSharedArenaResize(t *testing.T) {
	t.Run("grow in place at tail", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		p, err := s.Allocate(8, 8)
		require.NoError(t, err)
		copy(p, "abcdefgh")

		q, err := s.Resize(p, 64, 8)
		require.NoError(t, err)
		assert.Equal(t, sliceAddr(p), sliceAddr(q))
		assert.Equal(t, "abcdefgh", string(q[:8]))
	})

	t.Run("copy fallback", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		p, err := s.Allocate(8, 8)
		require.NoError(t, err)
		copy(p, "abcdefgh")
		_, err = s.Allocate(8, 8)
		require.NoError(t, err)

		q, err := s.Resize(p, 64, 8)
		require.NoError(t, err)
		assert.NotEqual(t, sliceAddr(p), sliceAddr(q))
		assert.Equal(t, "abcdefgh", string(q[:8]))
	})
}

func TestSharedArenaReset(t *testing.T) {
	t.Run("keep last serves next cycle without backing traffic", func(t *testing.T) {
		cb := newCountingBacking()
		s := NewShared(WithBacking(cb))
		defer s.Close()

		_, err := s.Allocate(100, 8)
		require.NoError(t, err)
		chunkSize := cb.allocs[0]

		s.Reset(true)
		require.Equal(t, 1, s.Stats().Chunks)

		_, err = s.Allocate(chunkSize/2, 8)
		require.NoError(t, err)
		assert.Len(t, cb.allocs, 1)
	})

	t.Run("full reset releases everything", func(t *testing.T) {
		cb := newCountingBacking()
		s := NewShared(WithBacking(cb))
		defer s.Close()

		for i := 0; i < 4; i++ {
			_, err := s.Allocate(4096, 8)
			require.NoError(t, err)
		}
		s.Reset(false)

		st := s.Stats()
		assert.Zero(t, st.Chunks)
		assert.Zero(t, cb.outstanding())
	})

	t.Run("unchecked variant", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		p, err := s.Allocate(16, 8)
		require.NoError(t, err)

		// Single goroutine, nothing in flight: the unlocked reset is safe.
		s.ResetUnchecked(true)

		q, err := s.Allocate(16, 8)
		require.NoError(t, err)
		assert.Equal(t, sliceAddr(p), sliceAddr(q))
		assert.Equal(t, int64(1), s.Stats().Resets)
	})
}

func TestSharedArenaBudgetConcurrent(t *testing.T) {
	const workers = 16

	rc := resource.NewController(resource.Config{MemoryLimitBytes: 8192})
	s := NewShared(WithController(rc))

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			_, errs[w] = s.Allocate(768, 8)
		}(w)
	}
	wg.Wait()

	var ok, failed int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		failed++
		assert.ErrorIs(t, err, ErrBudgetExceeded)
	}
	assert.GreaterOrEqual(t, ok, 2, "the first chunk fits at least two slots")
	assert.GreaterOrEqual(t, failed, 1, "demand exceeds the budget")
	assert.LessOrEqual(t, rc.MemoryUsage(), int64(8192))

	require.NoError(t, s.Close())
	assert.Zero(t, rc.MemoryUsage())
}

func TestSharedArenaLocal(t *testing.T) {
	t.Run("carves from parent", func(t *testing.T) {
		s := NewShared()
		defer s.Close()

		local := s.Local()
		p, err := local.Allocate(100, 8)
		require.NoError(t, err)
		assert.Zero(t, sliceAddr(p)%8)
		assert.True(t, s.Owns(p), "proxy slots live inside parent chunks")

		borrowed := s.Stats().Used
		assert.Positive(t, borrowed)
		assert.Equal(t, borrowed, local.Stats().Reserved)

		// Closing the proxy returns nothing: the parent holds the bytes
		// until its own reset.
		require.NoError(t, local.Close())
		assert.Equal(t, borrowed, s.Stats().Used)

		s.Reset(false)
		assert.Zero(t, s.Stats().Used)
	})

	t.Run("fan-out", func(t *testing.T) {
		const workers = 8

		s := NewShared()
		defer s.Close()

		slots := make([][]byte, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				local := s.Local()
				defer local.Close()
				p, err := local.Allocate(256, 8)
				if err != nil {
					t.Errorf("worker %d: %v", w, err)
					return
				}
				for j := range p {
					p[j] = byte(w)
				}
				slots[w] = p
			}(w)
		}
		wg.Wait()

		for w, p := range slots {
			require.NotNil(t, p)
			for _, b := range p {
				require.Equal(t, byte(w), b)
			}
		}
	})
}

func TestSharedArenaCloseRace(t *testing.T) {
	s := NewShared()

	const workers = 4
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1<<16; i++ {
				if _, err := s.Allocate(64, 8); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}

	require.NoError(t, s.Close())
	wg.Wait()
	close(errCh)

	for err := range errCh {
		assert.ErrorIs(t, err, ErrArenaClosed)
	}
	assert.NoError(t, s.Close(), "close must be idempotent")
	assert.NoError(t, (*SharedArena)(nil).Close())
}

func TestSharedArenaOwns(t *testing.T) {
	s := NewShared()
	defer s.Close()

	p, err := s.Allocate(16, 8)
	require.NoError(t, err)
	assert.True(t, s.Owns(p))
	assert.False(t, s.Owns(make([]byte, 16)))
}
