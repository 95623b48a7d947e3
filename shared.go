package bumpgo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/bumpgo/internal/bump"
)

// SharedArena is the concurrent bump allocator. The fast path takes a read
// lock and advances the head cursor by compare-and-swap, so allocating
// goroutines never block each other beyond the occasional CAS retry. Chunk
// growth takes the write lock and re-validates the head first: if another
// goroutine already grew the chain, the grower backs off and retries the
// fast path instead of installing a redundant chunk.
type SharedArena struct {
	mu     sync.RWMutex
	eng    bump.SharedEngine
	opts   options
	stats  atomicStats
	closed atomic.Bool
}

// NewShared creates an empty shared arena.
func NewShared(optFns ...Option) *SharedArena {
	o := applyOptions(optFns)
	if o.name != "" {
		o.logger = o.logger.WithArena(o.name)
	}
	return &SharedArena{
		eng:  bump.NewSharedEngine(int64(o.minChunkSize)),
		opts: o,
	}
}

// Allocate has the same contract as Arena.Allocate and is safe for
// concurrent use.
func (s *SharedArena) Allocate(size, align int) ([]byte, error) {
	size64, align64, err := s.prepare(size, align)
	if err != nil {
		s.stats.failures.Add(1)
		s.opts.metricsCollector.RecordAlloc(size, err)
		return nil, err
	}
	if size64 == 0 {
		return nil, nil
	}

	p, err := s.allocate(size64, align64)
	if err != nil {
		s.stats.failures.Add(1)
		s.opts.metricsCollector.RecordAlloc(size, err)
		return nil, err
	}
	s.stats.allocs.Add(1)
	s.stats.allocBytes.Add(size64)
	s.opts.metricsCollector.RecordAlloc(size, nil)
	return p, nil
}

// AllocateZeroed behaves like Allocate and guarantees zero-filled bytes.
func (s *SharedArena) AllocateZeroed(size, align int) ([]byte, error) {
	p, err := s.Allocate(size, align)
	if err != nil || p == nil {
		return p, err
	}
	clear(p)
	return p, nil
}

// Resize changes p to newSize bytes at the given alignment, in place when
// the address allows it and p is still the most recent allocation, copying
// otherwise. Under concurrency the in-place grow can lose its race and fall
// back to the copy path; the preserved prefix is intact either way.
func (s *SharedArena) Resize(p []byte, newSize, align int) ([]byte, error) {
	return s.resize(p, newSize, align, false)
}

// ResizeZeroed behaves like Resize and additionally zero-fills bytes past
// the preserved prefix.
func (s *SharedArena) ResizeZeroed(p []byte, newSize, align int) ([]byte, error) {
	return s.resize(p, newSize, align, true)
}

func (s *SharedArena) resize(p []byte, newSize, align int, zero bool) ([]byte, error) {
	size64, align64, err := s.prepare(newSize, align)
	if err != nil {
		s.stats.failures.Add(1)
		s.opts.metricsCollector.RecordResize(newSize, false, err)
		return nil, err
	}
	s.stats.resizes.Add(1)

	if size64 == 0 {
		s.opts.metricsCollector.RecordResize(newSize, false, nil)
		return nil, nil
	}

	if len(p) != 0 && uintptr(unsafe.Pointer(&p[0]))%uintptr(align64) == 0 {
		if newSize <= len(p) {
			s.opts.metricsCollector.RecordResize(newSize, false, nil)
			return p[:newSize:newSize], nil
		}
		s.mu.RLock()
		q, ok := s.eng.TryGrowTail(p, size64)
		s.mu.RUnlock()
		if ok {
			if zero {
				clear(q[len(p):])
			}
			s.opts.metricsCollector.RecordResize(newSize, false, nil)
			return q, nil
		}
	}

	q, err := s.allocate(size64, align64)
	if err != nil {
		s.stats.failures.Add(1)
		s.opts.metricsCollector.RecordResize(newSize, false, err)
		return nil, err
	}
	s.stats.allocs.Add(1)
	s.stats.allocBytes.Add(size64)
	n := copy(q, p)
	if zero {
		clear(q[n:])
	}
	s.opts.metricsCollector.RecordResize(newSize, true, nil)
	return q, nil
}

// Deallocate attempts the best-effort LIFO reclaim of p. One compare-and-
// swap, no retry: a lost race forfeits the reclaim, never corrupts state.
func (s *SharedArena) Deallocate(p []byte) {
	if s.closed.Load() || len(p) == 0 {
		return
	}
	s.mu.RLock()
	hit := s.eng.TryDealloc(p)
	s.mu.RUnlock()
	s.stats.deallocs.Add(1)
	if hit {
		s.stats.deallocHits.Add(1)
	}
	s.opts.metricsCollector.RecordDealloc(hit)
}

// Reset bulk-releases every allocation, retaining the warm head chunk when
// keepLast is set. It takes the write lock, so it serializes against
// in-flight allocations, but slices handed out before the call still become
// invalid the moment it runs; callers must have stopped using them.
func (s *SharedArena) Reset(keepLast bool) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	freed, chunks := s.releaseChunks(keepLast)
	s.mu.Unlock()
	s.finishReset(freed, chunks, keepLast)
}

// ResetUnchecked resets without taking the lock. The caller must guarantee
// by external means (a barrier, a join) that no allocation is in flight and
// no returned slice will be touched again. Misuse corrupts the arena.
func (s *SharedArena) ResetUnchecked(keepLast bool) {
	if s.closed.Load() {
		return
	}
	freed, chunks := s.releaseChunks(keepLast)
	s.finishReset(freed, chunks, keepLast)
}

// Close releases every chunk and marks the arena unusable. Safe to call
// repeatedly.
func (s *SharedArena) Close() error {
	if s == nil || s.closed.Swap(true) {
		return nil
	}
	s.mu.Lock()
	freed, chunks := s.releaseChunks(false)
	s.mu.Unlock()
	s.finishReset(freed, chunks, false)
	return nil
}

// Owns reports whether p points into this arena's live chunks.
func (s *SharedArena) Owns(p []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eng.Owns(p)
}

// Stats returns a snapshot of the arena's counters and chunk state.
func (s *SharedArena) Stats() Stats {
	st := s.stats.snapshot()
	s.mu.RLock()
	st.Chunks = s.eng.Chunks()
	st.Reserved = s.eng.Reserved()
	st.Used = s.eng.Used()
	s.mu.RUnlock()
	return st
}

func (s *SharedArena) prepare(size, align int) (int64, int64, error) {
	if s.closed.Load() {
		return 0, 0, allocError(size, align, ErrArenaClosed)
	}
	return checkLayout(size, align)
}

// allocate loops fast path / grow until a slot is carved or growth fails.
// The loop always makes progress: every pass either allocates, installs a
// chunk sized for this request, or observes a chunk installed by someone
// else.
func (s *SharedArena) allocate(size, align int64) ([]byte, error) {
	for {
		s.mu.RLock()
		p, _, ok := s.eng.TryAlloc(size, align)
		head := s.eng.Head()
		s.mu.RUnlock()
		if ok {
			return p, nil
		}
		if err := s.growFrom(head, size, align); err != nil {
			return nil, err
		}
	}
}

// growFrom installs a new chunk unless the head already changed since the
// caller observed it, in which case the caller simply retries the fast path.
func (s *SharedArena) growFrom(head *bump.SharedChunk, size, align int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Allocations racing Close must not install chunks on a released chain.
	if s.closed.Load() {
		return allocError(int(size), int(align), ErrArenaClosed)
	}
	if s.eng.Head() != head {
		return nil
	}

	n, ok := s.eng.NextChunkSize(size, align)
	if !ok {
		return allocError(int(size), int(align), ErrSizeOverflow)
	}
	if !s.opts.controller.TryAcquireMemory(n) {
		s.opts.logger.WithSize(int(size)).LogGrow(context.Background(), n, s.eng.Chunks(), ErrBudgetExceeded)
		return allocError(int(size), int(align), ErrBudgetExceeded)
	}

	start := time.Now()
	buf, err := s.opts.backing.Alloc(int(n))
	s.opts.metricsCollector.RecordGrow(n, time.Since(start), err)
	if err != nil {
		s.opts.controller.ReleaseMemory(n)
		s.opts.logger.WithSize(int(size)).LogGrow(context.Background(), n, s.eng.Chunks(), err)
		return allocError(int(size), int(align), err)
	}

	s.eng.InstallChunk(buf)
	s.stats.grows.Add(1)
	s.opts.logger.WithSize(int(size)).LogGrow(context.Background(), n, s.eng.Chunks(), nil)
	return nil
}

func (s *SharedArena) releaseChunks(keepLast bool) (int64, int) {
	return s.eng.Reset(keepLast, func(buf []byte) {
		if err := s.opts.backing.Free(buf); err != nil {
			s.opts.logger.Warn("backing free failed", "error", err)
		}
		s.opts.controller.ReleaseMemory(int64(len(buf)))
	})
}

func (s *SharedArena) finishReset(freed int64, chunks int, keepLast bool) {
	s.stats.resets.Add(1)
	s.opts.metricsCollector.RecordReset(freed, chunks)
	s.opts.logger.LogReset(context.Background(), freed, chunks, keepLast)
}
