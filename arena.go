package bumpgo

import (
	"context"
	"time"
	"unsafe"

	"github.com/hupe1980/bumpgo/internal/bump"
)

// DefaultAlignment is used when callers pass an alignment <= 0.
const DefaultAlignment = 8

// checkLayout validates a size/alignment pair and widens it for the engine.
func checkLayout(size, align int) (int64, int64, error) {
	if align <= 0 {
		align = DefaultAlignment
	}
	if !bump.IsPowerOfTwo(int64(align)) {
		return 0, 0, allocError(size, align, ErrInvalidAlignment)
	}
	if size < 0 || size > bump.MaxAllocSize || align > bump.MaxAlign {
		return 0, 0, allocError(size, align, ErrSizeOverflow)
	}
	return int64(size), int64(align), nil
}

// Arena is the single-owner bump allocator. Allocation advances a cursor in
// the current chunk; when a chunk fills, the next one is requested from the
// backing allocator, sized by the growth heuristic. Memory returns to the
// backing allocator only on Reset or Close, never per allocation.
//
// Methods must not be called concurrently. SharedArena is the concurrent
// variant; SharedArena.Local hands workers private arenas carved from a
// shared one.
type Arena struct {
	eng    bump.OwnerEngine
	opts   options
	stats  atomicStats
	closed bool
}

// New creates an empty arena. No memory is requested until the first
// allocation.
func New(optFns ...Option) *Arena {
	o := applyOptions(optFns)
	if o.name != "" {
		o.logger = o.logger.WithArena(o.name)
	}
	return &Arena{
		eng:  bump.NewOwnerEngine(int64(o.minChunkSize)),
		opts: o,
	}
}

// Allocate returns a slice of exactly size bytes whose first byte is a
// multiple of align. align must be a power of two; values <= 0 select
// DefaultAlignment. The contents are unspecified; AllocateZeroed guarantees
// zeroes. A zero size succeeds with a nil slice and consumes nothing.
//
// The slice is valid until the next Reset or Close. The arena never reuses
// or moves live bytes before then.
func (a *Arena) Allocate(size, align int) ([]byte, error) {
	p, _, err := a.allocWithHandle(size, align)
	return p, err
}

// allocWithHandle is Allocate plus the chunk-relative handle of the slot,
// which the destruction layer stores inside its records.
func (a *Arena) allocWithHandle(size, align int) ([]byte, bump.Handle, error) {
	size64, align64, err := a.prepare(size, align)
	if err != nil {
		a.fail()
		a.opts.metricsCollector.RecordAlloc(size, err)
		return nil, bump.Handle{}, err
	}
	if size64 == 0 {
		return nil, bump.Handle{}, nil
	}

	p, h, err := a.allocate(size64, align64)
	if err != nil {
		a.fail()
		a.opts.metricsCollector.RecordAlloc(size, err)
		return nil, bump.Handle{}, err
	}
	a.stats.allocs.Add(1)
	a.stats.allocBytes.Add(size64)
	a.opts.metricsCollector.RecordAlloc(size, nil)
	return p, h, nil
}

// AllocateZeroed behaves like Allocate and guarantees zero-filled bytes.
// Fresh chunks arrive zeroed; slots that reuse rewound space are cleared
// explicitly.
func (a *Arena) AllocateZeroed(size, align int) ([]byte, error) {
	p, err := a.Allocate(size, align)
	if err != nil || p == nil {
		return p, err
	}
	clear(p)
	return p, nil
}

// Resize changes p to newSize bytes at the given alignment. In-place
// resolution is attempted first: a shrink truncates when the address already
// satisfies align, and a grow extends the slot when p was the most recent
// allocation and its chunk has room. Otherwise a fresh slot is allocated and
// min(len(p), newSize) bytes are copied; the old slot is abandoned as slack
// until the next reset. The preserved prefix keeps its contents either way.
func (a *Arena) Resize(p []byte, newSize, align int) ([]byte, error) {
	return a.resize(p, newSize, align, false)
}

// ResizeZeroed behaves like Resize and additionally zero-fills every byte
// past the preserved prefix.
func (a *Arena) ResizeZeroed(p []byte, newSize, align int) ([]byte, error) {
	return a.resize(p, newSize, align, true)
}

func (a *Arena) resize(p []byte, newSize, align int, zero bool) ([]byte, error) {
	size64, align64, err := a.prepare(newSize, align)
	if err != nil {
		a.fail()
		a.opts.metricsCollector.RecordResize(newSize, false, err)
		return nil, err
	}
	a.stats.resizes.Add(1)

	if size64 == 0 {
		a.opts.metricsCollector.RecordResize(newSize, false, nil)
		return nil, nil
	}

	if len(p) != 0 && uintptr(unsafe.Pointer(&p[0]))%uintptr(align64) == 0 {
		if newSize <= len(p) {
			a.opts.metricsCollector.RecordResize(newSize, false, nil)
			return p[:newSize:newSize], nil
		}
		if q, ok := a.eng.TryGrowTail(p, size64); ok {
			if zero {
				clear(q[len(p):])
			}
			a.opts.metricsCollector.RecordResize(newSize, false, nil)
			return q, nil
		}
	}

	q, _, err := a.allocate(size64, align64)
	if err != nil {
		a.fail()
		a.opts.metricsCollector.RecordResize(newSize, false, err)
		return nil, err
	}
	a.stats.allocs.Add(1)
	a.stats.allocBytes.Add(size64)
	n := copy(q, p)
	if zero {
		clear(q[n:])
	}
	a.opts.metricsCollector.RecordResize(newSize, true, nil)
	return q, nil
}

// Deallocate attempts to reclaim p for the next allocation. Reclaim succeeds
// only when p is exactly the most recent live allocation; any other slice is
// a no-op by contract, its bytes staying as slack until the next reset.
func (a *Arena) Deallocate(p []byte) {
	if a.closed || len(p) == 0 {
		return
	}
	hit := a.eng.TryDealloc(p)
	a.stats.deallocs.Add(1)
	if hit {
		a.stats.deallocHits.Add(1)
	}
	a.opts.metricsCollector.RecordDealloc(hit)
}

// Reset bulk-releases every allocation made since the last reset. With
// keepLast, the most recent chunk stays warm with its cursor rewound, so a
// following cycle of similar size runs without backing-allocator traffic;
// older chunks are returned. Without keepLast, every chunk is returned.
//
// All outstanding slices become invalid. Holding one across Reset is a
// contract violation the arena cannot detect.
func (a *Arena) Reset(keepLast bool) {
	if a.closed {
		return
	}
	freed, chunks := a.releaseChunks(keepLast)
	a.stats.resets.Add(1)
	a.opts.metricsCollector.RecordReset(freed, chunks)
	a.opts.logger.LogReset(context.Background(), freed, chunks, keepLast)
}

// Close releases every chunk and marks the arena unusable. Safe to call
// repeatedly.
func (a *Arena) Close() error {
	if a == nil || a.closed {
		return nil
	}
	a.Reset(false)
	a.closed = true
	return nil
}

// Owns reports whether p points into this arena's live chunks.
func (a *Arena) Owns(p []byte) bool {
	return a.eng.Owns(p)
}

// Stats returns a snapshot of the arena's counters and chunk state.
func (a *Arena) Stats() Stats {
	s := a.stats.snapshot()
	s.Chunks = a.eng.Chunks()
	s.Reserved = a.eng.Reserved()
	s.Used = a.eng.Used()
	return s
}

func (a *Arena) prepare(size, align int) (int64, int64, error) {
	if a.closed {
		return 0, 0, allocError(size, align, ErrArenaClosed)
	}
	return checkLayout(size, align)
}

func (a *Arena) fail() {
	a.stats.failures.Add(1)
}

// allocate is the unvalidated core: fast path, one growth, one retry. The
// retry cannot miss because the chunk was sized for this request.
func (a *Arena) allocate(size, align int64) ([]byte, bump.Handle, error) {
	if p, h, ok := a.eng.TryAlloc(size, align); ok {
		return p, h, nil
	}
	if err := a.grow(size, align); err != nil {
		return nil, bump.Handle{}, err
	}
	p, h, ok := a.eng.TryAlloc(size, align)
	if !ok {
		return nil, bump.Handle{}, allocError(int(size), int(align), ErrSizeOverflow)
	}
	return p, h, nil
}

// grow installs a chunk sized for a pending (size, align) request, charging
// the resource budget first. Budget refusal never blocks; it surfaces as an
// AllocError wrapping ErrBudgetExceeded.
func (a *Arena) grow(size, align int64) error {
	n, ok := a.eng.NextChunkSize(size, align)
	if !ok {
		return allocError(int(size), int(align), ErrSizeOverflow)
	}
	if !a.opts.controller.TryAcquireMemory(n) {
		a.opts.logger.WithSize(int(size)).LogGrow(context.Background(), n, a.eng.Chunks(), ErrBudgetExceeded)
		return allocError(int(size), int(align), ErrBudgetExceeded)
	}

	start := time.Now()
	buf, err := a.opts.backing.Alloc(int(n))
	a.opts.metricsCollector.RecordGrow(n, time.Since(start), err)
	if err != nil {
		a.opts.controller.ReleaseMemory(n)
		a.opts.logger.WithSize(int(size)).LogGrow(context.Background(), n, a.eng.Chunks(), err)
		return allocError(int(size), int(align), err)
	}

	a.eng.InstallChunk(buf)
	a.stats.grows.Add(1)
	a.opts.logger.WithSize(int(size)).LogGrow(context.Background(), n, a.eng.Chunks(), nil)
	return nil
}

// releaseChunks returns chunks to the backing allocator and the budget.
func (a *Arena) releaseChunks(keepLast bool) (int64, int) {
	return a.eng.Reset(keepLast, func(buf []byte) {
		if err := a.opts.backing.Free(buf); err != nil {
			a.opts.logger.Warn("backing free failed", "error", err)
		}
		a.opts.controller.ReleaseMemory(int64(len(buf)))
	})
}
