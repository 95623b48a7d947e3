package bumpgo

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/bumpgo/internal/mem"
)

// defaultState is one lifecycle state of the process-wide allocator: absent
// (nil pointer), installed and enabled, or installed but disabled. States
// are immutable; transitions swap the pointer.
type defaultState struct {
	arena   *SharedArena
	enabled bool
}

var (
	defaultArena atomic.Pointer[defaultState]

	// defaultOutstanding tracks Alloc calls not yet matched by Free. It is
	// bookkeeping for the reset gate, not a correctness mechanism: the
	// arena reclaims everything on reset regardless.
	defaultOutstanding atomic.Int64
)

// InitDefault installs the process-wide arena behind Alloc and Free. Before
// this call (and after CloseDefault) those functions serve plain heap
// memory, so package-level allocation works at any point of the program's
// lifecycle. Fails with ErrDefaultInstalled if a default arena exists.
func InitDefault(optFns ...Option) error {
	s := &defaultState{arena: NewShared(optFns...), enabled: true}
	if !defaultArena.CompareAndSwap(nil, s) {
		return ErrDefaultInstalled
	}
	return nil
}

// SetDefaultEnabled switches the installed arena between serving and
// fall-through mode without releasing its chunks. Like a reset, the switch
// assumes no allocation is in flight: requests racing it may land on either
// side.
func SetDefaultEnabled(enabled bool) error {
	for {
		cur := defaultArena.Load()
		if cur == nil {
			return ErrNoDefault
		}
		if cur.enabled == enabled {
			return nil
		}
		next := &defaultState{arena: cur.arena, enabled: enabled}
		if defaultArena.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

// Alloc returns size bytes at align from the default arena, or from the
// heap when no arena is installed or the installed one is disabled.
func Alloc(size, align int) ([]byte, error) {
	s := defaultArena.Load()
	if s == nil || !s.enabled {
		return heapAlloc(size, align)
	}
	p, err := s.arena.Allocate(size, align)
	if err == nil && p != nil {
		defaultOutstanding.Add(1)
	}
	return p, err
}

// AllocZeroed behaves like Alloc with zero-filled bytes.
func AllocZeroed(size, align int) ([]byte, error) {
	s := defaultArena.Load()
	if s == nil || !s.enabled {
		// Fresh heap memory is already zero.
		return heapAlloc(size, align)
	}
	p, err := s.arena.AllocateZeroed(size, align)
	if err == nil && p != nil {
		defaultOutstanding.Add(1)
	}
	return p, err
}

// Free releases p. Arena-served bytes are reclaimed best-effort (LIFO, like
// Arena.Deallocate) and always counted against the outstanding total;
// anything else, including heap memory served during a fall-through period,
// is left to the collector.
func Free(p []byte) {
	if len(p) == 0 {
		return
	}
	s := defaultArena.Load()
	if s == nil || !s.arena.Owns(p) {
		return
	}
	s.arena.Deallocate(p)
	defaultOutstanding.Add(-1)
}

// ResetDefault rewinds the default arena. It fails with
// ErrOutstandingAllocations unless every Alloc has been matched by Free:
// the exclusivity every reset demands, made checkable for the one arena
// whose callers cannot see each other.
func ResetDefault(keepLast bool) error {
	s := defaultArena.Load()
	if s == nil {
		return ErrNoDefault
	}
	if n := defaultOutstanding.Load(); n != 0 {
		return fmt.Errorf("%w: %d live", ErrOutstandingAllocations, n)
	}
	s.arena.Reset(keepLast)
	return nil
}

// CloseDefault uninstalls and releases the default arena. Later Alloc calls
// fall through to the heap. Returns nil when no arena is installed.
func CloseDefault() error {
	for {
		cur := defaultArena.Load()
		if cur == nil {
			return nil
		}
		if defaultArena.CompareAndSwap(cur, nil) {
			defaultOutstanding.Store(0)
			return cur.arena.Close()
		}
	}
}

// DefaultStats returns the installed arena's snapshot, and false when none
// is installed.
func DefaultStats() (Stats, bool) {
	s := defaultArena.Load()
	if s == nil {
		return Stats{}, false
	}
	return s.arena.Stats(), true
}

func heapAlloc(size, align int) ([]byte, error) {
	if _, _, err := checkLayout(size, align); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if align <= 0 {
		align = DefaultAlignment
	}
	return mem.AllocAlignedTo(size, align), nil
}
