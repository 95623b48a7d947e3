package bumpgo

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/hupe1980/bumpgo/internal/mem"
	"github.com/hupe1980/bumpgo/internal/mmap"
)

// Backing supplies whole chunks to an arena. The arena assumes nothing about
// it beyond this contract; reset is the only path that hands chunks back.
type Backing interface {
	// Alloc returns a zero-filled block of exactly size bytes.
	Alloc(size int) ([]byte, error)

	// Free returns a block previously obtained from Alloc. Blocks are
	// always freed whole.
	Free(buf []byte) error
}

// HeapBacking returns the default Backing: 64-byte-aligned blocks from the
// Go heap. Free is a no-op; the collector reclaims released blocks once the
// arena drops its references.
func HeapBacking() Backing { return heapBacking{} }

type heapBacking struct{}

func (heapBacking) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, allocError(size, 0, ErrSizeOverflow)
	}
	return mem.AllocAligned(size), nil
}

func (heapBacking) Free([]byte) error { return nil }

// MmapBacking returns a Backing that serves chunks from anonymous private
// mappings outside the Go heap. Free unmaps immediately, so released memory
// returns to the OS without waiting for a collection cycle. Fails on
// platforms without mmap support.
func MmapBacking() (Backing, error) {
	if !mmap.Supported() {
		return nil, mmap.ErrUnsupported
	}
	return &mmapBacking{mappings: make(map[uintptr]*mmap.Mapping)}, nil
}

type mmapBacking struct {
	mu       sync.Mutex
	mappings map[uintptr]*mmap.Mapping
}

func (b *mmapBacking) Alloc(size int) ([]byte, error) {
	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, err
	}
	// Bump consumption walks the chunk front to back; the hint is advisory.
	_ = m.Advise(mmap.AccessSequential)

	buf := m.Bytes()
	b.mu.Lock()
	b.mappings[uintptr(unsafe.Pointer(&buf[0]))] = m
	b.mu.Unlock()
	return buf, nil
}

func (b *mmapBacking) Free(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	key := uintptr(unsafe.Pointer(&buf[0]))

	b.mu.Lock()
	m := b.mappings[key]
	delete(b.mappings, key)
	b.mu.Unlock()

	if m == nil {
		return fmt.Errorf("backing: unknown block at %#x", key)
	}
	return m.Close()
}
