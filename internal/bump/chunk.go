package bump

import "unsafe"

// Chunk is one contiguous block subdivided by bump allocation. The cursor
// tracks the offset of the next free byte; bytes below it are live, bytes at
// or above it are free. prev links to the previous, exhausted chunk.
type Chunk[C any, P Cursor[C]] struct {
	buf   []byte
	base  uintptr
	off   C
	prev  *Chunk[C, P]
	cum   int64 // capacity of this chunk plus all older ones, sizing heuristic only
	index uint32
}

// Cap returns the chunk capacity in bytes.
func (c *Chunk[C, P]) Cap() int64 { return int64(len(c.buf)) }

// Used returns the current cursor offset.
func (c *Chunk[C, P]) Used() int64 { return P(&c.off).Load() }

// Prev returns the previous chunk in the chain, or nil.
func (c *Chunk[C, P]) Prev() *Chunk[C, P] { return c.prev }

// Index returns the chunk's position in the installation order.
func (c *Chunk[C, P]) Index() uint32 { return c.index }

// tryAlloc attempts to carve size bytes at the given power-of-two alignment.
// Padding is computed from the chunk's real base address, the cursor advances
// to the exact end of the slot, and the aligned start offset is returned.
// Fails when the chunk lacks room; a lost race reloads and retries.
func (c *Chunk[C, P]) tryAlloc(size, align int64) (int64, bool) {
	for {
		off := P(&c.off).Load()
		pad := padFor(c.base+uintptr(off), align)
		next := off + pad + size
		if next > int64(len(c.buf)) {
			return 0, false
		}
		if P(&c.off).CompareAndSwap(off, next) {
			return off + pad, true
		}
	}
}

// contains reports whether addr points into this chunk's block.
func (c *Chunk[C, P]) contains(addr uintptr) bool {
	return addr >= c.base && addr < c.base+uintptr(len(c.buf))
}

func chunkFor[C any, P Cursor[C]](buf []byte, prev *Chunk[C, P], index uint32) *Chunk[C, P] {
	c := &Chunk[C, P]{
		buf:   buf,
		base:  uintptr(unsafe.Pointer(&buf[0])),
		prev:  prev,
		cum:   int64(len(buf)),
		index: index,
	}
	if prev != nil {
		c.cum += prev.cum
		if c.cum > MaxChunkSize {
			c.cum = MaxChunkSize
		}
	}
	return c
}
