package bump

import "unsafe"

// Engine owns a chunk chain and implements the allocation mechanics shared
// by both arena variants. Callers must guarantee size and alignment are
// within the Max bounds; the public layer validates before calling in.
type Engine[C any, P Cursor[C]] struct {
	head      *Chunk[C, P]
	minChunk  int64
	nextIndex uint32
	count     int
	reserved  int64
}

// NewEngine returns an engine whose first chunk will hold at least minChunk
// bytes. A hint <= 0 selects StartChunkSize.
func NewEngine[C any, P Cursor[C]](minChunk int64) Engine[C, P] {
	if minChunk <= 0 {
		minChunk = StartChunkSize
	}
	if minChunk > MaxChunkSize {
		minChunk = MaxChunkSize
	}
	return Engine[C, P]{minChunk: minChunk}
}

// Head returns the current head chunk, or nil before the first chunk is
// installed. Shared owners compare it across a lock upgrade to detect a
// concurrent grow.
func (e *Engine[C, P]) Head() *Chunk[C, P] { return e.head }

// Chunks returns the number of live chunks.
func (e *Engine[C, P]) Chunks() int { return e.count }

// Reserved returns the total capacity of all live chunks.
func (e *Engine[C, P]) Reserved() int64 { return e.reserved }

// Used returns the bytes consumed across all live chunks, alignment padding
// included.
func (e *Engine[C, P]) Used() int64 {
	var used int64
	for c := e.head; c != nil; c = c.prev {
		used += c.Used()
	}
	return used
}

// TryAlloc attempts a bump allocation in the head chunk. The returned slice
// has length and capacity exactly size; the handle locates its first byte
// for intrusive records. Fails when no chunk exists or the head is full,
// in which case the owner grows the chain and retries.
func (e *Engine[C, P]) TryAlloc(size, align int64) ([]byte, Handle, bool) {
	c := e.head
	if c == nil {
		return nil, Handle{}, false
	}
	off, ok := c.tryAlloc(size, align)
	if !ok {
		return nil, Handle{}, false
	}
	end := off + size
	return c.buf[off:end:end], handleFor(c.index, off), true
}

// NextChunkSize computes the capacity of the chunk that would satisfy a
// request of size bytes at the given alignment: the running cumulative
// capacity (doubling growth) plus the request, padded for alignments beyond
// the chunk base guarantee and for per-chunk overhead, then rounded to a
// power of two below PowTwoThreshold or to a page multiple above it. The
// second result is false when the request cannot fit any chunk.
func (e *Engine[C, P]) NextChunkSize(size, align int64) (int64, bool) {
	n := e.minChunk
	if e.head != nil && e.head.cum > n {
		n = e.head.cum
	}
	grow := size
	if grow < GrowthStep {
		grow = GrowthStep
	}
	n += grow
	if align > headerAlign {
		n += align
	}
	n += chunkOverhead
	if n > MaxChunkSize {
		need := size + chunkOverhead
		if align > headerAlign {
			need += align
		}
		if need > MaxChunkSize {
			return 0, false
		}
		n = MaxChunkSize
	}
	if n < PowTwoThreshold {
		n, _ = nextPowerOfTwo(n)
		return n, true
	}
	n, ok := alignUp(n, PageSize)
	if !ok || n > MaxChunkSize {
		return 0, false
	}
	return n, true
}

// InstallChunk links buf as the new head. The owner must hold exclusive
// access to the chain. Empty blocks are ignored.
func (e *Engine[C, P]) InstallChunk(buf []byte) {
	if len(buf) == 0 {
		return
	}
	e.head = chunkFor[C, P](buf, e.head, e.nextIndex)
	e.nextIndex++
	e.count++
	e.reserved += int64(len(buf))
}

// Owns reports whether p's first byte lies inside a live chunk.
func (e *Engine[C, P]) Owns(p []byte) bool {
	if len(p) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(&p[0]))
	for c := e.head; c != nil; c = c.prev {
		if c.contains(addr) {
			return true
		}
	}
	return false
}

// TryDealloc attempts the best-effort LIFO reclaim: one compare-and-swap of
// the head cursor from the end of p back to its start. It succeeds only when
// p is exactly the most recent live allocation; any other case, including a
// lost race, reclaims nothing.
func (e *Engine[C, P]) TryDealloc(p []byte) bool {
	c := e.head
	if c == nil || len(p) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(&p[0]))
	if !c.contains(addr) {
		return false
	}
	off := int64(addr - c.base)
	return P(&c.off).CompareAndSwap(off+int64(len(p)), off)
}

// TryGrowTail extends p in place to newSize bytes when p ends exactly at the
// head cursor. One compare-and-swap claims the extra bytes; a lost race or
// lack of room fails the attempt and leaves p untouched.
func (e *Engine[C, P]) TryGrowTail(p []byte, newSize int64) ([]byte, bool) {
	c := e.head
	if c == nil || len(p) == 0 {
		return nil, false
	}
	addr := uintptr(unsafe.Pointer(&p[0]))
	if !c.contains(addr) {
		return nil, false
	}
	off := int64(addr - c.base)
	end := off + int64(len(p))
	newEnd := off + newSize
	if newEnd > int64(len(c.buf)) {
		return nil, false
	}
	if !P(&c.off).CompareAndSwap(end, newEnd) {
		return nil, false
	}
	return c.buf[off:newEnd:newEnd], true
}

// Reset rewinds the engine. With keepLast, the head chunk survives with its
// cursor at zero and its cumulative heuristic cleared; everything older is
// released. Without it, every chunk is released. free is called once per
// released block; a nil free abandons the blocks, which borrowed-chunk
// owners use. Returns the bytes and chunk count released.
func (e *Engine[C, P]) Reset(keepLast bool, free func([]byte)) (int64, int) {
	var drop *Chunk[C, P]
	if keepLast && e.head != nil {
		h := e.head
		P(&h.off).Store(0)
		h.cum = h.Cap()
		drop = h.prev
		h.prev = nil
		e.count = 1
		e.reserved = h.Cap()
	} else {
		drop = e.head
		e.head = nil
		e.count = 0
		e.reserved = 0
	}

	var freed int64
	var n int
	for c := drop; c != nil; {
		next := c.prev
		c.prev = nil
		freed += c.Cap()
		n++
		if free != nil {
			free(c.buf)
		}
		c.buf = nil
		c = next
	}
	return freed, n
}
