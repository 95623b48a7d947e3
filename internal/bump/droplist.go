package bump

import (
	"math"
	"unsafe"

	"github.com/hupe1980/bumpgo/internal/conv"
)

// Handle addresses a byte inside the chunk chain by chunk index and offset
// instead of by pointer, so records stored in arena memory stay free of Go
// pointers. The zero Handle means "none"; Chunk holds the index plus one.
type Handle struct {
	Chunk uint32
	Off   uint32
}

// IsZero reports whether h addresses nothing.
func (h Handle) IsZero() bool { return h.Chunk == 0 }

// handleFor converts a chunk index and offset to a Handle. Offsets beyond
// the uint32 range yield the zero Handle: plain allocations never look at
// it, and droppable emplacement refuses to proceed without one.
func handleFor(index uint32, off int64) Handle {
	o, err := conv.Int64ToUint32(off)
	if err != nil || index == math.MaxUint32 {
		return Handle{}
	}
	return Handle{Chunk: index + 1, Off: o}
}

// DropRecord is the fixed-layout destruction header co-located with the
// value it governs, always at the start of the same allocation. Next chains
// to the previously registered record, Fn selects a finalizer from the
// owner's registry, Count is the number of consecutive values governed.
// All fields are scalars so arena bytes never hold Go pointers.
type DropRecord struct {
	Next  Handle
	Fn    uint32
	Count uint32
}

// DropRecordSize is the record header size in bytes.
const DropRecordSize = int64(unsafe.Sizeof(DropRecord{}))

// DropList is the intrusive most-recent-first list of destruction records.
// The records live in arena memory; the list holds only the head handle.
type DropList struct {
	head Handle
}

// Push links h as the new head and returns the previous head, which the
// caller must store into the new record's Next field. Registration is a
// single swap and never allocates.
func (l *DropList) Push(h Handle) Handle {
	prev := l.head
	l.head = h
	return prev
}

// Empty reports whether the list holds no records.
func (l *DropList) Empty() bool { return l.head.IsZero() }

// FinalizeDrops walks l from the most recent record, invoking each exactly
// once and leaving the list empty. Records registered first run last. rec
// points at the record header inside arena memory; the value bytes follow
// it. Handles resolve against the live chain, so the walk must complete
// before any reset invalidates the chunks. Returns the number of records
// finalized.
func (e *Engine[C, P]) FinalizeDrops(l *DropList, invoke func(fn uint32, rec unsafe.Pointer, count int)) int {
	if l.Empty() {
		return 0
	}
	byIndex := make(map[uint32]*Chunk[C, P], e.count)
	for c := e.head; c != nil; c = c.prev {
		byIndex[c.index] = c
	}

	h := l.head
	l.head = Handle{}
	n := 0
	for !h.IsZero() {
		c := byIndex[h.Chunk-1]
		if c == nil {
			break
		}
		p := unsafe.Pointer(&c.buf[h.Off])
		rec := (*DropRecord)(p)
		next := rec.Next
		invoke(rec.Fn, p, int(rec.Count))
		n++
		h = next
	}
	return n
}
