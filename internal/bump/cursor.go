package bump

// Cursor abstracts the next-free-byte offset of a chunk: a load, a store,
// and an atomic replace-if-equal. sync/atomic.Int64 satisfies it for shared
// arenas; Cell satisfies it for single-owner arenas without atomic cost.
type Cursor[C any] interface {
	*C
	Load() int64
	Store(v int64)
	CompareAndSwap(old, new int64) (swapped bool)
}

// Cell is the single-owner cursor. Its method set mirrors atomic.Int64 so
// chunk arithmetic instantiates identically for both variants, but every
// operation compiles to a plain load or store.
type Cell int64

// Load returns the current value.
func (c *Cell) Load() int64 { return int64(*c) }

// Store sets the value.
func (c *Cell) Store(v int64) { *c = Cell(v) }

// CompareAndSwap replaces the value with new if it equals old. A single
// owner cannot race the comparison, so this is an ordinary read-modify-write.
func (c *Cell) CompareAndSwap(old, new int64) bool {
	if int64(*c) != old {
		return false
	}
	*c = Cell(new)
	return true
}
