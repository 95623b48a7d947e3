// Package bump implements the chunk-chained bump allocation engine shared by
// the single-owner and shared arenas.
//
// # Structure
//
// A chunk is one contiguous block obtained from a backing allocator, consumed
// by monotonically advancing a cursor. Chunks form a singly linked,
// most-recent-first chain; the engine owns the chain root and a minimum-size
// hint for the next chunk.
//
// # Cursor Variants
//
// The cursor is abstracted behind the Cursor constraint with two
// implementations: Cell (plain memory operations, single owner) and
// sync/atomic.Int64 (compare-and-swap, shared). The bump arithmetic is
// written once, generic over the two, and instantiated per arena variant at
// compile time.
//
// # Division of Labor
//
// The engine performs no locking and no backing-allocator calls. Owners
// sequence exclusivity (chunk installation, reset) and provide chunk memory;
// the engine supplies the fast-path arithmetic, the sizing heuristic, the
// best-effort LIFO reclaim, in-place tail growth, reset mechanics, and the
// deferred-destruction list walk.
package bump
