package bump

import "sync/atomic"

// Instantiated engine forms. Owner engines use plain cursors and belong to a
// single goroutine; shared engines use atomic cursors.
type (
	OwnerEngine  = Engine[Cell, *Cell]
	OwnerChunk   = Chunk[Cell, *Cell]
	SharedEngine = Engine[atomic.Int64, *atomic.Int64]
	SharedChunk  = Chunk[atomic.Int64, *atomic.Int64]
)

// NewOwnerEngine returns a single-owner engine.
func NewOwnerEngine(minChunk int64) OwnerEngine {
	return NewEngine[Cell, *Cell](minChunk)
}

// NewSharedEngine returns an engine safe for concurrent cursor advancement.
func NewSharedEngine(minChunk int64) SharedEngine {
	return NewEngine[atomic.Int64, *atomic.Int64](minChunk)
}
