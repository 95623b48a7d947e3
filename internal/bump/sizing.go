package bump

import "math/bits"

const (
	// StartChunkSize is the minimum size hint used when an arena is created
	// without an explicit one.
	StartChunkSize = 256

	// GrowthStep is the least amount of fresh space a new chunk adds beyond
	// the cumulative heuristic, so tiny requests still make progress.
	GrowthStep = 64

	// PowTwoThreshold splits the sizing policy: chunk sizes below it round up
	// to a power of two, sizes at or above it round up to a page multiple.
	PowTwoThreshold = 1 << 14

	// PageSize is the rounding granularity for large chunks.
	PageSize = 1 << 12

	// MaxChunkSize bounds any single chunk (64 TiB). The bound keeps every
	// offset computation in tryAlloc far from int64 overflow.
	MaxChunkSize = 1 << 46

	// MaxAllocSize bounds a single allocation request for the same reason.
	MaxAllocSize = 1 << 46

	// MaxAlign bounds the caller-supplied alignment.
	MaxAlign = 1 << 30

	// chunkOverhead budgets the per-chunk bookkeeping (header struct, slice
	// backing metadata) into the sizing heuristic.
	chunkOverhead = 64

	// headerAlign is the alignment every fresh chunk base already provides.
	// Requests up to this alignment never need extra slack in a new chunk.
	headerAlign = 8
)

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int64) bool {
	return n > 0 && n&(n-1) == 0
}

// nextPowerOfTwo returns the smallest power of two >= n. The second result
// is false when that power does not fit in an int64.
func nextPowerOfTwo(n int64) (int64, bool) {
	if n <= 1 {
		return 1, true
	}
	shift := bits.Len64(uint64(n - 1))
	if shift >= 63 {
		return 0, false
	}
	return 1 << shift, true
}

// alignUp rounds n up to the next multiple of align, which must be a power
// of two. The second result is false on overflow.
func alignUp(n, align int64) (int64, bool) {
	if n > int64(^uint64(0)>>1)-(align-1) {
		return 0, false
	}
	return (n + align - 1) &^ (align - 1), true
}

// padFor returns the padding that advances addr to the next multiple of
// align, which must be a power of two.
func padFor(addr uintptr, align int64) int64 {
	mask := uintptr(align) - 1
	return int64((uintptr(align) - (addr & mask)) & mask)
}
