package mem

import (
	"unsafe"
)

// Alignment is the default byte alignment for chunk bases (one cache line).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with cache-line
// alignment. The returned slice is guaranteed to start at a memory address
// divisible by Alignment.
//
// Note: This function allocates slightly more memory than requested to ensure
// alignment. The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	return AllocAlignedTo(size, Alignment)
}

// AllocAlignedTo allocates a byte slice of the given size whose base address
// is divisible by align. align must be a power of two.
func AllocAlignedTo(size, align int) []byte {
	if size == 0 {
		return nil
	}

	// Allocate size + align so an aligned offset always exists within the
	// buffer. The start pointer shifts up to align-1 bytes.
	totalSize := size + align
	buf := make([]byte, totalSize)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	mask := uintptr(align - 1)
	offset := (uintptr(align) - (addr & mask)) & mask

	return buf[offset : offset+uintptr(size)]
}
