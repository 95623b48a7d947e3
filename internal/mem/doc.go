// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides aligned byte-slice allocation for chunk bases. Bump arithmetic
// computes per-allocation padding from the real base address, so the base
// alignment here only has to be a reasonable floor (cache line by default).
package mem
