package bumpgo

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeOverflow indicates a size/alignment combination whose layout
	// arithmetic cannot be represented.
	ErrSizeOverflow = errors.New("size overflow")

	// ErrInvalidAlignment indicates an alignment that is not a power of two.
	ErrInvalidAlignment = errors.New("alignment must be a power of two")

	// ErrBudgetExceeded indicates the resource controller refused the chunk
	// reservation.
	ErrBudgetExceeded = errors.New("memory budget exceeded")

	// ErrArenaClosed indicates an operation on a closed arena.
	ErrArenaClosed = errors.New("arena closed")

	// ErrOutstandingAllocations indicates the default arena still has live
	// allocations and cannot change state.
	ErrOutstandingAllocations = errors.New("outstanding allocations")

	// ErrPointerType indicates an attempt to emplace a value whose type
	// contains Go pointers into arena memory.
	ErrPointerType = errors.New("type contains Go pointers")

	// ErrPoolClosed indicates an operation on a closed pool.
	ErrPoolClosed = errors.New("pool closed")

	// ErrDefaultInstalled indicates InitDefault was called with a default
	// arena already in place.
	ErrDefaultInstalled = errors.New("default arena already installed")

	// ErrNoDefault indicates an operation that requires an installed
	// default arena.
	ErrNoDefault = errors.New("no default arena installed")
)

// AllocError indicates a failed allocation, resize, or chunk-growth request.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type AllocError struct {
	Size  int
	Align int
	cause error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("alloc %d bytes (align %d): %v", e.Size, e.Align, e.cause)
}

func (e *AllocError) Unwrap() error { return e.cause }

func allocError(size, align int, cause error) *AllocError {
	return &AllocError{Size: size, Align: align, cause: cause}
}
