// Package bumpgo provides bump/arena memory allocation for Go.
//
// Bumpgo serves many short-lived, variably-sized allocations inside a
// bounded work cycle (a frame, a task, a request) and discards them all at
// once: allocation is a cursor advance in the current chunk, and a reset
// returns whole chunks instead of freeing objects one by one.
//
// # Quick Start
//
// Single-owner cycle:
//
//	a := bumpgo.New(bumpgo.WithMinChunkSize(64 << 10))
//	defer a.Close()
//
//	for job := range jobs {
//	    buf, _ := a.Allocate(job.Size, 8)
//	    process(job, buf)
//	    a.Reset(true) // keep the warm chunk for the next job
//	}
//
// Concurrent allocation:
//
//	s := bumpgo.NewShared()
//	defer s.Close()
//	// any goroutine may call s.Allocate; growth is coordinated internally
//
// Per-worker arenas carved from one shared pool:
//
//	local := s.Local()
//	defer local.Close()
//	// plain, lock-free allocation; chunk refills hit the parent
//
// # Allocation Contract
//
// Allocate returns exactly the requested bytes at the requested power-of-two
// alignment. Live bytes never move and are never reused before a reset.
// Deallocate is best-effort: it reclaims only the most recent allocation
// (LIFO) and no-ops otherwise. Resize resolves in place when it can (shrink,
// or grow of the newest allocation) and copies when it cannot. Reset is the
// only path that returns memory to the backing allocator.
//
// # Typed Values and Cleanup
//
// Blink places typed values in arena memory and runs their cleanup at reset:
//
//	b := bumpgo.NewBlink()
//	defer b.Close()
//
//	p, _ := bumpgo.Put(b, Point{X: 1, Y: 2})   // pointer-free types only
//	c, _ := bumpgo.PutFinal[Conn](b, conn)     // Finalize runs at Reset
//	b.Defer(func() { file.Close() })           // arbitrary cleanup, same order
//	b.Reset(true)                              // newest-first finalization
//
// # Backing and Budget
//
// Chunks come from a pluggable Backing: the Go heap by default, anonymous
// mappings via MmapBacking for memory that returns to the OS immediately on
// reset. A resource.Controller caps total chunk memory across arenas and
// paces background release; allocation never blocks on it, a refused budget
// is an AllocError.
//
// # Pooling
//
// Pool shelves warmed Blinks across request cycles, with an optional
// background trimmer that returns idle chunk memory at a bounded rate.
package bumpgo
