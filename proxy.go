package bumpgo

// carveAlign is the alignment of chunks borrowed from a parent arena,
// matching what backing allocators provide for real chunks.
const carveAlign = 64

// borrowBacking carves proxy chunks out of a parent shared arena. Free is a
// no-op: borrowed bytes return to the parent only when the parent resets.
type borrowBacking struct {
	parent *SharedArena
}

func (b *borrowBacking) Alloc(size int) ([]byte, error) {
	return b.parent.Allocate(size, carveAlign)
}

func (b *borrowBacking) Free([]byte) error { return nil }

// Local returns a single-owner arena that borrows its chunks from s. A
// worker allocates through it with plain cursor stores, touching the shared
// lock only when the proxy needs another chunk. Reset and Close invalidate
// the proxy's allocations but release nothing: the borrowed bytes stay
// reserved in the parent until the parent resets.
//
// Typical fan-out shape:
//
//	shared := bumpgo.NewShared()
//	var wg sync.WaitGroup
//	for range workers {
//	    wg.Add(1)
//	    go func() {
//	        defer wg.Done()
//	        local := shared.Local()
//	        defer local.Close()
//	        // ... allocate through local ...
//	    }()
//	}
//	wg.Wait()
//	shared.Reset(false)
//
// The proxy ignores any WithBacking or WithController option: its memory is
// the parent's, already budgeted when the parent grew.
func (s *SharedArena) Local(optFns ...Option) *Arena {
	fns := make([]Option, 0, len(optFns)+2)
	fns = append(fns, optFns...)
	fns = append(fns,
		WithBacking(&borrowBacking{parent: s}),
		WithController(nil),
	)
	return New(fns...)
}
