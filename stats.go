package bumpgo

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// atomicStats is the mutable mirror of Stats, updated on operation paths.
type atomicStats struct {
	allocs      atomic.Int64
	allocBytes  atomic.Int64
	deallocs    atomic.Int64
	deallocHits atomic.Int64
	resizes     atomic.Int64
	grows       atomic.Int64
	resets      atomic.Int64
	failures    atomic.Int64
}

func (s *atomicStats) snapshot() Stats {
	return Stats{
		Allocs:      s.allocs.Load(),
		AllocBytes:  s.allocBytes.Load(),
		Deallocs:    s.deallocs.Load(),
		DeallocHits: s.deallocHits.Load(),
		Resizes:     s.resizes.Load(),
		Grows:       s.grows.Load(),
		Resets:      s.resets.Load(),
		Failures:    s.failures.Load(),
	}
}

// Stats is a point-in-time snapshot of arena state and activity.
type Stats struct {
	// Allocs is the number of successful allocations since creation.
	Allocs int64
	// AllocBytes is the total bytes requested by successful allocations,
	// alignment padding excluded.
	AllocBytes int64
	// Deallocs counts best-effort deallocation attempts; DeallocHits counts
	// the ones that actually rewound the cursor.
	Deallocs    int64
	DeallocHits int64
	// Resizes counts resize calls, in-place or copying.
	Resizes int64
	// Grows counts chunks requested from the backing allocator.
	Grows int64
	// Resets counts resets, full and keep-last.
	Resets int64
	// Failures counts requests surfaced to callers as AllocError.
	Failures int64

	// Chunks is the number of live chunks.
	Chunks int
	// Reserved is the total live chunk capacity in bytes.
	Reserved int64
	// Used is the consumed portion of Reserved, padding included.
	Used int64
}

// Utilization returns Used over Reserved, or 0 for an empty arena.
func (s Stats) Utilization() float64 {
	if s.Reserved == 0 {
		return 0
	}
	return float64(s.Used) / float64(s.Reserved)
}

// String implements fmt.Stringer with humanized byte counts.
func (s Stats) String() string {
	return fmt.Sprintf("chunks=%d used=%s reserved=%s (%.1f%%) allocs=%d grows=%d resets=%d",
		s.Chunks,
		humanize.IBytes(uint64(max(s.Used, 0))),
		humanize.IBytes(uint64(max(s.Reserved, 0))),
		s.Utilization()*100,
		s.Allocs,
		s.Grows,
		s.Resets,
	)
}
