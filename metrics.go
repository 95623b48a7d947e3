package bumpgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocCounter  prometheus.Counter
//	    growHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAlloc(size int, err error) {
//	    p.allocCounter.Inc()
//	    // ... record error state, size, etc.
//	}
type MetricsCollector interface {
	// RecordAlloc is called after each allocation attempt.
	// size is the requested byte count, err is nil if successful.
	RecordAlloc(size int, err error)

	// RecordGrow is called after each chunk-chain growth attempt.
	// chunkBytes is the new chunk's capacity, duration the time spent in the
	// backing allocator, err is nil if successful.
	RecordGrow(chunkBytes int64, duration time.Duration, err error)

	// RecordResize is called after each resize attempt.
	// moved reports whether the bytes were copied to a new slot.
	RecordResize(newSize int, moved bool, err error)

	// RecordDealloc is called after each best-effort deallocation.
	// reclaimed reports whether the cursor was actually rewound.
	RecordDealloc(reclaimed bool)

	// RecordReset is called after each reset.
	// freedBytes and chunks describe what was returned to the backing
	// allocator.
	RecordReset(freedBytes int64, chunks int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int, error)                 {}
func (NoopMetricsCollector) RecordGrow(int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordResize(int, bool, error)          {}
func (NoopMetricsCollector) RecordDealloc(bool)                     {}
func (NoopMetricsCollector) RecordReset(int64, int)                 {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount     atomic.Int64
	AllocBytes     atomic.Int64
	AllocErrors    atomic.Int64
	GrowCount      atomic.Int64
	GrowBytes      atomic.Int64
	GrowErrors     atomic.Int64
	GrowTotalNanos atomic.Int64
	ResizeCount    atomic.Int64
	ResizeMoved    atomic.Int64
	ResizeErrors   atomic.Int64
	DeallocCount   atomic.Int64
	DeallocHits    atomic.Int64
	ResetCount     atomic.Int64
	ResetBytes     atomic.Int64
	ResetChunks    atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(size int, err error) {
	b.AllocCount.Add(1)
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(int64(size))
}

// RecordGrow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGrow(chunkBytes int64, duration time.Duration, err error) {
	b.GrowCount.Add(1)
	b.GrowTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GrowErrors.Add(1)
		return
	}
	b.GrowBytes.Add(chunkBytes)
}

// RecordResize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResize(newSize int, moved bool, err error) {
	b.ResizeCount.Add(1)
	if err != nil {
		b.ResizeErrors.Add(1)
		return
	}
	if moved {
		b.ResizeMoved.Add(1)
	}
}

// RecordDealloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDealloc(reclaimed bool) {
	b.DeallocCount.Add(1)
	if reclaimed {
		b.DeallocHits.Add(1)
	}
}

// RecordReset implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReset(freedBytes int64, chunks int) {
	b.ResetCount.Add(1)
	b.ResetBytes.Add(freedBytes)
	b.ResetChunks.Add(int64(chunks))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:   b.AllocCount.Load(),
		AllocBytes:   b.AllocBytes.Load(),
		AllocErrors:  b.AllocErrors.Load(),
		GrowCount:    b.GrowCount.Load(),
		GrowBytes:    b.GrowBytes.Load(),
		GrowErrors:   b.GrowErrors.Load(),
		GrowAvgNanos: b.getAvgGrowNanos(),
		ResizeCount:  b.ResizeCount.Load(),
		ResizeMoved:  b.ResizeMoved.Load(),
		ResizeErrors: b.ResizeErrors.Load(),
		DeallocCount: b.DeallocCount.Load(),
		DeallocHits:  b.DeallocHits.Load(),
		ResetCount:   b.ResetCount.Load(),
		ResetBytes:   b.ResetBytes.Load(),
		ResetChunks:  b.ResetChunks.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgGrowNanos() int64 {
	count := b.GrowCount.Load()
	if count == 0 {
		return 0
	}
	return b.GrowTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount   int64
	AllocBytes   int64
	AllocErrors  int64
	GrowCount    int64
	GrowBytes    int64
	GrowErrors   int64
	GrowAvgNanos int64
	ResizeCount  int64
	ResizeMoved  int64
	ResizeErrors int64
	DeallocCount int64
	DeallocHits  int64
	ResetCount   int64
	ResetBytes   int64
	ResetChunks  int64
}
