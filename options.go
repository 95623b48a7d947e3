package bumpgo

import (
	"log/slog"

	"github.com/hupe1980/bumpgo/resource"
)

type options struct {
	name             string
	minChunkSize     int
	backing          Backing
	controller       *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures arena constructor behavior.
type Option func(*options)

// WithName tags the arena in log output. Useful when several arenas share a
// logger.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMinChunkSize sets the minimum capacity of the first chunk. Later
// chunks grow from the cumulative capacity of the chain, so this is a floor,
// not a fixed chunk size.
//
// Sizing a cycle-scoped arena to its typical working set keeps steady state
// at a single chunk:
//
//	a := bumpgo.New(bumpgo.WithMinChunkSize(64 << 10))
//	for req := range requests {
//	    handle(a, req)
//	    a.Reset(true) // one warm chunk retained, no backing traffic
//	}
//
// Values <= 0 select the built-in default.
func WithMinChunkSize(size int) Option {
	return func(o *options) {
		o.minChunkSize = size
	}
}

// WithBacking sets the chunk source. If nil is passed, HeapBacking is used.
//
// Example with off-heap chunks:
//
//	backing, err := bumpgo.MmapBacking()
//	if err != nil {
//	    // platform without mmap, fall back to the heap
//	}
//	a := bumpgo.New(bumpgo.WithBacking(backing))
func WithBacking(b Backing) Option {
	return func(o *options) {
		if b == nil {
			b = HeapBacking()
		}
		o.backing = b
	}
}

// WithOffHeap serves chunks from anonymous mappings outside the Go heap,
// so Reset and Close return memory to the OS immediately. On platforms
// without mmap support the option is a no-op and chunks stay on the heap.
// Use WithBacking(MmapBacking()) directly when degradation should be an
// error instead.
func WithOffHeap() Option {
	return func(o *options) {
		if b, err := MmapBacking(); err == nil {
			o.backing = b
		}
	}
}

// WithController attaches a resource controller. Chunk growth reserves its
// capacity against the controller's memory budget without blocking; refusal
// surfaces as an AllocError wrapping ErrBudgetExceeded. Reset releases the
// reservation. Pass nil to run unbudgeted.
//
// One controller can arbitrate several arenas:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 256 << 20})
//	a := bumpgo.New(bumpgo.WithController(rc))
//	b := bumpgo.NewShared(bumpgo.WithController(rc))
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bumpgo.BasicMetricsCollector{}
//	a := bumpgo.New(bumpgo.WithMetricsCollector(metrics))
//	// ... use a ...
//	stats := metrics.GetStats()
//	fmt.Printf("Allocs: %d, Grows: %d\n", stats.AllocCount, stats.GrowCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bumpgo.NewJSONLogger(slog.LevelInfo)
//	a := bumpgo.New(bumpgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		backing:          HeapBacking(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
