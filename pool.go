package bumpgo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/bumpgo/resource"
)

// DefaultMaxIdle is the default cap on shelved Blinks in a Pool.
const DefaultMaxIdle = 16

// Pool keeps warmed Blinks for request-cycle reuse: a Get hands out a Blink
// whose arena already holds a chunk sized by past cycles, and Put resets it
// (running finalizers, keeping the warm chunk) and shelves it.
//
// sync.Pool is unsuitable here: it drops entries invisibly at collection
// time, which would leak mmap-backed chunks and forfeit the warm chunk the
// next cycle counts on. The shelf is explicit and Close is deterministic.
type Pool struct {
	mu     sync.Mutex
	idle   []*Blink
	closed bool

	maxIdle int
	optFns  []Option
	log     *Logger

	hits   atomic.Int64
	misses atomic.Int64

	rc       *resource.Controller
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithArenaOptions sets the arena options applied to every Blink the pool
// creates.
func WithArenaOptions(optFns ...Option) PoolOption {
	return func(p *Pool) {
		p.optFns = optFns
	}
}

// WithMaxIdle caps the shelved Blinks. Put beyond the cap closes the
// returned Blink instead. Values <= 0 select DefaultMaxIdle.
func WithMaxIdle(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.maxIdle = n
		}
	}
}

// WithTrim starts a background trimmer that halves the idle shelf every
// interval, returning chunk memory at the controller's scavenge rate. A nil
// controller trims unpaced.
func WithTrim(interval time.Duration, rc *resource.Controller) PoolOption {
	return func(p *Pool) {
		p.interval = interval
		p.rc = rc
	}
}

// NewPool creates a Pool. The zero configuration shelves up to
// DefaultMaxIdle heap-backed Blinks and never trims.
func NewPool(poolFns ...PoolOption) *Pool {
	p := &Pool{maxIdle: DefaultMaxIdle}
	for _, fn := range poolFns {
		if fn != nil {
			fn(p)
		}
	}
	p.log = applyOptions(p.optFns).logger

	if p.interval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.wg.Add(1)
		go p.trimLoop(ctx)
	}
	return p
}

// Get returns a shelved Blink, or a fresh one when the shelf is empty.
func (p *Pool) Get() (*Blink, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	var b *Blink
	if n := len(p.idle); n > 0 {
		b = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if b != nil {
		p.hits.Add(1)
		return b, nil
	}
	p.misses.Add(1)
	return NewBlink(p.optFns...), nil
}

// Put resets b, keeping its warm chunk, and shelves it. Beyond the idle cap
// or after Close, b is closed instead.
func (p *Pool) Put(b *Blink) {
	if b == nil {
		return
	}
	b.Reset(true)

	p.mu.Lock()
	if !p.closed && len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, b)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	_ = b.Close()
}

// Warm fills the shelf to n Blinks whose arenas each hold a first chunk, so
// early Gets skip the cold growth path.
func (p *Pool) Warm(n int) error {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return ErrPoolClosed
		}
		if len(p.idle) >= n || len(p.idle) >= p.maxIdle {
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		b := NewBlink(p.optFns...)
		if _, err := b.arena.Allocate(1, 1); err != nil {
			_ = b.Close()
			return err
		}
		p.Put(b)
	}
}

// Flush closes every shelved Blink immediately, unpaced.
func (p *Pool) Flush() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, b := range idle {
		_ = b.Close()
	}
}

// Close stops the trimmer and closes every shelved Blink. Blinks still
// checked out stay usable; Put closes them on return.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	var firstErr error
	for _, b := range idle {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PoolStats is a snapshot of pool activity.
type PoolStats struct {
	Hits   int64
	Misses int64
	Idle   int
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()
	return PoolStats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
		Idle:   idle,
	}
}

func (p *Pool) trimLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.trim(ctx)
		}
	}
}

// trim closes the older half of the shelf, pacing chunk release through the
// controller. A busy background budget skips the cycle entirely.
func (p *Pool) trim(ctx context.Context) {
	if p.rc != nil {
		if !p.rc.TryAcquireBackground() {
			return
		}
		defer p.rc.ReleaseBackground()
	}

	p.mu.Lock()
	n := len(p.idle) / 2
	victims := make([]*Blink, n)
	copy(victims, p.idle[:n])
	rest := copy(p.idle, p.idle[n:])
	for i := rest; i < len(p.idle); i++ {
		p.idle[i] = nil
	}
	p.idle = p.idle[:rest]
	p.mu.Unlock()

	var (
		freed   int64
		trimmed int
		trimErr error
	)
	pr := resource.NewPacedReleaser(ctx, p.rc)
	for i, b := range victims {
		reserved := b.Stats().Reserved
		if err := pr.Release(int(reserved), b.Close); err != nil {
			// Shutdown mid-trim: close the rest unpaced.
			trimErr = err
			for _, late := range victims[i:] {
				_ = late.Close()
			}
			break
		}
		freed += reserved
		trimmed++
	}
	p.log.LogPoolTrim(ctx, trimmed, freed, trimErr)
}
