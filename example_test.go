package bumpgo_test

import (
	"fmt"
	"log"
	"sync"

	"github.com/hupe1980/bumpgo"
)

// Example_requestCycle demonstrates the bump-allocate / bulk-reset rhythm
// the arena is built for.
func Example_requestCycle() {
	arena := bumpgo.New()
	defer arena.Close()

	for cycle := 0; cycle < 3; cycle++ {
		// Carve scratch buffers for one request.
		header, err := arena.Allocate(64, 8)
		if err != nil {
			log.Fatal(err)
		}
		body, err := arena.Allocate(256, 8)
		if err != nil {
			log.Fatal(err)
		}
		_ = header
		_ = body

		// One call releases the whole cycle; the warm chunk stays for
		// the next one.
		arena.Reset(true)
	}

	stats := arena.Stats()
	fmt.Println("allocations:", stats.Allocs)
	fmt.Println("chunk requests:", stats.Grows)
	// Output:
	// allocations: 6
	// chunk requests: 1
}

// Example_resize grows a buffer in place while it is still the most recent
// allocation.
func Example_resize() {
	arena := bumpgo.New()
	defer arena.Close()

	buf, err := arena.Allocate(4, 8)
	if err != nil {
		log.Fatal(err)
	}
	copy(buf, "data")

	buf, err = arena.Resize(buf, 16, 8)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(string(buf[:4]), len(buf))
	// Output: data 16
}

// Example_sharedFanOut shows workers allocating through private proxies of
// one shared arena.
func Example_sharedFanOut() {
	shared := bumpgo.NewShared()
	defer shared.Close()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := shared.Local()
			defer local.Close()

			// Plain cursor bumps, no shared-lock traffic per allocation.
			for i := 0; i < 100; i++ {
				if _, err := local.Allocate(48, 8); err != nil {
					log.Fatal(err)
				}
			}
		}()
	}
	wg.Wait()

	// The parent holds every carved chunk until its own reset.
	shared.Reset(false)
	fmt.Println("reserved after reset:", shared.Stats().Reserved)
	// Output: reserved after reset: 0
}

// Example_typedValues places typed values with a Blink and lets Reset run
// their cleanup newest first.
func Example_typedValues() {
	blink := bumpgo.NewBlink()
	defer blink.Close()

	point, err := bumpgo.Put(blink, [2]float64{3, 4})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("point:", *point)

	if err := blink.Defer(func() { fmt.Println("first in, last out") }); err != nil {
		log.Fatal(err)
	}
	if err := blink.Defer(func() { fmt.Println("last in, first out") }); err != nil {
		log.Fatal(err)
	}

	blink.Reset(true)
	// Output:
	// point: [3 4]
	// last in, first out
	// first in, last out
}

// Example_pool reuses warmed arenas across request cycles.
func Example_pool() {
	pool := bumpgo.NewPool()
	defer pool.Close()

	for cycle := 0; cycle < 3; cycle++ {
		blink, err := pool.Get()
		if err != nil {
			log.Fatal(err)
		}
		if _, err := blink.Arena().Allocate(512, 8); err != nil {
			log.Fatal(err)
		}
		pool.Put(blink)
	}

	stats := pool.Stats()
	fmt.Println("hits:", stats.Hits)
	fmt.Println("misses:", stats.Misses)
	// Output:
	// hits: 2
	// misses: 1
}
