package main

import (
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/bumpgo"
)

func main() {
	payloadSize := 64 * 1024
	cycles := 10000

	// Build one compressible payload and its zstd frame up front.
	payload := make([]byte, payloadSize)
	for i := range payload {
		payload[i] = byte("abcdefgh"[i%8])
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		log.Fatal(err)
	}
	frame := enc.EncodeAll(payload, nil)
	enc.Close()

	dec, err := zstd.NewReader(nil)
	if err != nil {
		log.Fatal(err)
	}
	defer dec.Close()

	fmt.Println("--- Workload ---")
	fmt.Println("Payload:", humanize.IBytes(uint64(payloadSize)))
	fmt.Println("Frame:", humanize.IBytes(uint64(len(frame))))
	fmt.Println("Cycles:", cycles)

	arena := bumpgo.New(
		bumpgo.WithName("decompress-demo"),
		bumpgo.WithLogger(bumpgo.NoopLogger()),
	)
	defer arena.Close()

	fmt.Println("--- Decompress into arena ---")
	start := time.Now()

	var total uint64
	for i := 0; i < cycles; i++ {
		// One request cycle: scratch header, decompressed body, bulk free.
		header, err := arena.Allocate(256, 8)
		if err != nil {
			log.Fatal(err)
		}
		_ = header

		dst, err := arena.Allocate(payloadSize, 8)
		if err != nil {
			log.Fatal(err)
		}
		out, err := dec.DecodeAll(frame, dst[:0])
		if err != nil {
			log.Fatal(err)
		}
		total += uint64(len(out))

		arena.Reset(true)
	}

	elapsed := time.Since(start)
	stats := arena.Stats()

	fmt.Println("Decompressed:", humanize.IBytes(total))
	fmt.Println("Elapsed:", elapsed)
	fmt.Printf("Throughput: %s/s\n", humanize.IBytes(uint64(float64(total)/elapsed.Seconds())))
	fmt.Println("Arena:", stats)
	fmt.Println("Chunk requests:", stats.Grows)
}
