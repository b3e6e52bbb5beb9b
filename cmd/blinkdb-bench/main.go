// Command blinkdb-bench runs the read-heavy, write-heavy, and mixed
// microbenchmarks of original_source/Part A/src/benchmark.cpp against an
// in-process engine.Engine, clearing the persistence file between runs.
package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/persistence"
)

func main() {
	dataDir := flag.String("data-dir", ".", "directory to write the scratch persistence file in")
	capacity := flag.Int("capacity", engine.DefaultCapacity, "resident set capacity for the benchmarked engine")
	flag.Parse()

	path := filepath.Join(*dataDir, "flush_data.txt")

	newEngine := func() *engine.Engine {
		return engine.New(engine.Config{Capacity: *capacity, Log: persistence.NewLog(path)})
	}

	fmt.Println("Read Heavy Benchmark")
	runReadHeavy(newEngine())

	fmt.Println("Write Heavy Benchmark")
	runWriteHeavy(newEngine())

	fmt.Println("Mixed Benchmark")
	runMixed(newEngine())
}

func keyFor(i int) string   { return "key" + strconv.Itoa(i) }
func valueFor(i int) string { return "value" + strconv.Itoa(i) }

// runReadHeavy performs 1,000,000 writes, then measures 1,000,000 reads.
func runReadHeavy(e *engine.Engine) {
	defer closeAndClear(e)

	for i := 0; i < 1000000; i++ {
		e.Set(keyFor(i), valueFor(i))
	}

	start := time.Now()
	for i := 0; i < 1000000; i++ {
		e.Get(keyFor(i))
	}
	fmt.Printf("Time taken: %d ms\n", time.Since(start).Milliseconds())
}

// runWriteHeavy measures 1,000,000 writes.
func runWriteHeavy(e *engine.Engine) {
	defer closeAndClear(e)

	start := time.Now()
	for i := 0; i < 1000000; i++ {
		e.Set(keyFor(i), valueFor(i))
	}
	fmt.Printf("Time taken: %d ms\n", time.Since(start).Milliseconds())
}

// runMixed performs 500,000 writes, then measures 500,000 reads followed
// by 500,000 overwrites.
func runMixed(e *engine.Engine) {
	defer closeAndClear(e)

	for i := 0; i < 500000; i++ {
		e.Set(keyFor(i), valueFor(i))
	}

	start := time.Now()
	for i := 0; i < 500000; i++ {
		e.Get(keyFor(i))
	}
	for i := 0; i < 500000; i++ {
		e.Set(keyFor(i), "new_"+valueFor(i))
	}
	fmt.Printf("Time taken: %d ms\n", time.Since(start).Milliseconds())
}

func closeAndClear(e *engine.Engine) {
	e.Close()
	e.ClearPersistence()
}
