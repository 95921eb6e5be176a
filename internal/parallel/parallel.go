// Package parallel provides row-parallel execution helpers for the layer kernels.
//
// Every helper partitions [0, n) into contiguous chunks and runs each chunk on
// its own goroutine. Callers must only write to per-index slots; shared
// accumulators (gradient tables, touched-row sets) are updated after the
// helper returns.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum rows per goroutine to avoid overhead.
}

// DefaultConfig returns a parallel configuration sized to the CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// Sequential returns a configuration that always runs on the calling goroutine.
func Sequential() Config {
	return Config{Enabled: false}
}

// chunks returns the [start, end) ranges For and Sum iterate over.
func chunks(n int, cfg Config) [][2]int {
	if !cfg.Enabled || n < cfg.MinChunkSize || cfg.NumWorkers <= 1 {
		return [][2]int{{0, n}}
	}
	size := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// For executes f(i) for i in [0, n).
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if n <= 0 {
		return
	}
	parts := chunks(n, cfg)
	if len(parts) == 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	for _, p := range parts {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(p[0], p[1])
	}
	wg.Wait()
}

// Sum evaluates f(i) for i in [0, n) and returns the total.
//
// Partial sums are combined in chunk order, so for a fixed Config the result
// does not depend on goroutine scheduling.
func Sum(n int, f func(i int) float64, cfg Config) float64 {
	if n <= 0 {
		return 0
	}
	parts := chunks(n, cfg)
	partial := make([]float64, len(parts))

	run := func(k int) {
		var acc float64
		for i := parts[k][0]; i < parts[k][1]; i++ {
			acc += f(i)
		}
		partial[k] = acc
	}

	if len(parts) == 1 {
		run(0)
		return partial[0]
	}

	var wg sync.WaitGroup
	for k := range parts {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			run(k)
		}(k)
	}
	wg.Wait()

	var total float64
	for _, v := range partial {
		total += v
	}
	return total
}
