// Package parallel splits data-parallel loops of the tensor kernels across
// goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool `yaml:"enabled"`        // Whether parallel execution is enabled.
	NumWorkers   int  `yaml:"num_workers"`    // Number of worker goroutines to use.
	MinChunkSize int  `yaml:"min_chunk_size"` // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns defaults based on CPU count. Chunks are sized for
// output elements of a contraction, each of which is itself a short loop.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 4096,
	}
}

// Sequential returns a configuration that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// ForRange calls f on disjoint half-open ranges covering [0, n). Each range
// runs on its own goroutine when parallelism applies.
func ForRange(n int, f func(lo, hi int), cfg Config) {
	if n <= 0 {
		return
	}
	workers := max(cfg.NumWorkers, 1)
	if !cfg.Enabled || workers == 1 || n < 2*cfg.MinChunkSize {
		f(0, n)
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+workers-1)/workers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}
