package compute

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultMinChunk is the smallest range handed to a single goroutine.
const DefaultMinChunk = 256

type CPUBackend struct {
	workers  int
	minChunk int
}

// NewCPUBackend creates a goroutine pool backend. workers <= 0 uses
// runtime.NumCPU().
func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{
		workers:  workers,
		minChunk: DefaultMinChunk,
	}
}

// WithMinChunk sets the minimum chunk length; values below 1 are ignored.
func (c *CPUBackend) WithMinChunk(n int) *CPUBackend {
	if n >= 1 {
		c.minChunk = n
	}
	return c
}

func (c *CPUBackend) Name() string { return fmt.Sprintf("cpu (%d workers)", c.workers) }
func (c *CPUBackend) Workers() int { return c.workers }

func (c *CPUBackend) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	chunks := c.chunks(n)
	if len(chunks) == 1 {
		fn(0, n)
		return
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, ch := range chunks {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Value: r, Start: ch[0], End: ch[1]}
				}
			}()
			fn(ch[0], ch[1])
			return nil
		})
	}
	// Kernels return nothing, so the only error is a recovered panic. It is
	// re-raised here, on the caller's goroutine, after every chunk finished.
	if err := g.Wait(); err != nil {
		panic(err)
	}
}

// PanicError carries a panic raised by a kernel chunk [Start, End).
type PanicError struct {
	Value      any
	Start, End int
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("compute: kernel panicked on [%d, %d): %v", e.Start, e.End, e.Value)
}

// chunks splits [0, n) into at most workers ranges of at least minChunk.
func (c *CPUBackend) chunks(n int) [][2]int {
	workers := c.workers
	if n/c.minChunk < workers {
		workers = n / c.minChunk
	}
	if workers < 1 {
		workers = 1
	}

	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
