package compute

// Backend dispatches data-parallel loops over index ranges.
type Backend interface {
	Name() string
	Workers() int

	// ParallelFor calls fn over disjoint chunks covering [0, n) and returns
	// once every chunk has finished. The return is a full barrier: writes
	// made by fn are visible to the caller afterwards.
	ParallelFor(n int, fn func(start, end int))
}

var defaultBackend Backend = NewCPUBackend(0)

// SetDefault replaces the backend used by callers that do not pick one.
func SetDefault(b Backend) {
	if b == nil {
		b = NewCPUBackend(0)
	}
	defaultBackend = b
}

func Default() Backend {
	return defaultBackend
}

// Select returns the backend for a worker count: 1 means serial, anything
// else a CPU pool (0 = one worker per CPU).
func Select(workers int) Backend {
	if workers == 1 {
		return SerialBackend{}
	}
	return NewCPUBackend(workers)
}

// SerialBackend runs every loop on the calling goroutine.
type SerialBackend struct{}

func (SerialBackend) Name() string { return "serial" }
func (SerialBackend) Workers() int { return 1 }

func (SerialBackend) ParallelFor(n int, fn func(start, end int)) {
	if n > 0 {
		fn(0, n)
	}
}
