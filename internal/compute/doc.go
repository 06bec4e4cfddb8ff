// Package compute provides the parallel-for dispatch used by the search
// kernels.
//
//   - [CPUBackend]: splits a range into chunks run on an errgroup limited
//     to the worker count
//   - [SerialBackend]: runs the whole range inline, for debugging and
//     deterministic tests
//
// Kernels receive half-open ranges [start, end) and must only write state
// they own or update shared counters atomically:
//
//	backend := compute.Select(workers)
//	backend.ParallelFor(len(positions), func(start, end int) {
//		for i := start; i < end; i++ {
//			// per-particle work
//		}
//	})
package compute
