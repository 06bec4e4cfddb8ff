// Package nsearch implements a fixed-radius neighborhood search over a
// dynamic particle set, as used by particle-based fluid solvers.
//
// An [Engine] owns a uniform grid (see package grid) whose cell size
// defaults to the support radius, and two output buffers: a row of
// NeighborCapacity indices per particle and a per-particle count. Each call
// to [Engine.Run] rebuilds the grid from the current positions in two
// parallel phases separated by a barrier:
//
//  1. bucket assignment: every particle is inserted into the cell holding it
//  2. neighbor enumeration: every particle scans the surrounding cells and
//     records the other particles closer than the support radius
//
// # Example
//
//	eng, err := nsearch.New(positions,
//		nsearch.WithSupportRadius(0.04),
//		nsearch.WithDomain(r3.Vec{X: 1, Y: 1, Z: 1}),
//		nsearch.WithStorage(grid.KindSparse),
//	)
//	if err != nil {
//		return err
//	}
//	stats := eng.Run()
//	for _, j := range eng.Neighbors(0) {
//		// ...
//	}
//
// # Capacity
//
// Cells and neighbor rows have fixed capacities. Entries beyond capacity are
// dropped, which silently loses neighbor relations; [Stats] reports how many
// so that callers can size capacities for their particle density.
//
// # Thread Safety
//
// An Engine is NOT safe for concurrent use. Run parallelizes internally;
// positions must not be modified while Run executes.
package nsearch
