// Package grid provides the uniform spatial grid used by the neighborhood
// search: a pure [Geometry] that maps positions to cell coordinates, and two
// interchangeable [Storage] implementations that bucket particle indices per
// cell:
//
//   - [Dense]: every cell pre-allocated, O(cells × capacity) memory
//   - [Sparse]: cell blocks allocated on first insertion, O(active × capacity)
//
// # Choosing a variant
//
// Sparse storage only pays off when most of the addressable cells stay empty
// (large domains relative to the support radius). When occupancy is high the
// per-page and per-block bookkeeping makes it larger than [Dense]; use
// [Storage.Footprint] to compare.
//
// # Thread Safety
//
// Insert may be called concurrently from any number of goroutines. Count and
// ParticleAt must not run concurrently with Insert or Clear; callers separate
// the write phase from the read phase with a barrier.
package grid
