// Package sph estimates smoothed-particle densities from neighbor lists.
package sph

import (
	"math"

	"github.com/san-kum/nsearch/internal/compute"
	"gonum.org/v1/gonum/spatial/r3"
)

// Neighborhood exposes per-particle neighbor rows; *nsearch.Engine
// satisfies it after Run.
type Neighborhood interface {
	Neighbors(i int) []int32
}

// Poly6 is the 3D poly6 smoothing kernel evaluated from the squared
// distance r2. It vanishes for r >= h.
func Poly6(r2, h float64) float64 {
	h2 := h * h
	if r2 >= h2 {
		return 0
	}
	d := h2 - r2
	return 315.0 / (64.0 * math.Pi * math.Pow(h, 9)) * d * d * d
}

// Fluid holds the smoothing length and per-particle mass. H should equal
// the support radius of the search that produced the neighbor lists.
type Fluid struct {
	H    float64
	Mass float64
}

// Density sums kernel-weighted masses over each particle's neighbors plus
// the particle itself.
func (f Fluid) Density(positions []r3.Vec, nb Neighborhood, backend compute.Backend) []float64 {
	rho := make([]float64, len(positions))
	self := f.Mass * Poly6(0, f.H)
	backend.ParallelFor(len(positions), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			sum := self
			for _, j := range nb.Neighbors(i) {
				sum += f.Mass * Poly6(r3.Norm2(r3.Sub(positions[i], positions[j])), f.H)
			}
			rho[i] = sum
		}
	})
	return rho
}
