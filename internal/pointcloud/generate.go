package pointcloud

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cube returns a regular lattice filling the cube [origin, origin+edge) with
// the given spacing, x varying fastest.
func Cube(origin r3.Vec, edge, spacing float64) []r3.Vec {
	if !(edge > 0) || !(spacing > 0) {
		return nil
	}
	n := int(math.Floor(edge/spacing + 1e-9))
	if n < 1 {
		n = 1
	}
	pts := make([]r3.Vec, 0, n*n*n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				pts = append(pts, r3.Add(origin, r3.Vec{
					X: float64(i) * spacing,
					Y: float64(j) * spacing,
					Z: float64(k) * spacing,
				}))
			}
		}
	}
	return pts
}

// Jitter moves every point in place by a uniform offset in
// [-amplitude, amplitude) per axis.
func Jitter(pts []r3.Vec, amplitude float64, rng *rand.Rand) {
	if amplitude <= 0 {
		return
	}
	for i := range pts {
		pts[i] = r3.Add(pts[i], r3.Vec{
			X: (rng.Float64()*2 - 1) * amplitude,
			Y: (rng.Float64()*2 - 1) * amplitude,
			Z: (rng.Float64()*2 - 1) * amplitude,
		})
	}
}

// Uniform scatters n points uniformly inside the box [0, extent).
func Uniform(n int, extent r3.Vec, rng *rand.Rand) []r3.Vec {
	pts := make([]r3.Vec, n)
	for i := range pts {
		pts[i] = r3.Vec{
			X: rng.Float64() * extent.X,
			Y: rng.Float64() * extent.Y,
			Z: rng.Float64() * extent.Z,
		}
	}
	return pts
}

// Clamper maps a point into a bounded region; grid.Geometry is one.
type Clamper interface {
	Clamp(p r3.Vec) r3.Vec
}

// Clamp pulls every point into the region of c so that jittered lattices
// stay inside the search grid.
func Clamp(pts []r3.Vec, c Clamper) {
	for i, p := range pts {
		pts[i] = c.Clamp(p)
	}
}
