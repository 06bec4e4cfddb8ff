package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Coord is an integer cell coordinate. It may lie outside the grid; use
// [Geometry.Valid] before indexing storage with it.
type Coord [3]int

// Add returns the componentwise sum of c and o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c[0] + o[0], c[1] + o[1], c[2] + o[2]}
}

// Geometry maps continuous positions in [0, domain) to cells of edge
// CellSize. It holds only configuration and is safe for concurrent use.
type Geometry struct {
	cellSize float64
	domain   r3.Vec
	dims     [3]int
	cells    int
}

// NewGeometry derives the grid dimensions ceil(domain / cellSize) once.
func NewGeometry(domain r3.Vec, cellSize float64) (Geometry, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return Geometry{}, fmt.Errorf("%w: %v", ErrInvalidCellSize, cellSize)
	}
	extent := [3]float64{domain.X, domain.Y, domain.Z}
	var dims [3]int
	total := uint64(1)
	for axis, d := range extent {
		if !(d > 0) || math.IsInf(d, 0) {
			return Geometry{}, fmt.Errorf("%w: %v", ErrInvalidDomain, domain)
		}
		n := math.Ceil(d / cellSize)
		if n > math.MaxUint32 {
			return Geometry{}, fmt.Errorf("%w: %v cells on axis %d", ErrGridTooLarge, n, axis)
		}
		dims[axis] = int(n)
		total *= uint64(n)
		if total > math.MaxUint32 {
			return Geometry{}, fmt.Errorf("%w: domain %v at cell size %v", ErrGridTooLarge, domain, cellSize)
		}
	}
	return Geometry{
		cellSize: cellSize,
		domain:   domain,
		dims:     dims,
		cells:    int(total),
	}, nil
}

func (g Geometry) CellSize() float64 { return g.cellSize }
func (g Geometry) Domain() r3.Vec    { return g.domain }
func (g Geometry) Dims() [3]int      { return g.dims }

// Cells returns the number of addressable cells.
func (g Geometry) Cells() int { return g.cells }

// CellOf returns floor(p / CellSize) on every axis. No clamping is applied,
// so positions outside the domain yield coordinates that fail Valid.
func (g Geometry) CellOf(p r3.Vec) Coord {
	return Coord{
		floorDiv(p.X, g.cellSize),
		floorDiv(p.Y, g.cellSize),
		floorDiv(p.Z, g.cellSize),
	}
}

// Clamp pulls p into the domain so that CellOf(Clamp(p)) is always Valid.
// Coordinates at or past the upper edge land on the largest value whose
// cell still lies inside the grid, which may sit a few ulps below the edge.
func (g Geometry) Clamp(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: g.clampAxis(p.X, g.domain.X, g.dims[0]),
		Y: g.clampAxis(p.Y, g.domain.Y, g.dims[1]),
		Z: g.clampAxis(p.Z, g.domain.Z, g.dims[2]),
	}
}

func (g Geometry) clampAxis(v, hi float64, dim int) float64 {
	if !(v > 0) {
		return 0
	}
	if v >= hi {
		v = math.Nextafter(hi, 0)
	}
	for steps := 0; floorDiv(v, g.cellSize) >= dim; steps++ {
		if steps == 64 {
			return (float64(dim) - 0.5) * g.cellSize
		}
		v = math.Nextafter(v, 0)
	}
	return v
}

// floorDiv saturates at the int32 range so NaN and huge inputs still map to
// an invalid cell instead of wrapping around into the grid.
func floorDiv(v, size float64) int {
	f := math.Floor(v / size)
	switch {
	case f != f:
		return -1
	case f < math.MinInt32:
		return math.MinInt32
	case f > math.MaxInt32:
		return math.MaxInt32
	}
	return int(f)
}

// Valid reports whether every axis of c lies in [0, dims).
func (g Geometry) Valid(c Coord) bool {
	return c[0] >= 0 && c[0] < g.dims[0] &&
		c[1] >= 0 && c[1] < g.dims[1] &&
		c[2] >= 0 && c[2] < g.dims[2]
}

// Linear returns the row-major index of a valid coordinate.
func (g Geometry) Linear(c Coord) int {
	return (c[0]*g.dims[1]+c[1])*g.dims[2] + c[2]
}

// CoordOf inverts Linear.
func (g Geometry) CoordOf(idx int) Coord {
	k := idx % g.dims[2]
	idx /= g.dims[2]
	j := idx % g.dims[1]
	return Coord{idx / g.dims[1], j, k}
}

// Reach is the number of cells per axis that must be scanned on each side of
// a center cell to cover a sphere of the given radius: ceil(radius/CellSize).
// It is 1 when the cell size equals the radius.
func (g Geometry) Reach(radius float64) int {
	r := int(math.Ceil(radius / g.cellSize))
	if r < 1 {
		r = 1
	}
	return r
}
