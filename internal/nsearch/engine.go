package nsearch

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/san-kum/nsearch/internal/compute"
	"github.com/san-kum/nsearch/internal/grid"
	"github.com/san-kum/nsearch/internal/logging"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sentinel marks unused slots in a neighbor row.
const Sentinel int32 = -1

type Engine struct {
	positions   []r3.Vec
	radius      float64
	neighborCap int

	geom    grid.Geometry
	store   grid.Storage
	offsets []grid.Coord
	backend compute.Backend
	log     *slog.Logger

	indices []int32
	counts  []int32
	last    Stats
}

// New builds an engine over positions. The slice is read on every Run, so
// callers may update it in place between runs; its length is fixed.
func New(positions []r3.Vec, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if !(o.radius > 0) || math.IsInf(o.radius, 0) {
		return nil, &ConfigError{Field: "support_radius", Value: o.radius, Wrapped: ErrInvalidRadius}
	}
	if o.cellCap <= 0 {
		return nil, &ConfigError{Field: "cell_capacity", Value: o.cellCap, Wrapped: ErrInvalidCapacity}
	}
	if o.neighborCap <= 0 {
		return nil, &ConfigError{Field: "neighbor_capacity", Value: o.neighborCap, Wrapped: ErrInvalidCapacity}
	}
	if len(positions) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyParticles, len(positions))
	}

	cellSize := o.cellSize
	if cellSize == 0 {
		cellSize = o.radius
	}
	geom, err := grid.NewGeometry(o.domain, cellSize)
	if err != nil {
		return nil, &ConfigError{Field: "grid", Value: fmt.Sprintf("domain=%v cell=%v", o.domain, cellSize), Wrapped: err}
	}
	store, err := grid.NewStorage(o.kind, geom, o.cellCap)
	if err != nil {
		return nil, &ConfigError{Field: "storage", Value: o.kind, Wrapped: err}
	}

	if o.backend == nil {
		o.backend = compute.Default()
	}
	if o.logger == nil {
		o.logger = logging.Noop()
	}

	n := len(positions)
	e := &Engine{
		positions:   positions,
		radius:      o.radius,
		neighborCap: o.neighborCap,
		geom:        geom,
		store:       store,
		offsets:     neighborhood(geom.Reach(o.radius)),
		backend:     o.backend,
		log:         o.logger.With("component", "nsearch", "storage", o.kind.String()),
		indices:     make([]int32, n*o.neighborCap),
		counts:      make([]int32, n),
	}
	for i := range e.indices {
		e.indices[i] = Sentinel
	}

	e.log.Debug("engine created",
		"particles", n,
		"support_radius", o.radius,
		"cell_size", cellSize,
		"dims", geom.Dims(),
		"cell_capacity", o.cellCap,
		"neighbor_capacity", o.neighborCap,
		"backend", o.backend.Name(),
		"footprint_bytes", store.Footprint(),
	)
	return e, nil
}

// neighborhood lists every offset in [-reach, reach]³.
func neighborhood(reach int) []grid.Coord {
	side := 2*reach + 1
	out := make([]grid.Coord, 0, side*side*side)
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for dz := -reach; dz <= reach; dz++ {
				out = append(out, grid.Coord{dx, dy, dz})
			}
		}
	}
	return out
}

// Run rebuilds the grid from the current positions and overwrites the
// neighbor buffers. It must not be called concurrently.
func (e *Engine) Run() Stats {
	n := len(e.positions)
	start := time.Now()

	e.store.Clear()

	var outside atomic.Int64
	e.backend.ParallelFor(n, func(lo, hi int) {
		var miss int64
		for i := lo; i < hi; i++ {
			c := e.geom.CellOf(e.positions[i])
			if !e.geom.Valid(c) {
				miss++
				continue
			}
			e.store.Insert(c, int32(i))
		}
		if miss > 0 {
			outside.Add(miss)
		}
	})
	assigned := time.Now()

	var pairs, truncated atomic.Int64
	e.backend.ParallelFor(n, func(lo, hi int) {
		var found, cut int64
		for i := lo; i < hi; i++ {
			cnt, full := e.collect(i)
			found += int64(cnt)
			if full {
				cut++
			}
		}
		pairs.Add(found)
		truncated.Add(cut)
	})
	done := time.Now()

	st := Stats{
		Particles:         n,
		OutOfDomain:       int(outside.Load()),
		DroppedInsertions: e.store.Dropped(),
		TruncatedRows:     int(truncated.Load()),
		Pairs:             pairs.Load(),
		Storage:           e.store.Kind(),
		MemoryUsage:       1,
		Footprint:         e.store.Footprint(),
		AssignDuration:    assigned.Sub(start),
		SearchDuration:    done.Sub(assigned),
	}
	if u, ok := e.store.(grid.UsageReporter); ok {
		st.MemoryUsage = u.MemoryUsage()
	}
	e.last = st

	if st.Saturated() || st.OutOfDomain > 0 {
		e.log.Warn("search lost neighbor relations", "stats", st)
	} else {
		e.log.Debug("search completed", "stats", st)
	}
	return st
}

// collect fills row i. Only the goroutine handling i touches the row, so
// the counter needs no atomic. It reports whether neighbors were dropped.
func (e *Engine) collect(i int) (int, bool) {
	row := e.indices[i*e.neighborCap : (i+1)*e.neighborCap]
	for k := range row {
		row[k] = Sentinel
	}
	e.counts[i] = 0

	p := e.positions[i]
	center := e.geom.CellOf(p)
	if !e.geom.Valid(center) {
		return 0, false
	}

	n := 0
	for _, off := range e.offsets {
		c := center.Add(off)
		if !e.geom.Valid(c) {
			continue
		}
		occupancy := e.store.Count(c)
		for k := 0; k < occupancy; k++ {
			j := e.store.ParticleAt(c, k)
			if int(j) == i {
				continue
			}
			if r3.Norm(r3.Sub(p, e.positions[j])) < e.radius {
				if n == e.neighborCap {
					e.counts[i] = int32(n)
					return n, true
				}
				row[n] = j
				n++
			}
		}
	}
	e.counts[i] = int32(n)
	return n, false
}

// SetPositions swaps the position slice read by Run. The length must match.
func (e *Engine) SetPositions(positions []r3.Vec) error {
	if len(positions) != len(e.positions) {
		return fmt.Errorf("%w: have %d, got %d", ErrParticleCountChanged, len(e.positions), len(positions))
	}
	e.positions = positions
	return nil
}

// Neighbors returns the valid prefix of row i. The slice aliases the
// engine's buffer and is overwritten by the next Run.
func (e *Engine) Neighbors(i int) []int32 {
	base := i * e.neighborCap
	return e.indices[base : base+int(e.counts[i])]
}

// NeighborIndices returns the Len() × NeighborCapacity() row-major buffer;
// unused slots hold Sentinel.
func (e *Engine) NeighborIndices() []int32 { return e.indices }

// NeighborCounts returns the per-particle neighbor counts.
func (e *Engine) NeighborCounts() []int32 { return e.counts }

func (e *Engine) Len() int                 { return len(e.positions) }
func (e *Engine) NeighborCapacity() int    { return e.neighborCap }
func (e *Engine) SupportRadius() float64   { return e.radius }
func (e *Engine) Geometry() grid.Geometry  { return e.geom }
func (e *Engine) Storage() grid.Storage    { return e.store }
func (e *Engine) Backend() compute.Backend { return e.backend }

// LastStats returns the statistics of the most recent Run.
func (e *Engine) LastStats() Stats { return e.last }

// MemoryUsage forwards the active-cell fraction of sparse storage. ok is
// false for dense storage.
func (e *Engine) MemoryUsage() (usage float64, ok bool) {
	u, ok := e.store.(grid.UsageReporter)
	if !ok {
		return 0, false
	}
	return u.MemoryUsage(), true
}

// DeactivateStorage clears the grid without running a search, releasing
// sparse cell blocks. Neighbor buffers keep their contents.
func (e *Engine) DeactivateStorage() {
	e.store.Clear()
	e.log.Debug("storage deactivated", "footprint_bytes", e.store.Footprint())
}
