package nsearch

import (
	"log/slog"

	"github.com/san-kum/nsearch/internal/compute"
	"github.com/san-kum/nsearch/internal/config"
	"github.com/san-kum/nsearch/internal/grid"
	"gonum.org/v1/gonum/spatial/r3"
)

type options struct {
	radius      float64
	cellSize    float64
	domain      r3.Vec
	kind        grid.Kind
	cellCap     int
	neighborCap int
	backend     compute.Backend
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		radius:      config.DefaultSupportRadius,
		domain:      r3.Vec{X: config.DefaultDomainSize, Y: config.DefaultDomainSize, Z: config.DefaultDomainSize},
		kind:        grid.KindDense,
		cellCap:     config.DefaultCellCapacity,
		neighborCap: config.DefaultNeighborCapacity,
	}
}

// Option configures an Engine.
type Option func(*options)

func WithSupportRadius(r float64) Option {
	return func(o *options) { o.radius = r }
}

// WithCellSize decouples the grid cell size from the support radius. The
// scanned neighborhood grows to ceil(radius/cellSize) cells per side.
func WithCellSize(size float64) Option {
	return func(o *options) { o.cellSize = size }
}

func WithDomain(size r3.Vec) Option {
	return func(o *options) { o.domain = size }
}

func WithStorage(kind grid.Kind) Option {
	return func(o *options) { o.kind = kind }
}

func WithCellCapacity(n int) Option {
	return func(o *options) { o.cellCap = n }
}

func WithNeighborCapacity(n int) Option {
	return func(o *options) { o.neighborCap = n }
}

func WithBackend(b compute.Backend) Option {
	return func(o *options) { o.backend = b }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// FromConfig translates a search config section into options. Options
// passed after it override individual fields.
func FromConfig(c config.SearchConfig) Option {
	return func(o *options) {
		o.radius = c.SupportRadius
		o.cellSize = c.CellSize
		o.domain = r3.Vec{X: c.DomainSize[0], Y: c.DomainSize[1], Z: c.DomainSize[2]}
		o.kind = c.StorageKind()
		o.cellCap = c.CellCapacity
		o.neighborCap = c.NeighborCapacity
		o.backend = compute.Select(c.Workers)
	}
}
