package nsearch

import (
	"log/slog"
	"time"

	"github.com/san-kum/nsearch/internal/grid"
)

// Stats describes one Run.
type Stats struct {
	Particles int

	// OutOfDomain counts particles whose cell lies outside the grid. They
	// are neither inserted nor searched.
	OutOfDomain int

	// DroppedInsertions counts particles that did not fit in their cell.
	DroppedInsertions int64

	// TruncatedRows counts particles with more neighbors than the row holds.
	TruncatedRows int

	// Pairs is the sum of all neighbor counts.
	Pairs int64

	Storage     grid.Kind
	MemoryUsage float64
	Footprint   int64

	AssignDuration time.Duration
	SearchDuration time.Duration
}

// Saturated reports whether any capacity limit discarded data.
func (s Stats) Saturated() bool {
	return s.DroppedInsertions > 0 || s.TruncatedRows > 0
}

func (s Stats) Elapsed() time.Duration {
	return s.AssignDuration + s.SearchDuration
}

// MeanNeighbors is Pairs / Particles.
func (s Stats) MeanNeighbors() float64 {
	if s.Particles == 0 {
		return 0
	}
	return float64(s.Pairs) / float64(s.Particles)
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("particles", s.Particles),
		slog.Int("out_of_domain", s.OutOfDomain),
		slog.Int64("dropped_insertions", s.DroppedInsertions),
		slog.Int("truncated_rows", s.TruncatedRows),
		slog.Int64("pairs", s.Pairs),
		slog.String("storage", s.Storage.String()),
		slog.Float64("memory_usage", s.MemoryUsage),
		slog.Int64("footprint_bytes", s.Footprint),
		slog.Duration("assign", s.AssignDuration),
		slog.Duration("search", s.SearchDuration),
	)
}
