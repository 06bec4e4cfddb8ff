package grid

import (
	"fmt"
	"strings"
)

// Kind selects a Storage implementation.
type Kind int

const (
	KindDense Kind = iota
	KindSparse
)

func (k Kind) String() string {
	switch k {
	case KindDense:
		return "dense"
	case KindSparse:
		return "sparse"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts "dense" or "sparse" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dense", "":
		return KindDense, nil
	case "sparse":
		return KindSparse, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStorage, s)
}

// Storage is a multiset of particle indices keyed by cell, with a fixed
// per-cell capacity.
type Storage interface {
	// Clear empties every cell and resets the drop counter. Idempotent.
	Clear()

	// Insert reserves a slot in cell c with a single atomic add and writes
	// particle into it. rank is the pre-increment occupancy. When rank is at
	// or beyond capacity, or c is outside the grid, nothing is written and
	// ok is false.
	Insert(c Coord, particle int32) (rank int, ok bool)

	// Count returns the occupancy of c, saturated at Capacity.
	Count(c Coord) int

	// ParticleAt returns the particle stored in slot of c. slot must be
	// below Count(c).
	ParticleAt(c Coord, slot int) int32

	Capacity() int

	// Dropped returns the number of insertions suppressed by saturation
	// since the last Clear.
	Dropped() int64

	// Footprint estimates the bytes currently held by cell storage.
	Footprint() int64

	Kind() Kind
}

// UsageReporter is implemented by storages that activate cells on demand.
type UsageReporter interface {
	// MemoryUsage returns the fraction of addressable cells that are active.
	MemoryUsage() float64
}

// NewStorage builds the storage variant named by kind.
func NewStorage(kind Kind, geom Geometry, capacity int) (Storage, error) {
	switch kind {
	case KindDense:
		return NewDense(geom, capacity)
	case KindSparse:
		return NewSparse(geom, capacity)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownStorage, kind)
}

func checkCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return nil
}
