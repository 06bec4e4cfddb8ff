package grid

import (
	"sync/atomic"
	"unsafe"
)

// Dense pre-allocates counts and slots for every cell of the grid.
type Dense struct {
	geom     Geometry
	capacity int
	counts   []int32
	slots    []int32
	dropped  atomic.Int64
}

var _ Storage = (*Dense)(nil)

// NewDense allocates Cells() × capacity slots up front.
func NewDense(geom Geometry, capacity int) (*Dense, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	d := &Dense{
		geom:     geom,
		capacity: capacity,
		counts:   make([]int32, geom.Cells()),
		slots:    make([]int32, geom.Cells()*capacity),
	}
	d.Clear()
	return d, nil
}

func (d *Dense) Clear() {
	clear(d.counts)
	for i := range d.slots {
		d.slots[i] = -1
	}
	d.dropped.Store(0)
}

func (d *Dense) Insert(c Coord, particle int32) (int, bool) {
	if !d.geom.Valid(c) {
		return -1, false
	}
	cell := d.geom.Linear(c)
	rank := int(atomic.AddInt32(&d.counts[cell], 1) - 1)
	if rank >= d.capacity {
		d.dropped.Add(1)
		return rank, false
	}
	d.slots[cell*d.capacity+rank] = particle
	return rank, true
}

func (d *Dense) Count(c Coord) int {
	if !d.geom.Valid(c) {
		return 0
	}
	return min(int(d.counts[d.geom.Linear(c)]), d.capacity)
}

func (d *Dense) ParticleAt(c Coord, slot int) int32 {
	return d.slots[d.geom.Linear(c)*d.capacity+slot]
}

func (d *Dense) Capacity() int  { return d.capacity }
func (d *Dense) Dropped() int64 { return d.dropped.Load() }
func (d *Dense) Kind() Kind     { return KindDense }

func (d *Dense) Footprint() int64 {
	const word = int64(unsafe.Sizeof(int32(0)))
	return int64(len(d.counts)+len(d.slots)) * word
}
