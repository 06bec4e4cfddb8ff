package grid

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/RoaringBitmap/roaring/v2"
)

const (
	brickShift = 2
	brickEdge  = 1 << brickShift
	brickMask  = brickEdge - 1
	brickCells = brickEdge * brickEdge * brickEdge
)

// block holds the slots of one active cell.
type block struct {
	slots []int32
}

// page covers a brickEdge³ brick of cells. Pages and blocks are published
// with compare-and-swap, so concurrent inserters agree on a single instance.
type page struct {
	counts [brickCells]atomic.Int32
	blocks [brickCells]atomic.Pointer[block]
}

// Sparse allocates storage only for cells that received an insertion since
// the last Clear. A cell without a block is inactive.
type Sparse struct {
	geom     Geometry
	capacity int
	pageDims [3]int
	pages    []atomic.Pointer[page]

	// touched holds the page indices published since the last Clear, so
	// Clear and ActiveCells visit only those pages.
	touchedMu sync.Mutex
	touched   *roaring.Bitmap

	active    atomic.Int64
	livePages atomic.Int64
	dropped   atomic.Int64
}

var (
	_ Storage       = (*Sparse)(nil)
	_ UsageReporter = (*Sparse)(nil)
)

// NewSparse allocates only the page table; cells start inactive.
func NewSparse(geom Geometry, capacity int) (*Sparse, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	dims := geom.Dims()
	var pd [3]int
	for i, d := range dims {
		pd[i] = (d + brickMask) >> brickShift
	}
	return &Sparse{
		geom:     geom,
		capacity: capacity,
		pageDims: pd,
		pages:    make([]atomic.Pointer[page], pd[0]*pd[1]*pd[2]),
		touched:  roaring.New(),
	}, nil
}

func (s *Sparse) pageIndex(c Coord) int {
	return ((c[0]>>brickShift)*s.pageDims[1]+(c[1]>>brickShift))*s.pageDims[2] + (c[2] >> brickShift)
}

func local(c Coord) int {
	return (c[0]&brickMask)<<(2*brickShift) | (c[1]&brickMask)<<brickShift | c[2]&brickMask
}

func (s *Sparse) page(c Coord) *page {
	return s.pages[s.pageIndex(c)].Load()
}

func (s *Sparse) activatePage(c Coord) *page {
	idx := s.pageIndex(c)
	slot := &s.pages[idx]
	if p := slot.Load(); p != nil {
		return p
	}
	fresh := new(page)
	if slot.CompareAndSwap(nil, fresh) {
		s.livePages.Add(1)
		s.touchedMu.Lock()
		s.touched.Add(uint32(idx))
		s.touchedMu.Unlock()
		return fresh
	}
	return slot.Load()
}

func (s *Sparse) activateBlock(p *page, l int) *block {
	if b := p.blocks[l].Load(); b != nil {
		return b
	}
	fresh := &block{slots: make([]int32, s.capacity)}
	for i := range fresh.slots {
		fresh.slots[i] = -1
	}
	if p.blocks[l].CompareAndSwap(nil, fresh) {
		s.active.Add(1)
		return fresh
	}
	return p.blocks[l].Load()
}

// Clear deactivates every cell and releases the pages touched since the
// previous Clear.
func (s *Sparse) Clear() {
	s.touchedMu.Lock()
	it := s.touched.Iterator()
	for it.HasNext() {
		s.pages[it.Next()].Store(nil)
	}
	s.touched.Clear()
	s.touchedMu.Unlock()
	s.active.Store(0)
	s.livePages.Store(0)
	s.dropped.Store(0)
}

func (s *Sparse) Insert(c Coord, particle int32) (int, bool) {
	if !s.geom.Valid(c) {
		return -1, false
	}
	p := s.activatePage(c)
	l := local(c)
	b := s.activateBlock(p, l)
	rank := int(p.counts[l].Add(1) - 1)
	if rank >= s.capacity {
		s.dropped.Add(1)
		return rank, false
	}
	b.slots[rank] = particle
	return rank, true
}

func (s *Sparse) Count(c Coord) int {
	if !s.geom.Valid(c) {
		return 0
	}
	p := s.page(c)
	if p == nil {
		return 0
	}
	return min(int(p.counts[local(c)].Load()), s.capacity)
}

func (s *Sparse) ParticleAt(c Coord, slot int) int32 {
	return s.page(c).blocks[local(c)].Load().slots[slot]
}

func (s *Sparse) Capacity() int  { return s.capacity }
func (s *Sparse) Dropped() int64 { return s.dropped.Load() }
func (s *Sparse) Kind() Kind     { return KindSparse }

// ActiveCount returns the number of active cells.
func (s *Sparse) ActiveCount() int { return int(s.active.Load()) }

// MemoryUsage returns active cells / addressable cells.
func (s *Sparse) MemoryUsage() float64 {
	return float64(s.active.Load()) / float64(s.geom.Cells())
}

// LivePages returns the number of allocated pages.
func (s *Sparse) LivePages() int { return int(s.livePages.Load()) }

// Footprint counts the page table, live pages and active blocks.
func (s *Sparse) Footprint() int64 {
	table := int64(len(s.pages)) * int64(unsafe.Sizeof(atomic.Pointer[page]{}))
	pages := s.livePages.Load() * int64(unsafe.Sizeof(page{}))
	perBlock := int64(unsafe.Sizeof(block{})) + int64(s.capacity)*int64(unsafe.Sizeof(int32(0)))
	return table + pages + s.active.Load()*perBlock
}

// ActiveCells returns the linear indices of all active cells. It must not
// run concurrently with Insert.
func (s *Sparse) ActiveCells() *roaring.Bitmap {
	bm := roaring.New()
	pd := s.pageDims
	it := s.touched.Iterator()
	for it.HasNext() {
		pi := int(it.Next())
		p := s.pages[pi].Load()
		if p == nil {
			continue
		}
		base := Coord{
			(pi / (pd[1] * pd[2])) << brickShift,
			((pi / pd[2]) % pd[1]) << brickShift,
			(pi % pd[2]) << brickShift,
		}
		for l := 0; l < brickCells; l++ {
			if p.blocks[l].Load() == nil {
				continue
			}
			c := base.Add(Coord{l >> (2 * brickShift), (l >> brickShift) & brickMask, l & brickMask})
			bm.Add(uint32(s.geom.Linear(c)))
		}
	}
	return bm
}
