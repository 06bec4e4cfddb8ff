package nsearch_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/nsearch/internal/grid"
	"github.com/san-kum/nsearch/internal/nsearch"
	"github.com/san-kum/nsearch/internal/pointcloud"
	"gonum.org/v1/gonum/spatial/r3"
)

var _ = Describe("Engine", func() {
	var (
		positions []r3.Vec
		engine    *nsearch.Engine
	)

	for _, kind := range []grid.Kind{grid.KindDense, grid.KindSparse} {
		Context("with "+kind.String()+" storage", func() {
			BeforeEach(func() {
				positions = pointcloud.Cube(r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}, 0.2, 0.02)
				pointcloud.Jitter(positions, 0.001, rand.New(rand.NewSource(1)))

				var err error
				engine, err = nsearch.New(positions,
					nsearch.WithSupportRadius(0.03),
					nsearch.WithStorage(kind),
				)
				Expect(err).NotTo(HaveOccurred())
			})

			It("keeps every count within the neighbor capacity", func() {
				engine.Run()
				for _, c := range engine.NeighborCounts() {
					Expect(c).To(BeNumerically(">=", 0))
					Expect(int(c)).To(BeNumerically("<=", engine.NeighborCapacity()))
				}
			})

			It("pads every row with the sentinel", func() {
				engine.Run()
				width := engine.NeighborCapacity()
				rows := engine.NeighborIndices()
				for i, c := range engine.NeighborCounts() {
					row := rows[i*width : (i+1)*width]
					Expect(row[:c]).NotTo(ContainElement(nsearch.Sentinel))
					for _, v := range row[c:] {
						Expect(v).To(Equal(nsearch.Sentinel))
					}
				}
			})

			It("only records particles inside the support radius", func() {
				engine.Run()
				for i := range positions {
					for _, j := range engine.Neighbors(i) {
						Expect(int(j)).NotTo(Equal(i))
						Expect(r3.Norm(r3.Sub(positions[i], positions[j]))).To(BeNumerically("<", 0.03))
					}
				}
			})

			It("is symmetric when nothing saturates", func() {
				st := engine.Run()
				Expect(st.Saturated()).To(BeFalse())
				for i := range positions {
					for _, j := range engine.Neighbors(i) {
						Expect(engine.Neighbors(int(j))).To(ContainElement(int32(i)))
					}
				}
			})

			It("follows positions updated in place between runs", func() {
				engine.Run()
				before := engine.LastStats().Pairs

				for i := range positions {
					positions[i] = r3.Scale(2, positions[i])
				}
				st := engine.Run()
				Expect(st.Pairs).To(BeNumerically("<", before))
			})
		})
	}

	Describe("sparse memory accounting", func() {
		It("reports the active cell fraction of the last run", func() {
			positions = []r3.Vec{{X: 5, Y: 5, Z: 5}, {X: 5.01, Y: 5, Z: 5}, {X: 1, Y: 1, Z: 1}}
			var err error
			engine, err = nsearch.New(positions,
				nsearch.WithDomain(r3.Vec{X: 10, Y: 10, Z: 10}),
				nsearch.WithSupportRadius(0.5),
				nsearch.WithStorage(grid.KindSparse),
			)
			Expect(err).NotTo(HaveOccurred())

			st := engine.Run()
			Expect(st.MemoryUsage).To(BeNumerically("~", 2.0/8000.0, 1e-12))

			engine.DeactivateStorage()
			usage, ok := engine.MemoryUsage()
			Expect(ok).To(BeTrue())
			Expect(usage).To(BeZero())
		})
	})
})
