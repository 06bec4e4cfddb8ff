// Package stats summarizes neighbor-count distributions.
package stats

import (
	"math"
	"slices"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type Summary struct {
	Particles int
	Capacity  int
	Mean      float64
	StdDev    float64
	Min       float64
	Max       float64
	Total     float64

	// Isolated is the number of particles without neighbors.
	Isolated int
	// Full is the number of rows filled to capacity.
	Full int
}

// Summarize computes the distribution of neighbor counts. capacity is the
// row width; rows at capacity may have been truncated.
func Summarize(counts []int32, capacity int) Summary {
	s := Summary{Particles: len(counts), Capacity: capacity}
	if len(counts) == 0 {
		return s
	}
	x := vek.FromInt32(counts)
	s.Total = vek.Sum(x)
	s.Min = vek.Min(x)
	s.Max = vek.Max(x)
	if len(x) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	} else {
		s.Mean = x[0]
	}
	for _, c := range counts {
		if c == 0 {
			s.Isolated++
		}
		if int(c) >= capacity {
			s.Full++
		}
	}
	return s
}

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  float64
}

// Histogram buckets integer counts. Each bin spans an equal integer width so
// that no count straddles two bins; at most maxBins are returned.
func Histogram(counts []int32, maxBins int) []Bin {
	if len(counts) == 0 || maxBins < 1 {
		return nil
	}
	x := vek.FromInt32(counts)
	slices.Sort(x)

	lo, hi := x[0], x[len(x)-1]+1
	width := math.Ceil((hi - lo) / float64(maxBins))
	n := int((hi - lo) / width)
	if float64(n)*width < hi-lo {
		n++
	}
	dividers := floats.Span(make([]float64, n+1), lo, lo+float64(n)*width)
	hist := stat.Histogram(nil, dividers, x, nil)

	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: hist[i]}
	}
	return bins
}

// Counts extracts the bucket counts for plotting.
func Counts(bins []Bin) []float64 {
	out := make([]float64, len(bins))
	for i, b := range bins {
		out[i] = b.Count
	}
	return out
}
