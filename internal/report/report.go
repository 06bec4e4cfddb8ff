// Package report renders neighbor-count histograms to image files.
package report

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/san-kum/nsearch/internal/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Options controls the rendered figure. Zero values pick the defaults.
type Options struct {
	Title  string
	Bins   int
	Width  vg.Length
	Height vg.Length
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "neighbor count distribution"
	}
	if o.Bins <= 0 {
		o.Bins = 30
	}
	if o.Width <= 0 {
		o.Width = 8 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 4 * vg.Inch
	}
	return o
}

// HistogramPlot draws one bar per stats.Histogram bucket, so bar edges
// fall on integer boundaries and no count straddles two bars.
func HistogramPlot(counts []int32, opts Options) (*plot.Plot, error) {
	opts = opts.withDefaults()
	bins := stats.Histogram(counts, opts.Bins)
	if len(bins) == 0 {
		return nil, fmt.Errorf("report: no samples")
	}
	hist := histogramBars(bins)

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "neighbors"
	p.Y.Label.Text = "particles"
	p.Add(hist)
	p.Add(plotter.NewGrid())
	return p, nil
}

func histogramBars(bins []stats.Bin) *plotter.Histogram {
	bars := make([]plotter.HistogramBin, len(bins))
	for i, b := range bins {
		bars[i] = plotter.HistogramBin{Min: b.Lo, Max: b.Hi, Weight: b.Count}
	}
	return &plotter.Histogram{
		Bins:      bars,
		Width:     bins[0].Hi - bins[0].Lo,
		FillColor: color.Gray{Y: 160},
		LineStyle: plotter.DefaultLineStyle,
	}
}

// SaveHistogram writes the histogram to path; the extension picks the
// format (png, svg, pdf, ...).
func SaveHistogram(path string, counts []int32, opts Options) error {
	opts = opts.withDefaults()
	p, err := HistogramPlot(counts, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.Save(opts.Width, opts.Height, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
