package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/nsearch/internal/grid"
	"github.com/san-kum/nsearch/internal/nsearch"
	"github.com/san-kum/nsearch/internal/stats"
)

// RenderSummary formats one run: engine statistics, the neighbor-count
// distribution and, when there is more than one bucket, its histogram.
func RenderSummary(title string, st nsearch.Stats, sum stats.Summary, bins []stats.Bin) string {
	var b strings.Builder
	b.WriteString(Title.Render(title) + "\n\n")
	writeStats(&b, st, sum)

	if w := warnings(st); w != "" {
		b.WriteString("\n" + Warning.Render(w) + "\n")
	}
	if len(bins) > 1 {
		caption := fmt.Sprintf("neighbor counts %.0f..%.0f", bins[0].Lo, bins[len(bins)-1].Hi-1)
		chart := asciigraph.Plot(stats.Counts(bins),
			asciigraph.Height(8),
			asciigraph.Width(48),
			asciigraph.Caption(caption))
		b.WriteString(Chart.Render(chart) + "\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

func writeStats(b *strings.Builder, st nsearch.Stats, sum stats.Summary) {
	b.WriteString(metric("particles", strconv.Itoa(st.Particles)))
	b.WriteString(metric("storage", st.Storage.String()))
	b.WriteString(metric("pairs", strconv.FormatInt(st.Pairs, 10)))
	b.WriteString(metric("mean neighbors", fmt.Sprintf("%.2f ± %.2f", sum.Mean, sum.StdDev)))
	b.WriteString(metric("min / max", fmt.Sprintf("%.0f / %.0f", sum.Min, sum.Max)))
	b.WriteString(metric("isolated", strconv.Itoa(sum.Isolated)))
	b.WriteString(metric("full rows", fmt.Sprintf("%d (capacity %d)", sum.Full, sum.Capacity)))
	b.WriteString(metric("assign", st.AssignDuration.String()))
	b.WriteString(metric("search", st.SearchDuration.String()))
	if st.Storage == grid.KindSparse {
		b.WriteString(MetricLabel.Render("memory usage") +
			UsageBar(st.MemoryUsage, 20) +
			MetricValue.Render(fmt.Sprintf(" %.1f%%", 100*st.MemoryUsage)) + "\n")
	}
	b.WriteString(metric("footprint", FormatBytes(st.Footprint)))
}

func warnings(st nsearch.Stats) string {
	var parts []string
	if st.OutOfDomain > 0 {
		parts = append(parts, fmt.Sprintf("out of domain: %d", st.OutOfDomain))
	}
	if st.DroppedInsertions > 0 {
		parts = append(parts, fmt.Sprintf("dropped insertions: %d", st.DroppedInsertions))
	}
	if st.TruncatedRows > 0 {
		parts = append(parts, fmt.Sprintf("truncated rows: %d", st.TruncatedRows))
	}
	return strings.Join(parts, "  ")
}

// FormatBytes renders a byte count with binary units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
