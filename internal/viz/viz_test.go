package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/nsearch/internal/grid"
	"github.com/san-kum/nsearch/internal/nsearch"
	"github.com/san-kum/nsearch/internal/pointcloud"
	"github.com/san-kum/nsearch/internal/stats"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestUsageBar(t *testing.T) {
	tests := []struct {
		fraction     float64
		full, hollow int
	}{
		{0, 0, 10},
		{0.5, 5, 5},
		{1, 10, 0},
		{1.7, 10, 0},
		{-0.2, 0, 10},
	}
	for _, tt := range tests {
		bar := UsageBar(tt.fraction, 10)
		if got := strings.Count(bar, "█"); got != tt.full {
			t.Errorf("UsageBar(%v) filled = %d, want %d", tt.fraction, got, tt.full)
		}
		if got := strings.Count(bar, "░"); got != tt.hollow {
			t.Errorf("UsageBar(%v) empty = %d, want %d", tt.fraction, got, tt.hollow)
		}
	}
	if UsageBar(0.5, 0) != "" {
		t.Error("zero width should render nothing")
	}
}

func TestRenderSummary(t *testing.T) {
	counts := []int32{1, 2, 1}
	st := nsearch.Stats{
		Particles:   3,
		OutOfDomain: 2,
		Pairs:       4,
		Storage:     grid.KindSparse,
		MemoryUsage: 0.25,
		Footprint:   4096,
	}
	out := RenderSummary("cube", st, stats.Summarize(counts, 60), stats.Histogram(counts, 10))

	for _, want := range []string{"cube", "particles", "memory usage", "4.0 KiB", "out of domain: 2", "neighbor counts 1..2"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "truncated rows") {
		t.Error("summary reports truncation that did not happen")
	}
}

func TestRenderSummaryDense(t *testing.T) {
	st := nsearch.Stats{Particles: 1, Storage: grid.KindDense}
	out := RenderSummary("single", st, stats.Summarize([]int32{0}, 8), stats.Histogram([]int32{0}, 10))
	if strings.Contains(out, "memory usage") {
		t.Error("dense storage has no memory usage line")
	}
	if strings.Contains(out, "neighbor counts") {
		t.Error("a single bucket should not be charted")
	}
}

func newTestWatch(t *testing.T) (WatchModel, []r3.Vec, []r3.Vec) {
	t.Helper()
	pts := pointcloud.Cube(r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}, 0.3, 0.05)
	initial := append([]r3.Vec(nil), pts...)
	e, err := nsearch.New(pts, nsearch.WithSupportRadius(0.1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m, err := NewWatchModel(e, pts, WatchOptions{
		Jitter:  0.01,
		History: 3,
		Seed:    7,
	})
	if err != nil {
		t.Fatalf("NewWatchModel: %v", err)
	}
	return m, pts, initial
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m WatchModel, msg tea.Msg) (WatchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	wm, ok := next.(WatchModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return wm, cmd
}

func TestWatchInitialSearch(t *testing.T) {
	m, pts, _ := newTestWatch(t)
	if m.Frame() != 0 {
		t.Errorf("frame = %d, want 0", m.Frame())
	}
	if got := m.Stats().Particles; got != len(pts) {
		t.Errorf("particles = %d, want %d", got, len(pts))
	}
	if m.Stats().Pairs == 0 {
		t.Error("lattice with spacing below the radius should have neighbors")
	}
	if m.Init() == nil {
		t.Error("Init should schedule a tick")
	}
}

func TestWatchTickPerturbs(t *testing.T) {
	m, pts, initial := newTestWatch(t)
	m, cmd := update(t, m, tickMsg{})
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	if m.Frame() != 1 {
		t.Errorf("frame = %d, want 1", m.Frame())
	}
	moved := 0
	for i := range pts {
		if pts[i] != initial[i] {
			moved++
		}
		for _, v := range []float64{pts[i].X, pts[i].Y, pts[i].Z} {
			if v < 0 || v >= 1 {
				t.Fatalf("particle %d left the domain: %v", i, pts[i])
			}
		}
	}
	if moved == 0 {
		t.Error("tick did not move any particle")
	}
	if got := m.Stats().OutOfDomain; got != 0 {
		t.Errorf("%d clamped particles fell outside the grid", got)
	}
}

func TestWatchHistoryBounded(t *testing.T) {
	m, _, _ := newTestWatch(t)
	for range 5 {
		m, _ = update(t, m, tickMsg{})
	}
	if len(m.means) != 3 || len(m.timings) != 3 {
		t.Errorf("history = %d/%d, want 3", len(m.means), len(m.timings))
	}
	if m.means[2] != m.summary.Mean {
		t.Error("latest mean should be last in history")
	}
}

func TestWatchPauseAndReset(t *testing.T) {
	m, pts, initial := newTestWatch(t)
	m, _ = update(t, m, key(" "))
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("view should show the paused state")
	}
	m, _ = update(t, m, tickMsg{})
	if m.Frame() != 0 {
		t.Errorf("paused tick advanced to frame %d", m.Frame())
	}

	m, _ = update(t, m, key(" "))
	m, _ = update(t, m, tickMsg{})
	m, _ = update(t, m, key("r"))
	for i := range pts {
		if pts[i] != initial[i] {
			t.Fatalf("particle %d not reset: %v != %v", i, pts[i], initial[i])
		}
	}
	if !strings.Contains(m.View(), "RUNNING") {
		t.Error("view should show the running state")
	}
}

func TestWatchQuit(t *testing.T) {
	m, _, _ := newTestWatch(t)
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := update(t, m, k)
		if cmd == nil {
			t.Fatalf("%q should quit", k.String())
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%q produced %T, want tea.QuitMsg", k.String(), cmd())
		}
	}
}

func TestNewWatchModelLengthMismatch(t *testing.T) {
	e, err := nsearch.New(make([]r3.Vec, 4))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewWatchModel(e, make([]r3.Vec, 5), WatchOptions{}); err == nil {
		t.Error("expected particle count mismatch")
	}
}
