package viz

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/nsearch/internal/nsearch"
	"github.com/san-kum/nsearch/internal/pointcloud"
	"github.com/san-kum/nsearch/internal/stats"
	"gonum.org/v1/gonum/spatial/r3"
)

const defaultHistory = 120

type WatchOptions struct {
	// Jitter is the per-axis displacement amplitude applied every tick.
	// Perturbed particles are clamped into the engine's grid.
	Jitter   float64
	Interval time.Duration
	// History is the number of ticks kept for the charts.
	History int
	Seed    int64
}

type tickMsg time.Time

// WatchModel perturbs the particle set every tick and reruns the search.
type WatchModel struct {
	engine    *nsearch.Engine
	positions []r3.Vec
	initial   []r3.Vec
	rng       *rand.Rand
	opts      WatchOptions

	running bool
	frame   int
	last    nsearch.Stats
	summary stats.Summary
	means   []float64
	timings []float64
}

// NewWatchModel binds positions to the engine and runs the first search.
// positions is mutated in place by every tick.
func NewWatchModel(e *nsearch.Engine, positions []r3.Vec, opts WatchOptions) (WatchModel, error) {
	if err := e.SetPositions(positions); err != nil {
		return WatchModel{}, err
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.History <= 0 {
		opts.History = defaultHistory
	}
	m := WatchModel{
		engine:    e,
		positions: positions,
		initial:   append([]r3.Vec(nil), positions...),
		rng:       rand.New(rand.NewSource(opts.Seed)),
		opts:      opts,
		running:   true,
		means:     make([]float64, 0, opts.History),
		timings:   make([]float64, 0, opts.History),
	}
	m.search()
	return m, nil
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m WatchModel) Init() tea.Cmd { return m.tick() }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
		case "r":
			copy(m.positions, m.initial)
			m.search()
		}
	case tickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *WatchModel) step() {
	pointcloud.Jitter(m.positions, m.opts.Jitter, m.rng)
	pointcloud.Clamp(m.positions, m.engine.Geometry())
	m.search()
	m.frame++
}

func (m *WatchModel) search() {
	m.last = m.engine.Run()
	m.summary = stats.Summarize(m.engine.NeighborCounts(), m.engine.NeighborCapacity())
	m.means = pushBounded(m.means, m.summary.Mean, m.opts.History)
	ms := float64(m.last.Elapsed().Microseconds()) / 1000
	m.timings = pushBounded(m.timings, ms, m.opts.History)
}

func pushBounded(xs []float64, v float64, limit int) []float64 {
	if len(xs) == limit {
		copy(xs, xs[1:])
		xs = xs[:limit-1]
	}
	return append(xs, v)
}

func (m WatchModel) Frame() int { return m.frame }

func (m WatchModel) Stats() nsearch.Stats { return m.last }

func (m WatchModel) View() string {
	var b strings.Builder
	status := StatusRunning.Render("RUNNING")
	if !m.running {
		status = StatusPaused.Render("PAUSED")
	}
	b.WriteString(Title.Render("NEIGHBORHOOD SEARCH") + "  " + status + "\n")
	b.WriteString(Subtle.Render(fmt.Sprintf("frame %d  jitter %g", m.frame, m.opts.Jitter)) + "\n\n")
	writeStats(&b, m.last, m.summary)

	if w := warnings(m.last); w != "" {
		b.WriteString("\n" + Warning.Render(w) + "\n")
	}
	if len(m.means) > 1 {
		chart := asciigraph.Plot(m.means,
			asciigraph.Height(6),
			asciigraph.Width(50),
			asciigraph.Caption("mean neighbors"))
		b.WriteString(Chart.Render(chart) + "\n")
	}
	if len(m.timings) > 1 {
		chart := asciigraph.Plot(m.timings,
			asciigraph.Height(4),
			asciigraph.Width(50),
			asciigraph.Caption("run time (ms)"))
		b.WriteString(Chart.Render(chart) + "\n")
	}
	b.WriteString("\n" + Separator(50) + "\n")
	b.WriteString(KeyHint.Render("space pause · r reset · q quit"))
	return Panel.Render(b.String())
}

// Watch runs the live view until the user quits or ctx is cancelled.
func Watch(ctx context.Context, e *nsearch.Engine, positions []r3.Vec, opts WatchOptions) error {
	m, err := NewWatchModel(e, positions, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
