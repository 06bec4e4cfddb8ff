package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/nsearch/internal/config"
	"github.com/san-kum/nsearch/internal/grid"
	"github.com/san-kum/nsearch/internal/logging"
	"github.com/san-kum/nsearch/internal/nsearch"
	"github.com/san-kum/nsearch/internal/pointcloud"
	"github.com/san-kum/nsearch/internal/report"
	"github.com/san-kum/nsearch/internal/sph"
	"github.com/san-kum/nsearch/internal/stats"
	"github.com/san-kum/nsearch/internal/storage"
	"github.com/san-kum/nsearch/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

var (
	outDir    string
	logLevel  string
	logFormat string

	configFile string
	preset     string

	radius      float64
	cellSize    float64
	domain      float64
	storageKind string
	cellCap     int
	neighborCap int
	workers     int

	plyFile     string
	cubeOrigin  float64
	cubeEdge    float64
	cubeSpacing float64
	jitter      float64
	seed        int64

	compress     bool
	noSave       bool
	particleMass float64
	runBins      int
	iterations   int
	benchStep    float64
	watchStep    float64
	interval     time.Duration
	reportOut    string
	reportBins   int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nsearch",
		Short:        "fixed-radius neighborhood search on a uniform grid",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&outDir, "out", config.DefaultOutputDir, "run store directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run one search and store the neighbor lists",
		RunE:  runSearch,
	}
	addSearchFlags(runCmd)
	runCmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress stored neighbor lists")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "print the summary without storing the run")
	runCmd.Flags().IntVar(&runBins, "bins", 20, "histogram buckets in the summary")
	runCmd.Flags().Float64Var(&particleMass, "mass", 1, "particle mass for the stored SPH density")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time repeated searches on dense and sparse storage",
		Long: "bench perturbs the particles before every search and reports per-run timings.\n" +
			"Both storage variants are measured unless --storage is given.",
		RunE: benchSearch,
	}
	addSearchFlags(benchCmd)
	benchCmd.Flags().IntVar(&iterations, "iterations", 20, "searches per storage variant")
	benchCmd.Flags().Float64Var(&benchStep, "step", 0.001, "per-run displacement amplitude")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "live view of a perturbed particle set",
		RunE:  watchSearch,
	}
	addSearchFlags(watchCmd)
	watchCmd.Flags().Float64Var(&watchStep, "step", 0.002, "per-tick displacement amplitude")
	watchCmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "tick interval")

	generateCmd := &cobra.Command{
		Use:   "generate [file.ply]",
		Short: "write a cube lattice as an ascii PLY file",
		Args:  cobra.ExactArgs(1),
		RunE:  generateCube,
	}
	addSourceFlags(generateCmd)
	generateCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	generateCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "plot the neighbor-count histogram of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  reportRun,
	}
	reportCmd.Flags().StringVarP(&reportOut, "output", "o", "", "image path (default <out>/<run_id>/histogram.png)")
	reportCmd.Flags().IntVar(&reportBins, "bins", 30, "histogram buckets")

	rootCmd.AddCommand(runCmd, benchCmd, watchCmd, generateCmd, presetsCmd, listCmd, reportCmd)
	return rootCmd
}

func addSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&radius, "radius", config.DefaultSupportRadius, "support radius")
	f.Float64Var(&cellSize, "cell-size", 0, "grid cell size (0 uses the support radius)")
	f.Float64Var(&domain, "domain", config.DefaultDomainSize, "domain edge length")
	f.StringVar(&storageKind, "storage", config.DefaultStorage, "cell storage (dense, sparse)")
	f.IntVar(&cellCap, "cell-capacity", config.DefaultCellCapacity, "particles per cell")
	f.IntVar(&neighborCap, "neighbor-capacity", config.DefaultNeighborCapacity, "neighbors per particle")
	f.IntVar(&workers, "workers", 0, "worker goroutines (0 uses all CPUs, 1 runs serially)")
	addSourceFlags(cmd)
}

func addSourceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&plyFile, "ply", "", "read positions from a PLY file")
	f.Float64Var(&cubeOrigin, "cube-origin", config.DefaultCubeOrigin, "lattice corner (all axes)")
	f.Float64Var(&cubeEdge, "cube-edge", config.DefaultCubeEdge, "lattice edge length")
	f.Float64Var(&cubeSpacing, "cube-spacing", config.DefaultCubeSpacing, "lattice spacing")
	f.Float64Var(&jitter, "jitter", 0, "initial random displacement amplitude")
	f.Int64Var(&seed, "seed", 42, "random seed")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return nil, err
	}
	return logging.NewWriter(cmd.ErrOrStderr(), level, format), nil
}

// resolveConfig layers the config file (or preset) and then explicitly set
// flags over the defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case preset != "":
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		cfg = p
	}

	f := cmd.Flags()
	if f.Changed("radius") {
		cfg.Search.SupportRadius = radius
	}
	if f.Changed("cell-size") {
		cfg.Search.CellSize = cellSize
	}
	if f.Changed("domain") {
		cfg.Search.DomainSize = [3]float64{domain, domain, domain}
	}
	if f.Changed("storage") {
		cfg.Search.Storage = storageKind
	}
	if f.Changed("cell-capacity") {
		cfg.Search.CellCapacity = cellCap
	}
	if f.Changed("neighbor-capacity") {
		cfg.Search.NeighborCapacity = neighborCap
	}
	if f.Changed("workers") {
		cfg.Search.Workers = workers
	}
	if f.Changed("ply") {
		cfg.Source.PLY = plyFile
	}
	if f.Changed("cube-origin") {
		cfg.Source.Cube.Origin = [3]float64{cubeOrigin, cubeOrigin, cubeOrigin}
	}
	if f.Changed("cube-edge") {
		cfg.Source.Cube.Edge = cubeEdge
	}
	if f.Changed("cube-spacing") {
		cfg.Source.Cube.Spacing = cubeSpacing
	}
	if f.Changed("jitter") {
		cfg.Source.Jitter = jitter
	}
	if f.Changed("seed") {
		cfg.Source.Seed = seed
	}
	if f.Changed("compress") {
		cfg.Output.Compress = compress
	}
	if f.Changed("out") || configFile == "" {
		cfg.Output.Dir = outDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadPositions reads the PLY source or builds the cube lattice, then
// applies the configured jitter. The returned label names the source.
func loadPositions(src config.SourceConfig) ([]r3.Vec, string, error) {
	var (
		pts   []r3.Vec
		label string
	)
	if src.PLY != "" {
		var err error
		pts, err = pointcloud.ReadPLYFile(src.PLY)
		if err != nil {
			return nil, "", err
		}
		label = filepath.Base(src.PLY)
	} else {
		o := src.Cube.Origin
		pts = pointcloud.Cube(r3.Vec{X: o[0], Y: o[1], Z: o[2]}, src.Cube.Edge, src.Cube.Spacing)
		label = fmt.Sprintf("cube(edge=%g, spacing=%g)", src.Cube.Edge, src.Cube.Spacing)
	}
	if src.Jitter > 0 {
		pointcloud.Jitter(pts, src.Jitter, rand.New(rand.NewSource(src.Seed)))
	}
	return pts, label, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	pts, source, err := loadPositions(cfg.Source)
	if err != nil {
		return err
	}

	e, err := nsearch.New(pts, nsearch.FromConfig(cfg.Search), nsearch.WithLogger(log))
	if err != nil {
		return err
	}
	st := e.Run()
	counts := e.NeighborCounts()
	sum := stats.Summarize(counts, e.NeighborCapacity())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.RenderSummary(source, st, sum, stats.Histogram(counts, runBins)))
	if noSave {
		return nil
	}

	fluid := sph.Fluid{H: cfg.Search.SupportRadius, Mass: particleMass}
	rho := fluid.Density(pts, e, e.Backend())
	metrics := runMetrics(st, sum)
	if len(rho) > 0 {
		metrics["mean_density"] = stat.Mean(rho, nil)
		metrics["max_density"] = floats.Max(rho)
	}

	store := storage.New(cfg.Output.Dir).WithCompression(cfg.Output.Compress)
	if err := store.Init(); err != nil {
		return err
	}
	id, err := store.Save(storage.RunMetadata{
		Source:           source,
		SupportRadius:    cfg.Search.SupportRadius,
		CellSize:         cfg.Search.EffectiveCellSize(),
		DomainSize:       cfg.Search.DomainSize,
		Storage:          st.Storage.String(),
		CellCapacity:     cfg.Search.CellCapacity,
		NeighborCapacity: cfg.Search.NeighborCapacity,
		Metrics:          metrics,
	}, e.NeighborIndices(), counts)
	if err != nil {
		return err
	}
	log.Info("run saved", "id", id, "dir", cfg.Output.Dir)
	fmt.Fprintf(out, "saved run %s\n", id)
	return nil
}

func runMetrics(st nsearch.Stats, sum stats.Summary) map[string]float64 {
	return map[string]float64{
		"mean_neighbors":     sum.Mean,
		"stddev_neighbors":   sum.StdDev,
		"min_neighbors":      sum.Min,
		"max_neighbors":      sum.Max,
		"isolated":           float64(sum.Isolated),
		"full_rows":          float64(sum.Full),
		"pairs":              float64(st.Pairs),
		"out_of_domain":      float64(st.OutOfDomain),
		"dropped_insertions": float64(st.DroppedInsertions),
		"truncated_rows":     float64(st.TruncatedRows),
		"memory_usage":       st.MemoryUsage,
		"footprint_bytes":    float64(st.Footprint),
		"assign_ms":          float64(st.AssignDuration.Microseconds()) / 1000,
		"search_ms":          float64(st.SearchDuration.Microseconds()) / 1000,
	}
}

func benchSearch(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", iterations)
	}
	initial, source, err := loadPositions(cfg.Source)
	if err != nil {
		return err
	}

	kinds := []grid.Kind{grid.KindDense, grid.KindSparse}
	if cmd.Flags().Changed("storage") {
		kinds = []grid.Kind{cfg.Search.StorageKind()}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "benchmarking %s, %d particles, %d runs\n\n", source, len(initial), iterations)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STORAGE\tPER RUN\tASSIGN\tSEARCH\tRUNS/SEC\tFOOTPRINT\tMEMORY\tMEAN NEIGHBORS")

	for _, kind := range kinds {
		pts := append([]r3.Vec(nil), initial...)
		e, err := nsearch.New(pts, nsearch.FromConfig(cfg.Search), nsearch.WithStorage(kind), nsearch.WithLogger(log))
		if err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(cfg.Source.Seed))

		var assign, search time.Duration
		var last nsearch.Stats
		for range iterations {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			pointcloud.Jitter(pts, benchStep, rng)
			pointcloud.Clamp(pts, e.Geometry())
			last = e.Run()
			assign += last.AssignDuration
			search += last.SearchDuration
		}

		n := time.Duration(iterations)
		perRun := (assign + search) / n
		fmt.Fprintf(w, "%s\t%v\t%v\t%v\t%.1f\t%s\t%.2f%%\t%.2f\n",
			kind, perRun, assign/n, search/n, 1/perRun.Seconds(),
			viz.FormatBytes(last.Footprint), 100*last.MemoryUsage, last.MeanNeighbors())
	}
	return w.Flush()
}

func watchSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	pts, _, err := loadPositions(cfg.Source)
	if err != nil {
		return err
	}
	// The alt screen owns the terminal, so the engine stays quiet.
	e, err := nsearch.New(pts, nsearch.FromConfig(cfg.Search), nsearch.WithLogger(logging.Noop()))
	if err != nil {
		return err
	}
	return viz.Watch(cmd.Context(), e, pts, viz.WatchOptions{
		Jitter:   watchStep,
		Interval: interval,
		Seed:     cfg.Source.Seed,
	})
}

func generateCube(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Source.PLY != "" {
		return fmt.Errorf("generate writes a lattice; drop --ply")
	}
	pts, source, err := loadPositions(cfg.Source)
	if err != nil {
		return err
	}
	if err := pointcloud.WritePLYFile(args[0], pts); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d particles (%s) to %s\n", len(pts), source, args[0])
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRADIUS\tCELL\tDOMAIN\tSTORAGE\tCELL CAP\tNEIGHBOR CAP")
	for _, name := range config.ListPresets() {
		s := config.GetPreset(name).Search
		fmt.Fprintf(w, "%s\t%g\t%g\t%g×%g×%g\t%s\t%d\t%d\n",
			name, s.SupportRadius, s.EffectiveCellSize(),
			s.DomainSize[0], s.DomainSize[1], s.DomainSize[2],
			s.StorageKind(), s.CellCapacity, s.NeighborCapacity)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(outDir).List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSOURCE\tPARTICLES\tRADIUS\tSTORAGE\tMEAN NEIGHBORS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\t%.2f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Source,
			run.Particles,
			run.SupportRadius,
			run.Storage,
			run.Metrics["mean_neighbors"],
		)
	}
	return w.Flush()
}

func reportRun(cmd *cobra.Command, args []string) error {
	store := storage.New(outDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	counts, err := store.LoadCounts(meta.ID)
	if err != nil {
		return err
	}

	path := reportOut
	if path == "" {
		path = filepath.Join(outDir, meta.ID, "histogram.png")
	}
	err = report.SaveHistogram(path, counts, report.Options{
		Title: fmt.Sprintf("%s, r=%g", meta.Source, meta.SupportRadius),
		Bins:  reportBins,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
