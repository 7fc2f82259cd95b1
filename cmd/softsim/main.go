package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/automation"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/export"
	"github.com/san-kum/softsim/internal/logging"
	"github.com/san-kum/softsim/internal/metrics"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/storage"
	"github.com/san-kum/softsim/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	dt          float64
	duration    float64
	iterations  int
	seed        int64
	dragPolicy  string
	parallel    bool
	recordEvery int
	configFile  string
	// trace selection for plot/analyze
	bodyIdx     int
	particleIdx int
	axisName    string
	phase       bool
	// export-svg
	frameIdx  int
	svgWidth  int
	svgHeight int
	outPath   string
	braille   bool
	// sweep
	iterList []int
	// montecarlo
	trials       int
	perturbation float64
	saveRuns     bool

	logger *log.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "softsim",
		Short:         "position-based soft body simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(os.Stderr, logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".softsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scene and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().Int64Var(&seed, "seed", 0, "seed recorded with the run")
	runCmd.Flags().IntVar(&recordEvery, "record-every", 1, "keep one frame every n steps")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot one particle coordinate of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	addTraceFlags(plotCmd)
	plotCmd.Flags().BoolVar(&phase, "phase", false, "also plot the finite-difference velocity")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one particle coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	addTraceFlags(analyzeCmd)

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and frames as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run frames as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render one frame of a run as svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&frameIdx, "frame", -1, "frame index (negative counts from the end)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")
	exportSVGCmd.Flags().BoolVar(&braille, "braille", false, "render through the terminal canvas")
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scene presets",
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scene with live visualization and dragging",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark a scene across solver settings",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	benchCmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "compare solver iteration counts on the same scene",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepScene,
	}
	addSceneFlags(sweepCmd)
	sweepCmd.Flags().IntSliceVar(&iterList, "iterations-list", []int{1, 2, 4, 8, 16}, "iteration counts to compare")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of scenes",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&saveRuns, "save", true, "store steps marked save")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "run a scene repeatedly from jittered starting positions",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addSceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 1, "random seed (0 seeds from the clock)")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturbation", 0.05, "max offset per coordinate")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd,
		presetsCmd, liveCmd, benchCmd, sweepCmd, scenarioCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scene file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "constraint passes per step")
	cmd.Flags().StringVar(&dragPolicy, "drag-policy", "freeze_all", "freeze_all or freeze_integration")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "step bodies concurrently")
}

func addTraceFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&bodyIdx, "body", 0, "body index")
	cmd.Flags().IntVar(&particleIdx, "particle", -1, "particle index (negative counts from the end)")
	cmd.Flags().StringVar(&axisName, "axis", "y", "coordinate: x, y or z")
}

// resolveConfig loads the scene from --config or a preset and applies any
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	case len(args) > 0:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (have %s)", args[0], strings.Join(config.ListPresets(), ", "))
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Changed("drag-policy") {
		cfg.DragPolicy = dragPolicy
	}
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("record-every") {
		cfg.RecordEvery = recordEvery
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	bodies, err := cfg.BuildBodies()
	if err != nil {
		return err
	}
	s, err := automation.NewScheduler(cfg, bodies, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("running", "scene", cfg.Scene, "bodies", len(bodies), "duration", cfg.Duration, "dt", cfg.Dt)
	start := time.Now()
	result, err := s.Run(ctx, cfg.SimConfig())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg.Scene, cfg.SimConfig(), bodies, result)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("steps: %d (%v)\n", result.StepsTaken, elapsed.Round(time.Millisecond))
	fmt.Printf("frames: %d\n", len(result.Frames))
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("%s: %.6f\n", name, result.Metrics[name])
	}
	for _, e := range result.Errors {
		logger.Warn("run stopped early", "err", e)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tITER\tSTEPS\tBODIES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Iterations,
			run.StepsTaken,
			len(run.Bodies),
		)
	}

	return w.Flush()
}

// loadTrace returns the selected particle coordinate of a stored run and
// its mean sample spacing.
func loadTrace(runID string) (*storage.RunMetadata, []float64, float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, 0, err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return nil, nil, 0, err
	}
	if bodyIdx < 0 || bodyIdx >= len(meta.Bodies) {
		return nil, nil, 0, fmt.Errorf("body %d out of range (run has %d)", bodyIdx, len(meta.Bodies))
	}

	p := particleIdx
	if p < 0 {
		p += meta.Bodies[bodyIdx].Particles
	}
	if p < 0 || p >= meta.Bodies[bodyIdx].Particles {
		return nil, nil, 0, fmt.Errorf("particle %d out of range", particleIdx)
	}

	axis, err := parseAxis(axisName)
	if err != nil {
		return nil, nil, 0, err
	}

	data := analysis.Trace(frames, bodyIdx, p, axis)
	if len(data) < 2 {
		return nil, nil, 0, fmt.Errorf("no data")
	}
	times := analysis.Times(frames)
	sampleDt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	return meta, data, sampleDt, nil
}

func parseAxis(s string) (analysis.Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return analysis.AxisX, nil
	case "y":
		return analysis.AxisY, nil
	case "z":
		return analysis.AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, data, sampleDt, err := loadTrace(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(data))

	caption := fmt.Sprintf("%s #%d %s vs time", meta.Bodies[bodyIdx].Name, particleIdx, axisName)
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()

	if phase {
		_, vel := analysis.PhaseTrace(data, sampleDt)
		fmt.Println(asciigraph.Plot(vel,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("velocity ("+axisName+")"),
		))
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, data, sampleDt, err := loadTrace(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	ps := analysis.PowerSpectrum(data)
	plotData := ps
	if len(ps) >= 8 {
		plotData = ps[:len(ps)/4]
	}
	fmt.Println(asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum ("+axisName+")"),
	))
	fmt.Println()

	freq := analysis.DominantFrequency(data, sampleDt)
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

// output returns stdout or the --out file.
func output() (io.WriteCloser, error) {
	if outPath == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outPath)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func loadRun(runID string) (*storage.RunMetadata, []sim.Frame, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, frames, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.ExportJSON(w, meta, frames)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to export")
	}
	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.WriteFramesCSV(w, frames)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, frames, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames in run %s", meta.ID)
	}

	i := frameIdx
	if i < 0 {
		i += len(frames)
	}
	if i < 0 || i >= len(frames) {
		return fmt.Errorf("frame %d out of range (run has %d)", frameIdx, len(frames))
	}
	frame := frames[i]

	links := make([][][2]int, len(meta.Bodies))
	for b, body := range meta.Bodies {
		links[b] = body.Links
	}

	var svg string
	if braille {
		views := make([]viz.BodyView, len(frame.Positions))
		for b := range frame.Positions {
			views[b] = viz.BodyView{Positions: frame.Positions[b]}
			if b < len(links) {
				views[b].Links = links[b]
			}
		}
		canvas := viz.NewCanvas(svgWidth/8, svgHeight/16)
		proj := viz.FitProjection(frame.Positions, canvas.SubWidth(), canvas.SubHeight(), 0.1)
		viz.DrawScene(canvas, proj, views)
		svg = export.CanvasToSVG(canvas, 4)
	} else {
		svg = export.FrameToSVG(frame.Positions, links, svgWidth, svgHeight)
	}

	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()
	_, err = io.WriteString(w, svg+"\n")
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tBODIES\tDT\tDURATION\tITER\tDRAG")
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		shapes := make([]string, len(p.Bodies))
		for i, b := range p.Bodies {
			shapes[i] = b.Shape
		}
		policy := p.DragPolicy
		if policy == "" {
			policy = softbody.DragFreezeAll.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%.1fs\t%d\t%s\n",
			name, strings.Join(shapes, ","), p.Dt, p.Duration, p.Iterations, policy)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	// the TUI owns the terminal
	quiet, err := logging.New(io.Discard, logLevel)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(cfg.Scene, cfg.BuildBodies, cfg.SimConfig(), quiet)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s\n\n", cfg.Scene)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITER\tPARALLEL\tSTEPS\tTIME\tSTEPS/SEC\tSTRETCH")

	for _, iter := range []int{1, 4, 8, 16} {
		for _, par := range []bool{false, true} {
			c := *cfg
			c.Iterations = iter
			c.Parallel = par

			bodies, err := c.BuildBodies()
			if err != nil {
				return err
			}
			s, err := automation.NewScheduler(&c, bodies, logger)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := s.Run(cmd.Context(), c.SimConfig())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%d\t%v\t%d\t%v\t%.0f\t%.5f\n",
				iter, par, result.StepsTaken, elapsed.Round(time.Microsecond),
				float64(result.StepsTaken)/elapsed.Seconds(), result.Metrics["constraint_error"])
		}
	}
	return w.Flush()
}

func sweepScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(iterList) == 0 {
		return fmt.Errorf("empty --iterations-list")
	}

	cfgs := make([]sim.Config, len(iterList))
	for i, n := range iterList {
		c := cfg.SimConfig()
		c.Iterations = n
		cfgs[i] = c
	}

	results, err := sim.Sweep(cmd.Context(), cfg.BuildBodies, cfgs, func(s *sim.Scheduler) {
		s.SetLogger(logger)
		for _, m := range metrics.Standard(cfg.Dt) {
			s.AddMetric(m)
		}
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITER\tSTEPS\tSTRETCH\tKINETIC\tSTABILITY")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.5f\t%.4f\t%.3f\n",
			iterList[i], r.StepsTaken, r.Metrics["constraint_error"], r.Metrics["kinetic_energy"], r.Metrics["stability"])
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var st *storage.Store
	if saveRuns {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	} else {
		for i := range sc.Steps {
			sc.Steps[i].Save = false
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := automation.RunScenario(ctx, sc, st, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tSTEPS\tSTRETCH\tERRORS")
	for _, r := range results {
		runID := r.RunID
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.5f\t%d\n",
			r.Name, runID, r.Result.StepsTaken, r.Result.Metrics["constraint_error"], len(r.Result.Errors))
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	// a scene without a seed falls back to the flag default
	if cfg.Seed == 0 {
		cfg.Seed = seed
	}
	mc := &automation.MonteCarloConfig{
		Scene:        cfg,
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         cfg.Seed,
	}
	results, err := automation.RunMonteCarlo(cmd.Context(), mc, logger)
	if err != nil {
		return err
	}

	worst := 0.0
	for _, r := range results {
		worst = max(worst, r.MaxStretch)
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("stable: %d\n", stable)
	fmt.Printf("unstable: %d\n", unstable)
	fmt.Printf("worst stretch: %.5f\n", worst)
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
