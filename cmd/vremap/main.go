package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/vremap/internal/config"
	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/history"
	"github.com/san-kum/vremap/internal/levels"
	"github.com/san-kum/vremap/internal/logs"
	"github.com/san-kum/vremap/internal/pipeline"
	"github.com/san-kum/vremap/internal/remap"
	"github.com/san-kum/vremap/internal/store"
	"github.com/san-kum/vremap/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	outFile     string
	configFile  string
	preset      string
	heightsSpec string
	domainSpec  string
	levelsTable string
	workers     int
	varsList    string
	// Forcing point and gradient options
	pointLat float64
	pointLon float64
	boxSize  float64
	strategy string
	maskName string
	gradVars string
	uTraj    float64
	vTraj    float64
	// Trajectory options
	trajStart      int
	trajSteps      int
	trajIterations int
	// Profile and CSV export options
	plotVar string
	timeIdx int
	// Half-level pressure display
	surfacePressure float64
	// Logging
	logLevel string
	logDir   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vremap [file]",
		Short: "ERA5 model-level data onto height levels",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the explorer when called with a file
			if len(args) == 1 {
				return tui.Explore(args[0])
			}
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".vremap", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "write a JSON log file (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", ".", "log directory")

	remapCmd := &cobra.Command{
		Use:   "remap [input]",
		Short: "interpolate model levels onto a height grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemap,
	}
	remapCmd.Flags().StringVar(&outFile, "out", "out.nc", "output file")
	remapCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	remapCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	remapCmd.Flags().StringVar(&heightsSpec, "heights", "0:10000:40", "height grid start:stop:step in metres")
	remapCmd.Flags().StringVar(&domainSpec, "domain", "", "domain latmin:latmax:lonmin:lonmax")
	remapCmd.Flags().StringVar(&levelsTable, "levels-table", "", "level coefficient table (default embedded L137)")
	remapCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = all cores)")
	remapCmd.Flags().StringVar(&varsList, "vars", "", "comma-separated input variables (default all)")

	forcingsCmd := &cobra.Command{
		Use:   "forcings [input]",
		Short: "single-column forcing profiles around a point",
		Args:  cobra.ExactArgs(1),
		RunE:  runForcings,
	}
	forcingsCmd.Flags().StringVar(&outFile, "out", "out.nc", "output file")
	forcingsCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	forcingsCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	forcingsCmd.Flags().StringVar(&heightsSpec, "heights", "0:10000:40", "height grid start:stop:step in metres")
	forcingsCmd.Flags().StringVar(&domainSpec, "domain", "", "domain latmin:latmax:lonmin:lonmax")
	forcingsCmd.Flags().StringVar(&levelsTable, "levels-table", "", "level coefficient table (default embedded L137)")
	forcingsCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = all cores)")
	forcingsCmd.Flags().StringVar(&varsList, "vars", "", "comma-separated input variables (default all)")
	forcingsCmd.Flags().Float64Var(&pointLat, "lat", 13.3, "point latitude")
	forcingsCmd.Flags().Float64Var(&pointLon, "lon", -57.717, "point longitude")
	forcingsCmd.Flags().Float64Var(&boxSize, "box-size", 0, "domain width in degrees around the point (overrides --domain)")
	forcingsCmd.Flags().StringVar(&strategy, "strategy", "both", "gradient strategy (regression, boundary, both)")
	forcingsCmd.Flags().StringVar(&maskName, "mask", "ocean", "horizontal mask (ocean or empty)")
	forcingsCmd.Flags().StringVar(&gradVars, "gradients", "", "comma-separated gradient variables")
	forcingsCmd.Flags().Float64Var(&uTraj, "u-traj", -6, "zonal advection velocity")
	forcingsCmd.Flags().Float64Var(&vTraj, "v-traj", 0, "meridional advection velocity")

	trajectoryCmd := &cobra.Command{
		Use:   "trajectory [input]",
		Short: "trace a point backwards through the wind field",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrajectory,
	}
	trajectoryCmd.Flags().StringVar(&outFile, "out", "out.nc", "output file")
	trajectoryCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	trajectoryCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	trajectoryCmd.Flags().StringVar(&levelsTable, "levels-table", "", "level coefficient table (default embedded L137)")
	trajectoryCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines (0 = all cores)")
	trajectoryCmd.Flags().Float64Var(&pointLat, "lat", 13.3, "end point latitude")
	trajectoryCmd.Flags().Float64Var(&pointLon, "lon", -57.717, "end point longitude")
	trajectoryCmd.Flags().IntVar(&trajStart, "start", 30, "time index of the end point")
	trajectoryCmd.Flags().IntVar(&trajSteps, "steps", 3, "analysis steps to trace back")
	trajectoryCmd.Flags().IntVar(&trajIterations, "iterations", 10, "refinement iterations per step")

	infoCmd := &cobra.Command{
		Use:   "info [file]",
		Short: "show coordinates, attributes and per-variable statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	levelsCmd := &cobra.Command{
		Use:   "levels",
		Short: "show the hybrid level coefficient table",
		RunE:  runLevels,
	}
	levelsCmd.Flags().StringVar(&levelsTable, "table", "", "level coefficient table (default embedded L137)")
	levelsCmd.Flags().Float64Var(&surfacePressure, "psurf", 101325, "surface pressure for the half-level pressure column")

	profileCmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "plot one variable against its vertical coordinate",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfile,
	}
	profileCmd.Flags().StringVar(&plotVar, "var", "", "variable to plot")
	profileCmd.Flags().Float64Var(&pointLat, "lat", 13.3, "column latitude")
	profileCmd.Flags().Float64Var(&pointLon, "lon", -57.717, "column longitude")
	profileCmd.Flags().IntVar(&timeIdx, "time", 0, "time index")

	exploreCmd := &cobra.Command{
		Use:   "explore [file]",
		Short: "interactive terminal explorer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Explore(args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [file]",
		Short: "export variable statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [file]",
		Short: "export profile variables at one time step to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportCSV,
	}
	exportCSVCmd.Flags().StringVar(&outFile, "out", "profiles.csv", "output file")
	exportCSVCmd.Flags().IntVar(&timeIdx, "time", 0, "time index")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		RunE:  runPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	rootCmd.AddCommand(remapCmd, forcingsCmd, trajectoryCmd, infoCmd, levelsCmd, profileCmd, exploreCmd, exportJSONCmd, exportCSVCmd, runsCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildConfig layers preset, config file and command line flags, in that
// order, and points the result at the input file.
func buildConfig(cmd *cobra.Command, input string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		c := *p
		cfg = &c
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	// CLI flags override preset and config file
	if cmd.Flags().Changed("out") {
		cfg.Output = outFile
	}
	if cmd.Flags().Changed("heights") {
		h, err := parseHeights(heightsSpec)
		if err != nil {
			return nil, err
		}
		cfg.Heights = h
	}
	if cmd.Flags().Changed("domain") {
		d, err := parseDomain(domainSpec)
		if err != nil {
			return nil, err
		}
		cfg.Domain = d
	}
	if cmd.Flags().Changed("levels-table") {
		cfg.LevelsTable = levelsTable
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("vars") {
		cfg.Variables = splitList(varsList)
	}
	if cmd.Flags().Changed("lat") {
		cfg.Forcing.Lat = pointLat
		cfg.Trajectory.Lat = pointLat
	}
	if cmd.Flags().Changed("lon") {
		cfg.Forcing.Lon = pointLon
		cfg.Trajectory.Lon = pointLon
	}
	if cmd.Flags().Changed("box-size") {
		if boxSize <= 0 {
			return nil, fmt.Errorf("box-size must be positive, have %g", boxSize)
		}
		half := boxSize / 2
		cfg.Domain = config.DomainConfig{
			LatMin: cfg.Forcing.Lat - half,
			LatMax: cfg.Forcing.Lat + half,
			LonMin: cfg.Forcing.Lon - half,
			LonMax: cfg.Forcing.Lon + half,
		}
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Forcing.Strategy = strategy
	}
	if cmd.Flags().Changed("mask") {
		cfg.Forcing.Mask = maskName
	}
	if cmd.Flags().Changed("gradients") {
		cfg.Forcing.Variables = splitList(gradVars)
	}
	if cmd.Flags().Changed("u-traj") {
		cfg.Forcing.UTraj = uTraj
	}
	if cmd.Flags().Changed("v-traj") {
		cfg.Forcing.VTraj = vTraj
	}
	if cmd.Flags().Changed("start") {
		cfg.Trajectory.Start = trajStart
	}
	if cmd.Flags().Changed("steps") {
		cfg.Trajectory.Steps = trajSteps
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Trajectory.Iterations = trajIterations
	}

	cfg.Input = input
	return cfg, nil
}

func newLogger() *logs.Logger {
	if logLevel == "" {
		return nil
	}
	return logs.New(logLevel, logDir)
}

func runRemap(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	fmt.Printf("remapping %s onto %d heights...\n", cfg.Input, len(cfg.Heights.Levels()))
	start := time.Now()
	out, err := p.Remap(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Printf("completed in %v\n", elapsed)
	if cfg.Output != "" {
		fmt.Printf("wrote %s\n", cfg.Output)
	}
	record("remap", cfg, out, elapsed)
	fmt.Println()
	return printStats(out)
}

func runForcings(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	fmt.Printf("computing forcings around (%g, %g)...\n", cfg.Forcing.Lat, cfg.Forcing.Lon)
	start := time.Now()
	out, err := p.Forcings(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	fmt.Printf("completed in %v\n", elapsed)
	if cfg.Output != "" {
		fmt.Printf("wrote %s\n", cfg.Output)
	}
	record("forcings", cfg, out, elapsed)
	fmt.Println()
	return printStats(out)
}

func runTrajectory(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, newLogger())
	if err != nil {
		return err
	}

	fmt.Printf("tracing %d steps back from (%g, %g)...\n", cfg.Trajectory.Steps, cfg.Trajectory.Lat, cfg.Trajectory.Lon)
	start := time.Now()
	out, err := p.Trajectory(context.Background())
	if err != nil {
		return err
	}
	if cfg.Output != "" {
		fmt.Printf("wrote %s\n\n", cfg.Output)
	}
	record("trajectory", cfg, out, time.Since(start))

	lat, err := out.Require("lat")
	if err != nil {
		return err
	}
	lon, err := out.Require("lon")
	if err != nil {
		return err
	}
	u, err := out.Require("u_traj")
	if err != nil {
		return err
	}
	v, err := out.Require("v_traj")
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIME [%s]\tLAT\tLON\tU\tV\n", out.TimeUnits)
	for t := range out.Time {
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.2f\t%.2f\n",
			out.Time[t], lat.Data.Get(t), lon.Data.Get(t), u.Data.Get(t), v.Data.Get(t))
	}
	return w.Flush()
}

func runInfo(cmd *cobra.Command, args []string) error {
	ds, err := store.Load(context.Background(), args[0], nil)
	if err != nil {
		return err
	}

	fmt.Printf("file: %s\n", args[0])
	if n := len(ds.Time); n > 0 {
		fmt.Printf("time: %d steps, %g..%g %s\n", n, ds.Time[0], ds.Time[n-1], ds.TimeUnits)
	}
	if n := len(ds.Vertical); n > 0 {
		fmt.Printf("vertical: %d levels (%s, %s)\n", n, ds.VDim, ds.VUnits)
	}
	if len(ds.Lat) > 0 && len(ds.Lon) > 0 {
		fmt.Printf("grid: %dx%d points, lat %g..%g, lon %g..%g\n",
			len(ds.Lat), len(ds.Lon),
			ds.Lat[len(ds.Lat)-1], ds.Lat[0],
			ds.Lon[0], ds.Lon[len(ds.Lon)-1])
	}
	for _, key := range sortedKeys(ds.Attrs) {
		fmt.Printf("%s: %s\n", key, ds.Attrs[key])
	}
	fmt.Println()
	return printStats(ds)
}

func runLevels(cmd *cobra.Command, args []string) error {
	tbl := levels.Default()
	if levelsTable != "" {
		var err error
		tbl, err = levels.Load(levelsTable)
		if err != nil {
			return err
		}
	}

	fmt.Printf("%d half levels, surface pressure %.0f Pa\n\n", tbl.Len(), surfacePressure)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "K\tA [Pa]\tB\tP_HALF [hPa]")
	for k := 0; k < tbl.Len(); k++ {
		fmt.Fprintf(w, "%d\t%.4f\t%.6f\t%.3f\n",
			k+1, tbl.A(k), tbl.B(k), tbl.HalfPressure(k, surfacePressure)/100)
	}
	return w.Flush()
}

func runProfile(cmd *cobra.Command, args []string) error {
	ds, err := store.Load(context.Background(), args[0], nil)
	if err != nil {
		return err
	}
	if plotVar == "" {
		return fmt.Errorf("--var is required (available: %s)", strings.Join(ds.Names(), ", "))
	}
	f, err := ds.Require(plotVar)
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(ds.Names(), ", "))
	}
	if timeIdx < 0 || timeIdx >= len(ds.Time) {
		return fmt.Errorf("time index %d outside 0..%d", timeIdx, len(ds.Time)-1)
	}
	ds.NormalizeLongitudes()

	var data []float64
	switch {
	case len(f.Dims) == 4:
		j, i, err := ds.NearestColumn(pointLat, normLon(pointLon))
		if err != nil {
			return err
		}
		fmt.Printf("column: lat %.3f, lon %.3f\n", ds.Lat[j], ds.Lon[i])
		data = make([]float64, len(ds.Vertical))
		for k := range data {
			data[k] = f.Data.Get(timeIdx, k, j, i)
		}
	case len(f.Dims) == 2 && f.Dims[0] == dataset.DimTime && f.Dims[1] == ds.VDim:
		data = make([]float64, len(ds.Vertical))
		for k := range data {
			data[k] = f.Data.Get(timeIdx, k)
		}
	case len(f.Dims) == 1 && f.Dims[0] == dataset.DimTime:
		data = make([]float64, len(ds.Time))
		for t := range data {
			data[t] = f.Data.Get(t)
		}
	default:
		return fmt.Errorf("cannot plot %s with dimensions %v", plotVar, f.Dims)
	}

	plotData := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			plotData = append(plotData, v)
		}
	}
	if len(plotData) < 2 {
		return fmt.Errorf("%s holds fewer than two values at this position", plotVar)
	}
	if dropped := len(data) - len(plotData); dropped > 0 {
		fmt.Printf("skipping %d missing values\n", dropped)
	}

	graph := asciigraph.Plot(plotData,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s [%s]", plotVar, f.Units)),
	)
	fmt.Println(graph)
	return nil
}

func runExportJSON(cmd *cobra.Command, args []string) error {
	ds, err := store.Load(context.Background(), args[0], nil)
	if err != nil {
		return err
	}
	return store.ExportJSONStdout(ds)
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	ds, err := store.Load(context.Background(), args[0], nil)
	if err != nil {
		return err
	}
	if timeIdx < 0 || timeIdx >= len(ds.Time) {
		return fmt.Errorf("time index %d outside 0..%d", timeIdx, len(ds.Time)-1)
	}
	if err := store.ExportProfilesCSV(outFile, ds, timeIdx); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func runPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOMAIN\tPOINT\tSTRATEGY\tHEIGHTS")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%g..%g / %g..%g\t(%g, %g)\t%s\t%g:%g:%g\n",
			name,
			p.Domain.LatMin, p.Domain.LatMax, p.Domain.LonMin, p.Domain.LonMax,
			p.Forcing.Lat, p.Forcing.Lon,
			p.Forcing.Strategy,
			p.Heights.Start, p.Heights.Stop, p.Heights.Step)
	}
	return w.Flush()
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "vremap.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// record appends the run to the history index. Failures only warn, the
// run itself already succeeded.
func record(op string, cfg *config.Config, ds *dataset.Dataset, elapsed time.Duration) {
	st := history.New(dataDir)
	if err := st.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "history: %v\n", err)
		return
	}
	_, err := st.Save(history.Record{
		Operation: op,
		Input:     cfg.Input,
		Output:    cfg.Output,
		Heights:   len(ds.Vertical),
		Variables: len(ds.Names()),
		Elapsed:   elapsed.Seconds(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "history: %v\n", err)
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := history.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tOP\tTIME\tINPUT\tOUTPUT\tVARS\tHEIGHTS\tELAPSED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%.2fs\n",
			run.ID,
			run.Operation,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Input,
			run.Output,
			run.Variables,
			run.Heights,
			run.Elapsed,
		)
	}
	return w.Flush()
}

func printStats(ds *dataset.Dataset) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIABLE\tUNITS\tDIMS\tMIN\tMEAN\tMAX\tMISSING")
	for _, st := range remap.DatasetStats(ds) {
		f, _ := ds.Field(st.Name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%.6g\t%.6g\t%.6g\t%d/%d\n",
			st.Name, st.Units, strings.Join(f.Dims, ","),
			st.Min, st.Mean, st.Max, st.Missing, st.Total)
	}
	return w.Flush()
}

// parseHeights reads a "start:stop:step" height grid in metres.
func parseHeights(spec string) (config.HeightsConfig, error) {
	parts, err := splitFloats(spec, 3)
	if err != nil {
		return config.HeightsConfig{}, fmt.Errorf("heights %q: %w", spec, err)
	}
	return config.HeightsConfig{Start: parts[0], Stop: parts[1], Step: parts[2]}, nil
}

// parseDomain reads "latmin:latmax:lonmin:lonmax".
func parseDomain(spec string) (config.DomainConfig, error) {
	parts, err := splitFloats(spec, 4)
	if err != nil {
		return config.DomainConfig{}, fmt.Errorf("domain %q: %w", spec, err)
	}
	return config.DomainConfig{LatMin: parts[0], LatMax: parts[1], LonMin: parts[2], LonMax: parts[3]}, nil
}

func splitFloats(spec string, n int) ([]float64, error) {
	fields := strings.Split(spec, ":")
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d colon-separated numbers", n)
	}
	out := make([]float64, n)
	for i, s := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normLon(lon float64) float64 {
	v := math.Mod(lon, 360)
	if v < 0 {
		v += 360
	}
	return v
}
