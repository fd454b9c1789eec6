package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/config"
	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/forcing"
	"github.com/san-kum/vremap/internal/hydrostat"
	"github.com/san-kum/vremap/internal/store"
)

func mustField(t *testing.T, ds *dataset.Dataset, name string) *dataset.Field {
	t.Helper()
	f, err := ds.Require(name)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// uniformInput writes a three-level coefficient table and a model-level
// input file with a spatially uniform state: 280 K, an easterly wind of
// 6 m/s and open sea everywhere. The grid is one row and one column
// wider than the test domain on the north and west sides.
func uniformInput(t *testing.T, dir string) (input, table string) {
	t.Helper()
	table = filepath.Join(dir, "levels.dat")
	const rows = "n a[Pa] b\n0 0 0\n1 10 0\n2 5 0.5\n3 0 1\n"
	if err := os.WriteFile(table, []byte(rows), 0644); err != nil {
		t.Fatal(err)
	}

	ds := dataset.New()
	ds.Time = []float64{18, 19, 20}
	ds.TimeUnits = "hours since 2020-01-01 00:00:00"
	ds.Vertical = []float64{1, 2, 3}
	ds.VUnits = "model_level"
	ds.Lat = []float64{16, 14, 13, 12, 11}
	ds.Lon = []float64{301, 302, 303, 304, 305}

	grid := []string{dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon}
	surf := []string{dataset.DimTime, dataset.DimLat, dataset.DimLon}
	add := func(name, units, long string, dims []string, v float64, shape ...int) {
		data := sparse.ZerosDense(shape...)
		for i := range data.Elements {
			data.Elements[i] = v
		}
		err := ds.Add(&dataset.Field{Name: name, Dims: dims, Units: units, LongName: long, Data: data})
		if err != nil {
			t.Fatal(err)
		}
	}
	add("t", "K", "Temperature", grid, 280, 3, 3, 5, 5)
	add("q", "kg kg**-1", "Specific humidity", grid, 0.001, 3, 3, 5, 5)
	add("u", "m s**-1", "U component of wind", grid, -6, 3, 3, 5, 5)
	add("v", "m s**-1", "V component of wind", grid, 0, 3, 3, 5, 5)
	add("sp", "Pa", "Surface pressure", surf, 101325, 3, 5, 5)
	add("z", "m**2 s**-2", "Geopotential", surf, 0, 3, 5, 5)
	add("lsm", "(0 - 1)", "Land-sea mask", surf, 0.05, 3, 5, 5)

	input = filepath.Join(dir, "input.nc")
	if err := store.Save(input, ds); err != nil {
		t.Fatal(err)
	}
	return input, table
}

func pipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input, table := uniformInput(t, dir)
	cfg := config.DefaultConfig()
	cfg.Input = input
	cfg.Output = filepath.Join(dir, "out.nc")
	cfg.LevelsTable = table
	cfg.Workers = 1
	cfg.Domain = config.DomainConfig{LatMin: 11, LatMax: 15, LonMin: -58, LonMax: -55}
	cfg.Heights = config.HeightsConfig{Start: 0, Stop: 120, Step: 40}
	cfg.Trajectory.Start = 2
	cfg.Trajectory.Steps = 2
	cfg.Trajectory.Iterations = 3
	return cfg
}

func TestRemap(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Remap(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.VDim != dataset.DimHeight {
		t.Fatalf("expected vertical dim %s, got %s", dataset.DimHeight, out.VDim)
	}
	if want := []float64{0, 40, 80}; !reflect.DeepEqual(out.Vertical, want) {
		t.Fatalf("expected heights %v, got %v", want, out.Vertical)
	}
	if len(out.Lat) != 4 || len(out.Lon) != 4 {
		t.Fatalf("expected a 4x4 domain, got %dx%d", len(out.Lat), len(out.Lon))
	}

	temp := mustField(t, out, "t")
	for h := 0; h < 3; h++ {
		if got := temp.Data.Get(0, h, 0, 0); math.Abs(got-280) > 1e-9 {
			t.Errorf("t at height level %d: expected 280, got %v", h, got)
		}
	}
	if _, ok := out.Field("theta"); !ok {
		t.Error("expected theta in the remapped output")
	}
	pf := mustField(t, out, hydrostat.VarPressureFull)
	bottom, top := pf.Data.Get(0, 0, 0, 0), pf.Data.Get(0, 2, 0, 0)
	if !(bottom > top) {
		t.Errorf("expected pressure to fall with height, got %v at 0 m and %v at 80 m", bottom, top)
	}
	if got := out.Attrs["Conventions"]; got != "CF-1.7" {
		t.Errorf("expected CF-1.7, got %q", got)
	}

	saved, err := store.Load(context.Background(), cfg.Output, nil)
	if err != nil {
		t.Fatalf("reloading output: %v", err)
	}
	if len(saved.Names()) != len(out.Names()) {
		t.Errorf("expected %d variables in the written file, got %d", len(out.Names()), len(saved.Names()))
	}
}

func TestRemapVariableSubset(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Variables = []string{"t"}
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Remap(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.Field("t"); !ok {
		t.Error("expected t in the output")
	}
	if _, ok := out.Field("u"); ok {
		t.Error("expected u to be skipped when the subset names only t")
	}
}

func TestRemapCanceled(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Remap(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestForcings(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Forcings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Lat) != 1 || len(out.Lon) != 1 {
		t.Fatalf("expected a single column, got %dx%d", len(out.Lat), len(out.Lon))
	}
	if out.Lat[0] != 13 || out.Lon[0] != 302 {
		t.Fatalf("expected the column at (13, 302), got (%v, %v)", out.Lat[0], out.Lon[0])
	}

	u := mustField(t, out, "u")
	if want := []string{dataset.DimTime, dataset.DimHeight}; !reflect.DeepEqual(u.Dims, want) {
		t.Fatalf("u: expected dims %v, got %v", want, u.Dims)
	}
	uMean := mustField(t, out, "u_mean")
	for i := range u.Data.Elements {
		if got := u.Data.Elements[i]; math.Abs(got+6) > 1e-9 {
			t.Fatalf("u[%d]: expected -6, got %v", i, got)
		}
		if got := uMean.Data.Elements[i]; math.Abs(got+6) > 1e-9 {
			t.Fatalf("u_mean[%d]: expected -6, got %v", i, got)
		}
	}
	spMean := mustField(t, out, "sp_mean")
	if want := []string{dataset.DimTime}; !reflect.DeepEqual(spMean.Dims, want) {
		t.Fatalf("sp_mean: expected dims %v, got %v", want, spMean.Dims)
	}
	if got := spMean.Data.Elements[0]; math.Abs(got-101325) > 1e-6 {
		t.Errorf("sp_mean: expected 101325, got %v", got)
	}

	// The state is horizontally uniform, so every gradient and every
	// advective tendency collapses to zero.
	for _, name := range cfg.Forcing.Variables {
		for _, grad := range []string{"d" + name + "dx", "d" + name + "dy"} {
			for _, suffix := range []string{"", "_bound"} {
				f := mustField(t, out, grad+suffix)
				for i, got := range f.Data.Elements {
					if math.Abs(got) > 1e-12 {
						t.Fatalf("%s[%d]: expected 0, got %v", grad+suffix, i, got)
					}
				}
			}
		}
		for _, suffix := range []string{"", "_bound"} {
			f := mustField(t, out, name+"_advtend"+suffix)
			for i, got := range f.Data.Elements {
				if math.Abs(got) > 1e-12 {
					t.Fatalf("%s_advtend%s[%d]: expected 0, got %v", name, suffix, i, got)
				}
			}
		}
	}
	adv := mustField(t, out, "u_advtend")
	if adv.Units != "m s**-1 s**-1" {
		t.Errorf("u_advtend: expected units \"m s**-1 s**-1\", got %q", adv.Units)
	}

	theta := mustField(t, out, "theta")
	thetaMean := mustField(t, out, "theta_mean")
	for i := range theta.Data.Elements {
		if diff := theta.Data.Elements[i] - thetaMean.Data.Elements[i]; math.Abs(diff) > 1e-9 {
			t.Fatalf("theta_mean[%d]: expected the point value, off by %v", i, diff)
		}
	}

	saved, err := store.Load(context.Background(), cfg.Output, nil)
	if err != nil {
		t.Fatalf("reloading output: %v", err)
	}
	mustField(t, saved, "theta_advtend_bound")
}

func TestForcingsUnknownMask(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Forcing.Mask = "swamp"
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Forcings(context.Background()); err == nil || !strings.Contains(err.Error(), "unknown mask") {
		t.Fatalf("expected an unknown mask error, got %v", err)
	}
}

func TestTrajectory(t *testing.T) {
	cfg := pipelineConfig(t)
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Trajectory(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := []float64{18, 19, 20}; !reflect.DeepEqual(out.Time, want) {
		t.Fatalf("expected times %v, got %v", want, out.Time)
	}

	// With a uniform wind the iterative refinement changes nothing, so
	// the waypoints chain plain single traces.
	w1Lat, w1Lon, err := forcing.TraceBack(13.3, -57.717, -6, 0, 3600)
	if err != nil {
		t.Fatal(err)
	}
	w2Lat, w2Lon, err := forcing.TraceBack(w1Lat, w1Lon, -6, 0, 3600)
	if err != nil {
		t.Fatal(err)
	}
	if w1Lon <= -57.717 {
		t.Fatalf("expected the trace to move east against the easterly, got %v", w1Lon)
	}

	lat := mustField(t, out, "lat")
	lon := mustField(t, out, "lon")
	wantLat := []float64{w2Lat, w1Lat, 13.3}
	wantLon := []float64{w2Lon, w1Lon, -57.717}
	for i := range wantLat {
		if math.Abs(lat.Data.Elements[i]-wantLat[i]) > 1e-9 {
			t.Errorf("lat[%d]: expected %v, got %v", i, wantLat[i], lat.Data.Elements[i])
		}
		if math.Abs(lon.Data.Elements[i]-wantLon[i]) > 1e-9 {
			t.Errorf("lon[%d]: expected %v, got %v", i, wantLon[i], lon.Data.Elements[i])
		}
	}

	uTraj := mustField(t, out, "u_traj")
	vTraj := mustField(t, out, "v_traj")
	for i := range uTraj.Data.Elements {
		if got := uTraj.Data.Elements[i]; math.Abs(got+6) > 1e-9 {
			t.Errorf("u_traj[%d]: expected -6, got %v", i, got)
		}
		if got := vTraj.Data.Elements[i]; math.Abs(got) > 1e-9 {
			t.Errorf("v_traj[%d]: expected 0, got %v", i, got)
		}
	}

	saved, err := store.Load(context.Background(), cfg.Output, nil)
	if err != nil {
		t.Fatalf("reloading output: %v", err)
	}
	mustField(t, saved, "u_traj")
}

func TestTrajectoryRange(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Trajectory.Start = 7
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Trajectory(context.Background()); err == nil {
		t.Fatal("expected an error for a start step outside the input")
	}
	cfg.Trajectory.Start = 1
	cfg.Trajectory.Steps = 2
	if _, err := p.Trajectory(context.Background()); err == nil {
		t.Fatal("expected an error for more steps than the input holds")
	}
}

func TestNewErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Heights.Step = 0
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected a validation error for a zero height step")
	}

	cfg = config.DefaultConfig()
	cfg.LevelsTable = filepath.Join(t.TempDir(), "missing.dat")
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected an error for a missing coefficient table")
	}
}

func TestTimeUnitSeconds(t *testing.T) {
	tests := []struct {
		units string
		want  float64
	}{
		{"hours since 1900-01-01 00:00:00", 3600},
		{"seconds since 1970-01-01", 1},
		{"minutes since 2020-02-01", 60},
		{"days since 2020-01-01", 86400},
		{"", 3600},
		{"fortnights since 2020-01-01", 3600},
	}
	for _, tt := range tests {
		if got := timeUnitSeconds(tt.units); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.units, tt.want, got)
		}
	}
}
