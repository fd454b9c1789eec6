package forcing

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
)

// planarDataset builds a 3x3 box around (0, 10) whose single field is an
// exact plane in the local tangent coordinates: 5 + 3e-5*x - 2e-5*y.
func planarDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	ds.Time = []float64{0}
	ds.Vertical = []float64{1}
	ds.Lat = []float64{-0.5, 0, 0.5}
	ds.Lon = []float64{9.5, 10, 10.5}

	data := sparse.ZerosDense(1, 1, 3, 3)
	for j, lat := range ds.Lat {
		for i, lon := range ds.Lon {
			dist := HaversineDist(0, 10*degToRad, lat*degToRad, lon*degToRad)
			ang := BearingAngle(0, 10*degToRad, lat*degToRad, lon*degToRad)
			x := dist * math.Cos(ang)
			y := dist * math.Sin(ang)
			data.Elements[j*3+i] = 5 + 3e-5*x - 2e-5*y
		}
	}
	err := ds.Add(&dataset.Field{
		Name:     "t",
		Dims:     []string{dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon},
		Units:    "K",
		LongName: "Temperature",
		Data:     data,
	})
	if err != nil {
		t.Fatalf("add t: %v", err)
	}
	return ds
}

func TestRegressionGradientsPlane(t *testing.T) {
	ds := planarDataset(t)
	f := mustField(t, ds, "t")

	ddx, ddy := RegressionGradients(f, ds.Lat, ds.Lon, 0, 10, nil)
	if got := ddx.Elements[0]; math.Abs(got-3e-5) > 1e-10 {
		t.Errorf("expected x-gradient 3e-5, got %g", got)
	}
	if got := ddy.Elements[0]; math.Abs(got+2e-5) > 1e-10 {
		t.Errorf("expected y-gradient -2e-5, got %g", got)
	}
}

func TestRegressionGradientsSkipsInvalid(t *testing.T) {
	ds := planarDataset(t)
	f := mustField(t, ds, "t")
	f.Data.Elements[4] = math.NaN() // box centre
	mask := sparse.ZerosDense(1, 3, 3)
	for n := range mask.Elements {
		mask.Elements[n] = 1
	}
	mask.Elements[0] = 0

	ddx, ddy := RegressionGradients(f, ds.Lat, ds.Lon, 0, 10, mask)
	if got := ddx.Elements[0]; math.Abs(got-3e-5) > 1e-10 {
		t.Errorf("expected x-gradient 3e-5 from partial box, got %g", got)
	}
	if got := ddy.Elements[0]; math.Abs(got+2e-5) > 1e-10 {
		t.Errorf("expected y-gradient -2e-5 from partial box, got %g", got)
	}
}

func TestRegressionGradientsTooFewPoints(t *testing.T) {
	ds := planarDataset(t)
	f := mustField(t, ds, "t")
	mask := sparse.ZerosDense(1, 3, 3)
	mask.Elements[0], mask.Elements[1] = 1, 1

	ddx, ddy := RegressionGradients(f, ds.Lat, ds.Lon, 0, 10, mask)
	if !math.IsNaN(ddx.Elements[0]) || !math.IsNaN(ddy.Elements[0]) {
		t.Errorf("expected NaN gradients from two points, got %g, %g",
			ddx.Elements[0], ddy.Elements[0])
	}
}

func TestBoundaryGradients(t *testing.T) {
	ds := dataset.New()
	ds.Time = []float64{0}
	ds.Vertical = []float64{1}
	ds.Lat = []float64{0, 1}
	ds.Lon = []float64{10, 11, 12}

	// Values climb along longitude and are flat along latitude.
	data := sparse.ZerosDense(1, 1, 2, 3)
	copy(data.Elements, []float64{0, 5, 10, 0, 5, 10})
	f := &dataset.Field{
		Name: "t",
		Dims: []string{dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon},
		Data: data,
	}
	if err := ds.Add(f); err != nil {
		t.Fatalf("add t: %v", err)
	}

	ddx, ddy := BoundaryGradients(f, ds.Lat, ds.Lon, nil)
	w0 := HaversineDist(0, 10*degToRad, 0, 12*degToRad)
	w1 := HaversineDist(1*degToRad, 10*degToRad, 1*degToRad, 12*degToRad)
	want := (10/w0 + 10/w1) / 2
	if got := ddx.Elements[0]; math.Abs(got-want) > 1e-15 {
		t.Errorf("expected x-gradient %g, got %g", want, got)
	}
	if got := ddy.Elements[0]; got != 0 {
		t.Errorf("expected zero y-gradient for flat rows, got %g", got)
	}
}

func TestBoundaryGradientsAllInvalid(t *testing.T) {
	ds := planarDataset(t)
	f := mustField(t, ds, "t")
	for n := range f.Data.Elements {
		f.Data.Elements[n] = math.NaN()
	}
	ddx, ddy := BoundaryGradients(f, ds.Lat, ds.Lon, nil)
	if !math.IsNaN(ddx.Elements[0]) || !math.IsNaN(ddy.Elements[0]) {
		t.Errorf("expected NaN gradients, got %g, %g", ddx.Elements[0], ddy.Elements[0])
	}
}

func TestGradients(t *testing.T) {
	ds := planarDataset(t)
	out, err := Gradients(ds, []string{"t"}, GradientOptions{
		Strategy: StrategyBoth,
		Lat:      0,
		Lon:      10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := []string{"dtdx", "dtdy", "dtdx_bound", "dtdy_bound"}
	if !reflect.DeepEqual(out.Names(), wantNames) {
		t.Fatalf("expected fields %v, got %v", wantNames, out.Names())
	}
	ddx := mustField(t, out, "dtdx")
	if ddx.Units != "K m**-1" {
		t.Errorf("expected units %q, got %q", "K m**-1", ddx.Units)
	}
	if ddx.LongName != "Temperature x-gradient" {
		t.Errorf("unexpected long name %q", ddx.LongName)
	}
	if got := ddx.Data.Elements[0]; math.Abs(got-3e-5) > 1e-10 {
		t.Errorf("expected x-gradient 3e-5, got %g", got)
	}
	bound := mustField(t, out, "dtdy_bound")
	if bound.LongName != "Temperature y-gradient (boundaries)" {
		t.Errorf("unexpected long name %q", bound.LongName)
	}
	if !reflect.DeepEqual(bound.Dims, []string{dataset.DimTime, dataset.DimLevel}) {
		t.Errorf("unexpected dims %v", bound.Dims)
	}
}

func TestGradientsErrors(t *testing.T) {
	ds := planarDataset(t)
	if _, err := Gradients(ds, []string{"t"}, GradientOptions{Strategy: "sorcery"}); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := Gradients(ds, []string{"q"}, GradientOptions{Strategy: StrategyRegression}); !errors.Is(err, dataset.ErrMissingVariable) {
		t.Errorf("expected ErrMissingVariable, got %v", err)
	}
}
