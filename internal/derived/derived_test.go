package derived

import (
	"errors"
	"math"
	"testing"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/hydrostat"
)

func thetaDataset(t *testing.T, temps, pressures []float64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	ds.Time = []float64{0}
	ds.Vertical = make([]float64, len(temps))
	ds.VDim = dataset.DimHeight
	for i := range ds.Vertical {
		ds.Vertical[i] = float64(i)
	}
	ds.Lat = []float64{50}
	ds.Lon = []float64{10}
	dims := []string{dataset.DimTime, dataset.DimHeight, dataset.DimLat, dataset.DimLon}

	td := sparse.ZerosDense(1, len(temps), 1, 1)
	pd := sparse.ZerosDense(1, len(temps), 1, 1)
	for k := range temps {
		td.Set(temps[k], 0, k, 0, 0)
		pd.Set(pressures[k], 0, k, 0, 0)
	}
	if err := ds.Add(&dataset.Field{Name: "t", Dims: dims, Units: "K", Data: td}); err != nil {
		t.Fatal(err)
	}
	if err := ds.Add(&dataset.Field{Name: hydrostat.VarPressureFull, Dims: dims, Units: "Pa", Data: pd}); err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestComputeTheta(t *testing.T) {
	ds := thetaDataset(t,
		[]float64{300, 280, 250},
		[]float64{PRef, 5e4, math.NaN()},
	)
	if err := Compute(ds, "theta"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	th, ok := ds.Field("theta")
	if !ok {
		t.Fatal("expected theta field")
	}
	if th.Units != "K" || th.LongName != "potential temperature" {
		t.Errorf("unexpected attributes: units %q, long name %q", th.Units, th.LongName)
	}

	// At the reference pressure, theta equals the temperature.
	if got := th.Data.Get(0, 0, 0, 0); math.Abs(got-300) > 1e-12 {
		t.Errorf("expected 300 at reference pressure, got %v", got)
	}
	// Aloft, theta exceeds temperature.
	kappa := hydrostat.Rd / Cp
	want := 280 * math.Pow(2, kappa)
	if got := th.Data.Get(0, 1, 0, 0); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v at half the reference pressure, got %v", want, got)
	}
	if got := th.Data.Get(0, 2, 0, 0); !math.IsNaN(got) {
		t.Errorf("expected NaN where pressure is missing, got %v", got)
	}
}

func TestComputeUnknownVariable(t *testing.T) {
	ds := thetaDataset(t, []float64{300}, []float64{PRef})
	err := Compute(ds, "vorticity")
	if !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("expected ErrUnknownVariable, got %v", err)
	}
}

func TestComputeMissingInput(t *testing.T) {
	ds := dataset.New()
	ds.Time = []float64{0}
	err := Compute(ds, "theta")
	if !errors.Is(err, dataset.ErrMissingVariable) {
		t.Errorf("expected ErrMissingVariable, got %v", err)
	}
}

func TestComputeAllStopsAtFirstError(t *testing.T) {
	ds := thetaDataset(t, []float64{300}, []float64{PRef})
	err := ComputeAll(ds, []string{"vorticity", "theta"})
	if !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("expected ErrUnknownVariable, got %v", err)
	}
	if _, ok := ds.Field("theta"); ok {
		t.Error("expected no theta after an early failure")
	}

	if err := ComputeAll(ds, []string{"theta"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ds.Field("theta"); !ok {
		t.Error("expected theta to be added")
	}
}

func TestKnown(t *testing.T) {
	names := Known()
	found := false
	for _, name := range names {
		if name == "theta" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected theta in %v", names)
	}
}
