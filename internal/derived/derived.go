// Package derived computes auxiliary variables from fields already in a
// dataset. Formulas are looked up by name so callers can request a list of
// extra outputs without knowing how each one is built.
package derived

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/hydrostat"
)

// Reference state for potential temperature.
const (
	PRef = 1.0e5  // reference pressure [Pa]
	Cp   = 1004.0 // specific heat of dry air at constant pressure [J kg-1 K-1]
)

var ErrUnknownVariable = errors.New("derived: unknown variable")

// Formula computes one auxiliary field from a dataset.
type Formula func(ds *dataset.Dataset) (*dataset.Field, error)

var registry = map[string]Formula{
	"theta": theta,
}

// Known lists the variables Compute understands.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compute adds the named auxiliary variable to ds.
func Compute(ds *dataset.Dataset, name string) error {
	formula, ok := registry[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVariable, name)
	}
	f, err := formula(ds)
	if err != nil {
		return fmt.Errorf("derived: %s: %w", name, err)
	}
	return ds.Add(f)
}

// ComputeAll adds every named variable in order, stopping at the first
// failure.
func ComputeAll(ds *dataset.Dataset, names []string) error {
	for _, name := range names {
		if err := Compute(ds, name); err != nil {
			return err
		}
	}
	return nil
}

// theta derives potential temperature from temperature and full-level
// pressure. Missing pressures propagate as missing values.
func theta(ds *dataset.Dataset) (*dataset.Field, error) {
	temp, err := ds.Require("t")
	if err != nil {
		return nil, err
	}
	press, err := ds.Require(hydrostat.VarPressureFull)
	if err != nil {
		return nil, err
	}
	if len(temp.Data.Elements) != len(press.Data.Elements) {
		return nil, &dataset.ShapeError{Var: "theta", Want: temp.Data.Shape, Got: press.Data.Shape}
	}
	kappa := hydrostat.Rd / Cp
	out := sparse.ZerosDense(temp.Data.Shape...)
	for i, tv := range temp.Data.Elements {
		out.Elements[i] = tv * math.Pow(PRef/press.Data.Elements[i], kappa)
	}
	return &dataset.Field{
		Name:     "theta",
		Dims:     append([]string(nil), temp.Dims...),
		Units:    "K",
		LongName: "potential temperature",
		Data:     out,
	}, nil
}
