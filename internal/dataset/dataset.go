// Package dataset holds gridded atmospheric fields on a shared set of
// named dimensions, mirroring the layout of an ERA5 model-level download:
// a time axis, one vertical axis, and a latitude/longitude grid.
//
// Fields store their values in dense row-major arrays ordered slowest to
// fastest as (time, vertical, latitude, longitude), with latitudes running
// north to south and model levels running top of atmosphere to surface.
package dataset

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Dimension names shared by every field. Model-level input uses DimLevel
// for its vertical axis; height-interpolated output uses DimHeight.
const (
	DimTime   = "time"
	DimLevel  = "level"
	DimHeight = "lev"
	DimLat    = "latitude"
	DimLon    = "longitude"
)

// Field is a single named variable on some subset of the dataset dims.
type Field struct {
	Name     string
	Dims     []string
	Units    string
	LongName string
	Data     *sparse.DenseArray
}

// Dataset is an ordered collection of fields over one coordinate system.
type Dataset struct {
	Time      []float64
	TimeUnits string

	// Vertical holds the coordinate values of the vertical axis named by
	// VDim: model level numbers for DimLevel, metres for DimHeight.
	Vertical []float64
	VDim     string
	VUnits   string

	Lat []float64
	Lon []float64

	Attrs map[string]string

	fields map[string]*Field
	order  []string
}

func New() *Dataset {
	return &Dataset{
		VDim:   DimLevel,
		Attrs:  map[string]string{},
		fields: map[string]*Field{},
	}
}

// DimLen reports the length of a named dimension.
func (d *Dataset) DimLen(dim string) (int, bool) {
	switch dim {
	case DimTime:
		return len(d.Time), true
	case DimLat:
		return len(d.Lat), true
	case DimLon:
		return len(d.Lon), true
	case d.VDim:
		return len(d.Vertical), true
	}
	return 0, false
}

// Add validates f against the coordinate lengths and stores it, replacing
// any existing field with the same name.
func (d *Dataset) Add(f *Field) error {
	if f.Data == nil {
		return fmt.Errorf("%w: %s", ErrNilData, f.Name)
	}
	want := make([]int, len(f.Dims))
	for i, dim := range f.Dims {
		n, ok := d.DimLen(dim)
		if !ok {
			return fmt.Errorf("%w: %s on variable %s", ErrUnknownDim, dim, f.Name)
		}
		want[i] = n
	}
	if !shapeEqual(want, f.Data.Shape) {
		return &ShapeError{Var: f.Name, Want: want, Got: f.Data.Shape}
	}
	if _, ok := d.fields[f.Name]; !ok {
		d.order = append(d.order, f.Name)
	}
	d.fields[f.Name] = f
	return nil
}

// Field looks up a variable by name.
func (d *Dataset) Field(name string) (*Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// Require looks up a variable and fails with ErrMissingVariable if absent.
func (d *Dataset) Require(name string) (*Field, error) {
	f, ok := d.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingVariable, name)
	}
	return f, nil
}

// Names lists the variables in insertion order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Fields lists the variables themselves in insertion order.
func (d *Dataset) Fields() []*Field {
	out := make([]*Field, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.fields[name])
	}
	return out
}

// Validate re-checks every field shape against the coordinate lengths.
// Useful after coordinates have been replaced wholesale.
func (d *Dataset) Validate() error {
	for _, name := range d.order {
		f := d.fields[name]
		want := make([]int, len(f.Dims))
		for i, dim := range f.Dims {
			n, ok := d.DimLen(dim)
			if !ok {
				return fmt.Errorf("%w: %s on variable %s", ErrUnknownDim, dim, f.Name)
			}
			want[i] = n
		}
		if !shapeEqual(want, f.Data.Shape) {
			return &ShapeError{Var: f.Name, Want: want, Got: f.Data.Shape}
		}
	}
	return nil
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
