// Package store reads and writes datasets as NetCDF3 files and exports
// profile summaries for other tools.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/vremap/internal/dataset"
)

// ErrNotInFile is returned when an explicitly requested variable is
// missing from the file.
var ErrNotInFile = errors.New("store: variable not in file")

// loadWorkers caps the number of concurrent per-variable readers.
const loadWorkers = 4

// File dimension names and their dataset counterparts.
var fileDims = map[string]string{
	dataset.DimTime:   "time",
	dataset.DimLevel:  "level",
	dataset.DimHeight: "lev",
	dataset.DimLat:    "latitude",
	dataset.DimLon:    "longitude",
}

var datasetDims = map[string]string{}

func init() {
	for k, v := range fileDims {
		datasetDims[v] = k
	}
}

// Load reads a NetCDF3 file into a dataset. With a nil vars slice every
// non-coordinate variable in the file is loaded; otherwise exactly the
// named variables are loaded and a missing one is an error. Variables are
// read concurrently, each on its own file handle.
func Load(ctx context.Context, path string, vars []string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	ds := dataset.New()
	if ds.Time, ds.TimeUnits, err = readCoord(nc, "time"); err != nil {
		return nil, err
	}
	if ds.Vertical, ds.VUnits, err = readCoord(nc, "lev"); err != nil {
		return nil, err
	}
	if ds.Vertical != nil {
		ds.VDim = dataset.DimHeight
	} else {
		if ds.Vertical, ds.VUnits, err = readCoord(nc, "level"); err != nil {
			return nil, err
		}
		ds.VDim = dataset.DimLevel
	}
	if ds.Lat, _, err = readCoord(nc, "latitude"); err != nil {
		return nil, err
	}
	if ds.Lon, _, err = readCoord(nc, "longitude"); err != nil {
		return nil, err
	}

	names := vars
	if names == nil {
		for _, v := range nc.Header.Variables() {
			if _, isCoord := datasetDims[v]; isCoord {
				continue
			}
			names = append(names, v)
		}
	}

	fields := make([]*dataset.Field, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadWorkers)
	for n, name := range names {
		g.Go(func() error {
			fld, err := readField(gctx, path, name)
			if err != nil {
				return err
			}
			fields[n] = fld
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, fld := range fields {
		if err := ds.Add(fld); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// readField loads one variable on a private file handle so concurrent
// reads never share a seek position.
func readField(ctx context.Context, path, name string) (*dataset.Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	lengths := nc.Header.Lengths(name)
	if len(lengths) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotInFile, name, path)
	}
	dims := make([]string, len(lengths))
	for i, d := range nc.Header.Dimensions(name) {
		mapped, ok := datasetDims[d]
		if !ok {
			return nil, fmt.Errorf("store: variable %s has unsupported dimension %q", name, d)
		}
		dims[i] = mapped
	}

	n := 1
	for _, l := range lengths {
		n *= l
	}
	r := nc.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("store: read %s: %w", name, err)
	}

	// Packed variables carry scale_factor/add_offset; the missing flag is
	// compared against the raw packed value.
	scale, hasScale := attrFloat(nc.Header, name, "scale_factor")
	if !hasScale {
		scale = 1
	}
	offset, _ := attrFloat(nc.Header, name, "add_offset")
	missing, hasMissing := attrFloat(nc.Header, name, "missing_value")
	if !hasMissing {
		missing, hasMissing = attrFloat(nc.Header, name, "_FillValue")
	}

	data := sparse.ZerosDense(lengths...)
	decode := func(i int, raw float64) {
		if hasMissing && raw == missing {
			data.Elements[i] = math.NaN()
			return
		}
		data.Elements[i] = raw*scale + offset
	}
	switch b := buf.(type) {
	case []float64:
		for i, v := range b {
			decode(i, v)
		}
	case []float32:
		for i, v := range b {
			decode(i, float64(v))
		}
	case []int32:
		for i, v := range b {
			decode(i, float64(v))
		}
	case []int16:
		for i, v := range b {
			decode(i, float64(v))
		}
	default:
		return nil, fmt.Errorf("store: variable %s has unsupported type %T", name, buf)
	}

	return &dataset.Field{
		Name:     name,
		Dims:     dims,
		Units:    attrString(nc.Header, name, "units"),
		LongName: attrString(nc.Header, name, "long_name"),
		Data:     data,
	}, nil
}

// readCoord loads a 1-D coordinate variable, or returns nils when the
// file does not have it.
func readCoord(nc *cdf.File, name string) ([]float64, string, error) {
	lengths := nc.Header.Lengths(name)
	if len(lengths) == 0 {
		return nil, "", nil
	}
	if len(lengths) != 1 {
		return nil, "", fmt.Errorf("store: coordinate %s is not one-dimensional", name)
	}
	r := nc.Reader(name, nil, nil)
	buf := r.Zero(lengths[0])
	if _, err := r.Read(buf); err != nil {
		return nil, "", fmt.Errorf("store: read %s: %w", name, err)
	}
	vals := make([]float64, lengths[0])
	switch b := buf.(type) {
	case []float64:
		copy(vals, b)
	case []float32:
		for i, v := range b {
			vals[i] = float64(v)
		}
	case []int32:
		for i, v := range b {
			vals[i] = float64(v)
		}
	case []int16:
		for i, v := range b {
			vals[i] = float64(v)
		}
	default:
		return nil, "", fmt.Errorf("store: coordinate %s has unsupported type %T", name, buf)
	}
	return vals, attrString(nc.Header, name, "units"), nil
}

func attrFloat(h *cdf.Header, v, name string) (float64, bool) {
	switch a := h.GetAttribute(v, name).(type) {
	case []float64:
		if len(a) > 0 {
			return a[0], true
		}
	case []float32:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	case []int32:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	case []int16:
		if len(a) > 0 {
			return float64(a[0]), true
		}
	}
	return 0, false
}

func attrString(h *cdf.Header, v, name string) string {
	s, _ := h.GetAttribute(v, name).(string)
	return s
}

// Save writes a dataset to path as a NetCDF3 file. All variables are
// stored as float64 with missing values left as NaN.
func Save(path string, ds *dataset.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()

	var dimNames []string
	var dimLens []int
	coords := [][]float64{}
	coordUnits := []string{}
	addDim := func(name string, vals []float64, units string) {
		if len(vals) == 0 {
			return
		}
		dimNames = append(dimNames, name)
		dimLens = append(dimLens, len(vals))
		coords = append(coords, vals)
		coordUnits = append(coordUnits, units)
	}
	addDim("time", ds.Time, ds.TimeUnits)
	addDim(fileDims[ds.VDim], ds.Vertical, ds.VUnits)
	addDim("latitude", ds.Lat, "degrees_north")
	addDim("longitude", ds.Lon, "degrees_east")

	h := cdf.NewHeader(dimNames, dimLens)
	keys := make([]string, 0, len(ds.Attrs))
	for k := range ds.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.AddAttribute("", k, ds.Attrs[k])
	}

	for i, name := range dimNames {
		h.AddVariable(name, []string{name}, []float64{0})
		if coordUnits[i] != "" {
			h.AddAttribute(name, "units", coordUnits[i])
		}
	}
	for _, f := range ds.Fields() {
		dims := make([]string, len(f.Dims))
		for i, d := range f.Dims {
			dims[i] = fileDims[d]
		}
		h.AddVariable(f.Name, dims, []float64{0})
		if f.Units != "" {
			h.AddAttribute(f.Name, "units", f.Units)
		}
		if f.LongName != "" {
			h.AddAttribute(f.Name, "long_name", f.LongName)
		}
	}
	h.Define()

	nc, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", path, err)
	}
	for i, name := range dimNames {
		if err := writeVar(nc, name, coords[i]); err != nil {
			return err
		}
	}
	for _, f := range ds.Fields() {
		if err := writeVar(nc, f.Name, f.Data.Elements); err != nil {
			return err
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeVar(nc *cdf.File, name string, vals []float64) error {
	end := nc.Header.Lengths(name)
	start := make([]int, len(end))
	w := nc.Writer(name, start, end)
	if _, err := w.Write(vals); err != nil {
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	return nil
}
