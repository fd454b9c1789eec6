// Package remap converts model-level datasets onto fixed height levels
// with monotonic cubic interpolation, column by column.
//
// The vertical coordinate for each variable is the full-level height,
// except for the half-level fields height_h and p_h, which interpolate
// along half-level heights. Below the surface, pressure and height fields
// extrapolate along the surface gradient while everything else extends
// flat; points over open water may extrapolate down to sea level.
package remap

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/hydrostat"
	"github.com/san-kum/vremap/internal/steffen"
)

// Sea points get their extrapolation boundary lowered to just below zero
// so profiles reach down to sea level. A point counts as sea when the
// surface half level sits in (seaSurfaceMin, seaSurfaceMax) and the
// land-sea fraction is below seaLandMax.
const (
	seaSurfaceMax = 5.0
	seaSurfaceMin = 1.0e-6
	seaLandMax    = 0.2
	seaBoundary   = -1.0e-6
)

var ErrNoHeights = errors.New("remap: no output heights")

// gradientVars extrapolate below the surface along the first node's slope
// estimate; all other variables extend flat.
var gradientVars = map[string]bool{
	hydrostat.VarPressureHalf: true,
	hydrostat.VarPressureFull: true,
	hydrostat.VarHeightHalf:   true,
	hydrostat.VarHeightFull:   true,
}

// halfLevelVars interpolate along the half-level height coordinate.
var halfLevelVars = map[string]bool{
	hydrostat.VarHeightHalf:   true,
	hydrostat.VarPressureHalf: true,
}

// Remapper interpolates whole datasets onto one fixed set of heights.
// It is safe for concurrent use.
type Remapper struct {
	heights []float64
	workers int
	pool    sync.Pool
}

// columnScratch keeps the per-column work areas alive between columns.
type columnScratch struct {
	interp    steffen.Interpolator
	coordHalf []float64
	coordFull []float64
	values    []float64
	out       []float64
}

func grow(s []float64, n int) []float64 {
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

func (s *columnScratch) resize(levels, heights int) {
	s.coordHalf = grow(s.coordHalf, levels)
	s.coordFull = grow(s.coordFull, levels)
	s.values = grow(s.values, levels)
	s.out = grow(s.out, heights)
}

// New builds a Remapper for the given output heights, which are sorted
// ascending. workers <= 0 uses one worker per CPU.
func New(heights []float64, workers int) (*Remapper, error) {
	if len(heights) == 0 {
		return nil, ErrNoHeights
	}
	hs := append([]float64(nil), heights...)
	sort.Float64s(hs)
	r := &Remapper{heights: hs, workers: workers}
	r.pool.New = func() any { return &columnScratch{} }
	return r, nil
}

// Heights returns the sorted output heights.
func (r *Remapper) Heights() []float64 {
	return append([]float64(nil), r.heights...)
}

// Dataset remaps every model-level variable of src onto the output
// heights and copies level-free variables through unchanged. src must
// already carry the height and pressure profiles from hydrostat.
func (r *Remapper) Dataset(ctx context.Context, src *dataset.Dataset) (*dataset.Dataset, error) {
	heightH, err := src.Require(hydrostat.VarHeightHalf)
	if err != nil {
		return nil, err
	}
	heightF, err := src.Require(hydrostat.VarHeightFull)
	if err != nil {
		return nil, err
	}
	lsm, err := src.Require("lsm")
	if err != nil {
		return nil, err
	}
	levelDims := []string{dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon}
	surfDims := []string{dataset.DimTime, dataset.DimLat, dataset.DimLon}
	if !dimsEqual(heightH.Dims, levelDims) || !dimsEqual(heightF.Dims, levelDims) {
		return nil, fmt.Errorf("remap: profile fields must have dims %v", levelDims)
	}
	if !dimsEqual(lsm.Dims, surfDims) {
		return nil, fmt.Errorf("remap: variable lsm has dims %v, want %v", lsm.Dims, surfDims)
	}

	nt, nk, nj, ni := len(src.Time), len(src.Vertical), len(src.Lat), len(src.Lon)
	nh := len(r.heights)

	var interpolated []*dataset.Field
	for _, f := range src.Fields() {
		if dimsEqual(f.Dims, levelDims) {
			interpolated = append(interpolated, f)
		}
	}
	outData := make(map[string]*sparse.DenseArray, len(interpolated))
	for _, f := range interpolated {
		outData[f.Name] = sparse.ZerosDense(nt, nh, nj, ni)
	}

	for t := 0; t < nt; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		boundary := r.boundaries(heightH, lsm, t, nk, nj, ni)
		err := r.parallelRows(nj, func(j0, j1 int) error {
			scratch := r.pool.Get().(*columnScratch)
			defer r.pool.Put(scratch)
			scratch.resize(nk, nh)
			for j := j0; j < j1; j++ {
				for i := 0; i < ni; i++ {
					// Reverse both height coordinates once per column; the
					// interpolator wants them ascending.
					for k := 0; k < nk; k++ {
						idx := ((t*nk+(nk-1-k))*nj+j)*ni + i
						scratch.coordHalf[k] = heightH.Data.Elements[idx]
						scratch.coordFull[k] = heightF.Data.Elements[idx]
					}
					bnd := boundary[j*ni+i]
					for _, f := range interpolated {
						coord := scratch.coordFull
						if halfLevelVars[f.Name] {
							coord = scratch.coordHalf
						}
						for k := 0; k < nk; k++ {
							idx := ((t*nk+(nk-1-k))*nj+j)*ni + i
							scratch.values[k] = f.Data.Elements[idx]
						}
						err := scratch.interp.Column(scratch.out, coord, scratch.values, r.heights, bnd, gradientVars[f.Name])
						if err != nil {
							return fmt.Errorf("remap: %s column (time %d, lat %d, lon %d): %w", f.Name, t, j, i, err)
						}
						dst := outData[f.Name].Elements
						for h := 0; h < nh; h++ {
							dst[((t*nh+h)*nj+j)*ni+i] = scratch.out[h]
						}
					}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	out := dataset.New()
	out.Time = append([]float64(nil), src.Time...)
	out.TimeUnits = src.TimeUnits
	out.Vertical = r.Heights()
	out.VDim = dataset.DimHeight
	out.VUnits = "metres"
	out.Lat = append([]float64(nil), src.Lat...)
	out.Lon = append([]float64(nil), src.Lon...)
	for k, v := range src.Attrs {
		out.Attrs[k] = v
	}

	heightDims := []string{dataset.DimTime, dataset.DimHeight, dataset.DimLat, dataset.DimLon}
	for _, f := range src.Fields() {
		switch {
		case dimsEqual(f.Dims, levelDims):
			err := out.Add(&dataset.Field{
				Name:     f.Name,
				Dims:     heightDims,
				Units:    f.Units,
				LongName: f.LongName,
				Data:     outData[f.Name],
			})
			if err != nil {
				return nil, err
			}
		case !hasDim(f.Dims, dataset.DimLevel):
			err := out.Add(&dataset.Field{
				Name:     f.Name,
				Dims:     append([]string(nil), f.Dims...),
				Units:    f.Units,
				LongName: f.LongName,
				Data:     copyDense(f.Data),
			})
			if err != nil {
				return nil, err
			}
		}
		// Level fields in other layouts are dropped.
	}
	return out, nil
}

// boundaries computes the per-point extrapolation boundary for one time
// step: the surface half-level height, or seaBoundary over open water.
func (r *Remapper) boundaries(heightH, lsm *dataset.Field, t, nk, nj, ni int) []float64 {
	out := make([]float64, nj*ni)
	for j := 0; j < nj; j++ {
		for i := 0; i < ni; i++ {
			surf := heightH.Data.Elements[((t*nk+nk-1)*nj+j)*ni+i]
			land := lsm.Data.Elements[(t*nj+j)*ni+i]
			if surf < seaSurfaceMax && surf > seaSurfaceMin && land < seaLandMax {
				out[j*ni+i] = seaBoundary
			} else {
				out[j*ni+i] = surf
			}
		}
	}
	return out
}

func (r *Remapper) parallelRows(n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	workers := r.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			errs[w] = fn(start, end)
		}(w, start, end)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func dimsEqual(a, b []string) bool {
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

func hasDim(dims []string, dim string) bool {
	for _, d := range dims {
		if d == dim {
			return true
		}
	}
	return false
}

func copyDense(a *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(a.Shape...)
	copy(out.Elements, a.Elements)
	return out
}
