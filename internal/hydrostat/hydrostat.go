// Package hydrostat integrates the hydrostatic equation up ERA5 model-level
// columns, producing heights and pressures at half and full levels.
//
// Integration starts on the surface half level and climbs in log-pressure
// steps scaled by the layer's virtual temperature. Hydrometeors are not
// taken into account.
package hydrostat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/levels"
)

// Physical constants.
const (
	Rd = 287.06  // dry-air gas constant [J kg-1 K-1]
	G  = 9.80665 // gravitational acceleration [m s-2]

	// RvOverRdMinusOne scales specific humidity into the virtual
	// temperature correction (Rv/Rd - 1).
	RvOverRdMinusOne = 0.609133
)

// Names of the profile fields added by AddProfiles.
const (
	VarHeightHalf   = "height_h"
	VarHeightFull   = "height_f"
	VarPressureHalf = "p_h"
	VarPressureFull = "p_f"
)

var (
	ErrLevelMismatch = errors.New("hydrostat: level count does not match coefficient table")
	ErrNonPhysical   = errors.New("hydrostat: non-positive pressure or temperature")
)

// Profile holds one column of level heights and pressures, index 0 at the
// top of the atmosphere and the last index on the surface half level.
type Profile struct {
	HeightHalf   []float64
	HeightFull   []float64
	PressureHalf []float64
	PressureFull []float64
}

func grow(s []float64, k int) []float64 {
	if cap(s) < k {
		return make([]float64, k)
	}
	return s[:k]
}

func (p *Profile) resize(k int) {
	p.HeightHalf = grow(p.HeightHalf, k)
	p.HeightFull = grow(p.HeightFull, k)
	p.PressureHalf = grow(p.PressureHalf, k)
	p.PressureFull = grow(p.PressureFull, k)
}

// Column integrates one column. temp and humidity hold full-level values
// ordered top to surface and must match the table's level count. On error
// the profile contents are undefined.
//
// The fold carries a (height, pressure) accumulator from the surface half
// level upward: each step first places the full level between the two
// bracketing half levels, then advances the accumulator to the upper half
// level. The topmost full level sits at half the top half-level pressure
// and reuses the last layer's scale height.
func (p *Profile) Column(tbl *levels.Table, surfacePressure, surfaceHeight float64, temp, humidity []float64) error {
	k := tbl.Len()
	if len(temp) != k || len(humidity) != k {
		return ErrLevelMismatch
	}
	if surfacePressure <= 0 {
		return ErrNonPhysical
	}
	p.resize(k)

	last := k - 1
	p.PressureHalf[last] = surfacePressure
	p.HeightHalf[last] = surfaceHeight
	prevP := surfacePressure
	prevH := surfaceHeight
	rdOverG := Rd / G
	var scale float64
	for i := last - 1; i >= 0; i-- {
		if temp[i] <= 0 {
			return ErrNonPhysical
		}
		pHalf := tbl.HalfPressure(i, surfacePressure)
		if pHalf <= 0 {
			return ErrNonPhysical
		}
		p.PressureHalf[i] = pHalf
		pFull := 0.5 * (pHalf + prevP)
		p.PressureFull[i+1] = pFull

		scale = rdOverG * temp[i] * (1 + RvOverRdMinusOne*humidity[i])
		p.HeightFull[i+1] = prevH + scale*math.Log(prevP/pFull)
		prevH += scale * math.Log(prevP/pHalf)
		p.HeightHalf[i] = prevH
		prevP = pHalf
	}
	p.PressureFull[0] = 0.5 * prevP
	p.HeightFull[0] = prevH + scale*math.Log(prevP/p.PressureFull[0])
	return nil
}

// AddProfiles computes height_h, height_f, p_h and p_f for every grid
// column and adds them to ds. Surface height is derived from the surface
// geopotential z. Columns are processed in parallel across latitude rows;
// workers <= 0 uses one worker per CPU.
func AddProfiles(ctx context.Context, ds *dataset.Dataset, tbl *levels.Table, workers int) error {
	temp, err := ds.Require("t")
	if err != nil {
		return err
	}
	humidity, err := ds.Require("q")
	if err != nil {
		return err
	}
	sp, err := ds.Require("sp")
	if err != nil {
		return err
	}
	z, err := ds.Require("z")
	if err != nil {
		return err
	}
	if err := requireDims(temp, dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon); err != nil {
		return err
	}
	if err := requireDims(humidity, dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon); err != nil {
		return err
	}
	if err := requireDims(sp, dataset.DimTime, dataset.DimLat, dataset.DimLon); err != nil {
		return err
	}
	if err := requireDims(z, dataset.DimTime, dataset.DimLat, dataset.DimLon); err != nil {
		return err
	}
	k := tbl.Len()
	if len(ds.Vertical) != k {
		return fmt.Errorf("%w: dataset has %d, table has %d", ErrLevelMismatch, len(ds.Vertical), k)
	}

	nt, nj, ni := len(ds.Time), len(ds.Lat), len(ds.Lon)
	heightH := sparse.ZerosDense(nt, k, nj, ni)
	heightF := sparse.ZerosDense(nt, k, nj, ni)
	pressH := sparse.ZerosDense(nt, k, nj, ni)
	pressF := sparse.ZerosDense(nt, k, nj, ni)

	for t := 0; t < nt; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := parallelRows(nj, workers, func(j0, j1 int) error {
			var prof Profile
			tcol := make([]float64, k)
			qcol := make([]float64, k)
			for j := j0; j < j1; j++ {
				for i := 0; i < ni; i++ {
					for lev := 0; lev < k; lev++ {
						idx := ((t*k+lev)*nj+j)*ni + i
						tcol[lev] = temp.Data.Elements[idx]
						qcol[lev] = humidity.Data.Elements[idx]
					}
					surf := (t*nj+j)*ni + i
					ps := sp.Data.Elements[surf]
					zs := z.Data.Elements[surf] / G
					if err := prof.Column(tbl, ps, zs, tcol, qcol); err != nil {
						return fmt.Errorf("column (time %d, lat %d, lon %d): %w", t, j, i, err)
					}
					for lev := 0; lev < k; lev++ {
						idx := ((t*k+lev)*nj+j)*ni + i
						heightH.Elements[idx] = prof.HeightHalf[lev]
						heightF.Elements[idx] = prof.HeightFull[lev]
						pressH.Elements[idx] = prof.PressureHalf[lev]
						pressF.Elements[idx] = prof.PressureFull[lev]
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	dims := []string{dataset.DimTime, dataset.DimLevel, dataset.DimLat, dataset.DimLon}
	fields := []*dataset.Field{
		{Name: VarHeightHalf, Dims: dims, Units: "metres", LongName: "height above sea level at half level", Data: heightH},
		{Name: VarHeightFull, Dims: dims, Units: "metres", LongName: "height above sea level at full level", Data: heightF},
		{Name: VarPressureHalf, Dims: dims, Units: "Pa", LongName: "pressure at half level", Data: pressH},
		{Name: VarPressureFull, Dims: dims, Units: "Pa", LongName: "pressure at full level", Data: pressF},
	}
	for _, f := range fields {
		if err := ds.Add(f); err != nil {
			return err
		}
	}
	return nil
}

func requireDims(f *dataset.Field, dims ...string) error {
	ok := len(f.Dims) == len(dims)
	if ok {
		for i := range dims {
			if f.Dims[i] != dims[i] {
				ok = false
				break
			}
		}
	}
	if !ok {
		return fmt.Errorf("hydrostat: variable %s has dims %v, want %v", f.Name, f.Dims, dims)
	}
	return nil
}

// parallelRows splits [0, n) across workers and collects the first error.
func parallelRows(n, workers int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
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
