package forcing

import (
	"errors"
	"fmt"
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/vremap/internal/dataset"
)

// Gradient estimation strategies.
const (
	StrategyRegression = "regression"
	StrategyBoundary   = "boundary"
	StrategyBoth       = "both"
)

// ErrUnknownStrategy is returned for a strategy outside the set above.
var ErrUnknownStrategy = errors.New("forcing: unknown gradients strategy")

// GradientOptions configure horizontal gradient estimation.
type GradientOptions struct {
	// Strategy selects the estimator. StrategyBoth emits the regression
	// fields plus boundary-method variants with a _bound suffix.
	Strategy string
	// Lat, Lon anchor the local tangent plane of the regression fit,
	// in degrees.
	Lat, Lon float64
	// Mask optionally restricts the fit to flagged points, shape
	// (time, lat, lon).
	Mask *sparse.DenseArray
}

// Gradients estimates horizontal gradients of the named variables and
// returns them as (time, lev) fields named d<var>dx and d<var>dy.
func Gradients(ds *dataset.Dataset, vars []string, opts GradientOptions) (*dataset.Dataset, error) {
	switch opts.Strategy {
	case StrategyRegression, StrategyBoundary, StrategyBoth:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, opts.Strategy)
	}

	out := dataset.New()
	out.Time = append([]float64(nil), ds.Time...)
	out.TimeUnits = ds.TimeUnits
	out.Vertical = append([]float64(nil), ds.Vertical...)
	out.VDim = ds.VDim
	out.VUnits = ds.VUnits

	for _, name := range vars {
		f, err := ds.Require(name)
		if err != nil {
			return nil, err
		}
		if err := requireHorizontal(ds, f); err != nil {
			return nil, err
		}

		var ddx, ddy *sparse.DenseArray
		if opts.Strategy == StrategyBoundary {
			ddx, ddy = BoundaryGradients(f, ds.Lat, ds.Lon, opts.Mask)
		} else {
			ddx, ddy = RegressionGradients(f, ds.Lat, ds.Lon, opts.Lat, opts.Lon, opts.Mask)
		}
		if err := addGradientPair(out, ds.VDim, f, "", ddx, ddy); err != nil {
			return nil, err
		}
		if opts.Strategy == StrategyBoth {
			bx, by := BoundaryGradients(f, ds.Lat, ds.Lon, opts.Mask)
			if err := addGradientPair(out, ds.VDim, f, "_bound", bx, by); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func addGradientPair(out *dataset.Dataset, vdim string, f *dataset.Field, suffix string, ddx, ddy *sparse.DenseArray) error {
	units := f.Units + " m**-1"
	longSuffix := ""
	if suffix != "" {
		longSuffix = " (boundaries)"
	}
	if err := out.Add(&dataset.Field{
		Name:     "d" + f.Name + "dx" + suffix,
		Dims:     []string{dataset.DimTime, vdim},
		Units:    units,
		LongName: f.LongName + " x-gradient" + longSuffix,
		Data:     ddx,
	}); err != nil {
		return err
	}
	return out.Add(&dataset.Field{
		Name:     "d" + f.Name + "dy" + suffix,
		Dims:     []string{dataset.DimTime, vdim},
		Units:    units,
		LongName: f.LongName + " y-gradient" + longSuffix,
		Data:     ddy,
	})
}

func requireHorizontal(ds *dataset.Dataset, f *dataset.Field) error {
	if len(f.Dims) != 4 || f.Dims[0] != dataset.DimTime || f.Dims[1] != ds.VDim ||
		f.Dims[2] != dataset.DimLat || f.Dims[3] != dataset.DimLon {
		return fmt.Errorf("forcing: variable %s has dims %v, want (%s, %s, %s, %s)",
			f.Name, f.Dims, dataset.DimTime, ds.VDim, dataset.DimLat, dataset.DimLon)
	}
	return nil
}

// RegressionGradients fits each (time, level) slice of f to a plane in
// local tangent coordinates around the reference point and returns the two
// slope fields. Slices with fewer than three valid points come back NaN.
func RegressionGradients(f *dataset.Field, lats, lons []float64, refLat, refLon float64, mask *sparse.DenseArray) (ddx, ddy *sparse.DenseArray) {
	nt, nv := f.Data.Shape[0], f.Data.Shape[1]
	nj, ni := f.Data.Shape[2], f.Data.Shape[3]
	ddx = sparse.ZerosDense(nt, nv)
	ddy = sparse.ZerosDense(nt, nv)

	// Tangent-plane coordinates of every grid point, shared by all slices.
	xs := make([]float64, nj*ni)
	ys := make([]float64, nj*ni)
	latR := refLat * degToRad
	lonR := refLon * degToRad
	for j := 0; j < nj; j++ {
		for i := 0; i < ni; i++ {
			latP := lats[j] * degToRad
			lonP := lons[i] * degToRad
			dist := HaversineDist(latR, lonR, latP, lonP)
			ang := BearingAngle(latR, lonR, latP, lonP)
			xs[j*ni+i] = dist * math.Cos(ang)
			ys[j*ni+i] = dist * math.Sin(ang)
		}
	}

	px := make([]float64, 0, nj*ni)
	py := make([]float64, 0, nj*ni)
	pv := make([]float64, 0, nj*ni)
	for t := 0; t < nt; t++ {
		for v := 0; v < nv; v++ {
			px, py, pv = px[:0], py[:0], pv[:0]
			for j := 0; j < nj; j++ {
				for i := 0; i < ni; i++ {
					if mask != nil && mask.Elements[(t*nj+j)*ni+i] == 0 {
						continue
					}
					val := f.Data.Elements[((t*nv+v)*nj+j)*ni+i]
					if math.IsNaN(val) {
						continue
					}
					px = append(px, xs[j*ni+i])
					py = append(py, ys[j*ni+i])
					pv = append(pv, val)
				}
			}
			gx, gy := planeFit(px, py, pv)
			ddx.Elements[t*nv+v] = gx
			ddy.Elements[t*nv+v] = gy
		}
	}
	return ddx, ddy
}

// planeFit solves v = c + gx*x + gy*y by least squares.
func planeFit(xs, ys, vs []float64) (gx, gy float64) {
	n := len(vs)
	if n < 3 {
		return math.NaN(), math.NaN()
	}
	a := mat.NewDense(n, 3, nil)
	for r := 0; r < n; r++ {
		a.Set(r, 0, 1)
		a.Set(r, 1, xs[r])
		a.Set(r, 2, ys[r])
	}
	b := mat.NewDense(n, 1, vs)
	var sol mat.Dense
	if err := sol.Solve(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return math.NaN(), math.NaN()
		}
	}
	return sol.At(1, 0), sol.At(2, 0)
}

// BoundaryGradients estimates gradients from the value spread across the
// box: for each latitude row, the range of valid values over the row's
// great-circle width, averaged over rows, and the transpose for columns.
// The estimate carries no sign information.
func BoundaryGradients(f *dataset.Field, lats, lons []float64, mask *sparse.DenseArray) (ddx, ddy *sparse.DenseArray) {
	nt, nv := f.Data.Shape[0], f.Data.Shape[1]
	nj, ni := f.Data.Shape[2], f.Data.Shape[3]
	ddx = sparse.ZerosDense(nt, nv)
	ddy = sparse.ZerosDense(nt, nv)

	for t := 0; t < nt; t++ {
		for v := 0; v < nv; v++ {
			var sumX, sumY float64
			var nX, nY int
			for j := 0; j < nj; j++ {
				lo, hi, cLo, cHi, n := spread(f, mask, t, v, j, -1, lons)
				if n < 2 {
					continue
				}
				width := HaversineDist(lats[j]*degToRad, cLo*degToRad, lats[j]*degToRad, cHi*degToRad)
				if width > 0 {
					sumX += (hi - lo) / width
					nX++
				}
			}
			for i := 0; i < ni; i++ {
				lo, hi, cLo, cHi, n := spread(f, mask, t, v, -1, i, lats)
				if n < 2 {
					continue
				}
				width := HaversineDist(cLo*degToRad, lons[i]*degToRad, cHi*degToRad, lons[i]*degToRad)
				if width > 0 {
					sumY += (hi - lo) / width
					nY++
				}
			}
			ddx.Elements[t*nv+v] = meanOrNaN(sumX, nX)
			ddy.Elements[t*nv+v] = meanOrNaN(sumY, nY)
		}
	}
	return ddx, ddy
}

// spread scans one row (j fixed, i varies over coords=lons) or one column
// (i fixed, j varies over coords=lats) and returns the min and max valid
// value, the coordinate extremes of the valid points, and the valid count.
func spread(f *dataset.Field, mask *sparse.DenseArray, t, v, j, i int, coords []float64) (lo, hi, cLo, cHi float64, n int) {
	nv, nj, ni := f.Data.Shape[1], f.Data.Shape[2], f.Data.Shape[3]
	lo, hi = math.Inf(1), math.Inf(-1)
	cLo, cHi = math.Inf(1), math.Inf(-1)
	for c := range coords {
		jj, ii := j, i
		if j < 0 {
			jj = c
		} else {
			ii = c
		}
		if mask != nil && mask.Elements[(t*nj+jj)*ni+ii] == 0 {
			continue
		}
		val := f.Data.Elements[((t*nv+v)*nj+jj)*ni+ii]
		if math.IsNaN(val) {
			continue
		}
		lo = math.Min(lo, val)
		hi = math.Max(hi, val)
		cLo = math.Min(cLo, coords[c])
		cHi = math.Max(cHi, coords[c])
		n++
	}
	return lo, hi, cLo, cHi, n
}

func meanOrNaN(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
