package forcing

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
)

// BoxMean averages every field over the horizontal dimensions, skipping
// missing values. A non-nil mask of shape (time, lat, lon) excludes points
// flagged 0; non-nil weights hold one area weight per latitude row. Fields
// without horizontal dimensions are copied through, fields with any other
// layout are dropped.
func BoxMean(ds *dataset.Dataset, mask *sparse.DenseArray, weights []float64) (*dataset.Dataset, error) {
	nt, nj, ni := len(ds.Time), len(ds.Lat), len(ds.Lon)
	if weights != nil && len(weights) != nj {
		return nil, fmt.Errorf("forcing: %d area weights for %d latitude rows", len(weights), nj)
	}
	if mask != nil && len(mask.Elements) != nt*nj*ni {
		return nil, &dataset.ShapeError{Var: "mask", Want: []int{nt, nj, ni}, Got: mask.Shape}
	}

	out := dataset.New()
	out.Time = append([]float64(nil), ds.Time...)
	out.TimeUnits = ds.TimeUnits
	out.Vertical = append([]float64(nil), ds.Vertical...)
	out.VDim = ds.VDim
	out.VUnits = ds.VUnits
	for k, v := range ds.Attrs {
		out.Attrs[k] = v
	}

	for _, f := range ds.Fields() {
		switch {
		case len(f.Dims) == 4 && f.Dims[0] == dataset.DimTime && f.Dims[1] == ds.VDim &&
			f.Dims[2] == dataset.DimLat && f.Dims[3] == dataset.DimLon:
			nv := f.Data.Shape[1]
			data := sparse.ZerosDense(nt, nv)
			for t := 0; t < nt; t++ {
				for v := 0; v < nv; v++ {
					data.Elements[t*nv+v] = horizontalMean(f.Data.Elements, t, v, nv, nj, ni, mask, weights)
				}
			}
			if err := out.Add(&dataset.Field{
				Name:     f.Name,
				Dims:     []string{dataset.DimTime, ds.VDim},
				Units:    f.Units,
				LongName: f.LongName,
				Data:     data,
			}); err != nil {
				return nil, err
			}
		case len(f.Dims) == 3 && f.Dims[0] == dataset.DimTime &&
			f.Dims[1] == dataset.DimLat && f.Dims[2] == dataset.DimLon:
			data := sparse.ZerosDense(nt)
			for t := 0; t < nt; t++ {
				data.Elements[t] = horizontalMean(f.Data.Elements, t, 0, 1, nj, ni, mask, weights)
			}
			if err := out.Add(&dataset.Field{
				Name:     f.Name,
				Dims:     []string{dataset.DimTime},
				Units:    f.Units,
				LongName: f.LongName,
				Data:     data,
			}); err != nil {
				return nil, err
			}
		case !hasHorizontal(f):
			cp := sparse.ZerosDense(f.Data.Shape...)
			copy(cp.Elements, f.Data.Elements)
			if err := out.Add(&dataset.Field{
				Name:     f.Name,
				Dims:     append([]string(nil), f.Dims...),
				Units:    f.Units,
				LongName: f.LongName,
				Data:     cp,
			}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// horizontalMean averages one (lat, lon) slice. nv is the length of the
// vertical dimension, 1 for surface fields.
func horizontalMean(elems []float64, t, v, nv, nj, ni int, mask *sparse.DenseArray, weights []float64) float64 {
	var sum, sumW float64
	for j := 0; j < nj; j++ {
		w := 1.0
		if weights != nil {
			w = weights[j]
		}
		for i := 0; i < ni; i++ {
			if mask != nil && mask.Elements[(t*nj+j)*ni+i] == 0 {
				continue
			}
			val := elems[((t*nv+v)*nj+j)*ni+i]
			if math.IsNaN(val) {
				continue
			}
			sum += val * w
			sumW += w
		}
	}
	if sumW == 0 {
		return math.NaN()
	}
	return sum / sumW
}

func hasHorizontal(f *dataset.Field) bool {
	for _, d := range f.Dims {
		if d == dataset.DimLat || d == dataset.DimLon {
			return true
		}
	}
	return false
}
