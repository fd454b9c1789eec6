package forcing

import (
	"math"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/hydrostat"
)

// Open-water criteria: surface below 5 m of elevation, land fraction
// under 0.2.
const (
	oceanMaxGeopotential = 5.0 * hydrostat.G
	oceanMaxLandFraction = 0.2
)

// OceanMask flags open-water grid points with 1 and everything else with 0.
// The result has the shape of the surface geopotential, (time, lat, lon).
func OceanMask(ds *dataset.Dataset) (*sparse.DenseArray, error) {
	z, err := ds.Require("z")
	if err != nil {
		return nil, err
	}
	lsm, err := ds.Require("lsm")
	if err != nil {
		return nil, err
	}
	if len(z.Data.Elements) != len(lsm.Data.Elements) {
		return nil, &dataset.ShapeError{Var: "lsm", Want: z.Data.Shape, Got: lsm.Data.Shape}
	}
	mask := sparse.ZerosDense(z.Data.Shape...)
	for n, zv := range z.Data.Elements {
		if zv < oceanMaxGeopotential && lsm.Data.Elements[n] < oceanMaxLandFraction {
			mask.Elements[n] = 1
		}
	}
	return mask, nil
}

// AreaWeights returns one weight per latitude, proportional to the grid
// cell area at that row. Latitudes are in degrees.
func AreaWeights(lats []float64) []float64 {
	w := make([]float64, len(lats))
	for i, lat := range lats {
		w[i] = math.Cos(lat * degToRad)
	}
	return w
}
