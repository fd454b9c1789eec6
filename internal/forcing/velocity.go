package forcing

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/hydrostat"
)

// The weighting fades to zero between these pressures so that only the
// moist lower troposphere steers the trajectory.
const (
	PressureCutoffStart = 60000.0 // Pa
	PressureCutoffEnd   = 50000.0 // Pa
)

// ErrZeroWeight is returned when every layer weight vanishes, e.g. for a
// completely dry column.
var ErrZeroWeight = errors.New("forcing: zero total water-vapour weight")

// WeightedVelocity averages the wind profile at time index t, weighting
// each layer by its pressure thickness and specific humidity and fading
// the contribution out above the pressure cutoff. ds must hold (time, lev)
// profiles of u, v, q, p_h and p_f.
func WeightedVelocity(ds *dataset.Dataset, t int) (uw, vw float64, err error) {
	var u, v, q, ph, pf *dataset.Field
	for _, want := range []struct {
		name string
		dst  **dataset.Field
	}{
		{"u", &u},
		{"v", &v},
		{"q", &q},
		{hydrostat.VarPressureHalf, &ph},
		{hydrostat.VarPressureFull, &pf},
	} {
		f, err := requireProfile(ds, want.name)
		if err != nil {
			return 0, 0, err
		}
		*want.dst = f
	}
	nv := len(ds.Vertical)
	if t < 0 || t >= len(ds.Time) {
		return 0, 0, errors.New("forcing: time index out of range")
	}

	weights := make([]float64, 0, nv-1)
	us := make([]float64, 0, nv-1)
	vs := make([]float64, 0, nv-1)
	for k := 1; k < nv; k++ {
		idx := t*nv + k
		thickness := ph.Data.Elements[idx] - ph.Data.Elements[idx-1]
		w := thickness * q.Data.Elements[idx] *
			CosTransition(pf.Data.Elements[idx], PressureCutoffStart, PressureCutoffEnd)
		weights = append(weights, w)
		us = append(us, u.Data.Elements[idx])
		vs = append(vs, v.Data.Elements[idx])
	}
	sumW := floats.Sum(weights)
	if sumW == 0 {
		return 0, 0, ErrZeroWeight
	}
	return floats.Dot(weights, us) / sumW, floats.Dot(weights, vs) / sumW, nil
}
