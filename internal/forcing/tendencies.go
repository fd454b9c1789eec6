package forcing

import (
	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
)

// Tendencies computes advective tendencies for the named variables from a
// merged profile-and-gradient dataset:
//
//	d<var>/dt = (u - uTraj)*d<var>dx + (v - vTraj)*d<var>dy
//
// where u and v are the (time, lev) wind profiles in ds and uTraj, vTraj
// the trajectory velocity. Results are named <var>_advtend; when boundary
// is set, <var>_advtend_bound variants from the _bound gradients are added.
func Tendencies(ds *dataset.Dataset, vars []string, uTraj, vTraj float64, boundary bool) (*dataset.Dataset, error) {
	u, err := requireProfile(ds, "u")
	if err != nil {
		return nil, err
	}
	v, err := requireProfile(ds, "v")
	if err != nil {
		return nil, err
	}

	out := dataset.New()
	out.Time = append([]float64(nil), ds.Time...)
	out.TimeUnits = ds.TimeUnits
	out.Vertical = append([]float64(nil), ds.Vertical...)
	out.VDim = ds.VDim
	out.VUnits = ds.VUnits

	suffixes := []string{""}
	if boundary {
		suffixes = append(suffixes, "_bound")
	}
	for _, name := range vars {
		base, err := ds.Require(name)
		if err != nil {
			return nil, err
		}
		for _, suffix := range suffixes {
			ddx, err := requireProfile(ds, "d"+name+"dx"+suffix)
			if err != nil {
				return nil, err
			}
			ddy, err := requireProfile(ds, "d"+name+"dy"+suffix)
			if err != nil {
				return nil, err
			}
			data := sparse.ZerosDense(u.Data.Shape...)
			for n := range data.Elements {
				data.Elements[n] = (u.Data.Elements[n]-uTraj)*ddx.Data.Elements[n] +
					(v.Data.Elements[n]-vTraj)*ddy.Data.Elements[n]
			}
			long := base.LongName + " tendency (advection)"
			if suffix != "" {
				long = base.LongName + " tendency (advection, boundaries)"
			}
			if err := out.Add(&dataset.Field{
				Name:     name + "_advtend" + suffix,
				Dims:     []string{dataset.DimTime, ds.VDim},
				Units:    base.Units + " s**-1",
				LongName: long,
				Data:     data,
			}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// requireProfile fetches a (time, lev) field.
func requireProfile(ds *dataset.Dataset, name string) (*dataset.Field, error) {
	f, err := ds.Require(name)
	if err != nil {
		return nil, err
	}
	want := []int{len(ds.Time), len(ds.Vertical)}
	if len(f.Data.Shape) != 2 || f.Data.Shape[0] != want[0] || f.Data.Shape[1] != want[1] {
		return nil, &dataset.ShapeError{Var: name, Want: want, Got: f.Data.Shape}
	}
	return f, nil
}
