package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctessum/sparse"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/forcing"
	"github.com/san-kum/vremap/internal/hydrostat"
	"github.com/san-kum/vremap/internal/store"
)

// Trajectory traces the configured point backwards through the wind
// field, one analysis step at a time. Each step starts from the
// moisture-weighted wind at the end point and then refines the origin
// estimate: re-trace with the mean of the end-point wind and the wind at
// the current origin until the configured iteration count runs out.
//
// The result is one record per visited time, oldest first, holding the
// position and the weighted wind there.
func (p *Pipeline) Trajectory(ctx context.Context) (*dataset.Dataset, error) {
	tc := p.cfg.Trajectory
	ds, err := store.Load(ctx, p.cfg.Input, p.loadVars([]string{"t", "q", "sp", "z", "u", "v"}))
	if err != nil {
		return nil, err
	}
	ds.NormalizeLongitudes()
	if err := hydrostat.AddProfiles(ctx, ds, p.tbl, p.cfg.Workers); err != nil {
		return nil, err
	}
	if tc.Start >= len(ds.Time) || tc.Start-tc.Steps < 0 {
		return nil, fmt.Errorf("pipeline: trajectory needs time steps %d..%d, input has %d",
			tc.Start-tc.Steps, tc.Start, len(ds.Time))
	}
	unit := timeUnitSeconds(ds.TimeUnits)

	n := tc.Steps + 1
	times := make([]float64, 0, n)
	lats := make([]float64, 0, n)
	lons := make([]float64, 0, n)
	us := make([]float64, 0, n)
	vs := make([]float64, 0, n)

	lat, lon := tc.Lat, tc.Lon
	for s := 0; s < tc.Steps; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := tc.Start - s
		dt := (ds.Time[t] - ds.Time[t-1]) * unit
		uEnd, vEnd, err := pointVelocity(ds, lat, lon, t)
		if err != nil {
			return nil, err
		}
		times = append(times, ds.Time[t])
		lats = append(lats, lat)
		lons = append(lons, lon)
		us = append(us, uEnd)
		vs = append(vs, vEnd)

		prevLat, prevLon, err := forcing.TraceBack(lat, lon, uEnd, vEnd, dt)
		if err != nil {
			return nil, err
		}
		for it := 0; it < tc.Iterations; it++ {
			uBegin, vBegin, err := pointVelocity(ds, prevLat, prevLon, t-1)
			if err != nil {
				return nil, err
			}
			prevLat, prevLon, err = forcing.TraceBack(lat, lon, (uBegin+uEnd)/2, (vBegin+vEnd)/2, dt)
			if err != nil {
				return nil, err
			}
		}
		p.log.Debugf("trajectory step %d: (%.4f, %.4f) came from (%.4f, %.4f)",
			s, lat, lon, prevLat, prevLon)
		lat, lon = prevLat, prevLon
	}

	t := tc.Start - tc.Steps
	u, v, err := pointVelocity(ds, lat, lon, t)
	if err != nil {
		return nil, err
	}
	times = append(times, ds.Time[t])
	lats = append(lats, lat)
	lons = append(lons, lon)
	us = append(us, u)
	vs = append(vs, v)

	// Tracing runs newest to oldest; the record reads the other way.
	reverse(times)
	reverse(lats)
	reverse(lons)
	reverse(us)
	reverse(vs)

	out := dataset.New()
	out.Time = times
	out.TimeUnits = ds.TimeUnits
	records := []struct {
		name, units, long string
		vals              []float64
	}{
		{"lat", "degrees_north", "trajectory latitude", lats},
		{"lon", "degrees_east", "trajectory longitude", lons},
		{"u_traj", "m s**-1", "zonal wind at the trajectory point", us},
		{"v_traj", "m s**-1", "meridional wind at the trajectory point", vs},
	}
	for _, rec := range records {
		data := sparse.ZerosDense(len(rec.vals))
		copy(data.Elements, rec.vals)
		err := out.Add(&dataset.Field{
			Name:     rec.name,
			Dims:     []string{dataset.DimTime},
			Units:    rec.units,
			LongName: rec.long,
			Data:     data,
		})
		if err != nil {
			return nil, err
		}
	}
	store.StampGlobals(out)
	p.log.Infof("traced %d steps back from (%g, %g)", tc.Steps, tc.Lat, tc.Lon)
	return out, p.save(out)
}

// pointVelocity extracts the grid column nearest (lat, lon) and computes
// its moisture-weighted wind at time index t.
func pointVelocity(ds *dataset.Dataset, lat, lon float64, t int) (u, v float64, err error) {
	j, i, err := ds.NearestColumn(lat, normLon(lon))
	if err != nil {
		return 0, 0, err
	}
	col, err := ds.Column(j, i)
	if err != nil {
		return 0, 0, err
	}
	return forcing.WeightedVelocity(col, t)
}

// timeUnitSeconds converts the unit word of a CF "units since epoch"
// string into seconds. ERA5 encodes hours; unknown units fall back to
// that.
func timeUnitSeconds(units string) float64 {
	fields := strings.Fields(units)
	if len(fields) == 0 {
		return 3600
	}
	switch fields[0] {
	case "seconds", "second", "s":
		return 1
	case "minutes", "minute", "min":
		return 60
	case "hours", "hour", "h":
		return 3600
	case "days", "day", "d":
		return 86400
	}
	return 3600
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
