package dataset

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// NormalizeLongitudes maps the longitude coordinate onto the 0..360
// convention and rounds to four decimals so reanalysis tiles downloaded on
// different meridian conventions line up.
func (d *Dataset) NormalizeLongitudes() {
	for i, lon := range d.Lon {
		v := math.Mod(lon, 360)
		if v < 0 {
			v += 360
		}
		d.Lon[i] = math.Round(v*1e4) / 1e4
	}
}

// Subset restricts the dataset to grid points inside the given bounds,
// keeping the north-to-south latitude order. A longitude window with
// lonMin > lonMax wraps across the meridian.
func (d *Dataset) Subset(latMin, latMax, lonMin, lonMax float64) (*Dataset, error) {
	var keepLat []int
	for j, v := range d.Lat {
		if v >= latMin && v <= latMax {
			keepLat = append(keepLat, j)
		}
	}
	var keepLon []int
	if lonMin <= lonMax {
		for i, v := range d.Lon {
			if v >= lonMin && v <= lonMax {
				keepLon = append(keepLon, i)
			}
		}
	} else {
		for i, v := range d.Lon {
			if v >= lonMin {
				keepLon = append(keepLon, i)
			}
		}
		for i, v := range d.Lon {
			if v <= lonMax {
				keepLon = append(keepLon, i)
			}
		}
	}
	if len(keepLat) == 0 || len(keepLon) == 0 {
		return nil, ErrEmptySubset
	}

	out := New()
	out.Time = append([]float64(nil), d.Time...)
	out.TimeUnits = d.TimeUnits
	out.Vertical = append([]float64(nil), d.Vertical...)
	out.VDim = d.VDim
	out.VUnits = d.VUnits
	out.Lat = make([]float64, len(keepLat))
	for n, j := range keepLat {
		out.Lat[n] = d.Lat[j]
	}
	out.Lon = make([]float64, len(keepLon))
	for n, i := range keepLon {
		out.Lon[n] = d.Lon[i]
	}
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}

	for _, name := range d.order {
		f := d.fields[name]
		sub := gather(f, keepLat, keepLon)
		if err := out.Add(sub); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// gather copies f restricted to the kept latitude and longitude indices.
func gather(f *Field, keepLat, keepLon []int) *Field {
	latPos, lonPos := -1, -1
	for i, dim := range f.Dims {
		switch dim {
		case DimLat:
			latPos = i
		case DimLon:
			lonPos = i
		}
	}
	shape := append([]int(nil), f.Data.Shape...)
	if latPos >= 0 {
		shape[latPos] = len(keepLat)
	}
	if lonPos >= 0 {
		shape[lonPos] = len(keepLon)
	}
	out := sparse.ZerosDense(shape...)

	total := 1
	for _, n := range shape {
		total *= n
	}
	if total == 0 {
		return &Field{Name: f.Name, Dims: append([]string(nil), f.Dims...), Units: f.Units, LongName: f.LongName, Data: out}
	}

	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for {
		copy(src, idx)
		if latPos >= 0 {
			src[latPos] = keepLat[idx[latPos]]
		}
		if lonPos >= 0 {
			src[lonPos] = keepLon[idx[lonPos]]
		}
		out.Set(f.Data.Get(src...), idx...)

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < shape[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			break
		}
	}
	return &Field{Name: f.Name, Dims: append([]string(nil), f.Dims...), Units: f.Units, LongName: f.LongName, Data: out}
}

// Column extracts the single grid column (j, i), dropping the horizontal
// dims from every field. Fields left with no dims are skipped.
func (d *Dataset) Column(j, i int) (*Dataset, error) {
	if j < 0 || j >= len(d.Lat) || i < 0 || i >= len(d.Lon) {
		return nil, fmt.Errorf("dataset: column (%d, %d) outside %dx%d grid", j, i, len(d.Lat), len(d.Lon))
	}
	out := New()
	out.Time = append([]float64(nil), d.Time...)
	out.TimeUnits = d.TimeUnits
	out.Vertical = append([]float64(nil), d.Vertical...)
	out.VDim = d.VDim
	out.VUnits = d.VUnits
	out.Lat = []float64{d.Lat[j]}
	out.Lon = []float64{d.Lon[i]}
	for k, v := range d.Attrs {
		out.Attrs[k] = v
	}
	for _, name := range d.order {
		f := d.fields[name]
		var dims []string
		fixed := make([]int, len(f.Dims)) // -1 marks a kept dim
		for n, dim := range f.Dims {
			switch dim {
			case DimLat:
				fixed[n] = j
			case DimLon:
				fixed[n] = i
			default:
				fixed[n] = -1
				dims = append(dims, dim)
			}
		}
		if len(dims) == 0 {
			continue
		}
		shape := make([]int, 0, len(dims))
		for n := range f.Dims {
			if fixed[n] < 0 {
				shape = append(shape, f.Data.Shape[n])
			}
		}
		data := sparse.ZerosDense(shape...)
		idx := make([]int, len(shape))
		src := make([]int, len(f.Dims))
		total := 1
		for _, n := range shape {
			total *= n
		}
		for c := 0; c < total; c++ {
			pos := 0
			for n := range f.Dims {
				if fixed[n] < 0 {
					src[n] = idx[pos]
					pos++
				} else {
					src[n] = fixed[n]
				}
			}
			data.Set(f.Data.Get(src...), idx...)
			for k := len(idx) - 1; k >= 0; k-- {
				idx[k]++
				if idx[k] < shape[k] {
					break
				}
				idx[k] = 0
			}
		}
		err := out.Add(&Field{Name: f.Name, Dims: dims, Units: f.Units, LongName: f.LongName, Data: data})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NearestColumn locates the grid column closest to the requested point,
// matching each coordinate independently.
func (d *Dataset) NearestColumn(lat, lon float64) (j, i int, err error) {
	if len(d.Lat) == 0 || len(d.Lon) == 0 {
		return 0, 0, ErrEmptySubset
	}
	j = nearestIndex(d.Lat, lat)
	i = nearestIndex(d.Lon, lon)
	return j, i, nil
}

func nearestIndex(coord []float64, v float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range coord {
		if dist := math.Abs(c - v); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}
