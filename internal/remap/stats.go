package remap

import (
	"math"

	"github.com/san-kum/vremap/internal/dataset"
)

// FieldStats summarizes one variable, skipping missing values.
type FieldStats struct {
	Name    string
	Units   string
	Min     float64
	Max     float64
	Mean    float64
	Missing int
	Total   int
}

// Stats scans a field once. Min, Max and Mean are NaN when every value is
// missing.
func Stats(f *dataset.Field) FieldStats {
	s := FieldStats{
		Name:  f.Name,
		Units: f.Units,
		Min:   math.NaN(),
		Max:   math.NaN(),
		Mean:  math.NaN(),
		Total: len(f.Data.Elements),
	}
	sum := 0.0
	n := 0
	for _, v := range f.Data.Elements {
		if math.IsNaN(v) {
			s.Missing++
			continue
		}
		if n == 0 || v < s.Min {
			s.Min = v
		}
		if n == 0 || v > s.Max {
			s.Max = v
		}
		sum += v
		n++
	}
	if n > 0 {
		s.Mean = sum / float64(n)
	}
	return s
}

// DatasetStats summarizes every variable in insertion order.
func DatasetStats(ds *dataset.Dataset) []FieldStats {
	fields := ds.Fields()
	out := make([]FieldStats, 0, len(fields))
	for _, f := range fields {
		out = append(out, Stats(f))
	}
	return out
}
