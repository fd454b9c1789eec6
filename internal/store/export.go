package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/san-kum/vremap/internal/dataset"
	"github.com/san-kum/vremap/internal/remap"
)

// ExportProfilesCSV writes the (time, lev) profile fields of ds at time
// index t, one row per level.
func ExportProfilesCSV(path string, ds *dataset.Dataset, t int) error {
	if t < 0 || t >= len(ds.Time) {
		return fmt.Errorf("store: time index %d out of range", t)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	profiles := make([]*dataset.Field, 0)
	header := []string{ds.VDim}
	for _, f := range ds.Fields() {
		if len(f.Dims) == 2 && f.Dims[0] == dataset.DimTime && f.Dims[1] == ds.VDim {
			profiles = append(profiles, f)
			header = append(header, f.Name)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	nv := len(ds.Vertical)
	for k := 0; k < nv; k++ {
		row := []string{strconv.FormatFloat(ds.Vertical[k], 'g', -1, 64)}
		for _, f := range profiles {
			row = append(row, strconv.FormatFloat(f.Data.Elements[t*nv+k], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// FieldSummary is one entry of the JSON export. Undefined statistics of
// fully missing fields are encoded as null.
type FieldSummary struct {
	Name    string   `json:"name"`
	Units   string   `json:"units,omitempty"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Mean    *float64 `json:"mean"`
	Missing int      `json:"missing"`
	Total   int      `json:"total"`
}

// ExportData is the JSON export layout.
type ExportData struct {
	Created   string         `json:"created"`
	TimeUnits string         `json:"time_units,omitempty"`
	Times     []float64      `json:"times"`
	Levels    []float64      `json:"levels,omitempty"`
	Fields    []FieldSummary `json:"fields"`
}

// ExportJSON writes summary statistics for every field of ds to path.
func ExportJSON(path string, ds *dataset.Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return exportJSON(file, ds)
}

// ExportJSONStdout writes the summary to standard output.
func ExportJSONStdout(ds *dataset.Dataset) error {
	return exportJSON(os.Stdout, ds)
}

func exportJSON(w io.Writer, ds *dataset.Dataset) error {
	data := ExportData{
		Created:   time.Now().Format(time.RFC3339),
		TimeUnits: ds.TimeUnits,
		Times:     ds.Time,
		Levels:    ds.Vertical,
		Fields:    make([]FieldSummary, 0, len(ds.Names())),
	}
	for _, st := range remap.DatasetStats(ds) {
		data.Fields = append(data.Fields, FieldSummary{
			Name:    st.Name,
			Units:   st.Units,
			Min:     jsonFloat(st.Min),
			Max:     jsonFloat(st.Max),
			Mean:    jsonFloat(st.Mean),
			Missing: st.Missing,
			Total:   st.Total,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func jsonFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
