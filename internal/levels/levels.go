// Package levels loads the hybrid sigma-pressure coefficient tables that
// define ERA5 model levels.
//
// A table holds one (a, b) pair per half level, ordered top of atmosphere
// first. The pressure of half level k over a column with surface pressure
// ps is a[k] + b[k]*ps: pure-pressure levels near the top have b = 0 and
// the lowest half level follows the terrain with a = 0, b = 1.
package levels

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

//go:embed ecmwf_l137.dat
var ecmwfL137 string

var (
	ErrTableTooSmall = errors.New("levels: table needs at least two coefficient rows")
	ErrBadRow        = errors.New("levels: malformed coefficient row")
	ErrNegativeCoeff = errors.New("levels: a coefficients must not be negative")
	ErrNotMonotonic  = errors.New("levels: b coefficients must not decrease")
	ErrNoSurface     = errors.New("levels: lowest half level must have b = 1")
)

// Table is an ordered set of hybrid level coefficients. The all-zero row 0
// present in the distributed tables is dropped on load, so index 0 is the
// highest usable half level and index Len()-1 sits on the surface.
type Table struct {
	a []float64
	b []float64
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the 137-level ERA5 table compiled into the binary.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(strings.NewReader(ecmwfL137))
		if err != nil {
			panic("levels: embedded table: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

// Load parses the coefficient table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("levels: open table: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a whitespace-separated table of "n a b" rows. A single
// non-numeric header line is allowed. Rows must be numbered contiguously
// from zero; row zero is discarded.
func Parse(r io.Reader) (*Table, error) {
	var (
		a, b []float64
		next int
	)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(a) == 0 && next == 0 {
			if _, err := strconv.Atoi(fields[0]); err != nil {
				continue // header
			}
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: %w", line, ErrBadRow)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, ErrBadRow)
		}
		if n != next {
			return nil, fmt.Errorf("line %d: row %d out of order: %w", line, n, ErrBadRow)
		}
		av, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, ErrBadRow)
		}
		bv, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, ErrBadRow)
		}
		next++
		if next == 1 {
			continue // row zero carries no level
		}
		a = append(a, av)
		b = append(b, bv)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("levels: read table: %w", err)
	}
	t := &Table{a: a, b: b}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) validate() error {
	if len(t.a) < 2 {
		return ErrTableTooSmall
	}
	last := len(t.b) - 1
	for k := range t.a {
		if t.a[k] < 0 {
			return fmt.Errorf("level %d: %w", k, ErrNegativeCoeff)
		}
		if k > 0 && t.b[k] < t.b[k-1] {
			return fmt.Errorf("level %d: %w", k, ErrNotMonotonic)
		}
	}
	if t.b[last] != 1 {
		return ErrNoSurface
	}
	return nil
}

// Len reports the number of usable half levels.
func (t *Table) Len() int { return len(t.a) }

// A returns the pressure offset of half level k in Pa.
func (t *Table) A(k int) float64 { return t.a[k] }

// B returns the surface-pressure fraction of half level k.
func (t *Table) B(k int) float64 { return t.b[k] }

// HalfPressure computes the pressure of half level k over a column with the
// given surface pressure.
func (t *Table) HalfPressure(k int, surfacePressure float64) float64 {
	return t.a[k] + t.b[k]*surfacePressure
}
