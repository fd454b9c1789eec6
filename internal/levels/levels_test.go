package levels

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	tbl := Default()
	if tbl.Len() != 137 {
		t.Fatalf("expected 137 levels, got %d", tbl.Len())
	}
	if tbl.A(0) != 2.000365 || tbl.B(0) != 0 {
		t.Errorf("expected top level (2.000365, 0), got (%v, %v)", tbl.A(0), tbl.B(0))
	}
	last := tbl.Len() - 1
	if tbl.A(last) != 0 || tbl.B(last) != 1 {
		t.Errorf("expected surface level (0, 1), got (%v, %v)", tbl.A(last), tbl.B(last))
	}
	for k := 1; k < tbl.Len(); k++ {
		if tbl.B(k) < tbl.B(k-1) {
			t.Fatalf("b decreases at level %d: %v < %v", k, tbl.B(k), tbl.B(k-1))
		}
	}
}

func TestDefaultTableHalfPressure(t *testing.T) {
	tbl := Default()
	const ps = 101325.0
	last := tbl.Len() - 1
	if got := tbl.HalfPressure(last, ps); got != ps {
		t.Errorf("expected surface half pressure %v, got %v", ps, got)
	}
	if got := tbl.HalfPressure(0, ps); got != 2.000365 {
		t.Errorf("expected top half pressure 2.000365, got %v", got)
	}
	// Half pressures increase monotonically toward the ground.
	for k := 1; k < tbl.Len(); k++ {
		if tbl.HalfPressure(k, ps) <= tbl.HalfPressure(k-1, ps) {
			t.Fatalf("half pressure not increasing at level %d", k)
		}
	}
}

func TestParseSkipsHeaderAndRowZero(t *testing.T) {
	const data = `n a[Pa] b
0 0.000000 0.000000
1 10.0 0.0
2 5.0 0.5
3 0.0 1.0
`
	tbl, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Fatalf("expected 3 levels, got %d", tbl.Len())
	}
	if tbl.A(0) != 10.0 || tbl.B(1) != 0.5 {
		t.Errorf("unexpected coefficients: a0=%v b1=%v", tbl.A(0), tbl.B(1))
	}
	if got := tbl.HalfPressure(1, 1000); math.Abs(got-505) > 1e-12 {
		t.Errorf("expected half pressure 505, got %v", got)
	}
}

func TestParseRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "too few rows",
			data: "0 0 0\n1 0 1\n",
			want: ErrTableTooSmall,
		},
		{
			name: "out of order",
			data: "0 0 0\n2 1 0\n3 0 1\n",
			want: ErrBadRow,
		},
		{
			name: "missing column",
			data: "0 0 0\n1 2.0\n2 0 1\n",
			want: ErrBadRow,
		},
		{
			name: "negative a",
			data: "0 0 0\n1 -2.0 0\n2 0 1\n",
			want: ErrNegativeCoeff,
		},
		{
			name: "decreasing b",
			data: "0 0 0\n1 10 0.6\n2 5 0.5\n3 0 1\n",
			want: ErrNotMonotonic,
		},
		{
			name: "no surface level",
			data: "0 0 0\n1 10 0\n2 5 0.9\n",
			want: ErrNoSurface,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coeffs.dat")
	const data = "n a[Pa] b\n0 0 0\n1 10 0\n2 5 0.5\n3 0 1\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("expected 3 levels, got %d", tbl.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Error("expected error for missing file")
	}
}
