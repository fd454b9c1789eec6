package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrMissingVariable = errors.New("dataset: missing variable")
	ErrUnknownDim      = errors.New("dataset: unknown dimension")
	ErrNilData         = errors.New("dataset: field has no data")
	ErrEmptySubset     = errors.New("dataset: subset selects no grid points")
)

// ShapeError reports a variable whose data does not match the lengths of
// the dimensions it claims.
type ShapeError struct {
	Var  string
	Want []int
	Got  []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("dataset: variable %s has shape %v, want %v", e.Var, e.Got, e.Want)
}
