package steffen

import (
	"errors"
	"fmt"
)

var (
	ErrShortColumn    = errors.New("steffen: need at least three input levels")
	ErrLengthMismatch = errors.New("steffen: slice lengths do not match")
)

// MonotonicityError reports an input column whose levels fail to increase
// strictly.
type MonotonicityError struct {
	Level int     // index of the offending level
	Delta float64 // spacing to the previous level
}

func (e *MonotonicityError) Error() string {
	return fmt.Sprintf("steffen: input levels not strictly increasing at index %d (spacing %g)", e.Level, e.Delta)
}
