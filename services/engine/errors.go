package engine

import "errors"

var (
	// ErrInvalidStrategy marks strategy parameters that would degenerate the
	// financial arithmetic.
	ErrInvalidStrategy = errors.New("invalid strategy")

	// ErrEmptySeries is returned when the date window leaves no bars to
	// simulate; a run never silently reports zero trades on bad input.
	ErrEmptySeries = errors.New("empty series after window filter")
)
