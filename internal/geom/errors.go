package geom

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned by UnionOfHulls for an empty list.
	ErrEmptyInput = errors.New("empty input")
	// ErrSelfIntersecting is returned when no simple ring could be traced
	// through the point set.
	ErrSelfIntersecting = errors.New("hull ring is self-intersecting")
)

// GeometryError reports degenerate or self-intersecting input to a hull or
// union operation.
type GeometryError struct {
	Op     string
	Points int
	Err    error
}

func (e *GeometryError) Error() string {
	if e.Points > 0 {
		return fmt.Sprintf("geometry: %s over %d points: %v", e.Op, e.Points, e.Err)
	}
	return fmt.Sprintf("geometry: %s: %v", e.Op, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }
