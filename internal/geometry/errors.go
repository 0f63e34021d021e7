package geometry

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned when a quadrilateral cannot be rectified:
// it collapses to a line or point, or its corner correspondences are
// degenerate.
var ErrInvalidGeometry = errors.New("invalid geometry")

// GeometryError carries the output size computed for a rejected quad.
type GeometryError struct {
	Width  int
	Height int
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid geometry: %s (output %dx%d)", e.Reason, e.Width, e.Height)
}

// Is reports ErrInvalidGeometry so callers can match with errors.Is.
func (e *GeometryError) Is(target error) bool {
	return target == ErrInvalidGeometry
}
