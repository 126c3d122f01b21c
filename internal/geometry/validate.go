package geometry

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry reports a malformed coordinate reaching the processor.
// Callers are expected to validate input at the boundary, before Smooth or
// Simplify ever see it.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Validate rejects sequences containing non-finite coordinates.
func Validate(pts []Point) error {
	for i, p := range pts {
		if !p.IsFinite() {
			return fmt.Errorf("%w: non-finite point at index %d (%v, %v)", ErrInvalidGeometry, i, p.X, p.Y)
		}
	}
	return nil
}
