package tessellate

import (
	"errors"
	"fmt"
)

var (
	// ErrNilSurface is returned for a nil face.
	ErrNilSurface = errors.New("nil surface")

	// ErrNoMesh is returned when a surface reports success but yields no mesh.
	ErrNoMesh = errors.New("surface produced no mesh")

	// ErrSurfacePanic is returned when a surface panics while triangulating.
	ErrSurfacePanic = errors.New("surface panicked")

	// ErrTooFewPoints is returned for loops with fewer than three distinct points.
	ErrTooFewPoints = errors.New("polygon has fewer than 3 distinct points")

	// ErrZeroArea is returned for loops whose points are collinear.
	ErrZeroArea = errors.New("polygon has zero area")

	// ErrNoBridge is returned when a hole cannot be joined to the outer
	// loop, typically because it lies outside it.
	ErrNoBridge = errors.New("hole cannot be bridged to the outer loop")

	// ErrNoEar is returned when ear clipping cannot make progress,
	// typically because the loop self-intersects.
	ErrNoEar = errors.New("polygon has no ear to clip")
)

// Error is a tessellation failure for one face.
type Error struct {
	// Face is the position of the face within its solid, or -1 when the
	// face was tessellated on its own.
	Face int

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Face >= 0 {
		return fmt.Sprintf("tessellation failed for face %d: %v", e.Face, e.Err)
	}
	return fmt.Sprintf("tessellation failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTessellationError returns true if err is or wraps an *Error.
func IsTessellationError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
