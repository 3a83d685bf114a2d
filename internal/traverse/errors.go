package traverse

import (
	"errors"
	"fmt"

	"github.com/logant/DynamoExperiments/internal/geom"
)

var (
	// ErrMaxDepth is returned when instances nest deeper than the
	// traverser's limit, which usually means a reference cycle.
	ErrMaxDepth = errors.New("instance nesting exceeds max depth")

	// ErrUnknownNode is returned for a geometry node of no known variant.
	ErrUnknownNode = errors.New("unknown geometry node")
)

// ElementError attaches the element id to a traversal failure.
type ElementError struct {
	ID  geom.ElementID
	Err error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %d: %v", e.ID, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// GeometryError reports raw mesh data that is present but invalid, such as
// out-of-range indices or faces that are neither triangles nor quads.
type GeometryError struct {
	// Path locates the node, e.g. "0/2" for the third child of the first.
	Path string
	Err  error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("invalid mesh at %s: %v", e.Path, e.Err)
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

// IsGeometryError returns true if err is or wraps a *GeometryError.
func IsGeometryError(err error) bool {
	var ge *GeometryError
	return errors.As(err, &ge)
}

// ElementIDOf returns the element id carried by err, if any.
func ElementIDOf(err error) (geom.ElementID, bool) {
	var ee *ElementError
	if errors.As(err, &ee) {
		return ee.ID, true
	}
	return geom.InvalidElementID, false
}
