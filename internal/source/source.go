package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// ErrElementNotFound is returned by Resolve when the id maps to no element.
var ErrElementNotFound = errors.New("element not found")

// DetailLevel controls how finely the host represents an element.
type DetailLevel int

const (
	DetailUndefined DetailLevel = iota
	DetailCoarse
	DetailMedium
	DetailFine
)

func (d DetailLevel) String() string {
	switch d {
	case DetailCoarse:
		return "coarse"
	case DetailMedium:
		return "medium"
	case DetailFine:
		return "fine"
	default:
		return "undefined"
	}
}

// ParseDetailLevel parses "coarse", "medium", "fine" or "" / "undefined".
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "undefined":
		return DetailUndefined, nil
	case "coarse":
		return DetailCoarse, nil
	case "medium":
		return DetailMedium, nil
	case "fine":
		return DetailFine, nil
	default:
		return DetailUndefined, fmt.Errorf("unknown detail level %q", s)
	}
}

// ViewID identifies a view.
type ViewID int64

// View is a viewport context with its own detail level.
type View struct {
	ID          ViewID
	Name        string
	DetailLevel DetailLevel
}

// Options are the geometry retrieval options passed to Resolve.
type Options struct {
	// View restricts retrieval to what the view shows. Nil means no view.
	View *View

	// DetailLevel selects the tessellation density.
	DetailLevel DetailLevel

	// ComputeReferences asks the host to keep provenance links on the
	// returned geometry. dynamesh output never uses them.
	ComputeReferences bool

	// IncludeNonVisibleObjects asks for geometry the host normally hides.
	IncludeNonVisibleObjects bool
}

// Source resolves elements to geometry.
type Source interface {
	// Resolve returns the root node of the element's geometry, or nil if
	// the element has none. An unknown id returns ErrElementNotFound.
	Resolve(ctx context.Context, id geom.ElementID, opts Options) (geom.Node, error)
}

// Oracle answers view membership questions.
type Oracle interface {
	IsVisibleInView(id geom.ElementID, view ViewID) bool
}

// ViewProvider exposes the host's active view.
type ViewProvider interface {
	ActiveView() (*View, bool)
}
