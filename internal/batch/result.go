package batch

import (
	"errors"
	"fmt"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
)

// Status says how an element's slot was filled.
type Status string

const (
	// StatusNone marks a null element handle.
	StatusNone Status = "none"

	// StatusHidden marks an element not visible in the active view.
	StatusHidden Status = "hidden"

	// StatusUnresolved marks an element the source could not resolve.
	StatusUnresolved Status = "unresolved"

	// StatusEmpty marks an element that resolved but produced no mesh.
	StatusEmpty Status = "empty"

	// StatusFailed marks an element whose geometry could not be converted.
	StatusFailed Status = "failed"

	// StatusOK marks an element with at least one mesh.
	StatusOK Status = "ok"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{StatusOK, StatusEmpty, StatusHidden, StatusUnresolved, StatusNone, StatusFailed}

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// ElementResult is the outcome for one input element.
type ElementResult struct {
	Position int
	ID       geom.ElementID
	Status   Status

	// Meshes is never empty: it holds the element's meshes, or a single
	// nil mesh when there are none.
	Meshes []*geom.Mesh

	// Err is set for StatusFailed and, when the source reported one, for
	// StatusUnresolved.
	Err error
}

// Result is the outcome of one batch.
type Result struct {
	RunID       string
	ViewScoped  bool
	View        *source.View // nil unless ViewScoped
	DetailLevel source.DetailLevel
	Elements    []ElementResult
}

// Len returns the number of element slots, which equals the input length.
func (r *Result) Len() int {
	return len(r.Elements)
}

// Meshes returns the per-element mesh lists, index-aligned with the input.
func (r *Result) Meshes() [][]*geom.Mesh {
	out := make([][]*geom.Mesh, len(r.Elements))
	for i, e := range r.Elements {
		out[i] = e.Meshes
	}
	return out
}

// Errors joins the errors of failed elements, or returns nil.
func (r *Result) Errors() error {
	var errs []error
	for _, e := range r.Elements {
		if e.Status == StatusFailed && e.Err != nil {
			errs = append(errs, e.Err)
		}
	}
	return errors.Join(errs...)
}

// Counts returns the number of elements per status.
func (r *Result) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, e := range r.Elements {
		counts[e.Status]++
	}
	return counts
}

// MeshCount returns the number of non-nil meshes across all elements.
func (r *Result) MeshCount() int {
	n := 0
	for _, e := range r.Elements {
		for _, m := range e.Meshes {
			if m != nil {
				n++
			}
		}
	}
	return n
}
