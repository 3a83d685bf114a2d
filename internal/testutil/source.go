package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/source"
)

// MapSource is an in-memory geometry source, visibility oracle and view
// provider for tests.
//
// Roots maps element ids to geometry; ids missing from Roots fail to
// resolve with source.ErrElementNotFound. Errors forces specific ids to
// fail with the given error. Visible lists the ids visible in the active
// view.
//
// Thread-safety: safe for concurrent use once populated. Call counters
// are protected by an internal mutex.
type MapSource struct {
	Roots   map[geom.ElementID]geom.Node
	Errors  map[geom.ElementID]error
	Visible map[geom.ElementID]bool
	View    *source.View

	mu          sync.Mutex
	resolved    []geom.ElementID
	lastOptions source.Options
	visChecks   int
}

// NewMapSource creates an empty MapSource with no active view.
func NewMapSource() *MapSource {
	return &MapSource{
		Roots:   make(map[geom.ElementID]geom.Node),
		Errors:  make(map[geom.ElementID]error),
		Visible: make(map[geom.ElementID]bool),
	}
}

// Resolve implements source.Source.
func (s *MapSource) Resolve(ctx context.Context, id geom.ElementID, opts source.Options) (geom.Node, error) {
	s.mu.Lock()
	s.resolved = append(s.resolved, id)
	s.lastOptions = opts
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.Errors[id]; ok {
		return nil, err
	}
	root, ok := s.Roots[id]
	if !ok {
		return nil, fmt.Errorf("resolve %d: %w", id, source.ErrElementNotFound)
	}
	return root, nil
}

// IsVisibleInView implements source.Oracle. Only the active view has
// visible elements.
func (s *MapSource) IsVisibleInView(id geom.ElementID, view source.ViewID) bool {
	s.mu.Lock()
	s.visChecks++
	s.mu.Unlock()

	if s.View == nil || view != s.View.ID {
		return false
	}
	return s.Visible[id]
}

// ActiveView implements source.ViewProvider.
func (s *MapSource) ActiveView() (*source.View, bool) {
	if s.View == nil {
		return nil, false
	}
	v := *s.View
	return &v, true
}

// Resolved returns the ids passed to Resolve, in call order.
func (s *MapSource) Resolved() []geom.ElementID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]geom.ElementID, len(s.resolved))
	copy(out, s.resolved)
	return out
}

// LastOptions returns the options of the most recent Resolve call.
func (s *MapSource) LastOptions() source.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOptions
}

// VisibilityChecks returns how many times IsVisibleInView was called.
func (s *MapSource) VisibilityChecks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visChecks
}
