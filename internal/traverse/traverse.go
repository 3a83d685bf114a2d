package traverse

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/meshjoin"
	"github.com/logant/DynamoExperiments/internal/tessellate"
)

// DefaultMaxDepth bounds instance nesting.
const DefaultMaxDepth = 64

// Filter reports whether an element should be traversed at all.
type Filter func(id geom.ElementID) bool

// Traverser converts geometry graphs into meshes. It holds no per-call
// state and is safe for concurrent use.
type Traverser struct {
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Traverser.
type Option func(*Traverser)

// WithLogger sets the logger used for skip diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Traverser) {
		t.logger = logger
	}
}

// WithMaxDepth sets the instance nesting limit.
// Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(t *Traverser) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// New creates a Traverser.
func New(opts ...Option) *Traverser {
	t := &Traverser{
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MaxDepth returns the instance nesting limit.
func (t *Traverser) MaxDepth() int {
	return t.maxDepth
}

// Element traverses the geometry of one element.
//
// When visible is non-nil and rejects id, the graph is not touched and the
// result is the none placeholder. An element that produces no meshes also
// yields the placeholder, so the result is never empty. Failures are
// returned as *ElementError.
func (t *Traverser) Element(id geom.ElementID, root geom.Node, visible Filter) ([]*geom.Mesh, error) {
	if visible != nil && !visible(id) {
		return None(), nil
	}

	w := &walk{t: t}
	if err := w.node(root, "", 0); err != nil {
		return nil, &ElementError{ID: id, Err: err}
	}

	if w.skipped > 0 {
		t.logger.Debug("skipped degenerate geometry",
			"element", id,
			"skipped", w.skipped,
			"meshes", len(w.meshes))
	}

	if len(w.meshes) == 0 {
		return None(), nil
	}
	return w.meshes, nil
}

// Node traverses a geometry graph without element context. It returns an
// empty slice, not the placeholder, when nothing is produced.
func (t *Traverser) Node(root geom.Node) ([]*geom.Mesh, error) {
	w := &walk{t: t}
	if err := w.node(root, "", 0); err != nil {
		return nil, err
	}
	return w.meshes, nil
}

// None returns the "no geometry" result: a single nil mesh.
func None() []*geom.Mesh {
	return []*geom.Mesh{nil}
}

// IsNone reports whether meshes is the "no geometry" result.
func IsNone(meshes []*geom.Mesh) bool {
	return len(meshes) == 1 && meshes[0] == nil
}

// walk accumulates the meshes of one traversal.
type walk struct {
	t       *Traverser
	meshes  []*geom.Mesh
	skipped int
}

func (w *walk) node(n geom.Node, path string, depth int) error {
	switch v := n.(type) {
	case nil:
		return nil

	case *geom.Instance:
		if v == nil {
			return nil
		}
		if depth >= w.t.maxDepth {
			return fmt.Errorf("%s: %w", displayPath(path), ErrMaxDepth)
		}
		for i, child := range v.Children {
			if err := w.node(child, childPath(path, i), depth+1); err != nil {
				return err
			}
		}
		return nil

	case *geom.Solid:
		if v == nil || len(v.Faces) == 0 || v.Edges == 0 {
			w.skipped++
			return nil
		}
		local, err := tessellate.Faces(v.Faces)
		if err != nil {
			return fmt.Errorf("solid at %s: %w", displayPath(path), err)
		}
		if m := meshjoin.Join(local); m != nil {
			w.meshes = append(w.meshes, m)
		} else {
			w.skipped++
		}
		return nil

	case *geom.RawMesh:
		if v == nil || len(v.Vertices) == 0 {
			w.skipped++
			return nil
		}
		m, err := geom.NewMesh(v.Vertices, v.Faces)
		if errors.Is(err, geom.ErrEmptyMesh) {
			w.skipped++
			return nil
		}
		if err != nil {
			return &GeometryError{Path: displayPath(path), Err: err}
		}
		w.meshes = append(w.meshes, m)
		return nil

	case *geom.Other:
		return nil

	default:
		return fmt.Errorf("%s: %w (%T)", displayPath(path), ErrUnknownNode, n)
	}
}

func childPath(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "/" + strconv.Itoa(i)
}

func displayPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
