package traverse

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logant/DynamoExperiments/internal/geom"
	"github.com/logant/DynamoExperiments/internal/tessellate"
	"github.com/logant/DynamoExperiments/internal/testutil"
)

func quietTraverser(opts ...Option) *Traverser {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(opts...)
}

// Example 4: a solid of two faces, each two triangles over four unshared
// vertices, becomes one mesh of 8 vertices and 4 triangles.
func TestElement_TwoFaceSolid(t *testing.T) {
	tr := quietTraverser()

	meshes, err := tr.Element(1, testutil.TwoFaceSolid(), nil)
	require.NoError(t, err)
	require.Len(t, meshes, 1)

	m := meshes[0]
	assert.Equal(t, 8, m.VertexCount())
	assert.Equal(t, 4, m.FaceCount())
	assert.Equal(t, 4, m.TriangleCount())
	assert.Equal(t, []geom.Face{
		geom.Tri(0, 1, 2), geom.Tri(0, 2, 3),
		geom.Tri(4, 5, 6), geom.Tri(4, 6, 7),
	}, m.Faces())
}

func TestElement_PolygonFaces(t *testing.T) {
	solid := &geom.Solid{
		Faces: []geom.Surface{
			tessellate.Polygon{Loop: []geom.Point{geom.Pt(0, 0, 0), geom.Pt(1, 0, 0), geom.Pt(1, 1, 0), geom.Pt(0, 1, 0)}},
			tessellate.Polygon{Loop: []geom.Point{geom.Pt(0, 0, 1), geom.Pt(1, 0, 1), geom.Pt(1, 1, 1), geom.Pt(0, 1, 1)}},
		},
		Edges: 8,
	}

	meshes, err := quietTraverser().Element(1, solid, nil)
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, 8, meshes[0].VertexCount())
	assert.Equal(t, 4, meshes[0].TriangleCount())
}

func TestElement_DegenerateSolidsSkipped(t *testing.T) {
	tests := []struct {
		name string
		root geom.Node
	}{
		{"no faces", &geom.Solid{Edges: 12}},
		{"no edges", &geom.Solid{Faces: []geom.Surface{testutil.StaticSurface{Mesh: testutil.Triangle(0)}}}},
		{"no edges with failing face", &geom.Solid{Faces: []geom.Surface{testutil.FailingSurface{}}}},
		{"nil solid", (*geom.Solid)(nil)},
		{"empty raw mesh", &geom.RawMesh{}},
		{"raw mesh without faces", &geom.RawMesh{Vertices: []geom.Point{geom.Pt(0, 0, 0)}}},
		{"other", &geom.Other{Kind: "curve"}},
		{"nil root", nil},
		{"empty instance", &geom.Instance{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meshes, err := quietTraverser().Element(1, tt.root, nil)
			require.NoError(t, err)
			assert.True(t, IsNone(meshes))
		})
	}
}

func TestElement_MixedGeometryOrder(t *testing.T) {
	root := &geom.Instance{
		Name: "root",
		Children: []geom.Node{
			testutil.RawOf(testutil.Triangle(0)),
			&geom.Other{Kind: "text"},
			&geom.Solid{},
			testutil.UnitCubeSolid(),
			testutil.RawOf(testutil.Square(2)),
		},
	}

	meshes, err := quietTraverser().Element(9, root, nil)
	require.NoError(t, err)
	require.Len(t, meshes, 3)
	assert.Equal(t, 3, meshes[0].VertexCount())
	assert.Equal(t, 24, meshes[1].VertexCount())
	assert.Equal(t, 12, meshes[1].FaceCount())
	assert.Equal(t, 1, meshes[2].QuadCount())
}

func TestElement_NestedInstancesFullyUnwrapped(t *testing.T) {
	root := &geom.Instance{Children: []geom.Node{
		&geom.Instance{Children: []geom.Node{
			&geom.Instance{Children: []geom.Node{
				testutil.RawOf(testutil.Triangle(3)),
			}},
		}},
		testutil.RawOf(testutil.Triangle(1)),
	}}

	meshes, err := quietTraverser().Element(1, root, nil)
	require.NoError(t, err)
	require.Len(t, meshes, 2)
	assert.Equal(t, geom.Pt(0, 0, 3), meshes[0].Vertex(0), "depth-first, child order")
	assert.Equal(t, geom.Pt(0, 0, 1), meshes[1].Vertex(0))
}

func TestElement_MaxDepth(t *testing.T) {
	leaf := testutil.RawOf(testutil.Triangle(0))
	root := &geom.Instance{Children: []geom.Node{
		&geom.Instance{Children: []geom.Node{leaf}},
	}}

	_, err := quietTraverser(WithMaxDepth(2)).Element(1, root, nil)
	require.NoError(t, err)

	_, err = quietTraverser(WithMaxDepth(1)).Element(1, root, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxDepth)

	id, ok := ElementIDOf(err)
	require.True(t, ok)
	assert.Equal(t, geom.ElementID(1), id)
}

func TestElement_SelfReferenceHitsMaxDepth(t *testing.T) {
	loop := &geom.Instance{Name: "loop"}
	loop.Children = []geom.Node{loop}

	_, err := quietTraverser().Element(1, loop, nil)
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestElement_TessellationFailurePropagates(t *testing.T) {
	root := &geom.Instance{Children: []geom.Node{
		testutil.RawOf(testutil.Triangle(0)),
		&geom.Solid{
			Faces: []geom.Surface{
				testutil.StaticSurface{Mesh: testutil.Triangle(0)},
				testutil.FailingSurface{},
			},
			Edges: 6,
		},
	}}

	meshes, err := quietTraverser().Element(42, root, nil)
	require.Error(t, err)
	assert.Nil(t, meshes)

	assert.True(t, tessellate.IsTessellationError(err))
	assert.ErrorIs(t, err, testutil.ErrSurfaceFailed)

	var te *tessellate.Error
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 1, te.Face)

	var ee *ElementError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, geom.ElementID(42), ee.ID)
	assert.Contains(t, err.Error(), "element 42")
	assert.Contains(t, err.Error(), "solid at 1")
}

func TestElement_InvalidRawMesh(t *testing.T) {
	root := &geom.RawMesh{
		Vertices: []geom.Point{geom.Pt(0, 0, 0), geom.Pt(1, 0, 0), geom.Pt(0, 1, 0)},
		Faces:    []geom.Face{geom.Tri(0, 1, 5)},
	}

	_, err := quietTraverser().Element(3, root, nil)
	require.Error(t, err)
	assert.True(t, IsGeometryError(err))

	var fe *geom.FaceError
	assert.True(t, errors.As(err, &fe))
}

type foreignNode struct {
	*geom.Other
}

func TestElement_UnknownNode(t *testing.T) {
	_, err := quietTraverser().Element(1, foreignNode{&geom.Other{}}, nil)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestElement_VisibilityFilter(t *testing.T) {
	visible := func(id geom.ElementID) bool { return id == 1 }

	meshes, err := quietTraverser().Element(1, testutil.TwoFaceSolid(), visible)
	require.NoError(t, err)
	assert.False(t, IsNone(meshes))

	// Hidden elements never reach the graph, so even failing geometry
	// yields the placeholder.
	failing := &geom.Solid{Faces: []geom.Surface{testutil.FailingSurface{}}, Edges: 3}
	meshes, err = quietTraverser().Element(2, failing, visible)
	require.NoError(t, err)
	assert.True(t, IsNone(meshes))
}

func TestNode_EmptyResultIsEmptySlice(t *testing.T) {
	meshes, err := quietTraverser().Node(&geom.Other{})
	require.NoError(t, err)
	assert.Empty(t, meshes)
	assert.False(t, IsNone(meshes))
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, DefaultMaxDepth, New().MaxDepth())
	assert.Equal(t, DefaultMaxDepth, New(WithMaxDepth(0)).MaxDepth())
	assert.Equal(t, 3, New(WithMaxDepth(3)).MaxDepth())
}

func TestElement_LogsSkips(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	root := &geom.Instance{Children: []geom.Node{&geom.Solid{}, &geom.RawMesh{}}}
	_, err := New(WithLogger(logger)).Element(7, root, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "skipped degenerate geometry")
	assert.Contains(t, out, "element=7")
	assert.Contains(t, out, "skipped=2")
}
