package testutil

import (
	"errors"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// ErrSurfaceFailed is returned by FailingSurface by default.
var ErrSurfaceFailed = errors.New("surface failed to triangulate")

// Triangle returns a unit right triangle at height z: 3 vertices, 1 face.
func Triangle(z float64) *geom.Mesh {
	return geom.MustMesh(
		[]geom.Point{geom.Pt(0, 0, z), geom.Pt(1, 0, z), geom.Pt(0, 1, z)},
		[]geom.Face{geom.Tri(0, 1, 2)},
	)
}

// Square returns a unit square at height z as one quad: 4 vertices, 1 face.
func Square(z float64) *geom.Mesh {
	return geom.MustMesh(
		[]geom.Point{geom.Pt(0, 0, z), geom.Pt(1, 0, z), geom.Pt(1, 1, z), geom.Pt(0, 1, z)},
		[]geom.Face{geom.Quad(0, 1, 2, 3)},
	)
}

// SplitSquare returns a unit square at height z as two triangles:
// 4 vertices, 2 faces.
func SplitSquare(z float64) *geom.Mesh {
	return geom.MustMesh(
		[]geom.Point{geom.Pt(0, 0, z), geom.Pt(1, 0, z), geom.Pt(1, 1, z), geom.Pt(0, 1, z)},
		[]geom.Face{geom.Tri(0, 1, 2), geom.Tri(0, 2, 3)},
	)
}

// StaticSurface is a surface that always triangulates to the same mesh.
type StaticSurface struct {
	Mesh *geom.Mesh
}

// Triangulate returns the stored mesh.
func (s StaticSurface) Triangulate() (*geom.Mesh, error) {
	return s.Mesh, nil
}

// FailingSurface is a surface that cannot be triangulated.
type FailingSurface struct {
	Err error // defaults to ErrSurfaceFailed
}

// Triangulate returns the configured error.
func (s FailingSurface) Triangulate() (*geom.Mesh, error) {
	if s.Err == nil {
		return nil, ErrSurfaceFailed
	}
	return nil, s.Err
}

// TwoFaceSolid returns a solid of two faces, each triangulating to two
// triangles over four unshared vertices.
func TwoFaceSolid() *geom.Solid {
	return &geom.Solid{
		Faces: []geom.Surface{
			StaticSurface{Mesh: SplitSquare(0)},
			StaticSurface{Mesh: SplitSquare(1)},
		},
		Edges: 8,
	}
}

// UnitCubeSolid returns the six quad faces of a unit cube, each split into
// two triangles: 24 vertices and 12 faces once joined.
func UnitCubeSolid() *geom.Solid {
	corners := [8]geom.Point{
		geom.Pt(0, 0, 0), geom.Pt(1, 0, 0), geom.Pt(1, 1, 0), geom.Pt(0, 1, 0),
		geom.Pt(0, 0, 1), geom.Pt(1, 0, 1), geom.Pt(1, 1, 1), geom.Pt(0, 1, 1),
	}
	loops := [6][4]int{
		{0, 3, 2, 1}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4},
		{1, 2, 6, 5},
		{2, 3, 7, 6},
		{3, 0, 4, 7},
	}

	faces := make([]geom.Surface, 0, len(loops))
	for _, loop := range loops {
		pts := make([]geom.Point, 4)
		for i, c := range loop {
			pts[i] = corners[c]
		}
		faces = append(faces, StaticSurface{
			Mesh: geom.MustMesh(pts, []geom.Face{geom.Tri(0, 1, 2), geom.Tri(0, 2, 3)}),
		})
	}
	return &geom.Solid{Faces: faces, Edges: 12}
}

// RawOf converts a mesh back to a raw mesh node.
func RawOf(m *geom.Mesh) *geom.RawMesh {
	return &geom.RawMesh{Vertices: m.Vertices(), Faces: m.Faces()}
}
