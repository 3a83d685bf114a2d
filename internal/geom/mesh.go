package geom

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyMesh is returned by NewMesh when the vertex or face list is empty.
// Such data means "no geometry", which dynamesh represents as a nil *Mesh.
var ErrEmptyMesh = errors.New("mesh has no vertices or no faces")

// Face is an index group: the vertex indices of one triangle or quad.
type Face []int

// Tri creates a triangular face.
func Tri(a, b, c int) Face {
	return Face{a, b, c}
}

// Quad creates a quadrilateral face.
func Quad(a, b, c, d int) Face {
	return Face{a, b, c, d}
}

// IsTriangle reports whether the face has three indices.
func (f Face) IsTriangle() bool {
	return len(f) == 3
}

// IsQuad reports whether the face has four indices.
func (f Face) IsQuad() bool {
	return len(f) == 4
}

// Offset returns a new face with base added to every index.
// The arity of the face is preserved.
func (f Face) Offset(base int) Face {
	out := make(Face, len(f))
	for i, idx := range f {
		out[i] = idx + base
	}
	return out
}

// FaceError describes a face that violates the index group invariants.
type FaceError struct {
	Face    int    // position of the face in the mesh face list
	Message string // what is wrong with it
}

func (e *FaceError) Error() string {
	return fmt.Sprintf("face %d: %s", e.Face, e.Message)
}

// Mesh is an immutable vertex buffer plus the faces indexing into it.
//
// Meshes are only built through NewMesh, which copies and validates its
// inputs. Slices returned by Vertices and Faces share the mesh's backing
// storage and must not be modified.
type Mesh struct {
	vertices []Point
	faces    []Face
}

// NewMesh validates and copies the given buffers into a new Mesh.
//
// Returns ErrEmptyMesh if either list is empty, or a *FaceError if a face
// is not a triangle/quad or references a vertex outside the buffer.
func NewMesh(vertices []Point, faces []Face) (*Mesh, error) {
	if len(vertices) == 0 || len(faces) == 0 {
		return nil, ErrEmptyMesh
	}

	for i, f := range faces {
		if err := checkFace(i, f, len(vertices)); err != nil {
			return nil, err
		}
	}

	m := &Mesh{
		vertices: make([]Point, len(vertices)),
		faces:    make([]Face, len(faces)),
	}
	copy(m.vertices, vertices)
	for i, f := range faces {
		m.faces[i] = append(Face(nil), f...)
	}
	return m, nil
}

// MustMesh is like NewMesh but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMesh(vertices []Point, faces []Face) *Mesh {
	m, err := NewMesh(vertices, faces)
	if err != nil {
		panic(err)
	}
	return m
}

func checkFace(pos int, f Face, vertexCount int) error {
	if len(f) != 3 && len(f) != 4 {
		return &FaceError{Face: pos, Message: fmt.Sprintf("has %d indices, want 3 or 4", len(f))}
	}
	for _, idx := range f {
		if idx < 0 || idx >= vertexCount {
			return &FaceError{Face: pos, Message: fmt.Sprintf("index %d out of range [0, %d)", idx, vertexCount)}
		}
	}
	return nil
}

// IsNone reports whether m is the "no geometry" placeholder.
func IsNone(m *Mesh) bool {
	return m == nil
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.vertices)
}

// FaceCount returns the number of faces.
func (m *Mesh) FaceCount() int {
	if m == nil {
		return 0
	}
	return len(m.faces)
}

// Vertex returns the i-th vertex.
func (m *Mesh) Vertex(i int) Point {
	return m.vertices[i]
}

// Face returns the i-th face.
func (m *Mesh) Face(i int) Face {
	return m.faces[i]
}

// Vertices returns the vertex buffer. Do not modify.
func (m *Mesh) Vertices() []Point {
	if m == nil {
		return nil
	}
	return m.vertices
}

// Faces returns the face list. Do not modify.
func (m *Mesh) Faces() []Face {
	if m == nil {
		return nil
	}
	return m.faces
}

// TriangleCount returns how many faces are triangles.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces() {
		if f.IsTriangle() {
			n++
		}
	}
	return n
}

// QuadCount returns how many faces are quads.
func (m *Mesh) QuadCount() int {
	return m.FaceCount() - m.TriangleCount()
}

// meshJSON is the wire form of a Mesh.
type meshJSON struct {
	Vertices [][3]float64 `json:"vertices"`
	Faces    [][]int      `json:"faces"`
}

// MarshalJSON encodes the mesh as {"vertices":[[x,y,z],...],"faces":[[i,j,k],...]}.
func (m *Mesh) MarshalJSON() ([]byte, error) {
	w := meshJSON{
		Vertices: make([][3]float64, len(m.vertices)),
		Faces:    make([][]int, len(m.faces)),
	}
	for i, v := range m.vertices {
		w.Vertices[i] = v.Array()
	}
	for i, f := range m.faces {
		w.Faces[i] = []int(f)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form and re-validates it. Every vertex
// must have exactly three coordinates.
func (m *Mesh) UnmarshalJSON(data []byte) error {
	var w struct {
		Vertices [][]float64 `json:"vertices"`
		Faces    [][]int     `json:"faces"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	vertices := make([][3]float64, len(w.Vertices))
	for i, v := range w.Vertices {
		if len(v) != 3 {
			return fmt.Errorf("vertex %d has %d coordinates, want 3", i, len(v))
		}
		vertices[i] = [3]float64{v[0], v[1], v[2]}
	}
	decoded, err := FromArrays(vertices, w.Faces)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// FromArrays builds a mesh from plain coordinate and index arrays, the
// shape used by document and mesh files.
func FromArrays(vertices [][3]float64, faces [][]int) (*Mesh, error) {
	pts := make([]Point, len(vertices))
	for i, v := range vertices {
		pts[i] = PointFromArray(v)
	}
	fs := make([]Face, len(faces))
	for i, f := range faces {
		fs[i] = Face(f)
	}
	return NewMesh(pts, fs)
}
