package tessellate

import (
	"fmt"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// Face triangulates a single surface into a local mesh.
//
// The returned mesh uses zero-based indices independent of any other face.
// Any failure, including a panic in the surface, is returned as an *Error
// with Face set to -1.
func Face(s geom.Surface) (*geom.Mesh, error) {
	return face(-1, s)
}

// Faces triangulates every surface of a solid, in order.
// The first failure stops the loop and is returned as an *Error carrying
// the face position.
func Faces(surfaces []geom.Surface) ([]*geom.Mesh, error) {
	meshes := make([]*geom.Mesh, 0, len(surfaces))
	for i, s := range surfaces {
		m, err := face(i, s)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, m)
	}
	return meshes, nil
}

func face(pos int, s geom.Surface) (m *geom.Mesh, err error) {
	if s == nil {
		return nil, &Error{Face: pos, Err: ErrNilSurface}
	}

	// A typed nil surface (or any host surface bug) panics inside
	// Triangulate; report it as a failure of this face.
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = &Error{Face: pos, Err: fmt.Errorf("%w: %v", ErrSurfacePanic, r)}
		}
	}()

	m, err = s.Triangulate()
	if err != nil {
		return nil, &Error{Face: pos, Err: err}
	}
	if m == nil {
		return nil, &Error{Face: pos, Err: ErrNoMesh}
	}
	return m, nil
}

// Triangulated is a face the host has already meshed.
type Triangulated struct {
	Vertices []geom.Point
	Faces    []geom.Face
}

// Triangulate validates and returns the stored mesh.
func (t Triangulated) Triangulate() (*geom.Mesh, error) {
	return geom.NewMesh(t.Vertices, t.Faces)
}
