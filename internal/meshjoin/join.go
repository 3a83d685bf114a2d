// Package meshjoin merges an ordered list of meshes into a single mesh.
//
// Joining concatenates vertex buffers and rewrites every face with a running
// offset. It never welds coincident vertices: seams between input meshes
// stay duplicated, which downstream consumers tolerate.
package meshjoin

import (
	"github.com/logant/DynamoExperiments/internal/geom"
)

// Join merges meshes in order.
//
// The k-th vertex of input mesh i ends up at position
// sum(VertexCount of non-nil meshes before i) + k, and every face keeps its
// arity. Nil entries are skipped.
//
// A single-element input is returned as is, without copying. Join returns
// nil when there is nothing to join: an empty list or only nil entries.
func Join(meshes []*geom.Mesh) *geom.Mesh {
	if len(meshes) == 1 {
		return meshes[0]
	}

	vertexCount, faceCount := Stats(meshes)
	if vertexCount == 0 || faceCount == 0 {
		return nil
	}

	vertices := make([]geom.Point, 0, vertexCount)
	faces := make([]geom.Face, 0, faceCount)

	for _, m := range meshes {
		if geom.IsNone(m) {
			continue
		}
		// Base index for this mesh's faces in the growing buffer.
		base := len(vertices)
		vertices = append(vertices, m.Vertices()...)
		for _, f := range m.Faces() {
			faces = append(faces, f.Offset(base))
		}
	}

	joined, err := geom.NewMesh(vertices, faces)
	if err != nil {
		// Inputs are valid meshes, so offset faces are always in range.
		return nil
	}
	return joined
}

// Stats returns the total vertex and face counts of the non-nil meshes.
func Stats(meshes []*geom.Mesh) (vertices, faces int) {
	for _, m := range meshes {
		vertices += m.VertexCount()
		faces += m.FaceCount()
	}
	return vertices, faces
}
