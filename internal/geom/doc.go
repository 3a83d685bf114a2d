// Package geom provides the geometry types shared by every other dynamesh
// package: points, face index groups, immutable meshes and the sealed
// geometry node union handed out by a geometry source.
//
// This package imports nothing internal. All other internal packages import
// geom; geom imports none of them.
//
// Key invariants:
//   - A Mesh always has at least one vertex and at least one face
//   - Every face is a triangle or a quad and indexes inside its own mesh
//   - "No geometry" is a nil *Mesh (see IsNone), never an empty Mesh
//   - Node variants are closed: only Instance, Solid, RawMesh and Other exist
package geom
