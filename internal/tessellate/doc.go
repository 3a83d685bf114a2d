// Package tessellate turns the faces of a solid into local meshes.
//
// Face is the single entry point the rest of dynamesh uses: it asks a
// geom.Surface for its triangulation and converts every way that can go
// wrong into an *Error. A face that cannot be triangulated is the one
// condition dynamesh treats as exceptional, so errors from this package are
// always propagated to the caller.
//
// The package also provides the two concrete surfaces the file-backed
// document host builds: Polygon (a planar loop, ear clipped here) and
// Triangulated (a face the host already meshed).
package tessellate
