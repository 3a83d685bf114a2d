package geom

// ElementID identifies a host element.
type ElementID int64

// InvalidElementID stands for a null element handle.
const InvalidElementID ElementID = -1

// Valid reports whether id refers to an element at all.
func (id ElementID) Valid() bool {
	return id != InvalidElementID
}

// Surface is a face of a solid that can be triangulated into a local mesh
// with zero-based indices. The triangulation tolerance belongs to the
// surface (and so to the geometry source), not to dynamesh.
type Surface interface {
	Triangulate() (*Mesh, error)
}

// Node is one node of an element's geometry graph.
//
// The set of variants is closed: Instance, Solid, RawMesh and Other. The
// marker method is unexported so no other package can add a variant that a
// type switch would silently miss.
type Node interface {
	// node is a private method restricting implementations to this package.
	node()
}

// Instance is a (transformed) reference to nested geometry. Its children
// are already expressed in resolved coordinates.
type Instance struct {
	Name     string
	Children []Node
}

// Solid is a closed or open B-rep body described by its faces.
type Solid struct {
	Faces []Surface
	Edges int // number of edges; a solid with none is degenerate
}

// RawMesh is geometry the host already holds as a mesh.
type RawMesh struct {
	Vertices []Point
	Faces    []Face
}

// Other is any geometry dynamesh does not convert (curves, points, text).
type Other struct {
	Kind string
}

func (*Instance) node() {}
func (*Solid) node()    {}
func (*RawMesh) node()  {}
func (*Other) node()    {}

// KindOf names the variant of n, or "" for nil.
func KindOf(n Node) string {
	switch n.(type) {
	case *Instance:
		return "instance"
	case *Solid:
		return "solid"
	case *RawMesh:
		return "mesh"
	case *Other:
		return "other"
	default:
		return ""
	}
}
