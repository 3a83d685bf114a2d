package geom

import "fmt"

// Point is a 3D coordinate. Points compare by value; no tolerance is
// applied anywhere in dynamesh.
type Point struct {
	X, Y, Z float64
}

// Pt is shorthand for Point{x, y, z}.
func Pt(x, y, z float64) Point {
	return Point{X: x, Y: y, Z: z}
}

// Array returns the coordinates as a fixed array.
func (p Point) Array() [3]float64 {
	return [3]float64{p.X, p.Y, p.Z}
}

// PointFromArray is the inverse of Point.Array.
func PointFromArray(a [3]float64) Point {
	return Point{X: a[0], Y: a[1], Z: a[2]}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.X, p.Y, p.Z)
}
