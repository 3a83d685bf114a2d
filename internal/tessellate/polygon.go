package tessellate

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/ungerik/go3d/float64/vec3"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// Polygon is a planar face bounded by an outer loop and optional holes.
//
// Loops may repeat their first point at the end; consecutive duplicate
// points are dropped. Winding of the emitted faces follows the outer loop,
// whatever the winding of the holes. Holes must lie inside the outer loop
// and must not touch it or each other.
type Polygon struct {
	Loop  []geom.Point
	Holes [][]geom.Point

	// KeepQuads emits a convex four-point loop without holes as one quad
	// instead of two triangles.
	KeepQuads bool
}

// Triangulate ear clips the polygon in the plane of its outer loop's
// Newell normal. Holes are first spliced into the outer loop through a
// bridge edge each.
func (p Polygon) Triangulate() (*geom.Mesh, error) {
	pts := distinctLoop(p.Loop)
	if len(pts) < 3 {
		return nil, ErrTooFewPoints
	}

	normal := newellNormal(pts)
	if normal.Length() == 0 {
		return nil, ErrZeroArea
	}
	flat := project(pts, normal)

	area := signedArea(flat)
	if area == 0 {
		return nil, ErrZeroArea
	}
	sign := 1.0
	if area < 0 {
		sign = -1.0
	}

	if len(p.Holes) == 0 && p.KeepQuads && len(pts) == 4 && isConvex(flat, sign) {
		return geom.NewMesh(pts, []geom.Face{geom.Quad(0, 1, 2, 3)})
	}

	ring := make([]int, len(pts))
	for i := range ring {
		ring[i] = i
	}

	if len(p.Holes) > 0 {
		holes := make([][]int, 0, len(p.Holes))
		for i, h := range p.Holes {
			hole := distinctLoop(h)
			if len(hole) < 3 {
				return nil, fmt.Errorf("hole %d: %w", i, ErrTooFewPoints)
			}
			holeFlat := project(hole, normal)
			holeArea := signedArea(holeFlat)
			if holeArea == 0 {
				return nil, fmt.Errorf("hole %d: %w", i, ErrZeroArea)
			}

			idx := make([]int, len(hole))
			for j := range hole {
				idx[j] = len(pts) + j
			}
			// Holes run against the outer loop.
			if holeArea*sign > 0 {
				slices.Reverse(idx)
			}
			pts = append(pts, hole...)
			flat = append(flat, holeFlat...)
			holes = append(holes, idx)
		}

		var err error
		ring, err = bridgeHoles(flat, ring, holes)
		if err != nil {
			return nil, err
		}
	}

	faces, err := earClip(flat, ring, sign)
	if err != nil {
		return nil, err
	}
	return geom.NewMesh(pts, faces)
}

// bridgeHoles splices every hole into ring, rightmost hole first. Each
// hole is joined at its vertex of largest u to the nearest ring vertex
// further right that it can see. The bridge is walked both ways, so its
// two endpoints appear twice in the result.
func bridgeHoles(pts []point2, ring []int, holes [][]int) ([]int, error) {
	maxU := func(hole []int) int {
		best := 0
		for i, j := range hole {
			if pts[j].u > pts[hole[best]].u {
				best = i
			}
		}
		return best
	}

	order := make([]int, len(holes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ha, hb := holes[order[a]], holes[order[b]]
		return pts[ha[maxU(ha)]].u > pts[hb[maxU(hb)]].u
	})

	for n, hi := range order {
		hole := holes[hi]
		m := maxU(hole)
		mp := pts[hole[m]]

		// Edges the bridge must not cross: the current ring and every hole
		// still waiting, including this one.
		blockers := [][]int{ring}
		for _, later := range order[n:] {
			blockers = append(blockers, holes[later])
		}

		r := -1
		bestDist := math.Inf(1)
		for i, j := range ring {
			rp := pts[j]
			if rp.u <= mp.u {
				continue
			}
			d := (rp.u-mp.u)*(rp.u-mp.u) + (rp.v-mp.v)*(rp.v-mp.v)
			if d >= bestDist || crossesAny(pts, mp, rp, blockers) {
				continue
			}
			r, bestDist = i, d
		}
		if r < 0 {
			return nil, fmt.Errorf("hole %d: %w", hi, ErrNoBridge)
		}

		spliced := make([]int, 0, len(ring)+len(hole)+2)
		spliced = append(spliced, ring[:r+1]...)
		spliced = append(spliced, hole[m:]...)
		spliced = append(spliced, hole[:m]...)
		spliced = append(spliced, hole[m], ring[r])
		spliced = append(spliced, ring[r+1:]...)
		ring = spliced
	}
	return ring, nil
}

// crossesAny reports whether segment a-b properly crosses an edge of any
// loop. Touching at an endpoint does not count.
func crossesAny(pts []point2, a, b point2, loops [][]int) bool {
	for _, loop := range loops {
		for i := range loop {
			c, d := pts[loop[i]], pts[loop[(i+1)%len(loop)]]
			if c == a || c == b || d == a || d == b {
				continue
			}
			if orient(a, b, c)*orient(a, b, d) < 0 && orient(c, d, a)*orient(c, d, b) < 0 {
				return true
			}
		}
	}
	return false
}

// distinctLoop drops consecutive duplicates, including a closing point
// equal to the first.
func distinctLoop(loop []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(loop))
	for _, pt := range loop {
		if len(out) > 0 && out[len(out)-1] == pt {
			continue
		}
		out = append(out, pt)
	}
	for len(out) > 1 && out[len(out)-1] == out[0] {
		out = out[:len(out)-1]
	}
	return out
}

// newellNormal returns the polygon normal scaled by twice its area.
func newellNormal(pts []geom.Point) vec3.T {
	var n vec3.T
	for i := range pts {
		a := vec3.T(pts[i].Array())
		b := vec3.T(pts[(i+1)%len(pts)].Array())
		c := vec3.Cross(&a, &b)
		n.Add(&c)
	}
	return n
}

type point2 struct{ u, v float64 }

// project drops the coordinate along the normal's dominant axis.
func project(pts []geom.Point, normal vec3.T) []point2 {
	ax, ay, az := math.Abs(normal[0]), math.Abs(normal[1]), math.Abs(normal[2])
	out := make([]point2, len(pts))
	for i, pt := range pts {
		switch {
		case az >= ax && az >= ay:
			out[i] = point2{pt.X, pt.Y}
		case ax >= ay:
			out[i] = point2{pt.Y, pt.Z}
		default:
			out[i] = point2{pt.Z, pt.X}
		}
	}
	return out
}

func signedArea(pts []point2) float64 {
	var sum float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		sum += a.u*b.v - b.u*a.v
	}
	return sum / 2
}

// orient is positive when a→b→c turns counter-clockwise.
func orient(a, b, c point2) float64 {
	return (b.u-a.u)*(c.v-a.v) - (b.v-a.v)*(c.u-a.u)
}

func isConvex(pts []point2, sign float64) bool {
	n := len(pts)
	for i := range pts {
		if orient(pts[(i+n-1)%n], pts[i], pts[(i+1)%n])*sign <= 0 {
			return false
		}
	}
	return true
}

func inTriangle(p, a, b, c point2, sign float64) bool {
	return orient(a, b, p)*sign >= 0 &&
		orient(b, c, p)*sign >= 0 &&
		orient(c, a, p)*sign >= 0
}

// earClip triangulates the simple polygon traced by ring, a list of
// indices into pts. Vertices lying on a straight run are dropped from the
// remaining loop without emitting a face.
func earClip(pts []point2, ring []int, sign float64) ([]geom.Face, error) {
	idx := append([]int(nil), ring...)

	faces := make([]geom.Face, 0, len(idx)-2)
	for len(idx) > 3 {
		if !clipOne(pts, &idx, &faces, sign) {
			return nil, ErrNoEar
		}
	}

	a, b, c := pts[idx[0]], pts[idx[1]], pts[idx[2]]
	if orient(a, b, c)*sign > 0 {
		faces = append(faces, geom.Tri(idx[0], idx[1], idx[2]))
	}
	if len(faces) == 0 {
		return nil, ErrZeroArea
	}
	return faces, nil
}

// clipOne removes one vertex from idx, appending a face when it was an ear.
// Returns false when no vertex can be removed.
func clipOne(pts []point2, idx *[]int, faces *[]geom.Face, sign float64) bool {
	ring := *idx
	n := len(ring)

	for i := 0; i < n; i++ {
		ia, ib, ic := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
		if orient(pts[ia], pts[ib], pts[ic])*sign <= 0 {
			continue
		}
		if containsOther(pts, ring, ia, ib, ic, sign) {
			continue
		}
		*faces = append(*faces, geom.Tri(ia, ib, ic))
		*idx = append(ring[:i], ring[i+1:]...)
		return true
	}

	for i := 0; i < n; i++ {
		ia, ib, ic := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
		if orient(pts[ia], pts[ib], pts[ic]) == 0 {
			*idx = append(ring[:i], ring[i+1:]...)
			return true
		}
	}
	return false
}

// containsOther reports whether a ring vertex other than the corners lies
// in triangle ia, ib, ic. Bridge endpoints repeat a corner's position and
// are not counted.
func containsOther(pts []point2, ring []int, ia, ib, ic int, sign float64) bool {
	for _, j := range ring {
		if j == ia || j == ib || j == ic {
			continue
		}
		if p := pts[j]; p == pts[ia] || p == pts[ib] || p == pts[ic] {
			continue
		}
		if inTriangle(pts[j], pts[ia], pts[ib], pts[ic], sign) {
			return true
		}
	}
	return false
}
