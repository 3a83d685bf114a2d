package tessellate

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logant/DynamoExperiments/internal/geom"
)

// xyArea sums the absolute XY area of every triangle in m.
func xyArea(m *geom.Mesh) float64 {
	var total float64
	for _, f := range m.Faces() {
		a, b, c := m.Vertex(f[0]), m.Vertex(f[1]), m.Vertex(f[2])
		total += math.Abs((b.X-a.X)*(c.Y-a.Y)-(b.Y-a.Y)*(c.X-a.X)) / 2
	}
	return total
}

func square() []geom.Point {
	return []geom.Point{geom.Pt(0, 0, 0), geom.Pt(1, 0, 0), geom.Pt(1, 1, 0), geom.Pt(0, 1, 0)}
}

func TestPolygon_Square(t *testing.T) {
	m, err := Polygon{Loop: square()}.Triangulate()
	require.NoError(t, err)

	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 2, m.FaceCount())
	assert.Equal(t, 2, m.TriangleCount())
	assert.InDelta(t, 1.0, xyArea(m), 1e-12)
}

func TestPolygon_KeepQuads(t *testing.T) {
	m, err := Polygon{Loop: square(), KeepQuads: true}.Triangulate()
	require.NoError(t, err)

	require.Equal(t, 1, m.FaceCount())
	assert.Equal(t, geom.Quad(0, 1, 2, 3), m.Face(0))
}

func TestPolygon_KeepQuadsConcaveFallsBack(t *testing.T) {
	dart := []geom.Point{geom.Pt(0, 0, 0), geom.Pt(2, 1, 0), geom.Pt(0, 2, 0), geom.Pt(1, 1, 0)}

	m, err := Polygon{Loop: dart, KeepQuads: true}.Triangulate()
	require.NoError(t, err)
	assert.Equal(t, 2, m.TriangleCount())
	assert.Equal(t, 0, m.QuadCount())
	assert.InDelta(t, 1.0, xyArea(m), 1e-12)
}

func TestPolygon_ConcaveLShape(t *testing.T) {
	loop := []geom.Point{
		geom.Pt(0, 0, 0), geom.Pt(2, 0, 0), geom.Pt(2, 1, 0),
		geom.Pt(1, 1, 0), geom.Pt(1, 2, 0), geom.Pt(0, 2, 0),
	}

	m, err := Polygon{Loop: loop}.Triangulate()
	require.NoError(t, err)
	assert.Equal(t, 6, m.VertexCount())
	assert.Equal(t, 4, m.FaceCount())
	assert.InDelta(t, 3.0, xyArea(m), 1e-12, "triangles must cover the L exactly once")
}

func TestPolygon_ClockwiseLoopKeepsWinding(t *testing.T) {
	cw := []geom.Point{geom.Pt(0, 0, 0), geom.Pt(0, 1, 0), geom.Pt(1, 1, 0), geom.Pt(1, 0, 0)}

	m, err := Polygon{Loop: cw}.Triangulate()
	require.NoError(t, err)

	for _, f := range m.Faces() {
		a, b, c := m.Vertex(f[0]), m.Vertex(f[1]), m.Vertex(f[2])
		z := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		assert.Less(t, z, 0.0, "faces of a clockwise loop stay clockwise")
	}
}

func TestPolygon_VerticalPlane(t *testing.T) {
	wall := []geom.Point{geom.Pt(0, 0, 0), geom.Pt(3, 0, 0), geom.Pt(3, 0, 2), geom.Pt(0, 0, 2)}

	m, err := Polygon{Loop: wall}.Triangulate()
	require.NoError(t, err)
	assert.Equal(t, 2, m.FaceCount())
}

func TestPolygon_ClosingPointDropped(t *testing.T) {
	loop := append(square(), geom.Pt(0, 0, 0))

	m, err := Polygon{Loop: loop}.Triangulate()
	require.NoError(t, err)
	assert.Equal(t, 4, m.VertexCount())
}

func TestPolygon_CollinearMidpoint(t *testing.T) {
	loop := []geom.Point{
		geom.Pt(0, 0, 0), geom.Pt(1, 0, 0), geom.Pt(2, 0, 0),
		geom.Pt(2, 2, 0), geom.Pt(0, 2, 0),
	}

	m, err := Polygon{Loop: loop}.Triangulate()
	require.NoError(t, err)
	assert.InDelta(t, 4.0, xyArea(m), 1e-12)
}

func TestPolygon_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		loop []geom.Point
		want error
	}{
		{"empty", nil, ErrTooFewPoints},
		{"two points", []geom.Point{geom.Pt(0, 0, 0), geom.Pt(1, 0, 0)}, ErrTooFewPoints},
		{"repeated point", []geom.Point{geom.Pt(1, 1, 1), geom.Pt(1, 1, 1), geom.Pt(1, 1, 1)}, ErrTooFewPoints},
		{"collinear", []geom.Point{geom.Pt(0, 0, 0), geom.Pt(1, 0, 0), geom.Pt(2, 0, 0)}, ErrZeroArea},
		{"bowtie", []geom.Point{geom.Pt(0, 0, 0), geom.Pt(1, 1, 0), geom.Pt(1, 0, 0), geom.Pt(0, 1, 0)}, ErrZeroArea},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Polygon{Loop: tt.loop}.Triangulate()
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func outer4() []geom.Point {
	return []geom.Point{geom.Pt(0, 0, 0), geom.Pt(4, 0, 0), geom.Pt(4, 4, 0), geom.Pt(0, 4, 0)}
}

func diamond() []geom.Point {
	return []geom.Point{geom.Pt(1, 2, 0), geom.Pt(2, 1, 0), geom.Pt(3, 2, 0), geom.Pt(2, 3, 0)}
}

// assertCCW checks every face winds counter-clockwise in XY.
func assertCCW(t *testing.T, m *geom.Mesh) {
	t.Helper()
	for i, f := range m.Faces() {
		a, b, c := m.Vertex(f[0]), m.Vertex(f[1]), m.Vertex(f[2])
		z := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
		assert.Greater(t, z, 0.0, "face %d", i)
	}
}

func TestPolygon_Holes(t *testing.T) {
	tests := []struct {
		name      string
		holes     [][]geom.Point
		vertices  int
		triangles int
		area      float64
	}{
		{"diamond", [][]geom.Point{diamond()}, 8, 8, 14},
		{"square", [][]geom.Point{{geom.Pt(1, 1, 0), geom.Pt(3, 1, 0), geom.Pt(3, 3, 0), geom.Pt(1, 3, 0)}}, 8, 8, 12},
		{"off center", [][]geom.Point{{geom.Pt(1, 1, 0), geom.Pt(2, 1, 0), geom.Pt(2, 2, 0), geom.Pt(1, 2, 0)}}, 8, 8, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Polygon{Loop: outer4(), Holes: tt.holes}.Triangulate()
			require.NoError(t, err)
			assert.Equal(t, tt.vertices, m.VertexCount())
			assert.Equal(t, tt.triangles, m.TriangleCount())
			assert.InDelta(t, tt.area, xyArea(m), 1e-12, "triangles cover the face minus its hole exactly once")
			assertCCW(t, m)
		})
	}
}

func TestPolygon_HoleWindingIgnored(t *testing.T) {
	hole := diamond()
	slices.Reverse(hole)

	m, err := Polygon{Loop: outer4(), Holes: [][]geom.Point{hole}}.Triangulate()
	require.NoError(t, err)
	assert.InDelta(t, 14.0, xyArea(m), 1e-12)
	assertCCW(t, m)
}

func TestPolygon_WallWithTwoOpenings(t *testing.T) {
	wall := []geom.Point{geom.Pt(0, 0, 0), geom.Pt(10, 0, 0), geom.Pt(10, 4, 0), geom.Pt(0, 4, 0)}
	window := []geom.Point{geom.Pt(1, 1, 0), geom.Pt(3, 1, 0), geom.Pt(3, 3, 0), geom.Pt(1, 3, 0)}
	door := []geom.Point{geom.Pt(6, 0.5, 0), geom.Pt(8, 0.5, 0), geom.Pt(8, 3.5, 0), geom.Pt(6, 3.5, 0)}

	m, err := Polygon{Loop: wall, Holes: [][]geom.Point{window, door}, KeepQuads: true}.Triangulate()
	require.NoError(t, err)
	assert.Equal(t, 12, m.VertexCount())
	assert.Equal(t, 0, m.QuadCount(), "faces with holes are never kept as quads")
	assert.InDelta(t, 30.0, xyArea(m), 1e-12)
	assertCCW(t, m)
}

func TestPolygon_BadHoles(t *testing.T) {
	tests := []struct {
		name string
		hole []geom.Point
		want error
	}{
		{"too few points", []geom.Point{geom.Pt(1, 1, 0), geom.Pt(2, 1, 0)}, ErrTooFewPoints},
		{"zero area", []geom.Point{geom.Pt(1, 1, 0), geom.Pt(2, 1, 0), geom.Pt(3, 1, 0)}, ErrZeroArea},
		{"outside", []geom.Point{geom.Pt(5, 5, 0), geom.Pt(6, 5, 0), geom.Pt(6, 6, 0)}, ErrNoBridge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Polygon{Loop: outer4(), Holes: [][]geom.Point{tt.hole}}.Triangulate()
			assert.Nil(t, m)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "hole 0")
		})
	}
}
