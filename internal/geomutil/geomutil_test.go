package geomutil

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square(minX, minY, maxX, maxY float64) orb.Ring {
	return orb.Ring{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}
}

func TestQuantile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Quantile(values, 0))
	assert.Equal(t, 5.0, Quantile(values, 1))
	assert.Equal(t, 3.0, Quantile(values, 0.5))
	assert.InDelta(t, 2.0, Quantile(values, 0.25), 1e-9)
}

func TestQuantileEmptyAndSingle(t *testing.T) {
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.9))
}

func TestMinMaxMedian(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	assert.Equal(t, 1.0, Min(values))
	assert.Equal(t, 9.0, Max(values))
	assert.InDelta(t, 3.5, Median(values), 1e-9)
}

func TestPointInRing(t *testing.T) {
	ring := OpenRing(square(0, 0, 10, 10))
	assert.True(t, PointInRing(ring, orb.Point{5, 5}))
	assert.False(t, PointInRing(ring, orb.Point{15, 5}))
}

func TestPointInPolygonWithHole(t *testing.T) {
	poly := orb.Polygon{
		square(0, 0, 10, 10),
		square(3, 3, 6, 6),
	}
	norm := NormalizeWinding(poly)
	assert.True(t, PointInPolygon(norm, orb.Point{1, 1}))
	assert.False(t, PointInPolygon(norm, orb.Point{4, 4}))
}

func TestNormalizeWindingOuterCCWHolesCW(t *testing.T) {
	poly := orb.Polygon{
		Reversed(OpenRing(square(0, 0, 10, 10))), // force outer CW
		square(3, 3, 6, 6),                       // force hole CCW
	}
	norm := NormalizeWinding(poly)
	assert.True(t, IsCCW(OpenRing(norm[0])))
	assert.False(t, IsCCW(OpenRing(norm[1])))
}

func TestTriangulatePolygonSimpleSquare(t *testing.T) {
	poly := orb.Polygon{square(0, 0, 4, 4)}
	tri, err := TriangulatePolygon(poly)
	require.NoError(t, err)
	assert.Len(t, tri.Faces, 2)

	var area float64
	for _, f := range tri.Faces {
		a, b, c := tri.Points[f[0]], tri.Points[f[1]], tri.Points[f[2]]
		area += Area([]orb.Point{a, b, c})
	}
	assert.InDelta(t, 16.0, area, 1e-6)
}

func TestTriangulatePolygonWithHole(t *testing.T) {
	poly := orb.Polygon{
		square(0, 0, 10, 10),
		square(3, 3, 6, 6),
	}
	tri, err := TriangulatePolygon(poly)
	require.NoError(t, err)
	require.NotEmpty(t, tri.Faces)

	var area float64
	for _, f := range tri.Faces {
		a, b, c := tri.Points[f[0]], tri.Points[f[1]], tri.Points[f[2]]
		area += Area([]orb.Point{a, b, c})
	}
	assert.InDelta(t, 100.0-9.0, area, 1e-6)
}

func TestTriangulatePolygonDegenerate(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {1, 1}}}
	_, err := TriangulatePolygon(poly)
	assert.Error(t, err)
}

func TestExtrudePolygonWatertightCounts(t *testing.T) {
	poly := orb.Polygon{square(0, 0, 2, 2)}
	frag, err := ExtrudeFlat(poly, 0, 5)
	require.NoError(t, err)

	edgeCount := map[[2]int]int{}
	for _, f := range frag.Faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			edgeCount[[2]int{a, b}]++
		}
	}
	for edge, c := range edgeCount {
		assert.Equalf(t, 2, c, "edge %v shared by %d faces, want 2", edge, c)
	}
}

func TestCellsCoveredByPolygon(t *testing.T) {
	poly := orb.Polygon{square(1.5, 1.5, 3.5, 3.5)}
	cells := CellsCoveredByPolygon(poly, 0, 0, 1, 1, 5, 5)
	assert.NotEmpty(t, cells)

	found := map[CellIndex]bool{}
	for _, c := range cells {
		found[c] = true
	}
	assert.True(t, found[CellIndex{2, 2}])
}

func TestPolygonsIntersectArea(t *testing.T) {
	a := orb.Polygon{square(0, 0, 10, 10)}
	b := orb.Polygon{square(5, 5, 15, 15)}
	c := orb.Polygon{square(20, 20, 30, 30)}

	assert.True(t, PolygonsIntersectArea(a, b, 16, 0.05))
	assert.False(t, PolygonsIntersectArea(a, c, 16, 0.05))
}

func TestBufferLineProducesClosedPolygon(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}, {10, 10}}
	poly := BufferLine(line, 2, 8)
	require.NotEmpty(t, poly)
	assert.Greater(t, Area(OpenRing(poly[0])), 0.0)
}

func TestBufferLineDegenerateInputs(t *testing.T) {
	assert.Nil(t, BufferLine(orb.LineString{{0, 0}}, 2, 8))
	assert.Nil(t, BufferLine(orb.LineString{{0, 0}, {1, 1}}, 0, 8))
}
