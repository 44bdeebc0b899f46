package coordframe

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewIsDeterministic(t *testing.T) {
	bounds := types.BoundingBox{MinLon: 9.70, MinLat: 52.35, MaxLon: 9.90, MaxLat: 52.45}

	f1 := New(bounds)
	f2 := New(bounds)

	if f1 != f2 {
		t.Fatalf("New(bounds) is not deterministic: %+v != %+v", f1, f2)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	tests := []struct {
		lat, lon float64
	}{
		{52.4, 9.8},
		{0, 0},
		{-33.87, 151.21},
		{60.0, -1.5},
	}

	for _, tt := range tests {
		x, y := ToProjected(tt.lat, tt.lon)
		gotLat, gotLon := ToGeographic(x, y)
		if !almostEqual(gotLat, tt.lat, 1e-7) || !almostEqual(gotLon, tt.lon, 1e-7) {
			t.Errorf("round trip (%.6f,%.6f) -> (%.6f,%.6f), want close to original", tt.lat, tt.lon, gotLat, gotLon)
		}
	}
}

func TestLocalRoundTrip(t *testing.T) {
	bounds := types.BoundingBox{MinLon: 9.70, MinLat: 52.35, MaxLon: 9.90, MaxLat: 52.45}
	f := New(bounds)

	lat, lon := 52.40, 9.81
	lx, ly := f.GeographicToLocal(lat, lon)
	gotLat, gotLon := f.LocalToGeographic(lx, ly)

	if !almostEqual(gotLat, lat, 1e-7) || !almostEqual(gotLon, lon, 1e-7) {
		t.Errorf("local round trip mismatch: got (%.6f,%.6f), want (%.6f,%.6f)", gotLat, gotLon, lat, lon)
	}
}

func TestLocalExtentCentered(t *testing.T) {
	bounds := types.BoundingBox{MinLon: 9.70, MinLat: 52.35, MaxLon: 9.90, MaxLat: 52.45}
	f := New(bounds)

	minX, minY, maxX, maxY := f.LocalExtent(bounds)

	// The frame's anchor is the bbox centroid. Web Mercator X is linear in
	// longitude, so the X extent is antisymmetric around zero. Y grows faster
	// than latitude, so on Y the centroid latitude maps to zero and, north of
	// the equator, the northern half of the extent is the longer one.
	if !almostEqual(minX, -maxX, 1e-6) {
		t.Errorf("extent not centered on X: minX=%v maxX=%v", minX, maxX)
	}
	_, centroidY := f.GeographicToLocal(bounds.Center())
	if !almostEqual(centroidY, 0, 1e-6) || maxY <= -minY {
		t.Errorf("extent not anchored at the centroid on Y: minY=%v maxY=%v centroidY=%v", minY, maxY, centroidY)
	}
	if minX >= maxX || minY >= maxY {
		t.Errorf("degenerate extent: (%v,%v)-(%v,%v)", minX, minY, maxX, maxY)
	}
}
