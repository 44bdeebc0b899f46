// Package coordframe implements the immutable global-center coordinate frame
// (§3, §4.1): the single geographic/projected/local anchor shared by every
// stage of one world region's pipeline run.
//
// The Web Mercator projection math below is adapted from the teacher's
// tile-coordinate package, generalized from "tile corner to lon/lat" lookups
// into an arbitrary-point forward/inverse projection usable anywhere in the
// bounding box.
package coordframe

import (
	"math"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// earthRadiusM is the Web Mercator sphere radius in meters (EPSG:3857).
const earthRadiusM = 6378137.0

// ProjectedCRS identifies the metric projection used to build a Frame. Only
// Web Mercator is implemented; the field exists so a Frame's provenance is
// self-describing and future projections can be added without breaking
// callers that already store a Frame value.
const ProjectedCRS = "EPSG:3857"

// Frame is the immutable global center for one world region: a reference
// geographic point, the projected CRS identifier, and the projected (X0,Y0)
// chosen as local-coordinate origin. Two independent calls to New with the
// same bounds produce bit-identical Frame values, which is what lets tiles
// of the same world region stitch exactly (§8).
type Frame struct {
	RefLat float64
	RefLon float64
	CRS    string
	X0     float64
	Y0     float64
}

// New builds the global center for a world region from its bounding box. The
// anchor is the deterministic centroid of the box, projected to metric
// coordinates: same bounds in, same Frame out, every time.
func New(bounds types.BoundingBox) Frame {
	lat, lon := bounds.Center()
	x0, y0 := ToProjected(lat, lon)
	return Frame{
		RefLat: lat,
		RefLon: lon,
		CRS:    ProjectedCRS,
		X0:     x0,
		Y0:     y0,
	}
}

// ToProjected converts WGS84 (lat, lon) degrees to Web Mercator (X, Y)
// meters.
func ToProjected(lat, lon float64) (x, y float64) {
	x = earthRadiusM * lon * math.Pi / 180.0
	latRad := lat * math.Pi / 180.0
	y = earthRadiusM * math.Log(math.Tan(math.Pi/4.0+latRad/2.0))
	return x, y
}

// ToGeographic converts Web Mercator (X, Y) meters back to WGS84 (lat, lon)
// degrees.
func ToGeographic(x, y float64) (lat, lon float64) {
	lon = (x / earthRadiusM) * 180.0 / math.Pi
	lat = (math.Atan(math.Exp(y/earthRadiusM)) - math.Pi/4.0) * 2.0 * 180.0 / math.Pi
	return lat, lon
}

// ToLocal converts projected meters to this frame's local, centered
// coordinates.
func (f Frame) ToLocal(x, y float64) (lx, ly float64) {
	return x - f.X0, y - f.Y0
}

// FromLocal converts this frame's local coordinates back to projected
// meters.
func (f Frame) FromLocal(lx, ly float64) (x, y float64) {
	return lx + f.X0, ly + f.Y0
}

// GeographicToLocal is the common-case conversion used when ingesting OSM
// features: project then center in one step.
func (f Frame) GeographicToLocal(lat, lon float64) (lx, ly float64) {
	x, y := ToProjected(lat, lon)
	return f.ToLocal(x, y)
}

// LocalToGeographic inverts GeographicToLocal, used when an elevation
// callback needs (lat, lon) for a local grid node.
func (f Frame) LocalToGeographic(lx, ly float64) (lat, lon float64) {
	x, y := f.FromLocal(lx, ly)
	return ToGeographic(x, y)
}

// LocalExtent projects a geographic bounding box into this frame's local,
// centered coordinate system. minX/minY/maxX/maxY are returned sorted,
// independent of hemisphere.
func (f Frame) LocalExtent(bounds types.BoundingBox) (minX, minY, maxX, maxY float64) {
	x0, y0 := f.GeographicToLocal(bounds.MinLat, bounds.MinLon)
	x1, y1 := f.GeographicToLocal(bounds.MaxLat, bounds.MaxLon)
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return x0, y0, x1, y1
}
