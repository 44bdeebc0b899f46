// Package geomutil holds the small 2D/3D computational-geometry helpers
// shared by the height field rasterizer and the feature processors: point-in-
// polygon, ring orientation, ear-clip triangulation, line buffering, and
// prism extrusion. None of the example corpus's dependencies offer polygon
// triangulation/offsetting, so this is hand-rolled in the teacher's plain,
// table-free numeric style (see DESIGN.md).
package geomutil

import "github.com/paulmach/orb"

// OpenRing returns a ring's points with the closing duplicate (last == first)
// removed, if present. orb does not enforce ring closure, so this is
// defensive rather than load-bearing.
func OpenRing(r orb.Ring) []orb.Point {
	pts := []orb.Point(r)
	if len(pts) >= 2 && pts[0] == pts[len(pts)-1] {
		return pts[:len(pts)-1]
	}
	return pts
}

// SignedArea computes the signed area of an (open) ring via the shoelace
// formula. Positive means counter-clockwise.
func SignedArea(pts []orb.Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return sum / 2
}

// Area returns the unsigned area of an open ring.
func Area(pts []orb.Point) float64 {
	a := SignedArea(pts)
	if a < 0 {
		return -a
	}
	return a
}

// IsCCW reports whether the ring winds counter-clockwise.
func IsCCW(pts []orb.Point) bool {
	return SignedArea(pts) > 0
}

// Reversed returns a copy of pts in reverse order.
func Reversed(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

// NormalizeWinding returns a copy of poly with the outer ring forced
// counter-clockwise and every hole forced clockwise, the convention the
// extrusion and triangulation code relies on.
func NormalizeWinding(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		pts := OpenRing(ring)
		ccw := IsCCW(pts)
		if i == 0 {
			if !ccw {
				pts = Reversed(pts)
			}
		} else if ccw {
			pts = Reversed(pts)
		}
		out[i] = orb.Ring(pts)
	}
	return out
}

// Centroid returns the area-weighted centroid of an open ring.
func Centroid(pts []orb.Point) orb.Point {
	n := len(pts)
	if n == 0 {
		return orb.Point{}
	}
	if n < 3 {
		var sx, sy float64
		for _, p := range pts {
			sx += p[0]
			sy += p[1]
		}
		return orb.Point{sx / float64(n), sy / float64(n)}
	}
	var cx, cy, a float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
		a += cross
		cx += (pts[i][0] + pts[j][0]) * cross
		cy += (pts[i][1] + pts[j][1]) * cross
	}
	a /= 2
	if a == 0 {
		return pts[0]
	}
	return orb.Point{cx / (6 * a), cy / (6 * a)}
}

// Bound returns the axis-aligned bounding box of a polygon (its outer ring).
func Bound(poly orb.Polygon) orb.Bound {
	return poly.Bound()
}

// PointInRing reports whether pt is inside the (open) ring via a standard
// even-odd ray-casting test. Points exactly on the boundary may return
// either result; callers treat boundary-touching as "inside" separately
// where that matters (§4.1 rasterization).
func PointInRing(pts []orb.Point, pt orb.Point) bool {
	inside := false
	n := len(pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := pts[i][0], pts[i][1]
		xj, yj := pts[j][0], pts[j][1]
		if (yi > pt[1]) != (yj > pt[1]) {
			xCross := xj + (pt[1]-yj)/(yi-yj)*(xi-xj)
			if pt[0] < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// PointInPolygon reports whether pt lies in poly's outer ring and not inside
// any hole.
func PointInPolygon(poly orb.Polygon, pt orb.Point) bool {
	if len(poly) == 0 {
		return false
	}
	if !PointInRing(OpenRing(poly[0]), pt) {
		return false
	}
	for _, hole := range poly[1:] {
		if PointInRing(OpenRing(hole), pt) {
			return false
		}
	}
	return true
}

// SegmentsIntersect reports whether segments (p1,p2) and (p3,p4) intersect,
// including touching endpoints (conservative: used to decide whether a grid
// cell is "touched" by a polygon boundary).
func SegmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(sub(p4, p3), sub(p1, p3))
	d2 := cross(sub(p4, p3), sub(p2, p3))
	d3 := cross(sub(p2, p1), sub(p3, p1))
	d4 := cross(sub(p2, p1), sub(p4, p1))

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

func onSegment(a, b, p orb.Point) bool {
	minX, maxX := a[0], b[0]
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a[1], b[1]
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return p[0] >= minX && p[0] <= maxX && p[1] >= minY && p[1] <= maxY
}

func sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }
func cross(a, b orb.Point) float64 { return a[0]*b[1] - a[1]*b[0] }

// RectIntersectsRing reports whether the axis-aligned rectangle [minX,maxX]x
// [minY,maxY] touches the (open) ring: any ring vertex inside the rect, any
// rect corner inside the ring (tested by the caller via PointInRing), or any
// ring edge crossing a rect edge.
func RectIntersectsRing(pts []orb.Point, minX, minY, maxX, maxY float64) bool {
	corners := [4]orb.Point{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY},
	}
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a, b := pts[i], pts[j]
		if a[0] >= minX && a[0] <= maxX && a[1] >= minY && a[1] <= maxY {
			return true
		}
		// Quick reject: edge bbox vs rect.
		eMinX, eMaxX := a[0], b[0]
		if eMinX > eMaxX {
			eMinX, eMaxX = eMaxX, eMinX
		}
		eMinY, eMaxY := a[1], b[1]
		if eMinY > eMaxY {
			eMinY, eMaxY = eMaxY, eMinY
		}
		if eMaxX < minX || eMinX > maxX || eMaxY < minY || eMinY > maxY {
			continue
		}
		for k := 0; k < 4; k++ {
			if SegmentsIntersect(a, b, corners[k], corners[(k+1)%4]) {
				return true
			}
		}
	}
	return false
}
