package geomutil

import (
	"math"

	"github.com/paulmach/orb"
)

// BufferLine offsets a linestring by radius on both sides with round caps,
// returning a single closed polygon outline. segments controls the
// tessellation of each cap arc (higher = smoother).
//
// No boolean/offset library appears anywhere in the retrieved corpus, so this
// is hand-rolled: walk the line forward building the left offset, then
// backward building the right offset, joining the two passes with a
// semicircular cap at each end. Interior joins get no arc: each interior
// vertex contributes a single offset point along the normal of the averaged
// neighbouring directions, so the outline does not round off corners and
// the offset distance at a sharp corner is less than radius.
func BufferLine(line orb.LineString, radius float64, segments int) orb.Polygon {
	pts := []orb.Point(line)
	pts = dedupe(pts)
	if len(pts) < 2 || radius <= 0 {
		return nil
	}
	if segments < 3 {
		segments = 8
	}

	var outline []orb.Point
	outline = append(outline, offsetSide(pts, radius)...)
	outline = append(outline, arc(pts[len(pts)-1], dirAt(pts, len(pts)-1), radius, segments, true)...)
	outline = append(outline, offsetSide(reversePoints(pts), radius)...)
	outline = append(outline, arc(pts[0], negate(dirAt(pts, 0)), radius, segments, true)...)

	return orb.Polygon{orb.Ring(outline)}
}

func dedupe(pts []orb.Point) []orb.Point {
	if len(pts) == 0 {
		return pts
	}
	out := []orb.Point{pts[0]}
	for _, p := range pts[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

func reversePoints(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func negate(p orb.Point) orb.Point { return orb.Point{-p[0], -p[1]} }

// dirAt returns the unit tangent direction at vertex i of the polyline.
func dirAt(pts []orb.Point, i int) orb.Point {
	var d orb.Point
	switch {
	case i == 0:
		d = sub(pts[1], pts[0])
	case i == len(pts)-1:
		d = sub(pts[i], pts[i-1])
	default:
		d = sub(pts[i+1], pts[i-1])
	}
	return normalize(d)
}

func normalize(p orb.Point) orb.Point {
	l := math.Hypot(p[0], p[1])
	if l == 0 {
		return orb.Point{1, 0}
	}
	return orb.Point{p[0] / l, p[1] / l}
}

// leftNormal rotates a unit direction vector 90 degrees counter-clockwise.
func leftNormal(d orb.Point) orb.Point { return orb.Point{-d[1], d[0]} }

// offsetSide walks pts forward, emitting one left-offset vertex at each
// point; no join arc is added where the direction changes.
func offsetSide(pts []orb.Point, radius float64) []orb.Point {
	var out []orb.Point
	for i, p := range pts {
		d := dirAt(pts, i)
		n := leftNormal(d)
		offset := orb.Point{p[0] + n[0]*radius, p[1] + n[1]*radius}
		out = append(out, offset)
	}
	return out
}

// arc generates a semicircular cap centered at p, starting from the
// direction perpendicular to travelDir (rotated left), sweeping 180 degrees
// in the direction of travel.
func arc(p, travelDir orb.Point, radius float64, segments int, cap bool) []orb.Point {
	if !cap {
		return nil
	}
	start := leftNormal(travelDir)
	startAngle := math.Atan2(start[1], start[0])
	var out []orb.Point
	for s := 0; s <= segments; s++ {
		t := float64(s) / float64(segments)
		angle := startAngle - t*math.Pi
		out = append(out, orb.Point{
			p[0] + radius*math.Cos(angle),
			p[1] + radius*math.Sin(angle),
		})
	}
	return out
}
