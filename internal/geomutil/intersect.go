package geomutil

import "github.com/paulmach/orb"

// PolygonsIntersectArea estimates whether a and b share a non-trivial amount
// of area using a regular sample grid over the overlap of their bounds. No
// polygon-boolean library is reachable in the corpus, so a literal
// intersection polygon is never constructed; this is enough to classify
// "does this buffered road footprint sit over water" without needing the
// actual overlap shape.
//
// samplesPerAxis controls grid resolution; minFraction is the minimum
// fraction of sampled points that must land inside both polygons for the
// pair to be considered intersecting with non-trivial area.
func PolygonsIntersectArea(a, b orb.Polygon, samplesPerAxis int, minFraction float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if samplesPerAxis < 2 {
		samplesPerAxis = 8
	}

	ba, bb := a.Bound(), b.Bound()
	ov := boundIntersection(ba, bb)
	if ov.Min[0] >= ov.Max[0] || ov.Min[1] >= ov.Max[1] {
		return false
	}

	aOuter, aHoles := ringsOf(a)
	bOuter, bHoles := ringsOf(b)

	dx := (ov.Max[0] - ov.Min[0]) / float64(samplesPerAxis)
	dy := (ov.Max[1] - ov.Min[1]) / float64(samplesPerAxis)
	if dx <= 0 || dy <= 0 {
		return false
	}

	hits, total := 0, 0
	for i := 0; i < samplesPerAxis; i++ {
		x := ov.Min[0] + (float64(i)+0.5)*dx
		for j := 0; j < samplesPerAxis; j++ {
			y := ov.Min[1] + (float64(j)+0.5)*dy
			p := orb.Point{x, y}
			total++
			if pointInRingSet(p, aOuter, aHoles) && pointInRingSet(p, bOuter, bHoles) {
				hits++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(hits)/float64(total) >= minFraction
}

func ringsOf(poly orb.Polygon) ([]orb.Point, [][]orb.Point) {
	if len(poly) == 0 {
		return nil, nil
	}
	outer := OpenRing(poly[0])
	holes := make([][]orb.Point, 0, len(poly)-1)
	for _, h := range poly[1:] {
		holes = append(holes, OpenRing(h))
	}
	return outer, holes
}

func pointInRingSet(p orb.Point, outer []orb.Point, holes [][]orb.Point) bool {
	if !PointInRing(outer, p) {
		return false
	}
	for _, h := range holes {
		if PointInRing(h, p) {
			return false
		}
	}
	return true
}

func boundIntersection(a, b orb.Bound) orb.Bound {
	min := orb.Point{maxF(a.Min[0], b.Min[0]), maxF(a.Min[1], b.Min[1])}
	max := orb.Point{minF(a.Max[0], b.Max[0]), minF(a.Max[1], b.Max[1])}
	return orb.Bound{Min: min, Max: max}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
