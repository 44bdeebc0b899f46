package geomutil

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Triangulation is the 2D triangulation of a (possibly multi-ring) polygon:
// a flat vertex list and CCW index triples into it.
type Triangulation struct {
	Points []orb.Point
	Faces  [][3]int
}

// TriangulatePolygon triangulates poly (outer ring plus holes) by bridging
// each hole into the outer boundary and then ear-clipping the resulting
// simple ring. poly's winding does not need to be pre-normalized; this
// function normalizes internally.
//
// Bridge visibility is approximated by testing candidate bridges only
// against the outer ring's own edges, not every other hole: adequate for the
// simple courtyard-style footprints OSM buildings/water bodies produce, and
// consistent with the pipeline's "best effort, skip on failure" feature
// philosophy (§7) for the rare pathological polygon.
func TriangulatePolygon(poly orb.Polygon) (Triangulation, error) {
	if len(poly) == 0 {
		return Triangulation{}, fmt.Errorf("%w: empty polygon", errDegenerate)
	}
	norm := NormalizeWinding(poly)

	merged := OpenRing(norm[0])
	if len(merged) < 3 {
		return Triangulation{}, fmt.Errorf("%w: outer ring has fewer than 3 points", errDegenerate)
	}

	for _, hole := range norm[1:] {
		holePts := OpenRing(hole)
		if len(holePts) < 3 {
			continue // ignore degenerate holes rather than failing the whole feature
		}
		var err error
		merged, err = bridgeHole(merged, holePts)
		if err != nil {
			return Triangulation{}, err
		}
	}

	faces, err := earClip(merged)
	if err != nil {
		return Triangulation{}, err
	}

	return Triangulation{Points: merged, Faces: faces}, nil
}

var errDegenerate = fmt.Errorf("degenerate polygon")

// bridgeHole splices hole into outer by connecting hole's rightmost vertex to
// the nearest outer vertex whose connecting segment does not cross an outer
// edge.
func bridgeHole(outer, hole []orb.Point) ([]orb.Point, error) {
	hi := 0
	for i, p := range hole {
		if p[0] > hole[hi][0] {
			hi = i
		}
	}

	best := -1
	bestDist := 0.0
	for oi, op := range outer {
		if segmentCrossesRing(hole[hi], op, outer) {
			continue
		}
		d := dist2(hole[hi], op)
		if best == -1 || d < bestDist {
			best, bestDist = oi, d
		}
	}
	if best == -1 {
		// Fall back to the nearest vertex regardless of visibility: a rare
		// pathological shape, better triangulated imperfectly than dropped.
		for oi, op := range outer {
			d := dist2(hole[hi], op)
			if best == -1 || d < bestDist {
				best, bestDist = oi, d
			}
		}
	}

	// Reorder hole to start at its rightmost vertex.
	reordered := make([]orb.Point, len(hole))
	for i := range hole {
		reordered[i] = hole[(hi+i)%len(hole)]
	}

	out := make([]orb.Point, 0, len(outer)+len(reordered)+2)
	out = append(out, outer[:best+1]...)
	out = append(out, reordered...)
	out = append(out, reordered[0]) // close the hole loop
	out = append(out, outer[best])  // return to the bridge point
	out = append(out, outer[best+1:]...)
	return out, nil
}

func segmentCrossesRing(a, b orb.Point, ring []orb.Point) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if ring[i] == a || ring[i] == b || ring[j] == a || ring[j] == b {
			continue
		}
		if SegmentsIntersect(a, b, ring[i], ring[j]) {
			return true
		}
	}
	return false
}

func dist2(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

// earClip triangulates a simple (possibly self-touching at bridge points)
// polygon given as an ordered, open ring. O(n^2).
func earClip(ring []orb.Point) ([][3]int, error) {
	n := len(ring)
	if n < 3 {
		return nil, fmt.Errorf("%w: fewer than 3 points", errDegenerate)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	var faces [][3]int
	guard := 0
	maxIter := n * n * 2
	for len(idx) > 3 {
		guard++
		if guard > maxIter {
			return nil, fmt.Errorf("%w: ear-clipping did not converge", errDegenerate)
		}
		earFound := false
		m := len(idx)
		for i := 0; i < m; i++ {
			ip := idx[(i-1+m)%m]
			ic := idx[i]
			in := idx[(i+1)%m]
			a, b, c := ring[ip], ring[ic], ring[in]
			if SignedArea([]orb.Point{a, b, c}) <= 0 {
				continue // reflex or collinear, not an ear
			}
			isEar := true
			for j := 0; j < m; j++ {
				pj := idx[j]
				if pj == ip || pj == ic || pj == in {
					continue
				}
				if pointInTriangle(ring[pj], a, b, c) {
					isEar = false
					break
				}
			}
			if !isEar {
				continue
			}
			faces = append(faces, [3]int{ip, ic, in})
			idx = append(idx[:i], idx[i+1:]...)
			earFound = true
			break
		}
		if !earFound {
			return nil, fmt.Errorf("%w: no ear found", errDegenerate)
		}
	}
	if len(idx) == 3 {
		faces = append(faces, [3]int{idx[0], idx[1], idx[2]})
	}
	return faces, nil
}

func pointInTriangle(p, a, b, c orb.Point) bool {
	d1 := cross(sub(p, a), sub(b, a))
	d2 := cross(sub(p, b), sub(c, b))
	d3 := cross(sub(p, c), sub(a, c))

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
