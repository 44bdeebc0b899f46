// Package roads implements the road and bridge processor (§4.5): centerline
// buffering, geometric bridge classification against water, extrusion,
// adaptive-embed draping, bridge base-level placement, and bridge supports.
package roads

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/terrainkit/internal/color"
	"github.com/MeKo-Tech/terrainkit/internal/errs"
	"github.com/MeKo-Tech/terrainkit/internal/geomutil"
	"github.com/MeKo-Tech/terrainkit/internal/provider"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Params configures the road and bridge processor (§6 road.* options).
type Params struct {
	WidthMultiplier float64
	HeightMM        float64
	EmbedMM         float64
	DefaultWidths   map[string]float64 // road class -> meters, full width
	BridgeHeights   map[string]float64 // bridge structural class -> bridge clearance height, meters
	SupportSpacingM float64            // max spacing between intermediate supports
	BufferSegments  int                // round-cap tessellation
	Palette         color.Palette
}

// DefaultParams mirrors §4.5's documented per-class fallbacks.
func DefaultParams() Params {
	return Params{
		WidthMultiplier: 1.0,
		HeightMM:        150,
		EmbedMM:         80,
		DefaultWidths: map[string]float64{
			"motorway":   12,
			"primary":    9,
			"secondary":  7,
			"tertiary":   6,
			"residential": 5,
			"service":    3,
			"path":       1.5,
		},
		BridgeHeights: map[string]float64{
			"suspension": 5,
			"arch":       4,
			"beam":       3,
		},
		SupportSpacingM: 20,
		BufferSegments:  8,
	}
}

const (
	clearanceMinM       = 0.02
	intersectSamplesAxis = 12
	intersectMinFraction = 0.02
	defaultClassHeightM  = 3
)

// Process drapes every road centerline onto the terrain, classifying and
// placing bridges where warranted.
func Process(lines []types.LineFeature, water []types.PolygonFeature, prov *provider.Provider, originalProv *provider.OriginalZProvider, p Params) ([]types.MeshFragment, []error) {
	var frags []types.MeshFragment
	var warnings []error

	waterPolys := make([]orb.Polygon, 0, len(water))
	for _, w := range water {
		waterPolys = append(waterPolys, w.Geometry)
	}

	for _, line := range lines {
		out, err := processOne(line, waterPolys, prov, originalProv, p)
		if err != nil {
			warnings = append(warnings, errs.Feature("roads", line.ID, err))
			continue
		}
		frags = append(frags, out...)
	}
	return frags, warnings
}

func processOne(line types.LineFeature, waterPolys []orb.Polygon, prov *provider.Provider, originalProv *provider.OriginalZProvider, p Params) ([]types.MeshFragment, error) {
	width := defaultWidth(line.RoadClass, p.DefaultWidths)
	radius := width * p.WidthMultiplier / 2
	poly := geomutil.BufferLine(line.Geometry, radius, p.BufferSegments)
	if len(poly) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", errs.ErrDegenerateFeature)
	}

	isBridge := line.Bridge || intersectsWater(poly, waterPolys)
	classHeight := bridgeClassHeight(line.Tag("bridge"), p.BridgeHeights)

	frag, err := geomutil.ExtrudeFlat(poly, 0, p.HeightMM/1000)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInternalGeometry, err)
	}

	material := types.MaterialRoad
	var out []types.MeshFragment

	if !isBridge {
		drapeNonBridge(&frag, prov, poly, p.EmbedMM/1000)
	} else {
		material = types.MaterialBridge
		wMed, groundMed := bridgeLevels(poly, prov, originalProv)
		base := math.Max(wMed+math.Max(3, classHeight), groundMed+classHeight)
		frag.TranslateZ(base)

		supports := buildSupports(line.Geometry, radius, base, wMed, prov, p.SupportSpacingM)
		out = append(out, supports...)
	}

	c := p.Palette.Resolve(material)
	frag.Color = &c
	frag.Material = material
	frag.SourceID = line.ID
	out = append([]types.MeshFragment{frag}, out...)
	return out, nil
}

// Footprints returns the buffered ground polygon for every line, in input
// order, skipping lines whose buffer degenerates to empty. Used by the
// pipeline's flatten.roads stage (§6) to rasterize the same footprint the
// road processor itself will later drape onto, without duplicating the
// buffering math.
func Footprints(lines []types.LineFeature, p Params) []orb.Polygon {
	polys := make([]orb.Polygon, 0, len(lines))
	for _, line := range lines {
		width := defaultWidth(line.RoadClass, p.DefaultWidths)
		radius := width * p.WidthMultiplier / 2
		poly := geomutil.BufferLine(line.Geometry, radius, p.BufferSegments)
		if len(poly) == 0 {
			continue
		}
		polys = append(polys, poly)
	}
	return polys
}

func defaultWidth(class string, widths map[string]float64) float64 {
	if w, ok := widths[class]; ok {
		return w
	}
	return 4 // unclassified road fallback
}

// bridgeClassHeight resolves the structural class (suspension/arch/beam,
// from the line's "bridge" tag) to its default clearance height (§4.5).
func bridgeClassHeight(structureClass string, heights map[string]float64) float64 {
	if h, ok := heights[structureClass]; ok {
		return h
	}
	return defaultClassHeightM
}

func intersectsWater(roadPoly orb.Polygon, waterPolys []orb.Polygon) bool {
	for _, w := range waterPolys {
		if geomutil.PolygonsIntersectArea(roadPoly, w, intersectSamplesAxis, intersectMinFraction) {
			return true
		}
	}
	return false
}

// drapeNonBridge implements §4.5 step 4.
func drapeNonBridge(frag *types.MeshFragment, prov *provider.Provider, poly orb.Polygon, embedM float64) {
	outer := geomutil.OpenRing(poly[0])
	var grounds []float64
	for _, p := range outer {
		grounds = append(grounds, prov.Z(p[0], p[1]))
	}
	slope := 0.0
	if len(grounds) > 0 {
		slope = geomutil.Max(grounds) - geomutil.Min(grounds)
	}

	embedEff := embedM
	threshold := 2 * embedM
	if threshold > 0 && slope > threshold {
		factor := 1 - (slope-threshold)/threshold
		if factor < 0.5 {
			factor = 0.5
		}
		embedEff = embedM * factor
	}

	for i := range frag.Vertices {
		v := frag.Vertices[i]
		zLocal := v.Z
		g := prov.Z(v.X, v.Y)
		z := g + zLocal - embedEff
		if z < g+clearanceMinM {
			z = g + clearanceMinM
		}
		frag.Vertices[i].Z = z
	}
}

// bridgeLevels implements §4.5 step 5's water-level and ground-level
// estimates.
func bridgeLevels(poly orb.Polygon, prov *provider.Provider, originalProv *provider.OriginalZProvider) (wMed, groundMed float64) {
	outer := geomutil.OpenRing(poly[0])
	var origGrounds, grounds []float64
	for _, p := range outer {
		origGrounds = append(origGrounds, originalProv.Z(p[0], p[1])-0.2)
		grounds = append(grounds, prov.Z(p[0], p[1]))
	}
	return geomutil.Median(origGrounds), geomutil.Median(grounds)
}

// buildSupports implements §4.5 step 6.
func buildSupports(line orb.LineString, radius, bridgeBase, wMed float64, prov *provider.Provider, spacing float64) []types.MeshFragment {
	pts := samplePointsAlong(line, spacing)
	supportHalf := radius * 0.4
	if supportHalf < 0.2 {
		supportHalf = 0.2
	}

	var out []types.MeshFragment
	for idx, pt := range pts {
		localGround := prov.Z(pt[0], pt[1])
		bottom := math.Min(localGround, wMed-0.5)
		top := bridgeBase

		footprint := orb.Polygon{orb.Ring{
			{pt[0] - supportHalf, pt[1] - supportHalf},
			{pt[0] + supportHalf, pt[1] - supportHalf},
			{pt[0] + supportHalf, pt[1] + supportHalf},
			{pt[0] - supportHalf, pt[1] + supportHalf},
			{pt[0] - supportHalf, pt[1] - supportHalf},
		}}
		frag, err := geomutil.ExtrudeFlat(footprint, bottom, top)
		if err != nil {
			continue
		}
		frag.Material = types.MaterialBridge
		frag.SourceID = fmt.Sprintf("support-%d", idx)
		out = append(out, frag)
	}
	return out
}

// samplePointsAlong returns the line's endpoints plus intermediate points no
// more than spacing apart.
func samplePointsAlong(line orb.LineString, spacing float64) []orb.Point {
	pts := []orb.Point(line)
	if len(pts) < 2 || spacing <= 0 {
		return pts
	}

	total := 0.0
	segLens := make([]float64, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		l := math.Hypot(pts[i+1][0]-pts[i][0], pts[i+1][1]-pts[i][1])
		segLens[i] = l
		total += l
	}
	if total == 0 {
		return []orb.Point{pts[0]}
	}

	n := int(math.Ceil(total / spacing))
	if n < 1 {
		n = 1
	}

	var out []orb.Point
	out = append(out, pts[0])
	for k := 1; k < n; k++ {
		target := total * float64(k) / float64(n)
		out = append(out, pointAtDistance(pts, segLens, target))
	}
	out = append(out, pts[len(pts)-1])
	return out
}

func pointAtDistance(pts []orb.Point, segLens []float64, target float64) orb.Point {
	acc := 0.0
	for i, l := range segLens {
		if acc+l >= target || i == len(segLens)-1 {
			t := 0.0
			if l > 0 {
				t = (target - acc) / l
			}
			if t < 0 {
				t = 0
			}
			if t > 1 {
				t = 1
			}
			a, b := pts[i], pts[i+1]
			return orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])}
		}
		acc += l
	}
	return pts[len(pts)-1]
}
