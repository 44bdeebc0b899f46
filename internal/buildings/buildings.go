// Package buildings implements the building processor (§4.4): height
// resolution from tags, adaptive ground sampling, embed/safety-margin base
// placement, prism extrusion, and the two-pass below-ground correction.
package buildings

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

// Params configures the building processor (§6 building.* options).
type Params struct {
	MinHeightM      float64
	HeightMultiplier float64
	FoundationMM    float64
	EmbedMM         float64
	SafetyMarginM   float64
	Palette         color.Palette
}

// DefaultParams matches §6's documented defaults, aside from values the
// spec leaves to the caller (foundation/embed have no numeric default
// listed, so callers should set them from their own configuration; these
// are merely sane fallbacks for tests and the demo CLI).
func DefaultParams() Params {
	return Params{
		MinHeightM:       3.0,
		HeightMultiplier: 1.0,
		FoundationMM:     2.0,
		EmbedMM:          5.0,
		SafetyMarginM:    0.05,
	}
}

// Process resolves every building polygon into a mesh fragment. Degenerate
// polygons are dropped with a logged, non-fatal error rather than aborting
// the batch (§7).
func Process(buildings []types.PolygonFeature, prov *provider.Provider, p Params) ([]types.MeshFragment, []error) {
	var frags []types.MeshFragment
	var warnings []error

	for _, b := range buildings {
		frag, err := processOne(b, prov, p)
		if err != nil {
			warnings = append(warnings, errs.Feature("buildings", b.ID, err))
			continue
		}
		frags = append(frags, frag)
	}
	return frags, warnings
}

func processOne(b types.PolygonFeature, prov *provider.Provider, p Params) (types.MeshFragment, error) {
	height := resolveHeight(b, p)

	area := geomutil.Area(geomutil.OpenRing(b.Geometry[0]))
	const eps = 1e-6
	if area <= eps {
		return types.MeshFragment{}, fmt.Errorf("%w: area %.6g below epsilon", errs.ErrDegenerateFeature, area)
	}

	samples := groundSamples(b.Geometry, prov, area)
	if len(samples) == 0 {
		return types.MeshFragment{}, fmt.Errorf("%w: no ground samples", errs.ErrDegenerateFeature)
	}
	gMin := geomutil.Min(samples)

	var baseZ float64
	if p.EmbedMM > 0 {
		baseZ = gMin - p.EmbedMM/1000
	} else {
		baseZ = gMin + p.SafetyMarginM
	}
	translateZ := baseZ - p.FoundationMM/1000

	frag, err := geomutil.ExtrudeFlat(b.Geometry, 0, height)
	if err != nil {
		return types.MeshFragment{}, fmt.Errorf("%w: %v", errs.ErrInternalGeometry, err)
	}
	frag.TranslateZ(translateZ)

	correctBelowGround(&frag, prov)

	c := p.Palette.Resolve(types.MaterialBuilding)
	frag.Color = &c
	frag.Material = types.MaterialBuilding
	frag.SourceID = b.ID
	return frag, nil
}

// resolveHeight implements §4.4 step 1.
func resolveHeight(b types.PolygonFeature, p Params) float64 {
	var h float64
	switch {
	case b.HeightM != nil:
		h = *b.HeightM
	default:
		levels := 1.0
		if b.LevelsTag != nil {
			levels = *b.LevelsTag
		}
		h = levels * 3.0
		switch {
		case b.RoofHeight != nil:
			h += *b.RoofHeight
		case b.RoofLevels != nil:
			h += *b.RoofLevels * 1.5
		}
	}
	if h < p.MinHeightM {
		h = p.MinHeightM
	}
	return h * p.HeightMultiplier
}

// groundSamples implements §4.4 step 2's adaptive sampling density.
func groundSamples(poly orb.Polygon, prov *provider.Provider, area float64) []float64 {
	outer := geomutil.OpenRing(poly[0])
	bound := poly.Bound()
	centroid := geomutil.Centroid(outer)

	var samples []float64
	samples = append(samples, prov.Z(centroid[0], centroid[1]))

	perimeterPoints := perimeterSamplePoints(outer)
	for _, pt := range perimeterPoints {
		samples = append(samples, prov.Z(pt[0], pt[1]))
	}

	var grid int
	switch {
	case area < 100:
		grid = 1
	case area < 1000:
		grid = 3
	default:
		grid = 5
	}
	if grid > 1 {
		minX, minY := bound.Min[0], bound.Min[1]
		w, h := bound.Max[0]-minX, bound.Max[1]-minY
		for gi := 0; gi < grid; gi++ {
			for gj := 0; gj < grid; gj++ {
				fx := (float64(gi) + 0.5) / float64(grid)
				fy := (float64(gj) + 0.5) / float64(grid)
				pt := orb.Point{minX + fx*w, minY + fy*h}
				if geomutil.PointInPolygon(poly, pt) {
					samples = append(samples, prov.Z(pt[0], pt[1]))
				}
			}
		}
	}
	return samples
}

// perimeterSamplePoints places samples along the ring at a spacing
// proportional to the perimeter, per §4.4 step 2.
func perimeterSamplePoints(ring []orb.Point) []orb.Point {
	n := len(ring)
	if n < 2 {
		return nil
	}
	perimeter := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		dx, dy := ring[j][0]-ring[i][0], ring[j][1]-ring[i][1]
		perimeter += math.Hypot(dx, dy)
	}
	if perimeter <= 0 {
		return ring
	}
	const spacingFactor = 0.1 // one sample per ~10% of perimeter, at least the vertices
	step := perimeter * spacingFactor
	if step <= 0 {
		return ring
	}

	var out []orb.Point
	dist := 0.0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		a, b := ring[i], ring[j]
		segLen := math.Hypot(b[0]-a[0], b[1]-a[1])
		out = append(out, a)
		walked := 0.0
		for walked+step < segLen {
			walked += step
			t := walked / segLen
			out = append(out, orb.Point{a[0] + t*(b[0]-a[0]), a[1] + t*(b[1]-a[1])})
		}
		dist += segLen
	}
	return out
}

// correctBelowGround implements §4.4 step 5's two passes.
func correctBelowGround(frag *types.MeshFragment, prov *provider.Provider) {
	min, max, ok := frag.Bounds()
	if !ok {
		return
	}
	const tolerance = 0.05
	vertExtent := max.Z - min.Z
	lowBand := min.Z + 0.2*vertExtent

	deficit := func(onlyLowBand bool) float64 {
		worst := 0.0
		for _, v := range frag.Vertices {
			if onlyLowBand && v.Z > lowBand {
				continue
			}
			ground := prov.Z(v.X, v.Y)
			d := ground + tolerance - v.Z
			if d > worst {
				worst = d
			}
		}
		return worst
	}

	if d := deficit(true); d > 0 {
		frag.TranslateZ(d)
	}
	if d := deficit(false); d > 0 {
		frag.TranslateZ(d)
	}
}
