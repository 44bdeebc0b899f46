// Package poi implements the point-of-interest processor (§4.8): a fixed
// rectangular-prism marker per kept point, with deterministic capping when
// the input exceeds N_max.
package poi

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/terrainkit/internal/color"
	"github.com/MeKo-Tech/terrainkit/internal/errs"
	"github.com/MeKo-Tech/terrainkit/internal/geomutil"
	"github.com/MeKo-Tech/terrainkit/internal/provider"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Params configures the POI processor (§6 poi.* options).
type Params struct {
	HeightM    float64
	EmbedM     float64
	MaxCount   int
	FootprintM float64 // fixed marker footprint edge length
	Palette    color.Palette
}

// DefaultParams matches §6's documented defaults.
func DefaultParams() Params {
	return Params{HeightM: 2.0, EmbedM: 0.1, MaxCount: 600, FootprintM: 1.0}
}

// Process places every kept POI marker (§4.8), capping at MaxCount by class
// priority then distance from the extent center when the input exceeds it.
func Process(points []types.PointFeature, prov *provider.Provider, extent orb.Bound, p Params) ([]types.MeshFragment, []error) {
	kept := points
	if p.MaxCount > 0 && len(points) > p.MaxCount {
		kept = selectTopN(points, extent, p.MaxCount)
	}

	var frags []types.MeshFragment
	var warnings []error
	for _, pt := range kept {
		frag, err := processOne(pt, prov, p)
		if err != nil {
			warnings = append(warnings, errs.Feature("poi", pt.ID, err))
			continue
		}
		frags = append(frags, frag)
	}
	return frags, warnings
}

func processOne(pt types.PointFeature, prov *provider.Provider, p Params) (types.MeshFragment, error) {
	half := p.FootprintM / 2
	x, y := pt.Point[0], pt.Point[1]
	footprint := orb.Polygon{orb.Ring{
		{x - half, y - half}, {x + half, y - half}, {x + half, y + half}, {x - half, y + half}, {x - half, y - half},
	}}

	center := prov.Z(x, y) + p.HeightM/2 - p.EmbedM
	frag, err := geomutil.ExtrudeFlat(footprint, center-p.HeightM/2, center+p.HeightM/2)
	if err != nil {
		return types.MeshFragment{}, fmt.Errorf("%w: %v", errs.ErrInternalGeometry, err)
	}

	c := p.Palette.Resolve(types.MaterialPOI)
	frag.Color = &c
	frag.Material = types.MaterialPOI
	frag.SourceID = pt.ID
	return frag, nil
}

// selectTopN implements §4.8's deterministic cap: sort by class priority
// (lower first), then by distance from the extent center (closer first),
// then by ID to break exact ties reproducibly.
func selectTopN(points []types.PointFeature, extent orb.Bound, n int) []types.PointFeature {
	cx := (extent.Min[0] + extent.Max[0]) / 2
	cy := (extent.Min[1] + extent.Max[1]) / 2

	sorted := append([]types.PointFeature(nil), points...)
	dist := func(p types.PointFeature) float64 {
		dx, dy := p.Point[0]-cx, p.Point[1]-cy
		return math.Hypot(dx, dy)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		da, db := dist(a), dist(b)
		if da != db {
			return da < db
		}
		return a.ID < b.ID
	})
	return sorted[:n]
}
