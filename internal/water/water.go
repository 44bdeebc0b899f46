// Package water implements the water surface processor (§4.6): drapes each
// water polygon between the current (depressed) and original (pre-
// depression) terrain so the surface never rises above the undisturbed
// bank.
package water

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/MeKo-Tech/terrainkit/internal/color"
	"github.com/MeKo-Tech/terrainkit/internal/errs"
	"github.com/MeKo-Tech/terrainkit/internal/geomutil"
	"github.com/MeKo-Tech/terrainkit/internal/provider"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Params configures the water processor (§6 water.* options).
type Params struct {
	ThicknessM  float64
	ProtrusionM float64
	Palette     color.Palette
}

// DefaultParams matches §6's documented defaults.
func DefaultParams() Params {
	return Params{ThicknessM: 0.5, ProtrusionM: 2.0}
}

const bankClearanceM = 0.02

// Process clips every water polygon to the terrain extent (§4.6 step 1) and
// drapes what remains. Polygons fully outside the terrain extent clip to
// nothing and are dropped, non-fatally.
func Process(polys []types.PolygonFeature, prov *provider.Provider, originalProv *provider.OriginalZProvider, extent orb.Bound, p Params) ([]types.MeshFragment, []error) {
	var frags []types.MeshFragment
	var warnings []error

	for _, w := range polys {
		frag, err := processOne(w, prov, originalProv, extent, p)
		if err != nil {
			warnings = append(warnings, errs.Feature("water", w.ID, err))
			continue
		}
		frags = append(frags, frag)
	}
	return frags, warnings
}

func processOne(w types.PolygonFeature, prov *provider.Provider, originalProv *provider.OriginalZProvider, extent orb.Bound, p Params) (types.MeshFragment, error) {
	if !w.Geometry.Bound().Intersects(extent) {
		return types.MeshFragment{}, fmt.Errorf("%w: outside terrain extent", errs.ErrDegenerateFeature)
	}

	clipped := clip.Polygon(extent, w.Geometry)
	if len(clipped) == 0 || len(clipped[0]) < 3 {
		return types.MeshFragment{}, fmt.Errorf("%w: outside terrain extent", errs.ErrDegenerateFeature)
	}

	frag, err := geomutil.ExtrudeFlat(clipped, 0, p.ThicknessM)
	if err != nil {
		return types.MeshFragment{}, fmt.Errorf("%w: %v", errs.ErrInternalGeometry, err)
	}

	const eps = 1e-6
	for i := range frag.Vertices {
		v := frag.Vertices[i]
		gOrig := originalProv.Z(v.X, v.Y)
		gDepr := prov.Z(v.X, v.Y)
		surface := math.Min(gDepr+p.ProtrusionM, gOrig-bankClearanceM)

		switch {
		case math.Abs(v.Z-p.ThicknessM) < eps:
			frag.Vertices[i].Z = surface
		case math.Abs(v.Z) < eps:
			frag.Vertices[i].Z = surface - p.ThicknessM
		default:
			frag.Vertices[i].Z = surface - (p.ThicknessM - v.Z)
		}
	}

	c := p.Palette.Resolve(types.MaterialWater)
	frag.Color = &c
	frag.Material = types.MaterialWater
	frag.SourceID = w.ID
	return frag, nil
}
