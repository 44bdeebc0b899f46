// Package green implements the green-area processor (§4.7): a simple
// drape-and-embed extrusion with no adaptive logic, for parks and green
// spaces.
package green

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"

	"github.com/MeKo-Tech/terrainkit/internal/color"
	"github.com/MeKo-Tech/terrainkit/internal/errs"
	"github.com/MeKo-Tech/terrainkit/internal/geomutil"
	"github.com/MeKo-Tech/terrainkit/internal/provider"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Params configures the green-area processor (§6 green.* options).
type Params struct {
	HeightM float64
	EmbedM  float64
	Palette color.Palette
}

// DefaultParams matches §6's documented defaults.
func DefaultParams() Params {
	return Params{HeightM: 0.3, EmbedM: 0.02}
}

// Process clips every green-area polygon to the terrain extent (§4.7: "Clip
// to terrain extent"), then extrudes and drapes what remains.
func Process(polys []types.PolygonFeature, prov *provider.Provider, extent orb.Bound, p Params) ([]types.MeshFragment, []error) {
	var frags []types.MeshFragment
	var warnings []error

	for _, g := range polys {
		frag, err := processOne(g, prov, extent, p)
		if err != nil {
			warnings = append(warnings, errs.Feature("green", g.ID, err))
			continue
		}
		frags = append(frags, frag)
	}
	return frags, warnings
}

func processOne(g types.PolygonFeature, prov *provider.Provider, extent orb.Bound, p Params) (types.MeshFragment, error) {
	if !g.Geometry.Bound().Intersects(extent) {
		return types.MeshFragment{}, fmt.Errorf("%w: outside terrain extent", errs.ErrDegenerateFeature)
	}

	clipped := clip.Polygon(extent, g.Geometry)
	if len(clipped) == 0 || len(clipped[0]) < 3 {
		return types.MeshFragment{}, fmt.Errorf("%w: outside terrain extent", errs.ErrDegenerateFeature)
	}

	frag, err := geomutil.ExtrudeFlat(clipped, 0, p.HeightM)
	if err != nil {
		return types.MeshFragment{}, fmt.Errorf("%w: %v", errs.ErrInternalGeometry, err)
	}

	for i := range frag.Vertices {
		v := frag.Vertices[i]
		frag.Vertices[i].Z = prov.Z(v.X, v.Y) + v.Z - p.EmbedM
	}

	c := p.Palette.Resolve(types.MaterialGreen)
	frag.Color = &c
	frag.Material = types.MaterialGreen
	frag.SourceID = g.ID
	return frag, nil
}
