// Package color holds the default per-material palette (§4.4-§4.8) and the
// override lookup the scene assembler's material pass consults.
package color

import "github.com/MeKo-Tech/terrainkit/internal/types"

// Defaults is the built-in material -> color table.
var Defaults = map[types.Material]types.RGB{
	types.MaterialBase:     {R: 160, G: 150, B: 130},
	types.MaterialBuilding: {R: 180, G: 180, B: 180},
	types.MaterialRoad:     {R: 30, G: 30, B: 30},
	types.MaterialBridge:   {R: 30, G: 30, B: 30},
	types.MaterialWater:    {R: 0, G: 100, B: 255},
	types.MaterialGreen:    {R: 90, G: 140, B: 80},
	types.MaterialPOI:      {R: 220, G: 180, B: 60},
}

// Palette resolves a material to its color, applying any overrides first.
type Palette struct {
	Overrides map[types.Material]types.RGB
}

// Resolve returns the color for m: an override if configured, else the
// default, else an unremarkable mid-gray for an unrecognized material.
func (p Palette) Resolve(m types.Material) types.RGB {
	if p.Overrides != nil {
		if c, ok := p.Overrides[m]; ok {
			return c
		}
	}
	if c, ok := Defaults[m]; ok {
		return c
	}
	return types.RGB{R: 128, G: 128, B: 128}
}
