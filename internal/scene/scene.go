// Package scene implements the assembler (§4.9): concatenation, centering,
// uniform scale to a requested millimeter size, lift-to-zero, and the
// material color pass. No welding occurs across fragments of different
// materials, preserving per-material color separation for export.
package scene

import (
	"github.com/MeKo-Tech/terrainkit/internal/color"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Params configures assembly (§6 model_size_mm).
type Params struct {
	ModelSizeMM float64
	Palette     color.Palette
}

// Assemble concatenates fragments in the given (already deterministic)
// order, centers and scales them to ModelSizeMM, lifts the result so
// min Z = 0, and fills in any missing fragment color from the palette.
func Assemble(fragments []types.MeshFragment, p Params) types.Scene {
	s := types.Scene{}
	s.Append(fragments...)
	if len(s.Fragments) == 0 {
		return s
	}

	min, max, ok := s.Bounds()
	if !ok {
		return s
	}
	cx, cy := (min.X+max.X)/2, (min.Y+max.Y)/2
	for i := range s.Fragments {
		s.Fragments[i].Translate(-cx, -cy, 0)
	}

	min, max, _ = s.Bounds()
	dx, dy := max.X-min.X, max.Y-min.Y
	avgXY := (dx + dy) / 2
	if avgXY > 0 && p.ModelSizeMM > 0 {
		scale := p.ModelSizeMM / avgXY
		for i := range s.Fragments {
			s.Fragments[i].Scale(scale)
		}
	}

	min, _, _ = s.Bounds()
	for i := range s.Fragments {
		s.Fragments[i].TranslateZ(-min.Z)
	}

	for i := range s.Fragments {
		if s.Fragments[i].Color == nil {
			c := p.Palette.Resolve(s.Fragments[i].Material)
			s.Fragments[i].Color = &c
		}
	}

	return s
}
