package heightfield

import (
	"image"
	"image/color"
	"math"
	"sort"
	"sync"
)

// StageCapture is one captured intermediate raster, named and ordered for
// later inspection (§ SUPPLEMENTED FEATURES: debug heightmap/contour PNG
// export).
type StageCapture struct {
	Name        string // e.g. "02_after_flatten_buildings"
	Description string
	Image       image.Image
	ZOrder      int
}

// DebugContext optionally collects grid snapshots across the pipeline's
// flatten/depress passes. A nil *DebugContext is a valid, zero-overhead
// receiver for Capture, the same fast-path idiom the teacher's raster
// pipeline uses for its own stage captures.
type DebugContext struct {
	mu     sync.Mutex
	Stages []StageCapture
}

// Capture renders f's current Z as an 8-bit grayscale heightmap and appends
// it to dc. No-op if dc is nil.
func (dc *DebugContext) Capture(name, description string, f *Field, zorder int) {
	if dc == nil {
		return
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.Stages = append(dc.Stages, StageCapture{
		Name:        name,
		Description: description,
		Image:       DumpPNG(f),
		ZOrder:      zorder,
	})
}

// SortedStages returns a copy of dc.Stages ordered by ZOrder. Nil-safe.
func (dc *DebugContext) SortedStages() []StageCapture {
	if dc == nil {
		return nil
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	out := make([]StageCapture, len(dc.Stages))
	copy(out, dc.Stages)
	sort.Slice(out, func(i, j int) bool { return out[i].ZOrder < out[j].ZOrder })
	return out
}

// DumpPNG renders f's current Z buffer as an 8-bit grayscale image, min-max
// normalized. Intended for visual debugging only; never used by the
// pipeline's numeric path.
func DumpPNG(f *Field) image.Image {
	img := image.NewGray(image.Rect(0, 0, f.Nx, f.Ny))
	if len(f.Z) == 0 {
		return img
	}

	zMin, zMax := f.Z[0], f.Z[0]
	for _, z := range f.Z {
		if z < zMin {
			zMin = z
		}
		if z > zMax {
			zMax = z
		}
	}
	span := zMax - zMin
	if span == 0 {
		span = 1
	}

	for j := 0; j < f.Ny; j++ {
		for i := 0; i < f.Nx; i++ {
			v := (f.At(i, j) - zMin) / span
			v = math.Max(0, math.Min(1, v))
			// Flip Y: row 0 of the image is the top (max Y), matching the
			// conventional north-up reading of a heightmap preview.
			img.SetGray(i, f.Ny-1-j, color.Gray{Y: uint8(math.Round(v * 255))})
		}
	}
	return img
}
