// Package provider implements the triangle-exact terrain elevation query
// (§4.3): a read-only view over a height field that answers Z(x,y) using the
// identical triangulation rule the terrain solid uses, so draped features
// never show the "floating road" artifact bilinear-on-a-triangulated-mesh
// sampling produces.
package provider

import (
	"sort"

	"github.com/MeKo-Tech/terrainkit/internal/heightfield"
)

// Provider is a non-owning, concurrency-safe-for-reads view over a height
// field's axes and Z buffer.
type Provider struct {
	f *heightfield.Field
}

// New wraps f. The provider never mutates f; callers must not mutate f
// either while the provider is in use, per the ownership rule in §3.
func New(f *heightfield.Field) *Provider {
	return &Provider{f: f}
}

// Z returns the triangle-exact elevation at local (x,y), clamping to the
// field's extent if outside it.
func (p *Provider) Z(x, y float64) float64 {
	f := p.f
	x = clamp(x, f.MinX, f.MaxX)
	y = clamp(y, f.MinY, f.MaxY)

	i := cellIndex(x, f.MinX, f.Dx, f.Nx)
	j := cellIndex(y, f.MinY, f.Dy, f.Ny)

	x0, y0 := f.NodeX(i), f.NodeY(j)
	dx := (x - x0) / f.Dx
	dy := (y - y0) / f.Dy
	if dx < 0 {
		dx = 0
	}
	if dy < 0 {
		dy = 0
	}
	if dx > 1 {
		dx = 1
	}
	if dy > 1 {
		dy = 1
	}

	z00 := f.At(i, j)
	z10 := f.At(i+1, j)
	z01 := f.At(i, j+1)
	z11 := f.At(i+1, j+1)

	if dx+dy <= 1 {
		return z00*(1-dx-dy) + z10*dx + z01*dy
	}
	return z11*(dx+dy-1) + z10*(1-dy) + z01*(1-dx)
}

// Batch evaluates Z at every (x,y) pair; len(xs) must equal len(ys).
func (p *Provider) Batch(xs, ys []float64) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = p.Z(xs[i], ys[i])
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// cellIndex binary-searches for the cell column/row containing v, clamped
// to [0, n-2] so the returned index always has a valid i+1 neighbor.
func cellIndex(v, origin, step float64, n int) int {
	if step <= 0 || n < 2 {
		return 0
	}
	i := sort.Search(n, func(k int) bool {
		return origin+float64(k)*step > v
	}) - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	return i
}

// OriginalZProvider views a height field's OriginalZ snapshot instead of its
// current (possibly depressed) Z, used by the water processor to recover
// the pre-depression bank elevation (§4.6).
type OriginalZProvider struct {
	f *heightfield.Field
}

// NewOriginal wraps f. If f has never been depressed, Z falls back to the
// current field since OriginalZ is only snapshotted on the first Depress
// call.
func NewOriginal(f *heightfield.Field) *OriginalZProvider {
	return &OriginalZProvider{f: f}
}

// Z returns the triangle-exact elevation at local (x,y) against the
// original (pre-depression) field, falling back to the current Z if no
// depression has ever been applied.
func (p *OriginalZProvider) Z(x, y float64) float64 {
	f := p.f
	z := f.Z
	if f.OriginalZ != nil {
		z = f.OriginalZ
	}
	shadow := heightfield.Field{
		MinX: f.MinX, MinY: f.MinY, MaxX: f.MaxX, MaxY: f.MaxY,
		Nx: f.Nx, Ny: f.Ny, Dx: f.Dx, Dy: f.Dy,
		Z: z,
	}
	return New(&shadow).Z(x, y)
}
