// Package heightfield implements the regular-grid elevation model (§3, §4.1):
// construction from an elevation callback, Gaussian smoothing, and the
// terrain-first flatten/depress modification passes. Ordering is row-major
// in Y then X, fixed once here and relied on by every other package that
// indexes into Z.
package heightfield

import (
	"context"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/terrainkit/internal/coordframe"
	"github.com/MeKo-Tech/terrainkit/internal/errs"
	"github.com/MeKo-Tech/terrainkit/internal/geomutil"
)

// Sampler resolves an absolute elevation in meters for a geographic point.
// ThreadSafe must report true for Build to parallelize node sampling (§5);
// implementations that are not safe for concurrent use must report false and
// accept being called serially.
type Sampler interface {
	Sample(ctx context.Context, lat, lon float64) (float64, error)
	ThreadSafe() bool
}

// Field is the regular elevation grid described in §3. Z is owned
// exclusively by this package; the terrain provider holds only a read-only
// view.
type Field struct {
	MinX, MinY, MaxX, MaxY float64
	Nx, Ny                 int
	Dx, Dy                 float64

	Z []float64

	// OriginalZ is the snapshot taken just before the first Depress call.
	// Nil until then (§3: "original_Z ... needed by the water surface
	// placer").
	OriginalZ []float64

	ElevationRefM float64
	ZScale        float64
}

// Params configures Build.
type Params struct {
	Resolution    int // nominal grid size: max(Nx,Ny) (§6 default 180, clamp 60-320)
	ElevationRefM float64
	ZScale        float64
	SmoothingSig  float64 // 0 disables smoothing
}

// Index returns the flat row-major (Y then X) offset of node (i,j).
func (f *Field) Index(i, j int) int { return j*f.Nx + i }

// At returns Z[i,j].
func (f *Field) At(i, j int) float64 { return f.Z[f.Index(i, j)] }

// NodeX returns the local X coordinate of column i.
func (f *Field) NodeX(i int) float64 { return f.MinX + float64(i)*f.Dx }

// NodeY returns the local Y coordinate of row j.
func (f *Field) NodeY(j int) float64 { return f.MinY + float64(j)*f.Dy }

// Build samples a new Field over the given local extent using frame to map
// local coordinates back to geographic points for sample.
func Build(ctx context.Context, frame coordframe.Frame, minX, minY, maxX, maxY float64, sample Sampler, p Params) (*Field, error) {
	if maxX <= minX || maxY <= minY {
		return nil, fmt.Errorf("%w: degenerate extent", errs.ErrInvalidInput)
	}

	resolution := p.Resolution
	if resolution < 60 {
		resolution = 60
	}
	if resolution > 320 {
		resolution = 320
	}

	width, height := maxX-minX, maxY-minY
	var nx, ny int
	if width >= height {
		nx = resolution
		ny = int(math.Round(float64(resolution) * height / width))
	} else {
		ny = resolution
		nx = int(math.Round(float64(resolution) * width / height))
	}
	if nx < 2 {
		nx = 2
	}
	if ny < 2 {
		ny = 2
	}

	f := &Field{
		MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY,
		Nx: nx, Ny: ny,
		Dx: width / float64(nx-1), Dy: height / float64(ny-1),
		ElevationRefM: p.ElevationRefM,
		ZScale:        p.ZScale,
	}
	if f.ZScale == 0 {
		f.ZScale = 1.0
	}

	raw := make([]float64, nx*ny)
	valid := make([]bool, nx*ny)

	if sample.ThreadSafe() {
		if err := sampleConcurrent(ctx, frame, f, raw, valid, sample); err != nil {
			return nil, err
		}
	} else {
		if err := sampleSerial(ctx, frame, f, raw, valid, sample); err != nil {
			return nil, err
		}
	}

	if err := fillMissing(f, raw, valid, p.ElevationRefM); err != nil {
		return nil, err
	}

	f.Z = make([]float64, nx*ny)
	for idx, zAbs := range raw {
		f.Z[idx] = (zAbs - p.ElevationRefM) * f.ZScale
	}

	if p.SmoothingSig > 0 {
		Smooth(f, p.SmoothingSig)
	}

	return f, nil
}

func sampleSerial(ctx context.Context, frame coordframe.Frame, f *Field, raw []float64, valid []bool, sample Sampler) error {
	for j := 0; j < f.Ny; j++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w", errs.ErrCancelled)
		}
		for i := 0; i < f.Nx; i++ {
			lat, lon := frame.LocalToGeographic(f.NodeX(i), f.NodeY(j))
			z, err := sample.Sample(ctx, lat, lon)
			idx := f.Index(i, j)
			if err != nil {
				valid[idx] = false
				continue
			}
			raw[idx] = z
			valid[idx] = true
		}
	}
	return nil
}

func sampleConcurrent(ctx context.Context, frame coordframe.Frame, f *Field, raw []float64, valid []bool, sample Sampler) error {
	type job struct{ i, j int }
	jobs := make(chan job, f.Nx*f.Ny)
	for j := 0; j < f.Ny; j++ {
		for i := 0; i < f.Nx; i++ {
			jobs <- job{i, j}
		}
	}
	close(jobs)

	workers := 8
	if f.Nx*f.Ny < workers {
		workers = f.Nx * f.Ny
	}
	if workers < 1 {
		workers = 1
	}

	errCh := make(chan error, workers)
	done := make(chan struct{})
	for w := 0; w < workers; w++ {
		go func() {
			for jb := range jobs {
				select {
				case <-ctx.Done():
					errCh <- errs.ErrCancelled
					return
				default:
				}
				lat, lon := frame.LocalToGeographic(f.NodeX(jb.i), f.NodeY(jb.j))
				z, err := sample.Sample(ctx, lat, lon)
				idx := f.Index(jb.i, jb.j)
				if err != nil {
					valid[idx] = false
					continue
				}
				raw[idx] = z
				valid[idx] = true
			}
			errCh <- nil
		}()
	}
	go func() {
		for w := 0; w < workers; w++ {
			if err := <-errCh; err != nil {
				close(done)
				return
			}
		}
		close(done)
	}()
	<-done
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w", errs.ErrCancelled)
	}
	return nil
}

// fillMissing replaces invalid samples by nearest-neighbor propagation from
// valid neighbors, then elevationRef if none exist anywhere (§4.1).
func fillMissing(f *Field, raw []float64, valid []bool, elevationRef float64) error {
	anyValid := false
	for _, v := range valid {
		if v {
			anyValid = true
			break
		}
	}
	if !anyValid {
		return fmt.Errorf("%w", errs.ErrEmptyHeightField)
	}

	for pass := 0; pass < f.Nx+f.Ny; pass++ {
		changed := false
		for j := 0; j < f.Ny; j++ {
			for i := 0; i < f.Nx; i++ {
				idx := f.Index(i, j)
				if valid[idx] {
					continue
				}
				if z, ok := nearestValidNeighbor(f, raw, valid, i, j); ok {
					raw[idx] = z
					valid[idx] = true
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	for idx, v := range valid {
		if !v {
			raw[idx] = elevationRef
		}
	}
	return nil
}

func nearestValidNeighbor(f *Field, raw []float64, valid []bool, i, j int) (float64, bool) {
	dirs := [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	for _, d := range dirs {
		ni, nj := i+d[0], j+d[1]
		if ni < 0 || ni >= f.Nx || nj < 0 || nj >= f.Ny {
			continue
		}
		idx := f.Index(ni, nj)
		if valid[idx] {
			return raw[idx], true
		}
	}
	return 0, false
}

// Smooth applies a separable Gaussian blur in place with reflected
// boundaries. The teacher's image-based blur (golang.org/x/image/ or
// disintegration/gift) quantizes to 8 bits per channel, which loses sub-
// centimeter elevation detail; this float64 convolution is hand-rolled to
// keep meter-precision data precision through the filter.
func Smooth(f *Field, sigma float64) {
	if sigma <= 0 {
		return
	}
	kernel := gaussianKernel(sigma)
	tmp := make([]float64, len(f.Z))
	convolveAxis(f.Z, tmp, f.Nx, f.Ny, kernel, true)
	out := make([]float64, len(f.Z))
	convolveAxis(tmp, out, f.Nx, f.Ny, kernel, false)
	copy(f.Z, out)
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for k := -radius; k <= radius; k++ {
		v := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// convolveAxis convolves src (row-major Nx*Ny) along X (horizontal=true) or
// Y (horizontal=false), writing into dst, reflecting at the boundary.
func convolveAxis(src, dst []float64, nx, ny int, kernel []float64, horizontal bool) {
	radius := (len(kernel) - 1) / 2
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				var si, sj int
				if horizontal {
					si, sj = reflect(i+k, nx), j
				} else {
					si, sj = i, reflect(j+k, ny)
				}
				acc += src[sj*nx+si] * kernel[k+radius]
			}
			dst[j*nx+i] = acc
		}
	}
}

func reflect(idx, n int) int {
	if n == 1 {
		return 0
	}
	for idx < 0 || idx >= n {
		if idx < 0 {
			idx = -idx - 1
		}
		if idx >= n {
			idx = 2*n - idx - 1
		}
	}
	return idx
}

// CellPolygon returns the closed 2D polygon boundary, in local coordinates,
// of a single grid cell. Exposed for tests and debug dumps.
func (f *Field) CellPolygon(i, j int) orb.Ring {
	x0, y0 := f.NodeX(i), f.NodeY(j)
	x1, y1 := f.NodeX(i+1), f.NodeY(j+1)
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

// CellsCovering rasterizes poly onto this field's grid of cells (Nx-1 by
// Ny-1 of them), delegating to geomutil's conservative rasterization rule.
func (f *Field) CellsCovering(poly orb.Polygon) []geomutil.CellIndex {
	return geomutil.CellsCoveredByPolygon(poly, f.MinX, f.MinY, f.Dx, f.Dy, f.Nx-1, f.Ny-1)
}
