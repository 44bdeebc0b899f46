// Package solid turns a height field into a watertight triangular base mesh
// (§4.2): top surface, flat bottom, and side skirts, vertex-welded and
// verified for the two-faces-per-edge watertight invariant. The edge-
// adjacency bookkeeping is grounded on the mesh-adjacency pass in the
// example corpus's navmesh recast builder, adapted from float32 run-length
// polygons to a float64 indexed triangle mesh.
package solid

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/terrainkit/internal/errs"
	"github.com/MeKo-Tech/terrainkit/internal/heightfield"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Params configures terrain solidification.
type Params struct {
	BaseThicknessM    float64
	SubdivisionLevels int // 0..2
}

// BuildTerrain assembles the watertight base solid from a height field's
// current Z (§4.2). Subdivision, if requested, runs after welding so every
// new edge midpoint is shared correctly across adjacent faces.
func BuildTerrain(f *heightfield.Field, p Params) (types.MeshFragment, error) {
	if f.Nx < 2 || f.Ny < 2 {
		return types.MeshFragment{}, fmt.Errorf("%w: Nx/Ny < 2", errs.ErrInvalidInput)
	}

	zMin := f.Z[0]
	for _, z := range f.Z {
		if z < zMin {
			zMin = z
		}
	}
	zBottom := zMin - p.BaseThicknessM

	nTop := f.Nx * f.Ny
	verts := make([]types.Vec3, nTop)
	for j := 0; j < f.Ny; j++ {
		for i := 0; i < f.Nx; i++ {
			idx := f.Index(i, j)
			verts[idx] = types.Vec3{X: f.NodeX(i), Y: f.NodeY(j), Z: f.At(i, j)}
		}
	}

	var faces []types.Face
	for j := 0; j < f.Ny-1; j++ {
		for i := 0; i < f.Nx-1; i++ {
			a := f.Index(i, j)
			b := f.Index(i+1, j)
			c := f.Index(i, j+1)
			d := f.Index(i+1, j+1)
			// Triangle A: (i,j),(i+1,j),(i,j+1); Triangle B: (i,j+1),(i+1,j),(i+1,j+1).
			faces = append(faces, types.Face{a, b, c})
			faces = append(faces, types.Face{c, b, d})
		}
	}

	boundary := boundaryChain(f.Nx, f.Ny, f.Index)

	botOf := make(map[int]int, len(boundary))
	for _, top := range boundary {
		v := verts[top]
		botIdx := len(verts)
		verts = append(verts, types.Vec3{X: v.X, Y: v.Y, Z: zBottom})
		botOf[top] = botIdx
	}

	n := len(boundary)
	for k := 0; k < n; k++ {
		p0 := boundary[k]
		q0 := boundary[(k+1)%n]
		topP, topQ := p0, q0
		botP, botQ := botOf[p0], botOf[q0]
		// Outward-wound wall, same convention as geomutil's ExtrudePolygon.
		faces = append(faces, types.Face{topP, botP, topQ})
		faces = append(faces, types.Face{topQ, botP, botQ})
	}

	for k := 1; k < n-1; k++ {
		faces = append(faces, types.Face{botOf[boundary[0]], botOf[boundary[k+1]], botOf[boundary[k]]})
	}

	frag := types.MeshFragment{Vertices: verts, Faces: faces, Material: types.MaterialBase}

	diag := boundsDiagonal(frag)
	frag = Weld(frag, 1e-6*diag)

	if !isWatertight(frag) {
		frag = Weld(frag, 1e-6*diag)
		if !isWatertight(frag) {
			return types.MeshFragment{}, fmt.Errorf("%w", errs.ErrNonWatertightBase)
		}
	}

	levels := p.SubdivisionLevels
	if levels > 2 {
		levels = 2
	}
	for l := 0; l < levels; l++ {
		frag = Subdivide(frag)
	}

	return frag, nil
}

// boundaryChain returns the CCW-ordered flat indices of every grid node on
// the four boundary chains (i=0, i=Nx-1, j=0, j=Ny-1), each corner counted
// once.
func boundaryChain(nx, ny int, index func(i, j int) int) []int {
	var chain []int
	for i := 0; i < nx; i++ { // j = 0, left to right
		chain = append(chain, index(i, 0))
	}
	for j := 1; j < ny; j++ { // i = nx-1, bottom to top
		chain = append(chain, index(nx-1, j))
	}
	for i := nx - 2; i >= 0; i-- { // j = ny-1, right to left
		chain = append(chain, index(i, ny-1))
	}
	for j := ny - 2; j >= 1; j-- { // i = 0, top to bottom
		chain = append(chain, index(0, j))
	}
	return chain
}

func boundsDiagonal(frag types.MeshFragment) float64 {
	min, max, ok := frag.Bounds()
	if !ok {
		return 1
	}
	dx, dy, dz := max.X-min.X, max.Y-min.Y, max.Z-min.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Weld merges vertices within tol of each other (by a coarse spatial grid
// keyed on the rounded position) and rewrites faces to the canonical index.
func Weld(frag types.MeshFragment, tol float64) types.MeshFragment {
	if tol <= 0 {
		return frag
	}
	type key struct{ x, y, z int64 }
	keyOf := func(v types.Vec3) key {
		return key{
			int64(math.Round(v.X / tol)),
			int64(math.Round(v.Y / tol)),
			int64(math.Round(v.Z / tol)),
		}
	}

	canon := make(map[key]int, len(frag.Vertices))
	remap := make([]int, len(frag.Vertices))
	var newVerts []types.Vec3
	for i, v := range frag.Vertices {
		k := keyOf(v)
		if existing, ok := canon[k]; ok {
			remap[i] = existing
			continue
		}
		newIdx := len(newVerts)
		newVerts = append(newVerts, v)
		canon[k] = newIdx
		remap[i] = newIdx
	}

	newFaces := make([]types.Face, 0, len(frag.Faces))
	for _, f := range frag.Faces {
		a, b, c := remap[f[0]], remap[f[1]], remap[f[2]]
		if a == b || b == c || a == c {
			continue // degenerate after welding
		}
		newFaces = append(newFaces, types.Face{a, b, c})
	}

	frag.Vertices = newVerts
	frag.Faces = newFaces
	return frag
}

func isWatertight(frag types.MeshFragment) bool {
	edgeCount := make(map[[2]int]int, len(frag.Faces)*3)
	for _, f := range frag.Faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			if a > b {
				a, b = b, a
			}
			edgeCount[[2]int{a, b}]++
		}
	}
	for _, c := range edgeCount {
		if c != 2 {
			return false
		}
	}
	return true
}

// Subdivide splits every triangle 1->4 using edge midpoints only (no
// elevation re-sampling, per §4.2), welding shared edge midpoints so the
// result stays watertight.
func Subdivide(frag types.MeshFragment) types.MeshFragment {
	midOf := make(map[[2]int]int)
	verts := append([]types.Vec3(nil), frag.Vertices...)

	midpoint := func(a, b int) int {
		key := [2]int{a, b}
		if a > b {
			key = [2]int{b, a}
		}
		if idx, ok := midOf[key]; ok {
			return idx
		}
		va, vb := frag.Vertices[a], frag.Vertices[b]
		mid := types.Vec3{
			X: (va.X + vb.X) / 2,
			Y: (va.Y + vb.Y) / 2,
			Z: (va.Z + vb.Z) / 2,
		}
		idx := len(verts)
		verts = append(verts, mid)
		midOf[key] = idx
		return idx
	}

	var faces []types.Face
	for _, f := range frag.Faces {
		a, b, c := f[0], f[1], f[2]
		ab := midpoint(a, b)
		bc := midpoint(b, c)
		ca := midpoint(c, a)
		faces = append(faces,
			types.Face{a, ab, ca},
			types.Face{ab, b, bc},
			types.Face{ca, bc, c},
			types.Face{ab, bc, ca},
		)
	}

	frag.Vertices = verts
	frag.Faces = faces
	return frag
}

// IsWatertight reports whether every edge of frag is incident to exactly two
// faces.
func IsWatertight(frag types.MeshFragment) bool { return isWatertight(frag) }
