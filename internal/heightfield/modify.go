package heightfield

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/terrainkit/internal/geomutil"
)

// nodesOfCells maps covered grid cells to their four corner-node flat
// indices, deduplicated and in a stable (row-major) order so that quantile
// computation and assignment are reproducible regardless of map iteration.
func (f *Field) nodesOfCells(cells []geomutil.CellIndex) []int {
	seen := make(map[int]bool, len(cells)*4)
	var nodes []int
	add := func(i, j int) {
		idx := f.Index(i, j)
		if !seen[idx] {
			seen[idx] = true
			nodes = append(nodes, idx)
		}
	}
	for _, c := range cells {
		add(c.I, c.J)
		add(c.I+1, c.J)
		add(c.I, c.J+1)
		add(c.I+1, c.J+1)
	}
	sort.Ints(nodes)
	return nodes
}

// Flatten replaces Z under each polygon with a quantile of its pre-flatten
// cell values (§4.1). Polygons are processed in the given slice order;
// later polygons overwrite earlier ones where they overlap, matching the
// documented "buildings first, then roads" resolution order when callers
// flatten in that sequence across two calls.
func (f *Field) Flatten(polys []orb.Polygon, quantile float64) {
	for _, poly := range polys {
		cells := f.CellsCovering(poly)
		if len(cells) == 0 {
			continue // no-op for polygons whose rasterization is empty
		}
		nodes := f.nodesOfCells(cells)
		values := make([]float64, len(nodes))
		for i, idx := range nodes {
			values[i] = f.Z[idx]
		}
		target := geomutil.Quantile(values, quantile)
		for _, idx := range nodes {
			f.Z[idx] = target
		}
	}
}

// Depress lowers Z under each water polygon relative to the pre-depress
// snapshot (§4.1). OriginalZ is captured on the first call across the
// Field's lifetime, never again, so repeated depress passes remain anchored
// to the undisturbed terrain.
func (f *Field) Depress(polys []orb.Polygon, depth, quantile float64) {
	if f.OriginalZ == nil {
		f.OriginalZ = make([]float64, len(f.Z))
		copy(f.OriginalZ, f.Z)
	}

	for _, poly := range polys {
		cells := f.CellsCovering(poly)
		if len(cells) == 0 {
			continue
		}
		nodes := f.nodesOfCells(cells)
		values := make([]float64, len(nodes))
		for i, idx := range nodes {
			values[i] = f.OriginalZ[idx]
		}
		surface := geomutil.Quantile(values, quantile)
		for _, idx := range nodes {
			f.Z[idx] = surface - depth
		}
	}
}
