package geomutil

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// ExtrudePolygon builds a watertight vertical prism over poly: a top cap
// triangulated per §4.1's neighbor of cell rule is not applicable here (this
// is a 2D footprint, not the height-field grid) so the cap uses ear-clip
// triangulation, a bottom cap with reversed winding, and side walls wound
// outward for both the outer ring and any holes.
//
// zBottom and zTop are evaluated once per distinct 2D point in the polygon
// (including bridge duplicates, harmlessly re-evaluated) and may depend on
// the terrain provider to drape each vertex.
func ExtrudePolygon(poly orb.Polygon, zBottom, zTop func(p orb.Point) float64) (types.MeshFragment, error) {
	norm := NormalizeWinding(poly)
	tri, err := TriangulatePolygon(norm)
	if err != nil {
		return types.MeshFragment{}, err
	}
	if len(tri.Points) == 0 {
		return types.MeshFragment{}, fmt.Errorf("%w: no triangulated points", errDegenerate)
	}

	n := len(tri.Points)
	verts := make([]types.Vec3, 2*n)
	ptIndex := make(map[orb.Point]int, n)
	for i, p := range tri.Points {
		verts[i] = types.Vec3{X: p[0], Y: p[1], Z: zTop(p)}
		verts[n+i] = types.Vec3{X: p[0], Y: p[1], Z: zBottom(p)}
		if _, ok := ptIndex[p]; !ok {
			ptIndex[p] = i
		}
	}

	faces := make([]types.Face, 0, 2*len(tri.Faces)+4*n)
	for _, f := range tri.Faces {
		faces = append(faces, types.Face{f[0], f[1], f[2]})
		// Bottom cap: reversed winding so its normal points down.
		faces = append(faces, types.Face{n + f[0], n + f[2], n + f[1]})
	}

	for _, ring := range norm {
		pts := OpenRing(ring)
		m := len(pts)
		if m < 2 {
			continue
		}
		for i := 0; i < m; i++ {
			j := (i + 1) % m
			pi, pj := pts[i], pts[j]
			ii, iok := ptIndex[pi]
			jj, jok := ptIndex[pj]
			if !iok || !jok {
				continue
			}
			topI, botI := ii, n+ii
			topJ, botJ := jj, n+jj
			faces = append(faces,
				types.Face{topI, botI, topJ},
				types.Face{topJ, botI, botJ},
			)
		}
	}

	return types.MeshFragment{Vertices: verts, Faces: faces}, nil
}

// ExtrudeFlat extrudes poly between two constant elevations.
func ExtrudeFlat(poly orb.Polygon, z0, z1 float64) (types.MeshFragment, error) {
	return ExtrudePolygon(poly,
		func(orb.Point) float64 { return z0 },
		func(orb.Point) float64 { return z1 },
	)
}
