package geomutil

import "github.com/paulmach/orb"

// CellIndex identifies one quad cell of the height-field grid by its
// lower-left node (i,j): the cell spans nodes (i,j)-(i+1,j+1).
type CellIndex struct {
	I, J int
}

// CellsCoveredByPolygon rasterizes poly onto a regular grid of nx*ny cells
// (nx, ny are cell counts, i.e. one less than the node counts) whose node
// origin is (originX, originY) and whose cell size is (dx, dy). A cell is
// "covered" if its center is inside the polygon or the polygon boundary
// touches the cell's square region at all — the conservative rule §4.1
// requires ("cells touched by the polygon boundary count as inside").
func CellsCoveredByPolygon(poly orb.Polygon, originX, originY, dx, dy float64, nx, ny int) []CellIndex {
	if len(poly) == 0 || nx <= 0 || ny <= 0 {
		return nil
	}

	bound := poly.Bound()
	minI := int((bound.Min[0] - originX) / dx)
	maxI := int((bound.Max[0]-originX)/dx) + 1
	minJ := int((bound.Min[1] - originY) / dy)
	maxJ := int((bound.Max[1]-originY)/dy) + 1

	if minI < 0 {
		minI = 0
	}
	if minJ < 0 {
		minJ = 0
	}
	if maxI > nx-1 {
		maxI = nx - 1
	}
	if maxJ > ny-1 {
		maxJ = ny - 1
	}

	outer := OpenRing(poly[0])
	holes := make([][]orb.Point, 0, len(poly)-1)
	for _, h := range poly[1:] {
		holes = append(holes, OpenRing(h))
	}

	var cells []CellIndex
	for j := minJ; j <= maxJ; j++ {
		cellMinY := originY + float64(j)*dy
		cellMaxY := cellMinY + dy
		for i := minI; i <= maxI; i++ {
			cellMinX := originX + float64(i)*dx
			cellMaxX := cellMinX + dx

			if cellCoversPolygon(outer, holes, cellMinX, cellMinY, cellMaxX, cellMaxY) {
				cells = append(cells, CellIndex{I: i, J: j})
			}
		}
	}
	return cells
}

func cellCoversPolygon(outer []orb.Point, holes [][]orb.Point, minX, minY, maxX, maxY float64) bool {
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	center := orb.Point{cx, cy}

	if PointInRing(outer, center) {
		inHole := false
		for _, h := range holes {
			if PointInRing(h, center) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}

	if RectIntersectsRing(outer, minX, minY, maxX, maxY) {
		return true
	}
	for _, h := range holes {
		if RectIntersectsRing(h, minX, minY, maxX, maxY) {
			return true
		}
	}
	return false
}
