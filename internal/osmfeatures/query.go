package osmfeatures

import (
	"fmt"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// BuildQuery builds an Overpass QL query requesting every element this
// package's classifiers recognize (isWater/isGreen/isBuilding/isRoad/
// poiClass), grounded on the teacher's buildTileQuery: per-element bbox
// filters with "out geom qt" so full way geometry is returned rather than
// clipped fragments.
func BuildQuery(bounds types.BoundingBox) string {
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon)

	filters := []string{
		// Water
		fmt.Sprintf("way[\"natural\"=\"water\"](%s);", bbox),
		fmt.Sprintf("way[\"waterway\"=\"riverbank\"](%s);", bbox),
		fmt.Sprintf("relation[\"natural\"=\"water\"][\"type\"=\"multipolygon\"](%s);", bbox),
		// Green areas
		fmt.Sprintf("way[\"leisure\"~\"^(park|garden|playground|nature_reserve)$\"](%s);", bbox),
		fmt.Sprintf("way[\"landuse\"~\"^(forest|grass|meadow|farmland|orchard|vineyard|allotments)$\"](%s);", bbox),
		fmt.Sprintf("way[\"natural\"~\"^(wood|heath|grassland)$\"](%s);", bbox),
		// Roads
		fmt.Sprintf("way[\"highway\"](%s);", bbox),
		// Buildings
		fmt.Sprintf("way[\"building\"](%s);", bbox),
		fmt.Sprintf("relation[\"building\"][\"type\"=\"multipolygon\"](%s);", bbox),
		// POI nodes
		fmt.Sprintf("node[\"amenity\"](%s);", bbox),
		fmt.Sprintf("node[\"tourism\"](%s);", bbox),
		fmt.Sprintf("node[\"shop\"](%s);", bbox),
		fmt.Sprintf("node[\"historic\"](%s);", bbox),
	}

	query := "[out:json][timeout:90];\n(\n"
	for _, f := range filters {
		query += "  " + f + "\n"
	}
	query += ");\n(._;>;);\nout geom qt;"
	return query
}
