// Package osmfeatures adapts OSM-shaped input (the same node/way/relation
// shape github.com/MeKo-Christian/go-overpass decodes Overpass API JSON
// into) into this module's PolygonFeature/LineFeature/PointFeature types,
// classifying each element by material the way the teacher's
// internal/datasource/overpass_extract.go classifies ways into its
// FeatureCollection's Water/Parks/Roads/Buildings/Civic buckets.
package osmfeatures

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/MeKo-Tech/terrainkit/internal/coordframe"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Node is a single OSM node: a point with tags (standalone POIs) or a
// geometry vertex embedded in a Way.
type Node struct {
	ID   int64
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// Way is an ordered sequence of node coordinates plus tags, mirroring
// go-overpass's Way shape (Geometry already resolved to lat/lon pairs).
type Way struct {
	ID       int64
	Tags     map[string]string
	Geometry []Node
}

// Member is one element of a relation, mirroring go-overpass's Member.
type Member struct {
	Type string // "way", "node", or "relation"
	Role string // "outer", "inner", or "" (defaults to outer)
	Way  *Way   // populated when Type == "way" and the way is resolvable
}

// Relation groups member ways, used for multipolygon water/green bodies.
type Relation struct {
	ID      int64
	Tags    map[string]string
	Members []Member
}

// RawElements is the decoded Overpass response this adapter consumes: every
// node (including standalone POI nodes), every way, and every relation.
type RawElements struct {
	Nodes     []Node
	Ways      []Way
	Relations []Relation
}

// FeatureSet holds the classified, frame-local features ready for each
// processor package (§4.4-§4.8).
type FeatureSet struct {
	Buildings []types.PolygonFeature
	Roads     []types.LineFeature
	Water     []types.PolygonFeature
	Green     []types.PolygonFeature
	POI       []types.PointFeature
}

// Extract classifies raw OSM elements into a FeatureSet, projecting every
// coordinate into frame's local, centered system. Elements matching no
// recognized tag are silently dropped, same as the teacher's switch-based
// categorizeByTags falling through to FeatureTypeUnknown.
func Extract(frame coordframe.Frame, raw RawElements) FeatureSet {
	var fs FeatureSet

	memberWayIDs := make(map[int64]bool)
	for _, rel := range raw.Relations {
		if rel.Tags["type"] != "multipolygon" {
			continue
		}
		for _, m := range rel.Members {
			if m.Type == "way" && m.Way != nil {
				memberWayIDs[m.Way.ID] = true
			}
		}
	}

	for _, way := range raw.Ways {
		if memberWayIDs[way.ID] {
			continue
		}
		classifyWay(frame, way, &fs)
	}

	for _, rel := range raw.Relations {
		if rel.Tags["type"] != "multipolygon" {
			continue
		}
		classifyMultipolygon(frame, rel, &fs)
	}

	for _, node := range raw.Nodes {
		if class := poiClass(node.Tags); class != "" {
			fs.POI = append(fs.POI, buildPOI(frame, node, class))
		}
	}

	return fs
}

func classifyWay(frame coordframe.Frame, way Way, fs *FeatureSet) {
	tags := way.Tags

	if isRoad(tags) {
		if line, ok := buildLine(frame, way); ok {
			fs.Roads = append(fs.Roads, line)
		}
		return
	}

	ring, closed := buildRing(frame, way.Geometry)
	if !closed {
		return
	}
	poly := orb.Polygon{ring}

	switch {
	case isWater(tags):
		fs.Water = append(fs.Water, buildPolygonFeature(fmt.Sprintf("way/%d", way.ID), poly, tags, types.MaterialWater))
	case isGreen(tags):
		fs.Green = append(fs.Green, buildPolygonFeature(fmt.Sprintf("way/%d", way.ID), poly, tags, types.MaterialGreen))
	case isBuilding(tags):
		fs.Buildings = append(fs.Buildings, buildBuildingFeature(fmt.Sprintf("way/%d", way.ID), poly, tags))
	}
}

// classifyMultipolygon assembles outer/inner rings from member ways the way
// convertMultipolygonRelationToFeature does, but keeps inner rings as holes
// on a single PolygonFeature instead of discarding the outer/inner pairing
// (this module's geomutil triangulator understands holes; the teacher's 2D
// renderer didn't need to).
func classifyMultipolygon(frame coordframe.Frame, rel Relation, fs *FeatureSet) {
	tags := rel.Tags
	var material types.Material
	switch {
	case isWater(tags):
		material = types.MaterialWater
	case isGreen(tags):
		material = types.MaterialGreen
	case isBuilding(tags):
		material = types.MaterialBuilding
	default:
		return
	}

	var outer []orb.Ring
	var inner []orb.Ring
	for _, m := range rel.Members {
		if m.Type != "way" || m.Way == nil {
			continue
		}
		ring, closed := buildRing(frame, m.Way.Geometry)
		if !closed {
			continue
		}
		if m.Role == "inner" {
			inner = append(inner, ring)
		} else {
			outer = append(outer, ring)
		}
	}
	if len(outer) == 0 {
		return
	}

	// Multiple disjoint outer rings in one relation (e.g. a lake archipelago)
	// each become their own feature; inner rings are all attached to the
	// first outer ring since go-overpass's Member doesn't expose which outer
	// ring an inner hole belongs to.
	id := fmt.Sprintf("relation/%d", rel.ID)
	for i, o := range outer {
		rings := []orb.Ring{o}
		if i == 0 {
			rings = append(rings, inner...)
		}
		poly := orb.Polygon(rings)
		switch material {
		case types.MaterialWater:
			fs.Water = append(fs.Water, buildPolygonFeature(id, poly, tags, material))
		case types.MaterialGreen:
			fs.Green = append(fs.Green, buildPolygonFeature(id, poly, tags, material))
		case types.MaterialBuilding:
			fs.Buildings = append(fs.Buildings, buildBuildingFeature(id, poly, tags))
		}
	}
}

func buildRing(frame coordframe.Frame, nodes []Node) (orb.Ring, bool) {
	if len(nodes) < 3 {
		return nil, false
	}
	ring := make(orb.Ring, len(nodes))
	for i, n := range nodes {
		lx, ly := frame.GeographicToLocal(n.Lat, n.Lon)
		ring[i] = orb.Point{lx, ly}
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, true
}

func buildLine(frame coordframe.Frame, way Way) (types.LineFeature, bool) {
	if len(way.Geometry) < 2 {
		return types.LineFeature{}, false
	}
	line := make(orb.LineString, len(way.Geometry))
	for i, n := range way.Geometry {
		lx, ly := frame.GeographicToLocal(n.Lat, n.Lon)
		line[i] = orb.Point{lx, ly}
	}
	bridgeTag := way.Tags["bridge"]
	return types.LineFeature{
		ID:        fmt.Sprintf("way/%d", way.ID),
		Geometry:  line,
		Tags:      way.Tags,
		RoadClass: way.Tags["highway"],
		Bridge:    bridgeTag != "" && bridgeTag != "no",
	}, true
}

func buildPolygonFeature(id string, poly orb.Polygon, tags map[string]string, material types.Material) types.PolygonFeature {
	return types.PolygonFeature{
		ID:       id,
		Geometry: poly,
		Tags:     tags,
		Material: material,
	}
}

func buildBuildingFeature(id string, poly orb.Polygon, tags map[string]string) types.PolygonFeature {
	return types.PolygonFeature{
		ID:         id,
		Geometry:   poly,
		Tags:       tags,
		Material:   types.MaterialBuilding,
		HeightM:    parseMeters(tags["height"]),
		LevelsTag:  parseMeters(tags["building:levels"]),
		RoofLevels: parseMeters(tags["roof:levels"]),
		RoofHeight: parseMeters(tags["roof:height"]),
	}
}

func buildPOI(frame coordframe.Frame, node Node, class string) types.PointFeature {
	lx, ly := frame.GeographicToLocal(node.Lat, node.Lon)
	return types.PointFeature{
		ID:       fmt.Sprintf("node/%d", node.ID),
		Point:    orb.Point{lx, ly},
		Tags:     node.Tags,
		Class:    class,
		Priority: poiPriority(class),
	}
}

// parseMeters parses an OSM numeric tag value, tolerating a trailing
// " m" unit suffix (e.g. "12 m" for height). Returns nil if empty or
// unparseable, matching the tag-absent case.
func parseMeters(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	raw = strings.TrimSuffix(raw, "m")
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func isWater(tags map[string]string) bool {
	if tags["natural"] == "water" || tags["natural"] == "coastline" {
		return true
	}
	// Closed waterway ways (e.g. riverbank) are polygonal water, matching
	// how the teacher treats "natural=water" multipolygons.
	return tags["waterway"] == "riverbank"
}

func isGreen(tags map[string]string) bool {
	switch tags["leisure"] {
	case "park", "garden", "playground", "nature_reserve":
		return true
	}
	switch tags["landuse"] {
	case "forest", "grass", "meadow", "farmland", "orchard", "vineyard", "allotments":
		return true
	}
	switch tags["natural"] {
	case "wood", "heath", "grassland":
		return true
	}
	return false
}

func isBuilding(tags map[string]string) bool {
	return tags["building"] != "" && tags["building"] != "no"
}

func isRoad(tags map[string]string) bool {
	return tags["highway"] != ""
}

// poiClass returns the POI's class tag value, or "" if the node carries none
// of the recognized marker tags. Mirrors the teacher's isCivic set, widened
// to the full set of point-of-interest tags this module's §4.8 marks.
func poiClass(tags map[string]string) string {
	if v := tags["amenity"]; v != "" {
		return "amenity:" + v
	}
	if v := tags["tourism"]; v != "" {
		return "tourism:" + v
	}
	if v := tags["shop"]; v != "" {
		return "shop:" + v
	}
	if v := tags["historic"]; v != "" {
		return "historic:" + v
	}
	return ""
}

// poiPriority ranks POI classes so §4.8's N_max capping keeps the most
// civically significant markers first. Lower value sorts first.
func poiPriority(class string) int {
	switch class {
	case "amenity:hospital", "amenity:school", "amenity:university", "amenity:townhall":
		return 0
	case "amenity:place_of_worship", "tourism:attraction", "tourism:museum", "historic:monument":
		return 1
	default:
		return 2
	}
}
