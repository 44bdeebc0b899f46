package types

import "github.com/paulmach/orb"

// PolygonFeature is a planar polygon (possibly with holes) in local, metric,
// centered coordinates: a ready-to-rasterize input to the height field and
// the feature processors.
type PolygonFeature struct {
	ID         string
	Geometry   orb.Polygon // rings in local meters; Geometry[0] is the outer ring
	Tags       map[string]string
	HeightM    *float64 // explicit height override, meters; nil if not present
	Material   Material
	BridgeTag  bool // explicit "bridge" tag on the source way, roads only
	RoadClass  string
	LevelsTag  *float64
	RoofLevels *float64
	RoofHeight *float64
}

// LineFeature is an ordered polyline in local, metric, centered coordinates.
type LineFeature struct {
	ID        string
	Geometry  orb.LineString
	Tags      map[string]string
	RoadClass string
	Bridge    bool
}

// PointFeature is a single point of interest in local, metric, centered
// coordinates.
type PointFeature struct {
	ID       string
	Point    orb.Point
	Tags     map[string]string
	Class    string
	Priority int // lower sorts first when POIs must be capped to N_max
}

// Tag returns a tag value, or "" if absent. Tags are never nil in practice,
// but callers may hold a zero-value feature in tests.
func (p PolygonFeature) Tag(key string) string {
	if p.Tags == nil {
		return ""
	}
	return p.Tags[key]
}

func (l LineFeature) Tag(key string) string {
	if l.Tags == nil {
		return ""
	}
	return l.Tags[key]
}

func (p PointFeature) Tag(key string) string {
	if p.Tags == nil {
		return ""
	}
	return p.Tags[key]
}
