package osmfeatures

import "github.com/MeKo-Christian/go-overpass"

// FromOverpassResult converts a decoded Overpass API response into
// RawElements, mirroring the teacher's ExtractFeaturesFromOverpassResult
// field access (result.Ways, result.Relations, way.Geometry's Lat/Lon
// pairs, rel.Members' Type/Role/Way). Standalone tagged nodes (POI
// sources) are carried over by the same ID/Lat/Lon/Tags field convention
// the library uses for way geometry vertices.
func FromOverpassResult(result *overpass.Result) RawElements {
	var raw RawElements
	if result == nil {
		return raw
	}

	for id, node := range result.Nodes {
		if node == nil || len(node.Tags) == 0 {
			continue // untagged geometry-only nodes carry no POI information
		}
		raw.Nodes = append(raw.Nodes, Node{
			ID:   id,
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: node.Tags,
		})
	}

	for id, way := range result.Ways {
		if way == nil {
			continue
		}
		raw.Ways = append(raw.Ways, convertOverpassWay(id, way))
	}

	for id, rel := range result.Relations {
		if rel == nil {
			continue
		}
		raw.Relations = append(raw.Relations, convertOverpassRelation(id, rel, result.Ways))
	}

	return raw
}

func convertOverpassWay(id int64, way *overpass.Way) Way {
	geometry := make([]Node, len(way.Geometry))
	for i, pt := range way.Geometry {
		geometry[i] = Node{Lat: pt.Lat, Lon: pt.Lon}
	}
	return Way{ID: id, Tags: way.Tags, Geometry: geometry}
}

func convertOverpassRelation(id int64, rel *overpass.Relation, ways map[int64]*overpass.Way) Relation {
	members := make([]Member, 0, len(rel.Members))
	for _, m := range rel.Members {
		if m.Type != "way" {
			continue
		}
		member := Member{Type: m.Type, Role: m.Role}
		if m.Way != nil {
			w := convertOverpassWay(m.Way.ID, m.Way)
			member.Way = &w
		} else if w, ok := ways[memberWayID(m)]; ok && w != nil {
			cw := convertOverpassWay(w.ID, w)
			member.Way = &cw
		}
		members = append(members, member)
	}
	return Relation{ID: id, Tags: rel.Tags, Members: members}
}

// memberWayID recovers a relation member's referenced way ID when the
// library exposes it directly on Member rather than only via an embedded
// Way. Falls back to 0 (no match in the ways map) when it doesn't.
func memberWayID(m overpass.Member) int64 {
	if m.Way != nil {
		return m.Way.ID
	}
	return 0
}
