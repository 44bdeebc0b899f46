package types

// Material is the tagged variant carried by every mesh fragment and feature.
// The scene assembler switches on it only to decide coloring (§4.9); no
// inheritance hierarchy models feature kinds, per the "dynamic dispatch over
// feature types" design note.
type Material string

const (
	MaterialBase     Material = "base"
	MaterialBuilding Material = "building"
	MaterialRoad     Material = "road"
	MaterialBridge   Material = "bridge"
	MaterialWater    Material = "water"
	MaterialGreen    Material = "green"
	MaterialPOI      Material = "poi"
)
