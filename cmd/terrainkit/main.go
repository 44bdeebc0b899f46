// Command terrainkit converts a geographic bounding box, OSM-like vector
// features, and an elevation source into a watertight, 3D-printable scene.
package main

import "github.com/MeKo-Tech/terrainkit/internal/cmd"

func main() {
	cmd.Execute()
}
