// Package export serializes an assembled types.Scene to disk. This is
// explicitly outside the core per spec.md §6 ("the scene-to-file step is
// not part of the core"); no corpus example repo carries a mesh-export
// dependency (the nearest geometry packages, arl-go-detour and paulmach/orb,
// only build and query meshes, never serialize them), so this thin CLI-only
// concern is hand-rolled on encoding/binary and archive/zip+encoding/xml
// rather than reaching for a library the corpus never uses for this purpose.
package export

import (
	"archive/zip"
	"bufio"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

// Format identifies an on-disk scene serialization.
type Format string

const (
	FormatSTL Format = "stl"
	FormatThreeMF Format = "3mf"
)

// WriteFile serializes scene to path in the given format.
func WriteFile(scene types.Scene, format Format, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatSTL:
		return writeSTL(f, scene)
	case FormatThreeMF:
		return write3MF(f, scene)
	default:
		return fmt.Errorf("export: unsupported format %q", format)
	}
}

// writeSTL emits a single binary STL mesh, concatenating every fragment and
// discarding per-fragment color (§6: "STL (single mesh, colors discarded)").
func writeSTL(w io.Writer, scene types.Scene) error {
	bw := bufio.NewWriter(w)

	var header [80]byte
	copy(header[:], "terrainkit scene export")
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}

	var triCount uint32
	for _, frag := range scene.Fragments {
		triCount += uint32(len(frag.Faces))
	}
	if err := binary.Write(bw, binary.LittleEndian, triCount); err != nil {
		return err
	}

	for _, frag := range scene.Fragments {
		for _, face := range frag.Faces {
			a, b, c := frag.Vertices[face[0]], frag.Vertices[face[1]], frag.Vertices[face[2]]
			n := faceNormal(a, b, c)
			if err := writeSTLTriangle(bw, n, a, b, c); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

func writeSTLTriangle(w io.Writer, n, a, b, c types.Vec3) error {
	vals := []float32{
		float32(n.X), float32(n.Y), float32(n.Z),
		float32(a.X), float32(a.Y), float32(a.Z),
		float32(b.X), float32(b.Y), float32(b.Z),
		float32(c.X), float32(c.Y), float32(c.Z),
	}
	for _, v := range vals {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	var attrByteCount uint16
	return binary.Write(w, binary.LittleEndian, attrByteCount)
}

func faceNormal(a, b, c types.Vec3) types.Vec3 {
	ux, uy, uz := b.X-a.X, b.Y-a.Y, b.Z-a.Z
	vx, vy, vz := c.X-a.X, c.Y-a.Y, c.Z-a.Z
	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx
	length := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if length == 0 {
		return types.Vec3{}
	}
	return types.Vec3{X: nx / length, Y: ny / length, Z: nz / length}
}

// write3MF emits a minimal 3MF package: one object per fragment, each
// keeping its own material color (§6: "3MF (preserves per-fragment colors
// by keeping fragments separate)").
func write3MF(w io.Writer, scene types.Scene) error {
	zw := zip.NewWriter(w)
	defer zw.Close()

	relsWriter, err := zw.Create("_rels/.rels")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(relsWriter, threeMFRels); err != nil {
		return err
	}

	ctWriter, err := zw.Create("[Content_Types].xml")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(ctWriter, threeMFContentTypes); err != nil {
		return err
	}

	modelWriter, err := zw.Create("3D/3dmodel.model")
	if err != nil {
		return err
	}
	return encodeThreeMFModel(modelWriter, scene)
}

const threeMFRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Target="/3D/3dmodel.model" Id="rel0" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/>
</Relationships>`

const threeMFContentTypes = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/>
</Types>`

type threeMFModel struct {
	XMLName  xml.Name          `xml:"model"`
	Unit     string            `xml:"unit,attr"`
	XMLNS    string            `xml:"xmlns,attr"`
	Resources threeMFResources `xml:"resources"`
	Build    threeMFBuild      `xml:"build"`
}

type threeMFResources struct {
	BaseMaterials *threeMFBaseMaterials `xml:"basematerials,omitempty"`
	Objects       []threeMFObject       `xml:"object"`
}

// threeMFBaseMaterials is a single 3MF material group (§6: "3MF preserves
// per-fragment colors"). Every distinct fragment color gets one <base> entry
// here; objects reference it by index via pid/pindex.
type threeMFBaseMaterials struct {
	ID    int            `xml:"id,attr"`
	Bases []threeMFBase  `xml:"base"`
}

type threeMFBase struct {
	Name         string `xml:"name,attr"`
	DisplayColor string `xml:"displaycolor,attr"`
}

const threeMFMaterialsID = 1

type threeMFObject struct {
	ID     int         `xml:"id,attr"`
	Type   string      `xml:"type,attr"`
	PID    int         `xml:"pid,attr,omitempty"`
	PIndex int         `xml:"pindex,attr,omitempty"`
	Mesh   threeMFMesh `xml:"mesh"`
}

type threeMFMesh struct {
	Vertices  []threeMFVertex  `xml:"vertices>vertex"`
	Triangles []threeMFTriangle `xml:"triangles>triangle"`
}

type threeMFVertex struct {
	X float64 `xml:"x,attr"`
	Y float64 `xml:"y,attr"`
	Z float64 `xml:"z,attr"`
}

type threeMFTriangle struct {
	V1 int `xml:"v1,attr"`
	V2 int `xml:"v2,attr"`
	V3 int `xml:"v3,attr"`
}

type threeMFBuild struct {
	Items []threeMFItem `xml:"item"`
}

type threeMFItem struct {
	ObjectID int `xml:"objectid,attr"`
}

func encodeThreeMFModel(w io.Writer, scene types.Scene) error {
	model := threeMFModel{Unit: "millimeter", XMLNS: "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"}

	materials := &threeMFBaseMaterials{ID: threeMFMaterialsID}
	materialIndex := make(map[types.RGB]int)

	// The basematerials resource group takes ID threeMFMaterialsID; mesh
	// object IDs start right after it so no 3MF resource ID collides.
	nextObjectID := threeMFMaterialsID + 1

	for _, frag := range scene.Fragments {
		obj := threeMFObject{ID: nextObjectID, Type: "model"}
		nextObjectID++

		if frag.Color != nil {
			idx, ok := materialIndex[*frag.Color]
			if !ok {
				idx = len(materials.Bases)
				materialIndex[*frag.Color] = idx
				materials.Bases = append(materials.Bases, threeMFBase{
					Name:         string(frag.Material),
					DisplayColor: threeMFColorHex(*frag.Color),
				})
			}
			obj.PID = threeMFMaterialsID
			obj.PIndex = idx
		}

		for _, v := range frag.Vertices {
			obj.Mesh.Vertices = append(obj.Mesh.Vertices, threeMFVertex{X: v.X, Y: v.Y, Z: v.Z})
		}
		for _, face := range frag.Faces {
			obj.Mesh.Triangles = append(obj.Mesh.Triangles, threeMFTriangle{V1: face[0], V2: face[1], V3: face[2]})
		}
		model.Resources.Objects = append(model.Resources.Objects, obj)
		model.Build.Items = append(model.Build.Items, threeMFItem{ObjectID: obj.ID})
	}

	if len(materials.Bases) > 0 {
		model.Resources.BaseMaterials = materials
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(model)
}

// threeMFColorHex formats an RGB as the 3MF displaycolor attribute: 8 hex
// digits, RGB plus a fully opaque alpha channel.
func threeMFColorHex(c types.RGB) string {
	return fmt.Sprintf("#%02X%02X%02XFF", c.R, c.G, c.B)
}
