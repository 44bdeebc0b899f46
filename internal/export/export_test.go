package export

import (
	"archive/zip"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

func triangle(z float64, mat types.Material, c types.RGB) types.MeshFragment {
	return types.MeshFragment{
		Vertices: []types.Vec3{{0, 0, z}, {1, 0, z}, {0, 1, z}},
		Faces:    []types.Face{{0, 1, 2}},
		Color:    &c,
		Material: mat,
	}
}

func TestWriteFileSTLTriangleCount(t *testing.T) {
	scene := types.Scene{Fragments: []types.MeshFragment{
		triangle(0, types.MaterialBase, types.RGB{R: 200, G: 200, B: 200}),
		triangle(1, types.MaterialWater, types.RGB{R: 50, G: 100, B: 220}),
	}}

	path := filepath.Join(t.TempDir(), "scene.stl")
	require.NoError(t, WriteFile(scene, FormatSTL, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var header [80]byte
	_, err = io.ReadFull(f, header[:])
	require.NoError(t, err)

	var triCount uint32
	require.NoError(t, binary.Read(f, binary.LittleEndian, &triCount))
	assert.Equal(t, uint32(2), triCount)
}

func TestWriteFileThreeMFPreservesPerFragmentColor(t *testing.T) {
	scene := types.Scene{Fragments: []types.MeshFragment{
		triangle(0, types.MaterialBase, types.RGB{R: 200, G: 200, B: 200}),
		triangle(1, types.MaterialWater, types.RGB{R: 50, G: 100, B: 220}),
	}}

	path := filepath.Join(t.TempDir(), "scene.3mf")
	require.NoError(t, WriteFile(scene, FormatThreeMF, path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var modelXML string
	for _, f := range zr.File {
		if f.Name != "3D/3dmodel.model" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		modelXML = string(b)
	}
	require.NotEmpty(t, modelXML, "3D/3dmodel.model must be present in the package")

	assert.Contains(t, modelXML, "basematerials")
	assert.Contains(t, modelXML, threeMFColorHex(types.RGB{R: 200, G: 200, B: 200}))
	assert.Contains(t, modelXML, threeMFColorHex(types.RGB{R: 50, G: 100, B: 220}))
	assert.Contains(t, modelXML, `pid="1"`)
}

func TestWriteFileRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.bad")
	err := WriteFile(types.Scene{}, Format("obj"), path)
	assert.Error(t, err)
}
