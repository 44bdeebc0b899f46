package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/terrainkit/internal/types"
)

func cube(minX, minY, minZ, size float64, mat types.Material) types.MeshFragment {
	return types.MeshFragment{
		Vertices: []types.Vec3{
			{minX, minY, minZ}, {minX + size, minY, minZ},
			{minX + size, minY + size, minZ}, {minX, minY + size, minZ},
			{minX, minY, minZ + size}, {minX + size, minY, minZ + size},
			{minX + size, minY + size, minZ + size}, {minX, minY + size, minZ + size},
		},
		Faces:    []types.Face{{0, 1, 2}},
		Material: mat,
	}
}

func TestAssembleLiftsMinZToZero(t *testing.T) {
	frag := cube(0, 0, 50, 100, types.MaterialBase)
	s := Assemble([]types.MeshFragment{frag}, Params{ModelSizeMM: 100})

	min, _, ok := s.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 0.0, min.Z, 1e-9)
}

func TestAssembleScalesToModelSize(t *testing.T) {
	frag := cube(0, 0, 0, 1000, types.MaterialBase)
	s := Assemble([]types.MeshFragment{frag}, Params{ModelSizeMM: 100})

	min, max, ok := s.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 100.0, max.X-min.X, 1e-6)
	assert.InDelta(t, 100.0, max.Y-min.Y, 1e-6)
}

func TestAssembleFillsMissingColor(t *testing.T) {
	frag := cube(0, 0, 0, 10, types.MaterialWater)
	s := Assemble([]types.MeshFragment{frag}, Params{ModelSizeMM: 50})
	require.Len(t, s.Fragments, 1)
	require.NotNil(t, s.Fragments[0].Color)
	assert.Equal(t, types.RGB{R: 0, G: 100, B: 255}, *s.Fragments[0].Color)
}

func TestAssembleEmptyScene(t *testing.T) {
	s := Assemble(nil, Params{ModelSizeMM: 100})
	assert.Empty(t, s.Fragments)
}
