package buildings

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/terrainkit/internal/coordframe"
	"github.com/MeKo-Tech/terrainkit/internal/heightfield"
	"github.com/MeKo-Tech/terrainkit/internal/provider"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

type constSampler struct{ z float64 }

func (s constSampler) Sample(ctx context.Context, lat, lon float64) (float64, error) {
	return s.z, nil
}
func (s constSampler) ThreadSafe() bool { return true }

func testProvider(t *testing.T) *provider.Provider {
	t.Helper()
	frame := coordframe.New(types.BoundingBox{MinLat: 48, MinLon: 11, MaxLat: 48.01, MaxLon: 11.01})
	f, err := heightfield.Build(context.Background(), frame, -200, -200, 200, 200, constSampler{z: 50}, heightfield.Params{Resolution: 60, ZScale: 1})
	require.NoError(t, err)
	return provider.New(f)
}

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func TestProcessRestsAboveGround(t *testing.T) {
	prov := testProvider(t)
	levels := 3.0
	building := types.PolygonFeature{ID: "b1", Geometry: square(-10, -10, 10, 10), LevelsTag: &levels}

	frags, warnings := Process([]types.PolygonFeature{building}, prov, DefaultParams())
	assert.Empty(t, warnings)
	require.Len(t, frags, 1)

	for _, v := range frags[0].Vertices {
		g := prov.Z(v.X, v.Y)
		assert.GreaterOrEqual(t, v.Z, g-0.05)
	}
}

func TestProcessDropsDegenerate(t *testing.T) {
	prov := testProvider(t)
	building := types.PolygonFeature{ID: "b-degenerate", Geometry: orb.Polygon{{{0, 0}, {0, 0}, {0, 0}}}}

	frags, warnings := Process([]types.PolygonFeature{building}, prov, DefaultParams())
	assert.Empty(t, frags)
	require.Len(t, warnings, 1)
}

func TestResolveHeightUsesExplicitMeters(t *testing.T) {
	h := 12.5
	b := types.PolygonFeature{HeightM: &h}
	got := resolveHeight(b, DefaultParams())
	assert.InDelta(t, 12.5, got, 1e-9)
}

func TestResolveHeightClampsToMin(t *testing.T) {
	levels := 0.1 // would resolve to 0.3m, below the 3m default minimum
	b := types.PolygonFeature{LevelsTag: &levels}
	got := resolveHeight(b, DefaultParams())
	assert.InDelta(t, DefaultParams().MinHeightM, got, 1e-9)
}
