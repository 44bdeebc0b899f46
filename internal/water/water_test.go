package water

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

func TestWaterSurfaceNeverExceedsOriginalGround(t *testing.T) {
	frame := coordframe.New(types.BoundingBox{MinLat: 48, MinLon: 11, MaxLat: 48.01, MaxLon: 11.01})
	f, err := heightfield.Build(context.Background(), frame, -200, -200, 200, 200, constSampler{z: 10}, heightfield.Params{Resolution: 60, ZScale: 1})
	require.NoError(t, err)

	poly := orb.Polygon{{{-50, -50}, {50, -50}, {50, 50}, {-50, 50}, {-50, -50}}}
	f.Depress([]orb.Polygon{poly}, 2, 0.1)

	prov := provider.New(f)
	origProv := provider.NewOriginal(f)
	extent := orb.Bound{Min: orb.Point{-200, -200}, Max: orb.Point{200, 200}}

	feature := types.PolygonFeature{ID: "lake", Geometry: poly}
	frags, warnings := Process([]types.PolygonFeature{feature}, prov, origProv, extent, Params{ThicknessM: 0.5, ProtrusionM: 5})
	assert.Empty(t, warnings)
	require.Len(t, frags, 1)

	min, max, ok := frags[0].Bounds()
	require.True(t, ok)
	assert.LessOrEqual(t, max.Z, 10.0-0.02+1e-6)
	assert.LessOrEqual(t, min.Z, max.Z)
}

func TestWaterOutsideExtentDropped(t *testing.T) {
	frame := coordframe.New(types.BoundingBox{MinLat: 48, MinLon: 11, MaxLat: 48.01, MaxLon: 11.01})
	f, err := heightfield.Build(context.Background(), frame, -200, -200, 200, 200, constSampler{z: 10}, heightfield.Params{Resolution: 30, ZScale: 1})
	require.NoError(t, err)

	prov := provider.New(f)
	origProv := provider.NewOriginal(f)
	extent := orb.Bound{Min: orb.Point{-200, -200}, Max: orb.Point{200, 200}}

	poly := orb.Polygon{{{1000, 1000}, {1100, 1000}, {1100, 1100}, {1000, 1100}, {1000, 1000}}}
	feature := types.PolygonFeature{ID: "far-lake", Geometry: poly}
	frags, warnings := Process([]types.PolygonFeature{feature}, prov, origProv, extent, DefaultParams())
	assert.Empty(t, frags)
	require.Len(t, warnings, 1)
}
