package heightfield

import (
	"context"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/terrainkit/internal/coordframe"
	"github.com/MeKo-Tech/terrainkit/internal/types"
)

type constSampler struct {
	z          float64
	threadSafe bool
}

func (s constSampler) Sample(ctx context.Context, lat, lon float64) (float64, error) {
	return s.z, nil
}
func (s constSampler) ThreadSafe() bool { return s.threadSafe }

type rampSampler struct{ frame coordframe.Frame }

func (s rampSampler) Sample(ctx context.Context, lat, lon float64) (float64, error) {
	x, _ := s.frame.GeographicToLocal(lat, lon)
	return x / 100.0, nil
}
func (s rampSampler) ThreadSafe() bool { return true }

func testFrame() coordframe.Frame {
	return coordframe.New(types.BoundingBox{MinLat: 48.0, MinLon: 11.0, MaxLat: 48.01, MaxLon: 11.01})
}

func TestBuildFlatRegion(t *testing.T) {
	frame := testFrame()
	f, err := Build(context.Background(), frame, -500, -500, 500, 500, constSampler{z: 100, threadSafe: false}, Params{Resolution: 60, ZScale: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.Nx, 2)
	assert.GreaterOrEqual(t, f.Ny, 2)
	for _, z := range f.Z {
		assert.InDelta(t, 100.0, z, 1e-9)
	}
}

func TestBuildConcurrentMatchesSerial(t *testing.T) {
	frame := testFrame()
	serial, err := Build(context.Background(), frame, -500, -500, 500, 500, constSampler{z: 42, threadSafe: false}, Params{Resolution: 60, ZScale: 1})
	require.NoError(t, err)
	concurrent, err := Build(context.Background(), frame, -500, -500, 500, 500, constSampler{z: 42, threadSafe: true}, Params{Resolution: 60, ZScale: 1})
	require.NoError(t, err)
	assert.Equal(t, serial.Z, concurrent.Z)
}

func TestBuildRejectsDegenerateExtent(t *testing.T) {
	frame := testFrame()
	_, err := Build(context.Background(), frame, 10, 10, 10, 10, constSampler{z: 1, threadSafe: true}, Params{Resolution: 60})
	assert.Error(t, err)
}

func TestFlattenSingleCellMatchesQuantileOfFourCorners(t *testing.T) {
	frame := testFrame()
	f, err := Build(context.Background(), frame, 0, 0, 100, 100, rampSampler{frame: frame}, Params{Resolution: 60, ZScale: 1})
	require.NoError(t, err)
	require.Equal(t, 60, f.Nx)
	require.Equal(t, 60, f.Ny)

	// One quad cell: nodes (0,0)-(1,1) in local coords (0,0)-(100/59,100/59).
	corners := []int{f.Index(0, 0), f.Index(1, 0), f.Index(0, 1), f.Index(1, 1)}
	var before []float64
	for _, idx := range corners {
		before = append(before, f.Z[idx])
	}

	poly := orb.Polygon{orb.Ring{{0.2, 0.2}, {1.5, 0.2}, {1.5, 1.5}, {0.2, 1.5}, {0.2, 0.2}}}
	f.Flatten([]orb.Polygon{poly}, 0.5)

	want := median(before)
	for _, idx := range corners {
		assert.InDelta(t, want, f.Z[idx], 1e-9)
	}
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func TestDepressSnapshotsOriginalOnce(t *testing.T) {
	frame := testFrame()
	f, err := Build(context.Background(), frame, -100, -100, 100, 100, constSampler{z: 10, threadSafe: true}, Params{Resolution: 10, ZScale: 1})
	require.NoError(t, err)

	poly := orb.Polygon{orb.Ring{{-25, -25}, {25, -25}, {25, 25}, {-25, 25}, {-25, -25}}}
	f.Depress([]orb.Polygon{poly}, 2, 0.1)

	require.NotNil(t, f.OriginalZ)
	for _, z := range f.OriginalZ {
		assert.InDelta(t, 10.0, z, 1e-9)
	}

	cells := f.CellsCovering(poly)
	require.NotEmpty(t, cells)
	nodes := f.nodesOfCells(cells)
	for _, idx := range nodes {
		assert.InDelta(t, 8.0, f.Z[idx], 1e-9)
	}

	// Second depress must not reset OriginalZ even though Z has changed.
	snapshotBefore := append([]float64(nil), f.OriginalZ...)
	f.Depress([]orb.Polygon{poly}, 1, 0.1)
	assert.Equal(t, snapshotBefore, f.OriginalZ)
}

func TestSmoothPreservesConstantField(t *testing.T) {
	frame := testFrame()
	f, err := Build(context.Background(), frame, -100, -100, 100, 100, constSampler{z: 5, threadSafe: true}, Params{Resolution: 20, ZScale: 1, SmoothingSig: 2})
	require.NoError(t, err)
	for _, z := range f.Z {
		assert.InDelta(t, 5.0, z, 1e-6)
	}
}

func TestEmptyHeightFieldWhenNoValidSamples(t *testing.T) {
	frame := testFrame()
	_, err := Build(context.Background(), frame, -10, -10, 10, 10, failingSampler{}, Params{Resolution: 60})
	assert.Error(t, err)
}

type failingSampler struct{}

func (failingSampler) Sample(ctx context.Context, lat, lon float64) (float64, error) {
	return 0, assertErr
}
func (failingSampler) ThreadSafe() bool { return false }

var assertErr = assertError("sample failed")

type assertError string

func (e assertError) Error() string { return string(e) }
