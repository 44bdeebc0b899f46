package elevation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/terrainkit/internal/errs"
)

func TestSyntheticDeterministic(t *testing.T) {
	s := NewSynthetic(DefaultSyntheticParams())
	a, err := s.Sample(context.Background(), 48.0, 11.0)
	require.NoError(t, err)
	b, err := s.Sample(context.Background(), 48.0, 11.0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, s.ThreadSafe())
}

func TestSyntheticVariesAcrossSeeds(t *testing.T) {
	p1 := DefaultSyntheticParams()
	p2 := DefaultSyntheticParams()
	p2.Seed = 99
	a, _ := NewSynthetic(p1).Sample(context.Background(), 48.01, 11.02)
	b, _ := NewSynthetic(p2).Sample(context.Background(), 48.01, 11.02)
	assert.NotEqual(t, a, b)
}

type countingSource struct {
	calls atomic.Int32
	z     float64
	delay time.Duration
}

func (c *countingSource) Sample(ctx context.Context, lat, lon float64) (float64, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.z, nil
}
func (c *countingSource) ThreadSafe() bool { return true }

func TestCacheMemoizesRepeatedQuery(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "elevation.sqlite")
	inner := &countingSource{z: 42}
	cache, err := NewCache(inner, DefaultCacheConfig(dbPath))
	require.NoError(t, err)
	defer cache.Close()

	for i := 0; i < 5; i++ {
		v, err := cache.Sample(context.Background(), 48.123456, 11.654321)
		require.NoError(t, err)
		assert.InDelta(t, 42.0, v, 1e-9)
	}

	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "elevation.sqlite")
	inner := &countingSource{z: 7}
	cache1, err := NewCache(inner, DefaultCacheConfig(dbPath))
	require.NoError(t, err)
	_, err = cache1.Sample(context.Background(), 48.5, 11.5)
	require.NoError(t, err)
	require.NoError(t, cache1.Close())

	failer := &countingSource{z: -1}
	cache2, err := NewCache(failer, DefaultCacheConfig(dbPath))
	require.NoError(t, err)
	defer cache2.Close()

	v, err := cache2.Sample(context.Background(), 48.5, 11.5)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, v, 1e-9)
	assert.Equal(t, int32(0), failer.calls.Load())
}

func TestCacheDedupsConcurrentInFlightQueries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "elevation.sqlite")
	inner := &countingSource{z: 3, delay: 30 * time.Millisecond}
	cache, err := NewCache(inner, DefaultCacheConfig(dbPath))
	require.NoError(t, err)
	defer cache.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Sample(context.Background(), 49.0, 12.0)
			assert.NoError(t, err)
			assert.InDelta(t, 3.0, v, 1e-9)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCacheRejectsEmptyPath(t *testing.T) {
	_, err := NewCache(&countingSource{}, CacheConfig{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}
