package elevation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/MeKo-Tech/terrainkit/internal/errs"
)

// CacheConfig configures the SQLite-backed memoizing cache.
type CacheConfig struct {
	// Path is the database file path. ":memory:" is valid for tests.
	Path string
	// Precision is the number of decimal digits lat/lon are rounded to
	// before forming a cache key. Higher precision means finer-grained
	// (less aggressive) memoization; §8's node-reuse grid is already
	// regular, so rounding to the grid's own resolution captures exact
	// repeats across overlapping stitched regions without false hits.
	Precision int
}

// DefaultCacheConfig rounds to 7 decimal degrees (~1cm at the equator),
// fine enough that only genuinely repeated queries collide.
func DefaultCacheConfig(path string) CacheConfig {
	return CacheConfig{Path: path, Precision: 7}
}

// Cache wraps a Source with a persistent SQLite memoization layer, the same
// role the teacher's internal/mbtiles.Writer plays for rendered tiles: cache
// at the callback boundary, never inside the sampling core itself.
type Cache struct {
	db        *sql.DB
	inner     Source
	precision int

	inflightMu sync.Mutex
	inflight   map[string]*call
}

type call struct {
	done chan struct{}
	val  float64
	err  error
}

// NewCache opens (or creates) the cache database and wraps inner.
func NewCache(inner Source, cfg CacheConfig) (*Cache, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: elevation cache path empty", errs.ErrInvalidInput)
	}
	if cfg.Precision <= 0 {
		cfg.Precision = 7
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open elevation cache: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 20000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("elevation cache pragma %q: %w", p, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS elevation_samples (
			key TEXT PRIMARY KEY,
			z   REAL NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("elevation cache schema: %w", err)
	}

	return &Cache{
		db:        db,
		inner:     inner,
		precision: cfg.Precision,
		inflight:  make(map[string]*call),
	}, nil
}

// Sample returns the cached elevation for (lat, lon), computing and storing
// it via the wrapped source on a miss. Concurrent callers for the same
// quantized key share one underlying call, mirroring the in-flight
// deduplication the teacher's FetchQueue does per tile coordinate (sync.Map
// of in-progress keys), adapted here to a plain mutex-guarded map since the
// cache has no separate worker pool of its own to coordinate with.
func (c *Cache) Sample(ctx context.Context, lat, lon float64) (float64, error) {
	key := quantize(lat, lon, c.precision)

	if v, ok, err := c.lookup(key); err != nil {
		return 0, err
	} else if ok {
		return v, nil
	}

	cl, owner := c.joinOrStart(key)
	if !owner {
		select {
		case <-cl.done:
			return cl.val, cl.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	v, err := c.inner.Sample(ctx, lat, lon)
	cl.val, cl.err = v, err
	close(cl.done)

	c.inflightMu.Lock()
	delete(c.inflight, key)
	c.inflightMu.Unlock()

	if err == nil {
		if storeErr := c.store(key, v); storeErr != nil {
			return v, fmt.Errorf("elevation cache store: %w", storeErr)
		}
	}
	return v, err
}

// ThreadSafe reports the wrapped source's thread safety: Sample only joins
// concurrent calls for the same key, so calls for different keys still reach
// the wrapped source concurrently.
func (c *Cache) ThreadSafe() bool { return c.inner.ThreadSafe() }

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) joinOrStart(key string) (*call, bool) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()

	if cl, ok := c.inflight[key]; ok {
		return cl, false
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	return cl, true
}

func (c *Cache) lookup(key string) (float64, bool, error) {
	var z float64
	err := c.db.QueryRow("SELECT z FROM elevation_samples WHERE key = ?", key).Scan(&z)
	switch {
	case err == sql.ErrNoRows:
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("elevation cache lookup: %w", err)
	default:
		return z, true, nil
	}
}

func (c *Cache) store(key string, z float64) error {
	_, err := c.db.Exec("INSERT OR REPLACE INTO elevation_samples (key, z) VALUES (?, ?)", key, z)
	return err
}

func quantize(lat, lon float64, precision int) string {
	return fmt.Sprintf("%.*f:%.*f", precision, lat, precision, lon)
}
