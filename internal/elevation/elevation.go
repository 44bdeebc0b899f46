// Package elevation provides elevation-sampling callbacks that satisfy
// heightfield.Sampler (§6): a deterministic synthetic generator for tests
// and demos, and a SQLite-backed memoizing cache wrapper, mirroring the
// teacher's internal/datasource package wrapping go-overpass with a fetch
// queue and a persistent cache (internal/mbtiles).
package elevation

import "context"

// Source is the elevation-sampling abstraction this package's adapters
// implement. It is a separate interface with the same method set as
// heightfield.Sampler, so any Source also satisfies heightfield.Sampler
// without this package importing internal/heightfield.
type Source interface {
	Sample(ctx context.Context, lat, lon float64) (float64, error)
	ThreadSafe() bool
}
