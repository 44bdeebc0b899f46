// Package worker provides a generic parallel-task pool, generalized from the
// teacher's tile-generation pool into a type-parameterized shape so every
// pipeline stage that processes independent features concurrently (§5:
// buildings, roads, water, green, POI each own a disjoint output slice) can
// reuse the same worker/progress machinery the teacher built for tiles.
package worker

import (
	"context"
	"sync"
	"time"
)

// Result is the outcome of running one task through Pool.Run.
type Result[T, R any] struct {
	Task    T
	Value   R
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the pool.
type Config[T, R any] struct {
	Workers    int
	Fn         func(ctx context.Context, task T) (R, error)
	OnProgress ProgressFunc
}

// Pool runs Fn over a batch of tasks with bounded concurrency.
type Pool[T, R any] struct {
	workers    int
	fn         func(ctx context.Context, task T) (R, error)
	onProgress ProgressFunc
}

// New creates a pool from cfg. Workers <= 0 is treated as 1.
func New[T, R any](cfg Config[T, R]) *Pool[T, R] {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, fn: cfg.Fn, onProgress: cfg.OnProgress}
}

// Run executes every task and returns results in no particular order;
// callers that need input-stable ordering (§5) sort by a stable key derived
// from Task afterward.
func (p *Pool[T, R]) Run(ctx context.Context, tasks []T) []Result[T, R] {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan T, len(tasks))
	resultCh := make(chan Result[T, R], len(tasks))

	var completed, failed int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := make([]Result[T, R], 0, len(tasks))
	done := make(chan struct{})
	go func() {
		for result := range resultCh {
			results = append(results, result)
			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()
			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

func (p *Pool[T, R]) worker(ctx context.Context, tasks <-chan T, results chan<- Result[T, R]) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			var zero R
			results <- Result[T, R]{Task: task, Value: zero, Err: ctx.Err()}
			continue
		default:
		}

		start := time.Now()
		value, err := p.fn(ctx, task)
		results <- Result[T, R]{Task: task, Value: value, Err: err, Elapsed: time.Since(start)}
	}
}
