package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// task is a minimal stand-in for whatever a pipeline stage feeds the pool
// (a building, a road segment, a POI...). Tests only need an identifier.
type task struct {
	id    string
	delay time.Duration
	fail  bool
}

func mockFn(callCount *atomic.Int32) func(ctx context.Context, t task) (string, error) {
	return func(ctx context.Context, t task) (string, error) {
		callCount.Add(1)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(t.delay):
		}

		if t.fail {
			return "", errors.New("simulated failure")
		}

		return "/out/" + t.id + ".obj", nil
	}
}

func TestPool_BasicExecution(t *testing.T) {
	var callCount atomic.Int32

	pool := New(Config[task, string]{
		Workers: 2,
		Fn:      mockFn(&callCount),
	})

	tasks := []task{
		{id: "a", delay: 10 * time.Millisecond},
		{id: "b", delay: 10 * time.Millisecond},
		{id: "c", delay: 10 * time.Millisecond},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for %s: %v", r.Task.id, r.Err)
		}
		if r.Value == "" {
			t.Errorf("Expected value for %s, got empty", r.Task.id)
		}
	}

	if callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d fn calls, got %d", len(tasks), callCount.Load())
	}
}

func TestPool_Parallelism(t *testing.T) {
	var callCount atomic.Int32

	pool := New(Config[task, string]{
		Workers: 4,
		Fn:      mockFn(&callCount),
	})

	tasks := make([]task, 8)
	for i := range tasks {
		tasks[i] = task{id: fmt.Sprintf("t%d", i), delay: 50 * time.Millisecond}
	}

	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// With 4 workers and 8 tasks at 50ms each, should take ~100ms (2 batches).
	maxExpected := 200 * time.Millisecond
	if elapsed > maxExpected {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	t.Logf("Processed %d tasks with %d workers in %v", len(tasks), 4, elapsed)
}

func TestPool_ErrorHandling(t *testing.T) {
	var callCount atomic.Int32

	pool := New(Config[task, string]{
		Workers: 2,
		Fn:      mockFn(&callCount),
	})

	tasks := []task{
		{id: "a", delay: 10 * time.Millisecond},
		{id: "b", delay: 10 * time.Millisecond, fail: true},
		{id: "c", delay: 10 * time.Millisecond},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.id != "b" {
				t.Errorf("Unexpected failure for %s", r.Task.id)
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
}

func TestPool_Cancellation(t *testing.T) {
	var callCount atomic.Int32

	pool := New(Config[task, string]{
		Workers: 2,
		Fn:      mockFn(&callCount),
	})

	tasks := make([]task, 10)
	for i := range tasks {
		tasks[i] = task{id: fmt.Sprintf("t%d", i), delay: 100 * time.Millisecond}
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, tasks)
	elapsed := time.Since(start)

	if elapsed > 200*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}

	var cancelledCount int
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelledCount++
		}
	}

	t.Logf("Completed with %d results (%d cancelled) in %v", len(results), cancelledCount, elapsed)
}

func TestPool_ProgressCallback(t *testing.T) {
	var callCount atomic.Int32
	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config[task, string]{
		Workers: 2,
		Fn:      mockFn(&callCount),
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	tasks := []task{
		{id: "a", delay: 10 * time.Millisecond},
		{id: "b", delay: 10 * time.Millisecond},
		{id: "c", delay: 10 * time.Millisecond},
	}

	pool.Run(context.Background(), tasks)

	if progressCalls.Load() == 0 {
		t.Error("Expected progress callbacks, got none")
	}

	if lastCompleted != len(tasks) {
		t.Errorf("Expected lastCompleted=%d, got %d", len(tasks), lastCompleted)
	}
	if lastTotal != len(tasks) {
		t.Errorf("Expected lastTotal=%d, got %d", len(tasks), lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	var callCount atomic.Int32

	pool := New(Config[task, string]{
		Workers: 2,
		Fn:      mockFn(&callCount),
	})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}

	if callCount.Load() != 0 {
		t.Errorf("Expected 0 fn calls for empty tasks, got %d", callCount.Load())
	}
}

func TestPool_SingleWorker(t *testing.T) {
	var callCount atomic.Int32

	pool := New(Config[task, string]{
		Workers: 1,
		Fn:      mockFn(&callCount),
	})

	tasks := []task{
		{id: "only", delay: 10 * time.Millisecond},
	}

	results := pool.Run(context.Background(), tasks)

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	if results[0].Value != "/out/only.obj" {
		t.Errorf("Expected value /out/only.obj, got %s", results[0].Value)
	}
}
