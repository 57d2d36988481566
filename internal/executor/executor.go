// Package executor runs a batch of operations with a fixed number in
// flight at once, partitioning outcomes into successes and failures
// without letting one failure cancel its siblings.
package executor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency is the default number of operations allowed in
// flight at once.
const DefaultMaxConcurrency = 5

// Operation is a zero-argument unit of work returning a result or error.
type Operation func(ctx context.Context) (interface{}, error)

// Failure pairs an operation's index with the error it returned.
type Failure struct {
	Index int
	Err   error
}

// Result is the partitioned outcome of a Run call.
type Result struct {
	Successes []interface{}
	Failures  []Failure
}

// Executor runs operations with bounded concurrency via a weighted
// semaphore. It is safe to reuse across multiple Run calls until Shutdown
// is called; Shutdown may run while a Run is in progress, and after it no
// Run schedules any further operations.
type Executor struct {
	sem            *semaphore.Weighted
	maxConcurrency int64

	mu       sync.Mutex
	draining bool
}

// New builds an Executor with the given max concurrency. maxConcurrency
// <= 0 uses DefaultMaxConcurrency.
func New(maxConcurrency int) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	n := int64(maxConcurrency)
	return &Executor{sem: semaphore.NewWeighted(n), maxConcurrency: n}
}

// Run executes every operation with at most maxConcurrency in flight.
// Cancelling ctx aborts in-flight operations cooperatively (it is up to
// each Operation to respect ctx) and stops scheduling pending ones;
// operations that had not yet acquired a semaphore slot are skipped and
// do not appear in either Successes or Failures.
func (e *Executor) Run(ctx context.Context, ops []Operation) Result {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]interface{}, len(ops))
		errs    = make([]error, len(ops))
		ran     = make([]bool, len(ops))
	)

	for i, op := range ops {
		e.mu.Lock()
		draining := e.draining
		e.mu.Unlock()
		if draining {
			break
		}
		if err := e.sem.Acquire(ctx, 1); err != nil {
			// ctx canceled while waiting for a slot; stop scheduling.
			break
		}

		wg.Add(1)
		go func(idx int, op Operation) {
			defer wg.Done()
			defer e.sem.Release(1)

			val, err := op(ctx)

			mu.Lock()
			defer mu.Unlock()
			ran[idx] = true
			if err != nil {
				errs[idx] = err
			} else {
				results[idx] = val
			}
		}(i, op)
	}

	wg.Wait()

	out := Result{}
	for i := range ops {
		if !ran[i] {
			continue
		}
		if errs[i] != nil {
			out.Failures = append(out.Failures, Failure{Index: i, Err: errs[i]})
		} else {
			out.Successes = append(out.Successes, results[i])
		}
	}
	return out
}

// Shutdown stops Run from scheduling new operations, waits up to grace
// for in-flight operations to finish by attempting to acquire the full
// semaphore weight, then returns regardless of whether they finished.
func (e *Executor) Shutdown(grace time.Duration) {
	e.mu.Lock()
	e.draining = true
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := e.sem.Acquire(ctx, e.maxConcurrency); err == nil {
		e.sem.Release(e.maxConcurrency)
	}
}
