// Package parallel provides a small worker pool used to dispatch
// index-addressable refinements concurrently. Tables's crefine/lrefine
// operations are exposed as NumRefinements()/Refine(i) precisely so a
// caller can fan them out across workers instead of looping serially;
// this package is that fan-out, not a general concurrency framework.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// WorkerPool runs a fixed number of goroutines pulling tasks off a
// shared channel. It exists to dispatch a batch of refinement indices
// concurrently and wait for the batch to finish, not to host
// long-lived background work.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a new worker pool with the specified number of
// workers. If maxWorkers is 0 or negative, it defaults to the number of
// CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit submits a task to the worker pool for execution. If the pool
// is full, this call blocks until a worker becomes available.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown gracefully shuts down the worker pool, waiting for all
// currently executing tasks to complete.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		close(wp.taskChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shutdown")

// Refiner is the subset of a subdomain's indexable-refinement contract
// (spec.md's num_refinements()/refine(i)) that RefineAll needs: an
// index count and a per-index refine step returning whether it narrowed
// something, plus any error.
type Refiner interface {
	NumRefinements() int
	Refine(i int) (bool, error)
}

// RefineAll dispatches every refinement index of r across the pool and
// waits for all of them to finish. It reports whether any refinement
// narrowed something and the first error encountered, if any.
//
// Refine(i) must be safe to call concurrently with other indices of the
// same call — true for Tables, whose crefine/lrefine operations each
// only read and Tell into disjoint or idempotently-converging targets,
// per spec.md's framing of refinements as "index-addressable,
// parallel-ready narrowing".
func (wp *WorkerPool) RefineAll(ctx context.Context, r Refiner) (bool, error) {
	n := r.NumRefinements()
	if n == 0 {
		return false, nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var anyChanged bool
	var firstErr error

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			changed, err := r.Refine(i)
			mu.Lock()
			if changed {
				anyChanged = true
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	return anyChanged, firstErr
}
