// Package parallel runs independent per-item work on a bounded pool of
// goroutines.
//
// Results always come back in input order, so callers get the same output
// whether the work ran on one goroutine or many. Small inputs run inline;
// the pool only fans out once the work is large enough to amortise the
// goroutine overhead.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// DefaultThreshold is the number of units of work (for example rows times
// fields) below which Map runs sequentially.
const DefaultThreshold = 1000

// WorkerPool bounds how many goroutines Map may use. A pool is cheap to
// create and may be shared between concurrent Map calls.
type WorkerPool struct {
	numWorkers int
	threshold  int
}

// NewWorkerPool creates a pool of numWorkers goroutines. A non-positive
// count selects runtime.NumCPU().
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{numWorkers: numWorkers, threshold: DefaultThreshold}
}

// WithThreshold returns a copy of the pool that fans out once the reported
// work reaches threshold. Zero always fans out.
func (wp *WorkerPool) WithThreshold(threshold int) *WorkerPool {
	cp := *wp
	cp.threshold = max(threshold, 0)
	return &cp
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int { return wp.numWorkers }

// ShouldParallelize reports whether work units justify fanning out.
func (wp *WorkerPool) ShouldParallelize(work int) bool {
	return wp.numWorkers > 1 && work >= wp.threshold
}

// Map applies worker to every item and returns the results in input order.
// work is the caller's estimate of the total cost; below the pool threshold
// the items are processed inline. Items not yet started when ctx is
// cancelled are skipped and keep the zero value of R; Map then returns
// ctx.Err().
func Map[T, R any](ctx context.Context, wp *WorkerPool, items []T, work int, worker func(int, T) R) ([]R, error) {
	if len(items) == 0 {
		return nil, ctx.Err()
	}
	results := make([]R, len(items))

	if !wp.ShouldParallelize(work) || len(items) == 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results[i] = worker(i, item)
		}
		return results, nil
	}

	itemCh := make(chan int)
	var wg sync.WaitGroup
	for range min(wp.numWorkers, len(items)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range itemCh {
				// Each index is written by exactly one goroutine.
				results[i] = worker(i, items[i])
			}
		}()
	}

feed:
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break feed
		case itemCh <- i:
		}
	}
	close(itemCh)
	wg.Wait()

	return results, ctx.Err()
}
