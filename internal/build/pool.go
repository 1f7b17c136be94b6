package build

import (
	"context"
	"sync"
)

// parallel applies fn to every item using up to workers goroutines and
// returns the results in item order. Items not started before ctx is done
// are skipped and keep their zero result.
func parallel[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	workers = max(1, min(workers, len(items)))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(ctx, items[i])
			}
		}()
	}

feed:
	for i := range items {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return results
}
