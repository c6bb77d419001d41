package crawl

import (
	"context"
	"sync"
)

// DefaultBatchSize is how many follow-up tasks run concurrently. Batches
// execute sequentially so concurrent session use stays bounded by the
// session pool cap.
const DefaultBatchSize = 2

// itemTask is one follow-up extraction unit of work, keyed by URL and
// depth.
type itemTask struct {
	url   string
	depth int
}

// itemResult is the settled outcome of one task. A failed task sets err
// and leaves the rest zero; siblings are never cancelled by it.
type itemResult struct {
	task      itemTask
	processed bool
	isNew     bool
	nextLinks []string
	err       error
}

// runBatches executes tasks in fixed-size batches. Within a batch tasks
// run concurrently with isolated failures; results are collected in task
// order.
func runBatches(
	ctx context.Context,
	tasks []itemTask,
	batchSize int,
	exec func(ctx context.Context, task itemTask) itemResult,
) []itemResult {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	results := make([]itemResult, len(tasks))

	for start := 0; start < len(tasks); start += batchSize {
		end := start + batchSize
		if end > len(tasks) {
			end = len(tasks)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = exec(ctx, tasks[idx])
			}(i)
		}
		wg.Wait()
	}

	return results
}
