package crawl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func batchTasks(n int) []itemTask {
	tasks := make([]itemTask, n)
	for i := range tasks {
		tasks[i] = itemTask{url: "https://example.com/" + string(rune('a'+i)), depth: 1}
	}
	return tasks
}

func TestRunBatchesBoundsConcurrency(t *testing.T) {
	tasks := batchTasks(4)
	position := make(map[string]int, len(tasks))
	for i, task := range tasks {
		position[task.url] = i
	}

	// Each task waits for its batch sibling before it may finish, so the
	// test can only complete if both members of a batch are in flight
	// together.
	gates := []chan struct{}{make(chan struct{}), make(chan struct{})}
	var arrivals [2]atomic.Int32

	var mu sync.Mutex
	active, peak := 0, 0

	runBatches(context.Background(), tasks, 2, func(_ context.Context, task itemTask) itemResult {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		batch := position[task.url] / 2
		if arrivals[batch].Add(1) == 2 {
			close(gates[batch])
		}
		<-gates[batch]

		mu.Lock()
		active--
		mu.Unlock()
		return itemResult{task: task, processed: true}
	})

	// Both members of each batch ran concurrently and no task from the
	// next batch joined them early.
	assert.Equal(t, 2, peak)
}

func TestRunBatchesIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	results := runBatches(context.Background(), batchTasks(4), 2, func(_ context.Context, task itemTask) itemResult {
		if task.url == "https://example.com/b" {
			return itemResult{task: task, err: boom}
		}
		return itemResult{task: task, processed: true}
	})

	assert.Len(t, results, 4)
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
		} else {
			assert.True(t, r.processed)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRunBatchesPreservesTaskOrder(t *testing.T) {
	tasks := batchTasks(5)
	results := runBatches(context.Background(), tasks, 2, func(_ context.Context, task itemTask) itemResult {
		return itemResult{task: task}
	})

	for i, r := range results {
		assert.Equal(t, tasks[i].url, r.task.url)
	}
}

func TestRunBatchesEmptyInput(t *testing.T) {
	results := runBatches(context.Background(), nil, 2, func(_ context.Context, task itemTask) itemResult {
		t.Fatal("executor must not be called")
		return itemResult{}
	})
	assert.Empty(t, results)
}
