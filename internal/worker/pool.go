// Package worker runs a function over a slice of inputs on a fixed number
// of goroutines.
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Task is the outcome for one input.
type Task[T any, R any] struct {
	Input  T
	Result R
	Err    error
	// Done is false for inputs skipped because the context was cancelled.
	Done bool
}

type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// ProgressFunc is called after every finished task. Calls are serialised.
type ProgressFunc func(done, total int)

type Pool[T any, R any] struct {
	workers  int
	process  ProcessFunc[T, R]
	progress ProgressFunc
	label    func(T) string
}

func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	return &Pool[T, R]{workers: max(workers, 1), process: fn}
}

// OnProgress registers fn as the progress callback.
func (p *Pool[T, R]) OnProgress(fn ProgressFunc) *Pool[T, R] {
	p.progress = fn
	return p
}

// Label names inputs in failure logs.
func (p *Pool[T, R]) Label(fn func(T) string) *Pool[T, R] {
	p.label = fn
	return p
}

// Execute returns one Task per input, in input order. Cancellation stops
// new tasks from starting; running tasks finish.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Task[T, R] {
	tasks := make([]Task[T, R], len(inputs))
	for i, in := range inputs {
		tasks[i].Input = in
	}

	next := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
	)
	run := func() {
		defer wg.Done()
		for idx := range next {
			t := &tasks[idx]
			t.Result, t.Err = p.process(ctx, t.Input)
			t.Done = true
			if t.Err != nil {
				ev := log.Error().Err(t.Err).Int("index", idx)
				if p.label != nil {
					ev = ev.Str("input", p.label(t.Input))
				}
				ev.Msg("Task failed")
			}

			mu.Lock()
			finished++
			if p.progress != nil {
				p.progress(finished, len(tasks))
			}
			mu.Unlock()
		}
	}
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go run()
	}

	feed(ctx, next, len(tasks))
	wg.Wait()

	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Int("done", finished).Int("total", len(tasks)).Msg("Worker pool cancelled")
	}
	return tasks
}

// feed sends 0..n-1 on next until ctx is cancelled, then closes it.
func feed(ctx context.Context, next chan<- int, n int) {
	defer close(next)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case next <- i:
		}
	}
}

// Batch splits items into consecutive chunks of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	batchSize = max(batchSize, 1)
	batches := make([][]T, 0, (len(items)+batchSize-1)/batchSize)
	for start := 0; start < len(items); start += batchSize {
		batches = append(batches, items[start:min(start+batchSize, len(items))])
	}
	return batches
}
