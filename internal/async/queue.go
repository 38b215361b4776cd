// Package async provides a bounded FIFO worker pool for fire-and-forget
// tasks whose completion can be awaited as a whole.
package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Task is a unit of work. Returned errors and panics are logged by the
// queue and never reach the submitter.
type Task func() error

// Queue runs tasks on at most Concurrency goroutines. Tasks start in the
// order they were added.
type Queue struct {
	limit  int
	logger *slog.Logger

	mu      sync.Mutex
	pending []Task
	active  int
	// drain is closed when the queue next becomes idle; nil until someone
	// waits during a busy period.
	drain chan struct{}
}

var idle = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// New returns a Queue allowing concurrency simultaneous tasks. Values below
// one are treated as one.
func New(concurrency int) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{
		limit:  concurrency,
		logger: slog.Default().With("component", "async-queue"),
	}
}

// AddTasks appends tasks and starts workers up to the concurrency limit.
// It is safe to call from inside a running task.
func (q *Queue) AddTasks(tasks ...Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, tasks...)
	for q.active < q.limit && len(q.pending) > 0 {
		next := q.popLocked()
		q.active++
		go q.work(next)
	}
}

// Done returns a channel closed once no task is pending or running. While
// the queue is idle the returned channel is already closed; callers during
// the same busy period share one channel.
func (q *Queue) Done() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == 0 && len(q.pending) == 0 {
		return idle
	}
	if q.drain == nil {
		q.drain = make(chan struct{})
	}
	return q.drain
}

// Wait blocks until the queue drains or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	select {
	case <-q.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of tasks waiting for a worker.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// work runs task, then keeps pulling pending tasks until none are left.
func (q *Queue) work(task Task) {
	for {
		q.run(task)

		q.mu.Lock()
		if len(q.pending) > 0 {
			task = q.popLocked()
			q.mu.Unlock()
			continue
		}
		q.active--
		if q.active == 0 && q.drain != nil {
			close(q.drain)
			q.drain = nil
		}
		q.mu.Unlock()
		return
	}
}

func (q *Queue) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", "panic", fmt.Sprint(r))
		}
	}()
	if err := task(); err != nil {
		q.logger.Error("task failed", "error", err)
	}
}

func (q *Queue) popLocked() Task {
	next := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return next
}
