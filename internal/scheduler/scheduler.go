// Package scheduler defers structural table operations until the caller
// is no longer iterating shared state.
//
// Tasks run in FIFO order when the owner calls Flush, on the owner's
// goroutine. Tasks enqueued by a running task join the same flush, behind
// everything already queued.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
)

// Errors returned by the queue.
var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("scheduler queue full")

	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("scheduler closed")

	// ErrTaskPanic wraps a panic raised by a task.
	ErrTaskPanic = errors.New("task panicked")
)

// DefaultQueueSize is used when no size is configured.
const DefaultQueueSize = 256

// Task is one deferred operation.
type Task struct {
	// Name labels the task in logs.
	Name string
	Fn   func() error
}

// Stats holds queue counters.
type Stats struct {
	Enqueued  uint64
	Processed uint64
	Failed    uint64
	Panicked  uint64
	Dropped   uint64
	Pending   int
}

// Option configures a Queue.
type Option func(*Queue)

// WithQueueSize sets the queue capacity.
func WithQueueSize(size int) Option {
	return func(q *Queue) {
		if size > 0 {
			q.size = size
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(log logr.Logger) Option {
	return func(q *Queue) { q.log = log }
}

// WithNotify sets a function called, outside the lock, whenever a task is
// added to an empty queue. Presenters use it to schedule a flush.
func WithNotify(fn func()) Option {
	return func(q *Queue) { q.notify = fn }
}

// Queue is a bounded FIFO of deferred tasks.
type Queue struct {
	mu     sync.Mutex
	tasks  []Task
	size   int
	closed bool

	flushing atomic.Bool

	notify func()
	log    logr.Logger

	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

// New creates an empty queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		size: DefaultQueueSize,
		log:  logr.Discard(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.log = q.log.WithName("scheduler")
	return q
}

// Enqueue appends a task. It returns ErrQueueFull at capacity.
func (q *Queue) Enqueue(name string, fn func() error) error {
	if fn == nil {
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	if len(q.tasks) >= q.size {
		q.mu.Unlock()
		q.dropped.Add(1)
		q.log.Info("task dropped", "task", name, "size", q.size)
		return fmt.Errorf("%w: %s", ErrQueueFull, name)
	}
	wasEmpty := len(q.tasks) == 0
	q.tasks = append(q.tasks, Task{Name: name, Fn: fn})
	notify := q.notify
	q.mu.Unlock()

	q.enqueued.Add(1)
	if wasEmpty && notify != nil && !q.flushing.Load() {
		notify()
	}
	return nil
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Flush runs pending tasks in order until the queue is empty and returns
// the errors of failed tasks, joined. A nested Flush from inside a task is
// a no-op.
func (q *Queue) Flush() error {
	if !q.flushing.CompareAndSwap(false, true) {
		return nil
	}
	defer q.flushing.Store(false)

	var errs []error
	for {
		task, ok := q.pop()
		if !ok {
			break
		}
		q.processed.Add(1)
		if err := q.run(task); err != nil {
			q.failed.Add(1)
			q.log.Error(err, "deferred task failed", "task", task.Name)
			errs = append(errs, fmt.Errorf("%s: %w", task.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close drops pending tasks and rejects new ones.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.tasks = nil
}

// Stats returns a snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Panicked:  q.panicked.Load(),
		Dropped:   q.dropped.Load(),
		Pending:   q.Len(),
	}
}

func (q *Queue) pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return Task{}, false
	}
	task := q.tasks[0]
	q.tasks[0] = Task{}
	q.tasks = q.tasks[1:]
	return task, true
}

func (q *Queue) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.panicked.Add(1)
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return task.Fn()
}
