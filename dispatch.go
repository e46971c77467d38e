package converse

import (
	"context"
	"sync"
)

// Dispatcher posts work onto the single goroutine that owns view state.
// Dispatch must not block and may be called from any goroutine.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(fn func())

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Queue is an unbounded FIFO of work items consumed by one goroutine.
// It serves as the event loop for headless use and as the bridge into the
// Bubble Tea update loop.
type Queue struct {
	mu     sync.Mutex
	ops    []func()
	wake   chan struct{}
	closed bool
}

var _ Dispatcher = (*Queue)(nil)

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Dispatch appends fn. Work dispatched after Close is dropped.
func (q *Queue) Dispatch(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.ops = append(q.ops, fn)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Next blocks until a work item is available and returns it. It returns
// ctx.Err() when ctx is done and ErrQueueClosed after Close once drained.
func (q *Queue) Next(ctx context.Context) (func(), error) {
	for {
		q.mu.Lock()
		if len(q.ops) > 0 {
			fn := q.ops[0]
			q.ops[0] = nil
			q.ops = q.ops[1:]
			q.mu.Unlock()
			return fn, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, ErrQueueClosed
		}
		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of queued work items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Run executes work items in order until ctx is done or the queue is closed
// and drained.
func (q *Queue) Run(ctx context.Context) error {
	for {
		fn, err := q.Next(ctx)
		if err != nil {
			if err == ErrQueueClosed {
				return nil
			}
			return err
		}
		fn()
	}
}

// Close stops accepting work. Items already queued are still returned by Next.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
