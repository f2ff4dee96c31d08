// Package loop implements the single-threaded cooperative scheduler that all
// bindings, sessions and listeners run on. Work that must block (session
// acquisition, resource construction) runs on its own goroutine and posts its
// continuation back to the loop.
package loop

import (
	"context"
	"sync"
)

// Executor runs closures on the owning loop, in the order they were posted.
type Executor interface {
	Post(fn func())
}

// Loop is an unbounded FIFO of closures. Post never blocks.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post queues fn.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

// Len returns the number of queued closures.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Drain runs everything queued so far, including closures posted while
// draining, and returns how many ran. It must be called from the loop's own
// goroutine.
func (l *Loop) Drain() int {
	n := 0
	for {
		batch := l.take()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Wait blocks until at least one closure is queued or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	for {
		if l.Len() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Pump hands queued closures to deliver, one at a time and in order, until
// ctx is done. deliver is expected to forward them to another single-threaded
// runtime (a bubbletea program for instance).
//
// A batch taken off the queue is always delivered in full, even when ctx is
// cancelled halfway through it. Closures posted after that stay queued for
// Drain.
func (l *Loop) Pump(ctx context.Context, deliver func(fn func())) error {
	for {
		if err := l.Wait(ctx); err != nil {
			return err
		}
		for _, fn := range l.take() {
			deliver(fn)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Run executes queued closures on the calling goroutine until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	return l.Pump(ctx, func(fn func()) { fn() })
}

// Async runs work on its own goroutine and delivers the result to done
// through ex.
func Async[T any](ex Executor, work func() (T, error), done func(T, error)) {
	go func() {
		v, err := work()
		ex.Post(func() { done(v, err) })
	}()
}

// Call runs fn on the loop behind ex and waits for its result.
func Call[T any](ctx context.Context, ex Executor, fn func() T) (T, error) {
	result := make(chan T, 1)
	ex.Post(func() { result <- fn() })

	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
