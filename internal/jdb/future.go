package jdb

import (
	"context"
	"sync"
)

// Future is a value that becomes available exactly once, either resolved or
// rejected. It is safe for concurrent use.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T) bool {
	ok := false
	f.once.Do(func() {
		f.val = v
		close(f.done)
		ok = true
	})
	return ok
}

func (f *Future[T]) reject(err error) bool {
	ok := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		ok = true
	})
	return ok
}

// Done is closed once the future is resolved or rejected.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has completed, without blocking.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx is done. A ctx error only
// abandons the wait; it does not affect the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
