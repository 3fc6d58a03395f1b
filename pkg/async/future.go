// Package async bridges a running computation to observable, UI-friendly state.
//
// A Future is an already-started computation. A Cell watches one Future and
// exposes its status as fields that observers can subscribe to: every observer
// gets the current snapshot when it attaches and one more batch when the
// computation settles.
package async

import (
	"context"
	"fmt"
)

// Outcome is a consistent snapshot of a computation's state.
// Value is meaningful only for StatusRanToCompletion and Err only for
// StatusFaulted.
type Outcome[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Future is a computation that has already been started.
type Future[T any] struct {
	done    chan struct{}
	cancel  context.CancelFunc
	outcome Outcome[T]
}

// Go starts fn on its own goroutine and returns its future. fn receives a
// child of ctx that is canceled by Future.Cancel.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer cancel()

		var (
			v   T
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic in fetch: %v", r)
				}
			}()
			v, err = fn(ctx)
		}()

		f.settle(v, err, ctx.Err())
	}()

	return f
}

// Resolved returns a future that already completed with v.
func Resolved[T any](v T) *Future[T] {
	return settled(Outcome[T]{Status: StatusRanToCompletion, Value: v})
}

// Rejected returns a future that already faulted with err.
func Rejected[T any](err error) *Future[T] {
	return settled(Outcome[T]{Status: StatusFaulted, Err: err})
}

// Aborted returns a future that was already canceled.
func Aborted[T any]() *Future[T] {
	return settled(Outcome[T]{Status: StatusCanceled})
}

func settled[T any](o Outcome[T]) *Future[T] {
	f := &Future[T]{
		done:    make(chan struct{}),
		cancel:  func() {},
		outcome: o,
	}
	close(f.done)
	return f
}

func (f *Future[T]) settle(v T, err, ctxErr error) {
	switch {
	case err == nil:
		f.outcome = Outcome[T]{Status: StatusRanToCompletion, Value: v}
	case isCancellation(err) || isCancellation(ctxErr):
		f.outcome = Outcome[T]{Status: StatusCanceled}
	default:
		f.outcome = Outcome[T]{Status: StatusFaulted, Err: err}
	}
	close(f.done)
}

// Done is closed once the computation has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the computation has settled, without blocking.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Outcome returns the current snapshot. Before Done is closed the status is
// StatusPending.
func (f *Future[T]) Outcome() Outcome[T] {
	if !f.IsDone() {
		return Outcome[T]{Status: StatusPending}
	}
	return f.outcome
}

// Cancel asks the computation to stop. Best effort: a computation that
// ignores its context still runs to completion.
func (f *Future[T]) Cancel() {
	f.cancel()
}
