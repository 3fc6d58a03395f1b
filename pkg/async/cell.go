package async

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Status is the lifecycle state of a watched computation.
type Status int

const (
	StatusPending         Status = iota // still running
	StatusRanToCompletion               // succeeded with a value
	StatusFaulted                       // failed with an error
	StatusCanceled                      // canceled before producing a value
)

// String returns display name for the status
func (s Status) String() string {
	switch s {
	case StatusRanToCompletion:
		return "RanToCompletion"
	case StatusFaulted:
		return "Faulted"
	case StatusCanceled:
		return "Canceled"
	default:
		return "Pending"
	}
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Field names one observable property of a Cell.
type Field string

const (
	FieldStatus                  Field = "Status"
	FieldIsCompleted             Field = "IsCompleted"
	FieldIsNotCompleted          Field = "IsNotCompleted"
	FieldIsSuccessfullyCompleted Field = "IsSuccessfullyCompleted"
	FieldIsCanceled              Field = "IsCanceled"
	FieldIsFaulted               Field = "IsFaulted"
	FieldResult                  Field = "Result"
	FieldErr                     Field = "Err"
	FieldInnerErr                Field = "InnerErr"
	FieldErrorMessage            Field = "ErrorMessage"
)

// Notification is one batch of field changes delivered to an observer.
// Outcome is the snapshot every listed field was derived from.
type Notification[T any] struct {
	Outcome Outcome[T]
	Fields  []Field
	Replay  bool // sent at attach time rather than on a transition
}

// Changed reports whether f is part of this batch.
func (n Notification[T]) Changed(f Field) bool {
	for _, field := range n.Fields {
		if field == f {
			return true
		}
	}
	return false
}

// Option configures a Cell.
type Option func(*options)

type options struct {
	dispatch func(func())
	onFault  func(error)
	logger   *zap.Logger
}

// WithDispatcher routes transition batches through dispatch, e.g. to run
// them on a UI event loop. dispatch must run the function exactly once and
// preserve submission order.
func WithDispatcher(dispatch func(func())) Option {
	return func(o *options) {
		o.dispatch = dispatch
	}
}

// WithFaultHandler sets the handler that receives the *FetchFailedError of a
// faulted computation after observers were notified.
func WithFaultHandler(fn func(error)) Option {
	return func(o *options) {
		o.onFault = fn
	}
}

// WithLogger sets the logger used for fault reports and observer panics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Cell exposes the state of one Future as observable fields.
//
// A Cell never retries and never blocks its creator. If the future has already
// settled when the cell is built, the state is available immediately and no
// waiter goroutine is started.
type Cell[T any] struct {
	future *Future[T]
	opts   options

	// emitMu serializes deliveries so an observer never sees a replay after
	// the transition batch.
	emitMu sync.Mutex

	mu        sync.Mutex
	outcome   Outcome[T]
	observers map[int]func(Notification[T])
	nextID    int
	waiting   bool

	watched chan struct{}
}

// NewCell starts watching f.
func NewCell[T any](f *Future[T], opts ...Option) *Cell[T] {
	c := &Cell[T]{
		future:    f,
		observers: make(map[int]func(Notification[T])),
		watched:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.logger == nil {
		c.opts.logger = zap.NewNop()
	}
	if c.opts.dispatch == nil {
		c.opts.dispatch = func(fn func()) { fn() }
	}
	if c.opts.onFault == nil {
		logger := c.opts.logger
		c.opts.onFault = func(err error) {
			logger.Error("unobserved fetch fault", zap.Error(err))
		}
	}

	if f.IsDone() {
		c.outcome = f.Outcome()
		close(c.watched)
		return c
	}

	c.outcome = Outcome[T]{Status: StatusPending}
	c.waiting = true
	go c.watch()
	return c
}

// watch publishes the terminal outcome from inside the dispatched batch, so
// with a UI dispatcher the cell's fields and the notification change together
// on the UI thread. Observers are collected at publish time, so one that
// subscribes while the batch is queued gets a pending replay and then the batch.
func (c *Cell[T]) watch() {
	defer close(c.watched)

	<-c.future.Done()
	outcome := c.future.Outcome()
	fields := transitionFields(outcome.Status)

	c.opts.dispatch(func() {
		c.emitMu.Lock()
		c.mu.Lock()
		c.outcome = outcome
		observers := c.snapshotObservers()
		c.mu.Unlock()

		n := Notification[T]{Outcome: outcome, Fields: fields}
		for _, fn := range observers {
			c.deliver(fn, n)
		}
		c.emitMu.Unlock()

		if outcome.Status == StatusFaulted {
			c.opts.onFault(&FetchFailedError{Cause: outcome.Err})
		}
	})

	c.mu.Lock()
	c.waiting = false
	c.mu.Unlock()
}

// transitionFields lists every field that changes when a computation settles
// into status.
func transitionFields(status Status) []Field {
	fields := []Field{FieldStatus, FieldIsCompleted, FieldIsNotCompleted}
	switch status {
	case StatusCanceled:
		fields = append(fields, FieldIsCanceled)
	case StatusFaulted:
		fields = append(fields, FieldIsFaulted, FieldErr, FieldInnerErr, FieldErrorMessage)
	case StatusRanToCompletion:
		fields = append(fields, FieldIsSuccessfullyCompleted, FieldResult)
	}
	return fields
}

func (c *Cell[T]) snapshotObservers() []func(Notification[T]) {
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids) // subscription order
	out := make([]func(Notification[T]), len(ids))
	for i, id := range ids {
		out[i] = c.observers[id]
	}
	return out
}

func (c *Cell[T]) deliver(fn func(Notification[T]), n Notification[T]) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.logger.Error("cell observer panicked", zap.Any("panic", r))
		}
	}()
	fn(n)
}

// Subscribe attaches fn and immediately calls it with the current snapshot.
// fn is called once more when the computation settles, unless it had already
// settled. The returned function detaches fn. fn must not call Subscribe.
func (c *Cell[T]) Subscribe(fn func(Notification[T])) (unsubscribe func()) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	outcome := c.outcome
	c.mu.Unlock()

	c.deliver(fn, Notification[T]{Outcome: outcome, Fields: []Field{FieldStatus}, Replay: true})

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Snapshot returns the cell's current outcome.
func (c *Cell[T]) Snapshot() Outcome[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Status returns the current status.
func (c *Cell[T]) Status() Status {
	return c.Snapshot().Status
}

// IsCompleted reports whether the computation settled in any terminal state.
func (c *Cell[T]) IsCompleted() bool {
	return c.Status().IsTerminal()
}

// IsNotCompleted is the negation of IsCompleted.
func (c *Cell[T]) IsNotCompleted() bool {
	return !c.IsCompleted()
}

// IsSuccessfullyCompleted reports whether the computation produced a value.
func (c *Cell[T]) IsSuccessfullyCompleted() bool {
	return c.Status() == StatusRanToCompletion
}

// IsCanceled reports whether the computation was canceled.
func (c *Cell[T]) IsCanceled() bool {
	return c.Status() == StatusCanceled
}

// IsFaulted reports whether the computation failed.
func (c *Cell[T]) IsFaulted() bool {
	return c.Status() == StatusFaulted
}

// Result returns the value and true once the computation succeeded.
func (c *Cell[T]) Result() (T, bool) {
	o := c.Snapshot()
	if o.Status != StatusRanToCompletion {
		var zero T
		return zero, false
	}
	return o.Value, true
}

// Err returns the *FetchFailedError of a faulted computation, nil otherwise.
func (c *Cell[T]) Err() error {
	o := c.Snapshot()
	if o.Status != StatusFaulted {
		return nil
	}
	return &FetchFailedError{Cause: o.Err}
}

// InnerErr returns the cause that faulted the computation.
func (c *Cell[T]) InnerErr() error {
	return errors.Unwrap(c.Err())
}

// ErrorMessage returns the cause's message, or "" when not faulted.
func (c *Cell[T]) ErrorMessage() string {
	if inner := c.InnerErr(); inner != nil {
		return inner.Error()
	}
	return ""
}

// Waiting reports whether a waiter goroutine is still suspended on the future.
func (c *Cell[T]) Waiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiting
}

// Cancel forwards a cancellation request to the underlying computation.
func (c *Cell[T]) Cancel() {
	c.future.Cancel()
}

// Wait blocks until the transition batch has been handed to the dispatcher
// (with the default dispatcher: delivered), then returns the value, a
// *FetchFailedError, or ErrFetchCanceled. The result comes from the settled
// computation, so it is available even while a queued batch has not run yet.
// It returns ctx.Err() if ctx ends first.
func (c *Cell[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-c.watched:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	o := c.future.Outcome()
	switch o.Status {
	case StatusRanToCompletion:
		return o.Value, nil
	case StatusCanceled:
		return zero, ErrFetchCanceled
	default:
		return zero, &FetchFailedError{Cause: o.Err}
	}
}
