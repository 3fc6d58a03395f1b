package async

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies how a fetch ended.
type ErrorKind int

const (
	KindNone          ErrorKind = iota // no error
	KindFetchFailed                    // the computation faulted
	KindFetchCanceled                  // the computation was canceled
)

// String returns a display name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case KindFetchFailed:
		return "fetch failed"
	case KindFetchCanceled:
		return "fetch canceled"
	default:
		return "none"
	}
}

// ErrFetchCanceled is returned by Wait when the computation was canceled.
var ErrFetchCanceled = errors.New("fetch canceled")

// FetchFailedError wraps the failure that faulted a computation.
type FetchFailedError struct {
	Cause error
}

func (e *FetchFailedError) Error() string {
	if e.Cause == nil {
		return "fetch failed"
	}
	return fmt.Sprintf("fetch failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FetchFailedError) Unwrap() error {
	return e.Cause
}

// KindOf reports which terminal error kind err belongs to.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrFetchCanceled) {
		return KindFetchCanceled
	}
	var failed *FetchFailedError
	if errors.As(err, &failed) {
		return KindFetchFailed
	}
	if errors.Is(err, context.Canceled) {
		return KindFetchCanceled
	}
	return KindFetchFailed
}

// isCancellation reports whether err means the computation gave up because it
// was asked to, rather than because it broke.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrFetchCanceled)
}
