package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTaskAborted settles a call whose cancellation was triggered before
	// it produced an authoritative outcome: displaced by a newer Run, torn
	// down by Abort, or discarded by Shutdown while deferred.
	ErrTaskAborted = errors.New("task aborted")

	// ErrTaskIgnored settles a call the deferral policy decided will never
	// execute (superseded inside a debounce/throttle window).
	ErrTaskIgnored = errors.New("task ignored")

	// ErrTaskPanicked settles a call whose function panicked. The settled
	// error wraps it and carries the recovered value.
	ErrTaskPanicked = errors.New("task panicked")

	// ErrClosed settles any Run issued after Shutdown.
	ErrClosed = errors.New("coordinator closed")
)

// panicError carries a recovered panic value and matches ErrTaskPanicked
// under errors.Is.
type panicError struct {
	value any
}

func newPanicError(value any) error {
	return &panicError{value: value}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.value)
}

func (e *panicError) Unwrap() error {
	return ErrTaskPanicked
}
