package lightio

import (
	"errors"
	"fmt"
)

// ErrTimeout is the sentinel compared with errors.Is when a guarded
// region exceeds its deadline. TimeoutError wraps it with context.
var ErrTimeout = errors.New("lightio: timeout")

// ErrClosedStream is the sentinel wrapped by IOError when a watcher is
// closed while, or before, a fiber parks on it.
var ErrClosedStream = errors.New("lightio: closed stream")

// ErrCrossThread is the sentinel wrapped by CrossThreadError.
var ErrCrossThread = errors.New("lightio: watcher can't cross threads")

// TimeoutError reports that a Timeout-guarded region did not complete
// within its deadline.
type TimeoutError struct {
	Seconds float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("lightio: timeout after %.3fs", e.Seconds)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// IOError reports an I/O-level failure delivered to a parked fiber, most
// commonly that its watcher was closed.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("lightio: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func newClosedStreamError() *IOError {
	return &IOError{Op: "watch", Err: ErrClosedStream}
}

// CrossThreadError reports that a fiber, watcher, or timer bound to one
// Scheduler was used from a fiber running on a different Scheduler.
type CrossThreadError struct {
	Detail string
}

func (e *CrossThreadError) Error() string {
	if e.Detail == "" {
		return ErrCrossThread.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCrossThread.Error(), e.Detail)
}

func (e *CrossThreadError) Unwrap() error { return ErrCrossThread }

// BeamError wraps an error that escaped a fiber's entry function, whether
// returned or recovered from a panic, as reported by Join. Errors injected
// into a parked fiber (a closed watcher, a timeout) reach that fiber's
// suspension point unwrapped.
type BeamError struct {
	Fiber *Fiber
	Err   error
}

func (e *BeamError) Error() string {
	if e.Fiber != nil {
		return fmt.Sprintf("lightio: fiber %d failed: %v", e.Fiber.ID, e.Err)
	}
	return fmt.Sprintf("lightio: beam error: %v", e.Err)
}

func (e *BeamError) Unwrap() error { return e.Err }

// wrapBeamError wraps err in a *BeamError unless it already is one, so
// propagation across multiple suspension points never double-wraps.
func wrapBeamError(f *Fiber, err error) error {
	if err == nil {
		return nil
	}
	var be *BeamError
	if errors.As(err, &be) {
		return err
	}
	return &BeamError{Fiber: f, Err: err}
}

// SchedulerError reports a precondition violation: a blocking primitive
// invoked with no current fiber or no current scheduler, or a watcher
// double-waited from two fibers at once.
type SchedulerError struct {
	Detail string
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("lightio: scheduler error: %s", e.Detail)
}
