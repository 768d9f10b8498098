package lightio

import "time"

// TimeoutFunc runs fn with a deadline: a non-positive seconds runs fn
// inline with no timer armed at all. A positive seconds arms a timer
// against the calling fiber's scheduler that, if it fires before fn
// returns, injects errClass (ErrTimeout's *TimeoutError if errClass is
// nil) at fn's current suspension point. The timer is always canceled
// before TimeoutFunc returns, whichever way fn finished, so a timeout
// racing the very last line of fn never fires after the fact.
//
// A positive seconds called from a bare goroutine (no current fiber)
// returns a *CrossThreadError without running fn.
func TimeoutFunc(seconds float64, errClass error, fn func() error) error {
	if seconds <= 0 {
		return fn()
	}

	caller := CurrentFiber()
	if caller == nil {
		return &CrossThreadError{Detail: "Timeout called outside a fiber"}
	}
	s := caller.scheduler

	timer := s.addTimer(time.Now().Add(time.Duration(seconds*float64(time.Second))), func() {
		err := errClass
		if err == nil {
			err = &TimeoutError{Seconds: seconds}
		}
		s.wakeFiber(caller, err)
	})

	err := fn()
	s.removeTimer(timer)
	return err
}
