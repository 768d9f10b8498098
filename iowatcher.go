package lightio

import "time"

// IOWatcher parks the calling fiber until a file descriptor becomes
// readable or writable, or until an optional timeout elapses. It wraps a
// single Selector Monitor and enforces a single-waiter discipline: only
// one fiber may be parked on a given IOWatcher at a time, and readiness
// is reported "last observed" rather than polled live via
// Readable/Writable/ClearStatus.
type IOWatcher struct {
	fd        int
	monitor   *Monitor
	scheduler *Scheduler
	waiter    *Fiber
}

// NewIOWatcher registers fd with the calling goroutine's current
// Scheduler and returns a watcher for it. The watcher is bound to that
// Scheduler for its lifetime; waiting on it from a fiber belonging to a
// different Scheduler returns a *CrossThreadError.
func NewIOWatcher(fd int, interests Interest) (*IOWatcher, error) {
	s := Current()
	m, err := s.registerFD(fd, interests)
	if err != nil {
		return nil, err
	}
	w := &IOWatcher{fd: fd, monitor: m, scheduler: s}
	m.callback = w.onReady
	return w, nil
}

func (w *IOWatcher) onReady(readiness Interest) {
	if w.waiter == nil {
		return
	}
	f := w.waiter
	w.waiter = nil
	w.scheduler.wakeFiber(f, nil)
}

func (w *IOWatcher) checkCrossThread() error {
	caller := CurrentFiber()
	if caller == nil {
		return nil
	}
	if caller.scheduler != w.scheduler {
		return &CrossThreadError{Detail: "IOWatcher.Wait across schedulers"}
	}
	return nil
}

// Wait widens the watcher's interest set to include mode and parks the
// calling fiber until readiness matching mode is observed or timeout (in
// seconds; nil or <= 0 waits forever) elapses. It returns the watcher
// itself on success so callers can chain Readable()/Writable()/ClearStatus(), or a
// *TimeoutError if the deadline passed first.
func (w *IOWatcher) Wait(timeout *float64, mode Interest) (*IOWatcher, error) {
	if w.monitor.Closed() {
		return nil, newClosedStreamError()
	}
	if err := w.checkCrossThread(); err != nil {
		return nil, err
	}
	if w.waiter != nil {
		return nil, &SchedulerError{Detail: "IOWatcher already has a waiting fiber"}
	}
	if w.monitor.Readiness().has(mode) {
		return w, nil
	}
	if err := w.monitor.SetInterests(mode); err != nil {
		return nil, err
	}

	caller := CurrentFiber()
	if caller == nil {
		return nil, &CrossThreadError{Detail: "IOWatcher.Wait called outside a fiber"}
	}
	w.waiter = caller

	var timer *Timer
	if timeout != nil && *timeout > 0 {
		seconds := *timeout
		timer = w.scheduler.addTimer(time.Now().Add(time.Duration(seconds*float64(time.Second))), func() {
			if w.waiter != caller {
				return
			}
			w.waiter = nil
			w.scheduler.wakeFiber(caller, &TimeoutError{Seconds: seconds})
		})
	}

	err := caller.suspend(FiberWaiting)
	if timer != nil {
		w.scheduler.removeTimer(timer)
	}
	w.waiter = nil
	if err != nil {
		return nil, err
	}
	return w, nil
}

// WaitReadable is Wait(timeout, InterestRead).
func (w *IOWatcher) WaitReadable(timeout *float64) (*IOWatcher, error) {
	return w.Wait(timeout, InterestRead)
}

// WaitWritable is Wait(timeout, InterestWrite).
func (w *IOWatcher) WaitWritable(timeout *float64) (*IOWatcher, error) {
	return w.Wait(timeout, InterestWrite)
}

// Readable reports whether readability was observed since the last
// ClearStatus, without blocking.
func (w *IOWatcher) Readable() bool { return w.monitor.Readiness().has(InterestRead) }

// Writable reports whether writability was observed since the last
// ClearStatus, without blocking.
func (w *IOWatcher) Writable() bool { return w.monitor.Readiness().has(InterestWrite) }

// ClearStatus resets the last-observed readiness, so a subsequent
// Readable/Writable call reflects only readiness reported after this
// call returns.
func (w *IOWatcher) ClearStatus() { w.monitor.ClearStatus() }

// Closed reports whether Close has been called.
func (w *IOWatcher) Closed() bool { return w.monitor.Closed() }

// FD returns the watched file descriptor.
func (w *IOWatcher) FD() int { return w.fd }

// Close unregisters the descriptor and unblocks any fiber currently
// parked in Wait with an *IOError wrapping ErrClosedStream. Close is
// idempotent.
func (w *IOWatcher) Close() error {
	if w.monitor.Closed() {
		return nil
	}
	err := w.monitor.Close()
	if w.waiter != nil {
		f := w.waiter
		w.waiter = nil
		w.scheduler.wakeFiber(f, newClosedStreamError())
	}
	return err
}
