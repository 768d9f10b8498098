package lightio

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the numeric id Go's runtime assigns the calling
// goroutine by parsing the header line of a runtime.Stack dump. This is
// the standard, widely used trick for goroutine-local storage in Go,
// which has no first-class thread-local or goroutine-local primitive;
// see DESIGN.md for why this module builds it directly on the standard
// library rather than depending on a dedicated package.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// "goroutine 123 [running]:\n..."
	field := bytes.Fields(buf[:n])
	if len(field) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(field[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

var (
	schedulerByGoroutine sync.Map // uint64 -> *Scheduler
	fiberByGoroutine     sync.Map // uint64 -> *Fiber
)

func bindGoroutineToScheduler(s *Scheduler) {
	schedulerByGoroutine.Store(goroutineID(), s)
}

func unbindGoroutine() {
	schedulerByGoroutine.Delete(goroutineID())
	fiberByGoroutine.Delete(goroutineID())
}

func bindGoroutineToFiber(f *Fiber) {
	fiberByGoroutine.Store(goroutineID(), f)
	schedulerByGoroutine.Store(goroutineID(), f.scheduler)
}

// Current returns the Scheduler bound to the calling goroutine, creating
// and binding a fresh one on first use, goroutine-local rather than a
// process-wide singleton: two goroutines that never spawned one another
// get two different Schedulers.
func Current() *Scheduler {
	gid := goroutineID()
	if v, ok := schedulerByGoroutine.Load(gid); ok {
		return v.(*Scheduler)
	}
	s := NewScheduler(DefaultOptions())
	schedulerByGoroutine.Store(gid, s)
	return s
}

// CurrentFiber returns the Fiber running on the calling goroutine, or nil
// if the calling goroutine is not a lightio fiber (for example, the
// program's initial goroutine before any Spawn, or the Scheduler's own
// driver goroutine).
func CurrentFiber() *Fiber {
	if v, ok := fiberByGoroutine.Load(goroutineID()); ok {
		return v.(*Fiber)
	}
	return nil
}
