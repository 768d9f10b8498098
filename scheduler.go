package lightio

import (
	"fmt"
	"runtime"
	"time"
)

// Scheduler (IOloop) owns a Selector, a timer heap, a FIFO run queue of
// runnable fibers, and the set of fibers it has spawned. Its tick loop
// (RunUntil) is meant to run on a goroutine dedicated to it for its whole
// life - RunUntil pins that goroutine with runtime.LockOSThread, which is
// the Go analogue of "one IOloop per OS thread".
type Scheduler struct {
	opts Options
	sel  *selector

	timers   timerHeap
	runQueue []*Fiber
	fibers   map[int64]*Fiber

	current *Fiber

	returnCh chan struct{}
	scratch  []readyFD

	stopRequested bool
}

// NewScheduler creates a Scheduler with its own Selector. It does not
// start the tick loop; call Run or RunUntil to drive it.
func NewScheduler(opts Options) *Scheduler {
	sel, err := newSelector(opts.SelectorBatchSize)
	if err != nil {
		// A selector failing to open (out of fds, sandboxed epoll/kqueue)
		// is unrecoverable for this scheduler; callers that need to
		// handle that themselves should call newSelector's backend
		// directly. NewScheduler panics only in this exceptional
		// environment failure, never in the course of normal use.
		panic(fmt.Sprintf("lightio: failed to open selector: %v", err))
	}
	return &Scheduler{
		opts:     opts,
		sel:      sel,
		fibers:   make(map[int64]*Fiber),
		returnCh: make(chan struct{}),
	}
}

// Spawn schedules a new Fiber to run fn on this scheduler and returns
// immediately; fn does not begin executing until the scheduler's tick
// loop reaches it.
func (s *Scheduler) Spawn(fn func(*Fiber) (any, error)) *Fiber {
	return s.SpawnNamed("", fn)
}

// SpawnNamed is Spawn with an explicit name, surfaced in logs and in
// Fiber.Name.
func (s *Scheduler) SpawnNamed(name string, fn func(*Fiber) (any, error)) *Fiber {
	f := newFiber(s, name, fn)
	s.fibers[f.ID] = f
	f.setState(FiberRunnable)
	s.runQueue = append(s.runQueue, f)
	f.start()
	logDebug("fiber spawned", map[string]any{"fiber": f.ID, "name": name})
	return f
}

// FiberCount returns the number of fibers spawned on this scheduler that
// have not yet finished.
func (s *Scheduler) FiberCount() int { return len(s.fibers) }

func (s *Scheduler) untrack(f *Fiber) {
	delete(s.fibers, f.ID)
}

// enqueueRunnable marks f runnable and appends it to the back of the run
// queue, used by Yield and by Sleep(0).
func (s *Scheduler) enqueueRunnable(f *Fiber) {
	f.setState(FiberRunnable)
	s.runQueue = append(s.runQueue, f)
}

// wakeFiber transitions a waiting fiber to runnable and enqueues it,
// stashing err to be delivered as the fiber's suspension-point return
// value when the scheduler actually resumes it. It is a no-op for a
// fiber that is not currently waiting, which is what makes "first wake
// wins" hold when an I/O readiness callback and a timeout callback race
// for the same fiber in one tick (see fireMonitor/fireExpiredTimers order
// below).
func (s *Scheduler) wakeFiber(f *Fiber, err error) {
	if f.getState() != FiberWaiting {
		return
	}
	f.pendingErr = err
	f.setState(FiberRunnable)
	s.runQueue = append(s.runQueue, f)
}

// returnFromFiber is called by a fiber's own goroutine to hand the baton
// back to the scheduler's tick loop, which is blocked on returnCh exactly
// while that fiber holds it.
func (s *Scheduler) returnFromFiber() {
	s.returnCh <- struct{}{}
}

// resumeFiber hands the baton to f and blocks until f parks or finishes.
func (s *Scheduler) resumeFiber(f *Fiber) {
	err := f.pendingErr
	f.pendingErr = nil
	s.current = f
	f.setState(FiberRunning)
	f.resumeCh <- resumeSignal{err: err}
	<-s.returnCh
	s.current = nil
}

// CurrentlyRunning returns the fiber this scheduler is actively resuming,
// or nil when the scheduler itself is running (no fiber holds the baton).
func (s *Scheduler) CurrentlyRunning() *Fiber { return s.current }

// Stop requests that the tick loop exit after finishing its current
// iteration. It does not cancel in-flight fibers.
func (s *Scheduler) Stop() { s.stopRequested = true }

func (s *Scheduler) idle() bool {
	return len(s.runQueue) == 0 && len(s.fibers) == 0 && s.timers.Len() == 0
}

// Run drives the tick loop until no fiber is runnable or alive and no
// timer is armed - i.e. until there is nothing left to do.
func (s *Scheduler) Run() error {
	return s.RunUntil(s.idle)
}

// RunUntil drives the tick loop: run a ready fiber to its next suspension
// point if one is queued, otherwise wait on the Selector and fire whatever
// I/O and timers became ready, until predicate reports true or Stop is
// called. It pins the calling goroutine
// to its OS thread for the duration, since every fiber spawned on this
// scheduler is scheduled relative to that one thread.
func (s *Scheduler) RunUntil(predicate func() bool) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	bindGoroutineToScheduler(s)
	defer unbindGoroutine()

	for !s.stopRequested && !predicate() {
		if len(s.runQueue) > 0 {
			f := s.runQueue[0]
			s.runQueue = s.runQueue[1:]
			s.resumeFiber(f)
			continue
		}

		timeout := s.computeSelectTimeout()
		ready, scratch, err := s.sel.selectReady(timeout, s.scratch)
		s.scratch = scratch
		if err != nil {
			logError("selector wait failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, m := range ready {
			s.fireMonitor(m)
		}
		s.fireExpiredTimers(time.Now())
	}
	return nil
}

func (s *Scheduler) computeSelectTimeout() timeoutSpec {
	deadline, ok := s.timers.nextDeadline()
	if !ok {
		if s.opts.MaxSelectTimeout <= 0 {
			return timeoutSpec{negative: true}
		}
		return timeoutSpec{d: durationMillis(s.opts.MaxSelectTimeout.Milliseconds())}
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	if s.opts.MaxSelectTimeout > 0 && d > s.opts.MaxSelectTimeout {
		d = s.opts.MaxSelectTimeout
	}
	return timeoutSpec{d: durationMillis(d.Milliseconds())}
}

// fireMonitor invokes a ready Monitor's registered callback, recovering
// and logging a panic so one misbehaving callback can't take down the
// whole tick loop.
func (s *Scheduler) fireMonitor(m *Monitor) {
	defer func() {
		if r := recover(); r != nil {
			logError("io callback panicked", map[string]any{"fd": m.fd, "panic": fmt.Sprint(r)})
		}
	}()
	if m.callback != nil {
		m.callback(m.readiness)
	}
}

func (s *Scheduler) fireExpiredTimers(now time.Time) {
	for _, t := range s.timers.popExpired(now) {
		s.invokeTimer(t)
	}
}

func (s *Scheduler) invokeTimer(t *Timer) {
	defer func() {
		if r := recover(); r != nil {
			logError("timer callback panicked", map[string]any{"panic": fmt.Sprint(r)})
		}
	}()
	if t.callback != nil {
		t.callback()
	}
}

// registerFD registers fd with the scheduler's Selector. Used by
// NewIOWatcher.
func (s *Scheduler) registerFD(fd int, interests Interest) (*Monitor, error) {
	return s.sel.register(fd, interests)
}

// addTimer arms a timer on this scheduler's timer heap.
func (s *Scheduler) addTimer(deadline time.Time, cb func()) *Timer {
	return s.timers.addTimer(deadline, cb)
}

func (s *Scheduler) removeTimer(t *Timer) {
	s.timers.removeTimer(t)
}

// Close releases the scheduler's Selector. It does not wait for spawned
// fibers to finish.
func (s *Scheduler) Close() error {
	return s.sel.close()
}
