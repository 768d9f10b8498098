package lightio

import (
	"sync"
	"sync/atomic"
)

// FiberState is a Fiber's position in its lifecycle.
type FiberState int32

const (
	FiberCreated FiberState = iota
	FiberRunnable
	FiberRunning
	FiberWaiting
	FiberDead
)

func (s FiberState) String() string {
	switch s {
	case FiberCreated:
		return "created"
	case FiberRunnable:
		return "runnable"
	case FiberRunning:
		return "running"
	case FiberWaiting:
		return "waiting"
	case FiberDead:
		return "dead"
	default:
		return "unknown"
	}
}

// resumeSignal is what the scheduler hands a parked fiber to wake it: nil
// err means "resume normally", non-nil means "raise this at the
// suspension point instead" (cancellation/timeout injection).
type resumeSignal struct {
	err error
}

// Fiber (Beam) is an independently schedulable unit of execution with its
// own goroutine standing in for a native stackful coroutine. Suspension
// is a channel handoff rather than a context switch: a parked Fiber's
// goroutine is blocked receiving from resumeCh, which is indistinguishable
// from a parked native coroutine for the invariants this package relies on.
//
// At most one Fiber per Scheduler is ever unblocked at a time: the
// Scheduler hands the baton to exactly one Fiber's resumeCh and then
// blocks on returnCh until that Fiber parks or finishes.
type Fiber struct {
	ID        int64
	Name      string
	scheduler *Scheduler
	entry     func(*Fiber) (any, error)

	state      atomic.Int32
	resumeCh   chan resumeSignal
	doneCh     chan struct{}
	pendingErr error // staged by wakeFiber, delivered on the next resumeFiber

	mu      sync.Mutex
	result  any
	err     error
	joiners []*Fiber
}

var fiberIDCounter atomic.Int64

func newFiber(s *Scheduler, name string, entry func(*Fiber) (any, error)) *Fiber {
	f := &Fiber{
		ID:        fiberIDCounter.Add(1),
		Name:      name,
		scheduler: s,
		entry:     entry,
		resumeCh:  make(chan resumeSignal, 1),
		doneCh:    make(chan struct{}),
	}
	f.state.Store(int32(FiberCreated))
	return f
}

func (f *Fiber) getState() FiberState { return FiberState(f.state.Load()) }
func (f *Fiber) setState(s FiberState) { f.state.Store(int32(s)) }

// Alive reports whether the fiber's entry function has not yet returned
// or raised.
func (f *Fiber) Alive() bool { return f.getState() != FiberDead }

// Scheduler returns the Scheduler this fiber was spawned on.
func (f *Fiber) Scheduler() *Scheduler { return f.scheduler }

// start launches the fiber's backing goroutine. It blocks on the baton
// (resumeCh) until the scheduler's run queue reaches it for the first
// time, exactly like every later suspension.
func (f *Fiber) start() {
	go func() {
		bindGoroutineToFiber(f)
		defer unbindGoroutine()

		sig := <-f.resumeCh
		if sig.err == nil {
			f.runEntry()
		} else {
			f.finish(nil, sig.err)
		}
		f.scheduler.returnFromFiber()
	}()
}

func (f *Fiber) runEntry() {
	defer func() {
		if r := recover(); r != nil {
			f.finish(nil, &BeamError{Fiber: f, Err: panicToError(r)})
		}
	}()
	result, err := f.entry(f)
	f.finish(result, err)
}

func (f *Fiber) finish(result any, err error) {
	f.mu.Lock()
	f.result = result
	f.err = err
	joiners := f.joiners
	f.joiners = nil
	f.mu.Unlock()

	f.setState(FiberDead)
	close(f.doneCh)

	if err != nil && len(joiners) == 0 {
		logError("unjoined fiber error", map[string]any{"fiber": f.ID, "name": f.Name, "error": err.Error()})
	}

	for _, j := range joiners {
		f.scheduler.wakeFiber(j, nil)
	}
	f.scheduler.untrack(f)
}

// suspend hands the baton back to the scheduler and blocks until resumed,
// returning any error injected while parked. Callers are expected to have
// already arranged how they'll be woken (enqueued on a timer, a watcher
// callback, or the run queue) before calling suspend.
func (f *Fiber) suspend(state FiberState) error {
	f.setState(state)
	f.scheduler.returnFromFiber()
	sig := <-f.resumeCh
	f.setState(FiberRunning)
	return sig.err
}

// Yield voluntarily enqueues the fiber at the back of the run queue and
// returns control to the scheduler; the fiber resumes on a later tick
// after every currently-runnable fiber has had its turn.
func (f *Fiber) Yield() error {
	f.scheduler.enqueueRunnable(f)
	return f.suspend(FiberRunnable)
}

// Join suspends the calling fiber (if any) until f is dead, then returns
// f's result or its escaped error wrapped once in a *BeamError. Calling
// Join from a goroutine that is not a fiber at all blocks on a plain
// channel instead of parking cooperatively; calling it from a fiber on a
// different scheduler returns a *CrossThreadError.
func (f *Fiber) Join() (any, error) {
	if !f.Alive() {
		return f.joinResult()
	}

	caller := CurrentFiber()
	if caller == nil {
		<-f.doneCh
		return f.joinResult()
	}
	if caller.scheduler != f.scheduler {
		return nil, &CrossThreadError{Detail: "Fiber.Join across schedulers"}
	}

	f.mu.Lock()
	if f.getState() == FiberDead {
		f.mu.Unlock()
		return f.joinResult()
	}
	f.joiners = append(f.joiners, caller)
	f.mu.Unlock()

	if err := caller.suspend(FiberWaiting); err != nil {
		return nil, err
	}
	return f.joinResult()
}

func (f *Fiber) joinResult() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err == nil {
		return f.result, nil
	}
	return f.result, wrapBeamError(f, f.err)
}

func panicToError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &SchedulerError{Detail: "fiber panic: " + stringify(r)}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "panic value of unsupported type"
}
