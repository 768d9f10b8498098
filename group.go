package lightio

// FiberGroup collects a batch of fibers spawned for related work so they
// can be joined together. Unlike a busy-wait "all done?" poll, WaitAll
// joins each member in turn, so it costs nothing while every member is
// still running.
type FiberGroup struct {
	fibers []*Fiber
}

// NewFiberGroup returns an empty group.
func NewFiberGroup() *FiberGroup {
	return &FiberGroup{}
}

// Add registers f as a member of the group. It does not affect
// scheduling; f must already have been spawned.
func (g *FiberGroup) Add(f *Fiber) {
	g.fibers = append(g.fibers, f)
}

// Spawn spawns fn on s, adds the resulting fiber to the group, and
// returns it.
func (g *FiberGroup) Spawn(s *Scheduler, fn func(*Fiber) (any, error)) *Fiber {
	f := s.Spawn(fn)
	g.Add(f)
	return f
}

// WaitAll joins every member of the group in the order it was added,
// returning the first error encountered (if any) after every member has
// been joined. It does not short-circuit on the first failure, since
// abandoning a Join would leave that fiber without a joiner and its
// eventual error would only be logged, not observable here.
func (g *FiberGroup) WaitAll() error {
	var first error
	for _, f := range g.fibers {
		if _, err := f.Join(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Results joins every member and returns their results in add order
// alongside the first error encountered, the same way WaitAll does.
func (g *FiberGroup) Results() ([]any, error) {
	results := make([]any, len(g.fibers))
	var first error
	for i, f := range g.fibers {
		r, err := f.Join()
		results[i] = r
		if err != nil && first == nil {
			first = err
		}
	}
	return results, first
}

// Len returns the number of fibers in the group.
func (g *FiberGroup) Len() int { return len(g.fibers) }
