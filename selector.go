package lightio

import "fmt"

// Interest is a bitset over the readiness a Monitor is watching for.
type Interest uint8

const (
	// InterestNone watches nothing; SetInterests never narrows to this
	// value implicitly, only Close releases a Monitor's interests.
	InterestNone Interest = 0
	// InterestRead watches for readability.
	InterestRead Interest = 1 << iota
	// InterestWrite watches for writability.
	InterestWrite
)

// InterestReadWrite is the union of InterestRead and InterestWrite.
const InterestReadWrite = InterestRead | InterestWrite

func (i Interest) String() string {
	switch i {
	case InterestNone:
		return "none"
	case InterestRead:
		return "r"
	case InterestWrite:
		return "w"
	case InterestReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("interest(%d)", uint8(i))
	}
}

func (i Interest) has(other Interest) bool { return i&other == other }

// Monitor is a selector-level registration for one file descriptor: its
// current interest set, the last readiness reported by the selector, and
// a closed flag. Once closed, no further interest updates or readiness
// notifications are accepted. Readiness is cleared only by explicit
// consumer acknowledgement (ClearStatus on the owning IOWatcher).
type Monitor struct {
	fd        int
	interests Interest
	readiness Interest
	closed    bool
	callback  func(Interest)
	sel       *selector
}

// FD returns the descriptor this Monitor tracks.
func (m *Monitor) FD() int { return m.fd }

// Interests reports the descriptor's current registered interest set.
func (m *Monitor) Interests() Interest { return m.interests }

// Readiness reports the last readiness observed for this descriptor,
// unchanged since the last ClearStatus.
func (m *Monitor) Readiness() Interest { return m.readiness }

// Closed reports whether Close has been called on this Monitor.
func (m *Monitor) Closed() bool { return m.closed }

// SetInterests widens the registered interest set to include want, never
// narrowing it. Widening-only avoids losing readiness that was already
// being tracked for another parked operation on the same descriptor.
func (m *Monitor) SetInterests(want Interest) error {
	if m.closed {
		return newClosedStreamError()
	}
	merged := m.interests | want
	if merged == m.interests {
		return nil
	}
	if err := m.sel.modify(m.fd, merged); err != nil {
		return err
	}
	m.interests = merged
	return nil
}

// ClearStatus resets the last-observed readiness to none, so a future
// Readable/Writable query reflects only readiness observed after this
// call.
func (m *Monitor) ClearStatus() {
	m.readiness = InterestNone
}

// Close is idempotent: it is safe to call any number of times.
func (m *Monitor) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.sel.remove(m.fd)
}

// selector is the portable interface a Scheduler drives; selector_linux.go
// and selector_darwin.go provide epoll and kqueue backends respectively,
// and selector_other.go falls back to a poll(2)-based implementation for
// other unix targets, all behind the same contract: register/select/close
// plus per-event batch delivery.
type selector struct {
	backend  pollBackend
	monitors map[int]*Monitor
}

// pollBackend is implemented per-OS (epoll/kqueue/poll).
type pollBackend interface {
	open() error
	add(fd int, interests Interest) error
	modify(fd int, interests Interest) error
	remove(fd int) error
	// wait blocks up to timeout (negative means forever) and appends
	// ready (fd, readiness) pairs into dst, returning the extended
	// slice. It returns promptly with an empty result on spurious
	// wakeups (EINTR) rather than erroring.
	wait(dst []readyFD, timeout timeoutSpec) ([]readyFD, error)
	close() error
}

// readyFD is one selector readiness report.
type readyFD struct {
	fd        int
	readiness Interest
}

// timeoutSpec mirrors epoll_wait's timeout argument: negative blocks
// forever, zero returns immediately, positive bounds the wait.
type timeoutSpec struct {
	negative bool
	d        durationMillis
}

type durationMillis int64

func newSelector(batchSize int) (*selector, error) {
	backend := newPlatformBackend(batchSize)
	if err := backend.open(); err != nil {
		return nil, err
	}
	return &selector{backend: backend, monitors: make(map[int]*Monitor)}, nil
}

// register creates and returns a Monitor for fd with the given initial
// interest set.
func (s *selector) register(fd int, interests Interest) (*Monitor, error) {
	if err := s.backend.add(fd, interests); err != nil {
		return nil, err
	}
	m := &Monitor{fd: fd, interests: interests, sel: s}
	s.monitors[fd] = m
	return m, nil
}

func (s *selector) modify(fd int, interests Interest) error {
	return s.backend.modify(fd, interests)
}

func (s *selector) remove(fd int) error {
	delete(s.monitors, fd)
	return s.backend.remove(fd)
}

// selectReady blocks in the backend for at most timeout and returns the
// Monitors that became ready, with their Readiness field updated from the
// report. Monitors for descriptors the caller already Close'd are skipped.
func (s *selector) selectReady(timeout timeoutSpec, scratch []readyFD) ([]*Monitor, []readyFD, error) {
	scratch, err := s.backend.wait(scratch[:0], timeout)
	if err != nil {
		return nil, scratch, err
	}
	ready := make([]*Monitor, 0, len(scratch))
	for _, rfd := range scratch {
		m, ok := s.monitors[rfd.fd]
		if !ok || m.closed {
			continue
		}
		m.readiness = rfd.readiness
		ready = append(ready, m)
	}
	return ready, scratch, nil
}

func (s *selector) close() error {
	return s.backend.close()
}
