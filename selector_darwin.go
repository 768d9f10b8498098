//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package lightio

import (
	"time"

	"golang.org/x/sys/unix"
)

// kqueueBackend wraps kqueue(2), the BSD/Darwin mirror of selector_linux.go's
// epollBackend: same register/modify/remove/wait contract, same batch-delivery
// shape, with read and write interest tracked as two independent kevent
// filters since kqueue has no combined read+write registration the way
// epoll does.
type kqueueBackend struct {
	kq        int
	eventBuf  []unix.Kevent_t
	batchSize int
}

func newPlatformBackend(batchSize int) pollBackend {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &kqueueBackend{batchSize: batchSize}
}

func (b *kqueueBackend) open() error {
	kq, err := unix.Kqueue()
	if err != nil {
		return err
	}
	b.kq = kq
	b.eventBuf = make([]unix.Kevent_t, b.batchSize)
	return nil
}

func (b *kqueueBackend) changeInterest(fd int, want Interest, have Interest) error {
	var changes []unix.Kevent_t
	addFilter := func(filter int16, enable bool) {
		flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
		if !enable {
			flags = unix.EV_DELETE
		}
		changes = append(changes, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: filter,
			Flags:  flags,
		})
	}
	wantRead, haveRead := want.has(InterestRead), have.has(InterestRead)
	wantWrite, haveWrite := want.has(InterestWrite), have.has(InterestWrite)
	if wantRead != haveRead {
		addFilter(unix.EVFILT_READ, wantRead)
	}
	if wantWrite != haveWrite {
		addFilter(unix.EVFILT_WRITE, wantWrite)
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(b.kq, changes, nil, nil)
	return err
}

func (b *kqueueBackend) add(fd int, interests Interest) error {
	return b.changeInterest(fd, interests, InterestNone)
}

// modify is called with the full desired interest set; since this
// backend tracks no separate "have" state of its own (the owning Monitor
// does, in selector.go), it always re-arms both filters to the
// requested set. Re-adding an already-armed filter is a harmless no-op
// in kqueue.
func (b *kqueueBackend) modify(fd int, interests Interest) error {
	return b.changeInterest(fd, interests, InterestNone)
}

func (b *kqueueBackend) remove(fd int) error {
	return b.changeInterest(fd, InterestNone, InterestReadWrite)
}

func (b *kqueueBackend) wait(dst []readyFD, timeout timeoutSpec) ([]readyFD, error) {
	var ts *unix.Timespec
	if !timeout.negative {
		spec := unix.NsecToTimespec((time.Duration(timeout.d) * time.Millisecond).Nanoseconds())
		ts = &spec
	}
	n, err := unix.Kevent(b.kq, nil, b.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	merged := make(map[int]Interest, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ev := b.eventBuf[i]
		fd := int(ev.Ident)
		var bit Interest
		switch ev.Filter {
		case unix.EVFILT_READ:
			bit = InterestRead
		case unix.EVFILT_WRITE:
			bit = InterestWrite
		}
		if _, seen := merged[fd]; !seen {
			order = append(order, fd)
		}
		merged[fd] |= bit
	}
	for _, fd := range order {
		dst = append(dst, readyFD{fd: fd, readiness: merged[fd]})
	}
	return dst, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kq)
}
