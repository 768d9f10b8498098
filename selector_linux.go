//go:build linux

package lightio

import (
	"golang.org/x/sys/unix"
)

// epollBackend wraps epoll(7): EpollCreate1 + EpollCtl + EpollWait via
// golang.org/x/sys/unix, with a preallocated event buffer reused across
// calls to avoid per-tick allocation.
type epollBackend struct {
	epfd      int
	eventBuf  []unix.EpollEvent
	batchSize int
}

func newPlatformBackend(batchSize int) pollBackend {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &epollBackend{batchSize: batchSize}
}

func (b *epollBackend) open() error {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	b.epfd = fd
	b.eventBuf = make([]unix.EpollEvent, b.batchSize)
	return nil
}

func interestToEpoll(i Interest) uint32 {
	var ev uint32
	if i.has(InterestRead) {
		ev |= unix.EPOLLIN
	}
	if i.has(InterestWrite) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func epollToInterest(mask uint32) Interest {
	var i Interest
	if mask&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
		i |= InterestRead
	}
	if mask&(unix.EPOLLOUT|unix.EPOLLERR) != 0 {
		i |= InterestWrite
	}
	return i
}

func (b *epollBackend) add(fd int, interests Interest) error {
	ev := &unix.EpollEvent{Events: interestToEpoll(interests), Fd: int32(fd)}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_ADD, fd, ev)
}

func (b *epollBackend) modify(fd int, interests Interest) error {
	ev := &unix.EpollEvent{Events: interestToEpoll(interests), Fd: int32(fd)}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

func (b *epollBackend) remove(fd int) error {
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (b *epollBackend) wait(dst []readyFD, timeout timeoutSpec) ([]readyFD, error) {
	ms := -1
	if !timeout.negative {
		ms = int(timeout.d)
	}
	n, err := unix.EpollWait(b.epfd, b.eventBuf, ms)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	for i := 0; i < n; i++ {
		dst = append(dst, readyFD{
			fd:        int(b.eventBuf[i].Fd),
			readiness: epollToInterest(b.eventBuf[i].Events),
		})
	}
	return dst, nil
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}
