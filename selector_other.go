//go:build !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd

package lightio

import (
	"sync"

	"golang.org/x/sys/unix"
)

// pollBackendFallback is the poll(2)-based Selector backend for unix
// targets without a dedicated epoll/kqueue implementation in this module.
// It rebuilds the pollfd slice on every wait call, which is O(registered
// fds) per tick instead of epoll/kqueue's O(ready fds); acceptable for the
// platforms that land here, which this runtime does not target for
// production scale.
type pollBackendFallback struct {
	mu  sync.Mutex
	fds map[int]Interest
}

func newPlatformBackend(batchSize int) pollBackend {
	_ = batchSize
	return &pollBackendFallback{fds: make(map[int]Interest)}
}

func (b *pollBackendFallback) open() error { return nil }

func (b *pollBackendFallback) add(fd int, interests Interest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fds[fd] = interests
	return nil
}

func (b *pollBackendFallback) modify(fd int, interests Interest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fds[fd] = interests
	return nil
}

func (b *pollBackendFallback) remove(fd int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.fds, fd)
	return nil
}

func interestToPollMask(i Interest) int16 {
	var mask int16
	if i.has(InterestRead) {
		mask |= unix.POLLIN
	}
	if i.has(InterestWrite) {
		mask |= unix.POLLOUT
	}
	return mask
}

func pollMaskToInterest(mask int16) Interest {
	var i Interest
	if mask&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
		i |= InterestRead
	}
	if mask&(unix.POLLOUT|unix.POLLERR) != 0 {
		i |= InterestWrite
	}
	return i
}

func (b *pollBackendFallback) wait(dst []readyFD, timeout timeoutSpec) ([]readyFD, error) {
	b.mu.Lock()
	pfds := make([]unix.PollFd, 0, len(b.fds))
	for fd, interests := range b.fds {
		pfds = append(pfds, unix.PollFd{Fd: int32(fd), Events: interestToPollMask(interests)})
	}
	b.mu.Unlock()

	ms := -1
	if !timeout.negative {
		ms = int(timeout.d)
	}
	n, err := unix.Poll(pfds, ms)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, err
	}
	if n == 0 {
		return dst, nil
	}
	for _, pfd := range pfds {
		if pfd.Revents == 0 {
			continue
		}
		dst = append(dst, readyFD{fd: int(pfd.Fd), readiness: pollMaskToInterest(pfd.Revents)})
	}
	return dst, nil
}

func (b *pollBackendFallback) close() error { return nil }
