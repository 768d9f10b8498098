package lightio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIOWatcherWaitReadableUnblocksOnWrite(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.NoError(t, unix.SetNonblock(int(r.Fd()), true))

	s := NewScheduler(DefaultOptions())
	var readErr error
	var n int
	var readableAfterWait bool
	s.Spawn(func(f *Fiber) (any, error) {
		watcher, err := NewIOWatcher(int(r.Fd()), InterestNone)
		if err != nil {
			readErr = err
			return nil, nil
		}
		defer watcher.Close()
		if _, err := watcher.WaitReadable(nil); err != nil {
			readErr = err
			return nil, nil
		}
		readableAfterWait = watcher.Readable()
		buf := make([]byte, 16)
		n, readErr = unix.Read(int(r.Fd()), buf)
		return nil, nil
	})
	s.Spawn(func(f *Fiber) (any, error) {
		require.NoError(t, f.Yield())
		_, err := w.Write([]byte("hi"))
		return nil, err
	})

	require.NoError(t, s.Run())
	require.NoError(t, readErr)
	require.True(t, readableAfterWait)
	require.Equal(t, 2, n)
}

func TestIOWatcherWaitTimesOut(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.NoError(t, unix.SetNonblock(int(r.Fd()), true))

	s := NewScheduler(DefaultOptions())
	var waitErr error
	s.Spawn(func(f *Fiber) (any, error) {
		watcher, err := NewIOWatcher(int(r.Fd()), InterestNone)
		require.NoError(t, err)
		defer watcher.Close()
		timeout := 0.01
		_, waitErr = watcher.WaitReadable(&timeout)
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.Error(t, waitErr)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, waitErr, &timeoutErr)
}

func TestIOWatcherCloseUnblocksWaiter(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.NoError(t, unix.SetNonblock(int(r.Fd()), true))

	s := NewScheduler(DefaultOptions())
	var waitErr error
	var watcher *IOWatcher
	s.Spawn(func(f *Fiber) (any, error) {
		var err error
		watcher, err = NewIOWatcher(int(r.Fd()), InterestNone)
		require.NoError(t, err)
		_, waitErr = watcher.WaitReadable(nil)
		return nil, nil
	})
	s.Spawn(func(f *Fiber) (any, error) {
		require.NoError(t, f.Yield())
		return nil, watcher.Close()
	})

	require.NoError(t, s.Run())
	require.Error(t, waitErr)
	var ioErr *IOError
	require.ErrorAs(t, waitErr, &ioErr)
}

func TestIOWatcherSecondWaiterRejected(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.NoError(t, unix.SetNonblock(int(r.Fd()), true))

	s := NewScheduler(DefaultOptions())
	var watcher *IOWatcher
	var secondErr error
	s.Spawn(func(f *Fiber) (any, error) {
		var err error
		watcher, err = NewIOWatcher(int(r.Fd()), InterestNone)
		require.NoError(t, err)
		defer watcher.Close()
		_, err = watcher.WaitReadable(nil)
		return nil, err
	})
	s.Spawn(func(f *Fiber) (any, error) {
		// By the time this fiber runs, the first fiber above has already
		// parked on the watcher (the scheduler never runs two fibers at
		// once), so this call must be rejected rather than silently
		// stealing the first fiber's waiter slot.
		_, secondErr = watcher.WaitReadable(nil)
		return nil, nil
	})
	s.Spawn(func(f *Fiber) (any, error) {
		require.NoError(t, f.Yield())
		require.NoError(t, f.Yield())
		_, err := w.Write([]byte("x"))
		return nil, err
	})

	require.NoError(t, s.Run())
	require.Error(t, secondErr)
	var schedErr *SchedulerError
	require.ErrorAs(t, secondErr, &schedErr)
}

func TestIOWatcherWaitAcrossSchedulersIsCrossThreadError(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	require.NoError(t, unix.SetNonblock(int(r.Fd()), true))

	s1 := NewScheduler(DefaultOptions())
	var watcher *IOWatcher
	s1.Spawn(func(f *Fiber) (any, error) {
		var err error
		watcher, err = NewIOWatcher(int(r.Fd()), InterestNone)
		return nil, err
	})
	require.NoError(t, s1.Run())
	require.NotNil(t, watcher)

	s2 := NewScheduler(DefaultOptions())
	var waitErr error
	s2.Spawn(func(f *Fiber) (any, error) {
		_, waitErr = watcher.WaitReadable(nil)
		return nil, nil
	})

	require.NoError(t, s2.Run())
	require.Error(t, waitErr)
	var crossErr *CrossThreadError
	require.ErrorAs(t, waitErr, &crossErr)
}
