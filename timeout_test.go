package lightio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeoutFuncRunsInlineWhenNonPositive(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var ran bool

	s.Spawn(func(f *Fiber) (any, error) {
		err := TimeoutFunc(0, nil, func() error {
			ran = true
			return nil
		})
		return nil, err
	})

	require.NoError(t, s.Run())
	require.True(t, ran)
}

func TestTimeoutFuncFiresDefaultError(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var timeoutErr error

	s.Spawn(func(f *Fiber) (any, error) {
		timeoutErr = TimeoutFunc(0.01, nil, func() error {
			return SleepForever()
		})
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.Error(t, timeoutErr)
	var te *TimeoutError
	require.ErrorAs(t, timeoutErr, &te)
}

func TestTimeoutFuncFiresCustomErrorClass(t *testing.T) {
	custom := errors.New("custom deadline exceeded")
	s := NewScheduler(DefaultOptions())
	var gotErr error

	s.Spawn(func(f *Fiber) (any, error) {
		gotErr = TimeoutFunc(0.01, custom, func() error {
			return SleepForever()
		})
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.ErrorIs(t, gotErr, custom)
}

func TestTimeoutCancelsOnNormalCompletion(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var afterTimeout bool

	s.Spawn(func(f *Fiber) (any, error) {
		err := TimeoutFunc(0.05, nil, func() error {
			return nil
		})
		if err != nil {
			return nil, err
		}
		// If the timer had not been canceled, it would fire while this
		// fiber sleeps well past the 0.05s deadline and inject an error
		// into a suspension point that no longer belongs to TimeoutFunc.
		if err := Sleep(0.08); err != nil {
			return nil, err
		}
		afterTimeout = true
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.True(t, afterTimeout)
}

func TestTimeoutOutsideFiberReturnsCrossThreadError(t *testing.T) {
	err := TimeoutFunc(1, nil, func() error { return nil })
	require.Error(t, err)
	var crossErr *CrossThreadError
	require.ErrorAs(t, err, &crossErr)
}
