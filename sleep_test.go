package lightio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSleepZeroYieldsOnce(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var order []int

	s.Spawn(func(f *Fiber) (any, error) {
		order = append(order, 1)
		require.NoError(t, Sleep(0))
		order = append(order, 3)
		return nil, nil
	})
	s.Spawn(func(f *Fiber) (any, error) {
		order = append(order, 2)
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestSleepPositiveDurationElapsesAtLeastRequested(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var ranAfterWake bool
	start := time.Now()

	s.Spawn(func(f *Fiber) (any, error) {
		require.NoError(t, Sleep(0.01))
		ranAfterWake = true
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.True(t, ranAfterWake)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestSleepForeverOnlyWokenByExplicitWake(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var resumed bool

	sleeper := s.Spawn(func(f *Fiber) (any, error) {
		if err := SleepForever(); err != nil {
			return nil, err
		}
		resumed = true
		return nil, nil
	})
	s.Spawn(func(f *Fiber) (any, error) {
		require.NoError(t, f.Yield())
		s.wakeFiber(sleeper, nil)
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.True(t, resumed)
}

func TestSleepOutsideFiberReturnsCrossThreadError(t *testing.T) {
	err := Sleep(1)
	require.Error(t, err)
	var crossErr *CrossThreadError
	require.ErrorAs(t, err, &crossErr)
}
