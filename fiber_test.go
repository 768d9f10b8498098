package lightio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinReturnsResult(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var joined any
	var joinErr error

	child := s.Spawn(func(f *Fiber) (any, error) {
		return "child-result", nil
	})
	s.Spawn(func(f *Fiber) (any, error) {
		joined, joinErr = child.Join()
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.NoError(t, joinErr)
	require.Equal(t, "child-result", joined)
}

func TestJoinOnAlreadyDeadFiberReturnsImmediately(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	child := s.Spawn(func(f *Fiber) (any, error) {
		return "done", nil
	})
	require.NoError(t, s.Run())

	result, err := child.Join()
	require.NoError(t, err)
	require.Equal(t, "done", result)
}

func TestMultipleJoinersAreAllWoken(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	var results [2]any
	var errs [2]error

	child := s.Spawn(func(f *Fiber) (any, error) {
		// Yield so both joiners park on child before it finishes.
		require.NoError(t, f.Yield())
		return "shared", nil
	})
	for i := 0; i < 2; i++ {
		idx := i
		s.Spawn(func(f *Fiber) (any, error) {
			results[idx], errs[idx] = child.Join()
			return nil, nil
		})
	}

	require.NoError(t, s.Run())
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, "shared", results[0])
	require.Equal(t, "shared", results[1])
}

func TestJoinAcrossSchedulersIsCrossThreadError(t *testing.T) {
	other := NewScheduler(DefaultOptions())
	otherChild := other.Spawn(func(f *Fiber) (any, error) {
		return nil, SleepForever()
	})

	s := NewScheduler(DefaultOptions())
	var joinErr error
	s.Spawn(func(f *Fiber) (any, error) {
		_, joinErr = otherChild.Join()
		return nil, nil
	})

	require.NoError(t, s.Run())
	require.Error(t, joinErr)
	var crossErr *CrossThreadError
	require.ErrorAs(t, joinErr, &crossErr)
}

func TestJoinFromNonFiberGoroutineBlocksUntilDone(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	child := s.Spawn(func(f *Fiber) (any, error) {
		require.NoError(t, f.Yield())
		return "finished", nil
	})

	go func() {
		require.NoError(t, s.Run())
	}()

	result, err := child.Join()
	require.NoError(t, err)
	require.Equal(t, "finished", result)
}

func TestFiberGroupWaitAll(t *testing.T) {
	s := NewScheduler(DefaultOptions())
	group := NewFiberGroup()
	for i := 0; i < 4; i++ {
		id := i
		group.Spawn(s, func(f *Fiber) (any, error) {
			return id, nil
		})
	}

	require.NoError(t, s.Run())
	require.NoError(t, group.WaitAll())

	results, err := group.Results()
	require.NoError(t, err)
	require.ElementsMatch(t, []any{0, 1, 2, 3}, results)
}
