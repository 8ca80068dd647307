package demoapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTaskBoom = errors.New("task boom")

func waitFor(t *testing.T, h *TaskHandle) TaskRecord {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	rec, err := h.Wait(ctx)
	require.NoError(t, err, "task %s did not settle", h.Name())
	return rec
}

func blockUntilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisor_Completed(t *testing.T) {
	s := NewSupervisor(nil, nil)
	h, err := s.Launch("ok", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	rec := waitFor(t, h)
	assert.Equal(t, TaskCompleted, rec.State)
	assert.True(t, rec.Done())
	assert.True(t, rec.Started())
	assert.Empty(t, rec.Exception())
	assert.False(t, rec.FinishedAt.Before(rec.StartedAt))
}

func TestSupervisor_FailureIsIsolatedAndNotRetried(t *testing.T) {
	s := NewSupervisor(nil, nil)
	var calls int
	var mu sync.Mutex
	failing, err := s.Launch("failing", func(ctx context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errTaskBoom
	})
	require.NoError(t, err)
	healthy, err := s.Launch("healthy", blockUntilCancelled)
	require.NoError(t, err)

	rec := waitFor(t, failing)
	assert.Equal(t, TaskFailed, rec.State)
	assert.ErrorIs(t, rec.Err, errTaskBoom)
	assert.Equal(t, "task boom", rec.Exception())

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()

	other, ok := s.Status("healthy")
	require.True(t, ok)
	assert.Equal(t, TaskRunning, other.State)

	healthy.Cancel()
	assert.Equal(t, TaskCancelled, waitFor(t, healthy).State)
}

func TestSupervisor_PanicBecomesFailure(t *testing.T) {
	s := NewSupervisor(nil, nil)
	h, err := s.Launch("panics", func(ctx context.Context) error { panic("oh no") })
	require.NoError(t, err)

	rec := waitFor(t, h)
	assert.Equal(t, TaskFailed, rec.State)
	assert.ErrorIs(t, rec.Err, ErrTaskPanicked)
	assert.Contains(t, rec.Exception(), "oh no")
}

func TestSupervisor_Cancel(t *testing.T) {
	s := NewSupervisor(nil, nil)
	h, err := s.Launch("loop", blockUntilCancelled)
	require.NoError(t, err)

	require.NoError(t, s.Cancel("loop"))
	rec := waitFor(t, h)
	assert.Equal(t, TaskCancelled, rec.State)
	assert.True(t, rec.Cancelled())
	assert.NoError(t, rec.Err)

	// cancelling a terminal task changes nothing
	require.NoError(t, s.Cancel("loop"))
	after, _ := s.Status("loop")
	assert.Equal(t, TaskCancelled, after.State)

	assert.ErrorIs(t, s.Cancel("missing"), ErrTaskNotFound)
}

func TestSupervisor_CancelledTaskKeepsUnexpectedError(t *testing.T) {
	s := NewSupervisor(nil, nil)
	h, err := s.Launch("cleanup-fails", func(ctx context.Context) error {
		<-ctx.Done()
		return errTaskBoom
	})
	require.NoError(t, err)

	h.Cancel()
	rec := waitFor(t, h)
	assert.Equal(t, TaskCancelled, rec.State)
	assert.ErrorIs(t, rec.Err, errTaskBoom)
}

func TestSupervisor_LaunchValidation(t *testing.T) {
	s := NewSupervisor(nil, nil)
	_, err := s.Launch("", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidRegistration)
	_, err = s.Launch("x", nil)
	assert.ErrorIs(t, err, ErrInvalidRegistration)

	_, err = s.Launch("dup", blockUntilCancelled)
	require.NoError(t, err)
	_, err = s.Launch("dup", blockUntilCancelled)
	assert.ErrorIs(t, err, ErrTaskExists)

	s.Shutdown(time.Second)
	_, err = s.Launch("late", blockUntilCancelled)
	assert.ErrorIs(t, err, ErrSupervisorShutdown)
}

func TestSupervisor_Restart(t *testing.T) {
	s := NewSupervisor(nil, nil)
	var runs int
	var mu sync.Mutex
	h, err := s.Launch("job", func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		runs++
		if runs == 1 {
			return errTaskBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, waitFor(t, h).State)

	h2, err := s.Restart("job")
	require.NoError(t, err)
	rec := waitFor(t, h2)
	assert.Equal(t, TaskCompleted, rec.State)
	assert.Equal(t, 1, rec.Restarts)
	assert.NoError(t, rec.Err)

	_, err = s.Restart("nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = s.Launch("busy", blockUntilCancelled)
	require.NoError(t, err)
	_, err = s.Restart("busy")
	assert.ErrorIs(t, err, ErrTaskStillRunning)
}

func TestSupervisor_ListKeepsLaunchOrder(t *testing.T) {
	s := NewSupervisor(nil, nil)
	for _, name := range []string{"c", "a", "b"} {
		_, err := s.Launch(name, blockUntilCancelled)
		require.NoError(t, err)
	}
	var names []string
	for _, rec := range s.List() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
	s.Shutdown(time.Second)
}

func TestSupervisor_ShutdownForcesStubbornTasks(t *testing.T) {
	s := NewSupervisor(nil, nil)
	release := make(chan struct{})
	defer close(release)

	polite, err := s.Launch("polite", blockUntilCancelled)
	require.NoError(t, err)
	stubborn, err := s.Launch("stubborn", func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	done, err := s.Launch("done", func(context.Context) error { return nil })
	require.NoError(t, err)
	waitFor(t, done)

	start := time.Now()
	forced := s.Shutdown(50 * time.Millisecond)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{"stubborn"}, forced)

	assert.Equal(t, TaskCancelled, polite.Record().State)
	assert.False(t, polite.Record().Forced)
	rec := stubborn.Record()
	assert.Equal(t, TaskCancelled, rec.State)
	assert.True(t, rec.Forced)
	assert.Equal(t, TaskCompleted, done.Record().State)
}

func TestSupervisor_StateTransitionsAreReported(t *testing.T) {
	var mu sync.Mutex
	var seen []TaskState
	s := NewSupervisor(nil, func(rec TaskRecord) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, rec.State)
	})
	h, err := s.Launch("observed", func(context.Context) error { return nil })
	require.NoError(t, err)
	waitFor(t, h)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []TaskState{TaskPending, TaskRunning, TaskCompleted}, seen)
}

func TestSupervisor_CleanReturnAfterCancelIsCompleted(t *testing.T) {
	s := NewSupervisor(nil, nil)
	h, err := s.Launch("drains", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	forced := s.Shutdown(time.Second)
	assert.Empty(t, forced)
	rec := waitFor(t, h)
	assert.Equal(t, TaskCompleted, rec.State)
	assert.NoError(t, rec.Err)
	assert.False(t, rec.Forced)
}

func TestSupervisor_TransitionsArriveInOrderPerTask(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]TaskState{}
	s := NewSupervisor(nil, func(rec TaskRecord) {
		mu.Lock()
		defer mu.Unlock()
		seen[rec.Name] = append(seen[rec.Name], rec.State)
	})

	const n = 50
	handles := make([]*TaskHandle, 0, n)
	for i := range n {
		h, err := s.Launch(fmt.Sprintf("task-%02d", i), func(context.Context) error { return nil })
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		waitFor(t, h)
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, states := range seen {
			if len(states) != 3 {
				return false
			}
		}
		return len(seen) == n
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for name, states := range seen {
		assert.Equal(t, []TaskState{TaskPending, TaskRunning, TaskCompleted}, states, name)
	}
}
