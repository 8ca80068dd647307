package demoapp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAcquireBoom = errors.New("acquire boom")

type hookJournal struct {
	mu      sync.Mutex
	entries []string
}

func (j *hookJournal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *hookJournal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func journalHook(j *hookJournal, name string, acquireErr, releaseErr error) Hook {
	return NewHook(name, func(ctx context.Context, c *Container) (Release, error) {
		if acquireErr != nil {
			j.add("fail:" + name)
			return nil, acquireErr
		}
		j.add("acquire:" + name)
		return func(ctx context.Context) error {
			j.add("release:" + name)
			return releaseErr
		}, nil
	})
}

func newStack() *hookStack {
	return &hookStack{logger: nopLogger{}, emit: func(context.Context, string, map[string]any) {}}
}

func TestHookStack_AcquireInOrderReleaseInReverse(t *testing.T) {
	j := &hookJournal{}
	s := newStack()
	hooks := []Hook{journalHook(j, "a", nil, nil), journalHook(j, "b", nil, nil), journalHook(j, "c", nil, nil)}

	require.NoError(t, s.acquireAll(context.Background(), nil, hooks))
	require.NoError(t, s.releaseAll(context.Background()))

	assert.Equal(t, []string{
		"acquire:a", "acquire:b", "acquire:c",
		"release:c", "release:b", "release:a",
	}, j.list())
}

func TestHookStack_FailedAcquireRollsBack(t *testing.T) {
	j := &hookJournal{}
	s := newStack()
	hooks := []Hook{
		journalHook(j, "a", nil, nil),
		journalHook(j, "b", nil, nil),
		journalHook(j, "c", errAcquireBoom, nil),
		journalHook(j, "d", nil, nil),
	}

	err := s.acquireAll(context.Background(), nil, hooks)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHookAcquireFailed)
	assert.ErrorIs(t, err, errAcquireBoom)
	assert.Contains(t, err.Error(), "c")

	assert.Equal(t, []string{"acquire:a", "acquire:b", "fail:c", "release:b", "release:a"}, j.list())
	assert.Zero(t, s.count())
}

func TestHookStack_ReleaseFailureDoesNotStopOthers(t *testing.T) {
	j := &hookJournal{}
	s := newStack()
	errRelease := errors.New("release boom")
	hooks := []Hook{
		journalHook(j, "a", nil, nil),
		journalHook(j, "b", nil, errRelease),
		journalHook(j, "c", nil, nil),
	}
	require.NoError(t, s.acquireAll(context.Background(), nil, hooks))

	err := s.releaseAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHookReleaseFailed)
	assert.ErrorIs(t, err, errRelease)
	assert.Equal(t, []string{"acquire:a", "acquire:b", "acquire:c", "release:c", "release:b", "release:a"}, j.list())
}

func TestHookStack_PanicsAreContained(t *testing.T) {
	j := &hookJournal{}
	s := newStack()
	hooks := []Hook{
		journalHook(j, "a", nil, nil),
		NewHook("bad", func(ctx context.Context, c *Container) (Release, error) {
			panic("kaboom")
		}),
	}

	err := s.acquireAll(context.Background(), nil, hooks)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHookAcquireFailed)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, []string{"acquire:a", "release:a"}, j.list())

	s = newStack()
	require.NoError(t, s.acquireAll(context.Background(), nil, []Hook{
		NewHook("panicky-release", func(ctx context.Context, c *Container) (Release, error) {
			return func(context.Context) error { panic("late kaboom") }, nil
		}),
	}))
	err = s.releaseAll(context.Background())
	assert.ErrorIs(t, err, ErrHookReleaseFailed)
}

func TestHookStack_ReleaseRunsOnce(t *testing.T) {
	j := &hookJournal{}
	s := newStack()
	require.NoError(t, s.acquireAll(context.Background(), nil, []Hook{journalHook(j, "a", nil, nil)}))

	require.NoError(t, s.releaseAll(context.Background()))
	require.NoError(t, s.releaseAll(context.Background()))
	assert.Equal(t, []string{"acquire:a", "release:a"}, j.list())
}

func TestHookStack_CancelledContextStopsAcquisition(t *testing.T) {
	j := &hookJournal{}
	s := newStack()
	ctx, cancel := context.WithCancel(context.Background())

	hooks := []Hook{
		NewHook("a", func(ctx context.Context, c *Container) (Release, error) {
			j.add("acquire:a")
			cancel()
			return func(context.Context) error { j.add("release:a"); return nil }, nil
		}),
		journalHook(j, "b", nil, nil),
	}

	err := s.acquireAll(ctx, nil, hooks)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"acquire:a", "release:a"}, j.list())
}
