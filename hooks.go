package demoapp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Release undoes one hook acquisition. The Container runs it exactly once.
type Release func(ctx context.Context) error

// Hook is a long-lived resource scoped to the Container's run. Acquire may
// publish handles through Container.Publish; the returned Release is
// called on shutdown or when a later hook fails to acquire.
type Hook interface {
	Name() string
	Acquire(ctx context.Context, c *Container) (Release, error)
}

type funcHook struct {
	name string
	fn   func(ctx context.Context, c *Container) (Release, error)
}

func (h funcHook) Name() string { return h.name }

func (h funcHook) Acquire(ctx context.Context, c *Container) (Release, error) { return h.fn(ctx, c) }

// NewHook adapts a function into a Hook.
func NewHook(name string, fn func(ctx context.Context, c *Container) (Release, error)) Hook {
	return funcHook{name: name, fn: fn}
}

type acquiredHook struct {
	name    string
	release Release
	once    sync.Once
	err     error
}

func (h *acquiredHook) run(ctx context.Context) error {
	h.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				h.err = fmt.Errorf("%w: %s panicked: %v", ErrHookReleaseFailed, h.name, r)
			}
		}()
		if h.release == nil {
			return
		}
		if err := h.release(ctx); err != nil {
			h.err = fmt.Errorf("%w: %s: %w", ErrHookReleaseFailed, h.name, err)
		}
	})
	return h.err
}

// hookStack acquires hooks in order and releases them in reverse.
type hookStack struct {
	mu       sync.Mutex
	acquired []*acquiredHook
	logger   Logger
	emit     func(ctx context.Context, eventType string, data map[string]any)
}

// acquireAll acquires hooks in registration order. When one fails, every
// hook acquired so far is released in reverse order before the error,
// naming the failing hook, is returned.
func (s *hookStack) acquireAll(ctx context.Context, c *Container, hooks []Hook) error {
	for _, h := range hooks {
		name := h.Name()
		if err := ctx.Err(); err != nil {
			s.logger.Warn("Startup interrupted; rolling back hooks", "next", name)
			_ = s.releaseAll(context.WithoutCancel(ctx))
			return fmt.Errorf("%w: %s: startup interrupted: %w", ErrHookAcquireFailed, name, err)
		}

		release, err := acquireOne(ctx, c, h)
		if err != nil {
			s.logger.Error("Hook acquisition failed; rolling back", "hook", name, "acquired", s.count(), "error", err)
			s.emit(ctx, EventTypeHookFailed, map[string]any{"hook": name, "error": err.Error()})
			_ = s.releaseAll(context.WithoutCancel(ctx))
			return fmt.Errorf("%w: %s: %w", ErrHookAcquireFailed, name, err)
		}

		s.mu.Lock()
		s.acquired = append(s.acquired, &acquiredHook{name: name, release: release})
		s.mu.Unlock()
		s.logger.Info("Hook acquired", "hook", name)
		s.emit(ctx, EventTypeHookAcquired, map[string]any{"hook": name})
	}
	return nil
}

func acquireOne(ctx context.Context, c *Container, h Hook) (release Release, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during acquisition: %v", r)
		}
	}()
	return h.Acquire(ctx, c)
}

// releaseAll releases every acquired hook in reverse acquisition order.
// Failures are logged and joined; they never stop later releases.
func (s *hookStack) releaseAll(ctx context.Context) error {
	s.mu.Lock()
	acquired := s.acquired
	s.acquired = nil
	s.mu.Unlock()

	var errs []error
	for _, h := range slices.Backward(acquired) {
		if err := h.run(ctx); err != nil {
			s.logger.Error("Hook release failed", "hook", h.name, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("Hook released", "hook", h.name)
		s.emit(ctx, EventTypeHookReleased, map[string]any{"hook": h.name})
	}
	return errors.Join(errs...)
}

func (s *hookStack) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.acquired)
}
