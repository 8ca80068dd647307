package demoapp

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// Option configures a Container at construction.
type Option func(*Container) error

// WithHooks registers hooks. They are acquired in the given order and
// released in reverse.
func WithHooks(hooks ...Hook) Option {
	return func(c *Container) error {
		for i, h := range hooks {
			if h == nil || h.Name() == "" {
				return fmt.Errorf("%w: hook #%d is nil or unnamed", ErrInvalidRegistration, i)
			}
		}
		c.hooks = append(c.hooks, hooks...)
		return nil
	}
}

// WithTasks registers tasks launched once every hook is acquired.
func WithTasks(tasks ...Task) Option {
	return func(c *Container) error {
		for i, t := range tasks {
			if t == nil || t.Name() == "" {
				return fmt.Errorf("%w: task #%d is nil or unnamed", ErrInvalidRegistration, i)
			}
		}
		c.tasks = append(c.tasks, tasks...)
		return nil
	}
}

// WithProviders registers one-shot setup routines applied first in Run.
func WithProviders(providers ...Provider) Option {
	return func(c *Container) error {
		for i, p := range providers {
			if p == nil {
				return fmt.Errorf("%w: provider #%d is nil", ErrInvalidRegistration, i)
			}
		}
		c.providers = append(c.providers, providers...)
		return nil
	}
}

// WithRoutes registers route contributors, evaluated once in New.
func WithRoutes(contributors ...RouteContributor) Option {
	return func(c *Container) error {
		for i, rc := range contributors {
			if rc == nil {
				return fmt.Errorf("%w: route contributor #%d is nil", ErrInvalidRegistration, i)
			}
		}
		c.contributors = append(c.contributors, contributors...)
		return nil
	}
}

// WithMiddleware installs router middleware ahead of every route.
func WithMiddleware(middlewares ...func(http.Handler) http.Handler) Option {
	return func(c *Container) error {
		c.middlewares = append(c.middlewares, middlewares...)
		return nil
	}
}

// WithLogger sets the initial logger. Providers may replace it with UseLogger.
func WithLogger(logger Logger) Option {
	return func(c *Container) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidRegistration)
		}
		c.logger = logger
		return nil
	}
}

// WithObserver registers an observer, optionally filtered to event types.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(c *Container) error {
		return c.observers.register(observer, eventTypes...)
	}
}

// WithGracePeriod overrides server.shutdown_grace.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Container) error {
		if d < 0 {
			return fmt.Errorf("%w: negative grace period", ErrInvalidRegistration)
		}
		c.grace = d
		return nil
	}
}

// WithStopTimeout bounds HTTP shutdown, hook release and shutdown callbacks.
func WithStopTimeout(d time.Duration) Option {
	return func(c *Container) error {
		if d <= 0 {
			return fmt.Errorf("%w: stop timeout must be positive", ErrInvalidRegistration)
		}
		c.stopTimeout = d
		return nil
	}
}

// WithListener serves on ln instead of listening on server.host:server.port.
func WithListener(ln net.Listener) Option {
	return func(c *Container) error {
		c.listener = ln
		return nil
	}
}
