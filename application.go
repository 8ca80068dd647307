// Package demoapp provides the application container: it applies
// providers, acquires hooks in order, launches supervised tasks, serves
// HTTP until the host or a task asks to stop, then cancels tasks and
// releases hooks in reverse order.
package demoapp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/demoapp/settings"
)

const defaultStopTimeout = 30 * time.Second

// Provider is a one-shot setup routine applied at the start of Run.
// Providers may replace the logger, add routes, wrap the served handler,
// register observers and shutdown callbacks. An error aborts startup.
type Provider func(c *Container) error

// Container is the composition root.
type Container struct {
	snapshot *settings.Snapshot
	settings settings.Settings

	hooks        []Hook
	tasks        []Task
	providers    []Provider
	contributors []RouteContributor
	middlewares  []func(http.Handler) http.Handler

	router      chi.Router
	routeGroups []string

	mu         sync.RWMutex
	logger     Logger
	wrappers   []func(http.Handler) http.Handler
	onShutdown []func(ctx context.Context) error

	state      *State
	observers  *observerSet
	supervisor atomic.Pointer[Supervisor]

	grace       time.Duration
	stopTimeout time.Duration
	listener    net.Listener

	started       atomic.Bool
	exitOnce      sync.Once
	exitCh        chan struct{}
	exitRequested atomic.Bool
	ready         chan struct{}
	addr          atomic.Value
}

// New builds a Container from a resolved settings snapshot. Registrations
// are validated here; route contributors are evaluated here.
func New(snapshot *settings.Snapshot, opts ...Option) (*Container, error) {
	if snapshot == nil {
		return nil, ErrSettingsNil
	}
	s := snapshot.Settings()
	c := &Container{
		snapshot:    snapshot,
		settings:    s,
		logger:      nopLogger{},
		state:       newState(),
		grace:       s.Server.ShutdownGrace,
		stopTimeout: defaultStopTimeout,
		exitCh:      make(chan struct{}),
		ready:       make(chan struct{}),
	}
	c.observers = &observerSet{logger: c.Logger, source: "demoapp.container"}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.checkNames(); err != nil {
		return nil, err
	}

	c.router = chi.NewRouter()
	c.router.Use(middleware.RequestID, middleware.Recoverer)
	c.router.Use(c.middlewares...)
	c.mountRoutes()
	return c, nil
}

func (c *Container) checkNames() error {
	seen := make(map[string]bool, len(c.hooks))
	for _, h := range c.hooks {
		if seen[h.Name()] {
			return fmt.Errorf("%w: %w: hook %s", ErrInvalidRegistration, ErrDuplicateName, h.Name())
		}
		seen[h.Name()] = true
	}
	seen = make(map[string]bool, len(c.tasks))
	for _, t := range c.tasks {
		if seen[t.Name()] {
			return fmt.Errorf("%w: %w: task %s", ErrInvalidRegistration, ErrDuplicateName, t.Name())
		}
		seen[t.Name()] = true
	}
	return nil
}

// Settings returns a copy of the resolved settings.
func (c *Container) Settings() settings.Settings {
	return c.settings.Clone()
}

// Snapshot returns the settings snapshot the Container was built from.
func (c *Container) Snapshot() *settings.Snapshot {
	return c.snapshot
}

// Logger returns the current logger.
func (c *Container) Logger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}

// UseLogger replaces the logger. Nil is ignored.
func (c *Container) UseLogger(logger Logger) {
	if logger == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// Router returns the root router so providers can add routes.
func (c *Container) Router() chi.Router {
	return c.router
}

// WrapHandler wraps the served handler. Wrappers registered later sit further out.
func (c *Container) WrapHandler(wrap func(http.Handler) http.Handler) {
	if wrap == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wrappers = append(c.wrappers, wrap)
}

// OnShutdown registers a callback run after hooks are released, in reverse
// registration order.
func (c *Container) OnShutdown(fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onShutdown = append(c.onShutdown, fn)
}

// RegisterObserver adds an observer after construction.
func (c *Container) RegisterObserver(observer Observer, eventTypes ...string) error {
	return c.observers.register(observer, eventTypes...)
}

// Publish stores a handle in shared state. Only valid while hooks are acquired.
func (c *Container) Publish(name string, v any) error {
	return c.state.Publish(name, v)
}

// State exposes the shared state for read access.
func (c *Container) State() *State {
	return c.state
}

// Handler returns the full HTTP handler: the router, mounted under
// server.root_path when set, inside every registered wrapper.
func (c *Container) Handler() http.Handler {
	var h http.Handler = c.router
	if root := c.settings.Server.RootPath; root != "" && root != "/" {
		mux := chi.NewRouter()
		mux.Mount(root, c.router)
		h = mux
	}
	c.mu.RLock()
	wrappers := slices.Clone(c.wrappers)
	c.mu.RUnlock()
	for _, wrap := range wrappers {
		h = wrap(h)
	}
	return h
}

// Ready is closed once hooks are acquired, tasks launched and the listener bound.
func (c *Container) Ready() <-chan struct{} {
	return c.ready
}

// Addr returns the bound listener address once Ready is closed.
func (c *Container) Addr() net.Addr {
	if a, ok := c.addr.Load().(net.Addr); ok {
		return a
	}
	return nil
}

// ExitSoon asks the Container to shut down. It is safe to call from any
// goroutine any number of times; only the first call has an effect. It
// does not cancel tasks itself.
func (c *Container) ExitSoon() {
	c.exitOnce.Do(func() {
		c.exitRequested.Store(true)
		close(c.exitCh)
		c.Logger().Warn("Exit requested")
		c.observers.emit(context.Background(), EventTypeExitRequested, nil)
	})
}

// ExitRequested reports whether ExitSoon was called.
func (c *Container) ExitRequested() bool {
	return c.exitRequested.Load()
}

// Supervisor returns the task supervisor, or nil before Run.
func (c *Container) Supervisor() *Supervisor {
	return c.supervisor.Load()
}

// SubmittedTasks returns the record of every launched task by name.
func (c *Container) SubmittedTasks() map[string]TaskRecord {
	out := make(map[string]TaskRecord)
	sup := c.Supervisor()
	if sup == nil {
		return out
	}
	for _, rec := range sup.List() {
		out[rec.Name] = rec
	}
	return out
}

// TaskList returns task records in launch order.
func (c *Container) TaskList() []TaskRecord {
	if sup := c.Supervisor(); sup != nil {
		return sup.List()
	}
	return nil
}

// CancelTask requests cancellation of a launched task.
func (c *Container) CancelTask(name string) error {
	sup := c.Supervisor()
	if sup == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return sup.Cancel(name)
}

// RestartTask relaunches a terminal task.
func (c *Container) RestartTask(name string) (*TaskHandle, error) {
	sup := c.Supervisor()
	if sup == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return sup.Restart(name)
}

// Run applies providers, acquires hooks, launches tasks and serves HTTP
// until ctx is done, ExitSoon is called or the server fails. It then stops
// the server, cancels tasks within the grace period, releases hooks in
// reverse order and runs shutdown callbacks.
//
// Run returns nil after a host-initiated shutdown and ErrExitRequested
// after ExitSoon.
func (c *Container) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrContainerAlreadyStarted
	}

	for i, p := range c.providers {
		if err := p(c); err != nil {
			c.runShutdownCallbacks()
			return fmt.Errorf("%w: provider #%d: %w", ErrProviderFailed, i, err)
		}
		c.observers.emit(ctx, EventTypeProviderApplied, map[string]any{"index": i})
	}
	logger := c.Logger()

	sup := NewSupervisor(logger, c.onTaskChange)
	c.supervisor.Store(sup)

	stack := &hookStack{logger: logger, emit: c.observers.emit}
	if err := stack.acquireAll(ctx, c, c.hooks); err != nil {
		c.runShutdownCallbacks()
		return err
	}
	c.state.seal()

	ln := c.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", c.settings.Server.Addr())
		if err != nil {
			c.stop(nil, sup, stack)
			return fmt.Errorf("%w: %w", ErrServerFailed, err)
		}
	}
	srv := &http.Server{
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	for _, t := range c.tasks {
		if _, err := sup.Launch(t.Name(), bindTask(t, c)); err != nil {
			logger.Error("Task launch failed", "task", t.Name(), "error", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	c.addr.Store(ln.Addr())
	close(c.ready)
	logger.Info("Container started", "address", ln.Addr().String(), "hooks", len(c.hooks), "tasks", len(c.tasks), "routes", c.routeGroups)
	c.observers.emit(ctx, EventTypeContainerStarted, map[string]any{"address": ln.Addr().String()})

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown requested by host")
	case <-c.exitCh:
		logger.Warn("Shutdown requested by exit signal")
		runErr = ErrExitRequested
	case err := <-serveErr:
		logger.Error("HTTP server failed", "error", err)
		runErr = fmt.Errorf("%w: %w", ErrServerFailed, err)
	}

	c.stop(srv, sup, stack)
	return runErr
}

func bindTask(t Task, c *Container) UnitOfWork {
	return func(ctx context.Context) error {
		return t.Run(ctx, c)
	}
}

func (c *Container) stop(srv *http.Server, sup *Supervisor, stack *hookStack) {
	logger := c.Logger()
	c.observers.emit(context.Background(), EventTypeContainerStopping, nil)

	ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
	}
	if forced := sup.Shutdown(c.grace); len(forced) > 0 {
		logger.Warn("Tasks force-cancelled after grace period", "tasks", forced, "grace", c.grace)
	}
	if err := stack.releaseAll(ctx); err != nil {
		logger.Warn("Some hooks failed to release", "error", err)
	}
	c.runShutdownCallbacks()

	logger.Info("Container stopped")
	c.observers.emit(context.Background(), EventTypeContainerStopped, nil)
}

func (c *Container) runShutdownCallbacks() {
	c.mu.RLock()
	callbacks := slices.Clone(c.onShutdown)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.stopTimeout)
	defer cancel()
	logger := c.Logger()
	for _, fn := range slices.Backward(callbacks) {
		if err := fn(ctx); err != nil {
			logger.Error("Shutdown callback failed", "error", err)
		}
	}
}

func (c *Container) onTaskChange(rec TaskRecord) {
	data := map[string]any{"task": rec.Name, "restarts": rec.Restarts}
	if rec.Err != nil {
		data["error"] = rec.Err.Error()
	}
	if rec.Forced {
		data["forced"] = true
	}
	c.observers.emit(context.Background(), taskEventTypes[rec.State], data)
}
