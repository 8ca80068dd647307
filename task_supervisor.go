package demoapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type taskEntry struct {
	name            string
	unit            UnitOfWork
	record          TaskRecord
	cancel          context.CancelFunc
	cancelRequested bool
	settled         chan struct{}

	// version counts transitions under Supervisor.mu; delivered is the last
	// version passed to onChange, guarded by notifyMu.
	version   uint64
	notifyMu  sync.Mutex
	delivered uint64
}

// snapshot must be called with Supervisor.mu held after a transition.
func (e *taskEntry) snapshot() (TaskRecord, uint64) {
	e.version++
	return e.record, e.version
}

// Supervisor runs units of work in their own goroutines and tracks their
// state. Failures are recorded, never retried.
type Supervisor struct {
	mu       sync.RWMutex
	tasks    map[string]*taskEntry
	order    []string
	closed   bool
	logger   Logger
	onChange func(TaskRecord)
}

// NewSupervisor creates a supervisor. onChange, when set, is called after
// state transitions, outside the supervisor lock. Per task, records reach
// onChange in transition order; a transition superseded before delivery is
// skipped.
func NewSupervisor(logger Logger, onChange func(TaskRecord)) *Supervisor {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Supervisor{
		tasks:    make(map[string]*taskEntry),
		logger:   logger,
		onChange: onChange,
	}
}

// Launch starts unit under name. Names are unique for the supervisor's lifetime.
func (s *Supervisor) Launch(name string, unit UnitOfWork) (*TaskHandle, error) {
	if name == "" || unit == nil {
		return nil, fmt.Errorf("%w: task needs a name and a unit of work", ErrInvalidRegistration)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSupervisorShutdown
	}
	if _, exists := s.tasks[name]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTaskExists, name)
	}
	e, ctx := s.newEntry(name, unit, 0)
	s.order = append(s.order, name)
	rec, v := e.snapshot()
	s.mu.Unlock()

	s.notify(e, rec, v)
	go s.run(ctx, e)
	return &TaskHandle{entry: e, sup: s}, nil
}

// newEntry must be called with s.mu held.
func (s *Supervisor) newEntry(name string, unit UnitOfWork, restarts int) (*taskEntry, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	e := &taskEntry{
		name:    name,
		unit:    unit,
		record:  TaskRecord{Name: name, State: TaskPending, Restarts: restarts},
		cancel:  cancel,
		settled: make(chan struct{}),
	}
	s.tasks[name] = e
	return e, ctx
}

func (s *Supervisor) run(ctx context.Context, e *taskEntry) {
	defer e.cancel()

	s.mu.Lock()
	if e.record.State.Terminal() {
		s.mu.Unlock()
		return
	}
	e.record.State = TaskRunning
	e.record.StartedAt = time.Now()
	rec, v := e.snapshot()
	s.mu.Unlock()
	s.logger.Debug("Task started", "task", e.name, "restarts", rec.Restarts)
	s.notify(e, rec, v)

	s.finish(e, invoke(ctx, e.unit))
}

func invoke(ctx context.Context, unit UnitOfWork) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return unit(ctx)
}

func (s *Supervisor) finish(e *taskEntry, err error) {
	s.mu.Lock()
	if e.record.State.Terminal() {
		s.mu.Unlock()
		s.logger.Debug("Task returned after being force-cancelled; result ignored", "task", e.name, "error", err)
		return
	}
	// a clean return is a completion even when cancellation was requested
	switch {
	case err == nil:
		e.record.State = TaskCompleted
	case e.cancelRequested:
		e.record.State = TaskCancelled
		if !errors.Is(err, context.Canceled) {
			e.record.Err = err
		}
	default:
		e.record.State = TaskFailed
		e.record.Err = err
	}
	e.record.FinishedAt = time.Now()
	rec, v := e.snapshot()
	close(e.settled)
	s.mu.Unlock()

	switch rec.State {
	case TaskFailed:
		s.logger.Error("Task failed", "task", rec.Name, "error", rec.Err)
	case TaskCancelled:
		s.logger.Info("Task cancelled", "task", rec.Name)
	default:
		s.logger.Info("Task completed", "task", rec.Name, "duration", rec.FinishedAt.Sub(rec.StartedAt))
	}
	s.notify(e, rec, v)
}

// Status returns the current record of the named task.
func (s *Supervisor) Status(name string) (TaskRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[name]
	if !ok {
		return TaskRecord{}, false
	}
	return e.record, true
}

// List returns every task record in launch order.
func (s *Supervisor) List() []TaskRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskRecord, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tasks[name].record)
	}
	return out
}

// Cancel requests cancellation of the named task. Cancelling a terminal
// task is a no-op. Cancellation is cooperative: the state becomes
// cancelled once the unit of work returns.
func (s *Supervisor) Cancel(name string) error {
	s.mu.RLock()
	e, ok := s.tasks[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	s.cancelEntry(e)
	return nil
}

func (s *Supervisor) cancelEntry(e *taskEntry) {
	s.mu.Lock()
	if e.record.State.Terminal() || e.cancelRequested {
		s.mu.Unlock()
		return
	}
	e.cancelRequested = true
	s.mu.Unlock()

	e.cancel()
	s.logger.Info("Task cancellation requested", "task", e.name)
}

// Restart launches a terminal task again under the same name with a fresh record.
func (s *Supervisor) Restart(name string) (*TaskHandle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSupervisorShutdown
	}
	old, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	if !old.record.State.Terminal() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is %s", ErrTaskStillRunning, name, old.record.State)
	}
	e, ctx := s.newEntry(name, old.unit, old.record.Restarts+1)
	rec, v := e.snapshot()
	s.mu.Unlock()

	s.logger.Info("Task restarted", "task", name, "restarts", rec.Restarts)
	s.notify(e, rec, v)
	go s.run(ctx, e)
	return &TaskHandle{entry: e, sup: s}, nil
}

// Shutdown refuses new launches, cancels every unfinished task and waits up
// to grace for them to acknowledge. Tasks still running afterwards are
// marked cancelled regardless; their names are returned.
func (s *Supervisor) Shutdown(grace time.Duration) []string {
	s.mu.Lock()
	s.closed = true
	var pending []*taskEntry
	for _, name := range s.order {
		e := s.tasks[name]
		if e.record.State.Terminal() {
			continue
		}
		e.cancelRequested = true
		pending = append(pending, e)
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	s.logger.Info("Cancelling tasks", "count", len(pending), "grace", grace)
	for _, e := range pending {
		e.cancel()
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	var forced []string
	expired := false
	for _, e := range pending {
		if !expired {
			select {
			case <-e.settled:
				continue
			case <-deadline.C:
				expired = true
			}
		}
		select {
		case <-e.settled:
			continue
		default:
		}
		if s.force(e) {
			forced = append(forced, e.name)
		}
	}
	return forced
}

func (s *Supervisor) force(e *taskEntry) bool {
	s.mu.Lock()
	if e.record.State.Terminal() {
		s.mu.Unlock()
		return false
	}
	e.record.State = TaskCancelled
	e.record.Forced = true
	e.record.FinishedAt = time.Now()
	rec, v := e.snapshot()
	close(e.settled)
	s.mu.Unlock()

	s.logger.Warn("Task ignored cancellation within the grace period; marked cancelled", "task", rec.Name)
	s.notify(e, rec, v)
	return true
}

func (s *Supervisor) notify(e *taskEntry, rec TaskRecord, version uint64) {
	if s.onChange == nil {
		return
	}
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if version <= e.delivered {
		return
	}
	e.delivered = version
	s.onChange(rec)
}
