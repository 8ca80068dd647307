package demoapp

import (
	"context"
	"time"
)

// TaskState is a position in the task state machine:
// pending -> running -> {completed | failed | cancelled}.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// Terminal reports whether no further transition can happen.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// UnitOfWork is the body of a supervised task. It must return promptly
// once ctx is done.
type UnitOfWork func(ctx context.Context) error

// TaskRecord is a point-in-time copy of a task's status.
type TaskRecord struct {
	Name       string
	State      TaskState
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
	Restarts   int

	// Forced is set when the task ignored cancellation past the grace period.
	Forced bool
}

// Started reports whether the task left the pending state.
func (r TaskRecord) Started() bool { return r.State != TaskPending }

// Done reports whether the task reached a terminal state.
func (r TaskRecord) Done() bool { return r.State.Terminal() }

// Cancelled reports whether the task ended by cancellation.
func (r TaskRecord) Cancelled() bool { return r.State == TaskCancelled }

// Exception summarizes the captured failure, or returns "" when there is none.
func (r TaskRecord) Exception() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Task is a named unit of work registered with the Container. It receives
// the Container for access to shared state.
type Task interface {
	Name() string
	Run(ctx context.Context, c *Container) error
}

type funcTask struct {
	name string
	fn   func(ctx context.Context, c *Container) error
}

func (t funcTask) Name() string { return t.name }

func (t funcTask) Run(ctx context.Context, c *Container) error { return t.fn(ctx, c) }

// NewTask adapts a function into a Task.
func NewTask(name string, fn func(ctx context.Context, c *Container) error) Task {
	return funcTask{name: name, fn: fn}
}

// TaskHandle refers to one launch of a task. A restart produces a new handle.
type TaskHandle struct {
	entry *taskEntry
	sup   *Supervisor
}

// Name returns the task name.
func (h *TaskHandle) Name() string { return h.entry.name }

// Done is closed once this launch reaches a terminal state.
func (h *TaskHandle) Done() <-chan struct{} { return h.entry.settled }

// Record returns the current record of this launch.
func (h *TaskHandle) Record() TaskRecord {
	h.sup.mu.RLock()
	defer h.sup.mu.RUnlock()
	return h.entry.record
}

// Cancel requests cancellation of this launch.
func (h *TaskHandle) Cancel() {
	h.sup.cancelEntry(h.entry)
}

// Wait blocks until this launch is terminal or ctx is done.
func (h *TaskHandle) Wait(ctx context.Context) (TaskRecord, error) {
	select {
	case <-h.entry.settled:
		return h.Record(), nil
	case <-ctx.Done():
		return h.Record(), ctx.Err()
	}
}
