package demoapp

import (
	"context"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Observer is notified of Container lifecycle events. Events follow the
// CloudEvents format. Observers are called synchronously and
// should return quickly.
type Observer interface {
	OnEvent(ctx context.Context, event cloudevents.Event) error
	ObserverID() string
}

// EventType constants for Container events, in reverse domain notation.
const (
	EventTypeContainerStarted  = "com.demoapp.container.started"
	EventTypeContainerStopping = "com.demoapp.container.stopping"
	EventTypeContainerStopped  = "com.demoapp.container.stopped"
	EventTypeExitRequested     = "com.demoapp.container.exit_requested"

	EventTypeProviderApplied = "com.demoapp.provider.applied"

	EventTypeHookAcquired = "com.demoapp.hook.acquired"
	EventTypeHookReleased = "com.demoapp.hook.released"
	EventTypeHookFailed   = "com.demoapp.hook.failed"

	EventTypeTaskPending   = "com.demoapp.task.pending"
	EventTypeTaskRunning   = "com.demoapp.task.running"
	EventTypeTaskCompleted = "com.demoapp.task.completed"
	EventTypeTaskFailed    = "com.demoapp.task.failed"
	EventTypeTaskCancelled = "com.demoapp.task.cancelled"
)

// taskEventTypes maps task states to event types.
var taskEventTypes = map[TaskState]string{
	TaskPending:   EventTypeTaskPending,
	TaskRunning:   EventTypeTaskRunning,
	TaskCompleted: EventTypeTaskCompleted,
	TaskFailed:    EventTypeTaskFailed,
	TaskCancelled: EventTypeTaskCancelled,
}

// ObserverFunc adapts a function into an Observer.
type ObserverFunc struct {
	ID      string
	Handler func(ctx context.Context, event cloudevents.Event) error
}

// OnEvent calls the handler.
func (f ObserverFunc) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.Handler(ctx, event)
}

// ObserverID returns the observer ID.
func (f ObserverFunc) ObserverID() string { return f.ID }

// NewCloudEvent creates a CloudEvent with a time-ordered ID.
func NewCloudEvent(eventType, source string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)
	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}
	return event
}

func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

type observerRegistration struct {
	observer   Observer
	eventTypes map[string]bool
}

// observerSet fans events out to registered observers.
type observerSet struct {
	mu        sync.RWMutex
	observers []observerRegistration
	logger    func() Logger
	source    string
}

func (s *observerSet) register(o Observer, eventTypes ...string) error {
	if o == nil {
		return fmt.Errorf("%w: nil observer", ErrInvalidRegistration)
	}
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.observers {
		if r.observer.ObserverID() == o.ObserverID() {
			return fmt.Errorf("%w: observer %s", ErrDuplicateName, o.ObserverID())
		}
	}
	s.observers = append(s.observers, observerRegistration{observer: o, eventTypes: types})
	return nil
}

func (s *observerSet) emit(ctx context.Context, eventType string, data map[string]any) {
	s.mu.RLock()
	regs := s.observers
	s.mu.RUnlock()
	if len(regs) == 0 {
		return
	}

	event := NewCloudEvent(eventType, s.source, data)
	if err := event.Validate(); err != nil {
		s.logger().Error("Invalid CloudEvent", "eventType", eventType, "error", err)
		return
	}
	for _, r := range regs {
		if len(r.eventTypes) > 0 && !r.eventTypes[eventType] {
			continue
		}
		s.deliver(ctx, r.observer, event)
	}
}

func (s *observerSet) deliver(ctx context.Context, o Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger().Error("Observer panicked", "observerID", o.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()
	if err := o.OnEvent(ctx, event); err != nil {
		s.logger().Error("Observer error", "observerID", o.ObserverID(), "event", event.Type(), "error", err)
	}
}
