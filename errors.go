package demoapp

import (
	"errors"
)

// Container errors
var (
	// Construction errors
	ErrSettingsNil         = errors.New("settings snapshot is nil")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrDuplicateName       = errors.New("duplicate registration name")

	// Lifecycle errors
	ErrContainerAlreadyStarted = errors.New("container already started")
	ErrProviderFailed          = errors.New("provider failed")
	ErrHookAcquireFailed       = errors.New("hook acquisition failed")
	ErrHookReleaseFailed       = errors.New("hook release failed")
	ErrServerFailed            = errors.New("http server failed")
	ErrExitRequested           = errors.New("exit requested")

	// Shared state errors
	ErrStateSealed      = errors.New("shared state is sealed")
	ErrStateKeyExists   = errors.New("shared state key already published")
	ErrStateKeyNotFound = errors.New("shared state key not found")

	// Task supervisor errors
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskExists         = errors.New("task already launched")
	ErrTaskStillRunning   = errors.New("task has not reached a terminal state")
	ErrTaskPanicked       = errors.New("task panicked")
	ErrSupervisorShutdown = errors.New("task supervisor is shut down")
)
