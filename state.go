package demoapp

import (
	"fmt"
	"sort"
	"sync"
)

// State is the Container-owned map through which hooks hand resources to
// the rest of the system. It is writable only while hooks are being
// acquired and read-only afterwards.
type State struct {
	mu     sync.RWMutex
	values map[string]any
	sealed bool
}

func newState() *State {
	return &State{values: make(map[string]any)}
}

// Publish stores v under name.
func (s *State) Publish(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return fmt.Errorf("%w: cannot publish %q", ErrStateSealed, name)
	}
	if _, exists := s.values[name]; exists {
		return fmt.Errorf("%w: %s", ErrStateKeyExists, name)
	}
	s.values[name] = v
	return nil
}

func (s *State) seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Get returns the raw value stored under name.
func (s *State) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

// Names lists the published keys.
func (s *State) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Lookup retrieves a published value by name and type.
func Lookup[T any](c *Container, name string) (T, bool) {
	var zero T
	v, ok := c.state.Get(name)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// MustLookup is Lookup for values whose absence is a programming error.
func MustLookup[T any](c *Container, name string) T {
	v, ok := Lookup[T](c, name)
	if !ok {
		panic(fmt.Errorf("%w: %s", ErrStateKeyNotFound, name))
	}
	return v
}
