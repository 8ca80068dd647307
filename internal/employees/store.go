package employees

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrDatabaseNotFound = errors.New("employee database not found")
	ErrDatabaseCorrupt  = errors.New("employee database is not valid JSON")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidEmployee  = errors.New("invalid employee")
)

// Store is an in-memory view of the employee file. Mutations are written
// back to the file.
type Store struct {
	mu       sync.RWMutex
	path     string
	byID     map[string]Employee
	order    []string
	validate *validator.Validate
}

// Open loads the database at path, which must exist.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDatabaseNotFound, path, err)
	}
	s := &Store{path: abs, validate: validator.New(validator.WithRequiredStructEnabled())}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the absolute database path.
func (s *Store) Path() string { return s.path }

// Exists reports whether the database file is still present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Refresh reloads the file, discarding unsaved state.
func (s *Store) Refresh() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrDatabaseNotFound, s.path)
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	var dump []Employee
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDatabaseCorrupt, s.path, err)
	}

	byID := make(map[string]Employee, len(dump))
	order := make([]string, 0, len(dump))
	for _, e := range dump {
		if _, dup := byID[e.ID]; !dup {
			order = append(order, e.ID)
		}
		byID[e.ID] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID, s.order = byID, order
	return nil
}

// Values returns every employee in file order.
func (s *Store) Values() []Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.valuesLocked()
}

func (s *Store) valuesLocked() []Employee {
	out := make([]Employee, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of employees.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// LastNames returns the last name of every employee in file order.
func (s *Store) LastNames() []string {
	values := s.Values()
	out := make([]string, 0, len(values))
	for _, e := range values {
		out = append(out, e.LastName)
	}
	return out
}

// Find returns every employee matching f.
func (s *Store) Find(f Filter) []Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Employee
	for _, e := range s.valuesLocked() {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// FindOne returns the first employee matching f.
func (s *Store) FindOne(f Filter) (Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findOneLocked(f)
}

func (s *Store) findOneLocked(f Filter) (Employee, bool) {
	for _, id := range s.order {
		if e := s.byID[id]; f.match(e) {
			return e, true
		}
	}
	return Employee{}, false
}

// Create stores a new employee with a generated id and saves the file.
func (s *Store) Create(form CreateForm) (Employee, error) {
	if err := s.validate.Struct(form); err != nil {
		return Employee{}, fmt.Errorf("%w: %w", ErrInvalidEmployee, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.insertLocked(form)
	return e, s.saveLocked()
}

func (s *Store) insertLocked(form CreateForm) Employee {
	e := Employee{
		ID:             uuid.NewString(),
		LastName:       form.LastName,
		FirstName:      form.FirstName,
		Team:           form.Team,
		Age:            form.Age,
		FavoriteAnimal: form.FavoriteAnimal,
		Hobby:          form.Hobby,
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)
	return e
}

// Update applies form to the employee with the given id. When no such
// employee exists and create is true, a new employee is created from form
// under a fresh id.
func (s *Store) Update(id string, form UpdateForm, create bool) (Employee, error) {
	if err := s.validate.Struct(form); err != nil {
		return Employee{}, fmt.Errorf("%w: %w", ErrInvalidEmployee, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.findOneLocked(Filter{ID: id})
	if !ok {
		if !create {
			return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
		}
		newForm := form.asCreate()
		if err := s.validate.Struct(newForm); err != nil {
			return Employee{}, fmt.Errorf("%w: %w", ErrInvalidEmployee, err)
		}
		e := s.insertLocked(newForm)
		return e, s.saveLocked()
	}

	updated := form.apply(current)
	s.byID[id] = updated
	return updated, s.saveLocked()
}

// Delete removes the employee with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return s.saveLocked()
}

// Save writes the current state to the file.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.valuesLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode employees: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
