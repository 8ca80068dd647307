package employees

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `[
  {"_id": "1", "lastname": "Doe", "firstname": "Jane", "team": "Platform", "age": 34},
  {"_id": "2", "lastname": "Martin", "firstname": "Louis", "team": "Data"},
  {"_id": "3", "lastname": "Nguyen", "firstname": "Linh", "team": "Platform"}
]`

func openSeeded(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employees.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))
	s, err := Open(path)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func reload(t *testing.T, s *Store) []Employee {
	t.Helper()
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var out []Employee
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestOpen(t *testing.T) {
	s := openSeeded(t)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"Doe", "Martin", "Nguyen"}, s.LastNames())
	assert.True(t, s.Exists())

	_, err := Open(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrDatabaseNotFound)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = Open(bad)
	assert.ErrorIs(t, err, ErrDatabaseCorrupt)
}

func TestFind(t *testing.T) {
	s := openSeeded(t)

	assert.Len(t, s.Find(Filter{}), 3)
	platform := s.Find(Filter{Team: "Platform"})
	require.Len(t, platform, 2)
	assert.Equal(t, "Doe", platform[0].LastName)

	e, ok := s.FindOne(Filter{LastName: "Martin"})
	require.True(t, ok)
	assert.Equal(t, "2", e.ID)

	_, ok = s.FindOne(Filter{LastName: "Nobody"})
	assert.False(t, ok)
	assert.Empty(t, s.Find(Filter{Team: "Platform", FirstName: "Louis"}))
}

func TestCreate(t *testing.T) {
	s := openSeeded(t)
	e, err := s.Create(CreateForm{LastName: "Smith", FirstName: "Ana", Team: "Ops", Hobby: ptr("chess")})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 4, s.Len())

	onDisk := reload(t, s)
	require.Len(t, onDisk, 4)
	assert.Equal(t, e, onDisk[3])

	_, err = s.Create(CreateForm{LastName: "Incomplete"})
	assert.ErrorIs(t, err, ErrInvalidEmployee)
	_, err = s.Create(CreateForm{LastName: "Old", FirstName: "Very", Team: "X", Age: ptr(-1)})
	assert.ErrorIs(t, err, ErrInvalidEmployee)
}

func TestUpdate(t *testing.T) {
	s := openSeeded(t)

	e, err := s.Update("2", UpdateForm{Team: ptr("Platform"), Age: ptr(41)}, false)
	require.NoError(t, err)
	assert.Equal(t, "Martin", e.LastName)
	assert.Equal(t, "Platform", e.Team)
	assert.Equal(t, 41, *e.Age)
	assert.Equal(t, e, reload(t, s)[1])

	_, err = s.Update("404", UpdateForm{Team: ptr("X")}, false)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	created, err := s.Update("404", UpdateForm{LastName: ptr("New"), FirstName: ptr("Person"), Team: ptr("X")}, true)
	require.NoError(t, err)
	assert.NotEqual(t, "404", created.ID)
	assert.Equal(t, 4, s.Len())

	_, err = s.Update("405", UpdateForm{LastName: ptr("Partial")}, true)
	assert.ErrorIs(t, err, ErrInvalidEmployee)
}

func TestDelete(t *testing.T) {
	s := openSeeded(t)
	require.NoError(t, s.Delete("1"))
	assert.Equal(t, []string{"Martin", "Nguyen"}, s.LastNames())
	assert.Len(t, reload(t, s), 2)

	assert.ErrorIs(t, s.Delete("1"), ErrEmployeeNotFound)
}

func TestRefreshDiscardsExternalChanges(t *testing.T) {
	s := openSeeded(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[{"_id":"9","lastname":"Solo","firstname":"Han","team":"Smuggling"}]`), 0o600))
	require.NoError(t, s.Refresh())
	assert.Equal(t, []string{"Solo"}, s.LastNames())

	require.NoError(t, os.Remove(s.Path()))
	assert.False(t, s.Exists())
	assert.ErrorIs(t, s.Refresh(), ErrDatabaseNotFound)
}
