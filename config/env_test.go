package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLayer_ReadsTaggedFields(t *testing.T) {
	env := MapEnviron(map[string]string{
		"T_PORT":    "9001",
		"T_GRACE":   "5s",
		"T_TAGS":    "a, b,,c",
		"T_HEADERS": "authorization=Bearer x, tenant=acme",
		"T_DEBUG":   "true",
		"T_HOST":    "",
	})

	l, err := EnvLayer(&testConfig{}, env)
	require.NoError(t, err)

	assert.Equal(t, []string{"debug", "server.grace", "server.headers", "server.port", "server.tags"}, l.Paths())

	port, _ := l.Lookup("server.port")
	assert.Equal(t, 9001, port.Raw)
	assert.Equal(t, "T_PORT", port.Key)
	assert.Equal(t, SourceEnv, port.Source)

	grace, _ := l.Lookup("server.grace")
	assert.Equal(t, 5*time.Second, grace.Raw)

	tags, _ := l.Lookup("server.tags")
	assert.Equal(t, []string{"a", "b", "c"}, tags.Raw)

	headers, _ := l.Lookup("server.headers")
	assert.Equal(t, map[string]string{"authorization": "Bearer x", "tenant": "acme"}, headers.Raw)
}

func TestEnvLayer_EmptyEnvironment(t *testing.T) {
	l, err := EnvLayer(testConfig{}, MapEnviron(nil))
	require.NoError(t, err)
	assert.Zero(t, l.Len())
}

func TestEnvLayer_InvalidValueNamesVariable(t *testing.T) {
	_, err := EnvLayer(&testConfig{}, MapEnviron(map[string]string{"T_PORT": "eighty"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)

	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "server.port", ferr.Path)
	assert.Equal(t, "T_PORT", ferr.Key)
	assert.Equal(t, "eighty", ferr.Value)
}

func TestEnvLayer_MalformedPair(t *testing.T) {
	_, err := EnvLayer(&testConfig{}, MapEnviron(map[string]string{"T_HEADERS": "novalue"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Contains(t, err.Error(), "novalue")
}

func TestEnvLayer_RejectsNonStruct(t *testing.T) {
	_, err := EnvLayer(42, MapEnviron(nil))
	assert.ErrorIs(t, err, ErrTargetNotStruct)
}
