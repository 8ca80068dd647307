package config

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_OrdersLayersByPriority(t *testing.T) {
	override := NewLayer(SourceOverride, "cli")
	override.Set("server.port", 9100, "--port")
	file := LayerFromMap(SourceFile, "app.yaml", map[string]any{"server": map[string]any{"port": 9000}})

	// Added out of order on purpose.
	loader := NewLoader(NewValidator()).
		AddLayer(override).
		AddLayer(file).
		AddLayer(defaultsLayer(t)).
		AddLayer(nil)

	var out testConfig
	merged, err := loader.Load(&out)
	require.NoError(t, err)
	assert.Equal(t, 9100, out.Server.Port)

	sources := loader.Sources()
	require.Len(t, sources, 3)
	assert.Equal(t, SourceDefault, sources[0].Type)
	assert.Equal(t, SourceFile, sources[1].Type)
	assert.Equal(t, SourceOverride, sources[2].Type)
	assert.Equal(t, 1, sources[2].Fields)

	prov := Provenance(merged, time.Unix(0, 0))
	assert.Equal(t, SourceOverride, prov["server.port"].Source)
	assert.Equal(t, "--port", prov["server.port"].SourceDetail)
	assert.Equal(t, SourceDefault, prov["server.host"].Source)
}

func TestLoader_ValidationNamesPathAndSource(t *testing.T) {
	override := NewLayer(SourceOverride, "cli")
	override.Set("server.port", 70000, "--port")

	var out testConfig
	_, err := NewLoader(NewValidator()).AddLayer(defaultsLayer(t)).AddLayer(override).Load(&out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)

	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "server.port", ferr.Path)
	assert.Equal(t, 70000, ferr.Value)
	assert.Equal(t, SourceOverride, ferr.Source)
	assert.Equal(t, "--port", ferr.Key)
}

func TestLoader_RejectsUnknownSource(t *testing.T) {
	var out testConfig
	_, err := NewLoader(nil).AddLayer(NewLayer(Source("remote"), "http://x")).Load(&out)
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}

func TestValidator_CustomRule(t *testing.T) {
	v := NewValidator()
	type cfg struct {
		Mode string `mapstructure:"mode" validate:"mode"`
	}
	require.NoError(t, v.RegisterRule("mode", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "fast"
	}))

	assert.NoError(t, v.Validate(&cfg{Mode: "fast"}, nil))
	err := v.Validate(&cfg{Mode: "slow"}, nil)
	var ferr *FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "mode", ferr.Path)
}
