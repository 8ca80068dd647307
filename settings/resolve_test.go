package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/demoapp/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv() config.Environ {
	return config.MapEnviron(nil)
}

func TestResolve_DefaultsOnly(t *testing.T) {
	snap, err := Resolve(Defaults(), ResolveOptions{Environ: noEnv()})
	require.NoError(t, err)

	s := snap.Settings()
	assert.Equal(t, Defaults(), s)
	assert.Equal(t, "0.0.0.0:8080", s.Server.Addr())

	src, ok := snap.SourceOf("server.port")
	require.True(t, ok)
	assert.Equal(t, config.SourceDefault, src.Source)
}

func TestResolve_OverrideBeatsFile(t *testing.T) {
	file := writeConfig(t, "app.json", `{"server": {"port": 9000}}`)
	override := config.NewLayer(config.SourceOverride, "cli")
	override.Set("server.port", 9100, "--port")

	snap, err := Resolve(Defaults(), ResolveOptions{ConfigFile: file, Environ: noEnv(), Override: override})
	require.NoError(t, err)

	assert.Equal(t, 9100, snap.Settings().Server.Port)
	src, _ := snap.SourceOf("server.port")
	assert.Equal(t, config.SourceOverride, src.Source)
	assert.Equal(t, "--port", src.SourceDetail)
}

func TestResolve_Precedence(t *testing.T) {
	file := writeConfig(t, "app.yaml", `
server:
  port: 9000
  host: 127.0.0.1
logging:
  renderer: json
`)
	env := config.MapEnviron(map[string]string{
		"SERVER_PORT":     "9001",
		"LOGGING_LEVEL":   "debug",
		"DATABASE_PATH":   "/var/lib/employees.json",
		"UNRELATED_THING": "x",
	})
	override := config.NewLayer(config.SourceOverride, "cli")
	override.Set("logging.level", "warn", "--log-level")

	snap, err := Resolve(Defaults(), ResolveOptions{ConfigFile: file, Environ: env, Override: override})
	require.NoError(t, err)
	s := snap.Settings()

	assert.Equal(t, 9001, s.Server.Port, "env beats file")
	assert.Equal(t, "127.0.0.1", s.Server.Host, "file beats defaults")
	assert.Equal(t, "json", s.Logging.Renderer)
	assert.Equal(t, "warn", s.Logging.Level, "override beats env")
	assert.Equal(t, "/var/lib/employees.json", s.Database.Path)
	assert.Equal(t, 30*time.Second, s.Database.MonitorInterval, "unmentioned keys keep defaults")
}

func TestResolve_ConfigPathFromEnvironment(t *testing.T) {
	file := writeConfig(t, "app.toml", "[server]\ndebug = true\n")

	snap, err := Resolve(Defaults(), ResolveOptions{Environ: config.MapEnviron(map[string]string{ConfigPathEnv: file})})
	require.NoError(t, err)
	assert.True(t, snap.Settings().Server.Debug)
}

func TestResolve_MissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := Resolve(Defaults(), ResolveOptions{ConfigFile: missing, Environ: noEnv()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
	assert.Contains(t, err.Error(), missing)
}

func TestResolve_UnknownFileKey(t *testing.T) {
	file := writeConfig(t, "app.json", `{"server": {"prot": 9000}}`)

	_, err := Resolve(Defaults(), ResolveOptions{ConfigFile: file, Environ: noEnv()})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrUnknownKey)

	var ferr *config.FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "server.prot", ferr.Path)
	assert.Equal(t, file, ferr.Key)
}

func TestResolve_InvalidEnvValue(t *testing.T) {
	_, err := Resolve(Defaults(), ResolveOptions{Environ: config.MapEnviron(map[string]string{"SERVER_PORT": "http"})})
	require.Error(t, err)

	var ferr *config.FieldError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "server.port", ferr.Path)
	assert.Equal(t, "SERVER_PORT", ferr.Key)
}

func TestResolve_ConstraintViolations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		path string
	}{
		{"port range", map[string]string{"SERVER_PORT": "70000"}, "server.port"},
		{"renderer", map[string]string{"LOGGING_RENDERER": "xml"}, "logging.renderer"},
		{"compression", map[string]string{"OTEL_EXPORTER_OTLP_COMPRESSION": "brotli"}, "otlp.compression"},
		{"cron", map[string]string{"DATABASE_REFRESH_SCHEDULE": "every tuesday"}, "database.refresh_schedule"},
		{"exporter", map[string]string{"TELEMETRY_TRACES_EXPORTER": "jaeger"}, "telemetry.traces_exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(Defaults(), ResolveOptions{Environ: config.MapEnviron(tt.env)})
			require.Error(t, err)
			assert.ErrorIs(t, err, config.ErrInvalidValue)

			var ferr *config.FieldError
			require.ErrorAs(t, err, &ferr)
			assert.Equal(t, tt.path, ferr.Path)
			assert.Equal(t, config.SourceEnv, ferr.Source)
		})
	}
}

func TestResolve_OTLPEnvironment(t *testing.T) {
	env := config.MapEnviron(map[string]string{
		"OTEL_EXPORTER_OTLP_ENDPOINT":    "collector:4317",
		"OTEL_EXPORTER_OTLP_HEADERS":     "x-api-key=secret,tenant=acme",
		"OTEL_EXPORTER_OTLP_TIMEOUT":     "2500",
		"OTEL_EXPORTER_OTLP_COMPRESSION": "gzip",
		"CORS_ALLOW_ORIGINS":             "https://a.example, https://b.example",
		"DATABASE_REFRESH_SCHEDULE":      "*/5 * * * *",
	})
	snap, err := Resolve(Defaults(), ResolveOptions{Environ: env})
	require.NoError(t, err)
	s := snap.Settings()

	assert.Equal(t, "collector:4317", s.OTLP.Endpoint)
	assert.Equal(t, map[string]string{"x-api-key": "secret", "tenant": "acme"}, s.OTLP.Headers)
	assert.Equal(t, 2500, s.OTLP.Timeout)
	assert.Equal(t, "gzip", s.OTLP.Compression)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORS.AllowOrigins)
	assert.Equal(t, "*/5 * * * *", s.Database.RefreshSchedule)
}

func TestSnapshot_OverrideReturnsNewSnapshot(t *testing.T) {
	base, err := Resolve(Defaults(), ResolveOptions{Environ: noEnv()})
	require.NoError(t, err)

	l := config.NewLayer(config.SourceOverride, "test")
	l.Set("server.debug", true, "")
	next, err := base.Override(l)
	require.NoError(t, err)

	assert.False(t, base.Settings().Server.Debug)
	assert.True(t, next.Settings().Server.Debug)
	assert.Len(t, next.Sources(), len(base.Sources())+1)
}

func TestSnapshot_SettingsAreCopies(t *testing.T) {
	snap, err := Resolve(Defaults(), ResolveOptions{Environ: noEnv()})
	require.NoError(t, err)

	s := snap.Settings()
	s.CORS.AllowOrigins[0] = "mutated"
	s.Server.Port = 1

	again := snap.Settings()
	assert.Equal(t, "*", again.CORS.AllowOrigins[0])
	assert.Equal(t, 8080, again.Server.Port)
}

func TestSnapshot_Provenance(t *testing.T) {
	env := config.MapEnviron(map[string]string{"SERVER_DEBUG": "true"})
	snap, err := Resolve(Defaults(), ResolveOptions{Environ: env})
	require.NoError(t, err)

	var found bool
	for _, p := range snap.Provenance() {
		if p.FieldPath == "server.debug" {
			found = true
			assert.Equal(t, config.SourceEnv, p.Source)
			assert.Equal(t, "SERVER_DEBUG", p.SourceDetail)
		}
	}
	assert.True(t, found)
}
