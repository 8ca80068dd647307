// Package settings defines the application settings schema and resolves
// it from defaults, a configuration file, the environment and an explicit
// override into an immutable Snapshot.
package settings

import (
	"maps"
	"slices"
	"time"
)

// Meta describes the application. It is not read from the environment.
type Meta struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// Version is overridden at build time with -ldflags.
var Version = "0.0.0-dev"

// DefaultMeta returns the application metadata.
func DefaultMeta() Meta {
	return Meta{
		Name:        "demoapp",
		Title:       "Employee directory",
		Description: "Demo REST service managing employee records stored in a JSON file",
		Version:     Version,
	}
}

// Settings is the full application configuration.
type Settings struct {
	Server    ServerSettings    `mapstructure:"server" json:"server"`
	Database  DatabaseSettings  `mapstructure:"database" json:"database"`
	Logging   LogSettings       `mapstructure:"logging" json:"logging"`
	Telemetry TelemetrySettings `mapstructure:"telemetry" json:"telemetry"`
	OTLP      OTLPSettings      `mapstructure:"otlp" json:"otlp"`
	CORS      CORSSettings      `mapstructure:"cors" json:"cors"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host             string        `mapstructure:"host" env:"SERVER_HOST" json:"host" validate:"required"`
	Port             int           `mapstructure:"port" env:"SERVER_PORT" json:"port" validate:"gte=0,lte=65535"`
	Debug            bool          `mapstructure:"debug" env:"SERVER_DEBUG" json:"debug"`
	RootPath         string        `mapstructure:"root_path" env:"SERVER_ROOT_PATH" json:"root_path" validate:"omitempty,startswith=/"`
	LimitConcurrency int           `mapstructure:"limit_concurrency" env:"SERVER_LIMIT_CONCURRENCY" json:"limit_concurrency" validate:"gte=0"`
	LimitMaxRequests int           `mapstructure:"limit_max_requests" env:"SERVER_LIMIT_MAX_REQUESTS" json:"limit_max_requests" validate:"gte=0"`
	ShutdownGrace    time.Duration `mapstructure:"shutdown_grace" env:"SERVER_SHUTDOWN_GRACE" json:"shutdown_grace" validate:"gte=0"`
}

// DatabaseSettings configures the employee store.
type DatabaseSettings struct {
	Path            string        `mapstructure:"path" env:"DATABASE_PATH" json:"path" validate:"required"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval" env:"DATABASE_MONITOR_INTERVAL" json:"monitor_interval" validate:"gt=0"`
	RefreshSchedule string        `mapstructure:"refresh_schedule" env:"DATABASE_REFRESH_SCHEDULE" json:"refresh_schedule" validate:"omitempty,cron"`
}

// LogSettings configures logging.
type LogSettings struct {
	AccessLog bool   `mapstructure:"access_log" env:"LOGGING_ACCESS_LOG" json:"access_log"`
	Level     string `mapstructure:"level" env:"LOGGING_LEVEL" json:"level" validate:"omitempty,oneof=debug info warn warning error critical"`
	Colors    bool   `mapstructure:"colors" env:"LOGGING_COLORS" json:"colors"`
	Renderer  string `mapstructure:"renderer" env:"LOGGING_RENDERER" json:"renderer" validate:"oneof=console json"`
}

// TelemetrySettings toggles metrics and traces.
type TelemetrySettings struct {
	TracesEnabled  bool   `mapstructure:"traces_enabled" env:"TELEMETRY_TRACES_ENABLED" json:"traces_enabled"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled" env:"TELEMETRY_METRICS_ENABLED" json:"metrics_enabled"`
	MetricsPath    string `mapstructure:"metrics_path" env:"TELEMETRY_METRICS_PATH" json:"metrics_path" validate:"startswith=/"`
	IgnorePath     string `mapstructure:"ignore_path" env:"TELEMETRY_IGNORE_PATH" json:"ignore_path"`
	TracesExporter string `mapstructure:"traces_exporter" env:"TELEMETRY_TRACES_EXPORTER" json:"traces_exporter" validate:"oneof=otlp console"`
}

// OTLPSettings configures the OTLP trace exporter. Timeout is in milliseconds.
type OTLPSettings struct {
	Timeout     int               `mapstructure:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" json:"timeout,omitempty" validate:"gte=0"`
	Headers     map[string]string `mapstructure:"headers" env:"OTEL_EXPORTER_OTLP_HEADERS" json:"headers,omitempty"`
	Endpoint    string            `mapstructure:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" json:"endpoint,omitempty"`
	Compression string            `mapstructure:"compression" env:"OTEL_EXPORTER_OTLP_COMPRESSION" json:"compression" validate:"oneof=none deflate gzip"`
}

// CORSSettings configures cross-origin handling.
type CORSSettings struct {
	AllowOrigins     []string `mapstructure:"allow_origins" env:"CORS_ALLOW_ORIGINS" json:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods" env:"CORS_ALLOW_METHODS" json:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers" env:"CORS_ALLOW_HEADERS" json:"allow_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" json:"allow_credentials"`
	AllowOriginRegex string   `mapstructure:"allow_origin_regex" env:"CORS_ALLOW_ORIGIN_REGEX" json:"allow_origin_regex,omitempty"`
	ExposeHeaders    []string `mapstructure:"expose_headers" env:"CORS_EXPOSE_HEADERS" json:"expose_headers"`
	MaxAge           int      `mapstructure:"max_age" env:"CORS_MAX_AGE" json:"max_age" validate:"gte=0"`
}

// Defaults returns the compiled-in defaults.
func Defaults() Settings {
	return Settings{
		Server: ServerSettings{
			Host:          "0.0.0.0",
			Port:          8080,
			ShutdownGrace: 10 * time.Second,
		},
		Database: DatabaseSettings{
			Path:            "data/employees.json",
			MonitorInterval: 30 * time.Second,
		},
		Logging: LogSettings{
			AccessLog: true,
			Level:     "info",
			Colors:    true,
			Renderer:  "console",
		},
		Telemetry: TelemetrySettings{
			MetricsPath:    "/metrics",
			IgnorePath:     "metrics,docs,openapi.json",
			TracesExporter: "console",
		},
		OTLP: OTLPSettings{
			Compression: "none",
		},
		CORS: CORSSettings{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET", "PATCH", "POST", "PUT", "DELETE", "HEAD"},
			AllowHeaders:     []string{},
			AllowCredentials: true,
			ExposeHeaders:    []string{},
			MaxAge:           600,
		},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.OTLP.Headers = maps.Clone(s.OTLP.Headers)
	out.CORS.AllowOrigins = slices.Clone(s.CORS.AllowOrigins)
	out.CORS.AllowMethods = slices.Clone(s.CORS.AllowMethods)
	out.CORS.AllowHeaders = slices.Clone(s.CORS.AllowHeaders)
	out.CORS.ExposeHeaders = slices.Clone(s.CORS.ExposeHeaders)
	return out
}

// Addr returns host:port.
func (s ServerSettings) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
