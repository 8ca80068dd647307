// Package app assembles the employee service container from a resolved
// settings snapshot.
package app

import (
	"io"
	"log/slog"
	"net/http"
	"os"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/internal/database"
	"github.com/GoCodeAlone/demoapp/internal/httpx"
	"github.com/GoCodeAlone/demoapp/internal/providers"
	"github.com/GoCodeAlone/demoapp/internal/routes"
	"github.com/GoCodeAlone/demoapp/settings"
)

// Options tunes NewContainer. The zero value writes logs to stderr and
// console traces to stdout.
type Options struct {
	Meta        settings.Meta
	LogOutput   io.Writer
	TraceOutput io.Writer

	// Extra options are applied after the service's own.
	Extra []demoapp.Option
}

// NewContainer builds the service: logging, metrics and tracing providers,
// the database hook, the monitor and refresh tasks, and the health,
// employees and debug route groups.
func NewContainer(snap *settings.Snapshot, opts Options) (*demoapp.Container, error) {
	if snap == nil {
		return nil, demoapp.ErrSettingsNil
	}
	if opts.Meta.Name == "" {
		opts.Meta = settings.DefaultMeta()
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.TraceOutput == nil {
		opts.TraceOutput = os.Stdout
	}
	s := snap.Settings()

	cors, err := httpx.CORS(httpx.CORSOptions{
		AllowOrigins:     s.CORS.AllowOrigins,
		AllowOriginRegex: s.CORS.AllowOriginRegex,
		AllowMethods:     s.CORS.AllowMethods,
		AllowHeaders:     s.CORS.AllowHeaders,
		ExposeHeaders:    s.CORS.ExposeHeaders,
		AllowCredentials: s.CORS.AllowCredentials,
		MaxAge:           s.CORS.MaxAge,
	})
	if err != nil {
		return nil, err
	}

	// middleware closures resolve c at request time, after New returned
	var c *demoapp.Container
	middlewares := []func(http.Handler) http.Handler{
		cors,
		httpx.ConcurrencyLimit(s.Server.LimitConcurrency),
		httpx.MaxRequests(s.Server.LimitMaxRequests, func() {
			c.Logger().Warn("Maximum number of requests reached", "limit", s.Server.LimitMaxRequests)
			c.ExitSoon()
		}),
	}
	if s.Logging.AccessLog {
		middlewares = append(middlewares, httpx.AccessLog(func() httpx.Logger { return c.Logger() }))
	}

	options := []demoapp.Option{
		demoapp.WithLogger(slog.Default()),
		demoapp.WithProviders(
			providers.Logging(opts.LogOutput),
			announce(opts.Meta),
			providers.Metrics(),
			providers.Tracing(opts.Meta, opts.TraceOutput),
		),
		demoapp.WithMiddleware(middlewares...),
		demoapp.WithHooks(database.Hook()),
		demoapp.WithTasks(database.MonitorTask(), database.RefreshTask()),
		demoapp.WithRoutes(routes.Health, routes.Employees, routes.Debug),
	}
	c, err = demoapp.New(snap, append(options, opts.Extra...)...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// announce logs the resolved settings once the logger is configured.
func announce(meta settings.Meta) demoapp.Provider {
	return func(c *demoapp.Container) error {
		s := c.Settings()
		logger := c.Logger()
		logger.Info("Starting "+meta.Title,
			"name", meta.Name,
			"version", meta.Version,
			"address", s.Server.Addr(),
			"root_path", s.Server.RootPath,
			"debug", s.Server.Debug,
			"database", s.Database.Path,
		)
		snap := c.Snapshot()
		for _, src := range snap.Sources() {
			logger.Debug("Configuration source", "name", src.Name, "location", src.Location, "fields", src.Fields)
		}
		for _, p := range settings.RedactProvenance(snap.Provenance()) {
			logger.Debug("Setting", "path", p.FieldPath, "value", p.Value, "source", p.Source, "from", p.SourceDetail)
		}
		return nil
	}
}
