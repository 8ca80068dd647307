package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/settings"
)

var ErrTraceExporter = errors.New("unsupported trace exporter")

// Tracing installs an OpenTelemetry tracer provider when
// telemetry.traces_enabled is set and wraps the served handler with
// otelhttp. The console exporter writes to w.
func Tracing(meta settings.Meta, w io.Writer) demoapp.Provider {
	return func(c *demoapp.Container) error {
		s := c.Settings()
		if !s.Telemetry.TracesEnabled {
			return nil
		}
		ctx := context.Background()
		logger := c.Logger()

		exporter, err := newSpanExporter(ctx, s, w, logger)
		if err != nil {
			return err
		}
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(meta.Name),
				semconv.ServiceVersion(meta.Version),
			),
			resource.WithHost(),
			resource.WithProcess(),
		)
		if err != nil {
			return fmt.Errorf("failed to create resource: %w", err)
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		c.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return tp.Shutdown(shutdownCtx)
		})

		ignored := ignoredPaths(s.Telemetry.IgnorePath)
		c.WrapHandler(func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, meta.Name,
				otelhttp.WithTracerProvider(tp),
				otelhttp.WithFilter(func(r *http.Request) bool { return !ignored(r.URL.Path) }),
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return r.Method + " " + r.URL.Path
				}),
			)
		})
		logger.Info("Tracing enabled", "exporter", s.Telemetry.TracesExporter, "ignore_path", s.Telemetry.IgnorePath)
		return nil
	}
}

func newSpanExporter(ctx context.Context, s settings.Settings, w io.Writer, logger demoapp.Logger) (sdktrace.SpanExporter, error) {
	switch s.Telemetry.TracesExporter {
	case "console":
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case "otlp":
		return otlptracegrpc.New(ctx, otlpOptions(s.OTLP, logger)...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrTraceExporter, s.Telemetry.TracesExporter)
	}
}

func otlpOptions(o settings.OTLPSettings, logger demoapp.Logger) []otlptracegrpc.Option {
	var opts []otlptracegrpc.Option
	switch {
	case strings.Contains(o.Endpoint, "://"):
		opts = append(opts, otlptracegrpc.WithEndpointURL(o.Endpoint))
	case o.Endpoint != "":
		opts = append(opts, otlptracegrpc.WithEndpoint(o.Endpoint), otlptracegrpc.WithInsecure())
	}
	if len(o.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(o.Headers))
	}
	if o.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(time.Duration(o.Timeout)*time.Millisecond))
	}
	switch o.Compression {
	case "gzip":
		opts = append(opts, otlptracegrpc.WithCompressor("gzip"))
	case "deflate":
		logger.Warn("OTLP gRPC exporter does not support deflate; sending uncompressed")
	}
	return opts
}

// ignoredPaths returns a matcher for the comma separated telemetry.ignore_path list.
func ignoredPaths(list string) func(path string) bool {
	var parts []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.Trim(strings.TrimSpace(p), "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return func(path string) bool {
		for _, p := range parts {
			if strings.Contains(path, p) {
				return true
			}
		}
		return false
	}
}
