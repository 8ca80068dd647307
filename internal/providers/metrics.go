package providers

import (
	"context"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	demoapp "github.com/GoCodeAlone/demoapp"
)

const namespace = "demoapp"

// taskCollector implements prometheus.Collector over the supervisor's
// task records.
type taskCollector struct {
	c            *demoapp.Container
	stateDesc    *prometheus.Desc
	restartsDesc *prometheus.Desc
}

func newTaskCollector(c *demoapp.Container) *taskCollector {
	return &taskCollector{
		c: c,
		stateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "task", "state"),
			"Current task state; 1 for the state the task is in",
			[]string{"task", "state"}, nil,
		),
		restartsDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "task", "restarts_total"),
			"Explicit restarts of a task",
			[]string{"task"}, nil,
		),
	}
}

var taskStates = []demoapp.TaskState{
	demoapp.TaskPending, demoapp.TaskRunning, demoapp.TaskCompleted, demoapp.TaskFailed, demoapp.TaskCancelled,
}

func (tc *taskCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- tc.stateDesc
	ch <- tc.restartsDesc
}

func (tc *taskCollector) Collect(ch chan<- prometheus.Metric) {
	for _, rec := range tc.c.TaskList() {
		for _, st := range taskStates {
			v := 0.0
			if rec.State == st {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(tc.stateDesc, prometheus.GaugeValue, v, rec.Name, string(st))
		}
		ch <- prometheus.MustNewConstMetric(tc.restartsDesc, prometheus.CounterValue, float64(rec.Restarts), rec.Name)
	}
}

// Metrics exposes a Prometheus registry at telemetry.metrics_path when
// telemetry.metrics_enabled is set. The registry carries Go and process
// collectors, task states, HTTP request metrics and lifecycle event counts.
func Metrics() demoapp.Provider {
	return func(c *demoapp.Container) error {
		s := c.Settings()
		if !s.Telemetry.MetricsEnabled {
			return nil
		}

		registry := prometheus.NewRegistry()
		requests := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled, by method and status code",
		}, []string{"code", "method"})
		duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"})
		inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		})
		events := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Container lifecycle events, by CloudEvent type",
		}, []string{"type"})

		if err := registerAll(registry,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			newTaskCollector(c),
			requests, duration, inFlight, events,
		); err != nil {
			return err
		}

		if err := c.RegisterObserver(demoapp.ObserverFunc{
			ID: "metrics",
			Handler: func(_ context.Context, e cloudevents.Event) error {
				events.WithLabelValues(e.Type()).Inc()
				return nil
			},
		}); err != nil {
			return err
		}

		c.Router().Handle(s.Telemetry.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		c.WrapHandler(func(next http.Handler) http.Handler {
			return promhttp.InstrumentHandlerInFlight(inFlight,
				promhttp.InstrumentHandlerDuration(duration,
					promhttp.InstrumentHandlerCounter(requests, next)))
		})
		c.Logger().Info("Metrics enabled", "path", s.Telemetry.MetricsPath)
		return nil
	}
}

func registerAll(r prometheus.Registerer, cs ...prometheus.Collector) error {
	for _, col := range cs {
		if err := r.Register(col); err != nil {
			return err
		}
	}
	return nil
}
