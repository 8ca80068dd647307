package routes

import (
	"errors"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/config"
	"github.com/GoCodeAlone/demoapp/settings"
)

// TaskStatus is the JSON view of a task record.
type TaskStatus struct {
	Name      string     `json:"name"`
	State     string     `json:"state"`
	Started   bool       `json:"started"`
	Done      bool       `json:"done"`
	Cancelled bool       `json:"cancelled"`
	Exception *string    `json:"exception"`
	Restarts  int        `json:"restarts"`
	Forced    bool       `json:"forced,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

func taskStatus(rec demoapp.TaskRecord) TaskStatus {
	st := TaskStatus{
		Name:      rec.Name,
		State:     string(rec.State),
		Started:   rec.Started(),
		Done:      rec.Done(),
		Cancelled: rec.Cancelled(),
		Restarts:  rec.Restarts,
		Forced:    rec.Forced,
	}
	if msg := rec.Exception(); msg != "" {
		st.Exception = &msg
	}
	if !rec.StartedAt.IsZero() {
		t := rec.StartedAt
		st.StartedAt = &t
	}
	return st
}

// Debug contributes the /debug group when server.debug is set.
func Debug(c *demoapp.Container) (demoapp.RouteGroup, bool) {
	if !c.Settings().Server.Debug {
		return demoapp.RouteGroup{}, false
	}
	d := &debugHandler{c: c}
	return demoapp.RouteGroup{
		Name:   "debug",
		Prefix: "/debug",
		Register: func(r chi.Router) {
			r.Get("/settings", d.settings)
			r.Get("/settings/provenance", d.provenance)
			r.Get("/runtime", d.runtime)
			r.Get("/tasks", d.tasks)
			r.Post("/tasks/{name}/cancel", d.cancelTask)
			r.Post("/tasks/{name}/restart", d.restartTask)
		},
	}, true
}

type debugHandler struct {
	c *demoapp.Container
}

func (d *debugHandler) settings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, d.c.Settings().Redact())
}

type provenanceResponse struct {
	Sources []config.ConfigSource    `json:"sources"`
	Fields  []config.FieldProvenance `json:"fields"`
}

func (d *debugHandler) provenance(w http.ResponseWriter, r *http.Request) {
	snap := d.c.Snapshot()
	fields := settings.RedactProvenance(snap.Provenance())
	render.JSON(w, r, provenanceResponse{Sources: snap.Sources(), Fields: fields})
}

func (d *debugHandler) runtime(w http.ResponseWriter, r *http.Request) {
	exe, _ := os.Executable()
	host, _ := os.Hostname()
	render.JSON(w, r, map[string]any{
		"executable":  exe,
		"hostname":    host,
		"version":     runtime.Version(),
		"platform":    map[string]string{"os": runtime.GOOS, "arch": runtime.GOARCH},
		"num_cpu":     runtime.NumCPU(),
		"goroutines":  runtime.NumGoroutine(),
		"environment": environment(),
	})
}

func environment() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if k == "OTEL_EXPORTER_OTLP_HEADERS" {
			v = settings.Redacted
		}
		env[k] = v
	}
	return env
}

func (d *debugHandler) tasks(w http.ResponseWriter, r *http.Request) {
	records := d.c.TaskList()
	out := make([]TaskStatus, 0, len(records))
	for _, rec := range records {
		out = append(out, taskStatus(rec))
	}
	render.JSON(w, r, out)
}

func (d *debugHandler) cancelTask(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := d.c.CancelTask(name); err != nil {
		taskError(w, r, err)
		return
	}
	rec := d.c.SubmittedTasks()[name]
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, taskStatus(rec))
}

func (d *debugHandler) restartTask(w http.ResponseWriter, r *http.Request) {
	h, err := d.c.RestartTask(chi.URLParam(r, "name"))
	if err != nil {
		taskError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, taskStatus(h.Record()))
}

func taskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, demoapp.ErrTaskNotFound):
		renderError(w, r, http.StatusNotFound, "Task not found")
	case errors.Is(err, demoapp.ErrTaskStillRunning):
		renderError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, demoapp.ErrSupervisorShutdown):
		renderError(w, r, http.StatusServiceUnavailable, err.Error())
	default:
		renderError(w, r, http.StatusInternalServerError, err.Error())
	}
}
