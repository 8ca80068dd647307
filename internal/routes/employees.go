// Package routes contributes the HTTP route groups of the service.
package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	demoapp "github.com/GoCodeAlone/demoapp"
	"github.com/GoCodeAlone/demoapp/internal/database"
	"github.com/GoCodeAlone/demoapp/internal/employees"
)

type errorResponse struct {
	Details string `json:"details"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, details string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Details: details})
}

// annotate adds attributes to the request span, if tracing is enabled.
func annotate(r *http.Request, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(r.Context()).SetAttributes(attrs...)
}

// Employees contributes the /employees group.
func Employees(c *demoapp.Container) (demoapp.RouteGroup, bool) {
	h := &employeeHandler{c: c}
	return demoapp.RouteGroup{
		Name:   "employees",
		Prefix: "/employees",
		Register: func(r chi.Router) {
			r.Use(h.requireStore)
			r.Get("/", h.list)
			r.Post("/", h.create)
			r.Get("/lastnames", h.lastNames)
			r.Get("/lastnames/{lastname}", h.byLastName)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
		},
	}, true
}

type employeeHandler struct {
	c *demoapp.Container
}

func (h *employeeHandler) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := database.Store(h.c); !ok {
			renderError(w, r, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *employeeHandler) store() *employees.Store {
	s, _ := database.Store(h.c)
	return s
}

func (h *employeeHandler) list(w http.ResponseWriter, r *http.Request) {
	values := h.store().Values()
	h.c.Logger().Info("Querying employees", "count", len(values))
	render.JSON(w, r, values)
}

func (h *employeeHandler) lastNames(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.store().LastNames())
}

func (h *employeeHandler) byLastName(w http.ResponseWriter, r *http.Request) {
	lastName := chi.URLParam(r, "lastname")
	annotate(r, attribute.String("employee.lastname", lastName))
	e, ok := h.store().FindOne(employees.Filter{LastName: lastName})
	if !ok {
		renderError(w, r, http.StatusNotFound, "Employee not found")
		return
	}
	render.JSON(w, r, e)
}

func (h *employeeHandler) create(w http.ResponseWriter, r *http.Request) {
	var form employees.CreateForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		renderError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	e, err := h.store().Create(form)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, e)
}

func (h *employeeHandler) update(w http.ResponseWriter, r *http.Request) {
	create := false
	if v := r.URL.Query().Get("create"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			renderError(w, r, http.StatusUnprocessableEntity, "create must be a boolean")
			return
		}
		create = b
	}
	var form employees.UpdateForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		renderError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	annotate(r, attribute.String("employee.id", id), attribute.Bool("employee.create", create))
	e, err := h.store().Update(id, form, create)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, e)
}

func (h *employeeHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	annotate(r, attribute.String("employee.id", id))
	if err := h.store().Delete(id); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *employeeHandler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, employees.ErrEmployeeNotFound):
		renderError(w, r, http.StatusNotFound, "Employee not found")
	case errors.Is(err, employees.ErrInvalidEmployee):
		renderError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		h.c.Logger().Error("Employee store failure", "error", err)
		renderError(w, r, http.StatusInternalServerError, "Internal error")
	}
}
