package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	demoapp "github.com/GoCodeAlone/demoapp"
)

// Health contributes GET /health. It reports 503 once the container was
// asked to exit so load balancers drain the instance.
func Health(c *demoapp.Container) (demoapp.RouteGroup, bool) {
	return demoapp.RouteGroup{
		Name: "health",
		Register: func(r chi.Router) {
			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				if c.ExitRequested() {
					render.Status(r, http.StatusServiceUnavailable)
					render.JSON(w, r, map[string]string{"status": "exiting"})
					return
				}
				render.JSON(w, r, map[string]string{"status": "ok"})
			})
		},
	}, true
}
