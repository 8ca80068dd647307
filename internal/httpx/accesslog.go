package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger is the subset of the container logger the middleware needs.
type Logger interface {
	Info(msg string, args ...any)
}

// AccessLog logs one line per completed request through the logger that
// current returns at that time. It should run after middleware.RequestID
// so the request id is available.
func AccessLog(current func() Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			current().Info("request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
