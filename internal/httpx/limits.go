package httpx

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/render"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimit rejects requests with 503 while max requests are in
// flight. A max of zero or less disables the limit.
func ConcurrencyLimit(max int) func(http.Handler) http.Handler {
	if max <= 0 {
		return passthrough
	}
	sem := semaphore.NewWeighted(int64(max))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sem.TryAcquire(1) {
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]string{"details": "Service is at capacity"})
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}

// MaxRequests calls onLimit once, after the max-th request has been
// handled. A max of zero or less disables the limit.
func MaxRequests(max int, onLimit func()) func(http.Handler) http.Handler {
	if max <= 0 || onLimit == nil {
		return passthrough
	}
	var served atomic.Int64
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if served.Add(1) == int64(max) {
				onLimit()
			}
		})
	}
}

func passthrough(next http.Handler) http.Handler { return next }
