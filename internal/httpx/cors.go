// Package httpx holds the HTTP middleware installed by the container:
// CORS, access logging and request limits.
package httpx

import (
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// CORSOptions mirrors the cors settings section.
type CORSOptions struct {
	AllowOrigins     []string
	AllowOriginRegex string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// CORS returns a middleware that answers preflight requests and decorates
// responses for allowed origins.
func CORS(opts CORSOptions) (func(http.Handler) http.Handler, error) {
	var originRe *regexp.Regexp
	if opts.AllowOriginRegex != "" {
		re, err := regexp.Compile(opts.AllowOriginRegex)
		if err != nil {
			return nil, fmt.Errorf("cors: invalid allow_origin_regex: %w", err)
		}
		originRe = re
	}
	wildcard := slices.Contains(opts.AllowOrigins, "*")

	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if wildcard || slices.Contains(opts.AllowOrigins, origin) {
			return true
		}
		return originRe != nil && originRe.MatchString(origin)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if allowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if opts.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if len(opts.ExposeHeaders) > 0 {
					h.Set("Access-Control-Expose-Headers", strings.Join(opts.ExposeHeaders, ", "))
				}
				if preflight {
					if len(opts.AllowMethods) > 0 {
						h.Set("Access-Control-Allow-Methods", strings.Join(opts.AllowMethods, ", "))
					}
					switch {
					case len(opts.AllowHeaders) > 0:
						h.Set("Access-Control-Allow-Headers", strings.Join(opts.AllowHeaders, ", "))
					case r.Header.Get("Access-Control-Request-Headers") != "":
						h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
					}
					if opts.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
					}
				}
			}

			if preflight {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
