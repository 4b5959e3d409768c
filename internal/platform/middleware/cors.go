package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const preflightMaxAge = 600

// CORS admits browser requests from a single origin. An empty origin disables the
// headers entirely. Credentials are only allowed for a concrete origin; "*" serves
// anonymous cross-origin reads.
func CORS(origin string) func(http.Handler) http.Handler {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		AllowCredentials: origin != "*",
		MaxAge:           preflightMaxAge,
	})
}
