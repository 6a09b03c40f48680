package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORS returns read-only CORS handling for the public greeting surface.
// With no origins given every origin is allowed.
func CORS(allowedOrigins ...string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			chimiddleware.RequestIDHeader,
			"traceparent",
		},
		ExposedHeaders: []string{"Link", chimiddleware.RequestIDHeader},
		MaxAge:         300,
	})
}
