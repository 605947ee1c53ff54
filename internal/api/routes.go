package api

import (
	"encoding/json"
	"net/http"

	"gatekeep/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithRateLimiter adds rate limiting middleware to the router.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	router.Use(requestIDMiddleware)
	router.Use(securityHeadersMiddleware(config))
	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	// Resolve credentials before the optional rate limiter so authenticated
	// clients are keyed by API key name rather than IP.
	if config.Security.EnableAuth {
		router.Use(OptionalAuth(config.Security))
	}

	for _, opt := range opts {
		opt(router)
	}

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/check", handlers.CheckURL).Methods("GET")
	api.HandleFunc("/echo", handlers.Echo).Methods("GET", "POST")
	api.HandleFunc("/fetch", handlers.Fetch).Methods("POST")

	if config.Security.EnableAuth {
		eventsAPI := api.PathPrefix("/events").Subrouter()
		eventsAPI.Use(authMiddleware(config.Security))
		eventsAPI.HandleFunc("", handlers.ListEvents).Methods("GET")
		eventsAPI.HandleFunc("/{event_id}", handlers.GetEvent).Methods("GET")
	} else {
		api.HandleFunc("/events", handlers.ListEvents).Methods("GET")
		api.HandleFunc("/events/{event_id}", handlers.GetEvent).Methods("GET")
	}

	api.PathPrefix("").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("OPTIONS")

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		errorResp := models.NewErrorResponse(models.ErrorCodeMethodNotAllowed, "Method not allowed", r.Header.Get("X-Request-ID"))
		json.NewEncoder(w).Encode(errorResp)
	})

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		errorResp := models.NewErrorResponse(models.ErrorCodeNotFound, "Resource not found", r.Header.Get("X-Request-ID"))
		json.NewEncoder(w).Encode(errorResp)
	})

	return router
}
