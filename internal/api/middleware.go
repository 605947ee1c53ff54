package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gatekeep/internal/logger"
	"gatekeep/internal/models"

	"github.com/gorilla/mux"
)

// requestIDMiddleware assigns every request a correlation id. A caller may
// supply its own via X-Request-ID; otherwise one is generated. The id is
// stored in the request context, echoed in the X-Request-ID response header,
// and repeated in every error envelope body.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 128 {
			requestID = logger.NewRequestID()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), "request_id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// securityHeadersMiddleware sets the standard browser hardening headers on
// every response. HSTS is only meaningful over TLS, so it is added when the
// server terminates TLS or runs in production behind a terminating proxy.
func securityHeadersMiddleware(config *models.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

			if config.Server.TLSEnabled || config.IsProduction() {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs one line per completed request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"request_id", requestIDFrom(r))
	})
}

// recoveryMiddleware converts panics into 500 error envelopes.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered",
					"error", fmt.Sprintf("%v", err),
					"path", r.URL.Path,
					"request_id", requestIDFrom(r))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				errorResp := models.NewErrorResponse(models.ErrorCodeInternalError, "Internal server error", requestIDFrom(r))
				json.NewEncoder(w).Encode(errorResp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces bearer authentication against the statically
// configured API keys. Health endpoints stay public.
func authMiddleware(security models.SecurityConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/api/v1/health" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey, errCode, message := authenticate(r, security)
			if apiKey == nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				errorResp := models.NewErrorResponse(errCode, message, requestIDFrom(r))
				json.NewEncoder(w).Encode(errorResp)
				return
			}

			ctx := context.WithValue(r.Context(), "api_key", apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the API key to the context when valid credentials are
// presented but lets unauthenticated requests through. It exists so the rate
// limiter can apply the higher authenticated budget without gating the API.
func OptionalAuth(security models.SecurityConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey, _, _ := authenticate(r, security); apiKey != nil {
				r = r.WithContext(context.WithValue(r.Context(), "api_key", apiKey))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate resolves the request's bearer token against the configured
// keys. A nil key means the request is unauthenticated; the code and message
// describe why.
func authenticate(r *http.Request, security models.SecurityConfig) (*models.APIKey, string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, models.ErrorCodeUnauthorized, "Authorization required"
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return nil, models.ErrorCodeUnauthorized, "Invalid authorization format"
	}

	token := authHeader[len(prefix):]
	for i := range security.APIKeys {
		key := &security.APIKeys[i]
		if key.Enabled && key.Key == token {
			return key, "", ""
		}
	}

	return nil, models.ErrorCodeUnauthorized, "Invalid API key"
}
