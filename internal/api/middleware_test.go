package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"gatekeep/internal/models"
	"gatekeep/internal/ssrf"
	"gatekeep/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_Generated(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	first := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, first)

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, httptest.NewRequest("GET", "/health", nil))
	assert.NotEqual(t, first, w2.Header().Get("X-Request-ID"))
}

func TestRequestID_CallerSupplied(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "caller-chosen-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "caller-chosen-id", w.Header().Get("X-Request-ID"))
}

func TestRequestID_OversizedReplaced(t *testing.T) {
	router, _, _ := newTestRouter(t)

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", string(long))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	got := w.Header().Get("X-Request-ID")
	assert.NotEqual(t, string(long), got)
	assert.NotEmpty(t, got)
}

func TestSecurityHeaders(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	headers := map[string]string{
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Permissions-Policy":      "camera=(), microphone=(), geolocation=(), payment=()",
	}
	for name, want := range headers {
		assert.Equal(t, want, w.Header().Get(name), name)
	}

	// development without TLS gets no HSTS
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecurityHeaders_HSTSInProduction(t *testing.T) {
	config := models.NewDefaultConfig()
	config.Environment = models.EnvProduction
	config.Security.CSRFSecret = "0123456789abcdef0123456789abcdef"
	config.Security.SessionSecret = "0123456789abcdef0123456789abcdef"

	store := storage.NewMemoryStorage()
	defer store.Close()

	router := SetupRoutes(NewHandlers(store, ssrf.NewClient(config.Egress), config), config)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "max-age=31536000; includeSubDomains", w.Header().Get("Strict-Transport-Security"))
}

func TestMethodNotAllowed(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("DELETE", "/api/v1/echo", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	errBody := decodeError(t, w.Body)
	assert.Equal(t, models.ErrorCodeMethodNotAllowed, errBody.Code)
}

func TestNotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/does-not-exist/at-all", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	errBody := decodeError(t, w.Body)
	assert.Equal(t, models.ErrorCodeNotFound, errBody.Code)
}

func newAuthEnabledRouter(t *testing.T) http.Handler {
	t.Helper()

	config := models.NewDefaultConfig()
	config.Security.EnableAuth = true
	config.Security.APIKeys = []models.APIKey{
		{Key: "valid-key-token", Name: "ci", Enabled: true},
		{Key: "disabled-key-token", Name: "old-ci", Enabled: false},
	}

	store := storage.NewMemoryStorage()
	t.Cleanup(func() { store.Close() })

	return SetupRoutes(NewHandlers(store, ssrf.NewClient(config.Egress), config), config)
}

func TestAuth_EventsRequireKey(t *testing.T) {
	router := newAuthEnabledRouter(t)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"unknown key", "Bearer bogus", http.StatusUnauthorized},
		{"disabled key", "Bearer disabled-key-token", http.StatusUnauthorized},
		{"valid key", "Bearer valid-key-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/events", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				errBody := decodeError(t, w.Body)
				assert.Equal(t, models.ErrorCodeUnauthorized, errBody.Code)
			}
		})
	}
}

func TestAuth_PublicEndpointsStayOpen(t *testing.T) {
	router := newAuthEnabledRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/echo?message=hi", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_HealthStaysPublic(t *testing.T) {
	router := newAuthEnabledRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery(t *testing.T) {
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/panic", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	errBody := decodeError(t, w.Body)
	assert.Equal(t, models.ErrorCodeInternalError, errBody.Code)
	assert.Equal(t, "Internal server error", errBody.Message)
}
