package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeep/internal/models"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestMiddleware_AllowedRequest(t *testing.T) {
	limiter := NewSlidingLimiter(10, time.Minute)
	defer limiter.Close()

	handler := Middleware(limiter, limiter)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_DeniedRequest(t *testing.T) {
	limiter := NewSlidingLimiter(2, time.Minute)
	defer limiter.Close()

	var deniedKey string
	handler := Middleware(limiter, limiter,
		WithDeniedHook(func(r *http.Request, key string, info Info) {
			deniedKey = key
		}),
	)(http.HandlerFunc(okHandler))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	// Third request should be denied
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	ctx := context.WithValue(req.Context(), "request_id", "req-123")
	req = req.WithContext(ctx)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "192.0.2.1:12345", deniedKey)

	var errResp models.ErrorResponse
	err := json.NewDecoder(rr.Body).Decode(&errResp)
	require.NoError(t, err)
	assert.Equal(t, models.ErrorCodeRateLimited, errResp.Error.Code)
	assert.Equal(t, "Rate limit exceeded", errResp.Error.Message)
	assert.Equal(t, "req-123", errResp.Error.RequestID)
}

func TestMiddleware_AuthenticatedRequest(t *testing.T) {
	anonLimiter := NewSlidingLimiter(2, time.Minute)
	defer anonLimiter.Close()
	authLimiter := NewSlidingLimiter(120, time.Minute)
	defer authLimiter.Close()

	handler := Middleware(anonLimiter, authLimiter)(http.HandlerFunc(okHandler))

	apiKey := &models.APIKey{
		Key:     "test-key",
		Name:    "Test Key",
		Enabled: true,
	}

	// Anonymous requests exhaust the window of 2
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	// Anonymous is now denied
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// Authenticated request from same IP should still be allowed (different limiter)
	req = httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	ctx := context.WithValue(req.Context(), "api_key", apiKey)
	req = req.WithContext(ctx)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Verify authenticated limit header is 120
	limit, err := strconv.Atoi(rr.Header().Get("X-RateLimit-Limit"))
	require.NoError(t, err)
	assert.Equal(t, 120, limit)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.0.2.1:12345",
			expected:   "192.0.2.1:12345",
		},
		{
			name:       "x-forwarded-for first entry wins",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"},
			expected:   "203.0.113.50",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:12345",
			headers:    map[string]string{"X-Real-IP": "203.0.113.50"},
			expected:   "203.0.113.50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientIP(req))
		})
	}
}
