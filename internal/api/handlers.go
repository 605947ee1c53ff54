package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gatekeep/internal/models"
	"gatekeep/internal/ratelimit"
	"gatekeep/internal/ssrf"
	"gatekeep/internal/storage"
	"gatekeep/internal/version"

	"github.com/gorilla/mux"
)

// Handlers contains HTTP handlers for the gatekeep API
type Handlers struct {
	storage storage.Storage
	fetcher *ssrf.Client
	config  *models.Config

	onEgressDenied func(ctx context.Context, reason string)
	onEgressFetch  func(ctx context.Context)
}

// HandlerOption configures optional handler behavior.
type HandlerOption func(*Handlers)

// WithEgressHooks registers callbacks invoked after each guard decision.
// Used to feed the security metric counters without coupling this package
// to the metrics provider.
func WithEgressHooks(onDenied func(ctx context.Context, reason string), onFetch func(ctx context.Context)) HandlerOption {
	return func(h *Handlers) {
		h.onEgressDenied = onDenied
		h.onEgressFetch = onFetch
	}
}

// NewHandlers creates a new handlers instance
func NewHandlers(store storage.Storage, fetcher *ssrf.Client, config *models.Config, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		storage: store,
		fetcher: fetcher,
		config:  config,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthCheck handles health check requests
// GET /health and GET /api/v1/health
// Reports 503 when the audit store cannot be reached.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := &models.HealthResponse{
		Status:    models.StatusOK,
		Timestamp: time.Now().UTC(),
		Version:   version.GetInfo().Version,
	}

	start := time.Now()
	err := h.storage.Ping(r.Context())
	latency := time.Since(start)

	response.Database.Connected = err == nil
	response.Database.Latency = latency.String()

	statusCode := http.StatusOK
	if err != nil {
		response.Status = models.StatusError
		response.Database.Error = "storage unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	h.writeJSONResponse(w, r, statusCode, models.NewSuccessResponse(response))
}

// Fetch handles guarded outbound fetch requests
// POST /api/v1/fetch
func (h *Handlers) Fetch(w http.ResponseWriter, r *http.Request) {
	var req models.FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
		return
	}

	if err := req.Validate(); err != nil {
		h.writeValidationError(w, r, err)
		return
	}
	req.Normalize()

	opts := ssrf.FetchOptions{
		Method:       req.Method,
		Headers:      req.Headers,
		MaxRedirects: req.MaxRedirects,
		MaxBytes:     req.MaxBytes,
		Timeout:      req.ParsedTimeout(),
	}

	result, err := h.fetcher.Fetch(r.Context(), req.URL, opts)
	if err != nil {
		h.handleFetchError(w, r, req.URL, err)
		return
	}

	h.recordEvent(r, models.EventKindEgressFetch, req.URL,
		strconv.Itoa(result.StatusCode))
	if h.onEgressFetch != nil {
		h.onEgressFetch(r.Context())
	}

	headers := make(map[string]string, len(result.Header))
	for name := range result.Header {
		headers[name] = result.Header.Get(name)
	}

	response := &models.FetchResponse{
		URL:           result.FinalURL,
		RequestedURL:  req.URL,
		Status:        result.StatusCode,
		Headers:       headers,
		Body:          string(result.Body),
		BodyTruncated: result.Truncated,
		Redirects:     result.Redirects,
		Duration:      result.Duration.String(),
	}

	h.writeJSONResponse(w, r, http.StatusOK, models.NewSuccessResponse(response))
}

// CheckURL handles guard pre-checks without performing the fetch
// GET /api/v1/check?url=...
func (h *Handlers) CheckURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeValidation, "url query parameter is required")
		return
	}

	response := &models.URLCheckResponse{URL: raw, Safe: true}
	if _, err := ssrf.ValidateURL(raw); err != nil {
		response.Safe = false
		var guardErr *ssrf.Error
		if errors.As(err, &guardErr) {
			response.Reason = string(guardErr.Reason)
		} else {
			response.Reason = string(ssrf.ReasonInvalidURL)
		}
	}

	h.writeJSONResponse(w, r, http.StatusOK, models.NewSuccessResponse(response))
}

// Echo handles the example endpoint
// GET /api/v1/echo?message=... and POST /api/v1/echo
func (h *Handlers) Echo(w http.ResponseWriter, r *http.Request) {
	var req models.EchoRequest

	switch r.Method {
	case http.MethodGet:
		req.Message = r.URL.Query().Get("message")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "Invalid JSON body")
			return
		}
	}

	if err := req.Validate(); err != nil {
		h.writeValidationError(w, r, err)
		return
	}

	response := &models.EchoResponse{
		Message:    req.Message,
		Method:     r.Method,
		ReceivedAt: time.Now().UTC(),
	}

	h.writeJSONResponse(w, r, http.StatusOK, models.NewSuccessResponse(response))
}

// ListEvents handles audit event listing
// GET /api/v1/events
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	req := &models.ListEventsRequest{
		Kind: r.URL.Query().Get("kind"),
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeValidation, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil {
			h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeValidation, "offset must be an integer")
			return
		}
		req.Offset = offset
	}

	if err := req.Validate(); err != nil {
		h.writeValidationError(w, r, err)
		return
	}
	req.Normalize()

	events, total, err := h.storage.Events(r.Context(), req)
	if err != nil {
		slog.Error("Failed to list audit events", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Failed to list events")
		return
	}

	response := &models.ListEventsResponse{
		Events:     events,
		TotalCount: total,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}

	h.writeJSONResponse(w, r, http.StatusOK, models.NewSuccessResponse(response))
}

// GetEvent handles single audit event retrieval
// GET /api/v1/events/{event_id}
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	eventID := vars["event_id"]

	event, err := h.storage.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeErrorResponse(w, r, http.StatusNotFound, models.ErrorCodeNotFound, "Event not found")
			return
		}
		slog.Error("Failed to get audit event", "event_id", eventID, "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Failed to get event")
		return
	}

	h.writeJSONResponse(w, r, http.StatusOK, models.NewSuccessResponse(event))
}

// handleFetchError maps fetch failures to the error envelope. Guard
// rejections are the caller's fault; everything past the guard is an
// upstream failure.
func (h *Handlers) handleFetchError(w http.ResponseWriter, r *http.Request, target string, err error) {
	var guardErr *ssrf.Error
	if !errors.As(err, &guardErr) {
		h.recordEvent(r, models.EventKindEgressDenied, target, "upstream_failed")
		h.writeErrorResponse(w, r, http.StatusBadGateway, models.ErrorCodeUpstreamFailed, "Upstream request failed")
		return
	}

	h.recordEvent(r, models.EventKindEgressDenied, target, string(guardErr.Reason))
	if h.onEgressDenied != nil {
		h.onEgressDenied(r.Context(), string(guardErr.Reason))
	}

	switch guardErr.Reason {
	case ssrf.ReasonInvalidURL, ssrf.ReasonDisallowedScheme, ssrf.ReasonPrivateAddress:
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeUpstreamBlocked, guardErr.Message)
	case ssrf.ReasonTimeout:
		h.writeErrorResponse(w, r, http.StatusGatewayTimeout, models.ErrorCodeUpstreamFailed, guardErr.Message)
	default:
		// missing location, redirect budget, oversized response
		h.writeErrorResponse(w, r, http.StatusBadGateway, models.ErrorCodeUpstreamFailed, guardErr.Message)
	}
}

// recordEvent persists an audit event best-effort. A storage failure is
// logged and swallowed so it never fails the request being audited.
func (h *Handlers) recordEvent(r *http.Request, kind, target, detail string) {
	event := models.NewAuditEvent(kind, requestIDFrom(r), ratelimit.ClientIP(r), target, detail)
	if err := h.storage.RecordEvent(r.Context(), event); err != nil {
		slog.Error("Failed to record audit event", "kind", kind, "error", err)
	}
}

// writeValidationError unpacks field errors into the details map.
func (h *Handlers) writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	resp := models.NewErrorResponse(models.ErrorCodeValidation, err.Error(), requestIDFrom(r))

	var fieldErr *models.FieldError
	if errors.As(err, &fieldErr) && !h.config.IsProduction() {
		resp.WithDetails(fieldErr.Details())
	}

	h.writeJSONResponse(w, r, http.StatusBadRequest, resp)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if requestID := requestIDFrom(r); requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to send to the client.
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes an error envelope
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	h.writeJSONResponse(w, r, statusCode, models.NewErrorResponse(errorCode, message, requestIDFrom(r)))
}

// requestIDFrom returns the correlation id set by the request id middleware.
func requestIDFrom(r *http.Request) string {
	requestID, _ := r.Context().Value("request_id").(string)
	return requestID
}
