// Package models - API response envelopes and error codes.
//
// Every endpoint responds with one of two shapes: a success envelope wrapping
// the payload under "data", or an error envelope wrapping code, message, and
// the correlating request id under "error". The request id in the body always
// matches the X-Request-ID response header so a single value ties a user
// report to the server logs.
package models

import "time"

// Standard error codes.
//
// Error Code Strategy:
// - Upper-case with underscores for consistency
// - Maps to standard HTTP status codes
// - Machine-readable for client error handling
const (
	ErrorCodeBadRequest         = "BAD_REQUEST"          // 400: Invalid request format
	ErrorCodeValidation         = "VALIDATION_ERROR"     // 400: Input validation failed
	ErrorCodeUnauthorized       = "UNAUTHORIZED"         // 401: Authentication required
	ErrorCodeForbidden          = "FORBIDDEN"            // 403: Permission denied
	ErrorCodeNotFound           = "NOT_FOUND"            // 404: Resource doesn't exist
	ErrorCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"   // 405: Wrong HTTP method
	ErrorCodeRateLimited        = "RATE_LIMIT_EXCEEDED"  // 429: Too many requests
	ErrorCodeInternalError      = "INTERNAL_ERROR"       // 500: Server-side error
	ErrorCodeUpstreamBlocked    = "UPSTREAM_BLOCKED"     // 400: Egress target rejected
	ErrorCodeUpstreamFailed     = "UPSTREAM_FAILED"      // 502: Egress request failed
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE"  // 503: Dependency down
)

// SuccessResponse is the uniform wrapper for successful payloads.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the uniform wrapper for failures.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable code, the human-readable message,
// and the request correlation id. Details is populated only outside
// production builds.
type ErrorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func NewSuccessResponse(data any) *SuccessResponse {
	return &SuccessResponse{Data: data}
}

func NewErrorResponse(code, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorBody{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// WithDetails attaches field-level details to the error body.
func (r *ErrorResponse) WithDetails(details map[string]string) *ErrorResponse {
	r.Error.Details = details
	return r
}

// HealthResponse reports service and dependency status.
type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version,omitempty"`
	Database  DatabaseHealth `json:"database"`
}

type DatabaseHealth struct {
	Connected bool   `json:"connected"`
	Latency   string `json:"latency,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Health status constants.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// FetchResponse summarizes a completed guarded fetch.
type FetchResponse struct {
	URL           string            `json:"url"`            // final URL after redirects
	RequestedURL  string            `json:"requested_url"`  // URL as submitted
	Status        int               `json:"status"`
	Headers       map[string]string `json:"headers,omitempty"`
	Body          string            `json:"body,omitempty"`
	BodyTruncated bool              `json:"body_truncated"`
	Redirects     int               `json:"redirects"`
	Duration      string            `json:"duration"`
}

// URLCheckResponse reports whether a URL passes the egress guard.
type URLCheckResponse struct {
	URL    string `json:"url"`
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// EchoResponse is the example endpoint payload.
type EchoResponse struct {
	Message    string    `json:"message"`
	Method     string    `json:"method"`
	ReceivedAt time.Time `json:"received_at"`
}

// ListEventsResponse pages through recorded audit events.
type ListEventsResponse struct {
	Events     []*AuditEvent `json:"events"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}
