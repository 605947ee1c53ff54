// Package models - API request types and input validation.
//
// Validation Philosophy:
// - Fail fast with clear, field-scoped error messages for invalid input
// - Normalize input for consistent processing (trimmed strings, defaults)
// - Keep validation separate from handlers so it can be tested directly
package models

import (
	"strings"
	"time"
)

// FetchRequest asks the service to perform a guarded outbound request.
//
// Security Notes:
// - The URL itself is validated by the egress guard, not here; this layer
//   only checks structural requirements.
// - Per-request bounds may tighten the configured egress limits but never
//   exceed them.
type FetchRequest struct {
	URL          string            `json:"url" validate:"required"`
	Method       string            `json:"method,omitempty"`        // defaults to GET
	Headers      map[string]string `json:"headers,omitempty"`       // forwarded verbatim, hop-by-hop stripped
	MaxRedirects *int              `json:"max_redirects,omitempty"` // override, capped at config
	MaxBytes     *int64            `json:"max_bytes,omitempty"`     // override, capped at config
	Timeout      string            `json:"timeout,omitempty"`       // Go duration string, capped at config
}

// allowed fetch methods; write methods with bodies are deliberately excluded.
var fetchMethods = map[string]bool{
	"GET":     true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Validate checks structural requirements of the fetch request.
func (r *FetchRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return NewFieldError("url", "url is required")
	}

	if r.Method != "" && !fetchMethods[strings.ToUpper(r.Method)] {
		return NewFieldError("method", "method must be one of GET, HEAD, OPTIONS")
	}

	if r.MaxRedirects != nil && *r.MaxRedirects < 0 {
		return NewFieldError("max_redirects", "max_redirects cannot be negative")
	}

	if r.MaxBytes != nil && *r.MaxBytes <= 0 {
		return NewFieldError("max_bytes", "max_bytes must be positive")
	}

	if r.Timeout != "" {
		d, err := time.ParseDuration(r.Timeout)
		if err != nil {
			return NewFieldError("timeout", "timeout must be a valid duration string")
		}
		if d <= 0 {
			return NewFieldError("timeout", "timeout must be positive")
		}
	}

	return nil
}

// Normalize applies defaults and canonical forms after validation.
func (r *FetchRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	if r.Method == "" {
		r.Method = "GET"
	}
	r.Method = strings.ToUpper(r.Method)
}

// ParsedTimeout returns the per-request timeout, or zero when unset.
func (r *FetchRequest) ParsedTimeout() time.Duration {
	if r.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// EchoRequest is the example endpoint input.
type EchoRequest struct {
	Message string `json:"message" validate:"required"`
}

func (r *EchoRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return NewFieldError("message", "message is required")
	}
	if len(r.Message) > 1024 {
		return NewFieldError("message", "message must be at most 1024 characters")
	}
	return nil
}

// ListEventsRequest filters and pages the audit event listing.
type ListEventsRequest struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

func (r *ListEventsRequest) Validate() error {
	if r.Kind != "" {
		switch r.Kind {
		case EventKindRateLimited, EventKindEgressDenied, EventKindEgressFetch:
		default:
			return NewFieldError("kind", "unknown event kind: "+r.Kind)
		}
	}
	if r.Limit < 0 {
		return NewFieldError("limit", "limit cannot be negative")
	}
	if r.Offset < 0 {
		return NewFieldError("offset", "offset cannot be negative")
	}
	return nil
}

func (r *ListEventsRequest) Normalize() {
	if r.Limit == 0 {
		r.Limit = defaultEventsLimit
	}
	if r.Limit > maxEventsLimit {
		r.Limit = maxEventsLimit
	}
}
