package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event kinds.
const (
	EventKindRateLimited  = "rate_limited"  // a client exceeded its request budget
	EventKindEgressDenied = "egress_denied" // a fetch target failed the URL guard
	EventKindEgressFetch  = "egress_fetch"  // a guarded fetch was performed
)

// AuditEvent records a single security-relevant decision. Events are
// best-effort: failing to persist one never fails the request that caused it.
type AuditEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	RequestID string    `json:"request_id"`
	ClientIP  string    `json:"client_ip"`
	Target    string    `json:"target,omitempty"` // URL or rate-limit key, depending on kind
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAuditEvent creates an event with a fresh id and timestamp.
func NewAuditEvent(kind, requestID, clientIP, target, detail string) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New().String(),
		Kind:      kind,
		RequestID: requestID,
		ClientIP:  clientIP,
		Target:    target,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the event before persistence.
func (e *AuditEvent) Validate() error {
	if e.ID == "" {
		return NewFieldError("id", "id is required")
	}
	switch e.Kind {
	case EventKindRateLimited, EventKindEgressDenied, EventKindEgressFetch:
	default:
		return NewFieldError("kind", "unknown event kind: "+e.Kind)
	}
	if e.CreatedAt.IsZero() {
		return NewFieldError("created_at", "created_at is required")
	}
	return nil
}
