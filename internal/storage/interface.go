package storage

import (
	"context"

	"gatekeep/internal/models"
)

// Storage defines the interface for audit event persistence. It provides a
// clean abstraction that can be implemented by different backends such as
// in-process memory, SQLite, or PostgreSQL.
type Storage interface {
	// RecordEvent stores a new audit event.
	RecordEvent(ctx context.Context, event *models.AuditEvent) error

	// Events returns events matching the request filter, newest first,
	// along with the total count before paging.
	Events(ctx context.Context, req *models.ListEventsRequest) ([]*models.AuditEvent, int, error)

	// GetEvent retrieves a single event by id. Returns ErrNotFound when
	// no event with that id exists.
	GetEvent(ctx context.Context, id string) (*models.AuditEvent, error)

	// Ping verifies the backend is reachable; the health endpoint reports
	// its latency.
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources.
	Close() error
}
