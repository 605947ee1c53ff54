package storage

import (
	"context"
	"sync"

	"gatekeep/internal/models"
)

// maxMemoryEvents bounds the in-memory backend; the oldest events are
// dropped once the cap is reached.
const maxMemoryEvents = 10000

// MemoryStorage keeps audit events in process memory. It is the default
// backend: zero setup, suitable for development and single-instance
// deployments that can tolerate losing history on restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []*models.AuditEvent // append order, oldest first
	closed bool
}

// NewMemoryStorage creates an empty in-memory event store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// RecordEvent stores the event, evicting the oldest when the cap is hit.
func (ms *MemoryStorage) RecordEvent(ctx context.Context, event *models.AuditEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if len(ms.events) >= maxMemoryEvents {
		ms.events = ms.events[1:]
	}
	ms.events = append(ms.events, cloneEvent(event))
	return nil
}

// Events returns matching events newest first with the pre-paging total.
func (ms *MemoryStorage) Events(ctx context.Context, req *models.ListEventsRequest) ([]*models.AuditEvent, int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var matched []*models.AuditEvent
	for i := len(ms.events) - 1; i >= 0; i-- {
		e := ms.events[i]
		if req.Kind != "" && e.Kind != req.Kind {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)

	if req.Offset >= total {
		return []*models.AuditEvent{}, total, nil
	}
	matched = matched[req.Offset:]
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}

	out := make([]*models.AuditEvent, len(matched))
	for i, e := range matched {
		out[i] = cloneEvent(e)
	}
	return out, total, nil
}

// GetEvent retrieves a single event by id.
func (ms *MemoryStorage) GetEvent(ctx context.Context, id string) (*models.AuditEvent, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, e := range ms.events {
		if e.ID == id {
			return cloneEvent(e), nil
		}
	}
	return nil, ErrNotFound
}

// Ping always succeeds while the store is open.
func (ms *MemoryStorage) Ping(ctx context.Context) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.closed {
		return context.Canceled
	}
	return nil
}

// Close releases the stored events.
func (ms *MemoryStorage) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events = nil
	ms.closed = true
	return nil
}

// cloneEvent copies an event so callers cannot mutate stored state.
func cloneEvent(e *models.AuditEvent) *models.AuditEvent {
	c := *e
	return &c
}
