package storage

import (
	"context"
	"errors"
	"fmt"

	"gatekeep/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	request_id TEXT NOT NULL DEFAULT '',
	client_ip  TEXT NOT NULL DEFAULT '',
	target     TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_kind ON audit_events(kind);
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
`

// PostgresStorage persists audit events in PostgreSQL using a pgx connection
// pool. This is the backend for multi-instance deployments that want a
// shared, durable audit trail (the rate limiter itself stays per-process).
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to the database at dsn and ensures the schema.
func NewPostgresStorage(dsn string) (Storage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for PostgreSQL storage")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// RecordEvent stores a new audit event.
func (ps *PostgresStorage) RecordEvent(ctx context.Context, event *models.AuditEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	_, err := ps.pool.Exec(ctx,
		`INSERT INTO audit_events (id, kind, request_id, client_ip, target, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Kind, event.RequestID, event.ClientIP, event.Target, event.Detail, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Events returns matching events newest first with the pre-paging total.
func (ps *PostgresStorage) Events(ctx context.Context, req *models.ListEventsRequest) ([]*models.AuditEvent, int, error) {
	where := ""
	countArgs := []any{}
	if req.Kind != "" {
		where = " WHERE kind = $1"
		countArgs = append(countArgs, req.Kind)
	}

	var total int
	if err := ps.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_events"+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	var rows pgx.Rows
	var err error
	if req.Kind != "" {
		rows, err = ps.pool.Query(ctx,
			`SELECT id, kind, request_id, client_ip, target, detail, created_at
			 FROM audit_events WHERE kind = $1
			 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
			req.Kind, req.Limit, req.Offset)
	} else {
		rows, err = ps.pool.Query(ctx,
			`SELECT id, kind, request_id, client_ip, target, detail, created_at
			 FROM audit_events
			 ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
			req.Limit, req.Offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.Kind, &e.RequestID, &e.ClientIP, &e.Target, &e.Detail, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read events: %w", err)
	}
	if events == nil {
		events = []*models.AuditEvent{}
	}

	return events, total, nil
}

// GetEvent retrieves a single event by id.
func (ps *PostgresStorage) GetEvent(ctx context.Context, id string) (*models.AuditEvent, error) {
	var e models.AuditEvent
	err := ps.pool.QueryRow(ctx,
		`SELECT id, kind, request_id, client_ip, target, detail, created_at
		 FROM audit_events WHERE id = $1`, id).
		Scan(&e.ID, &e.Kind, &e.RequestID, &e.ClientIP, &e.Target, &e.Detail, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

// Ping verifies database connectivity.
func (ps *PostgresStorage) Ping(ctx context.Context) error {
	return ps.pool.Ping(ctx)
}

// Close closes the connection pool.
func (ps *PostgresStorage) Close() error {
	ps.pool.Close()
	return nil
}
