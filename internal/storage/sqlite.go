package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gatekeep/internal/models"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	request_id TEXT NOT NULL DEFAULT '',
	client_ip  TEXT NOT NULL DEFAULT '',
	target     TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_events_kind ON audit_events(kind);
CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at);
`

// SQLiteStorage persists audit events in a SQLite database file. It suits
// single-instance deployments that want history to survive restarts without
// running a database server.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (and if necessary initializes) the database at dsn.
func NewSQLiteStorage(dsn string) (Storage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required for SQLite storage")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// RecordEvent stores a new audit event.
func (ss *SQLiteStorage) RecordEvent(ctx context.Context, event *models.AuditEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	_, err := ss.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, kind, request_id, client_ip, target, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Kind, event.RequestID, event.ClientIP, event.Target, event.Detail,
		event.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Events returns matching events newest first with the pre-paging total.
func (ss *SQLiteStorage) Events(ctx context.Context, req *models.ListEventsRequest) ([]*models.AuditEvent, int, error) {
	where := ""
	args := []any{}
	if req.Kind != "" {
		where = " WHERE kind = ?"
		args = append(args, req.Kind)
	}

	var total int
	if err := ss.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query := `SELECT id, kind, request_id, client_ip, target, detail, created_at
		 FROM audit_events` + where + ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, req.Limit, req.Offset)

	rows, err := ss.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		e, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
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
func (ss *SQLiteStorage) GetEvent(ctx context.Context, id string) (*models.AuditEvent, error) {
	row := ss.db.QueryRowContext(ctx,
		`SELECT id, kind, request_id, client_ip, target, detail, created_at
		 FROM audit_events WHERE id = ?`, id)

	e, err := scanSQLiteEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Ping verifies database connectivity.
func (ss *SQLiteStorage) Ping(ctx context.Context) error {
	return ss.db.PingContext(ctx)
}

// Close closes the database handle.
func (ss *SQLiteStorage) Close() error {
	return ss.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteEvent(row rowScanner) (*models.AuditEvent, error) {
	var e models.AuditEvent
	var createdAt string
	if err := row.Scan(&e.ID, &e.Kind, &e.RequestID, &e.ClientIP, &e.Target, &e.Detail, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
	}
	e.CreatedAt = ts
	return &e, nil
}
