package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"

	audit "shelfaudit/pkg/platform/audit"
	txcontext "shelfaudit/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Store implements audit.Store on the run_audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Migrate creates the audit table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Append writes one event. Re-appending an event with the same ID is a no-op.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	id := uuid.New()
	if event.ID != "" {
		parsed, err := uuid.Parse(event.ID)
		if err != nil {
			return fmt.Errorf("parse audit event id: %w", err)
		}
		id = parsed
	}

	query := `
		INSERT INTO run_audit_events (
			id, run_id, period, action, occurred_at,
			customers, passed, failed, reason, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		id,
		event.RunID,
		event.Period,
		string(event.Action),
		event.Timestamp,
		event.Customers,
		event.Passed,
		event.Failed,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByPeriod returns the newest events of a period first.
func (s *Store) ListByPeriod(ctx context.Context, period string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, run_id, period, action, occurred_at,
			   customers, passed, failed, reason, request_id
		FROM run_audit_events
		WHERE period = $1
		ORDER BY occurred_at DESC, id
		LIMIT $2
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, period, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e      audit.Event
			id     uuid.UUID
			action string
		)
		if err := rows.Scan(&id, &e.RunID, &e.Period, &action, &e.Timestamp,
			&e.Customers, &e.Passed, &e.Failed, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.String()
		e.Action = audit.Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
