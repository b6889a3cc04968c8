// Package postgres implements the compliance Loader, Sink and VerdictReader on
// PostgreSQL through database/sql.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	txcontext "shelfaudit/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Store persists period inputs and results in PostgreSQL.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp evaluated_at.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// New constructs a PostgreSQL-backed compliance store.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the compliance tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply compliance schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// inTx runs fn inside the caller's transaction or a new one.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, q dbExecutor) error) error {
	return txcontext.Within(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, tx)
	})
}
