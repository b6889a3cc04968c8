// Package ports defines the boundaries of the compliance engine. Loaders and
// sinks are external collaborators; the engine only sees these interfaces, so
// Postgres, in-memory or any other storage can be swapped without touching
// evaluation code.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"shelfaudit/internal/compliance/models"
)

// Input is everything the engine needs for one period.
type Input struct {
	Registrations []models.Registration
	Rules         []models.Rule
	Audits        []models.AuditRecord
}

// Loader reads a period's registrations, rules and audits.
type Loader interface {
	Load(ctx context.Context, period models.Period) (*Input, error)
}

// Sink persists customer results. Writes are upserts by natural key: writing a
// customer again replaces its previous three-tier result for the period.
type Sink interface {
	Write(ctx context.Context, period models.Period, results []models.CustomerResult) error
}

// Pruner drops a period's results that were not written by runID. It runs
// once a run has persisted every customer, so a re-evaluation leaves exactly
// the new verdict set behind.
type Pruner interface {
	Prune(ctx context.Context, period models.Period, runID string) error
}

// VerdictReader reads back persisted results.
type VerdictReader interface {
	CustomerResult(ctx context.Context, period models.Period, customerID string) (*models.CustomerResult, error)
}

// Progress is a point-in-time view of a running or finished batch.
type Progress struct {
	RunID     string        `json:"run_id"`
	Period    models.Period `json:"period"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Done      bool          `json:"done"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ProgressReporter observes batch progress. Reporting never affects results.
type ProgressReporter interface {
	Report(ctx context.Context, p Progress) error
}

// ProgressReader returns the last reported progress for a period.
type ProgressReader interface {
	Progress(ctx context.Context, period models.Period) (*Progress, error)
}

// RunLock prevents two runs of the same period from interleaving their writes.
type RunLock interface {
	Acquire(ctx context.Context, period models.Period, runID string) (release func(context.Context) error, err error)
}

// EventPublisher announces customer verdicts to downstream consumers.
type EventPublisher interface {
	PublishVerdicts(ctx context.Context, period models.Period, results []models.CustomerResult) error
}
