package audit

import (
	"context"
	"time"
)

// Action names a lifecycle step of an evaluation run.
type Action string

const (
	ActionRunStarted   Action = "run_started"
	ActionRunCompleted Action = "run_completed"
	ActionRunFailed    Action = "run_failed"
	// ActionRunRejected marks a run refused before it started, e.g. because
	// another run held the period.
	ActionRunRejected Action = "run_rejected"
	ActionRunCanceled Action = "run_canceled"
)

// Event is one entry of the run audit trail. Keep it transport-agnostic so
// stores can fan out.
type Event struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Period    string    `json:"period"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	// Outcome counts, set on completion.
	Customers int `json:"customers,omitempty"`
	Passed    int `json:"passed,omitempty"`
	Failed    int `json:"failed,omitempty"`
	// Reason carries the error code of failed or rejected runs.
	Reason string `json:"reason,omitempty"`
	// RequestID is the correlation id of the HTTP request that started the run.
	RequestID string `json:"request_id,omitempty"`
}

// Store persists and lists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListByPeriod returns the newest events first, at most limit of them.
	ListByPeriod(ctx context.Context, period string, limit int) ([]Event, error)
}
