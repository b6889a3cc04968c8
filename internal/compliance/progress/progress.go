// Package progress observes batch runs: logging, last-known progress per
// period, and the per-period run lock. None of it influences verdicts.
package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/pkg/platform/sentinel"
)

// LogReporter writes progress to a structured logger.
type LogReporter struct {
	logger *slog.Logger
}

func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, p ports.Progress) error {
	if r.logger == nil {
		return nil
	}
	r.logger.InfoContext(ctx, "compliance run progress",
		"run_id", p.RunID,
		"period", p.Period.String(),
		"processed", p.Processed,
		"total", p.Total,
		"done", p.Done,
	)
	return nil
}

// Fanout forwards each report to every reporter and joins their errors.
type Fanout []ports.ProgressReporter

func (f Fanout) Report(ctx context.Context, p ports.Progress) error {
	var errs []error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Tracker keeps the last report per period in process memory.
type Tracker struct {
	mu     sync.RWMutex
	latest map[models.Period]ports.Progress
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[models.Period]ports.Progress)}
}

func (t *Tracker) Report(_ context.Context, p ports.Progress) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[p.Period] = p
	return nil
}

func (t *Tracker) Progress(_ context.Context, period models.Period) (*ports.Progress, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.latest[period]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}
