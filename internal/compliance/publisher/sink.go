package publisher

import (
	"context"
	"log/slog"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
)

// Sink writes through to the result store and then announces the batch.
// The store is the source of truth: a publish failure is logged and the write
// still succeeds.
type Sink struct {
	next      ports.Sink
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewSink(next ports.Sink, publisher ports.EventPublisher, logger *slog.Logger) *Sink {
	return &Sink{next: next, publisher: publisher, logger: logger}
}

func (s *Sink) Write(ctx context.Context, period models.Period, results []models.CustomerResult) error {
	if err := s.next.Write(ctx, period, results); err != nil {
		return err
	}
	if err := s.publisher.PublishVerdicts(ctx, period, results); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "verdict events not published",
			"period", period.String(),
			"customers", len(results),
			"error", err,
		)
	}
	return nil
}
