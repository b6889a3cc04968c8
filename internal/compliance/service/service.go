// Package service orchestrates one period's evaluation: lock the period, load
// its inputs, build the dataset, run the batch and report the summary.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shelfaudit/internal/compliance/batch"
	"shelfaudit/internal/compliance/engine"
	"shelfaudit/internal/compliance/metrics"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	dErrors "shelfaudit/pkg/domain-errors"
	audit "shelfaudit/pkg/platform/audit"
	"shelfaudit/pkg/platform/sentinel"
	"shelfaudit/pkg/requestcontext"
)

var tracer = otel.Tracer("shelfaudit/service")

// Service is the entry point for evaluations and result queries.
type Service struct {
	loader   ports.Loader
	runner   *batch.Runner
	reader   ports.VerdictReader
	progress ports.ProgressReader
	lock     ports.RunLock
	pruner   ports.Pruner
	auditor  audit.Store
	policy   engine.Policy
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy sets the sentinel program and duplicate audit handling.
func WithPolicy(p engine.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithRunLock(l ports.RunLock) Option {
	return func(s *Service) {
		s.lock = l
	}
}

// WithPruner removes results of earlier runs once a run has persisted every
// customer of its period.
func WithPruner(p ports.Pruner) Option {
	return func(s *Service) {
		s.pruner = p
	}
}

// WithAuditor records run lifecycle events. Audit failures are logged and never
// fail the run.
func WithAuditor(a audit.Store) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithProgressReader(r ports.ProgressReader) Option {
	return func(s *Service) {
		s.progress = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(loader ports.Loader, runner *batch.Runner, reader ports.VerdictReader, opts ...Option) *Service {
	s := &Service{
		loader: loader,
		runner: runner,
		reader: reader,
		policy: engine.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EvaluatePeriod evaluates every customer of period and persists the results.
// Concurrent evaluations of the same period are rejected with CodeConflict.
func (s *Service) EvaluatePeriod(ctx context.Context, period models.Period) (*batch.Summary, error) {
	if !period.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid period %d", int(period))
	}
	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "service.EvaluatePeriod", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("period", period.String()),
	))
	defer span.End()

	start := time.Now()
	s.metrics.RunStarted()
	defer s.metrics.RunFinished()

	summary, err := s.evaluate(ctx, period, runID)
	s.metrics.ObserveRun(outcome(err), time.Since(start))
	s.recordOutcome(ctx, period, runID, summary, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "period evaluation failed",
				"run_id", runID,
				"period", period.String(),
				"error", err,
			)
		}
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return summary, nil
}

func (s *Service) evaluate(ctx context.Context, period models.Period, runID string) (*batch.Summary, error) {
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, period, runID)
		if err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "period is already being evaluated")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to acquire run lock")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "run lock not released", "run_id", runID, "error", err)
			}
		}()
	}
	s.record(ctx, audit.Event{RunID: runID, Period: period.String(), Action: audit.ActionRunStarted})

	ds, err := s.load(ctx, period)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "period loaded",
			"run_id", runID,
			"period", period.String(),
			"customers", ds.Len(),
			"rule_groups", len(ds.Rules.GroupIDs()),
			"unattributed_rows", ds.Unattributed,
		)
	}

	summary, err := s.runner.Run(ports.ContextWithRunID(ctx, runID), ds)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to persist results")
	}
	if s.pruner != nil {
		if err := s.pruner.Prune(ctx, period, runID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to replace previous results")
		}
	}
	return summary, nil
}

func (s *Service) load(ctx context.Context, period models.Period) (*engine.Dataset, error) {
	ctx, span := tracer.Start(ctx, "service.load")
	defer span.End()

	in, err := s.loader.Load(ctx, period)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no data for period %s", period)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load period")
	}

	ds, err := engine.NewDataset(period, in.Registrations, in.Rules, in.Audits, s.policy)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("registrations", len(in.Registrations)),
		attribute.Int("rules", len(in.Rules)),
		attribute.Int("audits", len(in.Audits)),
	)
	return ds, nil
}

// CustomerResult returns the persisted three-tier result of one customer.
func (s *Service) CustomerResult(ctx context.Context, period models.Period, customerID string) (*models.CustomerResult, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "customer id is required")
	}
	res, err := s.reader.CustomerResult(ctx, period, customerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no result for customer %s in period %s", customerID, period)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read customer result")
	}
	return res, nil
}

// Progress returns the last reported progress of period.
func (s *Service) Progress(ctx context.Context, period models.Period) (*ports.Progress, error) {
	if s.progress == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "progress tracking is not configured")
	}
	p, err := s.progress.Progress(ctx, period)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no run recorded for period %s", period)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read progress")
	}
	return p, nil
}

// Runs returns the audit trail of period, newest first.
func (s *Service) Runs(ctx context.Context, period models.Period, limit int) ([]audit.Event, error) {
	if s.auditor == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "run audit is not configured")
	}
	if limit <= 0 || limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	events, err := s.auditor.ListByPeriod(ctx, period.String(), limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read run audit")
	}
	if events == nil {
		events = []audit.Event{}
	}
	return events, nil
}

const maxRunsLimit = 100

func (s *Service) recordOutcome(ctx context.Context, period models.Period, runID string, summary *batch.Summary, err error) {
	event := audit.Event{RunID: runID, Period: period.String()}
	switch {
	case err == nil:
		event.Action = audit.ActionRunCompleted
		event.Customers = summary.Customers
		event.Passed = summary.Passed
		event.Failed = summary.Failed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		event.Action = audit.ActionRunCanceled
		event.Reason = err.Error()
	case dErrors.HasCode(err, dErrors.CodeConflict):
		event.Action = audit.ActionRunRejected
		event.Reason = string(dErrors.CodeConflict)
	default:
		event.Action = audit.ActionRunFailed
		event.Reason = string(dErrors.CodeOf(err))
	}
	s.record(ctx, event)
}

// record appends a best-effort audit event. Outcome events must survive the
// run's own cancellation.
func (s *Service) record(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Append(context.WithoutCancel(ctx), event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "run audit not recorded",
			"run_id", event.RunID,
			"action", string(event.Action),
			"error", err,
		)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}
