// Package batch drives the per-customer evaluation pipeline across a period.
// Customers are independent partitions: a worker pool evaluates them in
// parallel, a single collector streams whole customer results to the sink in
// bounded batches and folds them into the run summary.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"shelfaudit/internal/compliance/engine"
	"shelfaudit/internal/compliance/metrics"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
)

const (
	defaultBatchSize     = 500
	defaultProgressEvery = 1000
)

var tracer = otel.Tracer("shelfaudit/batch")

// Runner evaluates every customer of a Dataset and writes the results.
type Runner struct {
	sink          ports.Sink
	progress      ports.ProgressReporter
	workers       int
	batchSize     int
	progressEvery int
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets the worker pool size. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithBatchSize sets how many customer results are written per sink call.
func WithBatchSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithProgress sets the progress reporter and how many customers pass between
// reports.
func WithProgress(p ports.ProgressReporter, every int) Option {
	return func(r *Runner) {
		r.progress = p
		if every > 0 {
			r.progressEvery = every
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock overrides the time source used for summaries and progress.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func New(sink ports.Sink, opts ...Option) *Runner {
	r := &Runner{
		sink:          sink,
		workers:       runtime.NumCPU(),
		batchSize:     defaultBatchSize,
		progressEvery: defaultProgressEvery,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates all customers of ds. Cancellation is checked between
// customers; on cancellation or sink failure Run returns the error and no
// further batches are written. Every batch the sink received holds complete
// customer results only.
func (r *Runner) Run(ctx context.Context, ds *engine.Dataset) (*Summary, error) {
	runID := ports.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = ports.ContextWithRunID(ctx, runID)
	}

	ctx, span := tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("period", ds.Period.String()),
		attribute.Int("customers", ds.Len()),
		attribute.Int("workers", r.workers),
	))
	defer span.End()

	summary := newSummary(runID, ds.Period, r.now())
	summary.Unattributed = ds.Unattributed
	r.report(ctx, ports.Progress{RunID: runID, Period: ds.Period, Total: ds.Len()})

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan string)
	results := make(chan models.CustomerResult, r.batchSize)

	g.Go(func() error {
		defer close(jobs)
		for _, id := range ds.Customers() {
			select {
			case <-gctx.Done():
				return nil
			case jobs <- id:
			}
		}
		return nil
	})

	var workers sync.WaitGroup
	for range r.workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for id := range jobs {
				if gctx.Err() != nil {
					return nil
				}
				res := ds.Evaluate(id)
				select {
				case <-gctx.Done():
					return nil
				case results <- res:
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	g.Go(func() error {
		return r.collect(gctx, ds, summary, results)
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if r.logger != nil {
			r.logger.WarnContext(ctx, "compliance run aborted",
				"run_id", runID,
				"period", ds.Period.String(),
				"processed", summary.Customers,
				"total", ds.Len(),
				"error", err,
			)
		}
		return nil, err
	}

	summary.finish(r.now())
	r.report(ctx, ports.Progress{
		RunID:     runID,
		Period:    ds.Period,
		Processed: summary.Customers,
		Total:     ds.Len(),
		Done:      true,
	})
	span.SetAttributes(
		attribute.Int("passed", summary.Passed),
		attribute.Int("failed", summary.Failed),
	)
	span.SetStatus(codes.Ok, "")
	if r.logger != nil {
		r.logger.InfoContext(ctx, "compliance run completed",
			"run_id", runID,
			"period", ds.Period.String(),
			"customers", summary.Customers,
			"passed", summary.Passed,
			"failed", summary.Failed,
			"duration", summary.Duration,
		)
	}
	return summary, nil
}

// collect is the only goroutine that touches the summary and the sink.
func (r *Runner) collect(ctx context.Context, ds *engine.Dataset, summary *Summary, results <-chan models.CustomerResult) error {
	pending := make([]models.CustomerResult, 0, r.batchSize)
	written := 0
	lastReport := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.flush(ctx, ds.Period, pending); err != nil {
			return err
		}
		written += len(pending)
		pending = make([]models.CustomerResult, 0, r.batchSize)
		if written-lastReport >= r.progressEvery {
			lastReport = written
			r.report(ctx, ports.Progress{
				RunID:     summary.RunID,
				Period:    ds.Period,
				Processed: written,
				Total:     ds.Len(),
			})
		}
		return nil
	}

	for res := range results {
		summary.Add(res)
		r.metrics.IncrementVerdict(string(res.Customer.Status), string(res.Customer.Reason))
		pending = append(pending, res)
		if len(pending) >= r.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	// Workers only stop early when the run was canceled.
	if summary.Customers < ds.Len() {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("run stopped after %d of %d customers", summary.Customers, ds.Len())
	}
	return flush()
}

func (r *Runner) flush(ctx context.Context, period models.Period, batch []models.CustomerResult) error {
	ctx, span := tracer.Start(ctx, "batch.flush", trace.WithAttributes(
		attribute.Int("customers", len(batch)),
	))
	defer span.End()

	start := time.Now()
	err := r.sink.Write(ctx, period, batch)
	r.metrics.ObserveFlush(len(batch), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("writing %d customer results: %w", len(batch), err)
	}
	return nil
}

// report is best effort: progress is observable only and never fails a run.
func (r *Runner) report(ctx context.Context, p ports.Progress) {
	if r.progress == nil {
		return
	}
	p.UpdatedAt = r.now()
	if err := r.progress.Report(ctx, p); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "progress report failed",
			"run_id", p.RunID,
			"processed", p.Processed,
			"error", err,
		)
	}
}
