package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"shelfaudit/internal/compliance/batch"
	"shelfaudit/internal/compliance/export"
	compliancemetrics "shelfaudit/internal/compliance/metrics"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/internal/compliance/progress"
	"shelfaudit/internal/compliance/publisher"
	"shelfaudit/internal/compliance/service"
	"shelfaudit/internal/compliance/store/memory"
	pgstore "shelfaudit/internal/compliance/store/postgres"
	"shelfaudit/internal/compliance/store/retry"
	"shelfaudit/internal/platform/config"
	"shelfaudit/internal/platform/kafka"
	"shelfaudit/internal/platform/postgres"
	"shelfaudit/internal/platform/redis"
	httptransport "shelfaudit/internal/transport/http"
	audit "shelfaudit/pkg/platform/audit"
	auditmemory "shelfaudit/pkg/platform/audit/store/memory"
	auditpostgres "shelfaudit/pkg/platform/audit/store/postgres"
)

// app holds the wired service and every resource that must be closed.
type app struct {
	service *service.Service
	export  *export.Sink
	checks  map[string]httptransport.HealthCheck
	// seed loads a generated dataset into whichever store is active.
	seed    func(ctx context.Context, period models.Period, in ports.Input) error
	closers []func() error
}

type appOptions struct {
	exportTo io.Writer
}

// buildApp connects the configured backends. Unset backends fall back to
// in-process implementations: memory stores, a local lock and an in-memory
// progress tracker. Kafka publishing is simply skipped.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{checks: make(map[string]httptransport.HealthCheck)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var (
		loader  ports.Loader
		sink    ports.Sink
		pruner  ports.Pruner
		reader  ports.VerdictReader
		auditor audit.Store
	)
	if cfg.Database.URL != "" {
		db, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db.PingContext

		store := pgstore.New(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		auditStore := auditpostgres.New(db)
		if err := auditStore.Migrate(ctx); err != nil {
			return nil, err
		}
		loader, sink, pruner, reader, auditor = store, store, store, store, auditStore
		a.seed = pgSeed(store)
		logger.InfoContext(ctx, "using postgres store")
	} else {
		store := memory.New()
		loader, sink, pruner, reader, auditor = store, store, store, store, auditmemory.NewInMemoryStore()
		a.seed = memSeed(store)
		logger.InfoContext(ctx, "using in-memory store")
	}

	loader = retry.NewLoader(loader, retry.Policy{
		Timeout:    cfg.Database.LoadTimeout,
		MaxRetries: cfg.Database.SinkMaxRetries,
	}, retry.WithLogger(logger))
	sink = retry.NewSink(sink, retry.Policy{
		Timeout:    cfg.Database.SinkTimeout,
		MaxRetries: cfg.Database.SinkMaxRetries,
	}, retry.WithLogger(logger))

	var (
		lock    ports.RunLock
		tracker interface {
			ports.ProgressReporter
			ports.ProgressReader
		}
	)
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		a.checks["redis"] = rdb.Health
		lock = progress.NewRedisLock(rdb.Client, cfg.Redis.RunLockTTL)
		tracker = progress.NewRedisTracker(rdb.Client, progress.WithProgressTTL(cfg.Redis.ProgressTTL))
	} else {
		lock = progress.NewLocalLock()
		tracker = progress.NewTracker()
	}

	kc, err := kafka.New(ctx, cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}
	if kc != nil {
		a.closers = append(a.closers, closeKafka(kc))
		a.checks["kafka"] = kc.Ping
		if err := publisher.EnsureTopic(ctx, kc, cfg.Kafka.VerdictTopic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return nil, err
		}
		pub := publisher.New(kc, cfg.Kafka.VerdictTopic, publisher.WithLogger(logger))
		sink = publisher.NewSink(sink, pub, logger)
	}

	if opts.exportTo != nil {
		a.export = export.NewSink(sink, opts.exportTo)
		sink = a.export
	}

	m := compliancemetrics.New()
	runner := batch.New(sink,
		batch.WithWorkers(cfg.Engine.Workers),
		batch.WithBatchSize(cfg.Engine.SinkBatchSize),
		batch.WithProgress(progress.Fanout{progress.NewLogReporter(logger), tracker}, cfg.Engine.ProgressEvery),
		batch.WithLogger(logger),
		batch.WithMetrics(m),
	)
	a.service = service.New(loader, runner, reader,
		service.WithPolicy(cfg.Engine.Policy()),
		service.WithRunLock(lock),
		service.WithPruner(pruner),
		service.WithProgressReader(tracker),
		service.WithAuditor(auditor),
		service.WithLogger(logger),
		service.WithMetrics(m),
	)
	return a, nil
}

// Close releases resources in reverse acquisition order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closeKafka(kc *kgo.Client) func() error {
	return func() error {
		kc.Close()
		return nil
	}
}

func memSeed(store *memory.Store) func(context.Context, models.Period, ports.Input) error {
	return func(_ context.Context, period models.Period, in ports.Input) error {
		store.Seed(period, in)
		return nil
	}
}

func pgSeed(store *pgstore.Store) func(context.Context, models.Period, ports.Input) error {
	return func(ctx context.Context, period models.Period, in ports.Input) error {
		if err := store.Seed(ctx, period, in); err != nil {
			return fmt.Errorf("seed sample dataset: %w", err)
		}
		return nil
	}
}
