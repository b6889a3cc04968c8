// Package retry wraps the Loader and Sink boundaries with per-attempt timeouts
// and exponential backoff. Evaluation itself never blocks, so these two
// boundaries are the only places a run waits on I/O.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	dErrors "shelfaudit/pkg/domain-errors"
	"shelfaudit/pkg/platform/sentinel"
)

// Policy bounds one boundary call.
type Policy struct {
	// Timeout applies to each attempt. Zero disables it.
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p Policy) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	// Attempts are bounded by MaxRetries, not by wall clock.
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Option configures a decorator.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Loader retries transient load failures.
type Loader struct {
	next   ports.Loader
	policy Policy
	options
}

func NewLoader(next ports.Loader, policy Policy, opts ...Option) *Loader {
	l := &Loader{next: next, policy: policy}
	for _, opt := range opts {
		opt(&l.options)
	}
	return l
}

func (l *Loader) Load(ctx context.Context, period models.Period) (*ports.Input, error) {
	var in *ports.Input
	err := run(ctx, l.policy, l.logger, "load", func(ctx context.Context) error {
		var err error
		in, err = l.next.Load(ctx, period)
		return err
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// Sink retries transient write failures. Sink writes are upserts, so a retried
// batch that had partly landed is simply rewritten.
type Sink struct {
	next   ports.Sink
	policy Policy
	options
}

func NewSink(next ports.Sink, policy Policy, opts ...Option) *Sink {
	s := &Sink{next: next, policy: policy}
	for _, opt := range opts {
		opt(&s.options)
	}
	return s
}

func (s *Sink) Write(ctx context.Context, period models.Period, results []models.CustomerResult) error {
	return run(ctx, s.policy, s.logger, "sink", func(ctx context.Context) error {
		return s.next.Write(ctx, period, results)
	})
}

func run(ctx context.Context, policy Policy, logger *slog.Logger, boundary string, op func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if policy.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		}
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if logger != nil {
			logger.WarnContext(ctx, "retrying boundary call",
				"boundary", boundary,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}
	}
	return backoff.RetryNotify(operation, policy.backoff(ctx), notify)
}

// isPermanent reports errors a retry cannot fix.
func isPermanent(err error) bool {
	switch {
	case errors.Is(err, sentinel.ErrNotFound),
		errors.Is(err, context.Canceled),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeDataQuality):
		return true
	}
	return false
}
