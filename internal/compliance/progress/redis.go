package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/pkg/platform/sentinel"
)

const (
	progressKeyPrefix = "shelfaudit:progress:"
	lockKeyPrefix     = "shelfaudit:lock:"

	defaultProgressTTL = 7 * 24 * time.Hour
	defaultLockTTL     = 30 * time.Minute
)

// RedisTracker stores the last progress report of each period in a Redis hash
// so any instance can answer progress queries.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisTrackerOption configures a RedisTracker.
type RedisTrackerOption func(*RedisTracker)

// WithProgressTTL sets how long a period's progress outlives its last report.
func WithProgressTTL(ttl time.Duration) RedisTrackerOption {
	return func(t *RedisTracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

func NewRedisTracker(client *redis.Client, opts ...RedisTrackerOption) *RedisTracker {
	t := &RedisTracker{client: client, ttl: defaultProgressTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *RedisTracker) Report(ctx context.Context, p ports.Progress) error {
	key := progressKeyPrefix + p.Period.String()
	_, err := t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"run_id", p.RunID,
			"processed", p.Processed,
			"total", p.Total,
			"done", strconv.FormatBool(p.Done),
			"updated_at", p.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, key, t.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store progress: %w", err)
	}
	return nil
}

func (t *RedisTracker) Progress(ctx context.Context, period models.Period) (*ports.Progress, error) {
	fields, err := t.client.HGetAll(ctx, progressKeyPrefix+period.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}
	p := &ports.Progress{Period: period, RunID: fields["run_id"]}
	if p.Processed, err = strconv.Atoi(fields["processed"]); err != nil {
		return nil, fmt.Errorf("parse progress processed: %w", err)
	}
	if p.Total, err = strconv.Atoi(fields["total"]); err != nil {
		return nil, fmt.Errorf("parse progress total: %w", err)
	}
	if p.Done, err = strconv.ParseBool(fields["done"]); err != nil {
		return nil, fmt.Errorf("parse progress done: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parse progress updated_at: %w", err)
	}
	return p, nil
}

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a per-period lock shared by every instance. The TTL bounds how
// long a crashed run can block the period.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock constructs a Redis-backed run lock. A non-positive ttl uses the
// default of thirty minutes.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, ttl: ttl}
}

// Acquire fails with sentinel.ErrConflict while another run holds the period.
func (l *RedisLock) Acquire(ctx context.Context, period models.Period, runID string) (func(context.Context) error, error) {
	key := lockKeyPrefix + period.String()
	ok, err := l.client.SetNX(ctx, key, runID, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		holder, err := l.client.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("read run lock holder: %w", err)
		}
		return nil, fmt.Errorf("period %s is being evaluated by run %s: %w", period, holder, sentinel.ErrConflict)
	}
	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, runID).Err(); err != nil {
			return fmt.Errorf("release run lock: %w", err)
		}
		return nil
	}, nil
}
