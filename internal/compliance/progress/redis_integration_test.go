//go:build integration

package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/internal/compliance/progress"
	"shelfaudit/pkg/platform/sentinel"
	"shelfaudit/pkg/testutil/containers"
)

const testPeriod models.Period = 202509

type RedisProgressSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisProgressSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisProgressSuite))
}

func (s *RedisProgressSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisProgressSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisProgressSuite) TestTrackerRoundTrip() {
	ctx := context.Background()
	tr := progress.NewRedisTracker(s.redis.Client, progress.WithProgressTTL(time.Minute))

	_, err := tr.Progress(ctx, testPeriod)
	s.ErrorIs(err, sentinel.ErrNotFound)

	at := time.Date(2025, 10, 1, 6, 0, 0, 123, time.UTC)
	want := ports.Progress{RunID: "r1", Period: testPeriod, Processed: 500, Total: 1200, UpdatedAt: at}
	s.Require().NoError(tr.Report(ctx, want))

	got, err := tr.Progress(ctx, testPeriod)
	s.Require().NoError(err)
	s.Equal(want, *got)

	ttl, err := s.redis.Client.TTL(ctx, "shelfaudit:progress:202509").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

func (s *RedisProgressSuite) TestLockIsExclusiveAndOwned() {
	ctx := context.Background()
	lock := progress.NewRedisLock(s.redis.Client, time.Minute)

	release, err := lock.Acquire(ctx, testPeriod, "r1")
	s.Require().NoError(err)

	_, err = lock.Acquire(ctx, testPeriod, "r2")
	s.ErrorIs(err, sentinel.ErrConflict)

	// Another owner's key survives a stale release.
	s.Require().NoError(release(ctx))
	release2, err := lock.Acquire(ctx, testPeriod, "r2")
	s.Require().NoError(err)
	s.Require().NoError(release(ctx))
	_, err = lock.Acquire(ctx, testPeriod, "r3")
	s.ErrorIs(err, sentinel.ErrConflict)
	s.Require().NoError(release2(ctx))
}
