package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"shelfaudit/internal/compliance/engine"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/internal/compliance/ports/mocks"
)

const testPeriod models.Period = 202509

// recordingSink keeps every batch it receives.
type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.CustomerResult
	onWrite func(n int)
}

func (s *recordingSink) Write(_ context.Context, _ models.Period, results []models.CustomerResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, results)
	if s.onWrite != nil {
		s.onWrite(len(s.batches))
	}
	return nil
}

func (s *recordingSink) customers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, b := range s.batches {
		for _, r := range b {
			ids = append(ids, r.Customer.CustomerID)
		}
	}
	sort.Strings(ids)
	return ids
}

// testDataset builds n customers: even ones pass, every third misses its
// audit, every fifth trips the sentinel.
func testDataset(t *testing.T, n int) *engine.Dataset {
	t.Helper()
	policy := engine.DefaultPolicy()
	rules := []models.Rule{
		{GroupID: "G1", ProgramCode: "P1", MinValue: 10, PointValue: 2, GroupRequiredPasses: 1},
		{GroupID: "G1", ProgramCode: policy.SentinelProgram, GroupRequiredPasses: 1, HardVeto: true},
	}
	var regs []models.Registration
	var audits []models.AuditRecord
	for i := range n {
		id := fmt.Sprintf("C%04d", i)
		regs = append(regs,
			models.Registration{CustomerID: id, ProgramCode: "P1", Quantity: 2},
			models.Registration{CustomerID: id, ProgramCode: policy.SentinelProgram, Quantity: 1},
		)
		if i%3 == 0 {
			continue
		}
		measured := 15.0
		if i%2 == 0 {
			measured = 25
		}
		exception := 0.0
		if i%5 == 0 {
			exception = 1
		}
		audits = append(audits,
			models.AuditRecord{CustomerID: id, GroupID: "G1", ProgramCode: "P1", MeasuredValue: measured},
			models.AuditRecord{CustomerID: id, GroupID: "G1", ProgramCode: policy.SentinelProgram, MeasuredValue: exception},
		)
	}
	ds, err := engine.NewDataset(testPeriod, regs, rules, audits, policy)
	require.NoError(t, err)
	return ds
}

func TestRunnerWritesEveryCustomerOnceInBoundedBatches(t *testing.T) {
	ds := testDataset(t, 103)
	sink := &recordingSink{}
	runner := New(sink, WithWorkers(4), WithBatchSize(10))

	summary, err := runner.Run(context.Background(), ds)
	require.NoError(t, err)

	assert.Equal(t, ds.Customers(), sink.customers())
	for _, b := range sink.batches {
		assert.LessOrEqual(t, len(b), 10)
		assert.NotEmpty(t, b)
	}
	assert.Equal(t, 103, summary.Customers)
	assert.Equal(t, summary.Customers, summary.Passed+summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, testPeriod, summary.Period)
}

func TestRunnerSummaryCountsByReason(t *testing.T) {
	ds := testDataset(t, 30)
	runner := New(&recordingSink{}, WithWorkers(3), WithBatchSize(7))

	summary, err := runner.Run(context.Background(), ds)
	require.NoError(t, err)

	want := Summary{ByReason: map[models.Reason]int{}, ByCategory: map[models.Category]int{}}
	for _, id := range ds.Customers() {
		want.Add(ds.Evaluate(id))
	}
	assert.Equal(t, want.ByReason, summary.ByReason)
	assert.Equal(t, want.ByCategory, summary.ByCategory)
	assert.Equal(t, 10, summary.ByReason[models.ReasonNoAuditData])
	assert.Equal(t, want.ExceptionFailed, summary.ExceptionFailed)
	assert.Positive(t, summary.ExceptionFailed)
	assert.InDelta(t, float64(summary.Passed)/30, summary.PassRate, 1e-9)
}

func TestRunnerResultsIndependentOfWorkerCount(t *testing.T) {
	ds := testDataset(t, 64)

	collect := func(workers int) map[string]models.CustomerResult {
		sink := &recordingSink{}
		_, err := New(sink, WithWorkers(workers), WithBatchSize(5)).Run(context.Background(), ds)
		require.NoError(t, err)
		out := make(map[string]models.CustomerResult)
		for _, b := range sink.batches {
			for _, r := range b {
				out[r.Customer.CustomerID] = r
			}
		}
		return out
	}

	assert.Equal(t, collect(1), collect(8))
}

func TestRunnerStopsOnSinkFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	boom := errors.New("connection reset")
	sink.EXPECT().Write(gomock.Any(), testPeriod, gomock.Any()).Return(boom).Times(1)

	ds := testDataset(t, 50)
	_, err := New(sink, WithWorkers(2), WithBatchSize(5)).Run(context.Background(), ds)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunnerCanceledBeforeStartWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(sink, WithWorkers(4), WithBatchSize(5)).Run(ctx, testDataset(t, 40))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerCancellationStopsFurtherBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &recordingSink{onWrite: func(n int) {
		if n == 1 {
			cancel()
		}
	}}

	ds := testDataset(t, 200)
	_, err := New(sink, WithWorkers(4), WithBatchSize(10)).Run(ctx, ds)

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, sink.batches, 1)
	for _, r := range sink.batches[0] {
		assert.Equal(t, ds.Evaluate(r.Customer.CustomerID), r, "flushed results are whole customer results")
	}
}

func TestRunnerProgressIsBestEffort(t *testing.T) {
	ctrl := gomock.NewController(t)
	progress := mocks.NewMockProgressReporter(ctrl)

	var (
		mu      sync.Mutex
		reports []ports.Progress
	)
	progress.EXPECT().Report(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p ports.Progress) error {
		mu.Lock()
		defer mu.Unlock()
		reports = append(reports, p)
		return errors.New("redis unavailable")
	}).MinTimes(2)

	fixed := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
	ds := testDataset(t, 25)
	ctx := ports.ContextWithRunID(context.Background(), "run-1")
	summary, err := New(&recordingSink{},
		WithWorkers(2),
		WithBatchSize(5),
		WithProgress(progress, 10),
		WithClock(func() time.Time { return fixed }),
	).Run(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, "run-1", summary.RunID)

	require.NotEmpty(t, reports)
	first, last := reports[0], reports[len(reports)-1]
	assert.Equal(t, 0, first.Processed)
	assert.False(t, first.Done)
	assert.True(t, last.Done)
	assert.Equal(t, 25, last.Processed)
	assert.Equal(t, 25, last.Total)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, fixed, last.UpdatedAt)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Processed, reports[i-1].Processed)
	}
}

func TestRunnerEmptyDataset(t *testing.T) {
	ds, err := engine.NewDataset(testPeriod, nil, nil, nil, engine.DefaultPolicy())
	require.NoError(t, err)
	ctrl := gomock.NewController(t)

	summary, err := New(mocks.NewMockSink(ctrl)).Run(context.Background(), ds)
	require.NoError(t, err)
	assert.Zero(t, summary.Customers)
	assert.Zero(t, summary.PassRate)
}
