package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfaudit/internal/compliance/engine"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/pkg/platform/sentinel"
)

const testPeriod models.Period = 202509

func result(customer string, status models.Status, groups ...string) models.CustomerResult {
	r := models.CustomerResult{
		Customer: models.CustomerVerdict{CustomerID: customer, Status: status, TotalGroups: len(groups)},
	}
	for _, g := range groups {
		r.Groups = append(r.Groups, models.GroupVerdict{CustomerID: customer, GroupID: g, Status: status})
	}
	return r
}

func TestLoadUnknownPeriod(t *testing.T) {
	_, err := New().Load(context.Background(), testPeriod)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestLoadReturnsCopy(t *testing.T) {
	s := New()
	s.Seed(testPeriod, ports.Input{
		Registrations: []models.Registration{{CustomerID: "C1", ProgramCode: "P1", Quantity: 1}},
	})

	in, err := s.Load(context.Background(), testPeriod)
	require.NoError(t, err)
	in.Registrations[0].Quantity = 99

	again, err := s.Load(context.Background(), testPeriod)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Registrations[0].Quantity)
}

func TestWriteIsUpsertByCustomer(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.Write(ctx, testPeriod, []models.CustomerResult{
		result("C1", models.StatusFail, "G1", "G2"),
		result("C2", models.StatusPass, "G1"),
	}))
	require.NoError(t, s.Write(ctx, testPeriod, []models.CustomerResult{
		result("C1", models.StatusPass, "G1"),
	}))

	got, err := s.CustomerResult(ctx, testPeriod, "C1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPass, got.Customer.Status)
	assert.Len(t, got.Groups, 1, "rewrite replaces the previous group rows")

	all := s.Results(testPeriod)
	require.Len(t, all, 2)
	assert.Equal(t, "C1", all[0].Customer.CustomerID)
	assert.Equal(t, "C2", all[1].Customer.CustomerID)
}

func TestPruneKeepsOnlyTheLatestRun(t *testing.T) {
	s := New()
	first := ports.ContextWithRunID(context.Background(), "run-1")
	second := ports.ContextWithRunID(context.Background(), "run-2")

	require.NoError(t, s.Write(first, testPeriod, []models.CustomerResult{
		result("C1", models.StatusFail, "G1"),
		result("C2", models.StatusPass, "G1"),
	}))
	require.NoError(t, s.Write(first, 202510, []models.CustomerResult{result("C9", models.StatusPass)}))
	require.NoError(t, s.Write(second, testPeriod, []models.CustomerResult{result("C1", models.StatusPass, "G1")}))

	require.NoError(t, s.Prune(second, testPeriod, "run-2"))

	all := s.Results(testPeriod)
	require.Len(t, all, 1)
	assert.Equal(t, "C1", all[0].Customer.CustomerID)
	assert.Equal(t, models.StatusPass, all[0].Customer.Status)
	_, err := s.CustomerResult(context.Background(), testPeriod, "C2")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Len(t, s.Results(202510), 1, "other periods are untouched")
}

func TestCustomerResultNotFound(t *testing.T) {
	s := New()
	require.NoError(t, s.Write(context.Background(), testPeriod, []models.CustomerResult{result("C1", models.StatusPass)}))

	_, err := s.CustomerResult(context.Background(), testPeriod, "C2")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = s.CustomerResult(context.Background(), 202510, "C1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestSampleIsDeterministicAndValid(t *testing.T) {
	cfg := SampleConfig{Customers: 300, Programs: 20, Seed: 7}
	a := Sample(testPeriod, cfg)
	b := Sample(testPeriod, cfg)
	assert.Equal(t, a, b)

	ds, err := engine.NewDataset(testPeriod, a.Registrations, a.Rules, a.Audits, engine.DefaultPolicy())
	require.NoError(t, err, "generated rules must form a valid configuration")
	assert.Equal(t, 300, ds.Len())

	reasons := make(map[models.Reason]int)
	for _, id := range ds.Customers() {
		res := ds.Evaluate(id)
		reasons[res.Customer.Reason]++
	}
	assert.Positive(t, reasons[models.ReasonCompliant])
	assert.Positive(t, reasons[models.ReasonNoRegistration])
	assert.Positive(t, reasons[models.ReasonNoAuditData])
	assert.Zero(t, reasons[models.ReasonDataQuality])
}

func TestSampleRaisesProgramFloor(t *testing.T) {
	in := Sample(testPeriod, SampleConfig{Customers: 1, Programs: 2, Seed: 1})
	assert.Len(t, in.Rules, minSamplePrograms+1)
}
