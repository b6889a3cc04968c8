package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"shelfaudit/internal/compliance/models"
)

// EvaluateCustomerSuite drives the whole per-customer pipeline over one
// configured period.
type EvaluateCustomerSuite struct {
	suite.Suite
	policy Policy
	rules  *RuleSet
}

func TestEvaluateCustomerSuite(t *testing.T) {
	suite.Run(t, new(EvaluateCustomerSuite))
}

func (s *EvaluateCustomerSuite) SetupTest() {
	s.policy = DefaultPolicy()
	veto := rule("G2", s.policy.SentinelProgram, 0, 0, 1)
	veto.HardVeto = true
	rs, err := NewRuleSet([]models.Rule{
		rule("G1", "P1", 40, 5, 2),
		rule("G1", "P2", 10, 3, 2),
		rule("G1", "P3", 5, 2, 2),
		rule("G2", "P4", 1, 1, 1),
		veto,
	}, s.policy)
	s.Require().NoError(err)
	s.rules = rs
}

func (s *EvaluateCustomerSuite) evaluate(regs []models.Registration, audits []models.AuditRecord) models.CustomerResult {
	return EvaluateCustomer(CustomerSlice{CustomerID: "C1", Registrations: regs, Audits: audits}, s.rules, s.policy)
}

func (s *EvaluateCustomerSuite) TestCompliantCustomer() {
	res := s.evaluate(
		[]models.Registration{reg("C1", "P1", 2), reg("C1", "P2", 1), reg("C1", "P3", 1), reg("C1", "P4", 1)},
		[]models.AuditRecord{
			audit("C1", "G1", "P1", 90),
			audit("C1", "G1", "P2", 1),
			audit("C1", "G1", "P3", 5),
			audit("C1", "G2", "P4", 1),
		},
	)

	s.Equal(models.StatusPass, res.Customer.Status)
	s.Equal(models.ReasonCompliant, res.Customer.Reason)
	s.Equal(2, res.Customer.TotalGroups)
	s.Equal(2, res.Customer.PassedGroups)
	s.Equal(4, res.Customer.TotalPrograms)
	s.Equal(3, res.Customer.PassedPrograms)
	s.Equal(8, res.Customer.TotalPoints)
	s.Equal(11, res.Customer.MaxPoints)
	s.Require().Len(res.Groups, 2)
	s.Equal("G1", res.Groups[0].GroupID)
	s.Equal("2/2", res.Groups[0].Score())
	s.Len(res.Programs, 4)
}

func (s *EvaluateCustomerSuite) TestHardVetoFailsCustomer() {
	res := s.evaluate(
		[]models.Registration{reg("C1", "P4", 1), reg("C1", s.policy.SentinelProgram, 1)},
		[]models.AuditRecord{audit("C1", "G2", "P4", 3), audit("C1", "G2", s.policy.SentinelProgram, 1)},
	)

	s.Equal(models.StatusFail, res.Customer.Status)
	s.Equal(models.ReasonExceptionDetected, res.Customer.Reason)
	s.True(res.Customer.ExceptionFlag)
	s.Require().Len(res.Groups, 1)
	s.Equal(models.ReasonExceptionDetected, res.Groups[0].Reason)
	s.Equal(1, res.Groups[0].PassedCount)
}

func (s *EvaluateCustomerSuite) TestUnconfiguredGroup() {
	res := s.evaluate(
		[]models.Registration{reg("C1", "P1", 1), reg("C1", "P9", 1)},
		[]models.AuditRecord{audit("C1", "G1", "P1", 100), audit("C1", "G9", "P9", 100)},
	)

	s.Equal(models.StatusFail, res.Customer.Status)
	s.Equal(models.ReasonNoConditions, res.Customer.Reason)
	s.Require().Len(res.Groups, 2)
	s.Equal(models.ReasonNoConditions, res.Groups[1].Reason)
	s.Equal(models.ReasonNoCondition, res.Programs[1].Reason)
}

func (s *EvaluateCustomerSuite) TestProgramWithoutRuleInConfiguredGroup() {
	res := s.evaluate(
		[]models.Registration{reg("C1", "P1", 1), reg("C1", "P2", 1), reg("C1", "PX", 1)},
		[]models.AuditRecord{audit("C1", "G1", "P1", 40), audit("C1", "G1", "P2", 10), audit("C1", "G1", "PX", 10)},
	)

	// Quota 2 is met by P1 and P2, the configuration gap only shows in the trail.
	s.Equal(models.StatusPass, res.Customer.Status)
	s.Require().Len(res.Customer.Failures, 1)
	s.Equal(models.ReasonNoCondition, res.Customer.Failures[0].Reason)
}

func (s *EvaluateCustomerSuite) TestScenarioE() {
	res := s.evaluate([]models.Registration{reg("C1", "X", 1)}, nil)

	s.Equal(models.StatusFail, res.Customer.Status)
	s.Equal(models.ReasonNoAuditData, res.Customer.Reason)
	s.Empty(res.Groups)
	s.Empty(res.Programs)
}

func TestDatasetEvaluateIsIdempotent(t *testing.T) {
	ds, err := NewDataset(testPeriod,
		[]models.Registration{reg("C1", "P1", 2), reg("C2", "P1", 1)},
		[]models.Rule{rule("G1", "P1", 40, 1, 1)},
		[]models.AuditRecord{audit("C1", "G1", "P1", 70), audit("C2", "G1", "P1", 40)},
		DefaultPolicy(),
	)
	require.NoError(t, err)

	for _, c := range ds.Customers() {
		assert.Equal(t, ds.Evaluate(c), ds.Evaluate(c))
	}
	assert.Equal(t, models.StatusFail, ds.Evaluate("C1").Customer.Status)
	assert.Equal(t, models.StatusPass, ds.Evaluate("C2").Customer.Status)
}
