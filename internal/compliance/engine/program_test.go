package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"shelfaudit/internal/compliance/models"
)

func TestEvaluateProgram_Threshold(t *testing.T) {
	policy := DefaultPolicy()
	r := rule("G1", "P1", 40, 5, 1)

	tests := []struct {
		name        string
		qty         int
		measured    float64
		wantStatus  models.Status
		wantReason  models.Reason
		wantReq     float64
		wantDeficit float64
		wantPoints  int
	}{
		{name: "scenario A: clears scaled minimum", qty: 2, measured: 90, wantStatus: models.StatusPass, wantReason: models.ReasonMeetsMinimum, wantReq: 80, wantDeficit: 0, wantPoints: 5},
		{name: "scenario B: below scaled minimum", qty: 2, measured: 70, wantStatus: models.StatusFail, wantReason: models.ReasonBelowMinimum, wantReq: 80, wantDeficit: 10, wantPoints: 0},
		{name: "exactly at threshold passes", qty: 2, measured: 80, wantStatus: models.StatusPass, wantReason: models.ReasonMeetsMinimum, wantReq: 80, wantPoints: 5},
		{name: "one unit below threshold fails", qty: 2, measured: 79, wantStatus: models.StatusFail, wantReason: models.ReasonBelowMinimum, wantReq: 80, wantDeficit: 1},
		{name: "quantity three triples requirement", qty: 3, measured: 100, wantStatus: models.StatusFail, wantReason: models.ReasonBelowMinimum, wantReq: 120, wantDeficit: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := MatchedRow{Registration: reg("C1", "P1", tt.qty), Audit: audit("C1", "G1", "P1", tt.measured)}
			v := EvaluateProgram(row, &r, policy)

			assert.Equal(t, tt.wantStatus, v.Status)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.wantReq, v.RequiredValue)
			assert.Equal(t, tt.wantDeficit, v.Deficit)
			assert.Equal(t, tt.wantPoints, v.Points)
			assert.Equal(t, 5, v.MaxPoints)
			assert.Equal(t, tt.qty, v.Quantity)
			assert.Equal(t, float64(40), v.MinValue)
			assert.Equal(t, "C1", v.CustomerID)
			assert.Equal(t, "G1", v.GroupID)
		})
	}
}

func TestEvaluateProgram_NoCondition(t *testing.T) {
	row := MatchedRow{Registration: reg("C1", "P9", 2), Audit: audit("C1", "G1", "P9", 1000)}
	v := EvaluateProgram(row, nil, DefaultPolicy())

	assert.Equal(t, models.StatusFail, v.Status)
	assert.Equal(t, models.ReasonNoCondition, v.Reason)
	assert.Zero(t, v.RequiredValue)
	assert.Zero(t, v.Deficit)
}

func TestEvaluateProgram_Sentinel(t *testing.T) {
	policy := DefaultPolicy()
	strict := rule("G1", policy.SentinelProgram, 1000, 9, 1)

	t.Run("scenario C: zero is no exception", func(t *testing.T) {
		row := MatchedRow{Registration: reg("C1", policy.SentinelProgram, 4), Audit: audit("C1", "G1", policy.SentinelProgram, 0)}
		v := EvaluateProgram(row, &strict, policy)
		assert.Equal(t, models.StatusPass, v.Status)
		assert.Equal(t, models.ReasonNoException, v.Reason)
		assert.Zero(t, v.RequiredValue)
		assert.Zero(t, v.Points)
	})

	t.Run("scenario C: positive value is an exception", func(t *testing.T) {
		row := MatchedRow{Registration: reg("C1", policy.SentinelProgram, 4), Audit: audit("C1", "G1", policy.SentinelProgram, 3)}
		v := EvaluateProgram(row, &strict, policy)
		assert.Equal(t, models.StatusFail, v.Status)
		assert.Equal(t, models.ReasonExceptionDetected, v.Reason)
		assert.Zero(t, v.Deficit)
	})

	t.Run("missing rule does not matter", func(t *testing.T) {
		row := MatchedRow{Registration: reg("C1", policy.SentinelProgram, 1), Audit: audit("C1", "G7", policy.SentinelProgram, 0)}
		v := EvaluateProgram(row, nil, policy)
		assert.Equal(t, models.StatusPass, v.Status)
		assert.Equal(t, models.ReasonNoException, v.Reason)
	})

	t.Run("configured sentinel code is honoured", func(t *testing.T) {
		custom := Policy{SentinelProgram: "tamper_check", DuplicateAudits: DuplicateReject}
		row := MatchedRow{Registration: reg("C1", "tamper_check", 1), Audit: audit("C1", "G1", "tamper_check", 1)}
		v := EvaluateProgram(row, nil, custom)
		assert.Equal(t, models.ReasonExceptionDetected, v.Reason)
	})
}
