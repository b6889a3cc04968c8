package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shelfaudit/pkg/domain-errors"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Period
		wantErr bool
	}{
		{name: "valid", input: "202509", want: 202509},
		{name: "december", input: "202412", want: 202412},
		{name: "month zero", input: "202500", wantErr: true},
		{name: "month thirteen", input: "202513", wantErr: true},
		{name: "too short", input: "20259", wantErr: true},
		{name: "non numeric", input: "2025ab", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestReasonCategory(t *testing.T) {
	assert.Equal(t, CategoryMissingData, ReasonNoRegistration.Category())
	assert.Equal(t, CategoryMissingData, ReasonNoAuditData.Category())
	assert.Equal(t, CategoryConfigurationGap, ReasonNoCondition.Category())
	assert.Equal(t, CategoryConfigurationGap, ReasonNoConditions.Category())
	assert.Equal(t, CategoryComplianceFailure, ReasonBelowMinimum.Category())
	assert.Equal(t, CategoryComplianceFailure, ReasonExceptionDetected.Category())
	assert.Equal(t, CategoryComplianceFailure, ReasonQuotaNotMet.Category())
	assert.Equal(t, CategoryDataQuality, ReasonDataQuality.Category())
	assert.Equal(t, CategoryCompliant, ReasonCompliant.Category())
}

func TestReasonOutranks(t *testing.T) {
	assert.True(t, ReasonExceptionDetected.Outranks(ReasonBelowMinimum))
	assert.True(t, ReasonNoCondition.Outranks(ReasonBelowMinimum))
	assert.True(t, ReasonBelowMinimum.Outranks(ReasonQuotaNotMet))
	assert.True(t, ReasonQuotaNotMet.Outranks(ReasonCompliant))
	assert.False(t, ReasonQuotaNotMet.Outranks(ReasonExceptionDetected))
}

func TestValidate(t *testing.T) {
	t.Run("registration", func(t *testing.T) {
		assert.NoError(t, Registration{CustomerID: "C1", ProgramCode: "P1", Quantity: 1}.Validate())
		assert.Error(t, Registration{CustomerID: "C1", ProgramCode: "P1", Quantity: 0}.Validate())
		assert.Error(t, Registration{CustomerID: "C1", ProgramCode: "P1", Quantity: -2}.Validate())
		assert.Error(t, Registration{ProgramCode: "P1", Quantity: 1}.Validate())
	})
	t.Run("audit", func(t *testing.T) {
		assert.NoError(t, AuditRecord{CustomerID: "C1", ProgramCode: "P1", GroupID: "G1"}.Validate())
		assert.Error(t, AuditRecord{CustomerID: "C1", ProgramCode: "P1"}.Validate())
		assert.Error(t, AuditRecord{CustomerID: "C1", ProgramCode: "P1", GroupID: "G1", MeasuredValue: -1}.Validate())
	})
	t.Run("rule", func(t *testing.T) {
		assert.NoError(t, Rule{GroupID: "G1", ProgramCode: "P1", MinValue: 0, GroupRequiredPasses: 1}.Validate())
		assert.Error(t, Rule{GroupID: "G1", ProgramCode: "P1", MinValue: -1}.Validate())
		assert.Error(t, Rule{ProgramCode: "P1"}.Validate())
		assert.Error(t, Rule{GroupID: "G1", ProgramCode: "P1", GroupRequiredPasses: -1}.Validate())
	})
}

func TestScores(t *testing.T) {
	g := GroupVerdict{PassedCount: 2, RequiredCount: 3}
	assert.Equal(t, "2/3", g.Score())

	p := ProgramVerdict{MeasuredValue: 70, RequiredValue: 80}
	assert.Equal(t, "70/80", p.Score())

	p = ProgramVerdict{MeasuredValue: 2.5, RequiredValue: 7.5}
	assert.Equal(t, "2.5/7.5", p.Score())
}

func TestFailureString(t *testing.T) {
	assert.Equal(t, "G1/P1:BELOW_MINIMUM(70<80)", Failure{GroupID: "G1", ProgramCode: "P1", Reason: ReasonBelowMinimum, Detail: "70<80"}.String())
	assert.Equal(t, "G1:QUOTA_NOT_MET", Failure{GroupID: "G1", Reason: ReasonQuotaNotMet}.String())
	assert.Equal(t, "NO_AUDIT_DATA", Failure{Reason: ReasonNoAuditData}.String())
}
