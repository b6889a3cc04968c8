package engine

import (
	"shelfaudit/internal/compliance/models"
)

// EvaluateProgram produces the verdict for one matched row. The sentinel
// program takes the exception branch; every other program is compared against
// its rule's per-unit minimum scaled by the registered quantity. rule is nil
// when the group has no rule for the program.
//
// This is pure domain logic and total over validated input.
func EvaluateProgram(row MatchedRow, rule *models.Rule, policy Policy) models.ProgramVerdict {
	v := models.ProgramVerdict{
		CustomerID:    row.Audit.CustomerID,
		GroupID:       row.Audit.GroupID,
		ProgramCode:   row.Audit.ProgramCode,
		MeasuredValue: row.Audit.MeasuredValue,
	}
	if policy.IsSentinel(row.Audit.ProgramCode) {
		return evaluateException(v)
	}
	return evaluateThreshold(v, row.Registration.Quantity, rule)
}

// evaluateException never looks at quantity or rule: any positive measurement
// is an integrity exception.
func evaluateException(v models.ProgramVerdict) models.ProgramVerdict {
	if v.MeasuredValue > 0 {
		v.Status = models.StatusFail
		v.Reason = models.ReasonExceptionDetected
		return v
	}
	v.Status = models.StatusPass
	v.Reason = models.ReasonNoException
	return v
}

func evaluateThreshold(v models.ProgramVerdict, quantity int, rule *models.Rule) models.ProgramVerdict {
	v.Quantity = quantity
	if rule == nil {
		v.Status = models.StatusFail
		v.Reason = models.ReasonNoCondition
		return v
	}

	v.MinValue = rule.MinValue
	v.MaxPoints = rule.PointValue
	v.RequiredValue = rule.MinValue * float64(quantity)

	if v.MeasuredValue >= v.RequiredValue {
		v.Status = models.StatusPass
		v.Reason = models.ReasonMeetsMinimum
		v.Points = rule.PointValue
		return v
	}
	v.Status = models.StatusFail
	v.Reason = models.ReasonBelowMinimum
	v.Deficit = v.RequiredValue - v.MeasuredValue
	return v
}
