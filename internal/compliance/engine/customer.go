package engine

import (
	"fmt"

	"shelfaudit/internal/compliance/models"
)

// AggregateCustomer combines group verdicts with AND semantics. Every group is
// visited so the reason trail lists each failing program and group; the
// customer's primary reason is the highest ranked failure inside a failed group.
func AggregateCustomer(customerID string, groups []models.GroupVerdict, programs []models.ProgramVerdict, policy Policy) models.CustomerVerdict {
	v := models.CustomerVerdict{
		CustomerID:    customerID,
		Status:        models.StatusPass,
		Reason:        models.ReasonCompliant,
		TotalGroups:   len(groups),
		TotalPrograms: len(programs),
	}

	failedGroups := make(map[string]struct{})
	for _, g := range groups {
		v.TotalPoints += g.TotalPoints
		v.MaxPoints += g.MaxPoints
		if g.Passed() {
			v.PassedGroups++
			continue
		}
		failedGroups[g.GroupID] = struct{}{}
	}

	for _, p := range programs {
		if p.Passed() {
			v.PassedPrograms++
			continue
		}
		if policy.IsSentinel(p.ProgramCode) {
			v.ExceptionFlag = true
		}
		v.Failures = append(v.Failures, programFailure(p))
		if _, failed := failedGroups[p.GroupID]; failed {
			v.Reason = promote(v, p.Reason)
			v.Status = models.StatusFail
		}
	}
	for _, g := range groups {
		if g.Passed() {
			continue
		}
		v.Failures = append(v.Failures, models.Failure{
			GroupID: g.GroupID,
			Reason:  g.Reason,
			Detail:  g.Score(),
		})
		v.Reason = promote(v, g.Reason)
		v.Status = models.StatusFail
	}
	return v
}

func promote(v models.CustomerVerdict, candidate models.Reason) models.Reason {
	if v.Status == models.StatusPass || candidate.Outranks(v.Reason) {
		return candidate
	}
	return v.Reason
}

func programFailure(p models.ProgramVerdict) models.Failure {
	f := models.Failure{
		GroupID:     p.GroupID,
		ProgramCode: p.ProgramCode,
		Reason:      p.Reason,
	}
	switch p.Reason {
	case models.ReasonBelowMinimum:
		f.Detail = fmt.Sprintf("%s<%s", trimFloat(p.MeasuredValue), trimFloat(p.RequiredValue))
	case models.ReasonExceptionDetected:
		f.Detail = "measured=" + trimFloat(p.MeasuredValue)
	}
	return f
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
