package engine

import (
	"shelfaudit/internal/compliance/models"
)

// AggregateGroup applies the group's N-of-M quota to its program verdicts.
// group is nil when no rules are configured for groupID. A failing program the
// group marks as a hard veto fails the group regardless of the quota.
func AggregateGroup(customerID, groupID string, programs []models.ProgramVerdict, group *RuleGroup) models.GroupVerdict {
	v := models.GroupVerdict{
		CustomerID: customerID,
		GroupID:    groupID,
	}

	vetoed := false
	for _, p := range programs {
		v.MaxPoints += p.MaxPoints
		v.TotalPoints += p.Points
		if p.Passed() {
			v.PassedCount++
			continue
		}
		if group != nil && group.Vetoes(p.ProgramCode) {
			vetoed = true
		}
	}

	switch {
	case group == nil:
		v.Status = models.StatusFail
		v.Reason = models.ReasonNoConditions
	case vetoed:
		v.RequiredCount = group.RequiredPasses
		v.Status = models.StatusFail
		v.Reason = models.ReasonExceptionDetected
	default:
		v.RequiredCount = group.RequiredPasses
		v.Status = models.StatusFail
		v.Reason = models.ReasonQuotaNotMet
		if v.PassedCount >= v.RequiredCount {
			v.Status = models.StatusPass
			v.Reason = models.ReasonQuotaMet
		}
	}
	return v
}
