package engine

import (
	"shelfaudit/internal/compliance/models"
)

// EvaluateCustomer runs Matcher, Program Evaluator, Group Aggregator and
// Customer Aggregator for one customer. It touches nothing outside its
// arguments, so customers can be evaluated in parallel without coordination.
func EvaluateCustomer(slice CustomerSlice, rules *RuleSet, policy Policy) models.CustomerResult {
	match := Match(slice, policy)
	if match.Verdict != nil {
		return models.CustomerResult{Customer: *match.Verdict}
	}

	programs := make([]models.ProgramVerdict, 0, len(match.Rows))
	var groups []models.GroupVerdict

	// Rows arrive sorted by group, so each group is a contiguous run.
	for start := 0; start < len(match.Rows); {
		groupID := match.Rows[start].Audit.GroupID
		end := start
		for end < len(match.Rows) && match.Rows[end].Audit.GroupID == groupID {
			end++
		}

		group, _ := rules.Group(groupID)
		groupPrograms := make([]models.ProgramVerdict, 0, end-start)
		for _, row := range match.Rows[start:end] {
			var rule *models.Rule
			if group != nil {
				if r, ok := group.Rule(row.Audit.ProgramCode); ok {
					rule = &r
				}
			}
			groupPrograms = append(groupPrograms, EvaluateProgram(row, rule, policy))
		}

		groups = append(groups, AggregateGroup(slice.CustomerID, groupID, groupPrograms, group))
		programs = append(programs, groupPrograms...)
		start = end
	}

	return models.CustomerResult{
		Customer: AggregateCustomer(slice.CustomerID, groups, programs, policy),
		Groups:   groups,
		Programs: programs,
	}
}
