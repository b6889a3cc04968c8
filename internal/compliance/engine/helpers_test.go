package engine

import (
	"time"

	"shelfaudit/internal/compliance/models"
)

const testPeriod models.Period = 202509

func reg(customer, program string, qty int) models.Registration {
	return models.Registration{Period: testPeriod, CustomerID: customer, ProgramCode: program, Quantity: qty}
}

func audit(customer, group, program string, value float64) models.AuditRecord {
	return models.AuditRecord{Period: testPeriod, CustomerID: customer, GroupID: group, ProgramCode: program, MeasuredValue: value}
}

func auditAt(customer, group, program string, value float64, at time.Time) models.AuditRecord {
	a := audit(customer, group, program, value)
	a.AuditedAt = at
	return a
}

func rule(group, program string, minValue float64, points, required int) models.Rule {
	return models.Rule{Period: testPeriod, GroupID: group, ProgramCode: program, MinValue: minValue, PointValue: points, GroupRequiredPasses: required}
}

func mustRuleSet(rules ...models.Rule) *RuleSet {
	rs, err := NewRuleSet(rules, DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return rs
}
