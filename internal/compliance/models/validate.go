package models

import (
	"fmt"
	"math"
	"strings"
)

// Validate reports a data-quality problem with the registration, or nil.
func (r Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.CustomerID) == "":
		return fmt.Errorf("registration: customer_id is required")
	case strings.TrimSpace(r.ProgramCode) == "":
		return fmt.Errorf("registration %s: program_code is required", r.CustomerID)
	case r.Quantity <= 0:
		return fmt.Errorf("registration %s/%s: quantity must be positive, got %d", r.CustomerID, r.ProgramCode, r.Quantity)
	}
	return nil
}

// Validate reports a data-quality problem with the audit record, or nil.
func (a AuditRecord) Validate() error {
	switch {
	case strings.TrimSpace(a.CustomerID) == "":
		return fmt.Errorf("audit: customer_id is required")
	case strings.TrimSpace(a.ProgramCode) == "":
		return fmt.Errorf("audit %s: program_code is required", a.CustomerID)
	case strings.TrimSpace(a.GroupID) == "":
		return fmt.Errorf("audit %s/%s: group_id is required", a.CustomerID, a.ProgramCode)
	case math.IsNaN(a.MeasuredValue) || math.IsInf(a.MeasuredValue, 0):
		return fmt.Errorf("audit %s/%s: measured_value is not finite", a.CustomerID, a.ProgramCode)
	case a.MeasuredValue < 0:
		return fmt.Errorf("audit %s/%s: measured_value must not be negative, got %v", a.CustomerID, a.ProgramCode, a.MeasuredValue)
	}
	return nil
}

// Validate checks a single rule row. Group-wide invariants are checked when
// the rule set is indexed.
func (r Rule) Validate() error {
	switch {
	case strings.TrimSpace(r.GroupID) == "":
		return fmt.Errorf("rule %s: group_id is required", r.ProgramCode)
	case strings.TrimSpace(r.ProgramCode) == "":
		return fmt.Errorf("rule in group %s: program_code is required", r.GroupID)
	case math.IsNaN(r.MinValue) || math.IsInf(r.MinValue, 0):
		return fmt.Errorf("rule %s/%s: min_value is not finite", r.GroupID, r.ProgramCode)
	case r.MinValue < 0:
		return fmt.Errorf("rule %s/%s: min_value must not be negative, got %v", r.GroupID, r.ProgramCode, r.MinValue)
	case r.PointValue < 0:
		return fmt.Errorf("rule %s/%s: point_value must not be negative, got %d", r.GroupID, r.ProgramCode, r.PointValue)
	case r.GroupRequiredPasses < 0:
		return fmt.Errorf("rule %s/%s: group_required_passes must not be negative, got %d", r.GroupID, r.ProgramCode, r.GroupRequiredPasses)
	}
	return nil
}
