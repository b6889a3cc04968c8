package models

import (
	"fmt"
	"strconv"
	"time"
)

// Registration is a customer's enrolment in a display program for a period.
// Identity: (Period, CustomerID, ProgramCode).
type Registration struct {
	Period      Period `json:"period"`
	CustomerID  string `json:"customer_id"`
	ProgramCode string `json:"program_code"`
	Quantity    int    `json:"quantity"`
}

// Rule configures one program inside a rule group. All rules of a group share
// GroupRequiredPasses. HardVeto is only meaningful on the sentinel program's rule.
// Identity: (Period, GroupID, ProgramCode).
type Rule struct {
	Period              Period  `json:"period"`
	GroupID             string  `json:"group_id"`
	ProgramCode         string  `json:"program_code"`
	MinValue            float64 `json:"min_value"`
	PointValue          int     `json:"point_value"`
	GroupRequiredPasses int     `json:"group_required_passes"`
	HardVeto            bool    `json:"hard_veto,omitempty"`
}

// AuditRecord is one measured in-store result.
// Identity: (Period, CustomerID, ProgramCode).
type AuditRecord struct {
	Period        Period    `json:"period"`
	CustomerID    string    `json:"customer_id"`
	ProgramCode   string    `json:"program_code"`
	GroupID       string    `json:"group_id"`
	MeasuredValue float64   `json:"measured_value"`
	AuditedAt     time.Time `json:"audited_at"`
}

// Status is the binary verdict at every granularity.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// IsValid checks if the status is one of the supported values.
func (s Status) IsValid() bool {
	return s == StatusPass || s == StatusFail
}

func (s Status) String() string {
	return string(s)
}

// ProgramVerdict is the outcome for one matched (registration, audit) pair.
type ProgramVerdict struct {
	CustomerID    string  `json:"customer_id"`
	GroupID       string  `json:"group_id"`
	ProgramCode   string  `json:"program_code"`
	Status        Status  `json:"status"`
	Reason        Reason  `json:"reason"`
	MeasuredValue float64 `json:"measured_value"`
	RequiredValue float64 `json:"required_value"`
	Deficit       float64 `json:"deficit"`
	Quantity      int     `json:"quantity"`
	MinValue      float64 `json:"min_value"`
	Points        int     `json:"points"`
	MaxPoints     int     `json:"max_points"`
}

// Passed reports whether the program cleared its check.
func (v ProgramVerdict) Passed() bool {
	return v.Status == StatusPass
}

// Score renders "measured/required" for reports.
func (v ProgramVerdict) Score() string {
	return formatNumber(v.MeasuredValue) + "/" + formatNumber(v.RequiredValue)
}

// GroupVerdict is the quota outcome for one (customer, group).
type GroupVerdict struct {
	CustomerID    string `json:"customer_id"`
	GroupID       string `json:"group_id"`
	Status        Status `json:"status"`
	Reason        Reason `json:"reason"`
	PassedCount   int    `json:"passed_count"`
	RequiredCount int    `json:"required_count"`
	TotalPoints   int    `json:"total_points"`
	MaxPoints     int    `json:"max_points"`
}

// Passed reports whether the group met its quota.
func (v GroupVerdict) Passed() bool {
	return v.Status == StatusPass
}

// Score renders "passed/required".
func (v GroupVerdict) Score() string {
	return fmt.Sprintf("%d/%d", v.PassedCount, v.RequiredCount)
}

// Failure is one entry of a customer's reason trail. ProgramCode is empty for
// group-level failures, both ids are empty for customer-level ones.
type Failure struct {
	GroupID     string `json:"group_id,omitempty"`
	ProgramCode string `json:"program_code,omitempty"`
	Reason      Reason `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

func (f Failure) String() string {
	key := f.GroupID
	if f.ProgramCode != "" {
		key += "/" + f.ProgramCode
	}
	s := string(f.Reason)
	if key != "" {
		s = key + ":" + s
	}
	if f.Detail != "" {
		s += "(" + f.Detail + ")"
	}
	return s
}

// CustomerVerdict is the engine's primary output.
type CustomerVerdict struct {
	CustomerID     string    `json:"customer_id"`
	Status         Status    `json:"status"`
	Reason         Reason    `json:"reason"`
	TotalGroups    int       `json:"total_groups"`
	PassedGroups   int       `json:"passed_groups"`
	TotalPrograms  int       `json:"total_programs"`
	PassedPrograms int       `json:"passed_programs"`
	TotalPoints    int       `json:"total_points"`
	MaxPoints      int       `json:"max_points"`
	ExceptionFlag  bool      `json:"exception_flag"`
	Failures       []Failure `json:"failures,omitempty"`
}

// Passed reports whether the customer is compliant.
func (v CustomerVerdict) Passed() bool {
	return v.Status == StatusPass
}

// CustomerResult is the three-tier verdict set of one customer. It is only
// meaningful as a whole.
type CustomerResult struct {
	Customer CustomerVerdict  `json:"customer"`
	Groups   []GroupVerdict   `json:"groups"`
	Programs []ProgramVerdict `json:"programs"`
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
