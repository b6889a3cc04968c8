package models

// Reason explains a verdict at any granularity. Reasons are data, never errors.
type Reason string

const (
	// Customer level
	ReasonCompliant      Reason = "COMPLIANT"
	ReasonNoRegistration Reason = "NO_REGISTRATION"
	ReasonNoAuditData    Reason = "NO_AUDIT_DATA"
	ReasonDataQuality    Reason = "DATA_QUALITY"

	// Group level
	ReasonQuotaMet     Reason = "QUOTA_MET"
	ReasonQuotaNotMet  Reason = "QUOTA_NOT_MET"
	ReasonNoConditions Reason = "NO_CONDITIONS"

	// Program level
	ReasonMeetsMinimum      Reason = "MEETS_MINIMUM"
	ReasonBelowMinimum      Reason = "BELOW_MINIMUM"
	ReasonNoCondition       Reason = "NO_CONDITION"
	ReasonNoException       Reason = "NO_EXCEPTION"
	ReasonExceptionDetected Reason = "EXCEPTION_DETECTED"
)

// Category buckets reasons for batch summaries.
type Category string

const (
	CategoryCompliant         Category = "compliant"
	CategoryComplianceFailure Category = "compliance_failure"
	CategoryMissingData       Category = "missing_data"
	CategoryConfigurationGap  Category = "configuration_gap"
	CategoryDataQuality       Category = "data_quality"
)

// Category maps a reason onto the bucket operators triage by.
func (r Reason) Category() Category {
	switch r {
	case ReasonNoRegistration, ReasonNoAuditData:
		return CategoryMissingData
	case ReasonNoConditions, ReasonNoCondition:
		return CategoryConfigurationGap
	case ReasonDataQuality:
		return CategoryDataQuality
	case ReasonBelowMinimum, ReasonQuotaNotMet, ReasonExceptionDetected:
		return CategoryComplianceFailure
	default:
		return CategoryCompliant
	}
}

// failurePriority orders failure reasons for picking a customer's primary
// reason; higher wins.
var failurePriority = map[Reason]int{
	ReasonQuotaNotMet:       1,
	ReasonBelowMinimum:      2,
	ReasonNoCondition:       3,
	ReasonNoConditions:      4,
	ReasonExceptionDetected: 5,
	ReasonDataQuality:       6,
}

// Outranks reports whether r should be reported in preference to other.
func (r Reason) Outranks(other Reason) bool {
	return failurePriority[r] > failurePriority[other]
}

func (r Reason) String() string {
	return string(r)
}
