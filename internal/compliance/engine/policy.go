package engine

import (
	dErrors "shelfaudit/pkg/domain-errors"
)

// DefaultSentinelProgram is the program code carrying integrity-exception
// semantics when none is configured.
const DefaultSentinelProgram = "fake_picture"

// DuplicatePolicy decides what happens when a customer has more than one audit
// row for the same program in a period.
type DuplicatePolicy string

const (
	// DuplicateReject resolves the customer to a data-quality failure.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateKeepLast keeps the row with the latest AuditedAt. Rows tied on
	// AuditedAt are still rejected since no order between them is meaningful.
	DuplicateKeepLast DuplicatePolicy = "keep-last"
)

// ParseDuplicatePolicy validates a configured policy name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	p := DuplicatePolicy(s)
	if !p.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown duplicate audit policy %q: must be 'reject' or 'keep-last'", s)
	}
	return p, nil
}

// IsValid checks if the policy is one of the supported values.
func (p DuplicatePolicy) IsValid() bool {
	return p == DuplicateReject || p == DuplicateKeepLast
}

// Policy holds the evaluation settings shared by every customer of a run.
type Policy struct {
	SentinelProgram string
	DuplicateAudits DuplicatePolicy
}

// DefaultPolicy returns the fake_picture sentinel with duplicate rejection.
func DefaultPolicy() Policy {
	return Policy{
		SentinelProgram: DefaultSentinelProgram,
		DuplicateAudits: DuplicateReject,
	}
}

// IsSentinel reports whether programCode follows exception semantics.
func (p Policy) IsSentinel(programCode string) bool {
	return p.SentinelProgram != "" && programCode == p.SentinelProgram
}

// Validate rejects incomplete policies.
func (p Policy) Validate() error {
	if p.SentinelProgram == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "sentinel program is required")
	}
	if !p.DuplicateAudits.IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown duplicate audit policy %q", p.DuplicateAudits)
	}
	return nil
}
