package engine

import (
	"fmt"
	"sort"

	"shelfaudit/internal/compliance/models"
)

// MatchedRow pairs a registration with the audit recorded for the same
// (customer, program).
type MatchedRow struct {
	Registration models.Registration
	Audit        models.AuditRecord
}

// MatchResult is the Matcher's output. When Verdict is set the customer is
// resolved and no further stage runs.
type MatchResult struct {
	Rows    []MatchedRow
	Verdict *models.CustomerVerdict
}

// Match joins a customer's registrations with their audits by program code.
// Audits of programs the customer never registered are ignored. Rows taking
// part in the join are validated here so malformed data can never reach the
// evaluator and turn into a PASS.
func Match(slice CustomerSlice, policy Policy) MatchResult {
	if len(slice.Registrations) == 0 {
		return resolved(slice.CustomerID, models.ReasonNoRegistration, nil)
	}

	var problems []string
	regs := make(map[string]models.Registration, len(slice.Registrations))
	for _, r := range slice.Registrations {
		if err := r.Validate(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if _, dup := regs[r.ProgramCode]; dup {
			problems = append(problems, fmt.Sprintf("registration %s/%s: duplicate registration", slice.CustomerID, r.ProgramCode))
			continue
		}
		regs[r.ProgramCode] = r
	}

	byProgram := make(map[string][]models.AuditRecord)
	for _, a := range slice.Audits {
		if _, ok := regs[a.ProgramCode]; !ok {
			continue
		}
		if err := a.Validate(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		byProgram[a.ProgramCode] = append(byProgram[a.ProgramCode], a)
	}

	rows := make([]MatchedRow, 0, len(byProgram))
	for program, audits := range byProgram {
		audit, err := pickAudit(audits, policy.DuplicateAudits)
		if err != nil {
			problems = append(problems, fmt.Sprintf("audit %s/%s: %v", slice.CustomerID, program, err))
			continue
		}
		rows = append(rows, MatchedRow{Registration: regs[program], Audit: audit})
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		failures := make([]models.Failure, len(problems))
		for i, p := range problems {
			failures[i] = models.Failure{Reason: models.ReasonDataQuality, Detail: p}
		}
		return resolved(slice.CustomerID, models.ReasonDataQuality, failures)
	}
	if len(rows) == 0 {
		return resolved(slice.CustomerID, models.ReasonNoAuditData, nil)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Audit.GroupID != rows[j].Audit.GroupID {
			return rows[i].Audit.GroupID < rows[j].Audit.GroupID
		}
		return rows[i].Audit.ProgramCode < rows[j].Audit.ProgramCode
	})
	return MatchResult{Rows: rows}
}

func pickAudit(audits []models.AuditRecord, policy DuplicatePolicy) (models.AuditRecord, error) {
	if len(audits) == 1 {
		return audits[0], nil
	}
	if policy != DuplicateKeepLast {
		return models.AuditRecord{}, fmt.Errorf("%d audit rows for one program", len(audits))
	}
	latest := audits[0]
	tied := false
	for _, a := range audits[1:] {
		switch {
		case a.AuditedAt.After(latest.AuditedAt):
			latest, tied = a, false
		case a.AuditedAt.Equal(latest.AuditedAt):
			tied = true
		}
	}
	if tied {
		return models.AuditRecord{}, fmt.Errorf("%d audit rows share the latest audited_at %s", len(audits), latest.AuditedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return latest, nil
}

func resolved(customerID string, reason models.Reason, failures []models.Failure) MatchResult {
	if failures == nil {
		failures = []models.Failure{{Reason: reason}}
	}
	return MatchResult{Verdict: &models.CustomerVerdict{
		CustomerID: customerID,
		Status:     models.StatusFail,
		Reason:     reason,
		Failures:   failures,
	}}
}
