package engine

import (
	"fmt"
	"sort"
	"strings"

	"shelfaudit/internal/compliance/models"
	dErrors "shelfaudit/pkg/domain-errors"
)

// CustomerSlice is the part of a period's data one customer's evaluation
// touches.
type CustomerSlice struct {
	CustomerID    string
	Registrations []models.Registration
	Audits        []models.AuditRecord
}

// Dataset is a period's input partitioned by customer. It is built once per run
// and read concurrently by every worker.
type Dataset struct {
	Period models.Period
	Rules  *RuleSet
	Policy Policy

	registrations map[string][]models.Registration
	audits        map[string][]models.AuditRecord
	customers     []string

	// Unattributed counts rows dropped because they carry no customer id.
	Unattributed int
}

// NewDataset validates the rule configuration and partitions registrations and
// audits by customer. Rows stamped with another period are rejected; a zero
// period on a row means "this period".
func NewDataset(period models.Period, regs []models.Registration, rules []models.Rule, audits []models.AuditRecord, policy Policy) (*Dataset, error) {
	if !period.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid period %d", int(period))
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	for _, r := range rules {
		if !inPeriod(r.Period, period) {
			return nil, periodMismatch("rule", r.Period, period)
		}
	}
	rs, err := NewRuleSet(rules, policy)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Period:        period,
		Rules:         rs,
		Policy:        policy,
		registrations: make(map[string][]models.Registration),
		audits:        make(map[string][]models.AuditRecord),
	}
	seen := make(map[string]struct{})

	for _, r := range regs {
		if !inPeriod(r.Period, period) {
			return nil, periodMismatch("registration", r.Period, period)
		}
		id := strings.TrimSpace(r.CustomerID)
		if id == "" {
			ds.Unattributed++
			continue
		}
		r.CustomerID = id
		ds.registrations[id] = append(ds.registrations[id], r)
		seen[id] = struct{}{}
	}
	for _, a := range audits {
		if !inPeriod(a.Period, period) {
			return nil, periodMismatch("audit", a.Period, period)
		}
		id := strings.TrimSpace(a.CustomerID)
		if id == "" {
			ds.Unattributed++
			continue
		}
		a.CustomerID = id
		ds.audits[id] = append(ds.audits[id], a)
		seen[id] = struct{}{}
	}

	ds.customers = make([]string, 0, len(seen))
	for id := range seen {
		ds.customers = append(ds.customers, id)
	}
	sort.Strings(ds.customers)
	return ds, nil
}

// Customers lists every customer appearing in registrations or audits, sorted.
func (d *Dataset) Customers() []string {
	return d.customers
}

// Len is the number of customers in the dataset.
func (d *Dataset) Len() int {
	return len(d.customers)
}

// Slice returns one customer's registrations and audits.
func (d *Dataset) Slice(customerID string) CustomerSlice {
	return CustomerSlice{
		CustomerID:    customerID,
		Registrations: d.registrations[customerID],
		Audits:        d.audits[customerID],
	}
}

// Evaluate runs the full pipeline for one customer of the dataset.
func (d *Dataset) Evaluate(customerID string) models.CustomerResult {
	return EvaluateCustomer(d.Slice(customerID), d.Rules, d.Policy)
}

func inPeriod(row, period models.Period) bool {
	return row == 0 || row == period
}

func periodMismatch(kind string, got, want models.Period) error {
	return dErrors.Wrap(fmt.Errorf("%s row stamped %s", kind, got), dErrors.CodeInvalidInput,
		fmt.Sprintf("input for period %s contains rows of another period", want))
}
