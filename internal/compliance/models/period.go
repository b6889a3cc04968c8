package models

import (
	"fmt"
	"strconv"

	dErrors "shelfaudit/pkg/domain-errors"
)

// Period is the YYYYMM key every registration, rule and audit is scoped to.
type Period int

// ParsePeriod validates a YYYYMM string.
func ParsePeriod(s string) (Period, error) {
	if len(s) != 6 {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "period must be YYYYMM, got %q", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "period must be numeric, got %q", s)
	}
	p := Period(n)
	if !p.IsValid() {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "period month out of range: %q", s)
	}
	return p, nil
}

// IsValid checks the year and month components.
func (p Period) IsValid() bool {
	year, month := p.Year(), p.Month()
	return year >= 1900 && year <= 9999 && month >= 1 && month <= 12
}

func (p Period) String() string {
	return fmt.Sprintf("%06d", int(p))
}

// Year returns the YYYY component.
func (p Period) Year() int {
	return int(p) / 100
}

// Month returns the MM component.
func (p Period) Month() int {
	return int(p) % 100
}
