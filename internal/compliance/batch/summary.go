package batch

import (
	"time"

	"shelfaudit/internal/compliance/models"
)

// Summary is the operator-facing outcome of one run. Counts per reason and per
// category separate compliance failures from missing data and configuration
// gaps.
type Summary struct {
	RunID  string        `json:"run_id"`
	Period models.Period `json:"period"`

	Customers int     `json:"customers"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	PassRate  float64 `json:"pass_rate"`

	ByReason   map[models.Reason]int   `json:"by_reason"`
	ByCategory map[models.Category]int `json:"by_category"`

	// Customers whose sentinel program flagged an exception, and customers
	// that still passed despite it (sentinel counted toward a quota only).
	ExceptionFailed int `json:"exception_failed"`
	ExceptionPassed int `json:"exception_passed"`

	Groups         int `json:"groups"`
	GroupsPassed   int `json:"groups_passed"`
	Programs       int `json:"programs"`
	ProgramsPassed int `json:"programs_passed"`

	// Rows dropped for lacking a customer id.
	Unattributed int `json:"unattributed"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	// Customers per second.
	Throughput float64 `json:"throughput"`
}

func newSummary(runID string, period models.Period, startedAt time.Time) *Summary {
	return &Summary{
		RunID:      runID,
		Period:     period,
		ByReason:   make(map[models.Reason]int),
		ByCategory: make(map[models.Category]int),
		StartedAt:  startedAt,
	}
}

// Add folds one customer's result into the summary.
func (s *Summary) Add(r models.CustomerResult) {
	c := r.Customer
	s.Customers++
	if c.Passed() {
		s.Passed++
	} else {
		s.Failed++
	}
	s.ByReason[c.Reason]++
	s.ByCategory[c.Reason.Category()]++
	if c.ExceptionFlag {
		if c.Passed() {
			s.ExceptionPassed++
		} else {
			s.ExceptionFailed++
		}
	}
	s.Groups += c.TotalGroups
	s.GroupsPassed += c.PassedGroups
	s.Programs += c.TotalPrograms
	s.ProgramsPassed += c.PassedPrograms
}

func (s *Summary) finish(at time.Time) {
	s.FinishedAt = at
	s.Duration = at.Sub(s.StartedAt)
	if s.Customers > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Customers)
	}
	if secs := s.Duration.Seconds(); secs > 0 {
		s.Throughput = float64(s.Customers) / secs
	}
}
