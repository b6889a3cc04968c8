package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/pkg/platform/sentinel"
)

// CustomerResult reads back one customer's three-tier result.
func (s *Store) CustomerResult(ctx context.Context, period models.Period, customerID string) (*models.CustomerResult, error) {
	q := s.execer(ctx)

	var (
		c        = models.CustomerVerdict{CustomerID: customerID}
		status   string
		reason   string
		failures []byte
	)
	err := q.QueryRowContext(ctx, `
		SELECT status, reason, total_groups, passed_groups, total_programs, passed_programs,
			total_points, max_points, exception_flag, failures
		FROM customer_verdicts
		WHERE period = $1 AND customer_id = $2
	`, int(period), customerID).Scan(
		&status, &reason, &c.TotalGroups, &c.PassedGroups, &c.TotalPrograms, &c.PassedPrograms,
		&c.TotalPoints, &c.MaxPoints, &c.ExceptionFlag, &failures,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find customer verdict: %w", err)
	}
	c.Status = models.Status(status)
	c.Reason = models.Reason(reason)
	if len(failures) > 0 {
		if err := json.Unmarshal(failures, &c.Failures); err != nil {
			return nil, fmt.Errorf("unmarshal failure trail: %w", err)
		}
	}
	if len(c.Failures) == 0 {
		c.Failures = nil
	}

	groups, err := s.groupVerdicts(ctx, q, period, customerID)
	if err != nil {
		return nil, err
	}
	programs, err := s.programVerdicts(ctx, q, period, customerID)
	if err != nil {
		return nil, err
	}
	return &models.CustomerResult{Customer: c, Groups: groups, Programs: programs}, nil
}

func (s *Store) groupVerdicts(ctx context.Context, q dbExecutor, period models.Period, customerID string) ([]models.GroupVerdict, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT group_id, status, reason, passed_count, required_count, total_points, max_points
		FROM group_verdicts
		WHERE period = $1 AND customer_id = $2
		ORDER BY group_id COLLATE "C"
	`, int(period), customerID)
	if err != nil {
		return nil, fmt.Errorf("query group verdicts: %w", err)
	}
	defer rows.Close()

	var out []models.GroupVerdict
	for rows.Next() {
		g := models.GroupVerdict{CustomerID: customerID}
		var status, reason string
		if err := rows.Scan(&g.GroupID, &status, &reason, &g.PassedCount, &g.RequiredCount, &g.TotalPoints, &g.MaxPoints); err != nil {
			return nil, fmt.Errorf("scan group verdict: %w", err)
		}
		g.Status, g.Reason = models.Status(status), models.Reason(reason)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group verdicts: %w", err)
	}
	return out, nil
}

func (s *Store) programVerdicts(ctx context.Context, q dbExecutor, period models.Period, customerID string) ([]models.ProgramVerdict, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT group_id, program_code, status, reason, measured_value, required_value,
			deficit, quantity, min_value, points, max_points
		FROM program_verdicts
		WHERE period = $1 AND customer_id = $2
		ORDER BY group_id COLLATE "C", program_code COLLATE "C"
	`, int(period), customerID)
	if err != nil {
		return nil, fmt.Errorf("query program verdicts: %w", err)
	}
	defer rows.Close()

	var out []models.ProgramVerdict
	for rows.Next() {
		p := models.ProgramVerdict{CustomerID: customerID}
		var status, reason string
		if err := rows.Scan(&p.GroupID, &p.ProgramCode, &status, &reason, &p.MeasuredValue, &p.RequiredValue,
			&p.Deficit, &p.Quantity, &p.MinValue, &p.Points, &p.MaxPoints); err != nil {
			return nil, fmt.Errorf("scan program verdict: %w", err)
		}
		p.Status, p.Reason = models.Status(status), models.Reason(reason)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate program verdicts: %w", err)
	}
	return out, nil
}
