package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
	"shelfaudit/pkg/platform/sentinel"
)

// Load reads a period's registrations, rules and audits. A period with no
// rows at all is reported as sentinel.ErrNotFound.
func (s *Store) Load(ctx context.Context, period models.Period) (*ports.Input, error) {
	q := s.execer(ctx)
	regs, err := s.loadRegistrations(ctx, q, period)
	if err != nil {
		return nil, err
	}
	rules, err := s.loadRules(ctx, q, period)
	if err != nil {
		return nil, err
	}
	audits, err := s.loadAudits(ctx, q, period)
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 && len(rules) == 0 && len(audits) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return &ports.Input{Registrations: regs, Rules: rules, Audits: audits}, nil
}

func (s *Store) loadRegistrations(ctx context.Context, q dbExecutor, period models.Period) ([]models.Registration, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT customer_id, program_code, quantity
		FROM registrations
		WHERE period = $1
	`, int(period))
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	var out []models.Registration
	for rows.Next() {
		r := models.Registration{Period: period}
		if err := rows.Scan(&r.CustomerID, &r.ProgramCode, &r.Quantity); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func (s *Store) loadRules(ctx context.Context, q dbExecutor, period models.Period) ([]models.Rule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT group_id, program_code, min_value, point_value, group_required_passes, hard_veto
		FROM rules
		WHERE period = $1
	`, int(period))
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		r := models.Rule{Period: period}
		if err := rows.Scan(&r.GroupID, &r.ProgramCode, &r.MinValue, &r.PointValue, &r.GroupRequiredPasses, &r.HardVeto); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

func (s *Store) loadAudits(ctx context.Context, q dbExecutor, period models.Period) ([]models.AuditRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT customer_id, group_id, program_code, measured_value, audited_at
		FROM audit_records
		WHERE period = $1
	`, int(period))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var out []models.AuditRecord
	for rows.Next() {
		a := models.AuditRecord{Period: period}
		var auditedAt sql.NullTime
		if err := rows.Scan(&a.CustomerID, &a.GroupID, &a.ProgramCode, &a.MeasuredValue, &auditedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if auditedAt.Valid {
			a.AuditedAt = auditedAt.Time
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return out, nil
}

// Seed inserts a period's input rows. Used by the CLI sample loader and tests.
func (s *Store) Seed(ctx context.Context, period models.Period, in ports.Input) error {
	return s.inTx(ctx, func(ctx context.Context, q dbExecutor) error {
		for _, table := range []string{"registrations", "rules", "audit_records"} {
			if _, err := q.ExecContext(ctx, `DELETE FROM `+table+` WHERE period = $1`, int(period)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if err := insertRegistrations(ctx, q, period, in.Registrations); err != nil {
			return err
		}
		if err := insertRules(ctx, q, period, in.Rules); err != nil {
			return err
		}
		return insertAudits(ctx, q, period, in.Audits)
	})
}
