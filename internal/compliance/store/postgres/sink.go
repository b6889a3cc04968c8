package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
)

// Write upserts a batch of customer results in one transaction. A customer's
// group and program rows are replaced as a whole so a re-run never leaves rows
// from an earlier evaluation behind. Customer rows carry the run id from ctx.
func (s *Store) Write(ctx context.Context, period models.Period, results []models.CustomerResult) error {
	if len(results) == 0 {
		return nil
	}
	now := s.clock()
	runID := ports.RunIDFromContext(ctx)
	return s.inTx(ctx, func(ctx context.Context, q dbExecutor) error {
		if err := upsertCustomers(ctx, q, period, results, runID, now); err != nil {
			return err
		}
		ids := make([]string, len(results))
		for i, r := range results {
			ids[i] = r.Customer.CustomerID
		}
		for _, table := range []string{"group_verdicts", "program_verdicts"} {
			query := `DELETE FROM ` + table + ` WHERE period = $1 AND customer_id = ANY($2::text[])`
			if _, err := q.ExecContext(ctx, query, int(period), pq.Array(ids)); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		if err := insertGroups(ctx, q, period, results); err != nil {
			return err
		}
		return insertPrograms(ctx, q, period, results)
	})
}

// Prune deletes, in one transaction, every customer of period whose rows were
// written by a run other than runID.
func (s *Store) Prune(ctx context.Context, period models.Period, runID string) error {
	return s.inTx(ctx, func(ctx context.Context, q dbExecutor) error {
		for _, table := range []string{"group_verdicts", "program_verdicts"} {
			query := `
				DELETE FROM ` + table + ` t
				USING customer_verdicts c
				WHERE t.period = $1 AND c.period = $1
					AND t.customer_id = c.customer_id
					AND c.run_id <> $2
			`
			if _, err := q.ExecContext(ctx, query, int(period), runID); err != nil {
				return fmt.Errorf("prune %s: %w", table, err)
			}
		}
		_, err := q.ExecContext(ctx, `DELETE FROM customer_verdicts WHERE period = $1 AND run_id <> $2`, int(period), runID)
		if err != nil {
			return fmt.Errorf("prune customer_verdicts: %w", err)
		}
		return nil
	})
}

func upsertCustomers(ctx context.Context, q dbExecutor, period models.Period, results []models.CustomerResult, runID string, now time.Time) error {
	n := len(results)
	var (
		ids            = make([]string, n)
		statuses       = make([]string, n)
		reasons        = make([]string, n)
		totalGroups    = make([]int64, n)
		passedGroups   = make([]int64, n)
		totalPrograms  = make([]int64, n)
		passedPrograms = make([]int64, n)
		totalPoints    = make([]int64, n)
		maxPoints      = make([]int64, n)
		exceptions     = make([]bool, n)
		failures       = make([]string, n)
	)
	for i, r := range results {
		c := r.Customer
		ids[i] = c.CustomerID
		statuses[i] = string(c.Status)
		reasons[i] = string(c.Reason)
		totalGroups[i] = int64(c.TotalGroups)
		passedGroups[i] = int64(c.PassedGroups)
		totalPrograms[i] = int64(c.TotalPrograms)
		passedPrograms[i] = int64(c.PassedPrograms)
		totalPoints[i] = int64(c.TotalPoints)
		maxPoints[i] = int64(c.MaxPoints)
		exceptions[i] = c.ExceptionFlag
		trail := c.Failures
		if trail == nil {
			trail = []models.Failure{}
		}
		raw, err := json.Marshal(trail)
		if err != nil {
			return fmt.Errorf("marshal failure trail for %s: %w", c.CustomerID, err)
		}
		failures[i] = string(raw)
	}

	query := `
		INSERT INTO customer_verdicts (
			period, customer_id, status, reason, total_groups, passed_groups,
			total_programs, passed_programs, total_points, max_points,
			exception_flag, failures, evaluated_at, run_id
		)
		SELECT $1::int, u.customer_id, u.status, u.reason, u.total_groups, u.passed_groups,
			u.total_programs, u.passed_programs, u.total_points, u.max_points,
			u.exception_flag, u.failures::jsonb, $13::timestamptz, $14::text
		FROM unnest(
			$2::text[], $3::text[], $4::text[], $5::int[], $6::int[],
			$7::int[], $8::int[], $9::int[], $10::int[], $11::bool[], $12::text[]
		) AS u(customer_id, status, reason, total_groups, passed_groups,
			total_programs, passed_programs, total_points, max_points, exception_flag, failures)
		ON CONFLICT (period, customer_id) DO UPDATE SET
			status = EXCLUDED.status,
			reason = EXCLUDED.reason,
			total_groups = EXCLUDED.total_groups,
			passed_groups = EXCLUDED.passed_groups,
			total_programs = EXCLUDED.total_programs,
			passed_programs = EXCLUDED.passed_programs,
			total_points = EXCLUDED.total_points,
			max_points = EXCLUDED.max_points,
			exception_flag = EXCLUDED.exception_flag,
			failures = EXCLUDED.failures,
			evaluated_at = EXCLUDED.evaluated_at,
			run_id = EXCLUDED.run_id
	`
	_, err := q.ExecContext(ctx, query, int(period),
		pq.Array(ids), pq.Array(statuses), pq.Array(reasons),
		pq.Array(totalGroups), pq.Array(passedGroups),
		pq.Array(totalPrograms), pq.Array(passedPrograms),
		pq.Array(totalPoints), pq.Array(maxPoints),
		pq.Array(exceptions), pq.Array(failures), now, runID,
	)
	if err != nil {
		return fmt.Errorf("upsert customer verdicts: %w", err)
	}
	return nil
}

func insertGroups(ctx context.Context, q dbExecutor, period models.Period, results []models.CustomerResult) error {
	var (
		customers, groups, statuses, reasons []string
		passed, required, points, maxPoints  []int64
	)
	for _, r := range results {
		for _, g := range r.Groups {
			customers = append(customers, g.CustomerID)
			groups = append(groups, g.GroupID)
			statuses = append(statuses, string(g.Status))
			reasons = append(reasons, string(g.Reason))
			passed = append(passed, int64(g.PassedCount))
			required = append(required, int64(g.RequiredCount))
			points = append(points, int64(g.TotalPoints))
			maxPoints = append(maxPoints, int64(g.MaxPoints))
		}
	}
	if len(customers) == 0 {
		return nil
	}
	query := `
		INSERT INTO group_verdicts (
			period, customer_id, group_id, status, reason,
			passed_count, required_count, total_points, max_points
		)
		SELECT $1::int, u.* FROM unnest(
			$2::text[], $3::text[], $4::text[], $5::text[],
			$6::int[], $7::int[], $8::int[], $9::int[]
		) AS u
	`
	_, err := q.ExecContext(ctx, query, int(period),
		pq.Array(customers), pq.Array(groups), pq.Array(statuses), pq.Array(reasons),
		pq.Array(passed), pq.Array(required), pq.Array(points), pq.Array(maxPoints),
	)
	if err != nil {
		return fmt.Errorf("insert group verdicts: %w", err)
	}
	return nil
}

func insertPrograms(ctx context.Context, q dbExecutor, period models.Period, results []models.CustomerResult) error {
	var (
		customers, groups, programs, statuses, reasons []string
		measured, required, deficits, minValues        []float64
		quantities, points, maxPoints                  []int64
	)
	for _, r := range results {
		for _, p := range r.Programs {
			customers = append(customers, p.CustomerID)
			groups = append(groups, p.GroupID)
			programs = append(programs, p.ProgramCode)
			statuses = append(statuses, string(p.Status))
			reasons = append(reasons, string(p.Reason))
			measured = append(measured, p.MeasuredValue)
			required = append(required, p.RequiredValue)
			deficits = append(deficits, p.Deficit)
			quantities = append(quantities, int64(p.Quantity))
			minValues = append(minValues, p.MinValue)
			points = append(points, int64(p.Points))
			maxPoints = append(maxPoints, int64(p.MaxPoints))
		}
	}
	if len(customers) == 0 {
		return nil
	}
	query := `
		INSERT INTO program_verdicts (
			period, customer_id, group_id, program_code, status, reason,
			measured_value, required_value, deficit, quantity, min_value, points, max_points
		)
		SELECT $1::int, u.* FROM unnest(
			$2::text[], $3::text[], $4::text[], $5::text[], $6::text[],
			$7::float8[], $8::float8[], $9::float8[], $10::int[], $11::float8[], $12::int[], $13::int[]
		) AS u
	`
	_, err := q.ExecContext(ctx, query, int(period),
		pq.Array(customers), pq.Array(groups), pq.Array(programs), pq.Array(statuses), pq.Array(reasons),
		pq.Array(measured), pq.Array(required), pq.Array(deficits),
		pq.Array(quantities), pq.Array(minValues), pq.Array(points), pq.Array(maxPoints),
	)
	if err != nil {
		return fmt.Errorf("insert program verdicts: %w", err)
	}
	return nil
}

func insertRegistrations(ctx context.Context, q dbExecutor, period models.Period, regs []models.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	customers := make([]string, len(regs))
	programs := make([]string, len(regs))
	quantities := make([]int64, len(regs))
	for i, r := range regs {
		customers[i], programs[i], quantities[i] = r.CustomerID, r.ProgramCode, int64(r.Quantity)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO registrations (period, customer_id, program_code, quantity)
		SELECT $1::int, u.* FROM unnest($2::text[], $3::text[], $4::int[]) AS u
	`, int(period), pq.Array(customers), pq.Array(programs), pq.Array(quantities))
	if err != nil {
		return fmt.Errorf("insert registrations: %w", err)
	}
	return nil
}

func insertRules(ctx context.Context, q dbExecutor, period models.Period, rules []models.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	n := len(rules)
	groups, programs := make([]string, n), make([]string, n)
	minValues := make([]float64, n)
	points, required := make([]int64, n), make([]int64, n)
	vetoes := make([]bool, n)
	for i, r := range rules {
		groups[i], programs[i] = r.GroupID, r.ProgramCode
		minValues[i] = r.MinValue
		points[i], required[i] = int64(r.PointValue), int64(r.GroupRequiredPasses)
		vetoes[i] = r.HardVeto
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO rules (period, group_id, program_code, min_value, point_value, group_required_passes, hard_veto)
		SELECT $1::int, u.* FROM unnest($2::text[], $3::text[], $4::float8[], $5::int[], $6::int[], $7::bool[]) AS u
	`, int(period), pq.Array(groups), pq.Array(programs), pq.Array(minValues),
		pq.Array(points), pq.Array(required), pq.Array(vetoes))
	if err != nil {
		return fmt.Errorf("insert rules: %w", err)
	}
	return nil
}

func insertAudits(ctx context.Context, q dbExecutor, period models.Period, audits []models.AuditRecord) error {
	if len(audits) == 0 {
		return nil
	}
	n := len(audits)
	customers, groups, programs := make([]string, n), make([]string, n), make([]string, n)
	values := make([]float64, n)
	auditedAt := make([]sql.NullString, n)
	for i, a := range audits {
		customers[i], groups[i], programs[i] = a.CustomerID, a.GroupID, a.ProgramCode
		values[i] = a.MeasuredValue
		if !a.AuditedAt.IsZero() {
			auditedAt[i] = sql.NullString{String: a.AuditedAt.UTC().Format(time.RFC3339Nano), Valid: true}
		}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO audit_records (period, customer_id, group_id, program_code, measured_value, audited_at)
		SELECT $1::int, u.* FROM unnest($2::text[], $3::text[], $4::text[], $5::float8[], $6::timestamptz[]) AS u
	`, int(period), pq.Array(customers), pq.Array(groups), pq.Array(programs), pq.Array(values), pq.Array(auditedAt))
	if err != nil {
		return fmt.Errorf("insert audit records: %w", err)
	}
	return nil
}
