package memory

import (
	"fmt"
	"math/rand/v2"
	"time"

	"shelfaudit/internal/compliance/engine"
	"shelfaudit/internal/compliance/models"
	"shelfaudit/internal/compliance/ports"
)

// SampleConfig shapes a generated dataset.
type SampleConfig struct {
	Customers int
	Programs  int
	Seed      uint64
	// Sentinel program code; defaults to engine.DefaultSentinelProgram.
	Sentinel string
}

// DefaultSampleConfig mirrors a mid-sized month: ten thousand customers over
// fifty display programs.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{Customers: 10000, Programs: 50, Seed: 42, Sentinel: engine.DefaultSentinelProgram}
}

var sampleGroups = []struct {
	id       string
	required int
}{
	{"GROUP_A", 2},
	{"GROUP_B", 1},
	{"GROUP_C", 3},
	{"GROUP_D", 1},
}

// minSamplePrograms keeps every group's quota satisfiable.
const minSamplePrograms = 12

// Sample builds a deterministic dataset for period. The same config always
// yields the same rows. Programs are spread round-robin over four groups, the
// sentinel sits in GROUP_A as a hard veto, and a few customers are left
// unregistered or unaudited so every reason category shows up.
func Sample(period models.Period, cfg SampleConfig) ports.Input {
	if cfg.Programs < minSamplePrograms {
		cfg.Programs = minSamplePrograms
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = engine.DefaultSentinelProgram
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	programs := make([]string, cfg.Programs)
	rules := make([]models.Rule, 0, cfg.Programs+1)
	groupOf := make(map[string]string, cfg.Programs+1)
	for i := range programs {
		code := fmt.Sprintf("PROG_%03d", i)
		g := sampleGroups[i%len(sampleGroups)]
		programs[i] = code
		groupOf[code] = g.id
		rules = append(rules, models.Rule{
			Period:              period,
			GroupID:             g.id,
			ProgramCode:         code,
			MinValue:            float64(1 + rng.IntN(4)),
			PointValue:          1 + rng.IntN(9),
			GroupRequiredPasses: g.required,
		})
	}
	rules = append(rules, models.Rule{
		Period:              period,
		GroupID:             sampleGroups[0].id,
		ProgramCode:         cfg.Sentinel,
		GroupRequiredPasses: sampleGroups[0].required,
		HardVeto:            true,
	})
	groupOf[cfg.Sentinel] = sampleGroups[0].id

	minOf := make(map[string]float64, len(rules))
	for _, r := range rules {
		minOf[r.ProgramCode] = r.MinValue
	}

	in := ports.Input{Rules: rules}
	auditStart := time.Date(period.Year(), time.Month(period.Month()), 1, 8, 0, 0, 0, time.UTC)
	minute := 0

	addAudit := func(customer, program string, value float64) {
		in.Audits = append(in.Audits, models.AuditRecord{
			Period:        period,
			CustomerID:    customer,
			GroupID:       groupOf[program],
			ProgramCode:   program,
			MeasuredValue: value,
			AuditedAt:     auditStart.Add(time.Duration(minute) * time.Minute),
		})
		minute++
	}

	for c := range cfg.Customers {
		customer := fmt.Sprintf("CUST_%06d", c)
		roll := rng.IntN(100)

		// Audited but never registered.
		if roll < 2 {
			p := programs[rng.IntN(len(programs))]
			addAudit(customer, p, float64(rng.IntN(10)))
			continue
		}

		picked := rng.Perm(len(programs))[:3+rng.IntN(6)]
		if rng.IntN(100) < 80 {
			picked = append(picked, -1)
		}
		for _, idx := range picked {
			program := cfg.Sentinel
			if idx >= 0 {
				program = programs[idx]
			}
			qty := 1 + rng.IntN(4)
			in.Registrations = append(in.Registrations, models.Registration{
				Period:      period,
				CustomerID:  customer,
				ProgramCode: program,
				Quantity:    qty,
			})

			// Registered but never audited.
			if roll < 5 {
				continue
			}
			if rng.IntN(100) < 10 {
				continue
			}
			if program == cfg.Sentinel {
				flag := 0.0
				if rng.IntN(100) < 5 {
					flag = 1
				}
				addAudit(customer, program, flag)
				continue
			}
			// Spread around the requirement so most, not all, programs pass.
			required := minOf[program] * float64(qty)
			addAudit(customer, program, float64(rng.IntN(int(required*2.5)+1)))
		}
	}
	return in
}
