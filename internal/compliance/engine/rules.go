package engine

import (
	"errors"
	"fmt"
	"sort"

	"shelfaudit/internal/compliance/models"
	dErrors "shelfaudit/pkg/domain-errors"
)

// RuleGroup is the read-only configuration of one rule group.
type RuleGroup struct {
	ID             string
	RequiredPasses int
	rules          map[string]models.Rule
	vetoes         map[string]struct{}
}

// Rule returns the rule configured for programCode in this group.
func (g *RuleGroup) Rule(programCode string) (models.Rule, bool) {
	r, ok := g.rules[programCode]
	return r, ok
}

// Size is the number of programs configured in the group.
func (g *RuleGroup) Size() int {
	return len(g.rules)
}

// Vetoes reports whether a failure of programCode hard-fails the group.
func (g *RuleGroup) Vetoes(programCode string) bool {
	_, ok := g.vetoes[programCode]
	return ok
}

// RuleSet indexes rules by group. It is immutable after construction and safe
// to share across workers.
type RuleSet struct {
	groups map[string]*RuleGroup
}

// NewRuleSet validates and indexes a period's rules. Every problem found is
// reported in one CodeInvalidInput error so a misconfigured period is fixed in
// a single pass.
func NewRuleSet(rules []models.Rule, policy Policy) (*RuleSet, error) {
	rs := &RuleSet{groups: make(map[string]*RuleGroup)}
	var problems []error

	for _, r := range rules {
		if err := r.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		if r.HardVeto && !policy.IsSentinel(r.ProgramCode) {
			problems = append(problems, fmt.Errorf("rule %s/%s: hard_veto is only allowed on the sentinel program %q", r.GroupID, r.ProgramCode, policy.SentinelProgram))
			continue
		}

		g, ok := rs.groups[r.GroupID]
		if !ok {
			g = &RuleGroup{
				ID:             r.GroupID,
				RequiredPasses: r.GroupRequiredPasses,
				rules:          make(map[string]models.Rule),
				vetoes:         make(map[string]struct{}),
			}
			rs.groups[r.GroupID] = g
		}
		if _, dup := g.rules[r.ProgramCode]; dup {
			problems = append(problems, fmt.Errorf("rule %s/%s: duplicate rule", r.GroupID, r.ProgramCode))
			continue
		}
		if r.GroupRequiredPasses != g.RequiredPasses {
			problems = append(problems, fmt.Errorf("rule %s/%s: group_required_passes %d differs from group value %d", r.GroupID, r.ProgramCode, r.GroupRequiredPasses, g.RequiredPasses))
			continue
		}
		g.rules[r.ProgramCode] = r
		if r.HardVeto {
			g.vetoes[r.ProgramCode] = struct{}{}
		}
	}

	for _, id := range rs.GroupIDs() {
		g := rs.groups[id]
		if g.RequiredPasses > g.Size() {
			problems = append(problems, fmt.Errorf("group %s: group_required_passes %d exceeds its %d rules", id, g.RequiredPasses, g.Size()))
		}
	}

	if len(problems) > 0 {
		return nil, dErrors.Wrap(errors.Join(problems...), dErrors.CodeInvalidInput, "invalid rule configuration")
	}
	return rs, nil
}

// Group returns the configuration of groupID, or false when the group has no
// rules.
func (rs *RuleSet) Group(groupID string) (*RuleGroup, bool) {
	if rs == nil {
		return nil, false
	}
	g, ok := rs.groups[groupID]
	return g, ok
}

// GroupIDs lists configured groups in sorted order.
func (rs *RuleSet) GroupIDs() []string {
	if rs == nil {
		return nil
	}
	ids := make([]string, 0, len(rs.groups))
	for id := range rs.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
