// Package rules compiles domains into dynamic blocking rules and keeps the
// installed rule set in step with the extension state.
package rules

import (
	"sort"
	"sync/atomic"

	"cookiewarden/internal/domain"
)

const (
	// DefaultPriority is shared by every compiled rule.  All rules carry the
	// same action, so evaluation order among them does not matter.
	DefaultPriority = 1

	// DefaultFirstRuleID is the first id handed out when no rules are
	// installed yet.
	DefaultFirstRuleID = 1000
)

// DefaultResourceTypes are the request types a block rule applies to.
var DefaultResourceTypes = []domain.ResourceType{
	domain.ResourceMainFrame,
	domain.ResourceSubFrame,
	domain.ResourceScript,
	domain.ResourceImage,
	domain.ResourceXHR,
	domain.ResourceWebSocket,
}

// Compiler builds block rules.  Rule ids are allocated from a process-wide
// monotonic counter and are never reused, so two compilations of the same
// domain yield different ids.
type Compiler struct {
	lastID atomic.Int64
}

func NewCompiler() *Compiler {
	c := &Compiler{}
	c.lastID.Store(DefaultFirstRuleID - 1)
	return c
}

// SeedFrom raises the id counter above the largest id in installed so new
// rules never collide with rules left over from a previous session.
func (c *Compiler) SeedFrom(installed []domain.BlockRule) {
	var maxID int64
	for _, r := range installed {
		if int64(r.ID) > maxID {
			maxID = int64(r.ID)
		}
	}

	for {
		cur := c.lastID.Load()
		if maxID <= cur {
			return
		}
		if c.lastID.CompareAndSwap(cur, maxID) {
			return
		}
	}
}

// BuildBlockRule allocates the next id and returns a rule blocking domain and
// all of its subdomains.
func (c *Compiler) BuildBlockRule(target string) domain.BlockRule {
	types := make([]domain.ResourceType, len(DefaultResourceTypes))
	copy(types, DefaultResourceTypes)

	return domain.BlockRule{
		ID:       int(c.lastID.Add(1)),
		Priority: DefaultPriority,
		Action:   domain.RuleAction{Type: domain.RuleActionBlock},
		Condition: domain.RuleCondition{
			URLFilter:     domain.DomainURLFilter(target),
			ResourceTypes: types,
		},
	}
}

// CompileRuleSet builds one rule per distinct domain, in lexicographic domain
// order.
func (c *Compiler) CompileRuleSet(domains []string) []domain.BlockRule {
	unique := make(map[string]struct{}, len(domains))
	sorted := make([]string, 0, len(domains))
	for _, d := range domains {
		if d == "" {
			continue
		}
		if _, seen := unique[d]; seen {
			continue
		}
		unique[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	out := make([]domain.BlockRule, 0, len(sorted))
	for _, d := range sorted {
		out = append(out, c.BuildBlockRule(d))
	}
	return out
}
