package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/AdguardTeam/urlfilter"
	"github.com/AdguardTeam/urlfilter/filterlist"

	"cookiewarden/internal/domain"
)

// engineListID is the urlfilter rule list id of the single list held by a
// MemoryEngine.
const engineListID = 1

// ErrDuplicateRuleID is returned when an update would install two rules with
// the same id.
var ErrDuplicateRuleID = errors.New("duplicate rule id")

// RuleEngine is the dynamic blocking-rule collaborator.  UpdateDynamicRules
// must apply removals and additions as one atomic step.
type RuleEngine interface {
	UpdateDynamicRules(ctx context.Context, removeIDs []int, addRules []domain.BlockRule) error
	DynamicRules(ctx context.Context) ([]domain.BlockRule, error)
}

// MemoryEngine is an in-process RuleEngine that can also answer whether a
// request host is blocked.  It is safe for concurrent use.
type MemoryEngine struct {
	mu       sync.RWMutex
	rules    map[int]domain.BlockRule
	byDomain map[string]domain.BlockRule
	matcher  *urlfilter.DNSEngine
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		rules:    make(map[int]domain.BlockRule),
		byDomain: make(map[string]domain.BlockRule),
	}
}

// type check
var _ RuleEngine = (*MemoryEngine)(nil)

// UpdateDynamicRules implements the RuleEngine interface for *MemoryEngine.
// On error the installed set is left unchanged.
func (e *MemoryEngine) UpdateDynamicRules(_ context.Context, removeIDs []int, addRules []domain.BlockRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[int]domain.BlockRule, len(e.rules)+len(addRules))
	for id, r := range e.rules {
		next[id] = r
	}
	for _, id := range removeIDs {
		delete(next, id)
	}
	for _, r := range addRules {
		if _, exists := next[r.ID]; exists {
			return fmt.Errorf("rules: update: %w: %d", ErrDuplicateRuleID, r.ID)
		}
		next[r.ID] = r
	}

	byDomain := make(map[string]domain.BlockRule, len(next))
	for _, r := range next {
		if d := r.TargetDomain(); d != "" {
			byDomain[d] = r
		}
	}

	matcher, err := buildMatcher(byDomain)
	if err != nil {
		return fmt.Errorf("rules: update: %w", err)
	}

	e.rules = next
	e.byDomain = byDomain
	e.matcher = matcher

	return nil
}

// DynamicRules implements the RuleEngine interface for *MemoryEngine.  Rules
// are returned ordered by id.
func (e *MemoryEngine) DynamicRules(_ context.Context) ([]domain.BlockRule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.BlockRule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Match reports the rule blocking a request to host with resource type t.
func (e *MemoryEngine) Match(host string, t domain.ResourceType) (domain.BlockRule, bool) {
	host = domain.NormalizeDomain(host)
	if host == "" {
		return domain.BlockRule{}, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.matcher == nil {
		return domain.BlockRule{}, false
	}

	if _, matched := e.matcher.MatchRequest(&urlfilter.DNSRequest{Hostname: host}); !matched {
		return domain.BlockRule{}, false
	}

	for candidate := host; candidate != ""; candidate = parentDomain(candidate) {
		if r, ok := e.byDomain[candidate]; ok && r.AppliesTo(t) {
			return r, true
		}
	}
	return domain.BlockRule{}, false
}

func buildMatcher(byDomain map[string]domain.BlockRule) (*urlfilter.DNSEngine, error) {
	if len(byDomain) == 0 {
		return nil, nil
	}

	b := &strings.Builder{}
	for d := range byDomain {
		b.WriteString(domain.DomainURLFilter(d))
		b.WriteByte('\n')
	}

	lists := []filterlist.Interface{
		filterlist.NewBytes(&filterlist.BytesConfig{
			ID:             engineListID,
			RulesText:      []byte(b.String()),
			IgnoreCosmetic: true,
		}),
	}

	storage, err := filterlist.NewRuleStorage(lists)
	if err != nil {
		return nil, fmt.Errorf("building rule storage: %w", err)
	}

	return urlfilter.NewDNSEngine(storage), nil
}

func parentDomain(host string) string {
	if i := strings.IndexByte(host, '.'); i >= 0 {
		return host[i+1:]
	}
	return ""
}
