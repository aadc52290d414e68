package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"cookiewarden/internal/domain"
)

// Synchronizer owns the installed dynamic rule set and rebuilds it from the
// extension state.  Calls to Sync are serialized.
type Synchronizer struct {
	mu       sync.Mutex
	engine   RuleEngine
	compiler *Compiler
	trackers *TrackerList
	metrics  Metrics
}

// NewSynchronizer returns a synchronizer installing rules into engine.
// metrics may be nil.
func NewSynchronizer(engine RuleEngine, compiler *Compiler, trackers *TrackerList, metrics Metrics) *Synchronizer {
	if metrics == nil {
		metrics = EmptyMetrics{}
	}
	return &Synchronizer{
		engine:   engine,
		compiler: compiler,
		trackers: trackers,
		metrics:  metrics,
	}
}

// Seed raises the compiler's id counter above the rules already installed in
// the engine.  Call it once at startup before the first Sync.
func (s *Synchronizer) Seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.engine.DynamicRules(ctx)
	if err != nil {
		return fmt.Errorf("rules: seed: list installed rules: %w", err)
	}
	s.compiler.SeedFrom(existing)
	return nil
}

// Sync recomputes the rule set for state and swaps it in with a single
// remove-all-then-add update.  Rule ids differ between calls even when the
// targeted domains are the same.
func (s *Synchronizer) Sync(ctx context.Context, state domain.ExtensionState) ([]domain.BlockRule, error) {
	return s.SyncCurrent(ctx, func() domain.ExtensionState { return state })
}

// SyncCurrent is like Sync but calls current under the sync lock, so the
// last sync to finish always installs rules for the latest state.
func (s *Synchronizer) SyncCurrent(
	ctx context.Context,
	current func() domain.ExtensionState,
) ([]domain.BlockRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.replace(ctx, current())
	s.metrics.ObserveSync(ctx, len(rules), err)
	return rules, err
}

func (s *Synchronizer) replace(ctx context.Context, state domain.ExtensionState) ([]domain.BlockRule, error) {
	var trackers []string
	if s.trackers != nil {
		trackers = s.trackers.Domains()
	}

	targets := TargetDomains(state, trackers)
	next := s.compiler.CompileRuleSet(targets)

	existing, err := s.engine.DynamicRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("rules: sync: list installed rules: %w", err)
	}

	removeIDs := make([]int, 0, len(existing))
	for _, r := range existing {
		removeIDs = append(removeIDs, r.ID)
	}

	if err := s.engine.UpdateDynamicRules(ctx, removeIDs, next); err != nil {
		return nil, fmt.Errorf("rules: sync: replace rules: %w", err)
	}

	log.Debug("Blocking rules synchronized",
		"active", state.Active,
		"auto_block", state.AutoBlockEnabled,
		"removed", len(removeIDs),
		"installed", len(next),
	)

	return next, nil
}

// TargetDomains returns the domains that must be blocked for state: none when
// inactive, the tracker list in auto-block mode, the blacklist otherwise.
// Domains covered by the whitelist, including blacklisted subdomains of a
// whitelisted domain, are never targeted.
func TargetDomains(state domain.ExtensionState, trackers []string) []string {
	if !state.Active {
		return nil
	}

	source := []string(state.Blacklist)
	if state.AutoBlockEnabled {
		source = trackers
	}

	out := make([]string, 0, len(source))
	for _, d := range source {
		if state.IsWhitelisted(d) {
			continue
		}
		out = append(out, d)
	}
	return out
}
