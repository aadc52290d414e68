package rules

import (
	"sync"
	"testing"

	"cookiewarden/internal/domain"
)

func TestBuildBlockRuleShape(t *testing.T) {
	c := NewCompiler()
	r := c.BuildBlockRule("tracker.com")

	if r.ID != DefaultFirstRuleID {
		t.Fatalf("expected first id %d, got %d", DefaultFirstRuleID, r.ID)
	}
	if r.Priority != DefaultPriority {
		t.Fatalf("expected priority %d, got %d", DefaultPriority, r.Priority)
	}
	if r.Action.Type != domain.RuleActionBlock {
		t.Fatalf("expected block action, got %q", r.Action.Type)
	}
	if r.Condition.URLFilter != "||tracker.com^" {
		t.Fatalf("unexpected url filter %q", r.Condition.URLFilter)
	}
	if len(r.Condition.ResourceTypes) != len(DefaultResourceTypes) {
		t.Fatalf("expected %d resource types, got %v", len(DefaultResourceTypes), r.Condition.ResourceTypes)
	}
	for _, rt := range DefaultResourceTypes {
		if !r.AppliesTo(rt) {
			t.Fatalf("rule does not cover %s", rt)
		}
	}
}

func TestBuildBlockRuleIDsNeverRepeat(t *testing.T) {
	c := NewCompiler()
	first := c.BuildBlockRule("tracker.com")
	second := c.BuildBlockRule("tracker.com")

	if first.ID == second.ID {
		t.Fatalf("expected distinct ids for repeated compilation, got %d twice", first.ID)
	}
	if first.Condition.URLFilter != second.Condition.URLFilter {
		t.Fatalf("expected same filter, got %q and %q", first.Condition.URLFilter, second.Condition.URLFilter)
	}
}

func TestBuildBlockRuleConcurrentIDsUnique(t *testing.T) {
	c := NewCompiler()

	const workers, perWorker = 8, 50
	ids := make(chan int, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- c.BuildBlockRule("a.com").ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]struct{}, workers*perWorker)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = struct{}{}
	}
}

func TestCompileRuleSet(t *testing.T) {
	c := NewCompiler()
	set := c.CompileRuleSet([]string{"b.com", "a.com", "b.com", ""})

	if len(set) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(set))
	}
	if set[0].TargetDomain() != "a.com" || set[1].TargetDomain() != "b.com" {
		t.Fatalf("expected lexicographic order, got %q then %q", set[0].TargetDomain(), set[1].TargetDomain())
	}
	if set[0].ID == set[1].ID {
		t.Fatalf("expected unique ids within a set")
	}

	if empty := c.CompileRuleSet(nil); len(empty) != 0 {
		t.Fatalf("expected empty set, got %d rules", len(empty))
	}
}

func TestSeedFromAvoidsInstalledIDs(t *testing.T) {
	c := NewCompiler()
	c.SeedFrom([]domain.BlockRule{{ID: 1500}, {ID: 1200}})

	if got := c.BuildBlockRule("a.com").ID; got != 1501 {
		t.Fatalf("expected id 1501 after seeding, got %d", got)
	}

	// Seeding with lower ids never moves the counter backwards.
	c.SeedFrom([]domain.BlockRule{{ID: 10}})
	if got := c.BuildBlockRule("a.com").ID; got != 1502 {
		t.Fatalf("expected id 1502, got %d", got)
	}
}
