package domain

import (
	"testing"
	"time"
)

func TestStatePatchApply(t *testing.T) {
	state := DefaultState()
	state.BlockedCount = 7

	active := false
	whitelist := StringList{"Example.com", "example.com", "news.site"}
	patch := StatePatch{Active: &active, Whitelist: &whitelist}

	patch.Apply(&state)

	if state.Active {
		t.Fatal("expected active to be false after patch")
	}
	if !state.AutoBlockEnabled {
		t.Fatal("autoBlockEnabled should be untouched")
	}
	if state.BlockedCount != 7 {
		t.Fatalf("blockedCount = %d, want 7", state.BlockedCount)
	}
	if len(state.Whitelist) != 2 || state.Whitelist[0] != "example.com" {
		t.Fatalf("whitelist = %v, want normalized and deduplicated", state.Whitelist)
	}
	if !patch.AffectsRules() {
		t.Fatal("patch touching active and whitelist must affect rules")
	}

	count := uint64(3)
	if (StatePatch{BannersRemovedCount: &count}).AffectsRules() {
		t.Fatal("counter-only patch must not affect rules")
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	state := DefaultState()
	state.Whitelist = StringList{"a.com"}
	state.BlockedCookieTally.Record("a.com", "_ga")

	cp := state.Clone()
	cp.Whitelist[0] = "b.com"
	cp.BlockedCookieTally.Record("a.com", "_ga")

	if state.Whitelist[0] != "a.com" {
		t.Fatal("clone shares whitelist storage")
	}
	if got := state.BlockedCookieTally.Count("a.com", "_ga"); got != 1 {
		t.Fatalf("original tally = %d, want 1", got)
	}
}

func TestCookieObservation(t *testing.T) {
	c := CookieObservation{Domain: ".Example.com", Path: "account"}
	if !c.IsSession() {
		t.Fatal("cookie without expiry must be a session cookie")
	}
	if got := c.URL("https"); got != "https://example.com/account" {
		t.Fatalf("URL = %q", got)
	}

	exp := time.Unix(1700000000, 0)
	c.Expires = &exp
	if c.IsSession() {
		t.Fatal("cookie with expiry must not be a session cookie")
	}

	if ParseSameSite("Strict") != SameSiteStrict || ParseSameSite("None") != SameSiteNone || ParseSameSite("weird") != SameSiteUnspecified {
		t.Fatal("ParseSameSite mapping mismatch")
	}
}

func TestBlockRuleTargetDomain(t *testing.T) {
	r := BlockRule{Condition: RuleCondition{URLFilter: DomainURLFilter("ads.example.com")}}
	if got := r.TargetDomain(); got != "ads.example.com" {
		t.Fatalf("TargetDomain = %q", got)
	}
	if got := (BlockRule{Condition: RuleCondition{URLFilter: "*tracker*"}}).TargetDomain(); got != "" {
		t.Fatalf("TargetDomain for foreign filter = %q, want empty", got)
	}
}
