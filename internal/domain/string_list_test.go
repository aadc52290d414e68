package domain

import "testing"

func TestStringList(t *testing.T) {
	list := StringList{"b.com"}

	list = list.With("a.com").With("b.com").With("")
	if len(list) != 2 || list[1] != "a.com" {
		t.Fatalf("With = %v, want [b.com a.com]", list)
	}

	sorted := list.Sorted()
	if sorted[0] != "a.com" || list[0] != "b.com" {
		t.Fatalf("Sorted changed the receiver or did not sort: %v %v", list, sorted)
	}

	without := list.Without("b.com")
	if len(without) != 1 || without.Contains("b.com") || !list.Contains("b.com") {
		t.Fatalf("Without = %v, receiver %v", without, list)
	}
}

func TestCookieTally(t *testing.T) {
	var tally CookieTally
	tally.Record("a.com", "_ga")
	tally.Record("a.com", "_ga")
	tally.Record("b.com", "sid")

	if got := tally.Count("a.com", "_ga"); got != 2 {
		t.Fatalf("Count(a.com, _ga) = %d, want 2", got)
	}
	if got := tally.Count("c.com", "x"); got != 0 {
		t.Fatalf("Count for unknown domain = %d, want 0", got)
	}

	cp := tally.Clone()
	cp.Record("a.com", "_ga")
	if tally.Count("a.com", "_ga") != 2 {
		t.Fatalf("Clone shares memory with the original")
	}
}

func TestParseSameSite(t *testing.T) {
	cases := map[string]SameSite{
		"Strict":         SameSiteStrict,
		" lax ":          SameSiteLax,
		"None":           SameSiteNone,
		"no_restriction": SameSiteNone,
		"unspecified":    SameSiteUnspecified,
		"":               SameSiteUnspecified,
	}
	for raw, want := range cases {
		if got := ParseSameSite(raw); got != want {
			t.Fatalf("ParseSameSite(%q) = %q, want %q", raw, got, want)
		}
	}
}
