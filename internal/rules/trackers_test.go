package rules

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseList(t *testing.T) {
	input := strings.Join([]string{
		"! EasyPrivacy style comment",
		"# hosts comment",
		"[Adblock Plus 2.0]",
		"||doubleclick.net^",
		"||ads.example.com^$third-party",
		"||cdn.example.com/path^",
		"@@||allowed.com^",
		"example.org##.banner",
		"0.0.0.0 hotjar.com",
		"127.0.0.1 localhost",
		"Mixpanel.COM",
		"*.wildcard.com",
		"not a valid host!",
		"doubleclick.net",
		"",
	}, "\n")

	got, err := ParseList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseList returned error: %v", err)
	}

	want := []string{"doubleclick.net", "ads.example.com", "hotjar.com", "mixpanel.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNewTrackerListHasBuiltins(t *testing.T) {
	l := NewTrackerList()
	if l.Len() == 0 {
		t.Fatalf("expected built-in tracker domains")
	}

	found := false
	for _, d := range l.Domains() {
		if d == "doubleclick.net" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected doubleclick.net in built-in list")
	}
}

func TestTrackerListAddAndLoadFile(t *testing.T) {
	l := &TrackerList{domains: make(map[string]struct{})}

	if added := l.Add("a.com", "A.com", "b.com"); added != 2 {
		t.Fatalf("expected 2 new domains, got %d", added)
	}

	path := filepath.Join(t.TempDir(), "extra.txt")
	if err := os.WriteFile(path, []byte("||c.com^\nb.com\n"), 0o600); err != nil {
		t.Fatalf("write list: %v", err)
	}

	added, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 new domain, got %d", added)
	}
	if got := strings.Join(l.Domains(), ","); got != "a.com,b.com,c.com" {
		t.Fatalf("unexpected domains %q", got)
	}

	if _, err := l.LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTrackerListRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.txt":
			fmt.Fprintln(w, "||fresh-tracker.com^")
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	l := &TrackerList{domains: make(map[string]struct{})}
	added, err := l.Refresh(context.Background(), []string{srv.URL + "/bad.txt", srv.URL + "/good.txt"})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if added != 1 || l.Len() != 1 {
		t.Fatalf("expected one new domain from the working source, got added=%d len=%d", added, l.Len())
	}
}
