package rules

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"cookiewarden/internal/domain"
)

const (
	maxListBytes   = 10 << 20 // 10 MiB safety cap
	defaultRefresh = 24 * time.Hour
)

//go:embed trackers.txt
var builtinTrackers []byte

var httpClient = &http.Client{Timeout: 30 * time.Second}

// TrackerList is the set of tracker domains targeted in auto-block mode.  It
// starts with the built-in list and can be extended, never edited by users.
// It is safe for concurrent use.
type TrackerList struct {
	mu      sync.RWMutex
	domains map[string]struct{}
}

// NewTrackerList returns a list preloaded with the built-in domains.
func NewTrackerList() *TrackerList {
	l := &TrackerList{domains: make(map[string]struct{})}

	parsed, err := ParseList(bytes.NewReader(builtinTrackers))
	if err != nil {
		// Should never happen, since the list is embedded.
		panic(fmt.Errorf("rules: parsing built-in tracker list: %w", err))
	}
	l.Add(parsed...)

	return l
}

// Add inserts the normalized domains and returns how many were new.
func (l *TrackerList) Add(domains ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, d := range domain.NormalizeDomains(domains) {
		if _, ok := l.domains[d]; ok {
			continue
		}
		l.domains[d] = struct{}{}
		added++
	}
	return added
}

// Load parses r and adds its domains.
func (l *TrackerList) Load(r io.Reader) (int, error) {
	parsed, err := ParseList(r)
	if err != nil {
		return 0, err
	}
	return l.Add(parsed...), nil
}

// LoadFile adds the domains listed in the file at path.
func (l *TrackerList) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("rules: open tracker list: %w", err)
	}
	defer f.Close()

	return l.Load(f)
}

// Domains returns the sorted domain list.
func (l *TrackerList) Domains() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.domains))
	for d := range l.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (l *TrackerList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.domains)
}

// Refresh downloads every source and adds the domains found.  A failing
// source is logged and skipped.  It returns the number of new domains.
func (l *TrackerList) Refresh(ctx context.Context, sources []string) (int, error) {
	added := 0
	for _, src := range sources {
		parsed, err := fetchList(ctx, src)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return added, err
			}
			log.Warn("Tracker list fetch failed", "source", src, "error", err)
			continue
		}
		added += l.Add(parsed...)
	}
	return added, nil
}

// RunRefreshLoop refreshes the list from sources every interval until ctx is
// done, calling onChange whenever new domains were added.
func (l *TrackerList) RunRefreshLoop(ctx context.Context, sources []string, interval time.Duration, onChange func(ctx context.Context)) {
	if len(sources) == 0 {
		return
	}
	if interval <= 0 {
		interval = defaultRefresh
	}

	refresh := func(reason string) {
		added, err := l.Refresh(ctx, sources)
		if err != nil {
			log.Info("Tracker list refresh canceled", "reason", reason)
			return
		}
		log.Info("Tracker list refresh completed", "reason", reason, "new_domains", added, "total", l.Len())
		if added > 0 && onChange != nil {
			onChange(ctx)
		}
	}

	refresh("startup")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh("scheduled")
		}
	}
}

func fetchList(ctx context.Context, source string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return ParseList(io.LimitReader(resp.Body, maxListBytes))
}

// ParseList reads a domain list.  Plain domains, hosts-file lines
// ("0.0.0.0 domain") and adblock network rules of the form "||domain^" are
// accepted; comments, exception rules, cosmetic rules and invalid hostnames
// are skipped.
func ParseList(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024), 1024*1024)

	var out []string
	for scanner.Scan() {
		candidate := parseListLine(strings.TrimSpace(scanner.Text()))
		if candidate == "" {
			continue
		}
		host, err := domain.ValidateDomain(candidate)
		if err != nil {
			continue
		}
		out = append(out, host)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("rules: scanning list: %w", err)
	}

	return domain.NormalizeDomains(out), nil
}

func parseListLine(line string) string {
	switch {
	case line == "":
		return ""
	case strings.HasPrefix(line, "!"), strings.HasPrefix(line, "#"), strings.HasPrefix(line, "["):
		return ""
	case strings.HasPrefix(line, "*"):
		return ""
	case strings.HasPrefix(line, "@@"):
		return ""
	case strings.Contains(line, "##"), strings.Contains(line, "#@#"), strings.Contains(line, "#%#"):
		return ""
	case strings.HasPrefix(line, "||"):
		return extractAdblockDomain(line)
	}

	fields := strings.Fields(line)
	switch len(fields) {
	case 1:
		return fields[0]
	default:
		// hosts-file format: "<address> <domain> [# comment]"
		if fields[0] == "0.0.0.0" || fields[0] == "127.0.0.1" || fields[0] == "::" || fields[0] == "::1" {
			if fields[1] == "localhost" || strings.HasPrefix(fields[1], "#") {
				return ""
			}
			return fields[1]
		}
		return ""
	}
}

// extractAdblockDomain returns the domain of a "||domain^" rule, or an empty
// string if the rule has a path or is a regex.
func extractAdblockDomain(line string) string {
	rest := line[2:]
	caret := strings.Index(rest, "^")
	if caret <= 0 {
		return ""
	}
	host := rest[:caret]
	if strings.ContainsAny(host, "/*") {
		return ""
	}
	if dollar := strings.Index(host, "$"); dollar > 0 {
		host = host[:dollar]
	}
	return host
}
