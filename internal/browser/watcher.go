package browser

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"cookiewarden/internal/domain"
)

// DefaultPollInterval is how often the cookie jar is polled for changes.
const DefaultPollInterval = time.Second

// CauseExpired is reported for cookies that vanished from the jar.
const CauseExpired = "expired"

// CookieLister returns the current cookie jar.
type CookieLister interface {
	All(ctx context.Context) ([]domain.CookieObservation, error)
}

// ChangeHandler receives one cookie change.
type ChangeHandler func(ctx context.Context, change domain.CookieChange)

// Watcher turns periodic cookie jar snapshots into cookie change
// notifications.  CDP has no cookie-changed event, so writes are found by
// diffing snapshots.
type Watcher struct {
	cookies  CookieLister
	handler  ChangeHandler
	interval time.Duration
	metrics  Metrics
}

func NewWatcher(cookies CookieLister, handler ChangeHandler, interval time.Duration, metrics Metrics) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if metrics == nil {
		metrics = EmptyMetrics{}
	}
	return &Watcher{
		cookies:  cookies,
		handler:  handler,
		interval: interval,
		metrics:  metrics,
	}
}

// Run polls until ctx is canceled.  Cookies present at start are the
// baseline and do not produce notifications.
func (w *Watcher) Run(ctx context.Context) error {
	prev, err := w.snapshot(ctx)
	if err != nil {
		log.Warn("Initial cookie snapshot failed", "error", err)
		prev = map[string]domain.CookieObservation{}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		next, err := w.snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("Cookie snapshot failed", "error", err)
			continue
		}

		for _, change := range Diff(prev, next) {
			w.metrics.IncrementCookieEvents(ctx, change.Removed)
			w.handler(ctx, change)
		}
		prev = next
	}
}

func (w *Watcher) snapshot(ctx context.Context) (map[string]domain.CookieObservation, error) {
	all, err := w.cookies.All(ctx)
	if err != nil {
		return nil, err
	}
	return Index(all), nil
}

// Index keys cookies by domain, path and name.
func Index(cookies []domain.CookieObservation) map[string]domain.CookieObservation {
	out := make(map[string]domain.CookieObservation, len(cookies))
	for _, c := range cookies {
		out[cookieKey(c)] = c
	}
	return out
}

// Diff returns the changes turning prev into next: writes for new or
// modified cookies, removals for vanished ones.  The result is ordered by
// cookie key with writes before removals.
func Diff(prev, next map[string]domain.CookieObservation) []domain.CookieChange {
	var writes, removals []string

	for k, c := range next {
		old, ok := prev[k]
		if !ok || changed(old, c) {
			writes = append(writes, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			removals = append(removals, k)
		}
	}
	sort.Strings(writes)
	sort.Strings(removals)

	out := make([]domain.CookieChange, 0, len(writes)+len(removals))
	for _, k := range writes {
		out = append(out, domain.CookieChange{Cookie: next[k]})
	}
	for _, k := range removals {
		out = append(out, domain.CookieChange{Cookie: prev[k], Removed: true, Cause: CauseExpired})
	}
	return out
}

func changed(a, b domain.CookieObservation) bool {
	if a.Value != b.Value || a.Secure != b.Secure || a.HTTPOnly != b.HTTPOnly || a.SameSite != b.SameSite {
		return true
	}
	switch {
	case a.Expires == nil && b.Expires == nil:
		return false
	case a.Expires == nil || b.Expires == nil:
		return true
	default:
		return !a.Expires.Equal(*b.Expires)
	}
}

func cookieKey(c domain.CookieObservation) string {
	return c.Domain + "|" + c.Path + "|" + c.Name
}
