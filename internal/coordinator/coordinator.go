// Package coordinator decides, for every observed cookie write, whether the
// cookie stays or is removed, and records the outcome in the state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"

	"cookiewarden/internal/classifier"
	"cookiewarden/internal/domain"
	"cookiewarden/internal/store"
)

const (
	// DefaultCooldown is the suppression window after a removal.
	DefaultCooldown = 10 * time.Second

	// neutralValue replaces the value of a cookie before it is deleted.
	neutralValue = "deleted"
)

// Outcomes of a cookie observation.
const (
	OutcomeIgnored    = "ignored"
	OutcomeAllowed    = "allowed"
	OutcomeBlocked    = "blocked"
	OutcomeSuppressed = "suppressed"
	OutcomeFailed     = "failed"
)

// CookieStore is the browser cookie jar.
type CookieStore interface {
	// Remove deletes the cookie name visible under url and reports whether a
	// cookie was actually removed.
	Remove(ctx context.Context, url, name, storeID string) (bool, error)

	// Overwrite sets the cookie's value and expiration in place.
	Overwrite(ctx context.Context, cookie domain.CookieObservation, value string, expires time.Time) error

	// All enumerates every cookie in the jar.
	All(ctx context.Context) ([]domain.CookieObservation, error)
}

// Classifier decides whether a cookie is essential and which rule decided.
type Classifier interface {
	Classify(ctx context.Context, cookie domain.CookieObservation) classifier.Verdict
}

// ActivityRecorder receives one entry per removed cookie.
type ActivityRecorder interface {
	Append(ctx context.Context, host, action string) error
}

// Config is the configuration structure for a *Coordinator.
type Config struct {
	// Store holds the state.  It must not be nil.
	Store *store.Store

	// Cookies is the cookie jar to remove cookies from.  It must not be nil.
	Cookies CookieStore

	// Classifier decides essentiality.  It must not be nil.
	Classifier Classifier

	// Activity, if not nil, receives an entry for each removal.
	Activity ActivityRecorder

	// Metrics, if not nil, collects outcome statistics.
	Metrics Metrics

	// Cooldown is the suppression window.  DefaultCooldown is used when it
	// is not positive.
	Cooldown time.Duration

	// NeutralizeBeforeDelete overwrites the cookie with an expired sentinel
	// before deleting it.
	NeutralizeBeforeDelete bool
}

// Coordinator handles cookie-write notifications.  It is safe for
// concurrent use.
type Coordinator struct {
	store      *store.Store
	cookies    CookieStore
	classifier Classifier
	activity   ActivityRecorder
	metrics    Metrics
	recent     *cache.Cache
	neutralize bool
}

// New returns a properly initialized *Coordinator.
func New(c *Config) *Coordinator {
	cooldown := c.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	metrics := c.Metrics
	if metrics == nil {
		metrics = EmptyMetrics{}
	}

	return &Coordinator{
		store:      c.Store,
		cookies:    c.Cookies,
		classifier: c.Classifier,
		activity:   c.Activity,
		metrics:    metrics,
		recent:     cache.New(cooldown, 2*cooldown),
		neutralize: c.NeutralizeBeforeDelete,
	}
}

// OnCookieObserved handles one cookie-write notification.  Failures are
// logged, never returned.
func (c *Coordinator) OnCookieObserved(ctx context.Context, change domain.CookieChange) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Cookie handler panicked, cookie left alone",
				"domain", change.Cookie.Domain,
				"name", change.Cookie.Name,
				"panic", r,
			)
		}
	}()

	c.handle(ctx, change)
}

// Sweep runs every cookie currently in the jar through the same decision as
// a new write and returns the number of cookies removed.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	cookies, err := c.cookies.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("coordinator: sweep: %w", err)
	}

	blocked := 0
	for _, cookie := range cookies {
		if ctx.Err() != nil {
			return blocked, ctx.Err()
		}
		if c.handle(ctx, domain.CookieChange{Cookie: cookie, Cause: "sweep"}) == OutcomeBlocked {
			blocked++
		}
	}

	log.Info("Startup cookie sweep completed", "cookies", len(cookies), "removed", blocked)
	return blocked, nil
}

func (c *Coordinator) handle(ctx context.Context, change domain.CookieChange) (outcome string) {
	defer func() {
		if outcome != OutcomeIgnored {
			c.metrics.IncrementOutcome(ctx, outcome)
		}
	}()

	if change.Removed {
		return OutcomeIgnored
	}

	state := c.store.Snapshot()
	if !state.Active {
		return OutcomeIgnored
	}

	cookie := change.Cookie
	host := cookie.NormalizedDomain()
	if host == "" {
		return OutcomeIgnored
	}

	if state.IsWhitelisted(host) || c.isEssential(ctx, cookie) {
		c.recordAllowed(ctx, host, cookie.Name)
		return OutcomeAllowed
	}

	if !state.AutoBlockEnabled && !state.IsBlacklisted(host) {
		c.recordAllowed(ctx, host, cookie.Name)
		return OutcomeAllowed
	}

	key := suppressionKey(host, cookie.Name)
	if err := c.recent.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		log.Debug("Cookie recently blocked, skipping", "domain", host, "name", cookie.Name)
		return OutcomeSuppressed
	}

	removed, err := c.remove(ctx, cookie)
	if !removed {
		c.recent.Delete(key)
		c.metrics.IncrementRemovalFailures(ctx)
		log.Warn("Cookie removal had no effect", "domain", host, "name", cookie.Name, "error", err)
		return OutcomeFailed
	}
	if err != nil {
		log.Debug("Cookie removed with partial errors", "domain", host, "name", cookie.Name, "error", err)
	}

	c.recordBlocked(ctx, host, cookie.Name)
	return OutcomeBlocked
}

// isEssential fails open: a panicking classifier keeps the cookie.
func (c *Coordinator) isEssential(ctx context.Context, cookie domain.CookieObservation) (essential bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Cookie classification failed, allowing cookie", "name", cookie.Name, "panic", r)
			essential = true
		}
	}()

	v := c.classifier.Classify(ctx, cookie)
	log.Debug("Cookie classified",
		"domain", cookie.Domain,
		"name", cookie.Name,
		"essential", v.Essential,
		"reason", v.Reason,
	)
	return v.Essential
}

// remove deletes cookie under both schemes.  It reports true if the cookie
// was neutralized or removed under at least one scheme.
func (c *Coordinator) remove(ctx context.Context, cookie domain.CookieObservation) (bool, error) {
	var errs []error
	removed := false

	if c.neutralize {
		err := c.cookies.Overwrite(ctx, cookie, neutralValue, time.Unix(0, 0))
		if err != nil {
			errs = append(errs, fmt.Errorf("neutralize: %w", err))
		} else {
			removed = true
		}
	}

	for _, scheme := range []string{"https", "http"} {
		ok, err := c.cookies.Remove(ctx, cookie.URL(scheme), cookie.Name, cookie.StoreID)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove over %s: %w", scheme, err))
			continue
		}
		removed = removed || ok
	}

	return removed, errors.Join(errs...)
}

// recordAllowed increments the latest state, not the snapshot read when the
// event arrived.
func (c *Coordinator) recordAllowed(ctx context.Context, host, name string) {
	_, err := c.store.Update(ctx, func(s *domain.ExtensionState) error {
		s.AllowedCount++
		s.AllowedCookieTally.Record(host, name)
		return nil
	})
	if err != nil {
		log.Error("Failed to record allowed cookie", "domain", host, "name", name, "error", err)
	}
}

func (c *Coordinator) recordBlocked(ctx context.Context, host, name string) {
	_, err := c.store.Update(ctx, func(s *domain.ExtensionState) error {
		s.BlockedCount++
		s.BlockedCookieTally.Record(host, name)
		return nil
	})
	if err != nil {
		log.Error("Failed to record blocked cookie", "domain", host, "name", name, "error", err)
	}

	if c.activity == nil {
		return
	}
	if err := c.activity.Append(ctx, host, "Removed cookie: "+name); err != nil {
		log.Warn("Failed to append activity entry", "domain", host, "error", err)
	}
}

func suppressionKey(host, name string) string {
	return host + "|" + name
}
