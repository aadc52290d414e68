// Package classifier decides whether an observed cookie is essential for
// basic site functionality.
package classifier

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/publicsuffix"

	"cookiewarden/internal/domain"
)

// Reason names the rule that produced a verdict.
type Reason string

const (
	ReasonTrackerName     Reason = "tracker_name"
	ReasonEssentialName   Reason = "essential_name"
	ReasonCrossSite       Reason = "cross_site"
	ReasonSecureHostOnly  Reason = "secure_httponly_hostonly"
	ReasonSameSiteHost    Reason = "samesite_hostonly"
	ReasonHTTPOnlyHost    Reason = "httponly_hostonly"
	ReasonSessionCookie   Reason = "session_cookie"
	ReasonDefault         Reason = "default"
)

// Verdict is the outcome of a classification.
type Verdict struct {
	Essential bool
	Reason    Reason
}

// OriginResolver reports the host of the page the user is currently looking
// at.  ok is false when no such page is known.
type OriginResolver interface {
	ActiveOrigin(ctx context.Context) (host string, ok bool)
}

// Classifier implements the essential/non-essential decision.  It is safe
// for concurrent use.
type Classifier struct {
	trackerKeywords   []string
	essentialKeywords []string
	resolver          OriginResolver
	siteMatch         bool
}

type Option func(*Classifier)

// WithOriginResolver enables the cross-site check.
func WithOriginResolver(r OriginResolver) Option {
	return func(c *Classifier) {
		c.resolver = r
	}
}

// WithRegistrableDomainMatch treats a cookie as same-site when it shares the
// registrable domain (eTLD+1) of the active page, so sibling subdomains such
// as api.example.com and www.example.com are not cross-site.  Off by default.
func WithRegistrableDomainMatch() Option {
	return func(c *Classifier) {
		c.siteMatch = true
	}
}

// WithTrackerKeywords replaces the tracker keyword list.
func WithTrackerKeywords(keywords ...string) Option {
	return func(c *Classifier) {
		c.trackerKeywords = lowerAll(keywords)
	}
}

// WithEssentialKeywords replaces the essential keyword list.
func WithEssentialKeywords(keywords ...string) Option {
	return func(c *Classifier) {
		c.essentialKeywords = lowerAll(keywords)
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		trackerKeywords:   lowerAll(DefaultTrackerKeywords),
		essentialKeywords: lowerAll(DefaultEssentialKeywords),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsEssential reports whether cookie must be preserved.
func (c *Classifier) IsEssential(ctx context.Context, cookie domain.CookieObservation) bool {
	return c.Classify(ctx, cookie).Essential
}

// Classify applies the decision order and returns the first matching rule.
func (c *Classifier) Classify(ctx context.Context, cookie domain.CookieObservation) Verdict {
	name := strings.ToLower(cookie.Name)

	switch {
	case containsAny(name, c.trackerKeywords):
		return Verdict{Essential: false, Reason: ReasonTrackerName}
	case containsAny(name, c.essentialKeywords):
		return Verdict{Essential: true, Reason: ReasonEssentialName}
	case c.isCrossSite(ctx, cookie):
		return Verdict{Essential: false, Reason: ReasonCrossSite}
	case cookie.Secure && cookie.HostOnly && cookie.HTTPOnly:
		return Verdict{Essential: true, Reason: ReasonSecureHostOnly}
	case cookie.HostOnly && cookie.SameSite.IsRestrictive():
		return Verdict{Essential: true, Reason: ReasonSameSiteHost}
	case cookie.HTTPOnly && cookie.HostOnly:
		return Verdict{Essential: true, Reason: ReasonHTTPOnlyHost}
	case cookie.IsSession():
		return Verdict{Essential: true, Reason: ReasonSessionCookie}
	default:
		return Verdict{Essential: false, Reason: ReasonDefault}
	}
}

// isCrossSite is best effort: any failure to determine the active page
// yields false so the remaining heuristics decide.
func (c *Classifier) isCrossSite(ctx context.Context, cookie domain.CookieObservation) (crossSite bool) {
	if c.resolver == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Warn("origin resolver panicked", "panic", r)
			crossSite = false
		}
	}()

	host, ok := c.resolver.ActiveOrigin(ctx)
	if !ok {
		return false
	}

	pageHost := domain.NormalizeDomain(host)
	cookieHost := cookie.NormalizedDomain()
	if pageHost == "" || cookieHost == "" {
		return false
	}

	if domain.DomainsOverlap(cookieHost, pageHost) {
		return false
	}
	if c.siteMatch && sameRegistrableDomain(cookieHost, pageHost) {
		return false
	}

	return true
}

func sameRegistrableDomain(a, b string) bool {
	ra, err := publicsuffix.EffectiveTLDPlusOne(a)
	if err != nil {
		return false
	}
	rb, err := publicsuffix.EffectiveTLDPlusOne(b)
	if err != nil {
		return false
	}
	return ra == rb
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
