package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"cookiewarden/internal/coordinator"
	"cookiewarden/internal/domain"
)

// CookieStore is a coordinator.CookieStore over the browser's cookie jar.
type CookieStore struct {
	browser *rod.Browser
}

// type check
var _ coordinator.CookieStore = (*CookieStore)(nil)

func NewCookieStore(b *rod.Browser) *CookieStore {
	return &CookieStore{browser: b}
}

// All implements the coordinator.CookieStore interface for *CookieStore.
func (s *CookieStore) All(ctx context.Context) ([]domain.CookieObservation, error) {
	raw, err := s.browser.Context(ctx).GetCookies()
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies: %w", err)
	}

	out := make([]domain.CookieObservation, 0, len(raw))
	for _, c := range raw {
		out = append(out, toObservation(c))
	}
	return out, nil
}

// Overwrite implements the coordinator.CookieStore interface for
// *CookieStore.
func (s *CookieStore) Overwrite(ctx context.Context, cookie domain.CookieObservation, value string, expires time.Time) error {
	param := toParam(cookie)
	param.Value = value
	param.Expires = proto.TimeSinceEpoch(expires.Unix())

	if err := s.browser.Context(ctx).SetCookies([]*proto.NetworkCookieParam{param}); err != nil {
		return fmt.Errorf("browser: overwrite cookie %q: %w", cookie.Name, err)
	}
	return nil
}

// Remove implements the coordinator.CookieStore interface for *CookieStore.
// It reports false when no cookie named name is visible under rawURL.
func (s *CookieStore) Remove(ctx context.Context, rawURL, name, _ string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("browser: parse cookie url: %w", err)
	}

	b := s.browser.Context(ctx)

	existing, err := b.GetCookies()
	if err != nil {
		return false, fmt.Errorf("browser: get cookies: %w", err)
	}

	target := findCookie(existing, u, name)
	if target == nil {
		return false, nil
	}
	if target.Secure && u.Scheme != "https" {
		return false, nil
	}

	if page := firstPage(b); page != nil {
		err = proto.NetworkDeleteCookies{
			Name:   name,
			Domain: target.Domain,
			Path:   target.Path,
		}.Call(page)
		if err == nil {
			return true, nil
		}
	}

	expired := &proto.NetworkCookieParam{
		Name:    target.Name,
		Value:   "",
		Domain:  target.Domain,
		Path:    target.Path,
		Secure:  target.Secure,
		Expires: proto.TimeSinceEpoch(time.Unix(0, 0).Unix()),
	}
	if err := b.SetCookies([]*proto.NetworkCookieParam{expired}); err != nil {
		return false, fmt.Errorf("browser: delete cookie %q: %w", name, err)
	}
	return true, nil
}

func firstPage(b *rod.Browser) *rod.Page {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return nil
	}
	return pages.First()
}

// findCookie returns the cookie named name whose domain and path match u
// exactly.
func findCookie(cookies []*proto.NetworkCookie, u *url.URL, name string) *proto.NetworkCookie {
	host := strings.ToLower(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, c := range cookies {
		if c.Name != name {
			continue
		}
		if domain.NormalizeDomain(c.Domain) != host {
			continue
		}
		if c.Path != path {
			continue
		}
		return c
	}
	return nil
}

func toObservation(c *proto.NetworkCookie) domain.CookieObservation {
	obs := domain.CookieObservation{
		Domain:   c.Domain,
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		HostOnly: !strings.HasPrefix(c.Domain, "."),
		SameSite: domain.ParseSameSite(string(c.SameSite)),
	}
	if !c.Session && c.Expires > 0 {
		ts := time.Unix(int64(c.Expires), 0).UTC()
		obs.Expires = &ts
	}
	return obs
}

// toParam builds a cookie parameter addressing the same cookie.  Host-only
// cookies are addressed by URL so they stay host-only.
func toParam(c domain.CookieObservation) *proto.NetworkCookieParam {
	p := &proto.NetworkCookieParam{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
	}

	if c.HostOnly {
		scheme := "http"
		if c.Secure {
			scheme = "https"
		}
		p.URL = c.URL(scheme)
	} else {
		p.Domain = c.Domain
	}

	switch c.SameSite {
	case domain.SameSiteStrict:
		p.SameSite = proto.NetworkCookieSameSiteStrict
	case domain.SameSiteLax:
		p.SameSite = proto.NetworkCookieSameSiteLax
	case domain.SameSiteNone:
		p.SameSite = proto.NetworkCookieSameSiteNone
	}

	if c.Expires != nil {
		p.Expires = proto.TimeSinceEpoch(c.Expires.Unix())
	}
	return p
}
