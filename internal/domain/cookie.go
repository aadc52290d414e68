package domain

import (
	"strings"
	"time"
)

// SameSite is the same-site policy reported for a cookie.
type SameSite string

const (
	SameSiteUnspecified SameSite = ""
	SameSiteNone        SameSite = "no_restriction"
	SameSiteLax         SameSite = "lax"
	SameSiteStrict      SameSite = "strict"
)

// ParseSameSite maps the spellings used by browsers and CDP onto SameSite.
// Unknown values are treated as unspecified.
func ParseSameSite(raw string) SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return SameSiteStrict
	case "lax":
		return SameSiteLax
	case "none", "no_restriction":
		return SameSiteNone
	default:
		return SameSiteUnspecified
	}
}

// IsRestrictive reports whether the policy is Strict or Lax.
func (s SameSite) IsRestrictive() bool {
	return s == SameSiteStrict || s == SameSiteLax
}

// CookieObservation is a single observed cookie write.  Expires is nil for
// session cookies.
type CookieObservation struct {
	Domain   string     `json:"domain"`
	Name     string     `json:"name"`
	Value    string     `json:"value,omitempty"`
	Path     string     `json:"path"`
	Secure   bool       `json:"secure"`
	HTTPOnly bool       `json:"httpOnly"`
	HostOnly bool       `json:"hostOnly"`
	SameSite SameSite   `json:"sameSite,omitempty"`
	Expires  *time.Time `json:"expirationDate,omitempty"`
	StoreID  string     `json:"storeId,omitempty"`
}

// IsSession reports whether the cookie has no expiration.
func (c CookieObservation) IsSession() bool {
	return c.Expires == nil
}

// NormalizedDomain returns the cookie domain without a leading dot, lowercased.
func (c CookieObservation) NormalizedDomain() string {
	return NormalizeDomain(c.Domain)
}

// URL builds the URL under which the cookie is visible for scheme.
func (c CookieObservation) URL(scheme string) string {
	path := c.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return scheme + "://" + c.NormalizedDomain() + path
}

// CookieChange is a cookie-write notification.  Removed is set when the
// notification reports a deletion.
type CookieChange struct {
	Cookie  CookieObservation `json:"cookie"`
	Removed bool              `json:"removed"`
	Cause   string            `json:"cause,omitempty"`
}
