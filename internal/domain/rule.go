package domain

import "strings"

// ResourceType is a declarativeNetRequest resource type.
type ResourceType string

const (
	ResourceMainFrame ResourceType = "main_frame"
	ResourceSubFrame  ResourceType = "sub_frame"
	ResourceScript    ResourceType = "script"
	ResourceImage     ResourceType = "image"
	ResourceXHR       ResourceType = "xmlhttprequest"
	ResourceWebSocket ResourceType = "websocket"
)

// RuleActionBlock is the only action the rule compiler emits.
const RuleActionBlock = "block"

// BlockRule is a dynamic network blocking rule in the declarativeNetRequest
// shape.
type BlockRule struct {
	ID        int           `json:"id"`
	Priority  int           `json:"priority"`
	Action    RuleAction    `json:"action"`
	Condition RuleCondition `json:"condition"`
}

// RuleAction is what happens to a matched request.
type RuleAction struct {
	Type string `json:"type"`
}

// RuleCondition selects the requests a rule applies to.
type RuleCondition struct {
	URLFilter     string         `json:"urlFilter,omitempty"`
	ResourceTypes []ResourceType `json:"resourceTypes,omitempty"`
}

// DomainURLFilter returns the URL filter matching domain and all of its
// subdomains over any scheme.
func DomainURLFilter(domain string) string {
	return "||" + domain + "^"
}

// TargetDomain extracts the domain from a rule built with DomainURLFilter.
// It returns an empty string for other filters.
func (r BlockRule) TargetDomain() string {
	f := r.Condition.URLFilter
	if !strings.HasPrefix(f, "||") || !strings.HasSuffix(f, "^") {
		return ""
	}
	return f[2 : len(f)-1]
}

// AppliesTo reports whether the rule covers resource type t.
func (r BlockRule) AppliesTo(t ResourceType) bool {
	for _, rt := range r.Condition.ResourceTypes {
		if rt == t {
			return true
		}
	}
	return false
}
