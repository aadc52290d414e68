package browser

import (
	"context"
	"fmt"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"cookiewarden/internal/domain"
)

// RequestMatcher decides whether a request is blocked.
type RequestMatcher interface {
	Match(host string, t domain.ResourceType) (domain.BlockRule, bool)
}

// Enforcer fails browser requests matched by the installed blocking rules.
type Enforcer struct {
	browser *rod.Browser
	matcher RequestMatcher
	metrics Metrics
}

func NewEnforcer(b *rod.Browser, matcher RequestMatcher, metrics Metrics) *Enforcer {
	if metrics == nil {
		metrics = EmptyMetrics{}
	}
	return &Enforcer{browser: b, matcher: matcher, metrics: metrics}
}

// Run intercepts requests until ctx is canceled.
func (e *Enforcer) Run(ctx context.Context) error {
	router := e.browser.HijackRequests()

	err := router.Add("*", "", func(h *rod.Hijack) {
		rt, rule, blocked := e.decide(h.Request.URL(), h.Request.Type())
		if !blocked {
			h.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}

		h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		e.metrics.IncrementBlockedRequests(ctx, string(rt))
		log.Debug("Blocked request", "url", h.Request.URL().String(), "rule_id", rule.ID)
	})
	if err != nil {
		return fmt.Errorf("browser: hijack: %w", err)
	}

	go router.Run()

	<-ctx.Done()
	if err := router.Stop(); err != nil {
		log.Warn("Stopping request interception failed", "error", err)
	}
	return nil
}

func (e *Enforcer) decide(u *url.URL, t proto.NetworkResourceType) (domain.ResourceType, domain.BlockRule, bool) {
	rt, ok := resourceType(t)
	if !ok || u == nil {
		return rt, domain.BlockRule{}, false
	}
	rule, blocked := e.matcher.Match(u.Hostname(), rt)
	return rt, rule, blocked
}

// resourceType maps CDP resource types onto rule resource types.  Types no
// rule can cover report false.
func resourceType(t proto.NetworkResourceType) (domain.ResourceType, bool) {
	switch t {
	case proto.NetworkResourceTypeDocument:
		return domain.ResourceMainFrame, true
	case proto.NetworkResourceTypeScript:
		return domain.ResourceScript, true
	case proto.NetworkResourceTypeImage:
		return domain.ResourceImage, true
	case proto.NetworkResourceTypeXHR, proto.NetworkResourceTypeFetch:
		return domain.ResourceXHR, true
	case proto.NetworkResourceTypeWebSocket:
		return domain.ResourceWebSocket, true
	default:
		return "", false
	}
}
