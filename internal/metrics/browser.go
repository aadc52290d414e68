package metrics

import (
	"context"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Browser is the Prometheus-based implementation of the [browser.Metrics]
// interface.
type Browser struct {
	blockedRequests *prometheus.CounterVec
	cookieEvents    *prometheus.CounterVec
}

// NewBrowser registers the browser bridge metrics in reg and returns a
// properly initialized [*Browser].
func NewBrowser(namespace string, reg prometheus.Registerer) (m *Browser, err error) {
	const (
		blockedRequests = "blocked_requests_total"
		cookieEvents    = "cookie_events_total"
	)

	m = &Browser{
		blockedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      blockedRequests,
			Subsystem: subsystemBrowser,
			Namespace: namespace,
			Help:      "The number of requests failed by a blocking rule, by resource type.",
		}, []string{"resource_type"}),
		cookieEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      cookieEvents,
			Subsystem: subsystemBrowser,
			Namespace: namespace,
			Help:      "The number of cookie changes detected in the browser, removed=1 for deletions.",
		}, []string{"removed"}),
	}

	err = registerAll(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   blockedRequests,
		Value: m.blockedRequests,
	}, {
		Key:   cookieEvents,
		Value: m.cookieEvents,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncrementBlockedRequests implements the [browser.Metrics] interface for
// *Browser.
func (m *Browser) IncrementBlockedRequests(_ context.Context, resourceType string) {
	m.blockedRequests.WithLabelValues(resourceType).Inc()
}

// IncrementCookieEvents implements the [browser.Metrics] interface for
// *Browser.
func (m *Browser) IncrementCookieEvents(_ context.Context, removed bool) {
	m.cookieEvents.WithLabelValues(boolString(removed)).Inc()
}
