package metrics

import (
	"context"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Router is the Prometheus-based implementation of the [router.Metrics]
// interface.
type Router struct {
	messages *prometheus.CounterVec
}

// NewRouter registers the message router metrics in reg and returns a
// properly initialized [*Router].
func NewRouter(namespace string, reg prometheus.Registerer) (m *Router, err error) {
	const messages = "messages_total"

	m = &Router{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      messages,
			Subsystem: subsystemRouter,
			Namespace: namespace,
			Help:      "The number of handled messages by type and success.",
		}, []string{"type", "success"}),
	}

	err = registerAll(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   messages,
		Value: m.messages,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncrementMessages implements the [router.Metrics] interface for *Router.
func (m *Router) IncrementMessages(_ context.Context, msgType string, success bool) {
	m.messages.WithLabelValues(msgType, boolString(success)).Inc()
}
