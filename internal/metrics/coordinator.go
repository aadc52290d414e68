package metrics

import (
	"context"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Coordinator is the Prometheus-based implementation of the
// [coordinator.Metrics] interface.
type Coordinator struct {
	// cookies counts observed cookie writes by outcome.
	cookies *prometheus.CounterVec

	// removalFailures counts cookie removals that failed on every scheme.
	removalFailures prometheus.Counter
}

// NewCoordinator registers the coordinator metrics in reg and returns a
// properly initialized [*Coordinator].
func NewCoordinator(namespace string, reg prometheus.Registerer) (m *Coordinator, err error) {
	const (
		cookies         = "cookies_total"
		removalFailures = "removal_failures_total"
	)

	m = &Coordinator{
		cookies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      cookies,
			Subsystem: subsystemCoordinator,
			Namespace: namespace,
			Help:      "The number of observed cookie writes by outcome.",
		}, []string{"outcome"}),
		removalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:      removalFailures,
			Subsystem: subsystemCoordinator,
			Namespace: namespace,
			Help:      "The number of cookie removals that had no effect.",
		}),
	}

	err = registerAll(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   cookies,
		Value: m.cookies,
	}, {
		Key:   removalFailures,
		Value: m.removalFailures,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// IncrementOutcome implements the [coordinator.Metrics] interface for
// *Coordinator.
func (m *Coordinator) IncrementOutcome(_ context.Context, outcome string) {
	m.cookies.WithLabelValues(outcome).Inc()
}

// IncrementRemovalFailures implements the [coordinator.Metrics] interface for
// *Coordinator.
func (m *Coordinator) IncrementRemovalFailures(_ context.Context) {
	m.removalFailures.Inc()
}
