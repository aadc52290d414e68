package metrics

import (
	"context"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Rules is the Prometheus-based implementation of the [rules.Metrics]
// interface.
type Rules struct {
	installed prometheus.Gauge
	syncs     *prometheus.CounterVec
}

// NewRules registers the rule synchronizer metrics in reg and returns a
// properly initialized [*Rules].
func NewRules(namespace string, reg prometheus.Registerer) (m *Rules, err error) {
	const (
		installed = "installed"
		syncs     = "syncs_total"
	)

	m = &Rules{
		installed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:      installed,
			Subsystem: subsystemRules,
			Namespace: namespace,
			Help:      "The number of dynamic blocking rules currently installed.",
		}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      syncs,
			Subsystem: subsystemRules,
			Namespace: namespace,
			Help:      "The number of rule set replacements, success=1 or success=0.",
		}, []string{"success"}),
	}

	err = registerAll(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   installed,
		Value: m.installed,
	}, {
		Key:   syncs,
		Value: m.syncs,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObserveSync implements the [rules.Metrics] interface for *Rules.
func (m *Rules) ObserveSync(_ context.Context, installed int, err error) {
	m.syncs.WithLabelValues(boolString(err == nil)).Inc()
	if err == nil {
		m.installed.Set(float64(installed))
	}
}
