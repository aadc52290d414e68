package metrics

import (
	"context"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Sync is the Prometheus-based implementation of the [store.SyncMetrics]
// interface.
type Sync struct {
	pushes *prometheus.CounterVec
	pulls  *prometheus.CounterVec
}

// NewSync registers the cloud sync metrics in reg and returns a properly
// initialized [*Sync].
func NewSync(namespace string, reg prometheus.Registerer) (m *Sync, err error) {
	const (
		pushes = "pushes_total"
		pulls  = "pulls_total"
	)

	m = &Sync{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      pushes,
			Subsystem: subsystemSync,
			Namespace: namespace,
			Help:      "The number of push attempts to the cloud scope by result.",
		}, []string{"result"}),
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:      pulls,
			Subsystem: subsystemSync,
			Namespace: namespace,
			Help:      "The number of pulls from the cloud scope, success=1 or success=0.",
		}, []string{"success"}),
	}

	err = registerAll(reg, container.KeyValues[string, prometheus.Collector]{{
		Key:   pushes,
		Value: m.pushes,
	}, {
		Key:   pulls,
		Value: m.pulls,
	}})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// ObservePush implements the [store.SyncMetrics] interface for *Sync.
func (m *Sync) ObservePush(_ context.Context, pushed bool, err error) {
	result := "skipped"
	switch {
	case err != nil:
		result = "error"
	case pushed:
		result = "pushed"
	}
	m.pushes.WithLabelValues(result).Inc()
}

// ObservePull implements the [store.SyncMetrics] interface for *Sync.
func (m *Sync) ObservePull(_ context.Context, err error) {
	m.pulls.WithLabelValues(boolString(err == nil)).Inc()
}
