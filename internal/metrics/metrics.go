// Package metrics contains Prometheus implementations of the metrics
// interfaces declared by the cookiewarden components.
package metrics

import (
	"errors"
	"fmt"

	"github.com/AdguardTeam/golibs/container"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace is the namespace of every cookiewarden metric.
const Namespace = "cookiewarden"

// Subsystems.
const (
	subsystemCoordinator = "coordinator"
	subsystemRules       = "rules"
	subsystemRouter      = "router"
	subsystemBrowser     = "browser"
	subsystemSync        = "sync"
)

// registerAll registers every collector in reg and joins the errors.
func registerAll(reg prometheus.Registerer, collectors container.KeyValues[string, prometheus.Collector]) (err error) {
	var errs []error
	for _, c := range collectors {
		err = reg.Register(c.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("registering metrics %q: %w", c.Key, err))
		}
	}

	return errors.Join(errs...)
}

// boolString returns "1" for true and "0" for false.
func boolString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
