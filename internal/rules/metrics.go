package rules

import "context"

// Metrics is an interface used for collection of the rule synchronizer
// statistics.
type Metrics interface {
	// ObserveSync records a rule set replacement.  installed is the size of
	// the new set and is meaningful only when err is nil.
	ObserveSync(ctx context.Context, installed int, err error)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// ObserveSync implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) ObserveSync(_ context.Context, _ int, _ error) {}
