package coordinator

import "context"

// Metrics is an interface used for collection of the coordinator statistics.
type Metrics interface {
	// IncrementOutcome counts a handled cookie write.
	IncrementOutcome(ctx context.Context, outcome string)

	// IncrementRemovalFailures counts removals that had no effect.
	IncrementRemovalFailures(ctx context.Context)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// IncrementOutcome implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementOutcome(_ context.Context, _ string) {}

// IncrementRemovalFailures implements the [Metrics] interface for
// EmptyMetrics.
func (EmptyMetrics) IncrementRemovalFailures(_ context.Context) {}
