package router

import "context"

// Metrics is an interface used for collection of the router statistics.
type Metrics interface {
	// IncrementMessages counts a handled message.  Unknown types are
	// reported as "unknown".
	IncrementMessages(ctx context.Context, msgType string, success bool)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// IncrementMessages implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementMessages(_ context.Context, _ string, _ bool) {}
