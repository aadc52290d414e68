package browser

import "context"

// Metrics is an interface that is used for the collection of the browser
// bridge statistics.
type Metrics interface {
	// IncrementBlockedRequests increments the number of requests failed by a
	// blocking rule.
	IncrementBlockedRequests(ctx context.Context, resourceType string)

	// IncrementCookieEvents increments the number of cookie changes seen.
	IncrementCookieEvents(ctx context.Context, removed bool)
}

// EmptyMetrics is the implementation of the [Metrics] interface that does
// nothing.
type EmptyMetrics struct{}

// type check
var _ Metrics = EmptyMetrics{}

// IncrementBlockedRequests implements the [Metrics] interface for
// EmptyMetrics.
func (EmptyMetrics) IncrementBlockedRequests(_ context.Context, _ string) {}

// IncrementCookieEvents implements the [Metrics] interface for EmptyMetrics.
func (EmptyMetrics) IncrementCookieEvents(_ context.Context, _ bool) {}
