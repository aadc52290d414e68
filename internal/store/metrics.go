package store

import "context"

// SyncMetrics is an interface used for collection of the cloud sync
// statistics.
type SyncMetrics interface {
	// ObservePush records a push attempt.  pushed is false when the push was
	// skipped because nothing changed.
	ObservePush(ctx context.Context, pushed bool, err error)

	// ObservePull records a pull attempt.
	ObservePull(ctx context.Context, err error)
}

// EmptySyncMetrics is the implementation of the [SyncMetrics] interface that
// does nothing.
type EmptySyncMetrics struct{}

// type check
var _ SyncMetrics = EmptySyncMetrics{}

// ObservePush implements the [SyncMetrics] interface for EmptySyncMetrics.
func (EmptySyncMetrics) ObservePush(_ context.Context, _ bool, _ error) {}

// ObservePull implements the [SyncMetrics] interface for EmptySyncMetrics.
func (EmptySyncMetrics) ObservePull(_ context.Context, _ error) {}
