// Package store owns the extension state, persists it to the local scope and
// reconciles it with the cloud scope shared by a user's devices.
package store

import (
	"context"
	"errors"
)

// Keys used in the local scope.
const (
	StateKey = "state"
	LogsKey  = "logs"
)

// ErrNotFound is returned by a LocalScope when the key is absent.
var ErrNotFound = errors.New("not found")

// LocalScope is the fast, device-local key/value store.
type LocalScope interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// CloudScope is the slower key/value store shared across devices.  It is
// read and written as a whole.
type CloudScope interface {
	GetAll(ctx context.Context) (map[string][]byte, error)
	SetAll(ctx context.Context, values map[string][]byte) error
}

// CloudWatcher is implemented by cloud scopes that announce writes made by
// other devices.  WatchUpdates blocks until ctx is done.
type CloudWatcher interface {
	WatchUpdates(ctx context.Context, onUpdate func(ctx context.Context))
}

// DeviceCounter is implemented by cloud scopes that track which devices are
// currently syncing.
type DeviceCounter interface {
	LiveDevices(ctx context.Context) (int, error)
}
