package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"cookiewarden/internal/domain"
)

const (
	DefaultSyncInterval = 5 * time.Minute
	shutdownPushTimeout = 10 * time.Second
	pushKey             = "push"
)

// SyncStatus describes the cloud synchronization state.
type SyncStatus struct {
	Enabled   bool       `json:"enabled"`
	LastPush  *time.Time `json:"lastPush,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Devices   int        `json:"devices"`
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithSyncInterval sets the period between pushes.
func WithSyncInterval(interval time.Duration) SyncerOption {
	return func(s *Syncer) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithPullHook registers fn to run after lists from another device were
// merged into the local state.
func WithPullHook(fn func(ctx context.Context, state domain.ExtensionState)) SyncerOption {
	return func(s *Syncer) {
		s.onPull = fn
	}
}

// WithSyncMetrics sets the metrics sink.
func WithSyncMetrics(m SyncMetrics) SyncerOption {
	return func(s *Syncer) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Syncer pushes the local state to the cloud scope on an interval and on
// shutdown, and pulls remote list changes when the cloud announces them.
type Syncer struct {
	store    *Store
	cloud    CloudScope
	interval time.Duration
	onPull   func(ctx context.Context, state domain.ExtensionState)
	metrics  SyncMetrics

	group singleflight.Group

	mu         sync.Mutex
	lastPushed []byte
	lastPush   time.Time
	lastErr    error
}

func NewSyncer(st *Store, cloud CloudScope, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		store:    st,
		cloud:    cloud,
		interval: DefaultSyncInterval,
		metrics:  EmptySyncMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run pushes every interval until ctx is done, then pushes once more.
func (s *Syncer) Run(ctx context.Context) {
	if s.cloud == nil {
		return
	}

	if watcher, ok := s.cloud.(CloudWatcher); ok {
		go watcher.WatchUpdates(ctx, func(ctx context.Context) {
			if err := s.Pull(ctx); err != nil {
				log.Warn("Cloud pull failed", "error", err)
			}
		})
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPushTimeout)
			if _, err := s.Push(shutdownCtx); err != nil {
				log.Warn("Final cloud push failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			if _, err := s.Push(ctx); err != nil {
				log.Warn("Cloud push failed, retrying next interval", "error", err)
			}
		}
	}
}

// Push merges the local state with the cloud copy and writes the result to
// the cloud scope.  It reports false when nothing changed since the last
// push.  Concurrent calls share one push.
func (s *Syncer) Push(ctx context.Context) (bool, error) {
	if s.cloud == nil {
		return false, nil
	}

	v, err, _ := s.group.Do(pushKey, func() (any, error) {
		pushed, err := s.push(ctx)
		s.metrics.ObservePush(ctx, pushed, err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return pushed, err
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Syncer) push(ctx context.Context) (bool, error) {
	merged := s.store.Snapshot()

	remote, found, err := readCloudState(ctx, s.cloud)
	if err != nil {
		return false, err
	}
	if found {
		merged = Merge(merged, remote)
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return false, fmt.Errorf("store: encode cloud state: %w", err)
	}

	s.mu.Lock()
	unchanged := bytes.Equal(payload, s.lastPushed)
	s.mu.Unlock()
	if unchanged {
		log.Debug("Cloud state unchanged, skipping push")
		return false, nil
	}

	if err := s.cloud.SetAll(ctx, map[string][]byte{StateKey: payload}); err != nil {
		return false, fmt.Errorf("store: write cloud: %w", err)
	}

	s.mu.Lock()
	s.lastPushed = payload
	s.lastPush = time.Now().UTC()
	s.mu.Unlock()

	log.Debug("Pushed state to cloud", "bytes", len(payload))
	return true, nil
}

// Pull merges the cloud lists into the local state.  The pull hook runs
// only when the local lists changed.
func (s *Syncer) Pull(ctx context.Context) error {
	if s.cloud == nil {
		return nil
	}

	err := s.pull(ctx)
	s.metrics.ObservePull(ctx, err)
	return err
}

func (s *Syncer) pull(ctx context.Context) error {
	remote, found, err := readCloudState(ctx, s.cloud)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	changed := false
	next, err := s.store.Update(ctx, func(st *domain.ExtensionState) error {
		merged := Merge(*st, remote)
		changed = !sameList(merged.Whitelist, st.Whitelist) || !sameList(merged.Blacklist, st.Blacklist)
		*st = merged
		return nil
	})
	if err != nil {
		return err
	}

	if changed {
		log.Info("Pulled list changes from cloud",
			"whitelist", len(next.Whitelist),
			"blacklist", len(next.Blacklist),
		)
		if s.onPull != nil {
			s.onPull(ctx, next)
		}
	}
	return nil
}

// Status reports the last push and, when the cloud scope tracks devices,
// how many are live.
func (s *Syncer) Status(ctx context.Context) SyncStatus {
	status := SyncStatus{Enabled: s.cloud != nil}

	s.mu.Lock()
	if !s.lastPush.IsZero() {
		ts := s.lastPush
		status.LastPush = &ts
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	s.mu.Unlock()

	if counter, ok := s.cloud.(DeviceCounter); ok {
		devices, err := counter.LiveDevices(ctx)
		if err != nil {
			log.Warn("Counting live devices failed", "error", err)
		} else {
			status.Devices = devices
		}
	}

	return status
}

func sameList(a, b domain.StringList) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
