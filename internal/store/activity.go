package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"cookiewarden/internal/domain"
)

// DefaultActivityLimit caps the number of activity entries kept.
const DefaultActivityLimit = 500

// Activity actions.
const (
	ActionBlacklisted = "blacklisted"
	ActionWhitelisted = "whitelisted"
	ActionUnblocked   = "unblocked"
	ActionUnlisted    = "removed from whitelist"
)

// ActivityLog is the user-visible log of blocking actions, oldest entry
// first.  It lives in the local scope under LogsKey.
type ActivityLog struct {
	mu    sync.Mutex
	local LocalScope
	limit int
	now   func() time.Time
}

func NewActivityLog(local LocalScope, limit int) *ActivityLog {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	return &ActivityLog{
		local: local,
		limit: limit,
		now:   time.Now,
	}
}

// Append records action for host, dropping the oldest entries beyond the
// limit.
func (l *ActivityLog) Append(ctx context.Context, host, action string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read(ctx)
	if err != nil {
		return err
	}

	entries = append(entries, domain.ActivityEntry{
		Domain:    host,
		Action:    action,
		Timestamp: l.now().UTC(),
	})
	if over := len(entries) - l.limit; over > 0 {
		entries = entries[over:]
	}

	return l.write(ctx, entries)
}

// Entries returns the stored entries.
func (l *ActivityLog) Entries(ctx context.Context) ([]domain.ActivityEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.read(ctx)
}

// Clear drops every entry.
func (l *ActivityLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.write(ctx, []domain.ActivityEntry{})
}

func (l *ActivityLog) read(ctx context.Context) ([]domain.ActivityEntry, error) {
	raw, err := l.local.Get(ctx, LogsKey)
	if errors.Is(err, ErrNotFound) {
		return []domain.ActivityEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read activity log: %w", err)
	}

	entries := []domain.ActivityEntry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("store: decode activity log: %w", err)
	}
	return entries, nil
}

func (l *ActivityLog) write(ctx context.Context, entries []domain.ActivityEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("store: encode activity log: %w", err)
	}
	if err := l.local.Set(ctx, LogsKey, payload); err != nil {
		return fmt.Errorf("store: write activity log: %w", err)
	}
	return nil
}
