// Package router dispatches UI messages to state store operations.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"cookiewarden/internal/domain"
	"cookiewarden/internal/store"
)

var (
	// ErrUnknownType is returned for unrecognized message types.
	ErrUnknownType = errors.New("unknown message type")

	// ErrUnknownList is returned when IMPORT_LIST names neither list.
	ErrUnknownList = errors.New("unknown list")

	errNoActivityLog = errors.New("activity log unavailable")
)

// RuleSyncer rebuilds the blocking rules.  current must be called while the
// syncer holds its lock so that concurrent syncs cannot install a stale state.
type RuleSyncer interface {
	SyncCurrent(ctx context.Context, current func() domain.ExtensionState) ([]domain.BlockRule, error)
}

// ActivityLog is the user-visible activity log.
type ActivityLog interface {
	Append(ctx context.Context, host, action string) error
	Entries(ctx context.Context) ([]domain.ActivityEntry, error)
	Clear(ctx context.Context) error
}

// SyncStatusReporter reports the cloud sync status.
type SyncStatusReporter interface {
	Status(ctx context.Context) store.SyncStatus
}

// Config is the configuration structure for a *Router.
type Config struct {
	// Store holds the state.  It must not be nil.
	Store *store.Store

	// Rules is resynced after every rule-affecting change.  It must not be
	// nil.
	Rules RuleSyncer

	// Activity, if not nil, backs GET_LOGS and CLEAR_LOGS and receives list
	// changes.
	Activity ActivityLog

	// Sync, if not nil, backs SYNC_STATUS.
	Sync SyncStatusReporter

	// Metrics, if not nil, counts handled messages.
	Metrics Metrics
}

// Router dispatches messages.  It is safe for concurrent use.
type Router struct {
	store    *store.Store
	rules    RuleSyncer
	activity ActivityLog
	sync     SyncStatusReporter
	metrics  Metrics
}

// New returns a properly initialized *Router.
func New(c *Config) *Router {
	metrics := c.Metrics
	if metrics == nil {
		metrics = EmptyMetrics{}
	}

	return &Router{
		store:    c.Store,
		rules:    c.Rules,
		activity: c.Activity,
		sync:     c.Sync,
		metrics:  metrics,
	}
}

// Handle dispatches req and never panics.  Failures are reported with
// Success set to false.
func (r *Router) Handle(ctx context.Context, req Request) (resp Response) {
	label := req.Type
	defer func() {
		if p := recover(); p != nil {
			log.Error("Message handler panicked", "type", req.Type, "panic", p)
			resp = failure(fmt.Errorf("internal error handling %s", req.Type))
		}
		r.metrics.IncrementMessages(ctx, label, resp.Success)
	}()

	switch req.Type {
	case TypeGetState:
		return withState(r.store.Snapshot())
	case TypeUpdateState:
		return r.updateState(ctx, req.State)
	case TypeBlockSite:
		return r.moveSite(ctx, req.Domain, ListBlacklist)
	case TypeWhitelistSite:
		return r.moveSite(ctx, req.Domain, ListWhitelist)
	case TypeUnblockSite:
		return r.removeSite(ctx, req.Domain, ListBlacklist)
	case TypeRemoveWhitelistSite:
		return r.removeSite(ctx, req.Domain, ListWhitelist)
	case TypeImportList:
		return r.importList(ctx, req.List, req.Domains)
	case TypeLogBannerRemoved:
		return r.logBannerRemoved(ctx, req.Count)
	case TypeGetLogs:
		return r.getLogs(ctx)
	case TypeClearLogs:
		return r.clearLogs(ctx)
	case TypeSyncStatus:
		return r.syncStatus(ctx)
	default:
		label = "unknown"
		return failure(fmt.Errorf("%w: %q", ErrUnknownType, req.Type))
	}
}

func (r *Router) updateState(ctx context.Context, patch *domain.StatePatch) Response {
	if patch == nil {
		return withState(r.store.Snapshot())
	}

	next, err := r.store.Update(ctx, func(s *domain.ExtensionState) error {
		patch.Apply(s)
		return nil
	})
	if err != nil {
		return failure(err)
	}

	if patch.AffectsRules() {
		r.resync(ctx)
	}
	return withState(next)
}

// moveSite adds host to list and removes it from the other list.
func (r *Router) moveSite(ctx context.Context, raw, list string) Response {
	host, err := domain.ValidateDomain(raw)
	if err != nil {
		return failure(err)
	}

	next, err := r.store.Update(ctx, func(s *domain.ExtensionState) error {
		addToList(s, list, host)
		return nil
	})
	if err != nil {
		return failure(err)
	}

	action := store.ActionBlacklisted
	if list == ListWhitelist {
		action = store.ActionWhitelisted
	}
	r.logActivity(ctx, host, action)
	r.resync(ctx)

	return withStats(next)
}

func (r *Router) removeSite(ctx context.Context, raw, list string) Response {
	host, err := domain.ValidateDomain(raw)
	if err != nil {
		return failure(err)
	}

	next, err := r.store.Update(ctx, func(s *domain.ExtensionState) error {
		if list == ListBlacklist {
			s.Blacklist = s.Blacklist.Without(host)
		} else {
			s.Whitelist = s.Whitelist.Without(host)
		}
		return nil
	})
	if err != nil {
		return failure(err)
	}

	action := store.ActionUnblocked
	if list == ListWhitelist {
		action = store.ActionUnlisted
	}
	r.logActivity(ctx, host, action)
	r.resync(ctx)

	return withStats(next)
}

// importList adds every valid domain to list.  Invalid entries are skipped.
func (r *Router) importList(ctx context.Context, list string, raw []string) Response {
	if list != ListWhitelist && list != ListBlacklist {
		return failure(fmt.Errorf("%w: %q", ErrUnknownList, list))
	}

	hosts := make([]string, 0, len(raw))
	for _, entry := range raw {
		host, err := domain.ValidateDomain(entry)
		if err != nil {
			log.Debug("Skipping invalid import entry", "entry", entry, "error", err)
			continue
		}
		hosts = append(hosts, host)
	}

	imported := 0
	next, err := r.store.Update(ctx, func(s *domain.ExtensionState) error {
		imported = 0
		for _, host := range hosts {
			target := s.Whitelist
			if list == ListBlacklist {
				target = s.Blacklist
			}
			if !target.Contains(host) {
				imported++
			}
			addToList(s, list, host)
		}
		return nil
	})
	if err != nil {
		return failure(err)
	}

	log.Info("Imported domains", "list", list, "imported", imported, "skipped", len(raw)-len(hosts))
	if imported > 0 {
		r.resync(ctx)
	}

	resp := withStats(next)
	resp.Imported = &imported
	return resp
}

// logBannerRemoved adds count banners, counting one when count is not
// positive.
func (r *Router) logBannerRemoved(ctx context.Context, count int) Response {
	if count <= 0 {
		count = 1
	}

	next, err := r.store.Update(ctx, func(s *domain.ExtensionState) error {
		s.BannersRemovedCount += uint64(count)
		return nil
	})
	if err != nil {
		return failure(err)
	}
	return withStats(next)
}

func (r *Router) getLogs(ctx context.Context) Response {
	if r.activity == nil {
		return failure(errNoActivityLog)
	}

	entries, err := r.activity.Entries(ctx)
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Logs: entries}
}

func (r *Router) clearLogs(ctx context.Context) Response {
	if r.activity == nil {
		return failure(errNoActivityLog)
	}

	if err := r.activity.Clear(ctx); err != nil {
		return failure(err)
	}
	return Response{Success: true, Logs: []domain.ActivityEntry{}}
}

func (r *Router) syncStatus(ctx context.Context) Response {
	status := store.SyncStatus{}
	if r.sync != nil {
		status = r.sync.Status(ctx)
	}
	return Response{Success: true, Sync: &status}
}

// resync logs failures; the state change stands and rules converge on the
// next sync.
func (r *Router) resync(ctx context.Context) {
	if _, err := r.rules.SyncCurrent(ctx, r.store.Snapshot); err != nil {
		log.Error("Rule resync failed", "error", err)
	}
}

func (r *Router) logActivity(ctx context.Context, host, action string) {
	if r.activity == nil {
		return
	}
	if err := r.activity.Append(ctx, host, action); err != nil {
		log.Warn("Failed to append activity entry", "domain", host, "error", err)
	}
}

func addToList(s *domain.ExtensionState, list, host string) {
	if list == ListBlacklist {
		s.Blacklist = s.Blacklist.With(host)
		s.Whitelist = s.Whitelist.Without(host)
		return
	}
	s.Whitelist = s.Whitelist.With(host)
	s.Blacklist = s.Blacklist.Without(host)
}
