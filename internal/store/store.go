package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"cookiewarden/internal/domain"
)

// Store owns the single ExtensionState.  Reads return copies; every write
// goes through Update or Save, which persist to the local scope before the
// new state becomes visible.
type Store struct {
	local LocalScope
	cloud CloudScope

	// writeMu serializes read-modify-write cycles, stateMu guards state.
	writeMu sync.Mutex
	stateMu sync.RWMutex
	state   domain.ExtensionState
}

// New returns a store holding the default state.  cloud may be nil.
func New(local LocalScope, cloud CloudScope) *Store {
	return &Store{
		local: local,
		cloud: cloud,
		state: domain.DefaultState(),
	}
}

// Load reads the persisted state, merges the cloud copy when one is
// reachable, persists the result and makes it current.
func (s *Store) Load(ctx context.Context) (domain.ExtensionState, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state, err := s.readLocal(ctx)
	if err != nil {
		return domain.ExtensionState{}, err
	}

	if s.cloud != nil {
		remote, found, err := readCloudState(ctx, s.cloud)
		switch {
		case err != nil:
			log.Warn("Cloud state unavailable, using local state", "error", err)
		case found:
			state = Merge(state, remote)
			log.Info("Merged cloud state into local state",
				"whitelist", len(state.Whitelist),
				"blacklist", len(state.Blacklist),
			)
		}
	}

	if err := s.commit(ctx, state); err != nil {
		return domain.ExtensionState{}, err
	}
	return state.Clone(), nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() domain.ExtensionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the latest state and persists the result.
// If fn or persistence fails the current state is left unchanged and the
// error is returned.
func (s *Store) Update(ctx context.Context, fn func(*domain.ExtensionState) error) (domain.ExtensionState, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.Snapshot()
	if err := fn(&next); err != nil {
		return domain.ExtensionState{}, err
	}

	if err := s.commit(ctx, next); err != nil {
		return domain.ExtensionState{}, err
	}
	return next.Clone(), nil
}

// Save replaces the whole state.
func (s *Store) Save(ctx context.Context, state domain.ExtensionState) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.commit(ctx, state.Clone())
}

// commit enforces list disjointness, persists state and publishes it.  The
// caller must hold writeMu.
func (s *Store) commit(ctx context.Context, state domain.ExtensionState) error {
	enforceDisjoint(&state)

	if err := writeState(ctx, s.local, state); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	return nil
}

func (s *Store) readLocal(ctx context.Context) (domain.ExtensionState, error) {
	raw, err := s.local.Get(ctx, StateKey)
	if errors.Is(err, ErrNotFound) {
		return domain.DefaultState(), nil
	}
	if err != nil {
		return domain.ExtensionState{}, fmt.Errorf("store: load: %w", err)
	}

	state, err := decodeState(raw)
	if err != nil {
		return domain.ExtensionState{}, fmt.Errorf("store: load: %w", err)
	}
	return state, nil
}

func writeState(ctx context.Context, local LocalScope, state domain.ExtensionState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}
	if err := local.Set(ctx, StateKey, payload); err != nil {
		return fmt.Errorf("store: persist state: %w", err)
	}
	return nil
}

// decodeState unmarshals over the defaults so fields missing from older
// payloads keep their default values.
func decodeState(raw []byte) (domain.ExtensionState, error) {
	state := domain.DefaultState()
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.ExtensionState{}, fmt.Errorf("decode state: %w", err)
	}
	normalizeDecoded(&state)
	return state, nil
}

func normalizeDecoded(s *domain.ExtensionState) {
	s.Whitelist = domain.NormalizeDomains(s.Whitelist)
	s.Blacklist = domain.NormalizeDomains(s.Blacklist)
	if s.AllowedCookieTally == nil {
		s.AllowedCookieTally = domain.CookieTally{}
	}
	if s.BlockedCookieTally == nil {
		s.BlockedCookieTally = domain.CookieTally{}
	}
}

func readCloudState(ctx context.Context, cloud CloudScope) (domain.ExtensionState, bool, error) {
	values, err := cloud.GetAll(ctx)
	if err != nil {
		return domain.ExtensionState{}, false, fmt.Errorf("store: read cloud: %w", err)
	}

	raw, ok := values[StateKey]
	if !ok || len(raw) == 0 {
		return domain.ExtensionState{}, false, nil
	}

	state, err := decodeState(raw)
	if err != nil {
		return domain.ExtensionState{}, false, fmt.Errorf("store: read cloud: %w", err)
	}
	return state, true, nil
}
