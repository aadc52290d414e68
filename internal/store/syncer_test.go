package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"cookiewarden/internal/domain"
)

func cloudState(t *testing.T, c *memCloud) domain.ExtensionState {
	t.Helper()

	c.mu.Lock()
	raw := c.data[StateKey]
	c.mu.Unlock()

	var s domain.ExtensionState
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func TestPushMergesAndSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	cloud := newMemCloud()
	remote := domain.DefaultState()
	remote.Blacklist = domain.StringList{"remote.com"}
	raw, _ := json.Marshal(remote)
	cloud.data[StateKey] = raw

	st := New(newMemLocal(), nil)
	_, err := st.Update(ctx, func(s *domain.ExtensionState) error {
		s.Whitelist = domain.StringList{"local.com"}
		s.BlockedCount = 9
		return nil
	})
	require.NoError(t, err)

	s := NewSyncer(st, cloud)

	pushed, err := s.Push(ctx)
	require.NoError(t, err)
	require.True(t, pushed)

	got := cloudState(t, cloud)
	require.Equal(t, domain.StringList{"local.com"}, got.Whitelist)
	require.Equal(t, domain.StringList{"remote.com"}, got.Blacklist)
	require.Equal(t, uint64(9), got.BlockedCount)

	pushed, err = s.Push(ctx)
	require.NoError(t, err)
	require.False(t, pushed, "second push without changes must be skipped")
	require.Equal(t, 1, cloud.writes)

	status := s.Status(ctx)
	require.True(t, status.Enabled)
	require.NotNil(t, status.LastPush)
	require.Empty(t, status.LastError)
}

func TestPushReportsCloudFailure(t *testing.T) {
	ctx := context.Background()
	cloud := newMemCloud()
	cloud.failGet = true

	s := NewSyncer(New(newMemLocal(), nil), cloud)
	_, err := s.Push(ctx)
	require.Error(t, err)
	require.NotEmpty(t, s.Status(ctx).LastError)
}

func TestPullMergesListsAndRunsHook(t *testing.T) {
	ctx := context.Background()
	cloud := newMemCloud()
	remote := domain.DefaultState()
	remote.Blacklist = domain.StringList{"ads.com"}
	remote.BlockedCount = 1000
	remote.Active = false
	raw, _ := json.Marshal(remote)
	cloud.data[StateKey] = raw

	st := New(newMemLocal(), nil)

	var hooked []domain.ExtensionState
	s := NewSyncer(st, cloud, WithPullHook(func(_ context.Context, state domain.ExtensionState) {
		hooked = append(hooked, state)
	}))

	require.NoError(t, s.Pull(ctx))
	snap := st.Snapshot()
	require.Equal(t, domain.StringList{"ads.com"}, snap.Blacklist)
	require.Zero(t, snap.BlockedCount)
	require.True(t, snap.Active)
	require.Len(t, hooked, 1)

	require.NoError(t, s.Pull(ctx))
	require.Len(t, hooked, 1, "hook must not run when lists did not change")
}

func TestSyncerWithoutCloud(t *testing.T) {
	ctx := context.Background()
	s := NewSyncer(New(newMemLocal(), nil), nil)

	pushed, err := s.Push(ctx)
	require.NoError(t, err)
	require.False(t, pushed)
	require.NoError(t, s.Pull(ctx))
	require.False(t, s.Status(ctx).Enabled)
}

func TestStatusCountsDevices(t *testing.T) {
	cloud := newMemCloud()
	cloud.devices = 3

	status := NewSyncer(New(newMemLocal(), nil), cloud).Status(context.Background())
	require.Equal(t, 3, status.Devices)
	require.Nil(t, status.LastPush)
}
