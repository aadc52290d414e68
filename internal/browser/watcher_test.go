package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"cookiewarden/internal/domain"
)

func obs(d, name, value string) domain.CookieObservation {
	return domain.CookieObservation{Domain: d, Name: name, Value: value, Path: "/"}
}

func TestDiff(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	later := exp.Add(time.Hour)

	withExpiry := func(c domain.CookieObservation, ts *time.Time) domain.CookieObservation {
		c.Expires = ts
		return c
	}

	testCases := []struct {
		name string
		prev []domain.CookieObservation
		next []domain.CookieObservation
		want []domain.CookieChange
	}{{
		name: "no_change",
		prev: []domain.CookieObservation{obs("a.com", "x", "1")},
		next: []domain.CookieObservation{obs("a.com", "x", "1")},
		want: []domain.CookieChange{},
	}, {
		name: "new_cookie",
		prev: nil,
		next: []domain.CookieObservation{obs("a.com", "x", "1")},
		want: []domain.CookieChange{{Cookie: obs("a.com", "x", "1")}},
	}, {
		name: "value_changed",
		prev: []domain.CookieObservation{obs("a.com", "x", "1")},
		next: []domain.CookieObservation{obs("a.com", "x", "2")},
		want: []domain.CookieChange{{Cookie: obs("a.com", "x", "2")}},
	}, {
		name: "expiry_changed",
		prev: []domain.CookieObservation{withExpiry(obs("a.com", "x", "1"), &exp)},
		next: []domain.CookieObservation{withExpiry(obs("a.com", "x", "1"), &later)},
		want: []domain.CookieChange{{Cookie: withExpiry(obs("a.com", "x", "1"), &later)}},
	}, {
		name: "removed",
		prev: []domain.CookieObservation{obs("a.com", "x", "1")},
		next: nil,
		want: []domain.CookieChange{{Cookie: obs("a.com", "x", "1"), Removed: true, Cause: CauseExpired}},
	}, {
		name: "writes_before_removals",
		prev: []domain.CookieObservation{obs("a.com", "x", "1")},
		next: []domain.CookieObservation{obs("b.com", "y", "1"), obs(".a.com", "x", "1")},
		want: []domain.CookieChange{
			{Cookie: obs(".a.com", "x", "1")},
			{Cookie: obs("b.com", "y", "1")},
			{Cookie: obs("a.com", "x", "1"), Removed: true, Cause: CauseExpired},
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Diff(Index(tc.prev), Index(tc.next))
			require.Empty(t, cmp.Diff(tc.want, got))
		})
	}
}

type listerFunc func(ctx context.Context) ([]domain.CookieObservation, error)

func (f listerFunc) All(ctx context.Context) ([]domain.CookieObservation, error) {
	return f(ctx)
}

func TestWatcher_Run(t *testing.T) {
	var (
		mu    sync.Mutex
		jar   = []domain.CookieObservation{obs("a.com", "baseline", "1")}
		seen  []domain.CookieChange
		ready = make(chan struct{}, 1)
	)

	lister := listerFunc(func(context.Context) ([]domain.CookieObservation, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]domain.CookieObservation(nil), jar...), nil
	})

	handler := func(_ context.Context, change domain.CookieChange) {
		mu.Lock()
		seen = append(seen, change)
		mu.Unlock()
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(lister, handler, 10*time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to take its baseline.
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	jar = append(jar, obs("tracker.com", "_ga", "x"))
	mu.Unlock()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	require.Equal(t, "_ga", seen[0].Cookie.Name)
	require.False(t, seen[0].Removed)
}
