package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boofmebel/auth/pkg/ratelimit"
)

var loginRule = ratelimit.Rule{Limit: 5, Window: time.Minute}

func TestDecide(t *testing.T) {
	t0 := time.Unix(1700000000, 0)

	tests := []struct {
		name        string
		window      ratelimit.Window
		exists      bool
		now         time.Time
		wantAllowed bool
		wantWindow  ratelimit.Window
	}{
		{
			name:        "no window opens one",
			now:         t0,
			wantAllowed: true,
			wantWindow:  ratelimit.Window{Start: t0, Count: 1},
		},
		{
			name:        "under limit increments",
			window:      ratelimit.Window{Start: t0, Count: 3},
			exists:      true,
			now:         t0.Add(10 * time.Second),
			wantAllowed: true,
			wantWindow:  ratelimit.Window{Start: t0, Count: 4},
		},
		{
			name:        "at limit rejects without counting",
			window:      ratelimit.Window{Start: t0, Count: 5},
			exists:      true,
			now:         t0.Add(30 * time.Second),
			wantAllowed: false,
			wantWindow:  ratelimit.Window{Start: t0, Count: 5},
		},
		{
			name:        "exactly one window later is still the same window",
			window:      ratelimit.Window{Start: t0, Count: 5},
			exists:      true,
			now:         t0.Add(time.Minute),
			wantAllowed: false,
			wantWindow:  ratelimit.Window{Start: t0, Count: 5},
		},
		{
			name:        "expired window resets",
			window:      ratelimit.Window{Start: t0, Count: 5},
			exists:      true,
			now:         t0.Add(time.Minute + time.Millisecond),
			wantAllowed: true,
			wantWindow:  ratelimit.Window{Start: t0.Add(time.Minute + time.Millisecond), Count: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, d := ratelimit.Decide(tt.window, tt.exists, tt.now, loginRule)
			require.Equal(t, tt.wantAllowed, d.Allowed)
			require.Equal(t, tt.wantWindow, w)
			require.Equal(t, loginRule.Limit, d.Limit)
			require.Equal(t, loginRule.Window, d.Window)
			if !d.Allowed {
				require.ErrorIs(t, d.Err(), ratelimit.ErrRateLimitExceeded)
				require.Positive(t, d.RetryAfter)
			} else {
				require.NoError(t, d.Err())
			}
		})
	}
}

func TestDecide_RetryAfterAtWindowEdge(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	full := ratelimit.Window{Start: t0, Count: loginRule.Limit}

	_, d := ratelimit.Decide(full, true, t0.Add(loginRule.Window), loginRule)
	require.False(t, d.Allowed)
	require.Equal(t, time.Nanosecond, d.RetryAfter)

	_, d = ratelimit.Decide(full, true, t0.Add(loginRule.Window+d.RetryAfter), loginRule)
	require.True(t, d.Allowed)
}

func TestMemory_LimitPlusOne(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := ratelimit.NewMemory().WithClock(func() time.Time { return now })
	key := ratelimit.Key("203.0.113.9", "/auth/login")

	for i := range loginRule.Limit {
		d, err := m.Allow(context.Background(), key, loginRule)
		require.NoError(t, err)
		require.True(t, d.Allowed, "request %d", i+1)
		require.Equal(t, loginRule.Limit-i-1, d.Remaining)
	}

	d, err := m.Allow(context.Background(), key, loginRule)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, time.Minute, d.RetryAfter)

	// Rejections do not extend the window.
	now = now.Add(time.Minute + time.Second)
	d, err = m.Allow(context.Background(), key, loginRule)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, loginRule.Limit-1, d.Remaining)
}

func TestMemory_KeysAreIndependent(t *testing.T) {
	m := ratelimit.NewMemory()
	rule := ratelimit.Rule{Limit: 1, Window: time.Minute}
	ctx := context.Background()

	for _, key := range []string{
		ratelimit.Key("10.0.0.1", "/auth/login"),
		ratelimit.Key("10.0.0.2", "/auth/login"),
		ratelimit.Key("10.0.0.1", "/auth/refresh"),
	} {
		d, err := m.Allow(ctx, key, rule)
		require.NoError(t, err)
		require.True(t, d.Allowed, key)
	}
}

func TestMemory_ConcurrentNeverExceedsLimit(t *testing.T) {
	m := ratelimit.NewMemory()
	rule := ratelimit.Rule{Limit: 10, Window: time.Hour}
	key := ratelimit.Key("198.51.100.1", "/auth/refresh")

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := m.Allow(context.Background(), key, rule)
			require.NoError(t, err)
			if d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, rule.Limit, allowed.Load())
}

func TestMemory_Sweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := ratelimit.NewMemory().WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := m.Allow(ctx, "old", loginRule)
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	_, err = m.Allow(ctx, "fresh", loginRule)
	require.NoError(t, err)
	require.Equal(t, 2, m.Len())

	removed := m.Sweep(now.Add(-5 * time.Minute))
	require.Equal(t, 1, removed)
	require.Equal(t, 1, m.Len())
}
