// Package ratelimit implements fixed window request counting per client and
// path.
//
// A window opens on the first request for a key and admits Limit requests.
// Once it is older than Window the next request opens a fresh one. Rejected
// requests do not count against the window.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

// Rule caps a key at Limit requests per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

func (r Rule) Valid() bool {
	return r.Limit > 0 && r.Window > 0
}

// Window is the counter state for one key.
type Window struct {
	Start time.Time
	Count int
}

// Decision is the outcome of one request against a rule.
type Decision struct {
	Allowed    bool
	Limit      int
	Window     time.Duration
	Remaining  int
	RetryAfter time.Duration
}

// Err returns ErrRateLimitExceeded for a rejected decision.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrRateLimitExceeded
}

// Limiter records a request for key under rule.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}

// Decide applies one request at now to the window state w. ok is false when
// the key has no window yet. The returned window is what must be stored; on
// rejection it equals w.
func Decide(w Window, ok bool, now time.Time, rule Rule) (Window, Decision) {
	d := Decision{Limit: rule.Limit, Window: rule.Window}

	if !ok || now.Sub(w.Start) > rule.Window {
		w = Window{Start: now}
	}

	if w.Count >= rule.Limit {
		// The window resets strictly after Start+Window.
		d.RetryAfter = max(w.Start.Add(rule.Window).Sub(now), time.Nanosecond)
		return w, d
	}

	w.Count++
	d.Allowed = true
	d.Remaining = rule.Limit - w.Count
	return w, d
}

// Key joins a client identity and a path into a limiter key.
func Key(client, path string) string {
	return client + "|" + path
}
