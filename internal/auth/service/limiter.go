package service

import (
	"context"
	"time"

	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/pkg/ratelimit"
)

// StoreLimiter keeps rate limit windows in the database so that every
// instance sharing it enforces one budget per key. Each hit is one
// transaction holding the window row.
type StoreLimiter struct {
	Store store.Store
	Now   func() time.Time
}

var _ ratelimit.Limiter = (*StoreLimiter)(nil)

func (l *StoreLimiter) Allow(ctx context.Context, key string, rule ratelimit.Rule) (ratelimit.Decision, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	var d ratelimit.Decision
	err := l.Store.WithTx(ctx, func(tx store.Tx) error {
		at := now().UTC()
		w, err := tx.RateWindows().Lock(ctx, key, at)
		if err != nil {
			return err
		}

		next, decision := ratelimit.Decide(w, true, at, rule)
		d = decision
		if !d.Allowed {
			return nil
		}
		return tx.RateWindows().Put(ctx, key, next)
	})
	if err != nil {
		return ratelimit.Decision{}, err
	}
	return d, nil
}
