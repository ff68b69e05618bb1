package postgres

import (
	"context"
	"time"

	"github.com/boofmebel/auth/pkg/ratelimit"
)

type rateWindowsRepo struct {
	q querier
}

// Lock must run inside a transaction for the row lock to mean anything.
func (r *rateWindowsRepo) Lock(ctx context.Context, key string, now time.Time) (ratelimit.Window, error) {
	if _, err := r.q.Exec(ctx, `
		INSERT INTO rate_windows (bucket_key, window_start_us, count)
		VALUES ($1, $2, 0)
		ON CONFLICT (bucket_key) DO NOTHING`,
		key, now.UnixMicro(),
	); err != nil {
		return ratelimit.Window{}, wrap(err, "RATE_WINDOW_INSERT_FAILED")
	}

	var (
		startUS int64
		count   int32
	)
	err := r.q.QueryRow(ctx, `
		SELECT window_start_us, count FROM rate_windows
		WHERE bucket_key = $1
		FOR UPDATE`,
		key,
	).Scan(&startUS, &count)
	if err != nil {
		return ratelimit.Window{}, wrap(err, "RATE_WINDOW_LOCK_FAILED")
	}
	return ratelimit.Window{Start: time.UnixMicro(startUS).UTC(), Count: int(count)}, nil
}

func (r *rateWindowsRepo) Put(ctx context.Context, key string, w ratelimit.Window) error {
	_, err := r.q.Exec(ctx, `
		UPDATE rate_windows SET window_start_us = $2, count = $3
		WHERE bucket_key = $1`,
		key, w.Start.UnixMicro(), w.Count,
	)
	if err != nil {
		return wrap(err, "RATE_WINDOW_PUT_FAILED")
	}
	return nil
}

func (r *rateWindowsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM rate_windows WHERE window_start_us < $1`, cutoff.UnixMicro())
	if err != nil {
		return 0, wrap(err, "RATE_WINDOW_SWEEP_FAILED")
	}
	return tag.RowsAffected(), nil
}
