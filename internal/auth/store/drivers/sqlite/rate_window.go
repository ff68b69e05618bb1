package sqlite

import (
	"context"
	"time"

	"github.com/boofmebel/auth/pkg/ratelimit"
)

type rateWindowsRepo struct {
	q querier
}

// Lock relies on the single connection pool for exclusivity: only one
// transaction can be open at a time.
func (r *rateWindowsRepo) Lock(ctx context.Context, key string, now time.Time) (ratelimit.Window, error) {
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO rate_windows (bucket_key, window_start_us, count) VALUES (?, ?, 0)
		 ON CONFLICT (bucket_key) DO NOTHING`,
		key, now.UnixMicro(),
	); err != nil {
		return ratelimit.Window{}, err
	}

	var (
		startUS int64
		w       ratelimit.Window
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT window_start_us, count FROM rate_windows WHERE bucket_key = ?`, key,
	).Scan(&startUS, &w.Count)
	if err != nil {
		return ratelimit.Window{}, mapNotFound(err)
	}
	w.Start = time.UnixMicro(startUS).UTC()
	return w, nil
}

func (r *rateWindowsRepo) Put(ctx context.Context, key string, w ratelimit.Window) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE rate_windows SET window_start_us = ?, count = ? WHERE bucket_key = ?`,
		w.Start.UnixMicro(), w.Count, key,
	)
	return err
}

func (r *rateWindowsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM rate_windows WHERE window_start_us < ?`, cutoff.UnixMicro())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
