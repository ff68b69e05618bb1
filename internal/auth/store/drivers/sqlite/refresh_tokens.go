package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/boofmebel/auth/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

const refreshTokenColumns = `id, user_id, token_hash, device_info, issued_at, revoked_at`

func scanRefreshToken(row interface{ Scan(...any) error }) (domain.RefreshToken, error) {
	var (
		t          domain.RefreshToken
		deviceInfo sql.NullString
		revokedAt  sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &deviceInfo, &t.IssuedAt, &revokedAt); err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.DeviceInfo = mapNullStringPtr(deviceInfo)
	t.IssuedAt = t.IssuedAt.UTC()
	t.RevokedAt = mapNullTimePtr(revokedAt)
	return t, nil
}

func (r *refreshTokensRepo) Save(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES (?, ?, ?, ?, ?, NULL)`,
		t.ID, t.UserID, t.TokenHash, mapOptionalString(t.DeviceInfo), t.IssuedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) FindActive(ctx context.Context, hash string) (domain.RefreshToken, error) {
	return scanRefreshToken(r.q.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ? AND revoked_at IS NULL`,
		hash,
	))
}

// Revoke is a conditional update, so of two racing callers only one sees a
// changed row.
func (r *refreshTokensRepo) Revoke(ctx context.Context, hash string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL`,
		time.Now().UTC(), hash,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) ListActiveForUser(ctx context.Context, userID int64) ([]domain.RefreshToken, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens
		 WHERE user_id = ? AND revoked_at IS NULL
		 ORDER BY issued_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
