package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boofmebel/auth/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

const refreshTokenColumns = `id, user_id, token_hash, device_info, issued_at, revoked_at`

func scanRefreshToken(row pgx.Row) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.DeviceInfo, &t.IssuedAt, &t.RevokedAt)
	return t, err
}

func (r *refreshTokensRepo) Save(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, device_info, issued_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.TokenHash, t.DeviceInfo, t.IssuedAt,
	)
	if err != nil {
		return wrap(err, "REFRESH_TOKEN_SAVE_FAILED", "user_id", t.UserID)
	}
	return nil
}

func (r *refreshTokensRepo) FindActive(ctx context.Context, hash string) (domain.RefreshToken, error) {
	t, err := scanRefreshToken(r.q.QueryRow(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash,
	))
	if err != nil {
		return domain.RefreshToken{}, wrap(err, "REFRESH_TOKEN_FIND_FAILED")
	}
	return t, nil
}

// Revoke is a conditional update. Under READ COMMITTED a second concurrent
// caller blocks on the row lock, re-evaluates the predicate and matches
// nothing.
func (r *refreshTokensRepo) Revoke(ctx context.Context, hash string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash,
	)
	if err != nil {
		return false, wrap(err, "REFRESH_TOKEN_REVOKE_FAILED")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL`,
		userID,
	)
	if err != nil {
		return 0, wrap(err, "REFRESH_TOKEN_REVOKE_ALL_FAILED", "user_id", userID)
	}
	return tag.RowsAffected(), nil
}

func (r *refreshTokensRepo) ListActiveForUser(ctx context.Context, userID int64) ([]domain.RefreshToken, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+refreshTokenColumns+`
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked_at IS NULL
		ORDER BY issued_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, wrap(err, "REFRESH_TOKEN_LIST_FAILED", "user_id", userID)
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		t, err := scanRefreshToken(rows)
		if err != nil {
			return nil, wrap(err, "REFRESH_TOKEN_SCAN_FAILED", "user_id", userID)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "REFRESH_TOKEN_LIST_FAILED", "user_id", userID)
	}
	return out, nil
}
