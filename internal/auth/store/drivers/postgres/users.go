package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/internal/auth/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, hashed_password, full_name, is_active, is_superuser, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return domain.User{}, wrap(err, "USER_GET_BY_ID_FAILED", "user_id", id)
	}
	return u, nil
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return domain.User{}, wrap(err, "USER_GET_BY_EMAIL_FAILED")
	}
	return u, nil
}

func (r *usersRepo) Create(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, full_name, is_superuser)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		nu.Email, nu.PasswordHash, nu.FullName, nu.IsSuperuser,
	))
	if err != nil {
		return domain.User{}, wrap(err, "USER_CREATE_FAILED", "operation", "insert user")
	}
	return u, nil
}

func (r *usersRepo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return wrap(err, "USER_SET_ACTIVE_FAILED", "user_id", id)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET hashed_password = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return wrap(err, "USER_UPDATE_PASSWORD_FAILED", "user_id", id)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
