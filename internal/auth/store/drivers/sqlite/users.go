package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/internal/auth/store"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, hashed_password, full_name, is_active, is_superuser, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u        domain.User
		fullName sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &fullName, &u.IsActive, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.FullName = mapNullStringPtr(fullName)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) Create(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	now := time.Now().UTC()

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, hashed_password, full_name, is_active, is_superuser, created_at, updated_at)
		 VALUES (?, ?, ?, 1, ?, ?, ?)`,
		nu.Email, nu.PasswordHash, mapOptionalString(nu.FullName), nu.IsSuperuser, now, now,
	)
	if err != nil {
		return domain.User{}, mapConstraint(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.User{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *usersRepo) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, time.Now().UTC(), id)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, `UPDATE users SET hashed_password = ?, updated_at = ? WHERE id = ?`, hash, time.Now().UTC(), id)
}

func (r *usersRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
