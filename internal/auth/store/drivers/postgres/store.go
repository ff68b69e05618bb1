// Package postgres is the PostgreSQL store driver for multi-instance
// deployments.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/boofmebel/auth/internal/auth/store"
)

// querier is the part of pgx shared by the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// poolIface is satisfied by *pgxpool.Pool and pgxmock.PgxPoolIface.
type poolIface interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	pool        poolIface
	databaseURL string
}

// NewStore connects a pgx pool to databaseURL.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	return &Store{pool: pool, databaseURL: databaseURL}, nil
}

// NewStoreWithPool wraps an existing pool. databaseURL is only needed for
// ApplyMigrations.
func NewStoreWithPool(pool poolIface, databaseURL string) *Store {
	return &Store{pool: pool, databaseURL: databaseURL}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("DB_PING_FAILED").Wrap(err)
	}
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(txStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

func (s *Store) Users() store.Users                 { return &usersRepo{q: s.pool} }
func (s *Store) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: s.pool} }
func (s *Store) RateWindows() store.RateWindows     { return &rateWindowsRepo{q: s.pool} }

type txStore struct {
	q querier
}

func (t txStore) Users() store.Users                 { return &usersRepo{q: t.q} }
func (t txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.q} }
func (t txStore) RateWindows() store.RateWindows     { return &rateWindowsRepo{q: t.q} }

// wrap attaches an oops code to err, translating the conditions callers
// branch on into store sentinels.
func wrap(err error, code string, kv ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return oops.Code(code).With(kv...).Wrap(store.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return oops.Code(code).With(kv...).With("constraint", pgErr.ConstraintName).Wrap(store.ErrAlreadyExists)
		case pgerrcode.ForeignKeyViolation:
			return oops.Code(code).With(kv...).With("constraint", pgErr.ConstraintName).Wrap(store.ErrNotFound)
		}
	}
	return oops.Code(code).With(kv...).Wrap(err)
}
