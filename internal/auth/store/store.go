package store

import (
	"context"
	"errors"
	"time"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/pkg/ratelimit"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it as methods so a transaction
// scoped Store exposes exactly the same surface.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RateWindows() RateWindows

	ApplyMigrations() error

	// WithTx runs fn in a read/write transaction, committing when fn
	// returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction. Nesting is not
// supported.
type Tx interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RateWindows() RateWindows
}

type Users interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)

	// GetByEmail matches the email exactly.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// Create inserts u and returns the stored row. A duplicate email is
	// ErrAlreadyExists.
	Create(ctx context.Context, u domain.NewUser) (domain.User, error)

	SetActive(ctx context.Context, id int64, active bool) error

	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

type RefreshTokens interface {
	// Save inserts an unrevoked record.
	Save(ctx context.Context, t domain.RefreshToken) error

	// FindActive returns the record for hash only while it is unrevoked,
	// ErrNotFound otherwise.
	FindActive(ctx context.Context, hash string) (domain.RefreshToken, error)

	// Revoke sets revoked_at if the record is still active and reports
	// whether this call did it. Revoking twice is not an error.
	Revoke(ctx context.Context, hash string) (bool, error)

	// RevokeAllForUser revokes every active record of the user and returns
	// how many were revoked.
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)

	// ListActiveForUser returns the user's active records, newest first.
	ListActiveForUser(ctx context.Context, userID int64) ([]domain.RefreshToken, error)
}

// RateWindows persists fixed window counters shared by every instance.
type RateWindows interface {
	// Lock returns the window for key, creating an empty one starting at
	// now if none exists. Within a transaction the row stays locked until
	// commit.
	Lock(ctx context.Context, key string, now time.Time) (ratelimit.Window, error)

	Put(ctx context.Context, key string, w ratelimit.Window) error

	// DeleteBefore drops windows that started before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
