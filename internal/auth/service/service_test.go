package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/internal/auth/store/drivers/sqlite"
	"github.com/boofmebel/auth/pkg/cryptox"
	"github.com/boofmebel/auth/pkg/jwtx"
)

const testPassword = "correct horse battery"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store *sqlite.Store
	clock *testClock
	auth  *AuthService
	users *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	key, err := jwtx.NewKey(jwtx.AlgHS256, []byte(strings.Repeat("s", jwtx.MinSecretLength)))
	require.NoError(t, err)

	clock := newTestClock()
	hasher := cryptox.NewArgon2Hasher("test-pepper")

	return &fixture{
		store: db,
		clock: clock,
		auth: &AuthService{
			Store:      db,
			Codec:      jwtx.NewCodec(key, jwtx.WithClock(clock.Now), jwtx.WithIssuer("test")),
			Hasher:     hasher,
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
			Now:        clock.Now,
		},
		users: &UserService{Store: db, Hasher: hasher},
	}
}

func (f *fixture) createUser(t *testing.T, email string) domain.User {
	t.Helper()

	u, err := f.users.Create(context.Background(), CreateUserInput{Email: email, Password: testPassword})
	require.NoError(t, err)
	return u
}

func (f *fixture) login(t *testing.T, email string) domain.TokenPair {
	t.Helper()

	pair, err := f.auth.Login(context.Background(), email, testPassword, "test-agent")
	require.NoError(t, err)
	return pair
}

func (f *fixture) activeSessions(t *testing.T, userID int64) []domain.RefreshToken {
	t.Helper()

	recs, err := f.store.RefreshTokens().ListActiveForUser(context.Background(), userID)
	require.NoError(t, err)
	return recs
}
