package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/pkg/cryptox"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")

	pair := f.login(t, "alice@example.com")
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Equal(t, "bearer", pair.TokenType)
	require.Equal(t, 15*time.Minute, pair.ExpiresIn)
	require.Equal(t, 30*24*time.Hour, pair.RefreshTTL)

	recs := f.activeSessions(t, u.ID)
	require.Len(t, recs, 1)
	require.Equal(t, cryptox.HashToken(pair.RefreshToken), recs[0].TokenHash)
	require.NotNil(t, recs[0].DeviceInfo)
	require.Equal(t, "test-agent", *recs[0].DeviceInfo)

	sub, err := f.auth.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatInt(u.ID, 10), sub)
}

func TestLogin_RepeatedLoginsRecordDistinctTokens(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")

	seen := map[string]bool{}
	for range 3 {
		pair := f.login(t, "alice@example.com")
		seen[cryptox.HashToken(pair.RefreshToken)] = true
	}
	require.Len(t, seen, 3)

	recs := f.activeSessions(t, u.ID)
	require.Len(t, recs, 3)
	for _, r := range recs {
		require.True(t, seen[r.TokenHash])
	}
}

func TestLogin_CredentialErrorsAreIdentical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t, "realuser@x.com")

	_, errUnknown := f.auth.Login(ctx, "nouser@x.com", "x", "")
	_, errWrong := f.auth.Login(ctx, "realuser@x.com", "wrongpass", "")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.True(t, errUnknown == errWrong)
}

func TestLogin_EmailIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "alice@example.com")

	_, err := f.auth.Login(context.Background(), "Alice@example.com", testPassword, "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "bob@example.com")
	require.NoError(t, f.store.Users().SetActive(ctx, u.ID, false))

	_, err := f.auth.Login(ctx, "bob@example.com", testPassword, "")
	require.ErrorIs(t, err, ErrAccountDisabled)

	// A wrong password on a disabled account does not reveal the state.
	_, err = f.auth.Login(ctx, "bob@example.com", "nope", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.Empty(t, f.activeSessions(t, u.ID))
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := f.store.Users().Create(ctx, domain.NewUser{Email: "old@example.com", PasswordHash: string(legacy)})
	require.NoError(t, err)

	f.login(t, "old@example.com")

	got, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, len(got.PasswordHash) > 10 && got.PasswordHash[:10] == "$argon2id$")

	// The upgraded hash still verifies.
	f.login(t, "old@example.com")
}

func TestRefresh_RotationInvalidatesPredecessor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")
	t0 := f.login(t, "alice@example.com")

	t1, err := f.auth.Refresh(ctx, t0.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, t0.RefreshToken, t1.RefreshToken)
	require.NotEqual(t, t0.AccessToken, t1.AccessToken)

	_, err = f.auth.Refresh(ctx, t0.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevokedOrUnknown)

	recs := f.activeSessions(t, u.ID)
	require.Len(t, recs, 1)
	require.Equal(t, cryptox.HashToken(t1.RefreshToken), recs[0].TokenHash)
	require.Equal(t, "test-agent", *recs[0].DeviceInfo)

	t2, err := f.auth.Refresh(ctx, t1.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, t1.RefreshToken, t2.RefreshToken)
}

func TestRefresh_SingleUseUnderRaces(t *testing.T) {
	for _, n := range []int{1, 2, 16} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			u := f.createUser(t, "alice@example.com")
			t0 := f.login(t, "alice@example.com")

			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				ok     int
				failed int
				start  = make(chan struct{})
			)
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := f.auth.Refresh(ctx, t0.RefreshToken)

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, ErrTokenRevokedOrUnknown):
						failed++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			close(start)
			wg.Wait()

			require.Equal(t, 1, ok)
			require.Equal(t, n-1, failed)
			require.Len(t, f.activeSessions(t, u.ID), 1)
		})
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")
	pair := f.login(t, "alice@example.com")

	_, err := f.auth.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.NotErrorIs(t, err, ErrTokenRevokedOrUnknown)

	recs := f.activeSessions(t, u.ID)
	require.Len(t, recs, 1)
	require.Equal(t, cryptox.HashToken(pair.RefreshToken), recs[0].TokenHash)
}

func TestRefresh_Expired(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "alice@example.com")
	pair := f.login(t, "alice@example.com")

	f.clock.Advance(30 * 24 * time.Hour)

	_, err := f.auth.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_Garbage(t *testing.T) {
	f := newFixture(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := f.auth.Refresh(context.Background(), tok)
		require.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")
	pair := f.login(t, "alice@example.com")

	require.NoError(t, f.auth.Logout(ctx, pair.RefreshToken))
	_, err := f.auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevokedOrUnknown)

	require.NoError(t, f.auth.Logout(ctx, pair.RefreshToken))
	_, err = f.auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevokedOrUnknown)

	require.NoError(t, f.auth.Logout(ctx, "never-issued"))
	require.NoError(t, f.auth.Logout(ctx, ""))
	require.Empty(t, f.activeSessions(t, u.ID))
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")
	pair := f.login(t, "alice@example.com")

	got, err := f.auth.Me(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "alice@example.com", got.Email)

	_, err = f.auth.Me(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	f.clock.Advance(15 * time.Minute)
	_, err = f.auth.Me(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMe_DisabledAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.createUser(t, "alice@example.com")
	pair := f.login(t, "alice@example.com")
	require.NoError(t, f.store.Users().SetActive(ctx, u.ID, false))

	_, err := f.auth.Me(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrAccountDisabled)
}
