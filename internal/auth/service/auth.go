package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/pkg/cryptox"
	"github.com/boofmebel/auth/pkg/idx"
	"github.com/boofmebel/auth/pkg/jwtx"
	"github.com/boofmebel/auth/pkg/slogx"
)

const tokenTypeBearer = "bearer"

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
	NeedsRehash(encoded string) bool
}

// AuthService runs login, refresh rotation and logout against the store.
type AuthService struct {
	Store      store.Store
	Codec      *jwtx.Codec
	Hasher     PasswordHasher
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now stamps refresh token records. Defaults to time.Now.
	Now func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var reuseLog = rate.Sometimes{Interval: time.Second}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// Login checks email and password and opens a new session. An unknown email
// and a wrong password both yield ErrInvalidCredentials and cost the same
// amount of hashing.
func (s *AuthService) Login(ctx context.Context, email, password, deviceInfo string) (pair domain.TokenPair, err error) {
	defer func() { observe("login", err, ErrInvalidCredentials, ErrAccountDisabled) }()
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.Hasher.Verify(password, s.dummy())
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("load user: %w", err)
	}

	if !s.Hasher.Verify(password, user.PasswordHash) {
		l.Info("login rejected", slog.Int64("user_id", user.ID))
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		l.Info("login rejected: account disabled", slog.Int64("user_id", user.ID))
		return domain.TokenPair{}, ErrAccountDisabled
	}

	if s.Hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		pair, err = s.issue(ctx, tx, user.ID, optional(deviceInfo))
		return err
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Info("login succeeded", slog.Int64("user_id", user.ID))
	return pair, nil
}

// Refresh consumes refreshToken and returns a successor pair. The lookup,
// the conditional revoke and the insert of the successor share one
// transaction, so of several concurrent calls with the same token exactly
// one succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair domain.TokenPair, err error) {
	defer func() { observe("refresh", err, ErrInvalidToken, ErrTokenRevokedOrUnknown) }()
	l := slogx.FromContext(ctx)

	userID, err := s.subject(refreshToken, jwtx.KindRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	hash := cryptox.HashToken(refreshToken)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.RefreshTokens().FindActive(ctx, hash)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTokenRevokedOrUnknown
		}
		if err != nil {
			return fmt.Errorf("find refresh token: %w", err)
		}
		if rec.UserID != userID {
			return ErrTokenRevokedOrUnknown
		}

		revoked, err := tx.RefreshTokens().Revoke(ctx, hash)
		if err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		if !revoked {
			return ErrTokenRevokedOrUnknown
		}

		pair, err = s.issue(ctx, tx, userID, rec.DeviceInfo)
		return err
	})
	if errors.Is(err, ErrTokenRevokedOrUnknown) {
		refreshReuseTotal.Inc()
		reuseLog.Do(func() {
			l.Warn("refresh token reuse, possible theft", slog.Int64("user_id", userID))
		})
		return domain.TokenPair{}, err
	}
	if err != nil {
		return domain.TokenPair{}, err
	}

	l.Debug("refresh token rotated", slog.Int64("user_id", userID))
	return pair, nil
}

// Logout revokes refreshToken. Unknown and already revoked tokens are not an
// error; only store failures are returned.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { observe("logout", err) }()

	if refreshToken == "" {
		return nil
	}
	revoked, err := s.Store.RefreshTokens().Revoke(ctx, cryptox.HashToken(refreshToken))
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if revoked {
		slogx.FromContext(ctx).Debug("refresh token revoked by logout")
	}
	return nil
}

// Me returns the user an access token belongs to.
func (s *AuthService) Me(ctx context.Context, accessToken string) (domain.User, error) {
	userID, err := s.subject(accessToken, jwtx.KindAccess)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.Store.Users().GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrInvalidToken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return domain.User{}, ErrAccountDisabled
	}
	return user, nil
}

// Authenticate validates an access token and returns its subject. It does
// not touch the store.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (string, error) {
	userID, err := s.subject(accessToken, jwtx.KindAccess)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(userID, 10), nil
}

func (s *AuthService) subject(token string, kind jwtx.Kind) (int64, error) {
	claims, err := s.Codec.DecodeKind(token, kind)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

func (s *AuthService) issue(ctx context.Context, tx store.Tx, userID int64, deviceInfo *string) (domain.TokenPair, error) {
	sub := strconv.FormatInt(userID, 10)

	access, err := s.Codec.Issue(sub, jwtx.KindAccess, s.accessTTL())
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.Codec.Issue(sub, jwtx.KindRefresh, s.refreshTTL())
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	err = tx.RefreshTokens().Save(ctx, domain.RefreshToken{
		ID:         idx.New().String(),
		UserID:     userID,
		TokenHash:  cryptox.HashToken(refresh),
		DeviceInfo: deviceInfo,
		IssuedAt:   s.now(),
	})
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("save refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.accessTTL(),
		RefreshTTL:   s.refreshTTL(),
	}, nil
}

// upgradeHash replaces a legacy hash after a successful login. Failure only
// costs the upgrade.
func (s *AuthService) upgradeHash(ctx context.Context, userID int64, password string) {
	l := slogx.FromContext(ctx)

	hash, err := s.Hasher.Hash(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		l.Warn("password hash upgrade failed", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	l.Info("password hash upgraded", slog.Int64("user_id", userID))
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
