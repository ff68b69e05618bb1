package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/boofmebel/auth/internal/auth/domain"
	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/pkg/slogx"
)

var (
	ErrInvalidEmail = errors.New("invalid_email")
	ErrWeakPassword = errors.New("weak_password")
	ErrEmailTaken   = errors.New("email_taken")
	ErrUserNotFound = errors.New("user_not_found")
)

// MinPasswordLength applies to passwords set through UserService.
const MinPasswordLength = 8

// UserService covers the user lifecycle operations of the admin CLI.
type UserService struct {
	Store  store.Store
	Hasher PasswordHasher
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Email       string
	Password    string
	FullName    string
	IsSuperuser bool
}

// Create hashes the password and stores a new active user.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (domain.User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, ErrInvalidEmail
	}
	if len(in.Password) < MinPasswordLength {
		return domain.User{}, ErrWeakPassword
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.Store.Users().Create(ctx, domain.NewUser{
		Email:        email,
		PasswordHash: hash,
		FullName:     optional(strings.TrimSpace(in.FullName)),
		IsSuperuser:  in.IsSuperuser,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	slogx.FromContext(ctx).Info("user created", slog.Int64("user_id", u.ID))
	return u, nil
}

// Deactivate disables the account and revokes every session it holds, in
// one transaction. It returns the number of sessions revoked.
func (s *UserService) Deactivate(ctx context.Context, email string) (int64, error) {
	var revoked int64
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetByEmail(ctx, email)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Users().SetActive(ctx, u.ID, false); err != nil {
			return err
		}
		revoked, err = tx.RefreshTokens().RevokeAllForUser(ctx, u.ID)
		return err
	})
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("user deactivated", slog.String("email", email), slog.Int64("sessions_revoked", revoked))
	return revoked, nil
}

// Sessions lists the active refresh token records of a user.
func (s *UserService) Sessions(ctx context.Context, email string) ([]domain.RefreshToken, error) {
	u, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Store.RefreshTokens().ListActiveForUser(ctx, u.ID)
}
