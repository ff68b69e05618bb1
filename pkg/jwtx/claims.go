package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boofmebel/auth/pkg/cryptox"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Kind tells access and refresh tokens apart. It travels in the "typ" claim
// so a refresh token can never be presented as an access token.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the payload of every token this service mints.
type Claims struct {
	jwt.RegisteredClaims

	Kind Kind `json:"typ"`
}

// NewClaims builds claims for subject. The random jti keeps two tokens
// minted for the same subject in the same second distinct.
func NewClaims(subject string, kind Kind, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Kind: kind,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// Expired reports whether the token is no longer usable at now. A token is
// dead at its exp instant, so a zero TTL token is never valid.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}
