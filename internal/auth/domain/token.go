package domain

import "time"

// TokenPair is the result of a login or refresh. The refresh token only
// ever leaves the service inside the HttpOnly cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "bearer"
	ExpiresIn    time.Duration
	RefreshTTL   time.Duration
}

// RefreshToken is the persisted proof that a refresh token was issued. Rows
// are never deleted and change exactly once, when RevokedAt is set.
type RefreshToken struct {
	ID         string // ULID
	UserID     int64
	TokenHash  string // hex SHA-256 of the raw token
	DeviceInfo *string
	IssuedAt   time.Time
	RevokedAt  *time.Time
}

func (t RefreshToken) Active() bool { return t.RevokedAt == nil }
