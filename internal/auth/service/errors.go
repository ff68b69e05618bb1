package service

import "errors"

// Errors returned by AuthService. Callers map them to HTTP statuses; none of
// them carries detail that is safe to show a client.
var (
	// ErrInvalidCredentials is returned both for an unknown email and a wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")

	// ErrInvalidToken covers bad signatures, malformed payloads, expiry and
	// a token of the wrong kind.
	ErrInvalidToken = errors.New("invalid_token")

	// ErrTokenRevokedOrUnknown is a correctly signed refresh token that has
	// no active record: already rotated, logged out, or never stored.
	ErrTokenRevokedOrUnknown = errors.New("token_revoked_or_unknown")
)
