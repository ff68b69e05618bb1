package jwtx

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned for every token that must not be honoured:
// bad signature, malformed payload, wrong or missing kind, expired.
var ErrInvalidToken = errors.New("jwtx: invalid token")

// Codec issues and decodes the service's tokens. It never touches storage.
type Codec struct {
	key    Key
	issuer string
	now    func() time.Time
}

type CodecOption func(*Codec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) { c.issuer = issuer }
}

func NewCodec(key Key, opts ...CodecOption) *Codec {
	c := &Codec{key: key, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue mints a signed token of kind for subject that expires after ttl.
func (c *Codec) Issue(subject string, kind Kind, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("jwtx: empty subject")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("jwtx: unknown token kind %q", kind)
	}
	return c.key.Sign(NewClaims(subject, kind, ttl, c.issuer, c.now().UTC()))
}

// Decode verifies token and returns its claims. All failures wrap
// ErrInvalidToken.
func (c *Codec) Decode(token string) (Claims, error) {
	claims, err := c.key.Verify(token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	switch {
	case claims.Subject == "":
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	case !claims.Kind.Valid():
		return Claims{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidToken, claims.Kind)
	case c.issuer != "" && claims.Issuer != c.issuer:
		return Claims{}, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	case claims.Expired(c.now()):
		return Claims{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	return claims, nil
}

// DecodeKind is Decode that additionally requires the token to be of kind.
func (c *Codec) DecodeKind(token string, kind Kind) (Claims, error) {
	claims, err := c.Decode(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Kind != kind {
		return Claims{}, fmt.Errorf("%w: expected %s token, got %s", ErrInvalidToken, kind, claims.Kind)
	}
	return claims, nil
}
