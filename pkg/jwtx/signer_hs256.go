package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const AlgHS256 = "HS256"

// HS256 signs with a shared HMAC-SHA256 secret.
type HS256 struct {
	secret []byte
}

func NewHS256(secret []byte) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	return &HS256{secret: append([]byte(nil), secret...)}, nil
}

func (k *HS256) Alg() string { return AlgHS256 }

func (k *HS256) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.secret)
}

func (k *HS256) Verify(token string) (Claims, error) {
	return parse(token, jwt.SigningMethodHS256.Alg(), k.secret)
}

// parse checks structure, algorithm and signature only. Time based claims
// are validated by the Codec against its own clock.
func parse(token, alg string, key any) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{alg}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return Claims{}, fmt.Errorf("%w: %v", ErrAlgMismatch, err)
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
