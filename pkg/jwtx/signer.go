package jwtx

import (
	"errors"
	"fmt"
	"strings"
)

// MinSecretLength is the shortest secret accepted for signing keys.
const MinSecretLength = 32

var (
	ErrWeakSecret  = fmt.Errorf("jwtx: secret must be at least %d bytes", MinSecretLength)
	ErrUnknownAlg  = errors.New("jwtx: unsupported algorithm")
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
)

// Signer turns claims into a compact JWS.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// Verifier checks the signature of a compact JWS and returns its claims.
// Claim semantics (exp, typ, iss) are left to the Codec.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// Key signs and verifies with one algorithm.
type Key interface {
	Signer
	Verifier
}

// NewKey builds a Key for alg from secret. EdDSA derives its Ed25519 key
// from the secret, so both algorithms are driven by one configured value.
func NewKey(alg string, secret []byte) (Key, error) {
	switch strings.ToUpper(alg) {
	case "", AlgHS256:
		return NewHS256(secret)
	case strings.ToUpper(AlgEdDSA):
		return NewEdDSAFromSecret(secret)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlg, alg)
	}
}
