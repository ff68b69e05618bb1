package jwtx

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/golang-jwt/jwt/v5"
)

const AlgEdDSA = "EdDSA"

// EdDSA signs with an Ed25519 key pair.
type EdDSA struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewEdDSAFromSecret derives an Ed25519 key from the SHA-256 of secret.
// Every instance configured with the same secret signs with the same key.
func NewEdDSAFromSecret(secret []byte) (*EdDSA, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	seed := sha256.Sum256(secret)
	key := ed25519.NewKeyFromSeed(seed[:])

	return &EdDSA{key: key, pub: key.Public().(ed25519.PublicKey)}, nil
}

func (k *EdDSA) Alg() string { return AlgEdDSA }

// PublicKey is what a downstream service needs to verify access tokens.
func (k *EdDSA) PublicKey() ed25519.PublicKey { return k.pub }

func (k *EdDSA) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(k.key)
}

func (k *EdDSA) Verify(token string) (Claims, error) {
	return parse(token, jwt.SigningMethodEdDSA.Alg(), k.pub)
}
