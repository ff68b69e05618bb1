package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestArgon2Hasher_Hash(t *testing.T) {
	h := NewArgon2Hasher("test-pepper")

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.True(t, h.Verify(tt.password, hash))
			require.False(t, h.NeedsRehash(hash))
		})
	}
}

func TestArgon2Hasher_UniqueSalts(t *testing.T) {
	h := NewArgon2Hasher("test-pepper")

	hash1, err := h.Hash("samepassword")
	require.NoError(t, err)
	hash2, err := h.Hash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2)
	require.True(t, h.Verify("samepassword", hash1))
	require.True(t, h.Verify("samepassword", hash2))
}

func TestArgon2Hasher_WrongPassword(t *testing.T) {
	h := NewArgon2Hasher("test-pepper")
	hash, err := h.Hash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong-password", "Correct-Password", "correct-password ", "", strings.Repeat("x", 10000)} {
		require.ErrorIs(t, h.Compare(wrong, hash), ErrMismatch, wrong)
		require.False(t, h.Verify(wrong, hash))
	}
}

func TestArgon2Hasher_PepperMatters(t *testing.T) {
	hash, err := NewArgon2Hasher("pepper-a").Hash("password")
	require.NoError(t, err)

	require.False(t, NewArgon2Hasher("pepper-b").Verify("password", hash))
}

func TestArgon2Hasher_MalformedHash(t *testing.T) {
	h := NewArgon2Hasher("test-pepper")

	tests := []struct {
		name string
		hash string
	}{
		{"empty hash", ""},
		{"plaintext", "password"},
		{"wrong algorithm", "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"zero parameters", "$argon2id$v=19$m=0,t=0,p=0$c2FsdA$aGFzaA"},
		{"invalid base64 salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!invalid!!!$aGFzaA"},
		{"invalid base64 hash", "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!invalid!!!"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"truncated bcrypt", "$2b$12$abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.False(t, h.Verify("password", tt.hash))
			})
			require.ErrorIs(t, h.Compare("password", tt.hash), ErrMalformedHash)
			require.True(t, h.NeedsRehash(tt.hash))
		})
	}
}

func TestArgon2Hasher_LegacyBcrypt(t *testing.T) {
	h := NewArgon2Hasher("test-pepper")

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported"), bcrypt.MinCost)
	require.NoError(t, err)

	require.True(t, h.Verify("imported", string(legacy)))
	require.ErrorIs(t, h.Compare("other", string(legacy)), ErrMismatch)
	require.True(t, h.NeedsRehash(string(legacy)))
}

func TestArgon2Hasher_NeedsRehash_OldParameters(t *testing.T) {
	h := NewArgon2Hasher("")
	hash, err := h.Hash("password")
	require.NoError(t, err)

	weaker := strings.Replace(hash, "t=2", "t=1", 1)
	require.True(t, h.NeedsRehash(weaker))
}

func TestGeneratePassword(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		password, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, password, 16)
		for _, c := range password {
			valid := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
			require.True(t, valid)
		}
		require.False(t, seen[password])
		seen[password] = true
	}
}
