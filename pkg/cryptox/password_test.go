package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	require.NoError(t, VerifyPassword("correct horse battery staple", hash))
	require.Error(t, VerifyPassword("wrong password", hash))
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	t.Parallel()

	h1, err := HashPassword("same-input")
	require.NoError(t, err)
	h2, err := HashPassword("same-input")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=2,p=1$!!$aGFzaA",
	} {
		require.Error(t, VerifyPassword("pw", bad), "hash %q should be rejected", bad)
	}
}
