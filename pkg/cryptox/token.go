package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token,
// base64url-encoded. Records store fingerprints so a database leak never
// exposes usable token values.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateNumericCode returns a fixed-length decimal code drawn from
// crypto/rand. Leading zeros are preserved.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", digits)
	}

	code := make([]byte, digits)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate numeric code: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
