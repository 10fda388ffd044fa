package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// tokenEntropyBytes is the amount of entropy behind a generated credential.
// 13 random bytes base64url-encode to an 18-character token.
const tokenEntropyBytes = 13

// GenerateToken returns a URL-safe random token suitable for use as a
// temporary user password.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSecretKey returns a random 32-byte key encoded as a 64-character
// hex string, for operators who have not pinned a secret key yet.
func GenerateSecretKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
