package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const randomTokenBytes = 32

// GenerateRandomToken returns a 256-bit cryptographically random token as a
// lowercase hex string. Used for email-verification and password-reset raw
// tokens.
func GenerateRandomToken() (string, error) {
	buf := make([]byte, randomTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken calculates the SHA-256 hash of a token as lowercase hex. This is
// the only form ever persisted for verification and reset tokens.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// GenerateRandomToken implements the opaque-token half of port.TokenEngine.
func (s *TokenService) GenerateRandomToken() (string, error) {
	return GenerateRandomToken()
}

// HashToken implements the token-hashing half of port.TokenEngine.
func (s *TokenService) HashToken(value string) string {
	return HashToken(value)
}
