// Package auth guards the review surface with a single reviewer token.
// Only a bcrypt hash of the token is ever stored in configuration.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenPrefix marks reviewer tokens so they are recognizable in logs and configs
	TokenPrefix = "olk_rt_" // #nosec G101 //nolint:gosec // Not a credential, just a prefix pattern

	// TokenLength is the length of the random part of tokens (in bytes, will be hex encoded)
	TokenLength = 32

	// maskedLength is how much of a token MaskToken leaves visible after the prefix
	maskedLength = 6

	// bcryptCost is the cost factor for bcrypt hashing
	bcryptCost = 12
)

// GenerateToken returns a fresh reviewer token.
// Format: olk_rt_<64 hex chars>
func GenerateToken() (string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return TokenPrefix + hex.EncodeToString(bytes), nil
}

// HashToken creates a bcrypt hash of a token
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimPrefix(token, TokenPrefix)), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(hash), nil
}

// VerifyToken checks if a token matches a hash
func VerifyToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimPrefix(token, TokenPrefix)))
	return err == nil
}

// IsValidTokenFormat checks if a token has the correct format
func IsValidTokenFormat(token string) bool {
	secret, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok || len(secret) != TokenLength*2 {
		return false
	}
	_, err := hex.DecodeString(secret)
	return err == nil
}

// MaskToken returns a version of a token safe to print.
// Example: olk_rt_a1b2c3****
func MaskToken(token string) string {
	if len(token) < len(TokenPrefix)+maskedLength {
		return "****"
	}
	return token[:len(TokenPrefix)+maskedLength] + "****"
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(authorization string) (string, bool) {
	const prefix = "Bearer "
	authorization = strings.TrimSpace(authorization)
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if tok == "" {
		return "", false
	}
	return tok, true
}
