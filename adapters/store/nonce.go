package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const nonceBytes = 16

// generateNonce returns 32 lowercase hex characters, which satisfies the
// EIP-4361 alphanumeric nonce rule.
func generateNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
