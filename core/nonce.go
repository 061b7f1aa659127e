package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const nonceBytes = 16

// GenerateNonce returns 128 random bits as lowercase hex.
func GenerateNonce() (string, error) {
	raw := make([]byte, nonceBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate nonce: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
