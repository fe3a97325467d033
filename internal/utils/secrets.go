package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SecretBytes is the entropy of generated secrets (256-bit)
const SecretBytes = 32

// GenerateSecret generates a cryptographically secure random secret, hex encoded
func GenerateSecret(bytes int) (string, error) {
	if bytes <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", bytes)
	}
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateJWTSecrets generates two different JWT secrets (access and refresh)
func GenerateJWTSecrets() (accessSecret, refreshSecret string, err error) {
	accessSecret, err = GenerateSecret(SecretBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access secret: %w", err)
	}

	refreshSecret, err = GenerateSecret(SecretBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	return accessSecret, refreshSecret, nil
}

// EnvLines renders the secrets as .env assignments
func EnvLines(accessSecret, refreshSecret string) []string {
	return []string{
		"JWT_SECRET=" + accessSecret,
		"JWT_REFRESH_SECRET=" + refreshSecret,
	}
}
