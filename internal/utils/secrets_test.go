package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret(SecretBytes)
	require.NoError(t, err)
	assert.Len(t, secret, SecretBytes*2)

	_, err = hex.DecodeString(secret)
	assert.NoError(t, err)

	_, err = GenerateSecret(0)
	assert.Error(t, err)
}

func TestGenerateJWTSecrets(t *testing.T) {
	access, refresh, err := GenerateJWTSecrets()
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	lines := EnvLines(access, refresh)
	assert.Equal(t, []string{"JWT_SECRET=" + access, "JWT_REFRESH_SECRET=" + refresh}, lines)
}
