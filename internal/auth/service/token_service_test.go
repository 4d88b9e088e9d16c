package service

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
)

func TestNewTokenService(t *testing.T) {
	service := NewTokenService()
	assert.NotNil(t, service)
	assert.IsType(t, &tokenService{}, service)
}

func TestTokenService_GenerateToken(t *testing.T) {
	service := NewTokenService()

	t.Run("Success_GenerateToken", func(t *testing.T) {
		plainToken, tokenHash, err := service.GenerateToken()
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(plainToken)
		require.NoError(t, err)
		assert.Len(t, decoded, 32)
		assert.NotContains(t, plainToken, "=")

		assert.GreaterOrEqual(t, len(plainToken), authDomain.MinTokenLength)
		assert.LessOrEqual(t, len(plainToken), authDomain.MaxTokenLength)

		expected := sha256.Sum256([]byte(plainToken))
		assert.Equal(t, hex.EncodeToString(expected[:]), tokenHash)
	})

	t.Run("Success_GenerateUniqueTokens", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			plainToken, _, err := service.GenerateToken()
			require.NoError(t, err)
			_, dup := seen[plainToken]
			require.False(t, dup)
			seen[plainToken] = struct{}{}
		}
	})
}

func TestTokenService_HashToken(t *testing.T) {
	service := NewTokenService()

	h1 := service.HashToken("token")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, service.HashToken("token"))
	assert.NotEqual(t, h1, service.HashToken("token2"))
}
