package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminKeyService(t *testing.T) {
	service, err := NewAdminKeyService()
	require.NoError(t, err)

	t.Run("Success_GenerateAndVerify", func(t *testing.T) {
		plainKey, hashedKey, err := service.GenerateKey()
		require.NoError(t, err)

		assert.NotEmpty(t, plainKey)
		assert.True(t, strings.HasPrefix(hashedKey, "$argon2id$"))
		assert.NotContains(t, hashedKey, plainKey)
		assert.True(t, service.VerifyKey(plainKey, hashedKey))
	})

	t.Run("Error_WrongKey", func(t *testing.T) {
		hashedKey, err := service.HashKey("correct-admin-key")
		require.NoError(t, err)

		assert.False(t, service.VerifyKey("wrong-admin-key", hashedKey))
	})

	t.Run("Error_MalformedHash", func(t *testing.T) {
		assert.False(t, service.VerifyKey("any", "not-a-hash"))
	})
}
