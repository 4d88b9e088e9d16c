package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	authDomain "github.com/scrilab/artale-auth/internal/auth/domain"
	apperrors "github.com/scrilab/artale-auth/internal/errors"
)

type tokenService struct{}

// NewTokenService creates a TokenService backed by crypto/rand and SHA-256.
func NewTokenService() TokenService {
	return &tokenService{}
}

// GenerateToken reads 32 random bytes and encodes them as unpadded base64url.
// Uniqueness follows from the entropy, stores do not check for collisions.
func (t *tokenService) GenerateToken() (string, string, error) {
	randomBytes := make([]byte, authDomain.TokenBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate random token")
	}

	plainToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	return plainToken, t.HashToken(plainToken), nil
}

func (t *tokenService) HashToken(plainToken string) string {
	hash := sha256.Sum256([]byte(plainToken))
	return hex.EncodeToString(hash[:])
}
